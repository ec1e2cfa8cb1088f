package presence

import (
	"github.com/wavecast/wavecast-go/pkg/engine"
	"github.com/wavecast/wavecast-go/pkg/entity"
)

type stateIface = engine.State[Event, Invocation]

// Inactive is the initial state: no heartbeat loop running.
type Inactive struct{}

func (Inactive) Enter() []Invocation { return nil }
func (Inactive) Exit() []Invocation  { return nil }

func (Inactive) Transition(ev Event) (stateIface, []Invocation, bool) {
	switch e := ev.(type) {
	case Joined:
		if e.HeartbeatIntervalSeconds == 0 || e.Input.IsEmpty() {
			return nil, nil, false
		}
		return Heartbeating{Input: e.Input, IntervalSeconds: e.HeartbeatIntervalSeconds}, nil, true
	}
	return nil, nil, false
}

// Heartbeating is the steady-state heartbeat-then-cooldown loop.
type Heartbeating struct {
	Input           entity.Input
	IntervalSeconds int
}

func (s Heartbeating) Enter() []Invocation { return []Invocation{HeartbeatInvocation{Input: s.Input}} }
func (Heartbeating) Exit() []Invocation    { return nil }

func (s Heartbeating) Transition(ev Event) (stateIface, []Invocation, bool) {
	switch e := ev.(type) {
	case Joined:
		if e.HeartbeatIntervalSeconds == 0 {
			return nil, nil, false
		}
		if e.Input.Equal(s.Input) {
			return nil, nil, false
		}
		return Heartbeating{Input: e.Input, IntervalSeconds: e.HeartbeatIntervalSeconds}, nil, true
	case Left:
		return applyLeave(s.Input, s.IntervalSeconds, e.Input, e.SuppressLeaveEvents, false)
	case LeftAll:
		return applyLeave(s.Input, s.IntervalSeconds, s.Input, e.SuppressLeaveEvents, false)
	case HeartbeatSuccess:
		return Cooldown{Input: s.Input, IntervalSeconds: s.IntervalSeconds}, nil, true
	case HeartbeatFailure:
		if e.Reason.Cancelled {
			return nil, nil, false
		}
		return Reconnecting{Input: s.Input, IntervalSeconds: s.IntervalSeconds, Attempts: 1, Reason: e.Reason}, nil, true
	case Disconnect:
		return Stopped{Input: s.Input, IntervalSeconds: s.IntervalSeconds}, nil, true
	}
	return nil, nil, false
}

// Cooldown waits out the configured heartbeat interval between a
// successful heartbeat and the next one.
type Cooldown struct {
	Input           entity.Input
	IntervalSeconds int
}

func (s Cooldown) Enter() []Invocation {
	return []Invocation{WaitInvocation{Input: s.Input, IntervalSeconds: s.IntervalSeconds}}
}
func (Cooldown) Exit() []Invocation { return []Invocation{CancelWaitInvocation{}} }

func (s Cooldown) Transition(ev Event) (stateIface, []Invocation, bool) {
	switch e := ev.(type) {
	case Joined:
		if e.HeartbeatIntervalSeconds == 0 {
			return nil, nil, false
		}
		if e.Input.Equal(s.Input) {
			return nil, nil, false
		}
		return Cooldown{Input: e.Input, IntervalSeconds: e.HeartbeatIntervalSeconds}, nil, true
	case Left:
		return applyLeave(s.Input, s.IntervalSeconds, e.Input, e.SuppressLeaveEvents, false)
	case LeftAll:
		return applyLeave(s.Input, s.IntervalSeconds, s.Input, e.SuppressLeaveEvents, false)
	case TimesUp:
		return Heartbeating{Input: s.Input, IntervalSeconds: s.IntervalSeconds}, nil, true
	case Disconnect:
		return Stopped{Input: s.Input, IntervalSeconds: s.IntervalSeconds}, nil, true
	}
	return nil, nil, false
}

// Reconnecting retries a failed heartbeat with a growing attempt
// counter.
type Reconnecting struct {
	Input           entity.Input
	IntervalSeconds int
	Attempts        int
	Reason          Reason
}

func (s Reconnecting) Enter() []Invocation {
	return []Invocation{DelayedHeartbeatInvocation{Input: s.Input, Attempts: s.Attempts, Reason: s.Reason}}
}
func (Reconnecting) Exit() []Invocation { return []Invocation{CancelDelayedHeartbeatInvocation{}} }

func (s Reconnecting) Transition(ev Event) (stateIface, []Invocation, bool) {
	switch e := ev.(type) {
	case Joined:
		if e.HeartbeatIntervalSeconds == 0 {
			return nil, nil, false
		}
		if e.Input.Equal(s.Input) {
			return nil, nil, false
		}
		return Reconnecting{Input: e.Input, IntervalSeconds: e.HeartbeatIntervalSeconds, Attempts: s.Attempts, Reason: s.Reason}, nil, true
	case Left:
		return applyLeave(s.Input, s.IntervalSeconds, e.Input, e.SuppressLeaveEvents, false)
	case LeftAll:
		return applyLeave(s.Input, s.IntervalSeconds, s.Input, e.SuppressLeaveEvents, false)
	case HeartbeatSuccess:
		return Cooldown{Input: s.Input, IntervalSeconds: s.IntervalSeconds}, nil, true
	case HeartbeatFailure:
		if e.Reason.Cancelled {
			return nil, nil, false
		}
		return Reconnecting{Input: s.Input, IntervalSeconds: s.IntervalSeconds, Attempts: s.Attempts + 1, Reason: e.Reason}, nil, true
	case HeartbeatGiveUp:
		return Failed{Input: s.Input, IntervalSeconds: s.IntervalSeconds, Reason: e.Reason}, nil, true
	case Disconnect:
		return Stopped{Input: s.Input, IntervalSeconds: s.IntervalSeconds}, nil, true
	}
	return nil, nil, false
}

// Failed is reached when the retry policy gives up on the heartbeat
// loop entirely.
type Failed struct {
	Input           entity.Input
	IntervalSeconds int
	Reason          Reason
}

func (Failed) Enter() []Invocation { return nil }
func (Failed) Exit() []Invocation  { return nil }

func (s Failed) Transition(ev Event) (stateIface, []Invocation, bool) {
	switch e := ev.(type) {
	case Joined:
		if e.HeartbeatIntervalSeconds == 0 {
			return nil, nil, false
		}
		return Heartbeating{Input: e.Input, IntervalSeconds: e.HeartbeatIntervalSeconds}, nil, true
	case Reconnect:
		return Heartbeating{Input: s.Input, IntervalSeconds: s.IntervalSeconds}, nil, true
	}
	return nil, nil, false
}

// Stopped is reached on an explicit Disconnect; it holds the input so
// a later Reconnect can resume without the caller having to re-Join.
type Stopped struct {
	Input           entity.Input
	IntervalSeconds int
}

func (Stopped) Enter() []Invocation { return nil }
func (Stopped) Exit() []Invocation  { return nil }

func (s Stopped) Transition(ev Event) (stateIface, []Invocation, bool) {
	switch e := ev.(type) {
	case Joined:
		if e.HeartbeatIntervalSeconds == 0 {
			return nil, nil, false
		}
		return Stopped{Input: e.Input, IntervalSeconds: e.HeartbeatIntervalSeconds}, nil, true
	case Left:
		return applyLeave(s.Input, s.IntervalSeconds, e.Input, e.SuppressLeaveEvents, true)
	case LeftAll:
		return applyLeave(s.Input, s.IntervalSeconds, s.Input, e.SuppressLeaveEvents, true)
	case Reconnect:
		return Heartbeating{Input: s.Input, IntervalSeconds: s.IntervalSeconds}, nil, true
	}
	return nil, nil, false
}

// applyLeave implements the shared Left/LeftAll rule from spec.md
// §4.D: the new heartbeat set is current minus leaving; a non-empty
// result stays (or becomes) Heartbeating/Stopped, an empty result goes
// Inactive; a Leave invocation fires for the actually-removed portion
// unless suppressed or the engine is already stopped.
func applyLeave(current entity.Input, intervalSeconds int, leaving entity.Input, suppress bool, stopped bool) (stateIface, []Invocation, bool) {
	result := current.Difference(leaving)
	removed := current.Difference(result)

	var invocations []Invocation
	if !suppress && !stopped && !removed.IsEmpty() {
		invocations = append(invocations, LeaveInvocation{Input: removed})
	}

	if result.IsEmpty() {
		return Inactive{}, invocations, true
	}
	if stopped {
		return Stopped{Input: result, IntervalSeconds: intervalSeconds}, invocations, true
	}
	return Heartbeating{Input: result, IntervalSeconds: intervalSeconds}, invocations, true
}

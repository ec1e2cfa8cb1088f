/*
Package presence implements the presence state machine (spec.md
§4.D): the parallel heartbeat/leave lifecycle that announces and
maintains user presence for the same aggregate input the subscribe
engine is tracking.

Like pkg/subscribe, it plugs into pkg/engine as
engine.State[Event, Invocation]; pkg/presence's Executor performs the
actual heartbeat/leave/wait calls.
*/
package presence

import "github.com/wavecast/wavecast-go/pkg/entity"

// Reason carries why a heartbeat failed.
type Reason struct {
	Err        error
	StatusCode int
	Cancelled  bool
}

// Event is implemented by every presence state-machine event.
type Event interface{ isPresenceEvent() }

type Joined struct {
	HeartbeatIntervalSeconds int
	Input                    entity.Input
}
type Left struct {
	SuppressLeaveEvents bool
	Input               entity.Input
}
type LeftAll struct{ SuppressLeaveEvents bool }
type HeartbeatSuccess struct{}
type HeartbeatFailure struct{ Reason Reason }
type HeartbeatGiveUp struct{ Reason Reason }
type Reconnect struct{}
type Disconnect struct{}
type TimesUp struct{}

func (Joined) isPresenceEvent()           {}
func (Left) isPresenceEvent()             {}
func (LeftAll) isPresenceEvent()          {}
func (HeartbeatSuccess) isPresenceEvent() {}
func (HeartbeatFailure) isPresenceEvent() {}
func (HeartbeatGiveUp) isPresenceEvent()  {}
func (Reconnect) isPresenceEvent()        {}
func (Disconnect) isPresenceEvent()       {}
func (TimesUp) isPresenceEvent()          {}

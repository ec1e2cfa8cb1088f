package subscribe

import (
	"github.com/wavecast/wavecast-go/pkg/engine"
	"github.com/wavecast/wavecast-go/pkg/entity"
)

// stateIface is satisfied by every state below; it exists only so this
// file can return a uniform type from helpers like noChange.
type stateIface = engine.State[Event, Invocation]

// Unsubscribed is the initial state and the state returned by
// UnsubscribeAll from anywhere.
type Unsubscribed struct{}

func (Unsubscribed) Enter() []Invocation { return nil }
func (Unsubscribed) Exit() []Invocation  { return nil }

func (s Unsubscribed) Transition(ev Event) (stateIface, []Invocation, bool) {
	switch e := ev.(type) {
	case SubscriptionChanged:
		return Handshaking{Input: e.Input}, nil, true
	case SubscriptionRestored:
		return Receiving{Input: e.Input, Cursor: e.Cursor}, nil, true
	}
	return nil, nil, false
}

// Handshaking is entered on SubscriptionChanged (SubscriptionRestored
// goes straight to Receiving) and issues the initial Handshake
// invocation.
type Handshaking struct{ Input entity.Input }

func (s Handshaking) Enter() []Invocation { return []Invocation{HandshakeInvocation{Input: s.Input}} }
func (Handshaking) Exit() []Invocation    { return []Invocation{CancelHandshakeInvocation{}} }

func (s Handshaking) Transition(ev Event) (stateIface, []Invocation, bool) {
	switch e := ev.(type) {
	case SubscriptionChanged:
		if e.Input.Equal(s.Input) {
			// spec.md §4.C: identical aggregate input must not re-enter
			// Handshaking.
			return nil, nil, false
		}
		return Handshaking{Input: e.Input}, nil, true
	case SubscriptionRestored:
		return Receiving{Input: e.Input, Cursor: e.Cursor}, nil, true
	case HandshakeSuccess:
		return Receiving{Input: s.Input, Cursor: e.Cursor}, []Invocation{EmitStatusInvocation{Status: StatusConnected}}, true
	case HandshakeFailure:
		if e.Reason.Cancelled {
			return nil, nil, false
		}
		return HandshakeReconnecting{Input: s.Input, Attempts: 1, Reason: e.Reason}, nil, true
	case Disconnect:
		return HandshakeStopped{Input: s.Input}, nil, true
	case UnsubscribeAll:
		return Unsubscribed{}, []Invocation{EmitStatusInvocation{Status: StatusDisconnected}}, true
	}
	return nil, nil, false
}

// HandshakeReconnecting retries the handshake with a growing attempt
// counter.
type HandshakeReconnecting struct {
	Input    entity.Input
	Attempts int
	Reason   Reason
}

func (s HandshakeReconnecting) Enter() []Invocation {
	return []Invocation{HandshakeReconnectInvocation{Input: s.Input, Attempts: s.Attempts, Reason: s.Reason}}
}
func (HandshakeReconnecting) Exit() []Invocation {
	return []Invocation{CancelHandshakeReconnectInvocation{}}
}

func (s HandshakeReconnecting) Transition(ev Event) (stateIface, []Invocation, bool) {
	switch e := ev.(type) {
	case SubscriptionChanged:
		if e.Input.Equal(s.Input) {
			return nil, nil, false
		}
		return Handshaking{Input: e.Input}, nil, true
	case SubscriptionRestored:
		return Receiving{Input: e.Input, Cursor: e.Cursor}, nil, true
	case HandshakeReconnectSuccess:
		return Receiving{Input: s.Input, Cursor: e.Cursor}, []Invocation{EmitStatusInvocation{Status: StatusConnected}}, true
	case HandshakeReconnectFailure:
		if e.Reason.Cancelled {
			return nil, nil, false
		}
		return HandshakeReconnecting{Input: s.Input, Attempts: s.Attempts + 1, Reason: e.Reason}, nil, true
	case HandshakeReconnectGiveUp:
		return HandshakeFailed{Input: s.Input, Reason: e.Reason}, []Invocation{EmitStatusInvocation{Status: StatusConnectError}}, true
	case Disconnect:
		return HandshakeStopped{Input: s.Input}, nil, true
	case UnsubscribeAll:
		return Unsubscribed{}, []Invocation{EmitStatusInvocation{Status: StatusDisconnected}}, true
	}
	return nil, nil, false
}

// HandshakeFailed is a terminal-until-Reconnect state reached after the
// retry policy gives up on the handshake.
type HandshakeFailed struct {
	Input  entity.Input
	Reason Reason
}

func (HandshakeFailed) Enter() []Invocation { return nil }
func (HandshakeFailed) Exit() []Invocation  { return nil }

func (s HandshakeFailed) Transition(ev Event) (stateIface, []Invocation, bool) {
	switch e := ev.(type) {
	case SubscriptionChanged:
		return Handshaking{Input: e.Input}, nil, true
	case SubscriptionRestored:
		return Receiving{Input: e.Input, Cursor: e.Cursor}, nil, true
	case Reconnect:
		return Handshaking{Input: s.Input}, nil, true
	case UnsubscribeAll:
		return Unsubscribed{}, []Invocation{EmitStatusInvocation{Status: StatusDisconnected}}, true
	}
	return nil, nil, false
}

// HandshakeStopped is reached on an explicit Disconnect while the
// handshake was in flight or retrying.
type HandshakeStopped struct{ Input entity.Input }

func (HandshakeStopped) Enter() []Invocation { return nil }
func (HandshakeStopped) Exit() []Invocation  { return nil }

func (s HandshakeStopped) Transition(ev Event) (stateIface, []Invocation, bool) {
	switch e := ev.(type) {
	case SubscriptionChanged:
		return HandshakeStopped{Input: e.Input}, nil, true
	case SubscriptionRestored:
		return ReceiveStopped{Input: e.Input, Cursor: e.Cursor}, nil, true
	case Reconnect:
		return Handshaking{Input: s.Input}, nil, true
	case UnsubscribeAll:
		return Unsubscribed{}, []Invocation{EmitStatusInvocation{Status: StatusDisconnected}}, true
	}
	return nil, nil, false
}

// Receiving is the steady-state long-poll loop.
type Receiving struct {
	Input  entity.Input
	Cursor entity.Cursor
}

func (s Receiving) Enter() []Invocation {
	return []Invocation{ReceiveInvocation{Input: s.Input, Cursor: s.Cursor}}
}
func (Receiving) Exit() []Invocation { return []Invocation{CancelReceiveInvocation{}} }

func (s Receiving) Transition(ev Event) (stateIface, []Invocation, bool) {
	switch e := ev.(type) {
	case SubscriptionChanged:
		return Receiving{Input: e.Input, Cursor: s.Cursor}, nil, true
	case SubscriptionRestored:
		return Receiving{Input: e.Input, Cursor: e.Cursor}, nil, true
	case ReceiveSuccess:
		cursor := entity.Advance(s.Cursor, e.Cursor)
		return Receiving{Input: s.Input, Cursor: cursor}, []Invocation{
			EmitMessagesInvocation{Messages: e.Messages, Cursor: cursor},
			EmitStatusInvocation{Status: StatusConnected},
		}, true
	case ReceiveFailure:
		if e.Reason.Cancelled {
			return nil, nil, false
		}
		return ReceiveReconnecting{Input: s.Input, Cursor: s.Cursor, Attempts: 1, Reason: e.Reason}, nil, true
	case Disconnect:
		return ReceiveStopped{Input: s.Input, Cursor: s.Cursor}, []Invocation{EmitStatusInvocation{Status: StatusDisconnected}}, true
	case UnsubscribeAll:
		return Unsubscribed{}, []Invocation{EmitStatusInvocation{Status: StatusDisconnected}}, true
	}
	return nil, nil, false
}

// ReceiveReconnecting retries the long-poll with a growing attempt
// counter, keeping the last known-good cursor.
type ReceiveReconnecting struct {
	Input    entity.Input
	Cursor   entity.Cursor
	Attempts int
	Reason   Reason
}

func (s ReceiveReconnecting) Enter() []Invocation {
	return []Invocation{ReceiveReconnectInvocation{Input: s.Input, Cursor: s.Cursor, Attempts: s.Attempts, Reason: s.Reason}}
}
func (ReceiveReconnecting) Exit() []Invocation {
	return []Invocation{CancelReceiveReconnectInvocation{}}
}

func (s ReceiveReconnecting) Transition(ev Event) (stateIface, []Invocation, bool) {
	switch e := ev.(type) {
	case SubscriptionChanged:
		return Receiving{Input: e.Input, Cursor: s.Cursor}, nil, true
	case SubscriptionRestored:
		return Receiving{Input: e.Input, Cursor: e.Cursor}, nil, true
	case ReceiveReconnectSuccess:
		cursor := entity.Advance(s.Cursor, e.Cursor)
		return Receiving{Input: s.Input, Cursor: cursor}, []Invocation{
			EmitMessagesInvocation{Messages: e.Messages, Cursor: cursor},
			EmitStatusInvocation{Status: StatusConnected},
		}, true
	case ReceiveReconnectFailure:
		if e.Reason.Cancelled {
			return nil, nil, false
		}
		return ReceiveReconnecting{Input: s.Input, Cursor: s.Cursor, Attempts: s.Attempts + 1, Reason: e.Reason}, nil, true
	case ReceiveReconnectGiveUp:
		return ReceiveFailed{Input: s.Input, Cursor: s.Cursor, Reason: e.Reason}, []Invocation{EmitStatusInvocation{Status: StatusDisconnected}}, true
	case Disconnect:
		return ReceiveStopped{Input: s.Input, Cursor: s.Cursor}, nil, true
	case UnsubscribeAll:
		return Unsubscribed{}, []Invocation{EmitStatusInvocation{Status: StatusDisconnected}}, true
	}
	return nil, nil, false
}

// ReceiveFailed is reached after the retry policy gives up on the
// long-poll loop.
type ReceiveFailed struct {
	Input  entity.Input
	Cursor entity.Cursor
	Reason Reason
}

func (ReceiveFailed) Enter() []Invocation { return nil }
func (ReceiveFailed) Exit() []Invocation  { return nil }

func (s ReceiveFailed) Transition(ev Event) (stateIface, []Invocation, bool) {
	switch e := ev.(type) {
	case SubscriptionChanged:
		return Receiving{Input: e.Input, Cursor: s.Cursor}, nil, true
	case SubscriptionRestored:
		return Receiving{Input: e.Input, Cursor: e.Cursor}, nil, true
	case Reconnect:
		return Receiving{Input: s.Input, Cursor: s.Cursor}, nil, true
	case UnsubscribeAll:
		return Unsubscribed{}, []Invocation{EmitStatusInvocation{Status: StatusDisconnected}}, true
	}
	return nil, nil, false
}

// ReceiveStopped is reached on an explicit Disconnect while receiving.
type ReceiveStopped struct {
	Input  entity.Input
	Cursor entity.Cursor
}

func (ReceiveStopped) Enter() []Invocation { return nil }
func (ReceiveStopped) Exit() []Invocation  { return nil }

func (s ReceiveStopped) Transition(ev Event) (stateIface, []Invocation, bool) {
	switch e := ev.(type) {
	case SubscriptionChanged:
		return ReceiveStopped{Input: e.Input, Cursor: s.Cursor}, nil, true
	case SubscriptionRestored:
		return ReceiveStopped{Input: e.Input, Cursor: e.Cursor}, nil, true
	case Reconnect:
		return Receiving{Input: s.Input, Cursor: s.Cursor}, nil, true
	case UnsubscribeAll:
		return Unsubscribed{}, []Invocation{EmitStatusInvocation{Status: StatusDisconnected}}, true
	}
	return nil, nil, false
}

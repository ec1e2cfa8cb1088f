package subscribe

import (
	"github.com/wavecast/wavecast-go/pkg/entity"
	"github.com/wavecast/wavecast-go/pkg/wire"
)

// Invocation is implemented by every subscribe state-machine
// invocation.
type Invocation interface{ isSubscribeInvocation() }

type HandshakeInvocation struct{ Input entity.Input }
type HandshakeReconnectInvocation struct {
	Input    entity.Input
	Attempts int
	Reason   Reason
}
type ReceiveInvocation struct {
	Input  entity.Input
	Cursor entity.Cursor
}
type ReceiveReconnectInvocation struct {
	Input    entity.Input
	Cursor   entity.Cursor
	Attempts int
	Reason   Reason
}
type CancelHandshakeInvocation struct{}
type CancelHandshakeReconnectInvocation struct{}
type CancelReceiveInvocation struct{}
type CancelReceiveReconnectInvocation struct{}
type EmitStatusInvocation struct{ Status Status }
type EmitMessagesInvocation struct {
	Messages []wire.Envelope
	Cursor   entity.Cursor
}

func (HandshakeInvocation) isSubscribeInvocation()               {}
func (HandshakeReconnectInvocation) isSubscribeInvocation()       {}
func (ReceiveInvocation) isSubscribeInvocation()                 {}
func (ReceiveReconnectInvocation) isSubscribeInvocation()        {}
func (CancelHandshakeInvocation) isSubscribeInvocation()         {}
func (CancelHandshakeReconnectInvocation) isSubscribeInvocation() {}
func (CancelReceiveInvocation) isSubscribeInvocation()           {}
func (CancelReceiveReconnectInvocation) isSubscribeInvocation()  {}
func (EmitStatusInvocation) isSubscribeInvocation()              {}
func (EmitMessagesInvocation) isSubscribeInvocation()            {}

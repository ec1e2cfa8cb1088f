package presence

import "github.com/wavecast/wavecast-go/pkg/entity"

// Invocation is implemented by every presence state-machine
// invocation.
type Invocation interface{ isPresenceInvocation() }

type HeartbeatInvocation struct{ Input entity.Input }
type DelayedHeartbeatInvocation struct {
	Input    entity.Input
	Attempts int
	Reason   Reason
}
type LeaveInvocation struct{ Input entity.Input }
type WaitInvocation struct {
	Input            entity.Input
	IntervalSeconds  int
}
type CancelDelayedHeartbeatInvocation struct{}
type CancelWaitInvocation struct{}

func (HeartbeatInvocation) isPresenceInvocation()             {}
func (DelayedHeartbeatInvocation) isPresenceInvocation()      {}
func (LeaveInvocation) isPresenceInvocation()                 {}
func (WaitInvocation) isPresenceInvocation()                  {}
func (CancelDelayedHeartbeatInvocation) isPresenceInvocation() {}
func (CancelWaitInvocation) isPresenceInvocation()            {}

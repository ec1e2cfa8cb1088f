package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavecast/wavecast-go/pkg/entity"
)

func input(channels ...string) entity.Input {
	return entity.NewInput(channels, nil)
}

func TestInactiveJoinedWithIntervalEntersHeartbeating(t *testing.T) {
	next, invs, ok := Inactive{}.Transition(Joined{HeartbeatIntervalSeconds: 10, Input: input("demo")})
	require.True(t, ok)
	assert.Nil(t, invs)
	hb := next.(Heartbeating)
	assert.Equal(t, 10, hb.IntervalSeconds)
}

func TestInactiveJoinedWithZeroIntervalIsNoOp(t *testing.T) {
	_, _, ok := Inactive{}.Transition(Joined{HeartbeatIntervalSeconds: 0, Input: input("demo")})
	assert.False(t, ok)
}

func TestInactiveJoinedWithEmptyInputIsNoOp(t *testing.T) {
	_, _, ok := Inactive{}.Transition(Joined{HeartbeatIntervalSeconds: 10, Input: entity.Input{}})
	assert.False(t, ok)
}

func TestHeartbeatingEntersIssuesHeartbeatInvocation(t *testing.T) {
	s := Heartbeating{Input: input("demo"), IntervalSeconds: 10}
	invs := s.Enter()
	require.Len(t, invs, 1)
	hi := invs[0].(HeartbeatInvocation)
	assert.Equal(t, input("demo"), hi.Input)
}

func TestHeartbeatingSuccessMovesToCooldown(t *testing.T) {
	s := Heartbeating{Input: input("demo"), IntervalSeconds: 10}
	next, invs, ok := s.Transition(HeartbeatSuccess{})
	require.True(t, ok)
	assert.Nil(t, invs)
	cd := next.(Cooldown)
	assert.Equal(t, 10, cd.IntervalSeconds)
}

func TestHeartbeatingFailureEntersReconnecting(t *testing.T) {
	s := Heartbeating{Input: input("demo"), IntervalSeconds: 10}
	next, _, ok := s.Transition(HeartbeatFailure{Reason: Reason{StatusCode: 500}})
	require.True(t, ok)
	rec := next.(Reconnecting)
	assert.Equal(t, 1, rec.Attempts)
}

func TestHeartbeatingCancelledFailureIsNoOp(t *testing.T) {
	s := Heartbeating{Input: input("demo"), IntervalSeconds: 10}
	_, _, ok := s.Transition(HeartbeatFailure{Reason: Reason{Cancelled: true}})
	assert.False(t, ok)
}

func TestHeartbeatingJoinedSameInputIsNoOp(t *testing.T) {
	s := Heartbeating{Input: input("demo"), IntervalSeconds: 10}
	_, _, ok := s.Transition(Joined{HeartbeatIntervalSeconds: 10, Input: input("demo")})
	assert.False(t, ok)
}

func TestHeartbeatingDisconnectEntersStopped(t *testing.T) {
	s := Heartbeating{Input: input("demo"), IntervalSeconds: 10}
	next, _, ok := s.Transition(Disconnect{})
	require.True(t, ok)
	stopped := next.(Stopped)
	assert.Equal(t, input("demo"), stopped.Input)
}

func TestHeartbeatingLeftPartialChannelStaysHeartbeating(t *testing.T) {
	s := Heartbeating{Input: input("demo", "demo2"), IntervalSeconds: 10}
	next, invs, ok := s.Transition(Left{Input: input("demo")})
	require.True(t, ok)
	hb := next.(Heartbeating)
	assert.Equal(t, input("demo2"), hb.Input)
	require.Len(t, invs, 1)
	leave := invs[0].(LeaveInvocation)
	assert.Equal(t, input("demo"), leave.Input)
}

func TestHeartbeatingLeftAllChannelsGoesInactive(t *testing.T) {
	s := Heartbeating{Input: input("demo"), IntervalSeconds: 10}
	next, invs, ok := s.Transition(Left{Input: input("demo")})
	require.True(t, ok)
	assert.Equal(t, Inactive{}, next)
	require.Len(t, invs, 1)
}

func TestHeartbeatingLeftSuppressedEmitsNoLeaveInvocation(t *testing.T) {
	s := Heartbeating{Input: input("demo", "demo2"), IntervalSeconds: 10}
	_, invs, ok := s.Transition(Left{Input: input("demo"), SuppressLeaveEvents: true})
	require.True(t, ok)
	assert.Nil(t, invs)
}

func TestHeartbeatingLeftAllEventRemovesEntireCurrentInput(t *testing.T) {
	s := Heartbeating{Input: input("demo", "demo2"), IntervalSeconds: 10}
	next, invs, ok := s.Transition(LeftAll{})
	require.True(t, ok)
	assert.Equal(t, Inactive{}, next)
	leave := invs[0].(LeaveInvocation)
	assert.ElementsMatch(t, []string{"demo", "demo2"}, leave.Input.Channels)
}

func TestCooldownTimesUpReturnsToHeartbeating(t *testing.T) {
	s := Cooldown{Input: input("demo"), IntervalSeconds: 10}
	next, _, ok := s.Transition(TimesUp{})
	require.True(t, ok)
	hb := next.(Heartbeating)
	assert.Equal(t, input("demo"), hb.Input)
}

func TestCooldownExitCancelsWait(t *testing.T) {
	assert.Equal(t, []Invocation{CancelWaitInvocation{}}, Cooldown{}.Exit())
}

func TestReconnectingGiveUpEntersFailed(t *testing.T) {
	s := Reconnecting{Input: input("demo"), IntervalSeconds: 10, Attempts: 4}
	next, _, ok := s.Transition(HeartbeatGiveUp{Reason: Reason{StatusCode: 500}})
	require.True(t, ok)
	failed := next.(Failed)
	assert.Equal(t, input("demo"), failed.Input)
}

func TestFailedReconnectResumesHeartbeating(t *testing.T) {
	s := Failed{Input: input("demo"), IntervalSeconds: 10}
	next, _, ok := s.Transition(Reconnect{})
	require.True(t, ok)
	assert.Equal(t, Heartbeating{Input: input("demo"), IntervalSeconds: 10}, next)
}

func TestStoppedReconnectResumesHeartbeating(t *testing.T) {
	s := Stopped{Input: input("demo"), IntervalSeconds: 10}
	next, _, ok := s.Transition(Reconnect{})
	require.True(t, ok)
	assert.Equal(t, Heartbeating{Input: input("demo"), IntervalSeconds: 10}, next)
}

func TestStoppedLeftAllSuppressesLeaveInvocationWhileStopped(t *testing.T) {
	s := Stopped{Input: input("demo"), IntervalSeconds: 10}
	next, invs, ok := s.Transition(LeftAll{})
	require.True(t, ok)
	assert.Equal(t, Inactive{}, next)
	assert.Nil(t, invs, "no Leave invocation should fire for a heartbeat loop that is already stopped")
}

func TestStoppedLeftPartialStaysStopped(t *testing.T) {
	s := Stopped{Input: input("demo", "demo2"), IntervalSeconds: 10}
	next, _, ok := s.Transition(Left{Input: input("demo")})
	require.True(t, ok)
	stopped := next.(Stopped)
	assert.Equal(t, input("demo2"), stopped.Input)
}

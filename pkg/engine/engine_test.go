package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A minimal two-state toy machine used to exercise the engine runtime
// independent of the subscribe/presence state machines: "idle" enters
// with no invocations, "running" enters with a managed "work"
// invocation that blocks until cancelled, and a "stop" event
// transitions back to idle (cancelling the managed effect).

type toyEvent struct {
	kind string
}

type toyInvocation struct {
	kind string
}

type idleState struct{}

func (idleState) Enter() []toyInvocation { return nil }
func (idleState) Exit() []toyInvocation  { return nil }
func (idleState) Transition(ev toyEvent) (State[toyEvent, toyInvocation], []toyInvocation, bool) {
	if ev.kind == "start" {
		return runningState{}, nil, true
	}
	return nil, nil, false
}

type runningState struct{}

func (runningState) Enter() []toyInvocation { return []toyInvocation{{kind: "work"}} }
func (runningState) Exit() []toyInvocation  { return []toyInvocation{{kind: "cancel-work"}} }
func (runningState) Transition(ev toyEvent) (State[toyEvent, toyInvocation], []toyInvocation, bool) {
	if ev.kind == "stop" {
		return idleState{}, nil, true
	}
	if ev.kind == "noop" {
		return nil, []toyInvocation{{kind: "emit"}}, false
	}
	return nil, nil, false
}

type toyHandler struct {
	mu  sync.Mutex
	ran []string
}

func (h *toyHandler) Kind(inv toyInvocation) string { return inv.kind }
func (h *toyHandler) IsManaged(inv toyInvocation) bool {
	return inv.kind == "work"
}
func (h *toyHandler) IsCancelling(inv toyInvocation) bool {
	return inv.kind == "cancel-work"
}
func (h *toyHandler) Run(ctx context.Context, inv toyInvocation) []toyEvent {
	h.mu.Lock()
	h.ran = append(h.ran, inv.kind)
	h.mu.Unlock()

	if inv.kind == "work" {
		<-ctx.Done()
		return nil
	}
	return nil
}

func (h *toyHandler) runCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.ran)
}

func TestEngineTransitionsAndRunsManagedEffect(t *testing.T) {
	h := &toyHandler{}
	e := New[toyEvent, toyInvocation](idleState{}, h, "toy")
	e.Start()
	defer e.Stop()

	e.Send(toyEvent{kind: "start"})
	require.Eventually(t, func() bool {
		_, ok := e.State().(runningState)
		return ok
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool { return h.runCount() >= 1 }, time.Second, time.Millisecond)
}

func TestEngineCancelsManagedEffectOnExit(t *testing.T) {
	h := &toyHandler{}
	e := New[toyEvent, toyInvocation](idleState{}, h, "toy")
	e.Start()
	defer e.Stop()

	e.Send(toyEvent{kind: "start"})
	require.Eventually(t, func() bool {
		_, ok := e.State().(runningState)
		return ok
	}, time.Second, time.Millisecond)

	e.Send(toyEvent{kind: "stop"})
	require.Eventually(t, func() bool {
		_, ok := e.State().(idleState)
		return ok
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		e.effMu.Lock()
		defer e.effMu.Unlock()
		_, running := e.managed["work"]
		return !running
	}, time.Second, time.Millisecond)
}

func TestEngineNoTransitionStillDispatchesInvocations(t *testing.T) {
	h := &toyHandler{}
	e := New[toyEvent, toyInvocation](idleState{}, h, "toy")
	e.Start()
	defer e.Stop()

	e.Send(toyEvent{kind: "start"})
	require.Eventually(t, func() bool {
		_, ok := e.State().(runningState)
		return ok
	}, time.Second, time.Millisecond)

	e.Send(toyEvent{kind: "noop"})
	require.Eventually(t, func() bool { return h.runCount() >= 2 }, time.Second, time.Millisecond)
}

func TestEngineOnInvocationObservesEveryDispatch(t *testing.T) {
	h := &toyHandler{}
	e := New[toyEvent, toyInvocation](idleState{}, h, "toy")

	var mu sync.Mutex
	var seen []string
	e.OnInvocation(func(inv toyInvocation) {
		mu.Lock()
		seen = append(seen, inv.kind)
		mu.Unlock()
	})
	e.Start()
	defer e.Stop()

	e.Send(toyEvent{kind: "start"})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 1
	}, time.Second, time.Millisecond)
}

func TestEngineStopIsIdempotent(t *testing.T) {
	h := &toyHandler{}
	e := New[toyEvent, toyInvocation](idleState{}, h, "toy")
	e.Start()
	e.Stop()
	assert.NotPanics(t, func() { e.Stop() })
}

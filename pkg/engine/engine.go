/*
Package engine implements the generic event-engine runtime described in
spec.md §4.B: a state holder that turns incoming events into a new
state plus a list of invocations, and a dispatcher that runs those
invocations as effects, feeding any events they produce back into the
loop.

It is grounded on the reconcile-loop shape of
cuemby/warren/pkg/reconciler (a ticking loop that reduces observed
state against desired state and logs each decision through a component
logger) generalized from a fixed 10-second tick into a
transition-driven loop that reacts to events as they arrive instead of
polling.
*/
package engine

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/wavecast/wavecast-go/pkg/log"
)

// State is implemented by every state in a state machine driven by an
// Engine. Enter/Exit produce the invocations that run on the way in
// and out of a state; Transition is the pure reducer.
type State[Event any, Invocation any] interface {
	// Enter returns the invocations to run immediately after this
	// state becomes current.
	Enter() []Invocation

	// Exit returns the invocations to run immediately before this
	// state stops being current (typically cancellations).
	Exit() []Invocation

	// Transition applies event to the state. A nil new-state return
	// (with ok=false) means the event produced no transition; the
	// invocations, if any, still run (used for terminal/no-op cases
	// spec.md calls out, e.g. a HandshakeFailure carrying
	// RequestCancel).
	Transition(event Event) (newState State[Event, Invocation], invocations []Invocation, ok bool)
}

// EffectHandler builds and runs the side effect for one invocation. It
// reports whether the invocation is "managed" (long-running,
// cancellable, tracked per Kind) and whether it is a cancelling
// invocation, which targets the managed effect of the same Kind.
type EffectHandler[Event any, Invocation any] interface {
	// Kind identifies the invocation for managed/cancel bookkeeping,
	// e.g. "handshake", "receive", "heartbeat", "wait".
	Kind(inv Invocation) string

	// IsManaged reports whether inv starts a long-running effect that
	// must be tracked by id so a later invocation can cancel it.
	IsManaged(inv Invocation) bool

	// IsCancelling reports whether inv cancels a previously started
	// managed effect of the same Kind.
	IsCancelling(inv Invocation) bool

	// Run executes inv and returns the events it produces. Run is
	// called with a context that is cancelled when a matching
	// cancelling invocation arrives (for managed effects) or when the
	// engine is stopped. Run must return promptly after ctx is done
	// and must produce no events in that case (spec.md: "a cancelled
	// effect must produce no events").
	Run(ctx context.Context, inv Invocation) []Event
}

// Engine drives one state machine: it holds the current state under a
// lock, applies events serially, and dispatches invocations to the
// configured EffectHandler. Managed effects run on their own goroutine
// and are cancelled by Kind; plain effects run synchronously from the
// dispatch goroutine and their resulting events are fed back in.
type Engine[Event any, Invocation any] struct {
	mu      sync.RWMutex
	state   State[Event, Invocation]
	handler EffectHandler[Event, Invocation]
	logger  zerologLogger

	effMu    sync.Mutex
	managed  map[string]managedEffect
	eventsCh chan Event
	wg       sync.WaitGroup

	stopOnce sync.Once
	stopCh   chan struct{}

	observe func(Invocation)
}

// managedEffect is what's tracked per Kind: the cancel func for the
// currently running managed effect of that kind, plus the id of the
// goroutine that registered it, so that goroutine's own cleanup only
// ever removes its own entry and never a later effect's that replaced
// it under the same kind.
type managedEffect struct {
	id     string
	cancel context.CancelFunc
}

// OnInvocation registers fn to be called, synchronously and in order,
// with every invocation the engine dispatches — including ones the
// configured EffectHandler treats as unmanaged no-ops (EmitStatus,
// EmitMessages). This is how a component above the engine (the
// subscription manager) observes "emit" invocations without having to
// be the EffectHandler itself. Must be called before Start.
func (e *Engine[Event, Invocation]) OnInvocation(fn func(Invocation)) {
	e.observe = fn
}

// zerologLogger is the minimal surface this package needs from
// pkg/log, kept as an unexported interface so engine stays importable
// without pulling zerolog's full type into its public API.
type zerologLogger interface {
	Debug(msg string, fields ...log.Field)
	Info(msg string, fields ...log.Field)
	Error(msg string, fields ...log.Field)
}

// New constructs an Engine in the given initial state. The engine is
// inert until Start is called.
func New[Event any, Invocation any](initial State[Event, Invocation], handler EffectHandler[Event, Invocation], component string) *Engine[Event, Invocation] {
	return &Engine[Event, Invocation]{
		state:    initial,
		handler:  handler,
		logger:   log.WithComponent(component),
		managed:  make(map[string]managedEffect),
		eventsCh: make(chan Event, 256),
		stopCh:   make(chan struct{}),
	}
}

// Start runs the initial state's Enter invocations and begins the
// dispatch loop on a background goroutine.
func (e *Engine[Event, Invocation]) Start() {
	e.mu.RLock()
	enter := e.state.Enter()
	e.mu.RUnlock()
	e.dispatchAll(enter)

	e.wg.Add(1)
	go e.loop()
}

// Send feeds an externally produced event (e.g. a user-initiated
// Disconnect/Reconnect/UnsubscribeAll) into the engine. Send never
// blocks indefinitely: the event channel is large and the loop drains
// it continuously, but Send respects Stop.
func (e *Engine[Event, Invocation]) Send(ev Event) {
	select {
	case e.eventsCh <- ev:
	case <-e.stopCh:
	}
}

// State returns the current state under a read lock, for tests and
// for components (like the subscription manager) that need to inspect
// it without racing a transition.
func (e *Engine[Event, Invocation]) State() State[Event, Invocation] {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Stop cancels every managed effect and halts the dispatch loop. Stop
// is idempotent and safe to call more than once.
func (e *Engine[Event, Invocation]) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
		e.effMu.Lock()
		for kind, eff := range e.managed {
			eff.cancel()
			delete(e.managed, kind)
		}
		e.effMu.Unlock()
	})
	e.wg.Wait()
}

func (e *Engine[Event, Invocation]) loop() {
	defer e.wg.Done()
	for {
		select {
		case ev := <-e.eventsCh:
			e.apply(ev)
		case <-e.stopCh:
			return
		}
	}
}

// apply performs exactly one transition: a read lock is held only
// while Transition runs (pure, no side effects); if it produces a new
// state the lock is upgraded to a write lock and the state is swapped
// atomically, matching spec.md §4.B's locking discipline.
func (e *Engine[Event, Invocation]) apply(ev Event) {
	e.mu.RLock()
	current := e.state
	newState, userInv, ok := current.Transition(ev)
	e.mu.RUnlock()

	if !ok {
		// No transition, but user invocations (if any) still run —
		// this is how spec.md's RequestCancel no-ops are expressed.
		e.dispatchAll(userInv)
		return
	}

	e.mu.Lock()
	oldState := e.state
	e.state = newState
	e.mu.Unlock()

	var invocations []Invocation
	invocations = append(invocations, oldState.Exit()...)
	invocations = append(invocations, userInv...)
	invocations = append(invocations, newState.Enter()...)
	e.dispatchAll(invocations)
}

func (e *Engine[Event, Invocation]) dispatchAll(invocations []Invocation) {
	for _, inv := range invocations {
		e.dispatch(inv)
	}
}

func (e *Engine[Event, Invocation]) dispatch(inv Invocation) {
	if e.observe != nil {
		e.observe(inv)
	}

	kind := e.handler.Kind(inv)

	if e.handler.IsCancelling(inv) {
		e.effMu.Lock()
		if eff, ok := e.managed[kind]; ok {
			eff.cancel()
			delete(e.managed, kind)
		}
		e.effMu.Unlock()
		return
	}

	if e.handler.IsManaged(inv) {
		ctx, cancel := context.WithCancel(context.Background())
		id := kind + "-" + uuid.NewString()
		e.effMu.Lock()
		e.managed[kind] = managedEffect{id: id, cancel: cancel}
		e.effMu.Unlock()

		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			defer func() {
				e.effMu.Lock()
				if eff, ok := e.managed[kind]; ok && eff.id == id {
					delete(e.managed, kind)
				}
				e.effMu.Unlock()
				cancel()
			}()
			events := e.handler.Run(ctx, inv)
			for _, ev := range events {
				e.Send(ev)
			}
		}()
		return
	}

	// Plain, synchronous invocation: run inline and feed results back.
	events := e.handler.Run(context.Background(), inv)
	for _, ev := range events {
		e.Send(ev)
	}
}

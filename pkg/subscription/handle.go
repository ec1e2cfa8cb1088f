/*
Package subscription implements the user-facing Subscription and
SubscriptionSet handles (spec.md §4.G): register with a subscription
manager, expose typed listener streams via pkg/dispatcher, and support
cloning with independent or shared listener lists.

Go has no destructor equivalent to a Rust `Drop` impl, so "drop of the
last clone unregisters" (spec.md §3/§9) is modeled explicitly: callers
must call Close on every clone they stop using (the idiomatic Go
analogue of RAII — see io.Closer), and the last Close triggers
unregistration from the manager. This is recorded as an Open Question
resolution in DESIGN.md.

It is grounded on the clone/weak-reference design note in spec.md §9
directly; no teacher file has an analogous handle-cloning concept, so
the shared-state/outer-clone split follows the spec's own two-level
structure description.
*/
package subscription

import (
	"sync"
	"sync/atomic"
	"weak"

	"github.com/wavecast/wavecast-go/pkg/dispatcher"
	"github.com/wavecast/wavecast-go/pkg/entity"
)

// Handle is implemented by both Subscription and SubscriptionSet; the
// manager only ever deals in this interface.
type Handle interface {
	ID() string
	SubscriptionInput(includeInactive bool) entity.Input
	Cursor() (entity.Cursor, bool)
	Dispatcher() *dispatcher.Dispatcher
}

// Registrar is the subset of the subscription manager's API a handle
// needs. Declaring it here (rather than importing pkg/manager) avoids
// a Subscription<->Manager import cycle: pkg/manager imports
// pkg/subscription for Handle, and *manager.Manager structurally
// satisfies Registrar.
type Registrar interface {
	Register(h Handle, catchUp *entity.Cursor)
	Unregister(h Handle)
	PropagateInputChange(h Handle)
}

var nextHandleID int64

func newHandleID() string {
	n := atomic.AddInt64(&nextHandleID, 1)
	return "handle-" + itoa(n)
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	buf := make([]byte, 0, 20)
	for n > 0 {
		buf = append([]byte{byte('0' + n%10)}, buf...)
		n /= 10
	}
	return string(buf)
}

// sharedState is the inner, reference-counted object a Subscription's
// clones all point to: the manager registration, the cursor, and the
// clone table.
type sharedState struct {
	mu           sync.RWMutex
	registrar    Registrar
	entity       *entity.Entity
	input        entity.Input
	isSubscribed bool
	cursor       entity.Cursor
	hasCursor    bool

	clonesMu  sync.Mutex
	clones    map[int64]weak.Pointer[Subscription]
	nextClone int64
	liveCount int32

	dispatchMu  sync.Mutex
	dispatchRef map[*dispatcher.Dispatcher]int
}

// Subscription is a single-entity handle (spec.md §3).
type Subscription struct {
	id        string
	cloneID   int64
	state     *sharedState
	dispatch  *dispatcher.Dispatcher
	closeOnce sync.Once
}

// New constructs a Subscription bound to ent, registered through
// registrar.
func New(registrar Registrar, ent *entity.Entity, channels, groups []string) *Subscription {
	st := &sharedState{
		registrar:   registrar,
		entity:      ent,
		input:       entity.NewInput(channels, groups),
		clones:      make(map[int64]weak.Pointer[Subscription]),
		dispatchRef: make(map[*dispatcher.Dispatcher]int),
	}
	sub := &Subscription{id: newHandleID(), state: st, dispatch: dispatcher.New()}
	st.registerClone(sub)
	return sub
}

func (st *sharedState) registerClone(s *Subscription) {
	st.clonesMu.Lock()
	st.nextClone++
	s.cloneID = st.nextClone
	st.clones[s.cloneID] = weak.Make(s)
	st.liveCount++
	st.clonesMu.Unlock()

	st.dispatchMu.Lock()
	st.dispatchRef[s.dispatch]++
	st.dispatchMu.Unlock()
}

// ID implements Handle.
func (s *Subscription) ID() string { return s.id }

// SubscriptionInput implements Handle. includeInactive controls
// whether an un-subscribed handle's input still counts toward the
// manager's aggregate (the manager always calls with false, per
// spec.md §4.F step 1; includeInactive exists for diagnostics/tests).
func (s *Subscription) SubscriptionInput(includeInactive bool) entity.Input {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	if !includeInactive && !s.state.isSubscribed {
		return entity.Input{}
	}
	return s.state.input
}

// Cursor implements Handle.
func (s *Subscription) Cursor() (entity.Cursor, bool) {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	return s.state.cursor, s.state.hasCursor
}

// Dispatcher implements Handle, per spec.md §4.G's clone() vs
// clone_empty() distinction: New and CloneEmpty both allocate a fresh
// dispatcher; Clone shares the caller's.
func (s *Subscription) Dispatcher() *dispatcher.Dispatcher { return s.dispatch }

// Subscribe activates the handle: idempotent, increments the entity's
// ref-count, and registers the shared state with the manager.
func (s *Subscription) Subscribe() {
	s.state.mu.Lock()
	already := s.state.isSubscribed
	if !already {
		s.state.isSubscribed = true
	}
	s.state.mu.Unlock()
	if already {
		return
	}
	s.state.entity.Retain()
	s.state.registrar.Register(s, nil)
}

// SubscribeWithTimetoken activates the handle and supplies a catch-up
// cursor; if a cursor is already present the larger one wins.
func (s *Subscription) SubscribeWithTimetoken(cursor entity.Cursor) {
	s.state.mu.Lock()
	wasSubscribed := s.state.isSubscribed
	if s.state.hasCursor {
		s.state.cursor = entity.Advance(s.state.cursor, cursor)
	} else {
		s.state.cursor = cursor
		s.state.hasCursor = true
	}
	s.state.isSubscribed = true
	effective := s.state.cursor
	s.state.mu.Unlock()

	if !wasSubscribed {
		s.state.entity.Retain()
	}
	s.state.registrar.Register(s, &effective)
}

// Unsubscribe deactivates the handle and unregisters from the
// manager, which may then terminate the underlying engine.
func (s *Subscription) Unsubscribe() {
	s.state.mu.Lock()
	was := s.state.isSubscribed
	s.state.isSubscribed = false
	s.state.mu.Unlock()
	if !was {
		return
	}
	s.state.entity.Release()
	s.state.registrar.Unregister(s)
}

// Clone returns a new outer handle sharing this Subscription's
// dispatcher (listeners preserved) and shared state.
func (s *Subscription) Clone() *Subscription {
	clone := &Subscription{id: newHandleID(), state: s.state, dispatch: s.dispatch}
	s.state.registerClone(clone)
	return clone
}

// CloneEmpty returns a new outer handle sharing this Subscription's
// shared state but with its own, empty dispatcher.
func (s *Subscription) CloneEmpty() *Subscription {
	clone := &Subscription{id: newHandleID(), state: s.state, dispatch: dispatcher.New()}
	s.state.registerClone(clone)
	return clone
}

// LiveClones returns the handles currently alive for this
// Subscription's shared state, resolving the weak-reference table.
func (s *Subscription) LiveClones() []*Subscription {
	s.state.clonesMu.Lock()
	defer s.state.clonesMu.Unlock()
	live := make([]*Subscription, 0, len(s.state.clones))
	for id, wp := range s.state.clones {
		if ptr := wp.Value(); ptr != nil {
			live = append(live, ptr)
		} else {
			delete(s.state.clones, id)
		}
	}
	return live
}

// Close releases this clone. A clone created by Clone shares its
// dispatcher with siblings, so the dispatcher is only invalidated once
// every clone holding it has closed; the last Close against the shared
// state as a whole unsubscribes and unregisters it from the manager —
// the explicit analogue of "drop of the last clone" (spec.md §3).
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		st := s.state

		st.dispatchMu.Lock()
		st.dispatchRef[s.dispatch]--
		lastRef := st.dispatchRef[s.dispatch] <= 0
		if lastRef {
			delete(st.dispatchRef, s.dispatch)
		}
		st.dispatchMu.Unlock()
		if lastRef {
			s.dispatch.Invalidate()
		}

		st.clonesMu.Lock()
		delete(st.clones, s.cloneID)
		st.liveCount--
		last := st.liveCount <= 0
		st.clonesMu.Unlock()

		if last {
			s.Unsubscribe()
		}
	})
}

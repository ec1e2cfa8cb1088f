package subscription

import (
	"sync"

	"github.com/wavecast/wavecast-go/pkg/dispatcher"
	"github.com/wavecast/wavecast-go/pkg/entity"
)

// SubscriptionSet is a handle over a dynamic collection of
// subscriptions, supporting Add/Remove (and the +=/-= operator
// equivalents spec.md §4.G names) without tearing down and rebuilding
// the underlying manager registration on every membership change.
type SubscriptionSet struct {
	id        string
	registrar Registrar
	dispatch  *dispatcher.Dispatcher

	mu      sync.RWMutex
	members map[string]*Subscription
}

// NewSet builds an empty SubscriptionSet.
func NewSet(registrar Registrar) *SubscriptionSet {
	return &SubscriptionSet{id: newHandleID(), registrar: registrar, dispatch: dispatcher.New(), members: make(map[string]*Subscription)}
}

// ID implements Handle.
func (s *SubscriptionSet) ID() string { return s.id }

// Dispatcher implements Handle.
func (s *SubscriptionSet) Dispatcher() *dispatcher.Dispatcher { return s.dispatch }

// SubscriptionInput implements Handle: the union of every member's
// input, per spec.md §4.G's "a set's subscription_input is the union
// over its members."
func (s *SubscriptionSet) SubscriptionInput(includeInactive bool) entity.Input {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agg := entity.Input{}
	for _, m := range s.members {
		agg = agg.Union(m.SubscriptionInput(includeInactive))
	}
	return agg
}

// Cursor implements Handle: the set has no cursor of its own to offer
// a catch-up subscribe with (members may be at different cursors), so
// it always reports absent.
func (s *SubscriptionSet) Cursor() (entity.Cursor, bool) {
	return entity.Cursor{}, false
}

// Add inserts sub as a member, registering the combined input with the
// manager if the set is already subscribed.
func (s *SubscriptionSet) Add(sub *Subscription) {
	s.mu.Lock()
	s.members[sub.id] = sub
	s.mu.Unlock()
	s.registrar.PropagateInputChange(s)
}

// Remove drops sub from the set.
func (s *SubscriptionSet) Remove(sub *Subscription) {
	s.mu.Lock()
	delete(s.members, sub.id)
	s.mu.Unlock()
	s.registrar.PropagateInputChange(s)
}

// Members returns a snapshot of the set's current membership.
func (s *SubscriptionSet) Members() []*Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Subscription, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	return out
}

// Subscribe activates every member and registers the set's combined
// input with the manager.
func (s *SubscriptionSet) Subscribe() {
	for _, m := range s.Members() {
		m.Subscribe()
	}
	s.registrar.Register(s, nil)
}

// Unsubscribe deactivates every member and unregisters the set.
func (s *SubscriptionSet) Unsubscribe() {
	for _, m := range s.Members() {
		m.Unsubscribe()
	}
	s.registrar.Unregister(s)
}

// Close invalidates the set's own dispatcher. It does not close member
// Subscriptions, which may be shared with other handles.
func (s *SubscriptionSet) Close() {
	s.dispatch.Invalidate()
	s.registrar.Unregister(s)
}

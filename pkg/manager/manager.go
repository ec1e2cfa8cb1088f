/*
Package manager implements the subscription manager (spec.md §4.F): it
tracks every registered Subscription/SubscriptionSet handle, computes
their aggregate channel/channel-group input, drives the subscribe and
presence engines on every change, and fans the engines' emitted status
and message effects back out to the handles that asked for them.

It is grounded on cuemby-warren/pkg/manager.Manager's shape — a single
struct holding every subsystem the node needs (store, event broker,
token manager, DNS, ingress), built by one constructor and torn down by
one Bootstrap/Shutdown pair — generalized from a cluster-coordination
node into a client-side aggregator of subscribe/presence engines and
handle registrations. The handler-table locking discipline (a single
RWMutex, write path only on register/unregister/input-change, callbacks
never called while holding the lock) follows spec.md §5 directly.
*/
package manager

import (
	"context"
	"strings"
	"sync"

	"github.com/wavecast/wavecast-go/pkg/crypto"
	"github.com/wavecast/wavecast-go/pkg/dispatcher"
	"github.com/wavecast/wavecast-go/pkg/engine"
	"github.com/wavecast/wavecast-go/pkg/entity"
	"github.com/wavecast/wavecast-go/pkg/log"
	"github.com/wavecast/wavecast-go/pkg/presence"
	"github.com/wavecast/wavecast-go/pkg/subscribe"
	"github.com/wavecast/wavecast-go/pkg/subscription"
	"github.com/wavecast/wavecast-go/pkg/wire"
)

type subscribeEngine = engine.Engine[subscribe.Event, subscribe.Invocation]
type presenceEngine = engine.Engine[presence.Event, presence.Invocation]

// Manager implements subscription.Registrar.
type Manager struct {
	subscribeExecutor *subscribe.Executor
	presenceExecutor  *presence.Executor
	crypto            *crypto.Module
	heartbeatSeconds  int
	logger            log.Logger

	mu        sync.RWMutex
	handlers  map[string]subscription.Handle
	aggregate entity.Input

	engineMu      sync.Mutex
	subEngine     *subscribeEngine
	presEngine    *presenceEngine
	engineStopped bool
}

// New builds a Manager. heartbeatSeconds is forwarded to every Joined
// event sent to the presence engine. With 0 no Joined or Left is sent
// at all: each join or leave instead fires a single one-shot heartbeat
// or leave request through the presence executor.
func New(subscribeExecutor *subscribe.Executor, presenceExecutor *presence.Executor, cryptoModule *crypto.Module, heartbeatSeconds int) *Manager {
	return &Manager{
		subscribeExecutor: subscribeExecutor,
		presenceExecutor:  presenceExecutor,
		crypto:            cryptoModule,
		heartbeatSeconds:  heartbeatSeconds,
		handlers:          make(map[string]subscription.Handle),
		logger:            log.WithComponent("subscription-manager"),
	}
}

// Register implements subscription.Registrar.
func (m *Manager) Register(h subscription.Handle, catchUp *entity.Cursor) {
	m.mu.Lock()
	m.handlers[h.ID()] = h
	m.mu.Unlock()
	m.recompute(catchUp)
}

// Unregister implements subscription.Registrar.
func (m *Manager) Unregister(h subscription.Handle) {
	m.mu.Lock()
	delete(m.handlers, h.ID())
	m.mu.Unlock()
	m.recompute(nil)
}

// PropagateInputChange implements subscription.Registrar: called when
// a SubscriptionSet's membership changes without a register/unregister
// of the set itself.
func (m *Manager) PropagateInputChange(h subscription.Handle) {
	m.recompute(nil)
}

// recompute implements spec.md §4.F steps 1-5.
func (m *Manager) recompute(catchUp *entity.Cursor) {
	m.mu.Lock()
	newAgg := entity.Input{}
	for _, h := range m.handlers {
		newAgg = newAgg.Union(h.SubscriptionInput(false))
	}
	old := m.aggregate
	m.aggregate = newAgg
	m.mu.Unlock()

	joined := newAgg.Difference(old)
	left := old.Difference(newAgg)

	if !newAgg.IsEmpty() {
		m.ensureEngines()
		if catchUp != nil {
			m.subEngine.Send(subscribe.SubscriptionRestored{Input: newAgg, Cursor: *catchUp})
		} else {
			m.subEngine.Send(subscribe.SubscriptionChanged{Input: newAgg})
		}
	} else if m.subEngine != nil {
		m.subEngine.Send(subscribe.UnsubscribeAll{})
	}

	if !joined.IsEmpty() {
		if filtered := excludePresenceChannels(joined); !filtered.IsEmpty() {
			if m.heartbeatSeconds == 0 {
				// spec.md §9 "State with heartbeat": no heartbeat engine
				// runs without a configured interval, so fall back to a
				// single fire-and-forget heartbeat request.
				go m.presenceExecutor.OneShotHeartbeat(context.Background(), filtered)
			} else {
				m.ensureEngines()
				m.presEngine.Send(presence.Joined{Input: excludePresenceChannels(newAgg), HeartbeatIntervalSeconds: m.heartbeatSeconds})
			}
		}
	}
	if !left.IsEmpty() {
		if filtered := excludePresenceChannels(left); !filtered.IsEmpty() {
			if m.heartbeatSeconds == 0 {
				go m.presenceExecutor.OneShotLeave(context.Background(), filtered)
			} else if m.presEngine != nil {
				m.presEngine.Send(presence.Left{Input: filtered})
			}
		}
	}

	// Termination flows only through broadcastStatus's
	// Disconnected-with-zero-handlers path, once the subscribe engine
	// actually finishes processing UnsubscribeAll above. A direct
	// terminateEngines call here would race that in-flight event and
	// could tear the engine down before it ever emits the Disconnected
	// status scenario 2/3 require.
}

// excludePresenceChannels drops any channel ending in "-pnpres" from
// the heartbeat/leave hooks' input, per spec.md §4.F step 5: a handle
// bound directly to a presence channel should not itself trigger a
// heartbeat for that channel.
func excludePresenceChannels(in entity.Input) entity.Input {
	channels := make([]string, 0, len(in.Channels))
	for _, c := range in.Channels {
		if !strings.HasSuffix(c, "-pnpres") {
			channels = append(channels, c)
		}
	}
	return entity.NewInput(channels, in.ChannelGroups)
}

func (m *Manager) ensureEngines() {
	m.engineMu.Lock()
	defer m.engineMu.Unlock()
	if m.subEngine == nil {
		m.subEngine = engine.New[subscribe.Event, subscribe.Invocation](subscribe.Unsubscribed{}, m.subscribeExecutor, "subscribe-engine")
		m.subEngine.OnInvocation(m.observeSubscribeInvocation)
		m.subEngine.Start()
	}
	if m.presEngine == nil {
		m.presEngine = engine.New[presence.Event, presence.Invocation](presence.Inactive{}, m.presenceExecutor, "presence-engine")
		m.presEngine.Start()
	}
	m.engineStopped = false
}

func (m *Manager) terminateEngines() {
	m.engineMu.Lock()
	sub, pres := m.subEngine, m.presEngine
	m.subEngine, m.presEngine = nil, nil
	m.engineStopped = true
	m.engineMu.Unlock()

	if sub != nil {
		sub.Stop()
	}
	if pres != nil {
		pres.Stop()
	}
}

// observeSubscribeInvocation implements spec.md §4.F's EmitStatus/
// EmitMessages handling, wired through engine.Engine.OnInvocation so it
// runs for every invocation the subscribe engine dispatches without
// the manager having to be its EffectHandler.
func (m *Manager) observeSubscribeInvocation(inv subscribe.Invocation) {
	switch v := inv.(type) {
	case subscribe.EmitStatusInvocation:
		m.broadcastStatus(v.Status)
	case subscribe.EmitMessagesInvocation:
		m.routeMessages(v.Messages, v.Cursor)
	}
}

func (m *Manager) broadcastStatus(status subscribe.Status) {
	handlers := m.snapshotHandlers()
	for _, h := range handlers {
		h.Dispatcher().DispatchStatus(dispatcher.Status{Category: status.String()})
	}
	if status == subscribe.StatusDisconnected && len(handlers) == 0 {
		// broadcastStatus runs synchronously on the subscribe engine's
		// own dispatch loop goroutine (it is invoked from
		// observeSubscribeInvocation, registered via OnInvocation).
		// terminateEngines calls Engine.Stop, which waits for that very
		// loop goroutine to exit; calling it inline here would self-join
		// and hang the loop forever. Terminate from a separate
		// goroutine instead.
		go m.terminateEngines()
	}
}

func (m *Manager) routeMessages(envelopes []wire.Envelope, cursor entity.Cursor) {
	handlers := m.snapshotHandlers()
	for _, env := range envelopes {
		update, ok := translateEnvelope(env, m.crypto)
		if !ok {
			continue
		}
		published := entity.Cursor{Timetoken: env.PublishedCursor.Timetoken, Region: env.PublishedCursor.Region}
		for _, h := range handlers {
			if !subscriptionNameMatches(h.SubscriptionInput(false), env) {
				continue
			}
			if hc, has := h.Cursor(); has && !published.AtLeast(hc) {
				continue
			}
			h.Dispatcher().Dispatch(update)
		}
	}
}

func (m *Manager) snapshotHandlers() []subscription.Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]subscription.Handle, 0, len(m.handlers))
	for _, h := range m.handlers {
		out = append(out, h)
	}
	return out
}

// ActiveHandleCount implements metrics.Poller.
func (m *Manager) ActiveHandleCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers)
}

// AggregateEntityCount implements metrics.Poller.
func (m *Manager) AggregateEntityCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.aggregate.Channels) + len(m.aggregate.ChannelGroups)
}

// Disconnect sends an explicit Disconnect to both engines, stopping
// long-running effects without unregistering any handle.
func (m *Manager) Disconnect() {
	m.engineMu.Lock()
	sub, pres := m.subEngine, m.presEngine
	m.engineMu.Unlock()
	if sub != nil {
		sub.Send(subscribe.Disconnect{})
	}
	if pres != nil {
		pres.Send(presence.Disconnect{})
	}
}

// Reconnect sends an explicit Reconnect to both engines.
func (m *Manager) Reconnect() {
	m.engineMu.Lock()
	sub, pres := m.subEngine, m.presEngine
	m.engineMu.Unlock()
	if sub != nil {
		sub.Send(subscribe.Reconnect{})
	}
	if pres != nil {
		pres.Send(presence.Reconnect{})
	}
}

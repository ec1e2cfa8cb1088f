package manager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavecast/wavecast-go/pkg/dispatcher"
	"github.com/wavecast/wavecast-go/pkg/entity"
	"github.com/wavecast/wavecast-go/pkg/presence"
	"github.com/wavecast/wavecast-go/pkg/retry"
	"github.com/wavecast/wavecast-go/pkg/subscribe"
	"github.com/wavecast/wavecast-go/pkg/transport"
	"github.com/wavecast/wavecast-go/pkg/wire"
)

func wireEnvelope(channel, jsonPayload string) []wire.Envelope {
	return []wire.Envelope{{
		Channel:         channel,
		Payload:         []byte(jsonPayload),
		PublishedCursor: wire.SubscribeCursor{Timetoken: "2"},
	}}
}

// blockingTransport answers its first call immediately with body,
// whatever the path, then blocks every subsequent call until its context is
// cancelled, simulating a long-poll receive loop that only ends when
// the manager tears the engine down.
type blockingTransport struct {
	calls int
	body  []byte
}

func (b *blockingTransport) Send(ctx context.Context, _ transport.Request) (transport.Response, error) {
	b.calls++
	if b.calls == 1 {
		return transport.Response{Status: 200, Body: b.body}, nil
	}
	<-ctx.Done()
	return transport.Response{}, ctx.Err()
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	subTransport := &blockingTransport{body: []byte(`{"t":{"t":"1","r":0},"m":[]}`)}
	presTransport := &blockingTransport{body: []byte(`{}`)}
	subExecutor := subscribe.NewExecutor(subTransport, "sub-key", retry.None{})
	presExecutor := presence.NewExecutor(presTransport, "sub-key", "user-1", retry.None{})
	return New(subExecutor, presExecutor, nil, 0)
}

type fakeHandle struct {
	id     string
	input  entity.Input
	cursor entity.Cursor
	has    bool
	disp   *dispatcher.Dispatcher
}

func (f *fakeHandle) ID() string                                       { return f.id }
func (f *fakeHandle) SubscriptionInput(includeInactive bool) entity.Input { return f.input }
func (f *fakeHandle) Cursor() (entity.Cursor, bool)                    { return f.cursor, f.has }
func (f *fakeHandle) Dispatcher() *dispatcher.Dispatcher               { return f.disp }

func newFakeHandle(id string, channels []string) *fakeHandle {
	return &fakeHandle{id: id, input: entity.NewInput(channels, nil), disp: dispatcher.New()}
}

func TestRegisterStartsEnginesAndTracksHandler(t *testing.T) {
	m := newTestManager(t)
	h := newFakeHandle("h1", []string{"demo"})

	m.Register(h, nil)
	defer m.terminateEngines()

	assert.Equal(t, 1, m.ActiveHandleCount())
	assert.Equal(t, 1, m.AggregateEntityCount())
	assert.NotNil(t, m.subEngine)
	assert.NotNil(t, m.presEngine)
}

func TestUnregisterLastHandlerTerminatesEngines(t *testing.T) {
	m := newTestManager(t)
	h := newFakeHandle("h1", []string{"demo"})

	m.Register(h, nil)
	require.NotNil(t, m.subEngine)

	m.Unregister(h)
	assert.Equal(t, 0, m.ActiveHandleCount())
	// Termination runs on its own goroutine once the subscribe engine has
	// processed UnsubscribeAll and emitted Disconnected.
	require.Eventually(t, func() bool {
		m.engineMu.Lock()
		defer m.engineMu.Unlock()
		return m.subEngine == nil
	}, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		m.engineMu.Lock()
		defer m.engineMu.Unlock()
		return m.presEngine == nil
	}, time.Second, time.Millisecond)
}

func TestExcludePresenceChannelsDropsPnpresSuffix(t *testing.T) {
	in := entity.NewInput([]string{"demo", "demo-pnpres"}, nil)
	filtered := excludePresenceChannels(in)
	assert.Equal(t, []string{"demo"}, filtered.Channels)
}

func TestBroadcastStatusDeliversToEveryHandlerDispatcher(t *testing.T) {
	m := newTestManager(t)
	h1 := newFakeHandle("h1", []string{"demo"})
	h2 := newFakeHandle("h2", []string{"demo2"})
	m.Register(h1, nil)
	m.Register(h2, nil)
	defer m.terminateEngines()

	stream1 := h1.disp.Statuses()
	stream2 := h2.disp.Statuses()

	m.broadcastStatus(subscribe.StatusConnected)

	got1 := <-stream1.C()
	got2 := <-stream2.C()
	assert.Equal(t, subscribe.StatusConnected.String(), got1.Category)
	assert.Equal(t, subscribe.StatusConnected.String(), got2.Category)
}

func TestBroadcastStatusTerminatesEnginesWhenDisconnectedWithNoHandlers(t *testing.T) {
	m := newTestManager(t)
	h := newFakeHandle("h1", []string{"demo"})
	m.Register(h, nil)
	m.Unregister(h)
	require.Eventually(t, func() bool {
		m.engineMu.Lock()
		defer m.engineMu.Unlock()
		return m.subEngine == nil
	}, time.Second, time.Millisecond)

	m.ensureEngines()
	require.NotNil(t, m.subEngine)

	m.broadcastStatus(subscribe.StatusDisconnected)
	// terminateEngines runs on its own goroutine (broadcastStatus must
	// not self-join the engine's own loop goroutine), so the engine
	// fields clear asynchronously.
	require.Eventually(t, func() bool {
		m.engineMu.Lock()
		defer m.engineMu.Unlock()
		return m.subEngine == nil
	}, time.Second, time.Millisecond)
}

func TestRouteMessagesDeliversOnlyToMatchingSubscribers(t *testing.T) {
	m := newTestManager(t)
	h1 := newFakeHandle("h1", []string{"demo"})
	h2 := newFakeHandle("h2", []string{"other"})
	m.Register(h1, nil)
	m.Register(h2, nil)
	defer m.terminateEngines()

	msgs1 := h1.disp.Messages()
	msgs2 := h2.disp.Messages()

	env := wireEnvelope("demo", `"hello"`)
	m.routeMessages(env, entity.Cursor{Timetoken: "1"})

	select {
	case got := <-msgs1.C():
		assert.Equal(t, "demo", got.Channel)
	case <-time.After(time.Second):
		t.Fatal("expected message on h1's stream")
	}

	select {
	case <-msgs2.C():
		t.Fatal("h2 should not receive a message for a channel it is not subscribed to")
	default:
	}
}

func TestRouteMessagesSkipsStaleCursor(t *testing.T) {
	m := newTestManager(t)
	h := newFakeHandle("h1", []string{"demo"})
	h.cursor = entity.Cursor{Timetoken: "100"}
	h.has = true
	m.Register(h, nil)
	defer m.terminateEngines()

	msgs := h.disp.Messages()

	env := wireEnvelope("demo", `"stale"`)
	m.routeMessages(env, entity.Cursor{Timetoken: "1"})

	select {
	case <-msgs.C():
		t.Fatal("a message published before the handle's stored cursor should be skipped")
	default:
	}
}

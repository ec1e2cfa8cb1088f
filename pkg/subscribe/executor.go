package subscribe

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wavecast/wavecast-go/pkg/entity"
	wavecasterrors "github.com/wavecast/wavecast-go/pkg/errors"
	"github.com/wavecast/wavecast-go/pkg/log"
	"github.com/wavecast/wavecast-go/pkg/metrics"
	"github.com/wavecast/wavecast-go/pkg/retry"
	"github.com/wavecast/wavecast-go/pkg/transport"
	"github.com/wavecast/wavecast-go/pkg/wire"
)

// Executor performs the transport calls the subscribe state machine's
// invocations describe (spec.md §4.E's Subscribe executor) and
// implements engine.EffectHandler[Event, Invocation].
type Executor struct {
	Transport        transport.Transport
	SubscribeKey     string
	FilterExpression string
	HeartbeatSeconds int
	PresenceState    map[string]any
	Policy           retry.Policy
	Logger           log.Logger
}

// NewExecutor builds an Executor with a component-scoped logger.
func NewExecutor(t transport.Transport, subscribeKey string, policy retry.Policy) *Executor {
	return &Executor{Transport: t, SubscribeKey: subscribeKey, Policy: policy, Logger: log.WithComponent("subscribe-executor")}
}

// Kind implements engine.EffectHandler.
func (ex *Executor) Kind(inv Invocation) string {
	switch inv.(type) {
	case HandshakeInvocation, CancelHandshakeInvocation:
		return "handshake"
	case HandshakeReconnectInvocation, CancelHandshakeReconnectInvocation:
		return "handshake-reconnect"
	case ReceiveInvocation, CancelReceiveInvocation:
		return "receive"
	case ReceiveReconnectInvocation, CancelReceiveReconnectInvocation:
		return "receive-reconnect"
	default:
		return "other"
	}
}

// IsManaged implements engine.EffectHandler: the four long-poll/retry
// invocations are long-running and cancellable; EmitStatus/EmitMessages
// are not.
func (ex *Executor) IsManaged(inv Invocation) bool {
	switch inv.(type) {
	case HandshakeInvocation, HandshakeReconnectInvocation, ReceiveInvocation, ReceiveReconnectInvocation:
		return true
	default:
		return false
	}
}

// IsCancelling implements engine.EffectHandler.
func (ex *Executor) IsCancelling(inv Invocation) bool {
	switch inv.(type) {
	case CancelHandshakeInvocation, CancelHandshakeReconnectInvocation, CancelReceiveInvocation, CancelReceiveReconnectInvocation:
		return true
	default:
		return false
	}
}

// Run implements engine.EffectHandler. EmitStatus/EmitMessages carry
// no effect of their own here — the subscription manager observes them
// through engine.Engine.OnInvocation as the engine dispatches them
// (see pkg/manager), not by intercepting Run.
func (ex *Executor) Run(ctx context.Context, inv Invocation) []Event {
	switch v := inv.(type) {
	case HandshakeInvocation:
		return ex.runHandshake(ctx, v)
	case HandshakeReconnectInvocation:
		return ex.runHandshakeReconnect(ctx, v)
	case ReceiveInvocation:
		return ex.runReceive(ctx, v)
	case ReceiveReconnectInvocation:
		return ex.runReceiveReconnect(ctx, v)
	default:
		return nil
	}
}

func (ex *Executor) runHandshake(ctx context.Context, inv HandshakeInvocation) []Event {
	metrics.HandshakeAttemptsTotal.Inc()
	cursor, _, err := ex.handshake(ctx, inv.Input)
	if err != nil {
		if wavecasterrors.IsRequestCancel(err) {
			return nil
		}
		return []Event{HandshakeFailure{Reason: toReason(err)}}
	}
	return []Event{HandshakeSuccess{Cursor: cursor}}
}

func (ex *Executor) runHandshakeReconnect(ctx context.Context, inv HandshakeReconnectInvocation) []Event {
	metrics.HandshakeAttemptsTotal.Inc()
	metrics.ReconnectsTotal.WithLabelValues("handshake").Inc()
	cursor, _, err := ex.handshake(ctx, inv.Input)
	if err == nil {
		return []Event{HandshakeReconnectSuccess{Cursor: cursor}}
	}
	if wavecasterrors.IsRequestCancel(err) {
		return nil
	}
	reason := toReason(err)
	decision := ex.Policy.Next(inv.Attempts, retry.Reason{StatusCode: reason.StatusCode, Err: reason.Err})
	if decision.GiveUp {
		metrics.GiveUpsTotal.WithLabelValues("handshake").Inc()
		return []Event{HandshakeReconnectGiveUp{Reason: reason}}
	}
	if !sleepCancellable(ctx, decision.Delay) {
		return nil
	}
	return []Event{HandshakeReconnectFailure{Reason: reason}}
}

func (ex *Executor) runReceive(ctx context.Context, inv ReceiveInvocation) []Event {
	metrics.ReceiveAttemptsTotal.Inc()
	timer := metrics.NewTimer()
	cursor, messages, err := ex.receive(ctx, inv.Input, inv.Cursor)
	timer.ObserveDuration(metrics.LongPollDuration)
	if err != nil {
		if wavecasterrors.IsRequestCancel(err) {
			return nil
		}
		return []Event{ReceiveFailure{Reason: toReason(err)}}
	}
	countMessagesReceived(messages)
	return []Event{ReceiveSuccess{Cursor: cursor, Messages: messages}}
}

func (ex *Executor) runReceiveReconnect(ctx context.Context, inv ReceiveReconnectInvocation) []Event {
	metrics.ReceiveAttemptsTotal.Inc()
	metrics.ReconnectsTotal.WithLabelValues("receive").Inc()
	timer := metrics.NewTimer()
	cursor, messages, err := ex.receive(ctx, inv.Input, inv.Cursor)
	timer.ObserveDuration(metrics.LongPollDuration)
	if err == nil {
		countMessagesReceived(messages)
		return []Event{ReceiveReconnectSuccess{Cursor: cursor, Messages: messages}}
	}
	if wavecasterrors.IsRequestCancel(err) {
		return nil
	}
	reason := toReason(err)
	decision := ex.Policy.Next(inv.Attempts, retry.Reason{StatusCode: reason.StatusCode, Err: reason.Err})
	if decision.GiveUp {
		metrics.GiveUpsTotal.WithLabelValues("receive").Inc()
		return []Event{ReceiveReconnectGiveUp{Reason: reason}}
	}
	if !sleepCancellable(ctx, decision.Delay) {
		return nil
	}
	return []Event{ReceiveReconnectFailure{Reason: reason}}
}

func countMessagesReceived(envelopes []wire.Envelope) {
	for _, env := range envelopes {
		metrics.MessagesReceivedTotal.WithLabelValues(messageTypeLabel(env.EffectiveMessageType())).Inc()
	}
}

func messageTypeLabel(t wire.MessageType) string {
	switch t {
	case wire.MessageTypePublish:
		return "publish"
	case wire.MessageTypeSignal:
		return "signal"
	case wire.MessageTypeObject:
		return "object"
	case wire.MessageTypeMessageAction:
		return "message_action"
	case wire.MessageTypeFile:
		return "file"
	default:
		return "unknown"
	}
}

// handshake performs the initial subscribe call (no tt/tr, optional
// presence state) and returns the cursor the server hands back.
func (ex *Executor) handshake(ctx context.Context, input entity.Input) (entity.Cursor, []wire.Envelope, error) {
	query := ex.baseQuery(input)
	if len(ex.PresenceState) > 0 {
		if encoded, err := json.Marshal(ex.PresenceState); err == nil {
			query["state"] = string(encoded)
		}
	}
	return ex.call(ctx, input, query)
}

// receive performs a long-poll call resuming from cursor.
func (ex *Executor) receive(ctx context.Context, input entity.Input, cursor entity.Cursor) (entity.Cursor, []wire.Envelope, error) {
	query := ex.baseQuery(input)
	if !cursor.IsZero() {
		query["tt"] = cursor.Timetoken
		query["tr"] = strconv.FormatUint(uint64(cursor.Region), 10)
	}
	return ex.call(ctx, input, query)
}

// RawReceive performs a single long-poll round trip without going
// through the subscribe engine's state machine, for callers that want
// one decoded batch directly — a one-shot catch-up read, or a test
// that doesn't want to drive the full engine lifecycle.
func (ex *Executor) RawReceive(ctx context.Context, input entity.Input, cursor entity.Cursor) (entity.Cursor, []wire.Envelope, error) {
	return ex.receive(ctx, input, cursor)
}

func (ex *Executor) baseQuery(input entity.Input) map[string]string {
	query := map[string]string{}
	if len(input.ChannelGroups) > 0 {
		query["channel-group"] = strings.Join(input.ChannelGroups, ",")
	}
	if ex.FilterExpression != "" {
		query["filter-expr"] = ex.FilterExpression
	}
	if ex.HeartbeatSeconds > 0 {
		query["heartbeat"] = strconv.Itoa(ex.HeartbeatSeconds)
	}
	return query
}

func (ex *Executor) call(ctx context.Context, input entity.Input, query map[string]string) (entity.Cursor, []wire.Envelope, error) {
	path := fmt.Sprintf("/v2/subscribe/%s/%s/0", ex.SubscribeKey, transport.EncodeChannelList(input.Channels))
	resp, err := ex.Transport.Send(ctx, transport.Request{Path: path, Method: transport.MethodGet, QueryParameters: query})
	if err != nil {
		return entity.Cursor{}, nil, err
	}
	if resp.Status >= 400 {
		return entity.Cursor{}, nil, wavecasterrors.Normalize(resp.Status, resp.Body)
	}
	var body wire.SubscribeResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return entity.Cursor{}, nil, &wavecasterrors.DeserializationError{Details: err.Error()}
	}
	return entity.Cursor{Timetoken: body.Cursor.Timetoken, Region: body.Cursor.Region}, body.Envelopes, nil
}

func toReason(err error) Reason {
	if apiErr, ok := err.(*wavecasterrors.APIError); ok {
		return Reason{Err: err, StatusCode: apiErr.Status}
	}
	if te, ok := err.(*wavecasterrors.TransportError); ok {
		return Reason{Err: err, StatusCode: te.Status}
	}
	return Reason{Err: err}
}

// sleepCancellable blocks for d or until ctx is done, reporting whether
// it completed the full delay.
func sleepCancellable(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

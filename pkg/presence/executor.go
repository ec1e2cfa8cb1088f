package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wavecast/wavecast-go/pkg/entity"
	wavecasterrors "github.com/wavecast/wavecast-go/pkg/errors"
	"github.com/wavecast/wavecast-go/pkg/log"
	"github.com/wavecast/wavecast-go/pkg/metrics"
	"github.com/wavecast/wavecast-go/pkg/retry"
	"github.com/wavecast/wavecast-go/pkg/transport"
)

// Executor performs the transport calls the presence state machine's
// invocations describe (spec.md §4.E's Heartbeat/Leave/Wait
// executors) and implements engine.EffectHandler[Event, Invocation].
type Executor struct {
	Transport    transport.Transport
	SubscribeKey string
	UUID         string
	State        map[string]any
	Policy       retry.Policy
	Logger       log.Logger
}

// NewExecutor builds an Executor with a component-scoped logger.
func NewExecutor(t transport.Transport, subscribeKey, uuid string, policy retry.Policy) *Executor {
	return &Executor{Transport: t, SubscribeKey: subscribeKey, UUID: uuid, Policy: policy, Logger: log.WithComponent("presence-executor")}
}

// Kind implements engine.EffectHandler.
func (ex *Executor) Kind(inv Invocation) string {
	switch inv.(type) {
	case DelayedHeartbeatInvocation, CancelDelayedHeartbeatInvocation:
		return "delayed-heartbeat"
	case WaitInvocation, CancelWaitInvocation:
		return "wait"
	case HeartbeatInvocation:
		return "heartbeat"
	case LeaveInvocation:
		return "leave"
	default:
		return "other"
	}
}

// IsManaged implements engine.EffectHandler. Heartbeat and Leave are
// fire-and-forget single calls; DelayedHeartbeat and Wait are
// cancellable (a later input change or Disconnect must be able to cut
// a pending retry delay or cooldown short).
func (ex *Executor) IsManaged(inv Invocation) bool {
	switch inv.(type) {
	case DelayedHeartbeatInvocation, WaitInvocation:
		return true
	default:
		return false
	}
}

// IsCancelling implements engine.EffectHandler.
func (ex *Executor) IsCancelling(inv Invocation) bool {
	switch inv.(type) {
	case CancelDelayedHeartbeatInvocation, CancelWaitInvocation:
		return true
	default:
		return false
	}
}

// Run implements engine.EffectHandler.
func (ex *Executor) Run(ctx context.Context, inv Invocation) []Event {
	switch v := inv.(type) {
	case HeartbeatInvocation:
		return ex.runHeartbeat(ctx, v.Input)
	case DelayedHeartbeatInvocation:
		return ex.runDelayedHeartbeat(ctx, v)
	case LeaveInvocation:
		return ex.runLeave(ctx, v.Input)
	case WaitInvocation:
		return ex.runWait(ctx, v)
	default:
		return nil
	}
}

func (ex *Executor) runHeartbeat(ctx context.Context, input entity.Input) []Event {
	err := ex.heartbeat(ctx, input)
	if err != nil {
		if wavecasterrors.IsRequestCancel(err) {
			return nil
		}
		return []Event{HeartbeatFailure{Reason: toReason(err)}}
	}
	return []Event{HeartbeatSuccess{}}
}

func (ex *Executor) runDelayedHeartbeat(ctx context.Context, inv DelayedHeartbeatInvocation) []Event {
	err := ex.heartbeat(ctx, inv.Input)
	if err == nil {
		return []Event{HeartbeatSuccess{}}
	}
	if wavecasterrors.IsRequestCancel(err) {
		return nil
	}
	reason := toReason(err)
	decision := ex.Policy.Next(inv.Attempts, retry.Reason{StatusCode: reason.StatusCode, Err: reason.Err})
	if decision.GiveUp {
		return []Event{HeartbeatGiveUp{Reason: reason}}
	}
	if !sleepCancellable(ctx, decision.Delay) {
		return nil
	}
	return []Event{HeartbeatFailure{Reason: reason}}
}

// OneShotHeartbeat issues a single fire-and-forget heartbeat request
// directly against the transport, bypassing the presence engine
// entirely. pkg/manager's join hook calls this when no heartbeat
// interval is configured, so a join still produces one heartbeat
// instead of silently producing none.
func (ex *Executor) OneShotHeartbeat(ctx context.Context, input entity.Input) {
	_ = ex.heartbeat(ctx, input)
}

// OneShotLeave issues a single fire-and-forget leave request directly
// against the transport, the leave-hook counterpart to OneShotHeartbeat.
func (ex *Executor) OneShotLeave(ctx context.Context, input entity.Input) {
	ex.runLeave(ctx, input)
}

func (ex *Executor) runLeave(ctx context.Context, input entity.Input) []Event {
	path := fmt.Sprintf("/v2/presence/sub_key/%s/channel/%s/leave", ex.SubscribeKey, transport.EncodeChannelList(input.Channels))
	query := map[string]string{"uuid": ex.UUID}
	if len(input.ChannelGroups) > 0 {
		query["channel-group"] = strings.Join(input.ChannelGroups, ",")
	}
	_, _ = ex.Transport.Send(ctx, transport.Request{Path: path, Method: transport.MethodGet, QueryParameters: query})
	// Fire-and-forget: spec.md §4.E says the leave executor emits no
	// events on success, and a failed leave has nothing useful to
	// retry against (the entity is already gone from the aggregate).
	return nil
}

func (ex *Executor) runWait(ctx context.Context, inv WaitInvocation) []Event {
	if !sleepCancellable(ctx, time.Duration(inv.IntervalSeconds)*time.Second) {
		return nil
	}
	return []Event{TimesUp{}}
}

func (ex *Executor) heartbeat(ctx context.Context, input entity.Input) error {
	path := fmt.Sprintf("/v2/presence/sub_key/%s/channel/%s/heartbeat", ex.SubscribeKey, transport.EncodeChannelList(input.Channels))
	query := map[string]string{"uuid": ex.UUID}
	if len(input.ChannelGroups) > 0 {
		query["channel-group"] = strings.Join(input.ChannelGroups, ",")
	}
	if len(ex.State) > 0 {
		if encoded, err := json.Marshal(ex.State); err == nil {
			query["state"] = string(encoded)
		}
	}

	resp, err := ex.Transport.Send(ctx, transport.Request{Path: path, Method: transport.MethodGet, QueryParameters: query})
	if err != nil {
		metrics.HeartbeatFailuresTotal.Inc()
		return err
	}
	if resp.Status >= 400 {
		metrics.HeartbeatFailuresTotal.Inc()
		return wavecasterrors.Normalize(resp.Status, resp.Body)
	}
	metrics.HeartbeatsSentTotal.Inc()
	return nil
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

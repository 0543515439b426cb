package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/sunspecmon/internal/core/domain"
	"github.com/berfenger/sunspecmon/internal/core/events"
	"github.com/berfenger/sunspecmon/internal/core/port"
	"github.com/berfenger/sunspecmon/internal/core/service"
	"github.com/berfenger/sunspecmon/internal/metrics"
	. "github.com/berfenger/sunspecmon/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// ControlsActor owns the control ledger. It polls the control points, runs the
// stage/confirm/apply flow and keeps the notifications of finished writes.
type ControlsActor struct {
	ledger          port.ControlLedger
	gatewayActor    *actor.PID
	eventStream     *eventstream.EventStream
	metrics         *metrics.Metrics
	scheduler       *scheduler.TimerScheduler
	pollInterval    time.Duration
	notificationTTL time.Duration

	polling       bool
	pollCancel    scheduler.CancelFunc
	dismissCancel map[string]scheduler.CancelFunc
	notifications []domain.Notification
	lastPollError error

	logger *zap.Logger
}

type controlsTick struct {
}

type dismissNotification struct {
	notification domain.Notification
}

func NewControlsActor(pollInterval, notificationTTL time.Duration, gatewayActor *actor.PID,
	eventStream *eventstream.EventStream, m *metrics.Metrics, logger *zap.Logger) *ControlsActor {
	return &ControlsActor{
		ledger:          service.NewControlLedger(),
		gatewayActor:    gatewayActor,
		eventStream:     eventStream,
		metrics:         m,
		pollInterval:    pollInterval,
		notificationTTL: notificationTTL,
		dismissCancel:   make(map[string]scheduler.CancelFunc),
		logger:          ActorLogger(domain.ACTOR_ID_CONTROLS, logger),
	}
}

func (state *ControlsActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("controls@default started")
		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.poll(ctx)
		state.scheduleTick(ctx)
	case controlsTick:
		state.poll(ctx)
		state.scheduleTick(ctx)
	case domain.FetchControlPointsResponse:
		state.polling = false
		if msg.HasResponseError() {
			state.lastPollError = msg.GetResponseError()
			state.logger.Warn("controls@default poll failed", zap.Error(msg.GetResponseError()))
			return
		}
		state.lastPollError = nil
		reset := state.ledger.Refresh(msg.Points)
		for _, key := range reset {
			state.logger.Info("controls@default staged edit reset by refresh", zap.String("point", key.String()))
		}
	case domain.GetControlsRequest:
		ForRequest(msg).Respond(ctx, domain.GetControlsResponse{
			Groups:        state.ledger.Groups(),
			Notifications: append([]domain.Notification{}, state.notifications...),
		})
	case domain.StageControlRequest:
		view, err := state.ledger.Stage(msg.Key, msg.Value)
		if err != nil {
			state.logger.Debug("controls@default stage rejected", zap.String("point", msg.Key.String()), zap.Error(err))
		}
		ForRequest(msg).Respond(ctx, domain.StageControlResponse{View: view, ActorResponseMixIn: domain.FailedWith(err)})
	case domain.RequestConfirmationRequest:
		conf, err := state.ledger.RequestConfirmation(msg.Key)
		ForRequest(msg).Respond(ctx, domain.RequestConfirmationResponse{Confirmation: conf, ActorResponseMixIn: domain.FailedWith(err)})
	case domain.CancelConfirmationRequest:
		view, err := state.ledger.Cancel(msg.Key)
		ForRequest(msg).Respond(ctx, domain.CancelConfirmationResponse{View: view, ActorResponseMixIn: domain.FailedWith(err)})
	case domain.ConfirmControlRequest:
		write, err := state.ledger.Confirm(msg.Key, msg.ConfirmationID)
		if err != nil {
			state.logger.Warn("controls@default confirm rejected", zap.String("point", msg.Key.String()), zap.Error(err))
			state.metrics.RecordControlWrite("rejected")
			ForRequest(msg).Respond(ctx, domain.ConfirmControlResponse{ActorResponseMixIn: domain.FailedWith(err)})
			return
		}
		state.logger.Info("controls@default applying", zap.String("point", msg.Key.String()), zap.String("value", write.Value))
		ctx.Request(state.gatewayActor, domain.WriteControlPointRequest{Key: msg.Key, Write: write})
		ForRequest(msg).Respond(ctx, domain.ConfirmControlResponse{})
	case domain.WriteControlPointResponse:
		state.completeWrite(ctx, msg)
	case dismissNotification:
		state.dismiss(msg.notification)
	case domain.ActorHealthRequest:
		st := "idle"
		if state.lastPollError != nil {
			st = "poll_failed"
		}
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_CONTROLS,
			Healthy: true,
			State:   st,
		})
	case *actor.Stopping:
		state.logger.Debug("controls@default stopping")
		if state.pollCancel != nil {
			state.pollCancel()
		}
		for _, cancel := range state.dismissCancel {
			cancel()
		}
	default:
		state.logger.Debug("controls@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *ControlsActor) poll(ctx actor.Context) {
	if state.polling {
		return
	}
	state.polling = true
	ctx.Request(state.gatewayActor, domain.FetchControlPointsRequest{})
}

func (state *ControlsActor) scheduleTick(ctx actor.Context) {
	if state.pollCancel != nil {
		state.pollCancel()
		state.pollCancel = nil
	}
	if state.pollInterval <= 0 {
		return
	}
	state.pollCancel = state.scheduler.SendOnce(state.pollInterval, ctx.Self(), controlsTick{})
}

func (state *ControlsActor) completeWrite(ctx actor.Context, resp domain.WriteControlPointResponse) {
	success := !resp.HasResponseError() && resp.Result != nil && resp.Result.Success
	message := ""
	if resp.Result != nil {
		message = resp.Result.Message
	}
	if resp.HasResponseError() {
		state.logger.Error("controls@default write failed", zap.String("point", resp.Key.String()), zap.Error(resp.GetResponseError()))
		if message == "" {
			message = resp.GetResponseError().Error()
		}
	}
	n := state.ledger.Complete(resp.Key, success, message)
	state.notifications = append(state.notifications, n)

	result := "failed"
	if success {
		result = "succeeded"
	}
	state.metrics.RecordControlWrite(result)
	if state.eventStream != nil {
		for _, ev := range events.NotificationToUpdateEvents(n) {
			state.eventStream.Publish(ev)
		}
	}

	state.dismissCancel[n.ID.String()] = state.scheduler.SendOnce(state.notificationTTL, ctx.Self(), dismissNotification{notification: n})
	if success {
		// the next poll is the only source of the new value
		state.poll(ctx)
	}
}

func (state *ControlsActor) dismiss(n domain.Notification) {
	delete(state.dismissCancel, n.ID.String())
	kept := state.notifications[:0]
	for _, other := range state.notifications {
		if other.ID != n.ID {
			kept = append(kept, other)
		}
	}
	state.notifications = kept
	state.ledger.Settle(n.Key)
}

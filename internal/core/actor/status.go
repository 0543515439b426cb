package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/sunspecmon/internal/core/domain"
	"github.com/berfenger/sunspecmon/internal/core/events"
	. "github.com/berfenger/sunspecmon/internal/util/actorutil"
	"github.com/berfenger/sunspecmon/pkg/gateway"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// StatusActor polls the gateway connectivity report.
type StatusActor struct {
	gatewayActor *actor.PID
	eventStream  *eventstream.EventStream
	scheduler    *scheduler.TimerScheduler
	pollInterval time.Duration
	cancel       scheduler.CancelFunc
	polling      bool

	status    *gateway.SystemStatus
	reachable bool
	lastError error

	logger *zap.Logger
}

type statusTick struct {
}

func NewStatusActor(pollInterval time.Duration, gatewayActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *StatusActor {
	return &StatusActor{
		gatewayActor: gatewayActor,
		eventStream:  eventStream,
		pollInterval: pollInterval,
		logger:       ActorLogger(domain.ACTOR_ID_STATUS, logger),
	}
}

func (state *StatusActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("status@default started")
		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.poll(ctx)
	case statusTick:
		state.poll(ctx)
	case domain.FetchStatusResponse:
		state.polling = false
		if msg.HasResponseError() {
			if state.reachable {
				state.logger.Warn("status@default gateway unreachable", zap.Error(msg.GetResponseError()))
			}
			state.reachable = false
			state.lastError = msg.GetResponseError()
			return
		}
		state.reachable = true
		state.lastError = nil
		state.status = msg.Status
		if state.eventStream != nil && msg.Status != nil {
			for _, ev := range events.StatusToUpdateEvents(msg.Status) {
				state.eventStream.Publish(ev)
			}
		}
	case domain.GetStatusRequest:
		resp := domain.GetStatusResponse{
			Status:    state.status,
			Reachable: state.reachable,
		}
		if state.lastError != nil {
			resp.LastError = state.lastError.Error()
		}
		ForRequest(msg).Respond(ctx, resp)
	case domain.ActorHealthRequest:
		st := "unreachable"
		if state.reachable {
			st = "reachable"
		}
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_STATUS,
			Healthy: true,
			State:   st,
		})
	case *actor.Stopping:
		if state.cancel != nil {
			state.cancel()
		}
	default:
		state.logger.Debug("status@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *StatusActor) poll(ctx actor.Context) {
	if !state.polling {
		state.polling = true
		ctx.Request(state.gatewayActor, domain.FetchStatusRequest{})
	}
	if state.cancel != nil {
		state.cancel()
	}
	if state.pollInterval > 0 {
		state.cancel = state.scheduler.SendOnce(state.pollInterval, ctx.Self(), statusTick{})
	}
}

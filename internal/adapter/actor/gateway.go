package actor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/sunspecmon/internal/core/domain"
	"github.com/berfenger/sunspecmon/internal/metrics"
	"github.com/berfenger/sunspecmon/internal/util/actorutil"
	"github.com/berfenger/sunspecmon/pkg/gateway"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type GatewayActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	reader   gateway.GatewayReader
	timeout  time.Duration
	tzOffset int
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewGatewayActor(reader gateway.GatewayReader, timeout time.Duration, tzOffsetMinutes int, m *metrics.Metrics, logger *zap.Logger) *GatewayActor {
	act := &GatewayActor{
		reader:   reader,
		timeout:  timeout,
		tzOffset: tzOffsetMinutes,
		metrics:  m,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_GATEWAY, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *GatewayActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *GatewayActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("gateway@default started")
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_GATEWAY,
			Healthy: true,
			State:   "idle",
		})
	case domain.FetchUnitsRequest:
		state.logger.Debug("gateway@default: FetchUnitsRequest")
		runGatewayTask(state, ctx, "units", actorutil.ForRequest(msg).ReplyTo(ctx),
			func(c context.Context) (*domain.FetchUnitsResponse, error) {
				units, err := state.reader.GetUnits(c)
				if err != nil {
					return nil, err
				}
				return &domain.FetchUnitsResponse{Units: units}, nil
			},
			func(err error) any {
				return domain.FetchUnitsResponse{ActorResponseMixIn: domain.FailedWith(err)}
			})
	case domain.FetchBootstrapRequest:
		state.logger.Debug("gateway@default: FetchBootstrapRequest", zap.Uint64("seq", msg.Tag.Seq), zap.String("period", string(msg.Tag.Period)))
		tag := msg.Tag
		runGatewayTask(state, ctx, "bootstrap", actorutil.ForRequest(msg).ReplyTo(ctx),
			func(c context.Context) (*domain.BootstrapLoaded, error) {
				return state.bootstrap(c, tag)
			},
			func(err error) any {
				return domain.BootstrapFailed{Tag: tag, Err: err}
			})
	case domain.FetchHistoryRequest:
		state.logger.Debug("gateway@default: FetchHistoryRequest", zap.Uint64("seq", msg.Tag.Seq), zap.String("period", string(msg.Tag.Period)))
		tag := msg.Tag
		runGatewayTask(state, ctx, "history", actorutil.ForRequest(msg).ReplyTo(ctx),
			func(c context.Context) (*domain.HistoryLoaded, error) {
				history, err := state.reader.GetHistory(c, string(tag.Period), state.tzOffset)
				if err != nil {
					return nil, err
				}
				return &domain.HistoryLoaded{Tag: tag, Points: history.Data}, nil
			},
			func(err error) any {
				return domain.HistoryFailed{Tag: tag, Err: err}
			})
	case domain.FetchControlPointsRequest:
		state.logger.Debug("gateway@default: FetchControlPointsRequest")
		runGatewayTask(state, ctx, "control_points", actorutil.ForRequest(msg).ReplyTo(ctx),
			func(c context.Context) (*domain.FetchControlPointsResponse, error) {
				points, err := state.reader.GetControlPoints(c)
				if err != nil {
					return nil, err
				}
				return &domain.FetchControlPointsResponse{Points: points.Points}, nil
			},
			func(err error) any {
				return domain.FetchControlPointsResponse{ActorResponseMixIn: domain.FailedWith(err)}
			})
	case domain.WriteControlPointRequest:
		state.logger.Info("gateway@default: WriteControlPointRequest",
			zap.String("point", msg.Key.String()), zap.String("value", msg.Write.Value))
		key := msg.Key
		write := msg.Write
		runGatewayTask(state, ctx, "write", actorutil.ForRequest(msg).ReplyTo(ctx),
			func(c context.Context) (*domain.WriteControlPointResponse, error) {
				return state.write(c, key, write), nil
			},
			func(err error) any {
				return domain.WriteControlPointResponse{Key: key, ActorResponseMixIn: domain.FailedWith(err)}
			})
	case domain.FetchStatusRequest:
		runGatewayTask(state, ctx, "status", actorutil.ForRequest(msg).ReplyTo(ctx),
			func(c context.Context) (*domain.FetchStatusResponse, error) {
				status, err := state.reader.GetStatus(c)
				if err != nil {
					return nil, err
				}
				return &domain.FetchStatusResponse{Status: status}, nil
			},
			func(err error) any {
				return domain.FetchStatusResponse{ActorResponseMixIn: domain.FailedWith(err)}
			})
	case *actor.Stopping:
		state.logger.Debug("gateway@default stopping")
	default:
		state.logger.Debug("gateway@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *GatewayActor) WaitingGateway(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("gateway@waiting backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.message)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		state.logger.Debug("gateway@waiting stopping")
	default:
		state.logger.Debug("gateway@waiting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// runGatewayTask calls fn with a deadline and pipes either its result or
// onErr(err) back to replyTo.
func runGatewayTask[T any](state *GatewayActor, ctx actor.Context, op string, replyTo *actor.PID,
	fn func(context.Context) (*T, error), onErr func(error) any) {

	task := actorutil.NewBackgroundTask(ctx, func() (*T, error) {
		start := time.Now()
		c, cancel := context.WithTimeout(context.Background(), state.timeout)
		defer cancel()
		result, err := fn(c)
		state.metrics.RecordGatewayRequest(op, err, time.Since(start))
		if err != nil {
			state.logger.Warn("gateway@default request failed", zap.String("op", op), zap.Error(err))
		}
		return result, err
	})
	actorutil.MapBackgroundTask(task, mapTaskResult[T](replyTo)).Recover(func(err error) backgroundTaskResult {
		return backgroundTaskResult{
			message: onErr(err),
			replyTo: replyTo,
		}
	}).WithTimeout(state.timeout + time.Second).PipeTo(ctx.Self())
	state.behavior.BecomeStacked(state.WaitingGateway)
}

// bootstrap reads the four dashboard resources concurrently. The first failure
// cancels the rest and becomes the only reported error.
func (state *GatewayActor) bootstrap(c context.Context, tag domain.HistoryTag) (*domain.BootstrapLoaded, error) {
	g, gctx := errgroup.WithContext(c)

	var devices *gateway.DashboardDevices
	var metrics *gateway.DashboardMetrics
	var powerFlow *gateway.PowerFlow
	var history *gateway.HistoryResponse

	g.Go(func() error {
		var err error
		devices, err = state.reader.GetDevices(gctx)
		if err != nil {
			return fmt.Errorf("devices: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		metrics, err = state.reader.GetMetrics(gctx, state.tzOffset)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		powerFlow, err = state.reader.GetPowerFlow(gctx)
		if err != nil {
			return fmt.Errorf("power flow: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		history, err = state.reader.GetHistory(gctx, string(tag.Period), state.tzOffset)
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	loaded := &domain.BootstrapLoaded{Tag: tag}
	if devices != nil {
		loaded.Devices = *devices
	}
	if metrics != nil {
		loaded.Metrics = *metrics
	}
	if powerFlow != nil {
		loaded.PowerFlow = *powerFlow
	}
	if history != nil {
		loaded.History = history.Data
	}
	return loaded, nil
}

func (state *GatewayActor) write(c context.Context, key domain.PointKey, write gateway.WriteRequest) *domain.WriteControlPointResponse {
	resp, err := state.reader.WriteControlPoint(c, write)
	if err != nil {
		var statusErr *gateway.StatusError
		if errors.As(err, &statusErr) {
			err = fmt.Errorf("%w: %w", domain.ErrWriteRejected, err)
		}
		return &domain.WriteControlPointResponse{Key: key, ActorResponseMixIn: domain.FailedWith(err)}
	}
	if !resp.Success {
		return &domain.WriteControlPointResponse{
			Key:                key,
			Result:             resp,
			ActorResponseMixIn: domain.FailedWith(fmt.Errorf("%w: %s", domain.ErrWriteRejected, resp.Message)),
		}
	}
	return &domain.WriteControlPointResponse{Key: key, Result: resp}
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}

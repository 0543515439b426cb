package actor

import (
	"fmt"
	"time"

	adactor "github.com/berfenger/sunspecmon/internal/adapter/actor"
	"github.com/berfenger/sunspecmon/internal/core/domain"
	"github.com/berfenger/sunspecmon/internal/core/events"
	"github.com/berfenger/sunspecmon/internal/core/port"
	"github.com/berfenger/sunspecmon/internal/core/service"
	"github.com/berfenger/sunspecmon/internal/metrics"
	. "github.com/berfenger/sunspecmon/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type StreamActorProvider func() *adactor.StreamActor

// SynchronizerActor owns the dashboard session. Gateway completions and stream
// callbacks both arrive in its mailbox and go through the session reducer.
type SynchronizerActor struct {
	session        port.DashboardSession
	gatewayActor   *actor.PID
	streamActor    *actor.PID
	streamProvider StreamActorProvider
	eventStream    *eventstream.EventStream
	metrics        *metrics.Metrics
	logger         *zap.Logger
}

func NewSynchronizerActor(period domain.Period, gatewayActor *actor.PID, streamProvider StreamActorProvider,
	eventStream *eventstream.EventStream, m *metrics.Metrics, logger *zap.Logger) *SynchronizerActor {
	return &SynchronizerActor{
		session:        service.NewSession(period),
		gatewayActor:   gatewayActor,
		streamProvider: streamProvider,
		eventStream:    eventStream,
		metrics:        m,
		logger:         ActorLogger(domain.ACTOR_ID_SYNCHRONIZER, logger),
	}
}

func (state *SynchronizerActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("synchronizer@default started")
		state.apply(ctx, domain.BootstrapRequested{})
		if state.streamProvider != nil {
			props := actor.PropsFromProducer(func() actor.Actor {
				return state.streamProvider()
			}, actor.WithSupervisor(actor.NewExponentialBackoffStrategy(10*time.Second, time.Second)))
			pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_STREAM)
			if err != nil {
				panic(err)
			}
			state.streamActor = pid
		}
	case domain.SessionEvent:
		state.apply(ctx, msg)
	case domain.GetDashboardRequest:
		ForRequest(msg).Respond(ctx, domain.GetDashboardResponse{Snapshot: state.session.Snapshot()})
	case domain.SelectPeriodRequest:
		state.logger.Info("synchronizer@default: SelectPeriodRequest", zap.String("period", string(msg.Period)))
		if _, err := domain.ParsePeriod(string(msg.Period)); err != nil {
			ForRequest(msg).Respond(ctx, domain.SelectPeriodResponse{ActorResponseMixIn: domain.FailedWith(err)})
			return
		}
		state.apply(ctx, domain.PeriodSelected{Period: msg.Period})
		ForRequest(msg).Respond(ctx, domain.SelectPeriodResponse{Period: state.session.Period()})
	case domain.RetryBootstrapRequest:
		state.logger.Info("synchronizer@default: RetryBootstrapRequest", zap.String("phase", string(state.session.Phase())))
		state.apply(ctx, domain.BootstrapRequested{})
		ForRequest(msg).Respond(ctx, domain.RetryBootstrapResponse{})
	case domain.ActorHealthRequest:
		phase := state.session.Phase()
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_SYNCHRONIZER,
			Healthy: phase != domain.PhaseFailed,
			State:   string(phase),
		})
	case *actor.Stopping:
		state.logger.Debug("synchronizer@default stopping")
	default:
		state.logger.Debug("synchronizer@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// apply runs one reducer transition and carries out its effect.
func (state *SynchronizerActor) apply(ctx actor.Context, ev domain.SessionEvent) {
	eff := state.session.Handle(ev)

	if eff.FetchBootstrap != nil {
		state.logger.Debug("synchronizer@default: bootstrap", zap.Uint64("seq", eff.FetchBootstrap.Seq))
		ctx.Request(state.gatewayActor, domain.FetchBootstrapRequest{Tag: *eff.FetchBootstrap})
	}
	if eff.FetchHistory != nil {
		state.logger.Debug("synchronizer@default: history", zap.Uint64("seq", eff.FetchHistory.Seq),
			zap.String("period", string(eff.FetchHistory.Period)))
		ctx.Request(state.gatewayActor, domain.FetchHistoryRequest{Tag: *eff.FetchHistory})
	}
	if eff.Appended != nil {
		state.metrics.RecordSample(true)
		state.publish(events.SampleToUpdateEvents(*eff.Appended)...)
	}
	if eff.Discarded {
		state.metrics.RecordSample(false)
		state.logger.Debug("synchronizer@default: sample discarded")
	}
	if eff.Stale {
		state.metrics.RecordStale()
		state.logger.Debug("synchronizer@default: stale response discarded", zap.String("type", fmt.Sprintf("%T", ev)))
	}
	if eff.ConnectionChanged != nil {
		state.metrics.SetStreamConnected(*eff.ConnectionChanged)
		state.publish(events.StreamConnectedUpdateEvent(*eff.ConnectionChanged))
	}
	if eff.PhaseChanged != nil {
		state.logger.Info("synchronizer@default: phase", zap.String("phase", string(*eff.PhaseChanged)))
		state.metrics.SetPhase(string(*eff.PhaseChanged), phaseNames())
		state.publish(events.PhaseUpdateEvent(*eff.PhaseChanged))
	}
	if eff.Failure != nil {
		state.logger.Error("synchronizer@default: failure", zap.Error(eff.Failure))
	}

	switch e := ev.(type) {
	case domain.BootstrapLoaded:
		if !eff.Stale {
			state.publish(events.MetricsToUpdateEvents(e.Metrics)...)
		}
	case domain.StreamStateReceived:
		state.publish(events.MetricsToUpdateEvents(e.State.Metrics)...)
	}
}

func (state *SynchronizerActor) publish(evs ...any) {
	if state.eventStream == nil {
		return
	}
	for _, ev := range evs {
		state.eventStream.Publish(ev)
	}
}

func phaseNames() []string {
	return []string{
		string(domain.PhaseBootstrapping),
		string(domain.PhaseLive),
		string(domain.PhaseReconnecting),
		string(domain.PhaseFailed),
	}
}

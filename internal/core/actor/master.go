package actor

import (
	"errors"
	"fmt"
	"log"
	"time"

	adactor "github.com/berfenger/sunspecmon/internal/adapter/actor"
	"github.com/berfenger/sunspecmon/internal/config"
	"github.com/berfenger/sunspecmon/internal/core/domain"
	"github.com/berfenger/sunspecmon/internal/metrics"
	. "github.com/berfenger/sunspecmon/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

type GatewayActorProvider func() *adactor.GatewayActor

type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck   healthCheckResult
	eventStream          *eventstream.EventStream
	metrics              *metrics.Metrics
	gatewayActor         *actor.PID
	synchronizerActor    *actor.PID
	controlsActor        *actor.PID
	catalogActor         *actor.PID
	statusActor          *actor.PID
	mqttActor            *actor.PID
	gatewayActorProvider GatewayActorProvider
	streamActorProvider  StreamActorProvider
	mqttActorProvider    MQTTActorProvider
	logger               *zap.Logger
}

type healthCheckResult struct {
	expected  map[string]bool
	healthy   map[string]bool
	states    map[string]string
	received  int
	respondTo *actor.PID
}

func NewMasterOfPuppetsActor(config config.Config, gatewayActorProvider GatewayActorProvider,
	streamActorProvider StreamActorProvider, mqttActorProvider MQTTActorProvider,
	m *metrics.Metrics, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:               config,
		behavior:             actor.NewBehavior(),
		stash:                &Stash{},
		logger:               ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:          &eventstream.EventStream{},
		metrics:              m,
		gatewayActorProvider: gatewayActorProvider,
		streamActorProvider:  streamActorProvider,
		mqttActorProvider:    mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

// EventStream is where sensor updates for the MQTT mirror are published.
func (state *MasterOfPuppetsActor) EventStream() *eventstream.EventStream {
	return state.eventStream
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		gatewayPID, err := state.startGatewayActor(ctx)
		if err != nil {
			panic(err)
		}
		state.gatewayActor = gatewayPID

		// the MQTT mirror has to be subscribed before the first samples flow
		if state.config.MQTT.Enable && state.mqttActorProvider != nil {
			mqttPID, err := state.startMQTTActor(ctx)
			if err != nil {
				panic(err)
			}
			state.mqttActor = mqttPID
		}

		period, err := domain.ParsePeriod(state.config.Dashboard.DefaultPeriod)
		if err != nil {
			period = domain.PeriodToday
		}
		state.synchronizerActor = state.spawnChild(ctx, domain.ACTOR_ID_SYNCHRONIZER, func() actor.Actor {
			return NewSynchronizerActor(period, state.gatewayActor, state.streamActorProvider, state.eventStream, state.metrics, state.logger)
		})
		state.controlsActor = state.spawnChild(ctx, domain.ACTOR_ID_CONTROLS, func() actor.Actor {
			return NewControlsActor(state.config.Controls.PollInterval(), state.config.Controls.NotificationTTL(),
				state.gatewayActor, state.eventStream, state.metrics, state.logger)
		})
		state.catalogActor = state.spawnChild(ctx, domain.ACTOR_ID_CATALOG, func() actor.Actor {
			return NewCatalogActor(state.gatewayActor, state.metrics, state.logger)
		})
		state.statusActor = state.spawnChild(ctx, domain.ACTOR_ID_STATUS, func() actor.Actor {
			return NewStatusActor(state.config.Status.PollInterval(), state.gatewayActor, state.eventStream, state.logger)
		})

		if state.mqttActor != nil && state.config.MQTT.HADiscoveryEnable {
			state.spawnChild(ctx, domain.ACTOR_ID_HA_DISCOVERY, func() actor.Actor {
				return NewHADiscoveryActor(&state.config, state.mqttActor, state.logger)
			})
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset()
		state.currentHealthCheck.respondTo = ctx.Sender()
		for id, pid := range state.healthTargets() {
			id := id
			PipeToSelfWithRecover(ctx, ctx.RequestFuture(pid, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
				return domain.ActorHealthResponse{
					Id:      id,
					Healthy: false,
				}
			})
			state.currentHealthCheck.expected[id] = true
		}

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case domain.GetCatalogRequest, domain.RefreshCatalogRequest:
		ctx.Forward(state.catalogActor)
	case domain.GetDashboardRequest, domain.SelectPeriodRequest, domain.RetryBootstrapRequest:
		ctx.Forward(state.synchronizerActor)
	case domain.GetControlsRequest, domain.StageControlRequest, domain.RequestConfirmationRequest,
		domain.CancelConfirmationRequest, domain.ConfirmControlRequest:
		ctx.Forward(state.controlsActor)
	case domain.GetStatusRequest:
		ctx.Forward(state.statusActor)
	case *actor.Terminated:
		// the gateway adapter is not optional
		if msg.Who.Id == state.gatewayActor.Id {
			state.logger.Error("master@default gateway terminated")
			panic(errors.New("gateway terminated"))
		}
	default:
		state.logger.Debug("master@default ignored", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// whoever did not answer is not healthy
		ctx.CancelReceiveTimeout()
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.received++
		state.currentHealthCheck.healthy[msg.Id] = msg.Healthy
		state.currentHealthCheck.states[msg.Id] = msg.State
		if state.currentHealthCheck.allReceived() {
			ctx.CancelReceiveTimeout()
			state.currentHealthCheck.respond(ctx)
			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) healthTargets() map[string]*actor.PID {
	targets := map[string]*actor.PID{
		domain.ACTOR_ID_GATEWAY:      state.gatewayActor,
		domain.ACTOR_ID_SYNCHRONIZER: state.synchronizerActor,
		domain.ACTOR_ID_CONTROLS:     state.controlsActor,
		domain.ACTOR_ID_CATALOG:      state.catalogActor,
		domain.ACTOR_ID_STATUS:       state.statusActor,
	}
	if state.mqttActor != nil {
		targets[domain.ACTOR_ID_MQTT] = state.mqttActor
	}
	return targets
}

func (state *MasterOfPuppetsActor) startGatewayActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	gatewayProps := actor.PropsFromProducer(func() actor.Actor {
		return state.gatewayActorProvider()
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(gatewayProps, domain.ACTOR_ID_GATEWAY)
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
}

func (state *MasterOfPuppetsActor) spawnChild(ctx actor.Context, id string, producer actor.Producer) *actor.PID {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child %s. reason: %v", id, reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(3, 10*time.Second, decider)

	pid, err := ctx.SpawnNamed(actor.PropsFromProducer(producer, actor.WithSupervisor(supervisor)), id)
	if err != nil {
		panic(err)
	}
	return pid
}

func (state *healthCheckResult) reset() {
	state.expected = make(map[string]bool)
	state.healthy = make(map[string]bool)
	state.states = make(map[string]string)
	state.received = 0
	state.respondTo = nil
}

func (state *healthCheckResult) allReceived() bool {
	return state.received >= len(state.expected)
}

func (state *healthCheckResult) allHealthy() bool {
	for id := range state.expected {
		if !state.healthy[id] {
			return false
		}
	}
	return true
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.MasterHealthResponse{
		ActorHealthResponse: domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MASTER,
			Healthy: state.allHealthy(),
		},
		Children: make(map[string]domain.ActorHealthResponse, len(state.expected)),
	}
	for id := range state.expected {
		resp.Children[id] = domain.ActorHealthResponse{
			Id:      id,
			Healthy: state.healthy[id],
			State:   state.states[id],
		}
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}

package actor

import (
	"fmt"

	"github.com/berfenger/sunspecmon/internal/core/domain"
	"github.com/berfenger/sunspecmon/internal/core/port"
	"github.com/berfenger/sunspecmon/internal/core/service"
	"github.com/berfenger/sunspecmon/internal/metrics"
	. "github.com/berfenger/sunspecmon/internal/util/actorutil"
	"github.com/berfenger/sunspecmon/pkg/gateway"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// CatalogActor owns the point catalog. It rebuilds it from the gateway's unit
// list on start and on demand.
type CatalogActor struct {
	ActorWithStates
	stash        *Stash
	catalog      port.PointCatalog
	gatewayActor *actor.PID
	metrics      *metrics.Metrics
	replyTo      *actor.PID
	logger       *zap.Logger
}

type catalogIdleState struct {
	*CatalogActor
}

// catalogRefreshingState still answers reads from the previous catalog.
// Further refreshes wait for the one in flight.
type catalogRefreshingState struct {
	*CatalogActor
}

func NewCatalogActor(gatewayActor *actor.PID, m *metrics.Metrics, logger *zap.Logger) *CatalogActor {
	act := &CatalogActor{
		stash:        &Stash{},
		catalog:      service.NewPointCatalog(),
		gatewayActor: gatewayActor,
		metrics:      m,
		logger:       ActorLogger(domain.ACTOR_ID_CATALOG, logger),
	}
	act.ActorWithStates = NewActorWithStates(catalogIdleState{act})
	return act
}

func (state catalogIdleState) Name() string {
	return "idle"
}

func (state catalogIdleState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("catalog@idle started")
		state.refresh(ctx, nil)
	case domain.GetCatalogRequest:
		state.respondCatalog(ctx, msg)
	case domain.RefreshCatalogRequest:
		state.logger.Debug("catalog@idle: RefreshCatalogRequest")
		state.refresh(ctx, ForRequest(msg).ReplyTo(ctx))
	case domain.ActorHealthRequest:
		state.respondHealth(ctx)
	default:
		state.logger.Debug("catalog@idle default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state catalogRefreshingState) Name() string {
	return "refreshing"
}

func (state catalogRefreshingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.FetchUnitsResponse:
		var resp domain.RefreshCatalogResponse
		if msg.HasResponseError() {
			state.logger.Warn("catalog@refreshing fetch failed, keeping previous catalog", zap.Error(msg.GetResponseError()))
			resp.ActorResponseMixIn = domain.FailedWith(msg.GetResponseError())
		} else {
			var units []gateway.Unit
			if msg.Units != nil {
				units = msg.Units.Units
			}
			state.catalog.Rebuild(units)
			state.metrics.SetCatalogPoints(state.catalog.Stats().Points)
			state.logger.Info("catalog@refreshing rebuilt", zap.Int("points", state.catalog.Stats().Points))
		}
		resp.Stats = state.catalog.Stats()
		if state.replyTo != nil {
			ctx.Send(state.replyTo, resp)
			state.replyTo = nil
		}
		state.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.GetCatalogRequest:
		state.respondCatalog(ctx, msg)
	case domain.ActorHealthRequest:
		state.respondHealth(ctx)
	default:
		state.logger.Debug("catalog@refreshing stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *CatalogActor) refresh(ctx actor.Context, replyTo *actor.PID) {
	state.replyTo = replyTo
	ctx.Request(state.gatewayActor, domain.FetchUnitsRequest{})
	state.BecomeStacked(catalogRefreshingState{state})
}

func (state *CatalogActor) respondCatalog(ctx actor.Context, msg domain.GetCatalogRequest) {
	ForRequest(msg).Respond(ctx, domain.GetCatalogResponse{
		Entries: state.catalog.Entries(msg.Filter),
		Stats:   state.catalog.Stats(),
	})
}

func (state *CatalogActor) respondHealth(ctx actor.Context) {
	ctx.Respond(domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_CATALOG,
		Healthy: true,
		State:   state.Current(),
	})
}

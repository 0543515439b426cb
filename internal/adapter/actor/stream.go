package actor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/sunspecmon/internal/core/domain"
	"github.com/berfenger/sunspecmon/internal/util/actorutil"
	"github.com/berfenger/sunspecmon/pkg/gateway"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// StreamActor owns the push-stream subscription and turns its callbacks into
// session events for the target (the parent when no target is given).
type StreamActor struct {
	stream    gateway.DashboardStream
	retry     time.Duration
	target    *actor.PID
	cancel    context.CancelFunc
	connected bool
	logger    *zap.Logger
}

// streamCallback wraps a session event coming from the transport goroutine.
type streamCallback struct {
	event domain.SessionEvent
}

func NewStreamActor(stream gateway.DashboardStream, retry time.Duration, target *actor.PID, logger *zap.Logger) *StreamActor {
	return &StreamActor{
		stream: stream,
		retry:  retry,
		target: target,
		logger: actorutil.ActorLogger(domain.ACTOR_ID_STREAM, logger),
	}
}

func (state *StreamActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("stream@default started")
		if state.target == nil {
			state.target = ctx.Parent()
		}
		subCtx, cancel := context.WithCancel(context.Background())
		state.cancel = cancel
		go state.subscribeLoop(subCtx, ctx.ActorSystem().Root, ctx.Self())
	case streamCallback:
		switch msg.event.(type) {
		case domain.StreamConnected:
			if !state.connected {
				state.logger.Info("stream@default connected")
			}
			state.connected = true
		case domain.StreamDisconnected:
			if state.connected {
				state.logger.Warn("stream@default disconnected")
			}
			state.connected = false
		}
		ctx.Send(state.target, msg.event)
	case domain.ActorHealthRequest:
		st := "disconnected"
		if state.connected {
			st = "connected"
		}
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_STREAM,
			Healthy: true,
			State:   st,
		})
	case *actor.Stopping:
		state.logger.Debug("stream@default stopping")
		if state.cancel != nil {
			state.cancel()
		}
	default:
		state.logger.Debug("stream@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *StreamActor) subscribeLoop(ctx context.Context, root *actor.RootContext, self *actor.PID) {
	send := func(ev domain.SessionEvent) {
		root.Send(self, streamCallback{event: ev})
	}
	handlers := gateway.StreamHandlers{
		OnConnect: func() {
			send(domain.StreamConnected{})
		},
		OnDisconnect: func(err error) {
			send(domain.StreamDisconnected{Err: fmt.Errorf("%w: %w", domain.ErrStreamDisconnect, err)})
		},
		OnState: func(st gateway.DashboardState) {
			send(domain.StreamStateReceived{State: st})
		},
	}
	for {
		err := state.stream.Subscribe(ctx, handlers)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errors.New("stream closed")
		}
		send(domain.StreamDisconnected{Err: fmt.Errorf("%w: %w", domain.ErrStreamDisconnect, err)})
		select {
		case <-ctx.Done():
			return
		case <-time.After(state.retry):
		}
	}
}

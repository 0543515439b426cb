package actor

import (
	"errors"
	"testing"
	"time"

	"github.com/berfenger/sunspecmon/internal/core/domain"
	"github.com/berfenger/sunspecmon/internal/util/actorutil"
	"github.com/berfenger/sunspecmon/pkg/gateway"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStreamActorForwardsEvents(t *testing.T) {
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()

	events := make(chan domain.SessionEvent, 16)
	sink := as.Root.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		if ev, ok := ctx.Message().(domain.SessionEvent); ok {
			events <- ev
		}
	}))

	stream := gateway.CreateTestDashboardStream()
	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewStreamActor(stream, 100*time.Millisecond, sink, logger)
	}))

	select {
	case <-stream.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("stream never subscribed")
	}

	next := func() domain.SessionEvent {
		select {
		case ev := <-events:
			return ev
		case <-time.After(2 * time.Second):
			t.Fatal("no event")
			return nil
		}
	}

	assert.IsType(t, domain.StreamConnected{}, next())

	require.NoError(t, stream.Push(gateway.DashboardState{Timestamp: "2026-10-17T10:00:00Z"}))
	ev := next()
	require.IsType(t, domain.StreamStateReceived{}, ev)
	assert.Equal(t, "2026-10-17T10:00:00Z", ev.(domain.StreamStateReceived).State.Timestamp)

	require.NoError(t, stream.Drop(errors.New("eof")))
	ev = next()
	require.IsType(t, domain.StreamDisconnected{}, ev)
	assert.ErrorIs(t, ev.(domain.StreamDisconnected).Err, domain.ErrStreamDisconnect)

	result, err := as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, time.Second).Result()
	require.NoError(t, err)
	assert.Equal(t, "disconnected", result.(domain.ActorHealthResponse).State)

	require.NoError(t, stream.Reconnect())
	assert.IsType(t, domain.StreamConnected{}, next())

	require.NoError(t, as.Root.StopFuture(pid).Wait())
}

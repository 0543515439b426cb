package actor

import (
	"testing"
	"time"

	adactor "github.com/berfenger/sunspecmon/internal/adapter/actor"
	"github.com/berfenger/sunspecmon/internal/util/actorutil"
	"github.com/berfenger/sunspecmon/pkg/gateway"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	as      *actor.ActorSystem
	client  *gateway.TestGatewayClient
	gateway *actor.PID
	logger  *zap.Logger
}

func newTestEnv(t *testing.T, client *gateway.TestGatewayClient) *testEnv {
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewGatewayActor(client, 2*time.Second, 0, nil, logger)
	}))
	t.Cleanup(func() {
		as.Root.Stop(pid)
		as.Shutdown()
	})
	return &testEnv{as: as, client: client, gateway: pid, logger: logger}
}

func (env *testEnv) request(t *testing.T, pid *actor.PID, msg any) any {
	t.Helper()
	result, err := env.as.Root.RequestFuture(pid, msg, 5*time.Second).Result()
	if err != nil {
		t.Fatalf("request %T: %v", msg, err)
	}
	return result
}

// assertQuietAfterStop stops pid and checks its timers no longer reach the gateway.
func (env *testEnv) assertQuietAfterStop(t *testing.T, pid *actor.PID, interval time.Duration) {
	t.Helper()
	require.NoError(t, env.as.Root.StopFuture(pid).Wait())
	// let a poll already in flight settle
	time.Sleep(5 * interval)
	before := env.client.Requests()
	time.Sleep(10 * interval)
	assert.Equal(t, before, env.client.Requests())
}

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

func spawnGateway(t *testing.T, client *gateway.TestGatewayClient) (*actor.ActorSystem, *actor.PID) {
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewGatewayActor(client, 2*time.Second, 0, nil, logger)
	})
	pid := as.Root.Spawn(props)
	t.Cleanup(func() {
		as.Root.Stop(pid)
		as.Shutdown()
	})
	return as, pid
}

func TestGatewayActorFetchUnits(t *testing.T) {
	as, pid := spawnGateway(t, gateway.CreateTestGatewayClient())

	result, err := as.Root.RequestFuture(pid, domain.FetchUnitsRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	resp := result.(domain.FetchUnitsResponse)
	require.NoError(t, resp.GetResponseError())
	assert.Len(t, resp.Units.Units, 2)
}

func TestGatewayActorBootstrap(t *testing.T) {
	as, pid := spawnGateway(t, gateway.CreateTestGatewayClient())

	tag := domain.HistoryTag{Seq: 1, Period: domain.PeriodToday}
	result, err := as.Root.RequestFuture(pid, domain.FetchBootstrapRequest{Tag: tag}, 5*time.Second).Result()
	require.NoError(t, err)
	loaded, ok := result.(domain.BootstrapLoaded)
	require.True(t, ok, "%T", result)
	assert.Equal(t, tag, loaded.Tag)
	assert.Len(t, loaded.History, 2)
	assert.Equal(t, 3200.0, loaded.PowerFlow.SolarPower)
	assert.Equal(t, 12.4, loaded.Metrics.YieldToday)
	assert.Len(t, loaded.Devices.Inverters, 1)
}

func TestGatewayActorBootstrapFailure(t *testing.T) {
	client := gateway.CreateTestGatewayClient()
	client.SetErr(errors.New("connection refused"))
	as, pid := spawnGateway(t, client)

	tag := domain.HistoryTag{Seq: 4, Period: domain.Period7Days}
	result, err := as.Root.RequestFuture(pid, domain.FetchBootstrapRequest{Tag: tag}, 5*time.Second).Result()
	require.NoError(t, err)
	failed, ok := result.(domain.BootstrapFailed)
	require.True(t, ok, "%T", result)
	assert.Equal(t, tag, failed.Tag)
	assert.ErrorContains(t, failed.Err, "connection refused")
}

func TestGatewayActorHistoryKeepsTag(t *testing.T) {
	as, pid := spawnGateway(t, gateway.CreateTestGatewayClient())

	tag := domain.HistoryTag{Seq: 9, Period: domain.PeriodYesterday}
	result, err := as.Root.RequestFuture(pid, domain.FetchHistoryRequest{Tag: tag}, 5*time.Second).Result()
	require.NoError(t, err)
	loaded := result.(domain.HistoryLoaded)
	assert.Equal(t, tag, loaded.Tag)
	assert.Empty(t, loaded.Points)
}

func TestGatewayActorWrite(t *testing.T) {
	client := gateway.CreateTestGatewayClient()
	as, pid := spawnGateway(t, client)

	key := domain.PointKey{SerialNumber: "BAT0001", ModelID: 802, PointName: "SoCRsvMin"}
	write := gateway.WriteRequest{SerialNumber: "BAT0001", ModelID: 802, PointName: "SoCRsvMin", Value: "30"}
	result, err := as.Root.RequestFuture(pid, domain.WriteControlPointRequest{Key: key, Write: write}, 5*time.Second).Result()
	require.NoError(t, err)
	resp := result.(domain.WriteControlPointResponse)
	require.NoError(t, resp.GetResponseError())
	assert.True(t, resp.Result.Success)
	assert.Equal(t, []gateway.WriteRequest{write}, client.Writes())

	client.WriteReply = &gateway.WriteResponse{Success: false, Message: "out of range"}
	result, err = as.Root.RequestFuture(pid, domain.WriteControlPointRequest{Key: key, Write: write}, 5*time.Second).Result()
	require.NoError(t, err)
	resp = result.(domain.WriteControlPointResponse)
	assert.ErrorIs(t, resp.GetResponseError(), domain.ErrWriteRejected)
	assert.Equal(t, key, resp.Key)
}

func TestGatewayActorRequestsQueueWhileBusy(t *testing.T) {
	client := gateway.CreateTestGatewayClient()
	release := make(chan struct{})
	client.HistoryGate = func(period string) {
		if period == string(domain.Period30Days) {
			<-release
		}
	}
	as, pid := spawnGateway(t, client)

	slow := as.Root.RequestFuture(pid, domain.FetchHistoryRequest{Tag: domain.HistoryTag{Seq: 1, Period: domain.Period30Days}}, 5*time.Second)
	status := as.Root.RequestFuture(pid, domain.FetchStatusRequest{}, 5*time.Second)

	time.Sleep(100 * time.Millisecond)
	close(release)

	_, err := slow.Result()
	require.NoError(t, err)
	result, err := status.Result()
	require.NoError(t, err)
	resp := result.(domain.FetchStatusResponse)
	require.NoError(t, resp.GetResponseError())
	assert.True(t, resp.Status.MQTTConnected)
}

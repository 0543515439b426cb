package actor

import (
	"sync"
	"testing"
	"time"

	adactor "github.com/berfenger/sunspecmon/internal/adapter/actor"
	"github.com/berfenger/sunspecmon/internal/core/domain"
	"github.com/berfenger/sunspecmon/pkg/gateway"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []any
}

func (r *eventRecorder) record(evt any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *eventRecorder) count(match func(any) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, evt := range r.events {
		if match(evt) {
			n++
		}
	}
	return n
}

func spawnSynchronizer(t *testing.T, env *testEnv, stream *gateway.TestDashboardStream, es *eventstream.EventStream) *actor.PID {
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewSynchronizerActor(domain.PeriodToday, env.gateway, func() *adactor.StreamActor {
			return adactor.NewStreamActor(stream, 500*time.Millisecond, nil, env.logger)
		}, es, nil, env.logger)
	})
	pid := env.as.Root.Spawn(props)
	t.Cleanup(func() { env.as.Root.Stop(pid) })
	return pid
}

func (env *testEnv) snapshot(t *testing.T, pid *actor.PID) domain.DashboardSnapshot {
	return env.request(t, pid, domain.GetDashboardRequest{}).(domain.GetDashboardResponse).Snapshot
}

func TestSynchronizerBootstrapAndLive(t *testing.T) {
	env := newTestEnv(t, gateway.CreateTestGatewayClient())
	stream := gateway.CreateTestDashboardStream()
	es := &eventstream.EventStream{}
	rec := &eventRecorder{}
	es.Subscribe(rec.record)

	pid := spawnSynchronizer(t, env, stream, es)

	require.Eventually(t, func() bool {
		return env.snapshot(t, pid).Phase == domain.PhaseLive
	}, 5*time.Second, 20*time.Millisecond)

	snap := env.snapshot(t, pid)
	assert.True(t, snap.Connected)
	assert.Len(t, snap.Series, 2)
	assert.Equal(t, 12.4, snap.Metrics.YieldToday)

	<-stream.Ready()
	require.NoError(t, stream.Push(gateway.DashboardState{
		Timestamp: "2026-10-17T08:10:00Z",
		PowerFlow: gateway.PowerFlow{SolarPower: 2500, ConsumptionPower: 1000},
	}))
	// not newer than the last sample
	require.NoError(t, stream.Push(gateway.DashboardState{
		Timestamp: "2026-10-17T08:10:00Z",
		PowerFlow: gateway.PowerFlow{SolarPower: 9999},
	}))

	// the dropped sample still refreshes the displayed power flow
	require.Eventually(t, func() bool {
		snap = env.snapshot(t, pid)
		return len(snap.Series) == 3 && snap.PowerFlow.SolarPower == 9999
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, 2.5, snap.Series[2].Solar)

	assert.Eventually(t, func() bool {
		return rec.count(func(evt any) bool {
			e, ok := evt.(domain.JSONUpdateEvent)
			return ok && e.Id == domain.JSON_ID_SAMPLE
		}) == 1
	}, time.Second, 20*time.Millisecond)
}

func TestSynchronizerReconnectKeepsState(t *testing.T) {
	env := newTestEnv(t, gateway.CreateTestGatewayClient())
	stream := gateway.CreateTestDashboardStream()
	pid := spawnSynchronizer(t, env, stream, nil)

	require.Eventually(t, func() bool {
		return env.snapshot(t, pid).Phase == domain.PhaseLive
	}, 5*time.Second, 20*time.Millisecond)
	<-stream.Ready()

	require.NoError(t, stream.Drop(assert.AnError))
	require.Eventually(t, func() bool {
		snap := env.snapshot(t, pid)
		return snap.Phase == domain.PhaseReconnecting && !snap.Connected
	}, 2*time.Second, 20*time.Millisecond)
	assert.Len(t, env.snapshot(t, pid).Series, 2)

	require.NoError(t, stream.Reconnect())
	require.Eventually(t, func() bool {
		return env.snapshot(t, pid).Phase == domain.PhaseLive
	}, 2*time.Second, 20*time.Millisecond)
	assert.Len(t, env.snapshot(t, pid).Series, 2)
}

func TestSynchronizerSelectPeriod(t *testing.T) {
	client := gateway.CreateTestGatewayClient()
	client.History["7days"] = &gateway.HistoryResponse{
		Period: "7days",
		Data: []gateway.HistoryDataPoint{
			{Timestamp: "2026-10-12T00:00:00Z", Solar: 20},
			{Timestamp: "2026-10-11T00:00:00Z", Solar: 18},
		},
	}
	env := newTestEnv(t, client)
	pid := spawnSynchronizer(t, env, gateway.CreateTestDashboardStream(), nil)

	require.Eventually(t, func() bool {
		return env.snapshot(t, pid).Phase == domain.PhaseLive
	}, 5*time.Second, 20*time.Millisecond)

	resp := env.request(t, pid, domain.SelectPeriodRequest{Period: domain.Period7Days}).(domain.SelectPeriodResponse)
	require.NoError(t, resp.GetResponseError())
	assert.Equal(t, domain.Period7Days, resp.Period)

	require.Eventually(t, func() bool {
		snap := env.snapshot(t, pid)
		return !snap.HistoryLoading && len(snap.Series) == 2
	}, 2*time.Second, 20*time.Millisecond)
	series := env.snapshot(t, pid).Series
	assert.Less(t, series[0].TimestampMs, series[1].TimestampMs)

	bad := env.request(t, pid, domain.SelectPeriodRequest{Period: "fortnight"}).(domain.SelectPeriodResponse)
	assert.ErrorIs(t, bad.GetResponseError(), domain.ErrUnknownPeriod)
}

func TestSynchronizerBootstrapFailureAndRetry(t *testing.T) {
	client := gateway.CreateTestGatewayClient()
	client.SetErr(assert.AnError)
	env := newTestEnv(t, client)
	pid := spawnSynchronizer(t, env, gateway.CreateTestDashboardStream(), nil)

	require.Eventually(t, func() bool {
		return env.snapshot(t, pid).Phase == domain.PhaseFailed
	}, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, env.snapshot(t, pid).Error, domain.ErrBootstrapFailure.Error())

	health := env.request(t, pid, domain.ActorHealthRequest{}).(domain.ActorHealthResponse)
	assert.False(t, health.Healthy)

	client.SetErr(nil)
	env.request(t, pid, domain.RetryBootstrapRequest{})
	require.Eventually(t, func() bool {
		return env.snapshot(t, pid).Phase == domain.PhaseLive
	}, 5*time.Second, 20*time.Millisecond)
}

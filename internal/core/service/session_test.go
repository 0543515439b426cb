package service

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/berfenger/sunspecmon/internal/core/domain"
	"github.com/berfenger/sunspecmon/pkg/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

func stateAt(offset time.Duration, solarW float64) domain.StreamStateReceived {
	return domain.StreamStateReceived{State: gateway.DashboardState{
		PowerFlow: gateway.PowerFlow{SolarPower: solarW, ConsumptionPower: 500},
		Timestamp: baseTime.Add(offset).Format(time.RFC3339Nano),
	}}
}

func historyAt(offsets ...time.Duration) []gateway.HistoryDataPoint {
	points := make([]gateway.HistoryDataPoint, 0, len(offsets))
	for _, o := range offsets {
		points = append(points, gateway.HistoryDataPoint{Timestamp: baseTime.Add(o).Format(time.RFC3339), Solar: 1})
	}
	return points
}

// liveSession returns a session that finished bootstrap with a connected stream.
func liveSession(t *testing.T, history ...gateway.HistoryDataPoint) *Session {
	s := NewSession(domain.PeriodToday)
	eff := s.Handle(domain.BootstrapRequested{})
	require.NotNil(t, eff.FetchBootstrap)
	s.Handle(domain.StreamConnected{})
	s.Handle(domain.BootstrapLoaded{Tag: *eff.FetchBootstrap, History: history})
	require.Equal(t, domain.PhaseLive, s.Phase())
	return s
}

func assertStrictlyIncreasing(t *testing.T, series []domain.Sample) {
	for i := 1; i < len(series); i++ {
		assert.Greater(t, series[i].TimestampMs, series[i-1].TimestampMs)
	}
}

func TestBootstrapThenLive(t *testing.T) {
	s := NewSession(domain.PeriodToday)
	assert.Equal(t, domain.PhaseBootstrapping, s.Phase())

	eff := s.Handle(domain.BootstrapRequested{})
	require.NotNil(t, eff.FetchBootstrap)
	assert.Equal(t, domain.PeriodToday, eff.FetchBootstrap.Period)

	// a second request while in flight does nothing
	assert.Nil(t, s.Handle(domain.BootstrapRequested{}).FetchBootstrap)

	eff = s.Handle(domain.BootstrapLoaded{
		Tag:       *eff.FetchBootstrap,
		PowerFlow: gateway.PowerFlow{SolarPower: 1000},
		History:   historyAt(time.Minute, 0, time.Minute),
	})
	require.NotNil(t, eff.PhaseChanged)
	assert.Equal(t, domain.PhaseReconnecting, *eff.PhaseChanged)

	snap := s.Snapshot()
	assert.Len(t, snap.Series, 2)
	assertStrictlyIncreasing(t, snap.Series)
	assert.False(t, snap.HistoryLoading)

	eff = s.Handle(domain.StreamConnected{})
	require.NotNil(t, eff.ConnectionChanged)
	assert.True(t, *eff.ConnectionChanged)
	assert.Equal(t, domain.PhaseLive, s.Phase())

	eff = s.Handle(stateAt(2*time.Minute, 2500))
	require.NotNil(t, eff.Appended)
	assert.InDelta(t, 2.5, eff.Appended.Solar, 1e-9)
	assert.InDelta(t, 0.5, eff.Appended.Consumption, 1e-9)
	assert.Len(t, s.Snapshot().Series, 3)
}

func TestBootstrapFailureAndRetry(t *testing.T) {
	s := NewSession(domain.PeriodToday)
	eff := s.Handle(domain.BootstrapRequested{})
	tag := *eff.FetchBootstrap

	eff = s.Handle(domain.BootstrapFailed{Tag: tag, Err: errors.New("connection refused")})
	require.Error(t, eff.Failure)
	assert.ErrorIs(t, eff.Failure, domain.ErrBootstrapFailure)
	assert.Equal(t, domain.PhaseFailed, s.Phase())
	assert.Contains(t, s.Snapshot().Error, "connection refused")

	// stream events keep the connection flag but never leave FAILED
	s.Handle(stateAt(0, 100))
	assert.Equal(t, domain.PhaseFailed, s.Phase())
	assert.Empty(t, s.Snapshot().Series)

	eff = s.Handle(domain.BootstrapRequested{})
	require.NotNil(t, eff.FetchBootstrap)
	assert.NotEqual(t, tag, *eff.FetchBootstrap)
	assert.Equal(t, domain.PhaseBootstrapping, s.Phase())
	assert.Empty(t, s.Snapshot().Error)

	s.Handle(domain.BootstrapLoaded{Tag: *eff.FetchBootstrap})
	assert.Equal(t, domain.PhaseLive, s.Phase())
}

func TestNonIncreasingSampleDropped(t *testing.T) {
	s := liveSession(t, historyAt(0, time.Minute)...)

	eff := s.Handle(stateAt(time.Minute, 100))
	assert.True(t, eff.Discarded)
	assert.Nil(t, eff.Appended)

	eff = s.Handle(stateAt(30*time.Second, 100))
	assert.True(t, eff.Discarded)
	assert.Len(t, s.Snapshot().Series, 2)

	eff = s.Handle(domain.StreamStateReceived{State: gateway.DashboardState{Timestamp: "not a time"}})
	assert.True(t, eff.Discarded)
	assert.Len(t, s.Snapshot().Series, 2)
}

func TestSeriesMonotonicUnderAnyInterleaving(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		s := liveSession(t, historyAt(0, 5*time.Second)...)

		events := make([]domain.SessionEvent, 0, 40)
		for i := 0; i < 30; i++ {
			events = append(events, stateAt(time.Duration(rng.Intn(60))*time.Second, 100))
		}
		events = append(events,
			domain.StreamDisconnected{Err: errors.New("eof")},
			domain.StreamConnected{},
			domain.StreamDisconnected{},
			domain.StreamConnected{},
		)
		rng.Shuffle(len(events), func(i, j int) { events[i], events[j] = events[j], events[i] })

		for _, ev := range events {
			s.Handle(ev)
			assertStrictlyIncreasing(t, s.Snapshot().Series)
		}
	}
}

func TestPeriodSwitchBackToTodayStartsEmpty(t *testing.T) {
	s := liveSession(t, historyAt(0)...)
	s.Handle(stateAt(time.Minute, 100))
	require.Len(t, s.Snapshot().Series, 2)

	eff := s.Handle(domain.PeriodSelected{Period: domain.Period7Days})
	require.NotNil(t, eff.FetchHistory)
	assert.Empty(t, s.Snapshot().Series)
	assert.True(t, s.Snapshot().HistoryLoading)

	// live events do not feed non-today periods
	assert.Nil(t, s.Handle(stateAt(2*time.Minute, 100)).Appended)

	eff = s.Handle(domain.PeriodSelected{Period: domain.PeriodToday})
	require.NotNil(t, eff.FetchHistory)
	today := *eff.FetchHistory
	assert.Empty(t, s.Snapshot().Series)

	// samples missed while away are not replayed
	require.NotNil(t, s.Handle(stateAt(10*time.Minute, 100)).Appended)
	series := s.Snapshot().Series
	require.Len(t, series, 1)
	assert.Equal(t, baseTime.Add(10*time.Minute).UnixMilli(), series[0].TimestampMs)

	// the today history keeps live samples it does not reach
	eff = s.Handle(domain.HistoryLoaded{Tag: today, Points: historyAt(0, 5*time.Minute)})
	assert.False(t, eff.Stale)
	series = s.Snapshot().Series
	require.Len(t, series, 3)
	assertStrictlyIncreasing(t, series)
	assert.Equal(t, baseTime.Add(10*time.Minute).UnixMilli(), series[2].TimestampMs)

	eff = s.Handle(stateAt(7*time.Minute, 100))
	assert.Nil(t, eff.Appended)
	assert.True(t, eff.Discarded)
	require.NotNil(t, s.Handle(stateAt(11*time.Minute, 100)).Appended)
	assert.Len(t, s.Snapshot().Series, 4)
}

func TestTodayHistoryCoversLiveSamples(t *testing.T) {
	s := liveSession(t)
	s.Handle(domain.PeriodSelected{Period: domain.PeriodYesterday})
	today := *s.Handle(domain.PeriodSelected{Period: domain.PeriodToday}).FetchHistory

	require.NotNil(t, s.Handle(stateAt(3*time.Minute, 100)).Appended)
	s.Handle(domain.HistoryLoaded{Tag: today, Points: historyAt(0, 5*time.Minute)})
	series := s.Snapshot().Series
	require.Len(t, series, 2)
	assert.Equal(t, baseTime.Add(5*time.Minute).UnixMilli(), series[1].TimestampMs)

	// nothing at or before the history tail is accepted afterwards
	assert.Nil(t, s.Handle(stateAt(4*time.Minute, 100)).Appended)
	assert.Nil(t, s.Handle(stateAt(5*time.Minute, 100)).Appended)
	require.NotNil(t, s.Handle(stateAt(6*time.Minute, 100)).Appended)
}

func TestStaleHistoryDiscarded(t *testing.T) {
	s := liveSession(t)

	first := *s.Handle(domain.PeriodSelected{Period: domain.Period7Days}).FetchHistory
	second := *s.Handle(domain.PeriodSelected{Period: domain.Period30Days}).FetchHistory

	eff := s.Handle(domain.HistoryLoaded{Tag: first, Points: historyAt(0, time.Hour)})
	assert.True(t, eff.Stale)
	assert.Empty(t, s.Snapshot().Series)

	eff = s.Handle(domain.HistoryLoaded{Tag: second, Points: historyAt(time.Hour, 0)})
	assert.False(t, eff.Stale)
	series := s.Snapshot().Series
	assert.Len(t, series, 2)
	assertStrictlyIncreasing(t, series)

	// the same tag twice is a duplicate delivery
	assert.True(t, s.Handle(domain.HistoryLoaded{Tag: second}).Stale)
	assert.Len(t, s.Snapshot().Series, 2)
}

func TestStaleHistoryFailureIgnored(t *testing.T) {
	s := liveSession(t)
	first := *s.Handle(domain.PeriodSelected{Period: domain.PeriodYesterday}).FetchHistory
	s.Handle(domain.PeriodSelected{Period: domain.Period12Months})

	eff := s.Handle(domain.HistoryFailed{Tag: first, Err: errors.New("timeout")})
	assert.True(t, eff.Stale)
	assert.NoError(t, eff.Failure)
	assert.Empty(t, s.Snapshot().Error)
}

func TestReconnectKeepsState(t *testing.T) {
	s := liveSession(t, historyAt(0)...)
	s.Handle(stateAt(time.Minute, 100))

	eff := s.Handle(domain.StreamDisconnected{Err: errors.New("eof")})
	require.NotNil(t, eff.PhaseChanged)
	assert.Equal(t, domain.PhaseReconnecting, *eff.PhaseChanged)
	snap := s.Snapshot()
	assert.False(t, snap.Connected)
	assert.Len(t, snap.Series, 2)

	eff = s.Handle(domain.StreamConnected{})
	assert.Nil(t, eff.FetchBootstrap)
	assert.Equal(t, domain.PhaseLive, s.Phase())
	assert.Len(t, s.Snapshot().Series, 2)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := liveSession(t, historyAt(0, time.Minute)...)
	snap := s.Snapshot()
	snap.Series[0].Solar = 99
	assert.NotEqual(t, 99.0, s.Snapshot().Series[0].Solar)
}

func TestBootstrapIgnoredWhenPeriodChangedMidFlight(t *testing.T) {
	s := NewSession(domain.PeriodToday)
	boot := *s.Handle(domain.BootstrapRequested{}).FetchBootstrap
	hist := *s.Handle(domain.PeriodSelected{Period: domain.Period7Days}).FetchHistory

	eff := s.Handle(domain.BootstrapLoaded{Tag: boot, History: historyAt(0)})
	assert.True(t, eff.Stale)
	assert.Empty(t, s.Snapshot().Series)
	assert.Equal(t, domain.PhaseReconnecting, s.Phase())

	s.Handle(domain.HistoryLoaded{Tag: hist, Points: historyAt(0, time.Hour, 2*time.Hour)})
	assert.Len(t, s.Snapshot().Series, 3)
}

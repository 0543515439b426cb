package service

import (
	"fmt"
	"sort"

	"github.com/berfenger/sunspecmon/internal/core/domain"
	"github.com/berfenger/sunspecmon/internal/core/port"
	"github.com/berfenger/sunspecmon/pkg/gateway"
)

// Session is the dashboard reducer. Every input goes through Handle, which is
// the only place the retained series changes.
type Session struct {
	phase     domain.SessionPhase
	period    domain.Period
	connected bool

	seq         uint64
	pending     *domain.HistoryTag
	bootstrapIn bool

	series    []domain.Sample
	devices   gateway.DashboardDevices
	metrics   gateway.DashboardMetrics
	powerFlow gateway.PowerFlow
	alerts    []gateway.DeviceAlert
	controls  []gateway.QuickControl
	updated   string
	lastErr   error
}

func NewSession(period domain.Period) *Session {
	return &Session{
		phase:  domain.PhaseBootstrapping,
		period: period,
	}
}

func (s *Session) Phase() domain.SessionPhase {
	return s.phase
}

func (s *Session) Period() domain.Period {
	return s.period
}

func (s *Session) Connected() bool {
	return s.connected
}

func (s *Session) Handle(ev domain.SessionEvent) domain.SessionEffect {
	switch e := ev.(type) {
	case domain.BootstrapRequested:
		return s.onBootstrapRequested()
	case domain.BootstrapLoaded:
		return s.onBootstrapLoaded(e)
	case domain.BootstrapFailed:
		return s.onBootstrapFailed(e)
	case domain.PeriodSelected:
		return s.onPeriodSelected(e)
	case domain.HistoryLoaded:
		return s.onHistoryLoaded(e)
	case domain.HistoryFailed:
		return s.onHistoryFailed(e)
	case domain.StreamConnected:
		return s.onStreamConnected()
	case domain.StreamDisconnected:
		return s.onStreamDisconnected(e)
	case domain.StreamStateReceived:
		return s.onStreamState(e)
	}
	return domain.SessionEffect{}
}

func (s *Session) onBootstrapRequested() domain.SessionEffect {
	if s.bootstrapIn || s.phase == domain.PhaseLive || s.phase == domain.PhaseReconnecting {
		return domain.SessionEffect{}
	}
	var eff domain.SessionEffect
	s.setPhase(domain.PhaseBootstrapping, &eff)
	s.lastErr = nil
	s.bootstrapIn = true
	tag := s.nextTag()
	eff.FetchBootstrap = &tag
	return eff
}

func (s *Session) onBootstrapLoaded(e domain.BootstrapLoaded) domain.SessionEffect {
	var eff domain.SessionEffect
	if !s.bootstrapIn || s.phase != domain.PhaseBootstrapping {
		eff.Stale = true
		return eff
	}
	s.bootstrapIn = false
	if s.updated == "" {
		// the stream has not delivered anything newer yet
		s.devices = e.Devices
		s.metrics = e.Metrics
		s.powerFlow = e.PowerFlow
	}
	if s.isCurrent(e.Tag) {
		s.series = normalizeHistory(e.History)
		s.pending = nil
	} else {
		// the period changed while bootstrapping; its own fetch is in flight
		eff.Stale = true
	}
	if s.connected {
		s.setPhase(domain.PhaseLive, &eff)
	} else {
		s.setPhase(domain.PhaseReconnecting, &eff)
	}
	return eff
}

func (s *Session) onBootstrapFailed(e domain.BootstrapFailed) domain.SessionEffect {
	var eff domain.SessionEffect
	if !s.bootstrapIn {
		eff.Stale = true
		return eff
	}
	s.bootstrapIn = false
	s.pending = nil
	s.lastErr = fmt.Errorf("%w: %w", domain.ErrBootstrapFailure, e.Err)
	s.setPhase(domain.PhaseFailed, &eff)
	eff.Failure = s.lastErr
	return eff
}

func (s *Session) onPeriodSelected(e domain.PeriodSelected) domain.SessionEffect {
	var eff domain.SessionEffect
	if e.Period == s.period {
		return eff
	}
	s.period = e.Period
	s.series = nil
	if s.phase == domain.PhaseFailed {
		// picked up by the next bootstrap
		return eff
	}
	tag := s.nextTag()
	eff.FetchHistory = &tag
	return eff
}

func (s *Session) onHistoryLoaded(e domain.HistoryLoaded) domain.SessionEffect {
	var eff domain.SessionEffect
	if !s.isCurrent(e.Tag) {
		eff.Stale = true
		return eff
	}
	series := normalizeHistory(e.Points)
	if s.period == domain.PeriodToday {
		// live samples appended while the fetch was in flight were already
		// published; keep the ones the history does not reach
		series = appendNewer(series, s.series)
	}
	s.series = series
	s.pending = nil
	return eff
}

// appendNewer appends the samples of tail later than the last sample of series.
// Both inputs are strictly increasing.
func appendNewer(series, tail []domain.Sample) []domain.Sample {
	if len(series) == 0 {
		return append(series, tail...)
	}
	last := series[len(series)-1].TimestampMs
	for i, sample := range tail {
		if sample.TimestampMs > last {
			return append(series, tail[i:]...)
		}
	}
	return series
}

func (s *Session) onHistoryFailed(e domain.HistoryFailed) domain.SessionEffect {
	var eff domain.SessionEffect
	if !s.isCurrent(e.Tag) {
		eff.Stale = true
		return eff
	}
	s.pending = nil
	s.lastErr = e.Err
	eff.Failure = e.Err
	return eff
}

func (s *Session) onStreamConnected() domain.SessionEffect {
	var eff domain.SessionEffect
	s.setConnected(true, &eff)
	if s.phase == domain.PhaseReconnecting {
		s.setPhase(domain.PhaseLive, &eff)
	}
	return eff
}

func (s *Session) onStreamDisconnected(e domain.StreamDisconnected) domain.SessionEffect {
	var eff domain.SessionEffect
	s.setConnected(false, &eff)
	if s.phase == domain.PhaseLive {
		s.setPhase(domain.PhaseReconnecting, &eff)
	}
	return eff
}

func (s *Session) onStreamState(e domain.StreamStateReceived) domain.SessionEffect {
	var eff domain.SessionEffect
	s.setConnected(true, &eff)
	if s.phase == domain.PhaseFailed {
		return eff
	}
	if s.phase == domain.PhaseReconnecting {
		s.setPhase(domain.PhaseLive, &eff)
	}

	st := e.State
	s.devices = st.Devices
	s.metrics = st.Metrics
	s.powerFlow = st.PowerFlow
	s.alerts = st.Alerts
	s.controls = st.Controls
	s.updated = st.Timestamp

	if s.phase != domain.PhaseLive || s.period != domain.PeriodToday {
		return eff
	}
	sample, err := domain.SampleFromState(st)
	if err != nil {
		eff.Discarded = true
		return eff
	}
	if n := len(s.series); n > 0 && sample.TimestampMs <= s.series[n-1].TimestampMs {
		eff.Discarded = true
		return eff
	}
	s.series = append(s.series, sample)
	eff.Appended = &sample
	return eff
}

func (s *Session) Snapshot() domain.DashboardSnapshot {
	snap := domain.DashboardSnapshot{
		Phase:          s.phase,
		Period:         s.period,
		Connected:      s.connected,
		HistoryLoading: s.pending != nil,
		Devices:        cloneDevices(s.devices),
		Metrics:        s.metrics,
		PowerFlow:      s.powerFlow,
		Alerts:         append([]gateway.DeviceAlert(nil), s.alerts...),
		QuickControls:  append([]gateway.QuickControl(nil), s.controls...),
		LastUpdate:     s.updated,
		Series:         append([]domain.Sample{}, s.series...),
	}
	if s.lastErr != nil {
		snap.Error = s.lastErr.Error()
	}
	return snap
}

func (s *Session) nextTag() domain.HistoryTag {
	s.seq++
	tag := domain.HistoryTag{Seq: s.seq, Period: s.period}
	s.pending = &tag
	return tag
}

func (s *Session) isCurrent(tag domain.HistoryTag) bool {
	return s.pending != nil && *s.pending == tag && tag.Period == s.period
}

func (s *Session) setPhase(phase domain.SessionPhase, eff *domain.SessionEffect) {
	if s.phase != phase {
		s.phase = phase
		eff.PhaseChanged = &phase
	}
}

func (s *Session) setConnected(connected bool, eff *domain.SessionEffect) {
	if s.connected != connected {
		s.connected = connected
		eff.ConnectionChanged = &connected
	}
}

// normalizeHistory orders history by timestamp and drops repeated or
// unparseable timestamps, keeping the first occurrence.
func normalizeHistory(points []gateway.HistoryDataPoint) []domain.Sample {
	samples := make([]domain.Sample, 0, len(points))
	for _, p := range points {
		sample, err := domain.SampleFromHistory(p)
		if err != nil {
			continue
		}
		samples = append(samples, sample)
	}
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].TimestampMs < samples[j].TimestampMs
	})
	result := samples[:0]
	for _, sample := range samples {
		if n := len(result); n > 0 && result[n-1].TimestampMs == sample.TimestampMs {
			continue
		}
		result = append(result, sample)
	}
	return result
}

func cloneDevices(d gateway.DashboardDevices) gateway.DashboardDevices {
	return gateway.DashboardDevices{
		Inverters: append([]gateway.DeviceData(nil), d.Inverters...),
		PVLinks:   append([]gateway.DeviceData(nil), d.PVLinks...),
		Batteries: append([]gateway.DeviceData(nil), d.Batteries...),
	}
}

// ensure interface compliance
var _ port.DashboardSession = (*Session)(nil)

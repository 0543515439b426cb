package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sunspecmon"

// Metrics holds the collectors shared by the actors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	gatewayRequests *prometheus.CounterVec   // by operation and status (ok/error)
	gatewayDuration *prometheus.HistogramVec // by operation

	samples        *prometheus.CounterVec // by outcome (appended/discarded)
	staleResponses prometheus.Counter
	streamUp       prometheus.Gauge
	sessionPhase   *prometheus.GaugeVec // by phase, 1 for the current one

	controlWrites *prometheus.CounterVec // by result (succeeded/failed/rejected)
	catalogPoints prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		gatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Total number of gateway REST requests",
		}, []string{"operation", "status"}),

		gatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Gateway REST request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),

		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "samples_total",
			Help:      "Live samples received from the push stream",
		}, []string{"outcome"}),

		staleResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "stale_responses_total",
			Help:      "Responses dropped because a newer request superseded them",
		}),

		streamUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "stream_connected",
			Help:      "1 when the push stream is connected",
		}),

		sessionPhase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "session_phase",
			Help:      "Current dashboard session phase",
		}, []string{"phase"}),

		controlWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "controls",
			Name:      "writes_total",
			Help:      "Control point writes by result",
		}, []string{"result"}),

		catalogPoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "points",
			Help:      "Distinct points in the catalog",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.gatewayRequests, m.gatewayDuration, m.samples, m.staleResponses,
		m.streamUp, m.sessionPhase, m.controlWrites, m.catalogPoints,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) RecordGatewayRequest(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.gatewayRequests.WithLabelValues(operation, status).Inc()
	m.gatewayDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) RecordSample(appended bool) {
	if m == nil {
		return
	}
	if appended {
		m.samples.WithLabelValues("appended").Inc()
	} else {
		m.samples.WithLabelValues("discarded").Inc()
	}
}

func (m *Metrics) RecordStale() {
	if m == nil {
		return
	}
	m.staleResponses.Inc()
}

func (m *Metrics) SetStreamConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.streamUp.Set(1)
	} else {
		m.streamUp.Set(0)
	}
}

// SetPhase marks phase as the current one and clears the others.
func (m *Metrics) SetPhase(phase string, all []string) {
	if m == nil {
		return
	}
	for _, p := range all {
		m.sessionPhase.WithLabelValues(p).Set(0)
	}
	m.sessionPhase.WithLabelValues(phase).Set(1)
}

func (m *Metrics) RecordControlWrite(result string) {
	if m == nil {
		return
	}
	m.controlWrites.WithLabelValues(result).Inc()
}

func (m *Metrics) SetCatalogPoints(n int) {
	if m == nil {
		return
	}
	m.catalogPoints.Set(float64(n))
}

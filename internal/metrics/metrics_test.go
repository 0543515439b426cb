package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordGatewayRequest("units", nil, time.Second)
	m.RecordSample(true)
	m.RecordStale()
	m.SetStreamConnected(true)
	m.SetPhase("live", []string{"live"})
	m.RecordControlWrite("succeeded")
	m.SetCatalogPoints(3)

	m, err := New(nil)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.RecordGatewayRequest("history", nil, 10*time.Millisecond)
	m.RecordGatewayRequest("history", errors.New("boom"), 10*time.Millisecond)
	m.RecordSample(true)
	m.RecordSample(true)
	m.RecordSample(false)
	m.RecordStale()
	m.SetStreamConnected(true)
	m.SetPhase("live", []string{"bootstrapping", "live"})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.gatewayRequests.WithLabelValues("history", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.samples.WithLabelValues("appended")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.samples.WithLabelValues("discarded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.staleResponses))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.streamUp))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.sessionPhase.WithLabelValues("bootstrapping")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionPhase.WithLabelValues("live")))

	// registering twice is an error
	_, err = New(reg)
	assert.Error(t, err)
}

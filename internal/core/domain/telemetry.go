package domain

import (
	"fmt"

	"github.com/berfenger/sunspecmon/pkg/gateway"
)

type Period string

const (
	PeriodToday     Period = "today"
	PeriodYesterday Period = "yesterday"
	Period7Days     Period = "7days"
	Period30Days    Period = "30days"
	Period12Months  Period = "12months"
)

var Periods = []Period{PeriodToday, PeriodYesterday, Period7Days, Period30Days, Period12Months}

func ParsePeriod(s string) (Period, error) {
	for _, p := range Periods {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
}

// Sample is one point of the telemetry series. Powers are in kW.
type Sample struct {
	TimestampMs int64   `json:"timestamp_ms"`
	Solar       float64 `json:"solar"`
	Battery     float64 `json:"battery"`
	Grid        float64 `json:"grid"`
	Consumption float64 `json:"consumption"`
}

// SampleFromState derives a sample from a stream event. The stream reports watts.
func SampleFromState(state gateway.DashboardState) (Sample, error) {
	ts, err := gateway.ParseTimestamp(state.Timestamp)
	if err != nil {
		return Sample{}, err
	}
	pf := state.PowerFlow
	return Sample{
		TimestampMs: ts.UnixMilli(),
		Solar:       pf.SolarPower / 1000,
		Battery:     pf.BatteryPower / 1000,
		Grid:        pf.GridPower / 1000,
		Consumption: pf.ConsumptionPower / 1000,
	}, nil
}

// SampleFromHistory converts a history point. History is already aggregated in kW.
func SampleFromHistory(p gateway.HistoryDataPoint) (Sample, error) {
	ts, err := gateway.ParseTimestamp(p.Timestamp)
	if err != nil {
		return Sample{}, err
	}
	return Sample{
		TimestampMs: ts.UnixMilli(),
		Solar:       p.Solar,
		Battery:     p.Battery,
		Grid:        p.Grid,
		Consumption: p.Consumption,
	}, nil
}

type SessionPhase string

const (
	PhaseBootstrapping SessionPhase = "bootstrapping"
	PhaseLive          SessionPhase = "live"
	PhaseReconnecting  SessionPhase = "reconnecting"
	PhaseFailed        SessionPhase = "failed"
)

// HistoryTag identifies one in-flight history fetch.
type HistoryTag struct {
	Seq    uint64
	Period Period
}

// DashboardSnapshot is a read-only copy of the dashboard session.
type DashboardSnapshot struct {
	Phase          SessionPhase             `json:"phase"`
	Period         Period                   `json:"period"`
	Connected      bool                     `json:"connected"`
	HistoryLoading bool                     `json:"history_loading"`
	Devices        gateway.DashboardDevices `json:"devices"`
	Metrics        gateway.DashboardMetrics `json:"metrics"`
	PowerFlow      gateway.PowerFlow        `json:"power_flow"`
	Alerts         []gateway.DeviceAlert    `json:"alerts"`
	QuickControls  []gateway.QuickControl   `json:"controls"`
	LastUpdate     string                   `json:"last_update,omitempty"`
	Series         []Sample                 `json:"series"`
	Error          string                   `json:"error,omitempty"`
}

package domain

import "github.com/berfenger/sunspecmon/pkg/gateway"

// SessionEvent is the input of the dashboard session reducer. REST completions,
// stream callbacks and user intents all arrive as one of these.
type SessionEvent interface {
	sessionEvent()
}

type BootstrapRequested struct{}

type BootstrapLoaded struct {
	Tag       HistoryTag
	Devices   gateway.DashboardDevices
	Metrics   gateway.DashboardMetrics
	PowerFlow gateway.PowerFlow
	History   []gateway.HistoryDataPoint
}

type BootstrapFailed struct {
	Tag HistoryTag
	Err error
}

type PeriodSelected struct {
	Period Period
}

type HistoryLoaded struct {
	Tag    HistoryTag
	Points []gateway.HistoryDataPoint
}

type HistoryFailed struct {
	Tag HistoryTag
	Err error
}

type StreamConnected struct{}

type StreamDisconnected struct {
	Err error
}

type StreamStateReceived struct {
	State gateway.DashboardState
}

func (BootstrapRequested) sessionEvent()  {}
func (BootstrapLoaded) sessionEvent()     {}
func (BootstrapFailed) sessionEvent()     {}
func (PeriodSelected) sessionEvent()      {}
func (HistoryLoaded) sessionEvent()       {}
func (HistoryFailed) sessionEvent()       {}
func (StreamConnected) sessionEvent()     {}
func (StreamDisconnected) sessionEvent()  {}
func (StreamStateReceived) sessionEvent() {}

// SessionEffect tells the owner of a session what to do after a transition.
type SessionEffect struct {
	// FetchBootstrap asks for the devices, metrics, power-flow and history batch.
	FetchBootstrap *HistoryTag
	// FetchHistory asks for the history of a newly selected period.
	FetchHistory *HistoryTag
	Appended     *Sample
	// Discarded is set when a live sample broke monotonicity or could not be parsed.
	Discarded bool
	// Stale is set when a response for a superseded tag was dropped.
	Stale             bool
	ConnectionChanged *bool
	PhaseChanged      *SessionPhase
	Failure           error
}

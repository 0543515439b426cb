package domain

import "errors"

var (
	// ErrBootstrapFailure wraps the first error of a failed dashboard bootstrap.
	ErrBootstrapFailure = errors.New("dashboard bootstrap failed")
	// ErrStreamDisconnect is reported when the push stream drops.
	ErrStreamDisconnect = errors.New("dashboard stream disconnected")
	// ErrStaleFetch marks a response for a superseded request. It is counted, never surfaced.
	ErrStaleFetch = errors.New("stale fetch discarded")

	ErrWriteRejected        = errors.New("write rejected")
	ErrWriteInProgress      = errors.New("write in progress")
	ErrConfirmationPending  = errors.New("confirmation pending")
	ErrConfirmationMismatch = errors.New("confirmation does not match")
	ErrNothingToApply       = errors.New("staged value equals current value")
	ErrInvalidValue         = errors.New("invalid value")
	ErrUnknownPoint         = errors.New("unknown control point")

	ErrUnknownPeriod = errors.New("unknown period")
	ErrNotReady      = errors.New("not ready")
)

package domain

import (
	"fmt"

	"github.com/berfenger/sunspecmon/pkg/gateway"
	"github.com/google/uuid"
)

type PointKey struct {
	SerialNumber string `json:"serial_number"`
	ModelID      int    `json:"model_id"`
	PointName    string `json:"point_name"`
}

func KeyOf(p gateway.ControlPointState) PointKey {
	return PointKey{SerialNumber: p.SerialNumber, ModelID: p.ModelID, PointName: p.PointName}
}

func (k PointKey) String() string {
	return fmt.Sprintf("%s/%d/%s", k.SerialNumber, k.ModelID, k.PointName)
}

type TxState string

const (
	TxIdle       TxState = "idle"
	TxStaged     TxState = "staged"
	TxConfirming TxState = "confirming"
	TxApplying   TxState = "applying"
	TxSucceeded  TxState = "succeeded"
	TxFailed     TxState = "failed"
)

// Confirmation is the immutable record shown while the user decides.
type Confirmation struct {
	ID         uuid.UUID                 `json:"id"`
	Key        PointKey                  `json:"key"`
	Point      gateway.ControlPointState `json:"point"`
	Value      string                    `json:"value"`
	SymbolName string                    `json:"symbol_name,omitempty"`
}

type Notification struct {
	ID      uuid.UUID `json:"id"`
	Key     PointKey  `json:"key"`
	Success bool      `json:"success"`
	Message string    `json:"message"`
}

// ControlView is one control point as presented, with its transaction state.
type ControlView struct {
	Point        gateway.ControlPointState `json:"point"`
	Display      string                    `json:"display"`
	State        TxState                   `json:"state"`
	Pending      string                    `json:"pending,omitempty"`
	CanApply     bool                      `json:"can_apply"`
	Conflict     bool                      `json:"conflict"`
	Confirmation *Confirmation             `json:"confirmation,omitempty"`
}

type ControlGroup struct {
	Name   string        `json:"name"`
	Points []ControlView `json:"points"`
}

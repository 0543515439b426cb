package port

import (
	"github.com/berfenger/sunspecmon/internal/core/domain"
	"github.com/berfenger/sunspecmon/pkg/gateway"
	"github.com/google/uuid"
)

type ControlLedger interface {
	Refresh(points []gateway.ControlPointState) []domain.PointKey
	Stage(key domain.PointKey, value string) (domain.ControlView, error)
	RequestConfirmation(key domain.PointKey) (domain.Confirmation, error)
	Cancel(key domain.PointKey) (domain.ControlView, error)
	Confirm(key domain.PointKey, id uuid.UUID) (gateway.WriteRequest, error)
	Complete(key domain.PointKey, success bool, message string) domain.Notification
	Settle(key domain.PointKey)
	State(key domain.PointKey) domain.TxState
	Groups() []domain.ControlGroup
}

package port

import "github.com/berfenger/sunspecmon/internal/core/domain"

type DashboardSession interface {
	Handle(ev domain.SessionEvent) domain.SessionEffect
	Phase() domain.SessionPhase
	Period() domain.Period
	Snapshot() domain.DashboardSnapshot
}

package port

import (
	"github.com/berfenger/sunspecmon/internal/core/domain"
	"github.com/berfenger/sunspecmon/pkg/gateway"
)

type PointCatalog interface {
	Rebuild(units []gateway.Unit)
	Entries(filter domain.CatalogFilter) []domain.CatalogEntry
	Stats() domain.CatalogStats
}

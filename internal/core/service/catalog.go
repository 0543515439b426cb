package service

import (
	"slices"
	"sort"
	"strings"

	"github.com/berfenger/sunspecmon/internal/core/domain"
	"github.com/berfenger/sunspecmon/internal/core/port"
	"github.com/berfenger/sunspecmon/pkg/gateway"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// pointKey is the dedup identity of a point. A struct key keeps ("AB","C") and
// ("A","BC") apart.
type pointKey struct {
	name        string
	description string
}

// BuildCatalog collapses every (unit, model, point) triple into one entry per
// (name, description), sorted by name with a case-insensitive collation. Entries
// with equal names keep encounter order.
func BuildCatalog(units []gateway.Unit) []domain.CatalogEntry {
	var entries []domain.CatalogEntry
	index := make(map[pointKey]int)

	for _, unit := range units {
		for _, model := range unit.Models {
			for _, point := range model.Points {
				key := pointKey{name: point.Name, description: point.Description}
				i, ok := index[key]
				if !ok {
					index[key] = len(entries)
					entries = append(entries, domain.CatalogEntry{
						Point:  point,
						Models: []int{model.Model},
						Units:  []string{unit.Unit},
					})
					continue
				}
				entry := &entries[i]
				if !slices.Contains(entry.Models, model.Model) {
					entry.Models = append(entry.Models, model.Model)
				}
				if !slices.Contains(entry.Units, unit.Unit) {
					entry.Units = append(entry.Units, unit.Unit)
				}
			}
		}
	}

	// collators are not safe for concurrent use
	c := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(entries, func(i, j int) bool {
		return c.CompareString(entries[i].Point.Name, entries[j].Point.Name) < 0
	})
	return entries
}

// FilterCatalog keeps entries whose name or description contains search
// (case-insensitive) and, when model is set, that are exposed by that model.
func FilterCatalog(entries []domain.CatalogEntry, filter domain.CatalogFilter) []domain.CatalogEntry {
	search := strings.ToLower(filter.Search)
	result := make([]domain.CatalogEntry, 0, len(entries))
	for _, e := range entries {
		if search != "" &&
			!strings.Contains(strings.ToLower(e.Point.Name), search) &&
			!strings.Contains(strings.ToLower(e.Point.Description), search) {
			continue
		}
		if filter.Model != nil && !slices.Contains(e.Models, *filter.Model) {
			continue
		}
		result = append(result, e.Clone())
	}
	return result
}

// CatalogStatsOf counts the raw units, models and points before deduplication.
func CatalogStatsOf(units []gateway.Unit) domain.CatalogStats {
	stats := domain.CatalogStats{Units: len(units)}
	for _, u := range units {
		stats.Models += len(u.Models)
		for _, m := range u.Models {
			stats.Points += len(m.Points)
		}
	}
	return stats
}

// DefaultPointCatalog holds the last built catalog. Rebuild is its only mutation.
type DefaultPointCatalog struct {
	entries []domain.CatalogEntry
	stats   domain.CatalogStats
}

func NewPointCatalog() *DefaultPointCatalog {
	return &DefaultPointCatalog{}
}

func (c *DefaultPointCatalog) Rebuild(units []gateway.Unit) {
	c.entries = BuildCatalog(units)
	c.stats = CatalogStatsOf(units)
}

func (c *DefaultPointCatalog) Entries(filter domain.CatalogFilter) []domain.CatalogEntry {
	return FilterCatalog(c.entries, filter)
}

func (c *DefaultPointCatalog) Stats() domain.CatalogStats {
	return c.stats
}

// ensure interface compliance
var _ port.PointCatalog = (*DefaultPointCatalog)(nil)

package domain

import "github.com/berfenger/sunspecmon/pkg/gateway"

// CatalogEntry is one logical point aggregated across every unit and model
// exposing it. Models and Units keep first-seen order and hold no duplicates.
type CatalogEntry struct {
	Point  gateway.Point `json:"point"`
	Models []int         `json:"models"`
	Units  []string      `json:"units"`
}

type CatalogFilter struct {
	Search string
	Model  *int
}

type CatalogStats struct {
	Units  int `json:"units"`
	Models int `json:"models"`
	Points int `json:"points"`
}

func (e CatalogEntry) Clone() CatalogEntry {
	return CatalogEntry{
		Point:  e.Point,
		Models: append([]int(nil), e.Models...),
		Units:  append([]string(nil), e.Units...),
	}
}

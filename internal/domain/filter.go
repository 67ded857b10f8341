package domain

import (
	"strings"
	"time"
)

// Filter selects experiments from the catalog by name. With Exact set the
// whole name must match; otherwise Name and Number are both substring
// matches (Number is typically the rig number, e.g. "51").
type Filter struct {
	Name   string
	Number string
	Exact  bool
}

// Matches reports whether the experiment name satisfies the filter.
func (f Filter) Matches(name string) bool {
	if f.Exact {
		return name == f.Name
	}
	if !strings.Contains(name, f.Name) {
		return false
	}
	return f.Number == "" || strings.Contains(name, f.Number)
}

// FilterResult partitions the filtered catalog by current availability.
// Every listed name appears in exactly one of Available or Unavailable;
// Unavailable maps names to the start of their next open window.
type FilterResult struct {
	Filter      Filter
	Listed      []string
	Available   []string
	Unavailable map[string]time.Time
}

package model

import (
	"fmt"
	"strings"
)

// PageSize is fixed for every listing page.
const PageSize = 12

// ListingQuery asks for one page of a listing.
type ListingQuery struct {
	Kind       Kind              `json:"kind"`
	Page       int               `json:"page"`
	SearchTerm string            `json:"search,omitempty"`
	Filters    map[string]string `json:"filters,omitempty"`
	Location   string            `json:"location"`
}

// Validate rejects unknown kinds and filter names. Page is clamped by Normalize, not here.
func (q ListingQuery) Validate() error {
	if !q.Kind.Valid() {
		return fmt.Errorf("%w: unsupported entity type %q", ErrInvalidQuery, q.Kind)
	}
	for name := range q.Filters {
		if !q.Kind.AllowsFilter(name) {
			return fmt.Errorf("%w: filter %q not supported for %s", ErrInvalidQuery, name, q.Kind)
		}
	}
	return nil
}

// Normalize clamps the page, trims strings and drops empty filter values.
func (q ListingQuery) Normalize() ListingQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	q.SearchTerm = strings.TrimSpace(q.SearchTerm)
	q.Location = strings.TrimSpace(q.Location)
	if len(q.Filters) > 0 {
		filters := make(map[string]string, len(q.Filters))
		for k, v := range q.Filters {
			if v = strings.TrimSpace(v); v != "" {
				filters[k] = v
			}
		}
		q.Filters = filters
	}
	return q
}

// Range returns the inclusive row range [from, to] for the page.
func (q ListingQuery) Range() (from, to int) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	from = (page - 1) * PageSize
	return from, from + PageSize - 1
}

// Source tells where a result's rows came from.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
	// SourceNone marks the empty result served when no location is selected.
	SourceNone Source = "none"
)

type ListingResult struct {
	Rows       []Entity `json:"rows"`
	TotalCount int      `json:"totalCount"`
	Source     Source   `json:"source"`
}

func EmptyResult() ListingResult {
	return ListingResult{Rows: []Entity{}, Source: SourceNone}
}

// TotalPages is never below 1 so page 1 stays addressable on empty results.
func TotalPages(totalCount int) int {
	if totalCount <= 0 {
		return 1
	}
	return (totalCount + PageSize - 1) / PageSize
}

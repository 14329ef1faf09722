package model

import (
	"fmt"
	"strings"
)

// Kind names one of the listing tables.
type Kind string

const (
	KindHostel     Kind = "hostel"
	KindRestaurant Kind = "restaurant"
	KindPlace      Kind = "place"
)

// Kinds lists every supported kind in display order.
var Kinds = []Kind{KindHostel, KindRestaurant, KindPlace}

var filterNames = map[Kind][]string{
	KindHostel:     {"hostel_type", "price_range"},
	KindRestaurant: {"cuisine", "price_range"},
	KindPlace:      {"category"},
}

// ParseKind accepts the singular, plural and table spellings used by clients.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hostel", "hostels":
		return KindHostel, nil
	case "restaurant", "restaurants":
		return KindRestaurant, nil
	case "place", "places", "places_to_visit":
		return KindPlace, nil
	}
	return "", fmt.Errorf("%w: unsupported entity type %q", ErrInvalidQuery, s)
}

func (k Kind) Valid() bool {
	_, ok := filterNames[k]
	return ok
}

// Filters returns the equality filters a kind accepts.
func (k Kind) Filters() []string {
	return filterNames[k]
}

func (k Kind) AllowsFilter(name string) bool {
	for _, f := range filterNames[k] {
		if f == name {
			return true
		}
	}
	return false
}

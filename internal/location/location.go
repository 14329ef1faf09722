// Package location holds the known student towns, their spelling aliases and the
// session-scoped location selection every listing read is gated on.
package location

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Location is a town users can pick, with the alternative spellings seen in listing rows.
type Location struct {
	Name    string   `json:"name"`
	State   string   `json:"state"`
	Aliases []string `json:"aliases,omitempty"`
}

var known = []Location{
	{Name: "Rajampeta", State: "Andhra Pradesh", Aliases: []string{"rajampet"}},
	{Name: "Kadapa", State: "Andhra Pradesh", Aliases: []string{"cuddapah", "ysr kadapa"}},
	{Name: "Tirupati", State: "Andhra Pradesh", Aliases: []string{"tirupathi"}},
	{Name: "Bengaluru", State: "Karnataka", Aliases: []string{"bangalore"}},
	{Name: "Chennai", State: "Tamil Nadu", Aliases: []string{"madras"}},
	{Name: "Hyderabad", State: "Telangana", Aliases: []string{"secunderabad"}},
	{Name: "Mumbai", State: "Maharashtra", Aliases: []string{"bombay"}},
}

// maxSuggestDistance bounds how far a typo may be from a known name.
const maxSuggestDistance = 2

// Known returns a copy of the selectable locations.
func Known() []Location {
	out := make([]Location, len(known))
	copy(out, known)
	return out
}

func lookup(name string) (Location, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return Location{}, false
	}
	for _, loc := range known {
		if strings.ToLower(loc.Name) == n {
			return loc, true
		}
		for _, a := range loc.Aliases {
			if a == n {
				return loc, true
			}
		}
	}
	return Location{}, false
}

// Canonical maps an alias to its known name; unknown names come back trimmed.
func Canonical(name string) string {
	if loc, ok := lookup(name); ok {
		return loc.Name
	}
	return strings.TrimSpace(name)
}

// Aliases returns the lower-case substrings a row's city or state must contain to
// belong to the selection. Empty selection yields nil.
func Aliases(name string) []string {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return nil
	}
	loc, ok := lookup(n)
	if !ok {
		return []string{n}
	}
	out := []string{strings.ToLower(loc.Name)}
	for _, a := range loc.Aliases {
		if a != out[0] {
			out = append(out, a)
		}
	}
	return out
}

// Matches reports whether a row located at city/state falls inside the selection.
func Matches(selection, city, state string) bool {
	aliases := Aliases(selection)
	if len(aliases) == 0 {
		return false
	}
	city, state = strings.ToLower(city), strings.ToLower(state)
	for _, a := range aliases {
		if strings.Contains(city, a) || strings.Contains(state, a) {
			return true
		}
	}
	return false
}

// Suggest finds the known location closest to a misspelt name.
func Suggest(name string) (string, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", false
	}
	if loc, ok := lookup(n); ok {
		return loc.Name, true
	}
	best, bestDist := "", maxSuggestDistance+1
	for _, loc := range known {
		candidates := append([]string{strings.ToLower(loc.Name)}, loc.Aliases...)
		for _, c := range candidates {
			if d := levenshtein.ComputeDistance(n, c); d < bestDist {
				best, bestDist = loc.Name, d
			}
		}
	}
	return best, best != ""
}

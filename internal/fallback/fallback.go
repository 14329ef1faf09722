// Package fallback serves a small, static set of listings when the remote store is
// unreachable or has nothing for the current query.
package fallback

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"studenthub/internal/model"
)

//go:embed fallback.json
var datasetJSON []byte

// IDPrefix marks every fallback record.
const IDPrefix = "fallback-"

type Dataset struct {
	rows map[model.Kind][]model.Entity
}

type document struct {
	Hostels     []model.Hostel     `json:"hostels"`
	Restaurants []model.Restaurant `json:"restaurants"`
	Places      []model.Place      `json:"places"`
}

// Load parses the embedded dataset.
func Load() (*Dataset, error) {
	return Parse(datasetJSON)
}

// Parse builds a dataset from JSON, rejecting records without the fallback prefix.
func Parse(b []byte) (*Dataset, error) {
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("fallback.Parse: %w", err)
	}

	d := &Dataset{rows: make(map[model.Kind][]model.Entity, len(model.Kinds))}
	for _, h := range doc.Hostels {
		d.rows[model.KindHostel] = append(d.rows[model.KindHostel], h)
	}
	for _, r := range doc.Restaurants {
		d.rows[model.KindRestaurant] = append(d.rows[model.KindRestaurant], r)
	}
	for _, p := range doc.Places {
		d.rows[model.KindPlace] = append(d.rows[model.KindPlace], p)
	}

	for kind, rows := range d.rows {
		for _, e := range rows {
			if !IsFallbackID(e.EntityID()) {
				return nil, fmt.Errorf("fallback.Parse: %s record %q lacks %q prefix", kind, e.EntityID(), IDPrefix)
			}
		}
	}
	return d, nil
}

// Rows returns a copy of the records for kind, in dataset order.
func (d *Dataset) Rows(kind model.Kind) []model.Entity {
	rows := d.rows[kind]
	out := make([]model.Entity, len(rows))
	copy(out, rows)
	return out
}

func (d *Dataset) Get(kind model.Kind, id string) (model.Entity, bool) {
	for _, e := range d.rows[kind] {
		if e.EntityID() == id {
			return e, true
		}
	}
	return nil, false
}

func IsFallbackID(id string) bool {
	return strings.HasPrefix(id, IDPrefix)
}

package model

import "time"

// Entity is the read-side contract every listing row satisfies, whether it came
// from the remote store or the fallback dataset.
type Entity interface {
	EntityID() string
	EntityKind() Kind
	Locality() (city, state string)
	Searchable() (name, description string)
	FilterValue(name string) string
	RatingValue() float64
}

type Hostel struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Description  string    `db:"description" json:"description"`
	City         string    `db:"city" json:"city"`
	State        string    `db:"state" json:"state"`
	Address      string    `db:"address" json:"address"`
	HostelType   string    `db:"hostel_type" json:"hostel_type"` // boys/girls/co-ed
	PriceRange   string    `db:"price_range" json:"price_range"` // budget/mid/premium
	MonthlyRent  float64   `db:"monthly_rent" json:"monthly_rent"`
	Rating       float64   `db:"rating" json:"rating"`
	ImageURL     string    `db:"image_url" json:"image_url"`
	ContactPhone string    `db:"contact_phone" json:"contact_phone"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

func (h Hostel) EntityID() string             { return h.ID }
func (h Hostel) EntityKind() Kind             { return KindHostel }
func (h Hostel) Locality() (string, string)   { return h.City, h.State }
func (h Hostel) Searchable() (string, string) { return h.Name, h.Description }
func (h Hostel) RatingValue() float64         { return h.Rating }
func (h Hostel) FilterValue(name string) string {
	switch name {
	case "hostel_type":
		return h.HostelType
	case "price_range":
		return h.PriceRange
	}
	return ""
}

type Restaurant struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	City        string    `db:"city" json:"city"`
	State       string    `db:"state" json:"state"`
	Address     string    `db:"address" json:"address"`
	Cuisine     string    `db:"cuisine" json:"cuisine"`
	PriceRange  string    `db:"price_range" json:"price_range"`
	Rating      float64   `db:"rating" json:"rating"`
	ImageURL    string    `db:"image_url" json:"image_url"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

func (r Restaurant) EntityID() string             { return r.ID }
func (r Restaurant) EntityKind() Kind             { return KindRestaurant }
func (r Restaurant) Locality() (string, string)   { return r.City, r.State }
func (r Restaurant) Searchable() (string, string) { return r.Name, r.Description }
func (r Restaurant) RatingValue() float64         { return r.Rating }
func (r Restaurant) FilterValue(name string) string {
	switch name {
	case "cuisine":
		return r.Cuisine
	case "price_range":
		return r.PriceRange
	}
	return ""
}

// Place is a tourist spot (places_to_visit).
type Place struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	City        string    `db:"city" json:"city"`
	State       string    `db:"state" json:"state"`
	Category    string    `db:"category" json:"category"`
	EntryFee    float64   `db:"entry_fee" json:"entry_fee"`
	Rating      float64   `db:"rating" json:"rating"`
	ImageURL    string    `db:"image_url" json:"image_url"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

func (p Place) EntityID() string             { return p.ID }
func (p Place) EntityKind() Kind             { return KindPlace }
func (p Place) Locality() (string, string)   { return p.City, p.State }
func (p Place) Searchable() (string, string) { return p.Name, p.Description }
func (p Place) RatingValue() float64         { return p.Rating }
func (p Place) FilterValue(name string) string {
	if name == "category" {
		return p.Category
	}
	return ""
}

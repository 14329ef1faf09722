package model

import "time"

// Review represents a user’s review of a hostel, restaurant or place.
type Review struct {
	ID         string    `db:"id" json:"id"`
	EntityType string    `db:"entity_type" json:"entityType"`
	EntityID   string    `db:"entity_id" json:"entityId"`
	UserID     string    `db:"user_id" json:"userId"`
	Rating     int       `db:"rating" json:"rating"`
	Comment    string    `db:"comment" json:"comment"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

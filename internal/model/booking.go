package model

import "time"

const (
	BookingPending  = "pending"
	BookingAccepted = "accepted"
	BookingRejected = "rejected"
)

type BookingRequest struct {
	ID        string    `db:"id" json:"id"`
	HostelID  string    `db:"hostel_id" json:"hostelId"`
	UserID    string    `db:"user_id" json:"userId"`
	Message   string    `db:"message" json:"message"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

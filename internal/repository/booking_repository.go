package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"studenthub/internal/model"
)

type BookingRepository struct {
	db *sqlx.DB
}

func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Insert(ctx context.Context, b *model.BookingRequest) error {
	const q = `
		INSERT INTO booking_requests (id, hostel_id, user_id, message, status, created_at)
		VALUES (:id, :hostel_id, :user_id, :message, :status, :created_at)
	`
	if _, err := r.db.NamedExecContext(ctx, q, b); err != nil {
		return fmt.Errorf("BookingRepository.Insert: %w", classify(err))
	}
	return nil
}

// FindByUser lists a user's booking requests, newest first.
func (r *BookingRepository) FindByUser(ctx context.Context, userID string) ([]model.BookingRequest, error) {
	q := r.db.Rebind(`
		SELECT id, hostel_id, user_id, message, status, created_at
		FROM booking_requests
		WHERE user_id = ?
		ORDER BY created_at DESC
	`)
	out := []model.BookingRequest{}
	if err := r.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, fmt.Errorf("BookingRepository.FindByUser: %w", classify(err))
	}
	return out, nil
}

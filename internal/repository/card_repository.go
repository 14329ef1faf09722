package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"studenthub/internal/model"
)

// CardRepository stores the social link cards shown on profiles.
type CardRepository struct {
	db *sqlx.DB
}

func NewCardRepository(db *sqlx.DB) *CardRepository {
	return &CardRepository{db: db}
}

func (r *CardRepository) Create(ctx context.Context, c *model.Card) error {
	const q = `
		INSERT INTO cards (id, user_id, title, url, platform, created_at)
		VALUES (:id, :user_id, :title, :url, :platform, :created_at)
	`
	if _, err := r.db.NamedExecContext(ctx, q, c); err != nil {
		return fmt.Errorf("CardRepository.Create: %w", classify(err))
	}
	return nil
}

// List returns every card, or only userID's when it is set.
func (r *CardRepository) List(ctx context.Context, userID string) ([]model.Card, error) {
	query := "SELECT id, user_id, title, url, platform, created_at FROM cards"
	var args []interface{}
	if userID != "" {
		query += " WHERE user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY created_at DESC"

	out := []model.Card{}
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("CardRepository.List: %w", classify(err))
	}
	return out, nil
}

// Delete removes a card owned by userID; other users' cards report not found.
func (r *CardRepository) Delete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM cards WHERE id = ? AND user_id = ?"), id, userID)
	if err != nil {
		return fmt.Errorf("CardRepository.Delete: %w", classify(err))
	}
	return expectRow(res, "CardRepository.Delete")
}

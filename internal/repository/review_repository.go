package repository

import (
	"context"
	"fmt"
	"math"

	"github.com/jmoiron/sqlx"

	"studenthub/internal/model"
)

type ReviewRepository struct {
	db *sqlx.DB
}

func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Insert saves a review. ID and CreatedAt are assigned by the caller.
func (r *ReviewRepository) Insert(ctx context.Context, review *model.Review) error {
	const insertQuery = `
		INSERT INTO reviews (id, entity_type, entity_id, user_id, rating, comment, created_at)
		VALUES (:id, :entity_type, :entity_id, :user_id, :rating, :comment, :created_at)
	`
	if _, err := r.db.NamedExecContext(ctx, insertQuery, review); err != nil {
		return fmt.Errorf("ReviewRepository.Insert: %w", classify(err))
	}
	return nil
}

// FindByEntity returns all reviews for one listing, newest first.
func (r *ReviewRepository) FindByEntity(ctx context.Context, kind model.Kind, entityID string) ([]model.Review, error) {
	selectQuery := r.db.Rebind(`
		SELECT id, entity_type, entity_id, user_id, rating, comment, created_at
		FROM reviews
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY created_at DESC
	`)
	reviews := []model.Review{}
	if err := r.db.SelectContext(ctx, &reviews, selectQuery, string(kind), entityID); err != nil {
		return nil, fmt.Errorf("ReviewRepository.FindByEntity: %w", classify(err))
	}
	return reviews, nil
}

// RecalcAverage recomputes AVG(rating) for a listing and stores it on the listing row.
func (r *ReviewRepository) RecalcAverage(ctx context.Context, kind model.Kind, entityID string) (err error) {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ReviewRepository.BeginTxx: %w", classify(err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var avg float64
	avgQuery := tx.Rebind(`
		SELECT COALESCE(AVG(rating), 0)
		FROM reviews
		WHERE entity_type = ? AND entity_id = ?
	`)
	if err = tx.GetContext(ctx, &avg, avgQuery, string(kind), entityID); err != nil {
		return fmt.Errorf("ReviewRepository get avg: %w", classify(err))
	}
	avg = math.Round(avg*100) / 100

	updateQuery := tx.Rebind("UPDATE " + t.name + " SET rating = ? WHERE id = ?")
	if _, err = tx.ExecContext(ctx, updateQuery, avg, entityID); err != nil {
		return fmt.Errorf("ReviewRepository update avg: %w", classify(err))
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("ReviewRepository commit: %w", classify(err))
	}
	return nil
}

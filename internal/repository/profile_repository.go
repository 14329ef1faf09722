package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"studenthub/internal/model"
)

const profileColumns = "id, email, password_hash, full_name, phone, college, bio, avatar_url, role, created_at"

type ProfileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create returns model.ErrConflict when the email is taken.
func (r *ProfileRepository) Create(ctx context.Context, p *model.Profile) error {
	const q = `
		INSERT INTO profiles (id, email, password_hash, full_name, phone, college, bio, avatar_url, role, created_at)
		VALUES (:id, :email, :password_hash, :full_name, :phone, :college, :bio, :avatar_url, :role, :created_at)
	`
	if _, err := r.db.NamedExecContext(ctx, q, p); err != nil {
		return fmt.Errorf("ProfileRepository.Create: %w", classify(err))
	}
	return nil
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	return r.getBy(ctx, "id", id)
}

func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	return r.getBy(ctx, "email", email)
}

func (r *ProfileRepository) getBy(ctx context.Context, column, value string) (*model.Profile, error) {
	var p model.Profile
	q := r.db.Rebind("SELECT " + profileColumns + " FROM profiles WHERE " + column + " = ?")
	if err := r.db.GetContext(ctx, &p, q, value); err != nil {
		return nil, fmt.Errorf("ProfileRepository.GetBy %s: %w", column, classify(err))
	}
	return &p, nil
}

// Update writes the user-editable fields.
func (r *ProfileRepository) Update(ctx context.Context, p *model.Profile) error {
	const q = `
		UPDATE profiles SET
			full_name  = :full_name,
			phone      = :phone,
			college    = :college,
			bio        = :bio,
			avatar_url = :avatar_url
		WHERE id = :id
	`
	res, err := r.db.NamedExecContext(ctx, q, p)
	if err != nil {
		return fmt.Errorf("ProfileRepository.Update: %w", classify(err))
	}
	return expectRow(res, "ProfileRepository.Update")
}

package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is plain enough to run on both Postgres and SQLite.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS hostels (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		hostel_type TEXT NOT NULL DEFAULT '',
		price_range TEXT NOT NULL DEFAULT '',
		monthly_rent DOUBLE PRECISION NOT NULL DEFAULT 0,
		rating DOUBLE PRECISION NOT NULL DEFAULT 0,
		image_url TEXT NOT NULL DEFAULT '',
		contact_phone TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS restaurants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		cuisine TEXT NOT NULL DEFAULT '',
		price_range TEXT NOT NULL DEFAULT '',
		rating DOUBLE PRECISION NOT NULL DEFAULT 0,
		image_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS places_to_visit (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		entry_fee DOUBLE PRECISION NOT NULL DEFAULT 0,
		rating DOUBLE PRECISION NOT NULL DEFAULT 0,
		image_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id TEXT PRIMARY KEY,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		rating INTEGER NOT NULL,
		comment TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reviews_entity ON reviews(entity_type, entity_id)`,
	`CREATE TABLE IF NOT EXISTS booking_requests (
		id TEXT PRIMARY KEY,
		hostel_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		message TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_booking_requests_user ON booking_requests(user_id)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		college TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'USER',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cards (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		platform TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cards_user ON cards(user_id)`,
}

// EnsureSchema creates any missing tables. Hosted deployments are provisioned
// out of band; this is for local and test databases.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

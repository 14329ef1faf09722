package model

import "time"

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type Profile struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"fullName"`
	Phone        string    `db:"phone" json:"phone"`
	College      string    `db:"college" json:"college"`
	Bio          string    `db:"bio" json:"bio"`
	AvatarURL    string    `db:"avatar_url" json:"avatarUrl"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Card is a social link shown on a profile.
type Card struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	Title     string    `db:"title" json:"title"`
	URL       string    `db:"url" json:"url"`
	Platform  string    `db:"platform" json:"platform"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Actor is the authenticated caller, as carried by a bearer token.
type Actor struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

func (a *Actor) HasRole(role string) bool {
	if a == nil {
		return false
	}
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// StoredFile describes an object in a storage bucket.
type StoredFile struct {
	ID         string    `json:"id"`
	Bucket     string    `json:"bucket"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
	URL        string    `json:"url"`
}

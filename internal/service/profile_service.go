package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"studenthub/internal/model"
	"studenthub/internal/repository"
)

type ProfileInput struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	College  string `json:"college"`
	Bio      string `json:"bio"`
}

type CardInput struct {
	Title string `json:"title" binding:"required,max=80"`
	URL   string `json:"url" binding:"required,url"`
}

// ProfileService manages a user's profile and social link cards.
type ProfileService struct {
	profiles *repository.ProfileRepository
	cards    *repository.CardRepository
}

func NewProfileService(pr *repository.ProfileRepository, cr *repository.CardRepository) *ProfileService {
	return &ProfileService{profiles: pr, cards: cr}
}

func (s *ProfileService) Get(ctx context.Context, actor *model.Actor) (*model.Profile, error) {
	if actor == nil {
		return nil, fmt.Errorf("ProfileService.Get: %w", model.ErrAuthRequired)
	}
	p, err := s.profiles.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("ProfileService.Get: %w", err)
	}
	return p, nil
}

func (s *ProfileService) Update(ctx context.Context, actor *model.Actor, in ProfileInput) (*model.Profile, error) {
	p, err := s.Get(ctx, actor)
	if err != nil {
		return nil, err
	}
	p.FullName = strings.TrimSpace(in.FullName)
	p.Phone = strings.TrimSpace(in.Phone)
	p.College = strings.TrimSpace(in.College)
	p.Bio = strings.TrimSpace(in.Bio)
	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("ProfileService.Update: %w", err)
	}
	return p, nil
}

// ListCards returns every card, or one user's when userID is set.
func (s *ProfileService) ListCards(ctx context.Context, userID string) ([]model.Card, error) {
	cards, err := s.cards.List(ctx, strings.TrimSpace(userID))
	if err != nil {
		return nil, fmt.Errorf("ProfileService.ListCards: %w", err)
	}
	return cards, nil
}

func (s *ProfileService) AddCard(ctx context.Context, actor *model.Actor, in CardInput) (*model.Card, error) {
	if actor == nil {
		return nil, fmt.Errorf("ProfileService.AddCard: %w", model.ErrAuthRequired)
	}
	in.Title, in.URL = strings.TrimSpace(in.Title), strings.TrimSpace(in.URL)
	if err := validateInput(in); err != nil {
		return nil, fmt.Errorf("ProfileService.AddCard: %w", err)
	}
	u, err := url.Parse(in.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("ProfileService.AddCard: %w", model.Invalid("url", "must be an http(s) link"))
	}

	card := &model.Card{
		ID:        uuid.NewString(),
		UserID:    actor.ID,
		Title:     in.Title,
		URL:       u.String(),
		Platform:  platformOf(u.Hostname()),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.cards.Create(ctx, card); err != nil {
		return nil, fmt.Errorf("ProfileService.AddCard: %w", err)
	}
	return card, nil
}

func (s *ProfileService) DeleteCard(ctx context.Context, actor *model.Actor, id string) error {
	if actor == nil {
		return fmt.Errorf("ProfileService.DeleteCard: %w", model.ErrAuthRequired)
	}
	if err := s.cards.Delete(ctx, id, actor.ID); err != nil {
		return fmt.Errorf("ProfileService.DeleteCard: %w", err)
	}
	return nil
}

var platforms = map[string]string{
	"github.com":    "github",
	"linkedin.com":  "linkedin",
	"instagram.com": "instagram",
	"twitter.com":   "twitter",
	"x.com":         "twitter",
	"youtube.com":   "youtube",
}

func platformOf(host string) string {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	if p, ok := platforms[host]; ok {
		return p
	}
	return "website"
}

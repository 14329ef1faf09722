package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"studenthub/internal/fallback"
	"studenthub/internal/messaging"
	"studenthub/internal/model"
	"studenthub/internal/repository"
)

// DetailView is a single listing with its reviews.
type DetailView struct {
	Entity  model.Entity   `json:"entity"`
	Reviews []model.Review `json:"reviews"`
	Source  model.Source   `json:"source"`
}

type ReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type BookingInput struct {
	Message string `json:"message"`
}

// BookingReceipt is a stored booking request plus the chat link handed to the
// student. ChatLink is empty when the hostel has no usable phone number.
type BookingReceipt struct {
	Booking  model.BookingRequest `json:"booking"`
	ChatLink string               `json:"chatLink,omitempty"`
}

// DetailService backs the listing detail page: loading, reviews and booking requests.
type DetailService struct {
	listings *repository.ListingRepository
	reviews  *repository.ReviewRepository
	bookings *repository.BookingRepository
	fallback *fallback.Dataset
	logger   *zap.Logger
}

func NewDetailService(
	lr *repository.ListingRepository,
	rr *repository.ReviewRepository,
	br *repository.BookingRepository,
	fb *fallback.Dataset,
	logger *zap.Logger,
) *DetailService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DetailService{
		listings: lr,
		reviews:  rr,
		bookings: br,
		fallback: fb,
		logger:   logger.Named("detail"),
	}
}

// Load fetches the entity and its reviews concurrently. Fallback ids are served
// from the static dataset and never have reviews.
func (s *DetailService) Load(ctx context.Context, kind model.Kind, id string) (*DetailView, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("DetailService.Load: %w: unsupported entity type %q", model.ErrInvalidQuery, kind)
	}
	if fallback.IsFallbackID(id) {
		if s.fallback != nil {
			if e, ok := s.fallback.Get(kind, id); ok {
				return &DetailView{Entity: e, Reviews: []model.Review{}, Source: model.SourceFallback}, nil
			}
		}
		return nil, fmt.Errorf("DetailService.Load: %s %s: %w", kind, id, model.ErrNotFound)
	}

	view := &DetailView{Source: model.SourceRemote}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		e, err := s.listings.GetByID(gctx, kind, id)
		if err != nil {
			return err
		}
		view.Entity = e
		return nil
	})
	g.Go(func() error {
		reviews, err := s.reviews.FindByEntity(gctx, kind, id)
		if err != nil {
			return err
		}
		view.Reviews = reviews
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("DetailService.Load: %w", err)
	}
	return view, nil
}

// SubmitReview stores a review by actor, refreshes the entity's average rating and
// returns the entity's reviews, newest first.
func (s *DetailService) SubmitReview(ctx context.Context, actor *model.Actor, kind model.Kind, id string, in ReviewInput) ([]model.Review, error) {
	if actor == nil {
		return nil, fmt.Errorf("DetailService.SubmitReview: %w", model.ErrAuthRequired)
	}
	in.Comment = strings.TrimSpace(in.Comment)
	if in.Rating < 1 || in.Rating > 5 {
		return nil, fmt.Errorf("DetailService.SubmitReview: %w", model.Invalid("rating", "must be between 1 and 5"))
	}
	if in.Comment == "" {
		return nil, fmt.Errorf("DetailService.SubmitReview: %w", model.Invalid("comment", "required"))
	}

	exists, err := s.listings.Exists(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("DetailService.SubmitReview: checking %s exists: %w", kind, err)
	}
	if !exists {
		return nil, fmt.Errorf("DetailService.SubmitReview: %s %s: %w", kind, id, model.ErrNotFound)
	}

	rev := &model.Review{
		ID:         uuid.NewString(),
		EntityType: string(kind),
		EntityID:   id,
		UserID:     actor.ID,
		Rating:     in.Rating,
		Comment:    in.Comment,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.reviews.Insert(ctx, rev); err != nil {
		return nil, fmt.Errorf("DetailService.SubmitReview: insert: %w", err)
	}
	if err := s.reviews.RecalcAverage(ctx, kind, id); err != nil {
		return nil, fmt.Errorf("DetailService.SubmitReview: recalc average: %w", err)
	}

	reviews, err := s.reviews.FindByEntity(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("DetailService.SubmitReview: reload: %w", err)
	}
	return reviews, nil
}

// SubmitBookingRequest records a pending booking for a hostel. A failed chat
// hand-off is logged and leaves the booking in place.
func (s *DetailService) SubmitBookingRequest(ctx context.Context, actor *model.Actor, hostelID string, in BookingInput) (*BookingReceipt, error) {
	if actor == nil {
		return nil, fmt.Errorf("DetailService.SubmitBookingRequest: %w", model.ErrAuthRequired)
	}
	in.Message = strings.TrimSpace(in.Message)
	if in.Message == "" {
		return nil, fmt.Errorf("DetailService.SubmitBookingRequest: %w", model.Invalid("message", "required"))
	}

	e, err := s.listings.GetByID(ctx, model.KindHostel, hostelID)
	if err != nil {
		return nil, fmt.Errorf("DetailService.SubmitBookingRequest: %w", err)
	}
	hostel := e.(model.Hostel)

	booking := model.BookingRequest{
		ID:        uuid.NewString(),
		HostelID:  hostelID,
		UserID:    actor.ID,
		Message:   in.Message,
		Status:    model.BookingPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.bookings.Insert(ctx, &booking); err != nil {
		return nil, fmt.Errorf("DetailService.SubmitBookingRequest: insert: %w", err)
	}

	receipt := &BookingReceipt{Booking: booking}
	text := fmt.Sprintf("Hi, I just sent a booking request for %s on StudentHub: %s", hostel.Name, in.Message)
	link, err := messaging.ChatLink(hostel.ContactPhone, text)
	switch {
	case errors.Is(err, messaging.ErrNoPhone):
		s.logger.Info("hostel has no contact phone, skipping chat hand-off",
			zap.String("hostel_id", hostelID), zap.String("booking_id", booking.ID))
	case err != nil:
		s.logger.Warn("chat hand-off failed",
			zap.String("booking_id", booking.ID), zap.Error(err))
	default:
		receipt.ChatLink = link
	}
	return receipt, nil
}

// ListBookings returns the actor's own booking requests, newest first.
func (s *DetailService) ListBookings(ctx context.Context, actor *model.Actor) ([]model.BookingRequest, error) {
	if actor == nil {
		return nil, fmt.Errorf("DetailService.ListBookings: %w", model.ErrAuthRequired)
	}
	out, err := s.bookings.FindByUser(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("DetailService.ListBookings: %w", err)
	}
	return out, nil
}

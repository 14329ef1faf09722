package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"studenthub/internal/model"
	"studenthub/internal/repository"
)

// TokenIssuer signs bearer tokens for authenticated actors.
type TokenIssuer interface {
	Issue(actor model.Actor) (string, error)
}

// SignupInput is bound straight from the signup request. bcrypt ignores
// anything past 72 bytes, hence the password cap.
type SignupInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	FullName string `json:"fullName" binding:"max=120"`
}

// AuthService handles email/password accounts.
type AuthService struct {
	profiles *repository.ProfileRepository
	tokens   TokenIssuer
	logger   *zap.Logger
	cost     int
}

func NewAuthService(pr *repository.ProfileRepository, tokens TokenIssuer, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		profiles: pr,
		tokens:   tokens,
		logger:   logger.Named("auth"),
		cost:     bcrypt.DefaultCost,
	}
}

func ActorOf(p *model.Profile) model.Actor {
	return model.Actor{ID: p.ID, Email: p.Email, Roles: []string{p.Role}}
}

// Signup creates a USER profile and returns it with a fresh token.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*model.Profile, string, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateInput(in); err != nil {
		return nil, "", fmt.Errorf("AuthService.Signup: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, "", fmt.Errorf("AuthService.Signup: hash: %w", err)
	}
	p := &model.Profile{
		ID:           uuid.NewString(),
		Email:        in.Email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(in.FullName),
		Role:         model.RoleUser,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		return nil, "", fmt.Errorf("AuthService.Signup: %w", err)
	}

	token, err := s.tokens.Issue(ActorOf(p))
	if err != nil {
		return nil, "", fmt.Errorf("AuthService.Signup: token: %w", err)
	}
	s.logger.Info("profile created", zap.String("user_id", p.ID))
	return p, token, nil
}

// Signin checks the password and returns a token. Unknown emails and wrong
// passwords fail the same way.
func (s *AuthService) Signin(ctx context.Context, email, password string) (*model.Profile, string, error) {
	badCredentials := fmt.Errorf("AuthService.Signin: %w: invalid email or password", model.ErrAuthRequired)

	p, err := s.profiles.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, model.ErrNotFound) {
		return nil, "", badCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("AuthService.Signin: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return nil, "", badCredentials
	}

	token, err := s.tokens.Issue(ActorOf(p))
	if err != nil {
		return nil, "", fmt.Errorf("AuthService.Signin: token: %w", err)
	}
	return p, token, nil
}

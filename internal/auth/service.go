package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/orderflow/internal/shared"
)

// ErrUserNotFound is returned for unknown or unapproved users.
var ErrUserNotFound = fmt.Errorf("auth: user %w", shared.ErrNotFound)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id int64) (User, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	tokens *TokenIssuer
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenIssuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, tokens: tokens, logger: logger}
}

// Login validates email/password credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Session{}, shared.ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !user.IsActive || user.ApprovalStatus != ApprovalApproved {
		return Session{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, shared.ErrInvalidCredentials
	}
	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("user logged in", slog.Int64("user_id", user.ID))
	return Session{Token: token, ExpiresAt: expires, Principal: user.Principal()}, nil
}

// Authenticate resolves a bearer credential to the calling principal.
func (s *Service) Authenticate(ctx context.Context, bearer string) (shared.Principal, error) {
	raw, ok := strings.CutPrefix(strings.TrimSpace(bearer), "Bearer ")
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return shared.Principal{}, shared.ErrUnauthorized
	}
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return shared.Principal{}, err
	}
	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.Principal{}, ErrUserNotFound
		}
		return shared.Principal{}, err
	}
	if !user.IsActive || user.ApprovalStatus != ApprovalApproved {
		return shared.Principal{}, ErrUserNotFound
	}
	return user.Principal(), nil
}

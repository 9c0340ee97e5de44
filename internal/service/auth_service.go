package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-manager/internal/auth"
	"github.com/spec-kit/ticket-manager/internal/config"
	"github.com/spec-kit/ticket-manager/internal/domain"
	"github.com/spec-kit/ticket-manager/internal/repository"
	apperrors "github.com/spec-kit/ticket-manager/pkg/util"
)

// AuthService handles handler login and profile lookup. Every login failure
// mode surfaces the same message so credentials cannot be probed.
type AuthService struct {
	users      repository.UserRepository
	categories repository.CategoryRepository
	tokenMgr   *auth.TokenManager
}

// AuthDependencies bundles collaborators for the auth service.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	CategoryRepo repository.CategoryRepository
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		categories: deps.CategoryRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLHours),
	}
}

// LoginResult carries the authenticated user plus the issued token.
type LoginResult struct {
	User      *domain.User
	Category  *domain.Category
	Token     string
	ExpiresAt time.Time
}

// Login authenticates a handler by email and password and stamps
// last_login_at.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{
			"email":    "required",
			"password": "required",
		})
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if !user.IsActive {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	now := time.Now()
	if err := s.users.RecordLogin(ctx, user.ID, now); err != nil {
		return nil, apperrors.MapError(err)
	}
	user.LastLoginAt = &now

	token, expiresAt, err := s.tokenMgr.GenerateToken(user.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	result := &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}
	if user.CategoryID != nil {
		category, err := s.categories.GetByID(ctx, *user.CategoryID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
		result.Category = category
	}
	return result, nil
}

// Profile returns the current handler with category resolved.
func (s *AuthService) Profile(ctx context.Context, actor domain.Identity) (*domain.User, *domain.Category, error) {
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("user", nil)
		}
		return nil, nil, apperrors.MapError(err)
	}

	var category *domain.Category
	if user.CategoryID != nil {
		category, err = s.categories.GetByID(ctx, *user.CategoryID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.MapError(err)
		}
	}
	return user, category, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

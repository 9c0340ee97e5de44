package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-manager/internal/auth"
	"github.com/spec-kit/ticket-manager/internal/config"
	"github.com/spec-kit/ticket-manager/internal/domain"
)

func newAuthFixture(t *testing.T) (*fixture, *AuthService) {
	t.Helper()
	f := newFixture()
	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLHours: 1}}
	svc := NewAuthService(cfg, AuthDependencies{UserRepo: f.users, CategoryRepo: f.categories})

	// Fixture users are created without credentials; give the tech admin one.
	hash, err := auth.HashPassword("password123", 4)
	require.NoError(t, err)
	user := f.users.users[f.techAdmin.ID]
	user.PasswordHash = hash
	f.users.users[f.techAdmin.ID] = user

	return f, svc
}

func TestLoginSuccess(t *testing.T) {
	f, svc := newAuthFixture(t)

	result, err := svc.Login(context.Background(), "Tech@Example.com", "password123")
	require.NoError(t, err)
	require.Equal(t, f.techAdmin.ID, result.User.ID)
	require.NotEmpty(t, result.Token)
	require.NotNil(t, result.User.LastLoginAt, "login stamps last_login_at")
	require.NotNil(t, result.Category)
	require.Equal(t, f.techCategory.ID, result.Category.ID)

	claims, err := svc.TokenManager().ParseToken(result.Token)
	require.NoError(t, err)
	require.Equal(t, f.techAdmin.ID, claims.UserID)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f, svc := newAuthFixture(t)
	ctx := context.Background()

	_, wrongPassword := svc.Login(ctx, "tech@example.com", "wrong")
	_, unknownEmail := svc.Login(ctx, "ghost@example.com", "password123")

	user := f.users.users[f.techAdmin.ID]
	user.IsActive = false
	f.users.users[f.techAdmin.ID] = user
	_, inactive := svc.Login(ctx, "tech@example.com", "password123")

	for _, err := range []error{wrongPassword, unknownEmail, inactive} {
		require.Error(t, err)
		require.Equal(t, "UNAUTHORIZED", domainCode(t, err))
		require.EqualError(t, err, "invalid credentials")
	}
}

func TestLoginValidatesInput(t *testing.T) {
	_, svc := newAuthFixture(t)

	_, err := svc.Login(context.Background(), "", "")
	require.Error(t, err)
	require.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
}

func TestProfileResolvesCategory(t *testing.T) {
	f, svc := newAuthFixture(t)

	user, category, err := svc.Profile(context.Background(), f.identity(f.techAdmin))
	require.NoError(t, err)
	require.Equal(t, f.techAdmin.Email, user.Email)
	require.NotNil(t, category)
	require.Equal(t, "Technical Support", category.Name)

	superUser, superCategory, err := svc.Profile(context.Background(), f.identity(f.superadmin))
	require.NoError(t, err)
	require.Equal(t, domain.RoleSuperadmin, superUser.Role)
	require.Nil(t, superCategory)
}

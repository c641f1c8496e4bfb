package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasbiaat/api/internal/config"
	"tasbiaat/api/internal/domain"
	"tasbiaat/api/internal/models"
	"tasbiaat/api/internal/security"
)

func testSecurityConfig() *config.AppConfig {
	return &config.AppConfig{
		Security: config.SecurityConfig{
			JWTSecret:   "test secret",
			JWTTTL:      time.Hour,
			SessionTTL:  24 * time.Hour,
			MaxSessions: 3,
		},
	}
}

type authFixture struct {
	users    *fakeUserStore
	sessions *fakeSessionStore
	svc      *AuthService
	user     models.User
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	hash, err := security.HashPassword("swordfish pass")
	require.NoError(t, err)

	email := "saalik@example.com"
	user := models.User{
		ID:           "saalik-1",
		Name:         "Saalik One",
		Phone:        "+920000000001",
		Email:        &email,
		PasswordHash: hash,
		Role:         domain.RoleSaalik,
		IsActive:     true,
	}

	users := newFakeUserStore(user)
	sessions := newFakeSessionStore()
	svc := NewAuthService(users, sessions, &fakeAuditStore{}, testSecurityConfig(), zerolog.Nop())

	return &authFixture{users: users, sessions: sessions, svc: svc, user: user}
}

func TestLoginByPhoneAndEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	result, err := f.svc.Login(ctx, LoginInput{
		Identifier: "+920000000001",
		Password:   "swordfish pass",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, f.user.ID, result.User.ID)

	claims, err := security.ParseAccessToken(result.Token, "test secret")
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, claims.UserID)

	// The token is backed by a live session.
	session, err := f.sessions.GetByTokenID(ctx, claims.TokenID)
	require.NoError(t, err)
	assert.True(t, session.IsActive)

	_, err = f.svc.Login(ctx, LoginInput{
		Identifier: "saalik@example.com",
		Password:   "swordfish pass",
	})
	require.NoError(t, err)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Login(ctx, LoginInput{Identifier: "+920000000001", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, domain.KindAuthorization, domain.KindOf(err))

	_, err = f.svc.Login(ctx, LoginInput{Identifier: "unknown@example.com", Password: "whatever"})
	require.Error(t, err)
	assert.Equal(t, domain.KindAuthorization, domain.KindOf(err))
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	require.NoError(t, f.users.SetActive(ctx, f.user.ID, false))

	_, err := f.svc.Login(ctx, LoginInput{Identifier: "+920000000001", Password: "swordfish pass"})
	require.Error(t, err)
	assert.Equal(t, domain.KindAuthorization, domain.KindOf(err))
}

func TestLoginEvictsOldestSessionAtCap(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := f.svc.Login(ctx, LoginInput{
			Identifier: "+920000000001",
			Password:   "swordfish pass",
			DeviceName: fmt.Sprintf("device-%d", i),
		})
		require.NoError(t, err)
	}

	count, err := f.sessions.CountActiveByUser(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestLogoutDeactivatesSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	result, err := f.svc.Login(ctx, LoginInput{Identifier: "+920000000001", Password: "swordfish pass"})
	require.NoError(t, err)

	claims, err := security.ParseAccessToken(result.Token, "test secret")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, f.user, claims.TokenID))

	session, err := f.sessions.GetByTokenID(ctx, claims.TokenID)
	require.NoError(t, err)
	assert.False(t, session.IsActive)
}

func TestChangePasswordRevokesOtherSessions(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	first, err := f.svc.Login(ctx, LoginInput{Identifier: "+920000000001", Password: "swordfish pass"})
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, LoginInput{Identifier: "+920000000001", Password: "swordfish pass"})
	require.NoError(t, err)

	firstClaims, err := security.ParseAccessToken(first.Token, "test secret")
	require.NoError(t, err)

	user, err := f.users.GetByID(ctx, f.user.ID)
	require.NoError(t, err)
	err = f.svc.ChangePassword(ctx, user, ChangePasswordInput{
		CurrentPassword: "swordfish pass",
		NewPassword:     "a brand new password",
		KeepTokenID:     firstClaims.TokenID,
	})
	require.NoError(t, err)

	count, err := f.sessions.CountActiveByUser(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Old password no longer works, the new one does.
	_, err = f.svc.Login(ctx, LoginInput{Identifier: "+920000000001", Password: "swordfish pass"})
	require.Error(t, err)
	_, err = f.svc.Login(ctx, LoginInput{Identifier: "+920000000001", Password: "a brand new password"})
	require.NoError(t, err)
}

func TestChangePasswordRejectsWrongCurrent(t *testing.T) {
	f := newAuthFixture(t)

	err := f.svc.ChangePassword(context.Background(), f.user, ChangePasswordInput{
		CurrentPassword: "wrong",
		NewPassword:     "a brand new password",
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindAuthorization, domain.KindOf(err))
}

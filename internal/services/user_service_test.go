package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-backend/internal/apperrors"
	"rental-backend/internal/auth"
	"rental-backend/internal/config"
	"rental-backend/internal/models"
)

func newUserService(t *testing.T) (*UserService, *memDB) {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpirationHours = 1
	db := newMemDB()
	return NewUserService(memUsers{db}, auth.NewJWTManager(cfg)), db
}

func TestSignupAndLogin(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	resp, err := svc.Signup(ctx, &models.SignupRequest{
		Name:     "Ana Reyes",
		Email:    " Ana@Example.com ",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, models.RoleTenant, resp.User.Role)
	assert.Equal(t, "ana@example.com", resp.User.Email)

	claims, err := svc.JWTManager.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)

	login, err := svc.Login(ctx, &models.LoginRequest{Email: "ANA@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)

	_, err = svc.Login(ctx, &models.LoginRequest{Email: "ana@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperrors.Unauthorized)
	_, err = svc.Login(ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, apperrors.Unauthorized)
}

func TestSignupRejectsDuplicatesAndAdminRole(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	req := &models.SignupRequest{Name: "Ben", Email: "ben@example.com", Password: "password1", Role: models.RoleOwner}

	resp, err := svc.Signup(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, resp.User.Role)

	_, err = svc.Signup(ctx, req)
	assert.ErrorIs(t, err, apperrors.Validation)

	_, err = svc.Signup(ctx, &models.SignupRequest{Name: "Eve", Email: "eve@example.com", Password: "password1", Role: models.RoleAdmin})
	assert.ErrorIs(t, err, apperrors.Validation)
}

func TestLoginSuspendedAccount(t *testing.T) {
	svc, db := newUserService(t)
	ctx := context.Background()

	resp, err := svc.Signup(ctx, &models.SignupRequest{Name: "Cai", Email: "cai@example.com", Password: "password1"})
	require.NoError(t, err)

	db.mu.Lock()
	u := db.users[resp.User.ID]
	u.IsActive = false
	db.users[u.ID] = u
	db.mu.Unlock()

	_, err = svc.Login(ctx, &models.LoginRequest{Email: "cai@example.com", Password: "password1"})
	assert.ErrorIs(t, err, apperrors.Forbidden)
}

package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-backend/internal/config"
	"rental-backend/internal/models"
)

func testConfig(secret string) *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = secret
	cfg.JWT.ExpirationHours = 1
	cfg.JWT.Issuer = "rental-backend-test"
	return cfg
}

func TestGenerateAndValidateToken(t *testing.T) {
	m := NewJWTManager(testConfig("s3cret"))
	token, err := m.GenerateToken(&models.User{ID: 9, Email: "owner@example.com", Role: models.RoleOwner})
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: 9, Role: models.RoleOwner}, claims.Principal)
	assert.Equal(t, "owner@example.com", claims.Email)
	assert.Equal(t, "9", claims.Subject)
	assert.Equal(t, "rental-backend-test", claims.Issuer)
}

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, c *Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, c).SignedString(key)
	require.NoError(t, err)
	return tok
}

func TestValidateTokenRejects(t *testing.T) {
	m := NewJWTManager(testConfig("s3cret"))
	valid := func() *Claims {
		return &Claims{
			Principal: Principal{UserID: 4, Role: models.RoleTenant},
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "4",
				Issuer:    "rental-backend-test",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
	}
	_, err := m.ValidateToken(sign(t, jwt.SigningMethodHS256, []byte("s3cret"), valid()))
	require.NoError(t, err)

	tests := []struct {
		name   string
		method jwt.SigningMethod
		mutate func(c *Claims)
	}{
		{"other issuer", jwt.SigningMethodHS256, func(c *Claims) { c.Issuer = "someone-else" }},
		{"expired", jwt.SigningMethodHS256, func(c *Claims) { c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute)) }},
		{"no expiry", jwt.SigningMethodHS256, func(c *Claims) { c.ExpiresAt = nil }},
		{"no user", jwt.SigningMethodHS256, func(c *Claims) { c.UserID = 0 }},
		{"unknown role", jwt.SigningMethodHS256, func(c *Claims) { c.Role = "superuser" }},
		{"subject mismatch", jwt.SigningMethodHS256, func(c *Claims) { c.Subject = "5" }},
		{"other hmac size", jwt.SigningMethodHS512, func(c *Claims) {}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			_, err := m.ValidateToken(sign(t, tt.method, []byte("s3cret"), c))
			assert.Error(t, err)
		})
	}
}

func TestValidateTokenRejectsOtherSecret(t *testing.T) {
	token, err := NewJWTManager(testConfig("a")).GenerateToken(&models.User{ID: 1, Role: models.RoleTenant})
	require.NoError(t, err)

	_, err = NewJWTManager(testConfig("b")).ValidateToken(token)
	assert.Error(t, err)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "correct horse"))
	assert.False(t, VerifyPassword(hash, "wrong"))
}

func TestPrincipalPropertyRights(t *testing.T) {
	prop := &models.Property{ID: 1, OwnerID: 5}

	assert.True(t, Principal{UserID: 5, Role: models.RoleOwner}.CanManageProperty(prop))
	assert.False(t, Principal{UserID: 6, Role: models.RoleOwner}.CanManageProperty(prop))
	assert.False(t, Principal{UserID: 5, Role: models.RoleTenant}.CanManageProperty(prop))
	assert.True(t, Principal{UserID: 99, Role: models.RoleAdmin}.CanManageProperty(prop))
}

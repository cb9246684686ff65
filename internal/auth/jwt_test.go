package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService("test-secret-key-for-testing-purposes", 15*time.Minute)
}

func TestNewJWTService(t *testing.T) {
	service := newTestJWTService()
	assert.NotNil(t, service)
}

func TestJWTService_GenerateAccessToken_Success(t *testing.T) {
	service := newTestJWTService()

	token, expiresAt, err := service.GenerateAccessToken("user-123", "warehouse-1", "warehouse")

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))
	assert.True(t, expiresAt.Before(time.Now().Add(16*time.Minute)))
}

func TestJWTService_ValidateAccessToken_Valid(t *testing.T) {
	service := newTestJWTService()

	token, _, err := service.GenerateAccessToken("user-456", "warehouse-2", "admin")
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(token)

	require.NoError(t, err)
	assert.Equal(t, "user-456", claims.UserID)
	assert.Equal(t, "warehouse-2", claims.ProfileID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "user-456", claims.Subject)
}

func TestJWTService_ValidateAccessToken_Expired(t *testing.T) {
	service := NewJWTService("test-secret", time.Millisecond)

	token, _, err := service.GenerateAccessToken("user-123", "warehouse-1", "warehouse")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	claims, err := service.ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Nil(t, claims)
}

func TestJWTService_ValidateAccessToken_NoProfile(t *testing.T) {
	service := newTestJWTService()

	token, _, err := service.GenerateAccessToken("user-123", "", "warehouse")
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrNoProfile)
	assert.Nil(t, claims)
}

func TestJWTService_ValidateAccessToken_Invalid(t *testing.T) {
	service := newTestJWTService()

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"random string", "not-a-valid-token"},
		{"malformed JWT", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}

func TestJWTService_ValidateAccessToken_WrongSignature(t *testing.T) {
	issuer := NewJWTService("secret-key-1", 15*time.Minute)
	verifier := NewJWTService("secret-key-2", 15*time.Minute)

	token, _, err := issuer.GenerateAccessToken("user-123", "warehouse-1", "warehouse")
	require.NoError(t, err)

	claims, err := verifier.ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}

func TestJWTService_ValidateAccessToken_WrongAlgorithm(t *testing.T) {
	service := newTestJWTService()

	token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		UserID:    "user-123",
		ProfileID: "warehouse-1",
		Role:      "warehouse",
	})
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(tokenString)

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}

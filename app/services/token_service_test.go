// Package services provides external service integrations and technical concerns like tokens and exports
package services

import (
	"strings"
	"testing"
	"time"

	"github.com/nemaec/obra-erp/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestTokenService creates a token service for testing with symmetric key
func createTestTokenService() (TokenService, error) {
	return NewTokenService(
		15*time.Minute,
		7*24*time.Hour,
		"test-issuer",
		"test-audience",
		false, // useRSAKeys
		"",    // privateKeyPEM
		"",    // publicKeyPEM
		"test-secret-key-for-jwt-signing-32-chars", // secretKey
	)
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name        string
		useRSAKeys  bool
		secretKey   string
		expectError bool
	}{
		{
			name:        "valid symmetric key configuration",
			secretKey:   "test-secret-key-for-jwt-signing-32-chars",
			expectError: false,
		},
		{
			name:        "missing secret key",
			secretKey:   "",
			expectError: true,
		},
		{
			name:        "rsa requested without keys",
			useRSAKeys:  true,
			secretKey:   "",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewTokenService(
				15*time.Minute,
				7*24*time.Hour,
				"test-issuer",
				"test-audience",
				tt.useRSAKeys,
				"",
				"",
				tt.secretKey,
			)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}

func TestGenerateTokens(t *testing.T) {
	svc, err := createTestTokenService()
	require.NoError(t, err)

	access, refresh, err := svc.GenerateTokens(42, models.RolMonitor)
	require.NoError(t, err)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)
	assert.NotEqual(t, access, refresh)
	assert.Len(t, strings.Split(access, "."), 3)
}

func TestValidateToken(t *testing.T) {
	svc, err := createTestTokenService()
	require.NoError(t, err)

	access, refresh, err := svc.GenerateTokens(42, models.RolAutoridad)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UsuarioID)
	assert.Equal(t, models.RolAutoridad, claims.Rol)
	assert.Equal(t, "access", claims.TokenType)
	assert.NotEmpty(t, claims.TokenID)

	refreshClaims, err := svc.ValidateToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "refresh", refreshClaims.TokenType)
	assert.NotEqual(t, claims.TokenID, refreshClaims.TokenID)
}

func TestValidateToken_InvalidInput(t *testing.T) {
	svc, err := createTestTokenService()
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"not a jwt", "not-a-token"},
		{"truncated jwt", "eyJhbGciOiJIUzI1NiJ9.payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token)
			assert.Error(t, err)
		})
	}
}

func TestValidateToken_ForeignSignature(t *testing.T) {
	svc, err := createTestTokenService()
	require.NoError(t, err)

	other, err := NewTokenService(
		15*time.Minute,
		7*24*time.Hour,
		"test-issuer",
		"test-audience",
		false,
		"",
		"",
		"another-secret-key-for-jwt-signing-32-ch",
	)
	require.NoError(t, err)

	access, _, err := other.GenerateTokens(7, models.RolMonitor)
	require.NoError(t, err)

	_, err = svc.ValidateToken(access)
	assert.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	svc, err := NewTokenService(
		-time.Minute,
		7*24*time.Hour,
		"test-issuer",
		"test-audience",
		false,
		"",
		"",
		"test-secret-key-for-jwt-signing-32-chars",
	)
	require.NoError(t, err)

	access, _, err := svc.GenerateTokens(42, models.RolMonitor)
	require.NoError(t, err)

	_, err = svc.ValidateToken(access)
	assert.Error(t, err)
}

func TestRefreshToken(t *testing.T) {
	svc, err := createTestTokenService()
	require.NoError(t, err)

	_, refresh, err := svc.GenerateTokens(42, models.RolMonitor)
	require.NoError(t, err)

	newAccess, newRefresh, err := svc.RefreshToken(refresh)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(newAccess)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UsuarioID)
	assert.Equal(t, "access", claims.TokenType)
	assert.NotEqual(t, refresh, newRefresh)
}

func TestRefreshToken_RejectsAccessToken(t *testing.T) {
	svc, err := createTestTokenService()
	require.NoError(t, err)

	access, _, err := svc.GenerateTokens(42, models.RolMonitor)
	require.NoError(t, err)

	_, _, err = svc.RefreshToken(access)
	assert.Error(t, err)
}

func TestRevokeToken(t *testing.T) {
	svc, err := createTestTokenService()
	require.NoError(t, err)

	access, _, err := svc.GenerateTokens(42, models.RolMonitor)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(access)
	require.NoError(t, err)

	require.NoError(t, svc.RevokeToken(access))
	assert.True(t, svc.IsTokenRevoked(claims.TokenID))

	_, err = svc.ValidateToken(access)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

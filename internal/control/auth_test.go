package control

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateSessionSecret_PersistsAcrossCalls(t *testing.T) {
	root := t.TempDir()

	first, err := LoadOrCreateSessionSecret(root)
	require.NoError(t, err)
	assert.Len(t, first, sessionSecretLen)

	second, err := LoadOrCreateSessionSecret(root)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateAndValidateToken_RoundTrip(t *testing.T) {
	secret := []byte("test-secret-value-not-random-ok")

	token, err := GenerateToken(secret, "cli-1", time.Minute)
	require.NoError(t, err)

	claims, err := ValidateToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "cli-1", claims.ClientID)
}

func TestValidateToken_RejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken([]byte("secret-a-secret-a-secret-a-secr"), "cli-1", time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken([]byte("secret-b-secret-b-secret-b-secr"), token)
	assert.Error(t, err)
}

func TestValidateToken_RejectsExpiredToken(t *testing.T) {
	secret := []byte("test-secret-value-not-random-ok")
	token, err := GenerateToken(secret, "cli-1", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(secret, token)
	assert.Error(t, err)
}

func TestExtractBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/status", nil)
	req.Header.Set("Authorization", "Bearer abc123")

	token, err := extractBearerToken(req)
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)
}

func TestExtractBearerToken_MissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/status", nil)
	_, err := extractBearerToken(req)
	assert.Error(t, err)
}

func TestExtractBearerToken_WrongScheme(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/status", nil)
	req.Header.Set("Authorization", "Basic abc123")
	_, err := extractBearerToken(req)
	assert.Error(t, err)
}

package ingress

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndAuthenticateRoundTrip(t *testing.T) {
	auth := NewAuthenticator("test-secret")
	token, err := auth.IssueToken("wallet-1", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	wallet, err := auth.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, "wallet-1", wallet)
}

func TestAuthenticateMissingHeader(t *testing.T) {
	auth := NewAuthenticator("test-secret")
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := auth.Authenticate(req)
	assert.ErrorIs(t, err, ErrMissingAuth)
}

func TestAuthenticateWrongSecret(t *testing.T) {
	issuer := NewAuthenticator("secret-a")
	token, err := issuer.IssueToken("wallet-1", time.Hour)
	require.NoError(t, err)

	verifier := NewAuthenticator("secret-b")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	_, err = verifier.Authenticate(req)
	assert.ErrorIs(t, err, ErrInvalidAuth)
}

func TestAuthenticateExpiredToken(t *testing.T) {
	auth := NewAuthenticator("test-secret")
	token, err := auth.IssueToken("wallet-1", -time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	_, err = auth.Authenticate(req)
	assert.ErrorIs(t, err, ErrInvalidAuth)
}

func TestHashAndVerifySecret(t *testing.T) {
	hash, err := HashSecret("correct-horse-battery-staple")
	require.NoError(t, err)

	assert.True(t, VerifySecret(hash, "correct-horse-battery-staple"))
	assert.False(t, VerifySecret(hash, "wrong-secret"))
}

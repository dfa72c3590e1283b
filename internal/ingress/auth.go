// Package ingress implements the RPC front-end responsibilities spec §6
// assigns to an external collaborator: request decoding, authentication,
// and input validation, ahead of a call into the registry. Nothing here
// is part of the core; it exists to give that collaborator a concrete
// home rather than leaving it a stub.
package ingress

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingAuth      = errors.New("ingress: missing or malformed authorization header")
	ErrInvalidAuth      = errors.New("ingress: invalid or expired token")
	ErrWalletExists     = errors.New("ingress: wallet already registered")
	ErrWalletNotFound   = errors.New("ingress: wallet not registered")
	ErrWrongCredentials = errors.New("ingress: wrong wallet or secret")
)

// walletClaims is the JWT payload a caller presents to prove control of
// a wallet. Short-lived by design: exchanges in the example pack that
// authenticate callers (the microcoin manifest) use short-TTL bearer
// tokens rather than long-lived API keys.
type walletClaims struct {
	Wallet string `json:"wallet"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies wallet bearer tokens.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator builds an Authenticator around an HMAC secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// IssueToken mints a bearer token asserting control of wallet, valid
// for ttl.
func (a *Authenticator) IssueToken(wallet string, ttl time.Duration) (string, error) {
	claims := walletClaims{
		Wallet: wallet,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Authenticate extracts and verifies the bearer token from r, returning
// the wallet it asserts control of.
func (a *Authenticator) Authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", ErrMissingAuth
	}
	raw := strings.TrimPrefix(header, prefix)

	claims := &walletClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("ingress: unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidAuth
	}
	return claims.Wallet, nil
}

// HashSecret hashes a wallet's API secret for storage, the way an
// exchange onboarding flow would before ever issuing a bearer token.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("ingress: hash secret: %w", err)
	}
	return string(hash), nil
}

// VerifySecret checks a plaintext secret against a hash produced by
// HashSecret.
func VerifySecret(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// CredentialStore holds the bcrypt hash of each wallet's onboarding
// secret, the thing a wallet presents once to obtain a bearer token.
// In-memory only: spec.md has no persistent account store, so this is
// the minimal collaborator that gives Register/Login somewhere to
// keep state, the same role the teacher's in-process maps play for
// state it doesn't persist either.
type CredentialStore struct {
	mu     sync.RWMutex
	hashes map[string]string
}

// NewCredentialStore creates an empty CredentialStore.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{hashes: make(map[string]string)}
}

// Register hashes and stores secret for wallet. Fails if wallet is
// already registered.
func (s *CredentialStore) Register(wallet, secret string) error {
	hash, err := HashSecret(secret)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.hashes[wallet]; exists {
		return ErrWalletExists
	}
	s.hashes[wallet] = hash
	return nil
}

// Verify reports whether secret matches the hash on file for wallet.
func (s *CredentialStore) Verify(wallet, secret string) error {
	s.mu.RLock()
	hash, ok := s.hashes[wallet]
	s.mu.RUnlock()
	if !ok {
		return ErrWalletNotFound
	}
	if !VerifySecret(hash, secret) {
		return ErrWrongCredentials
	}
	return nil
}

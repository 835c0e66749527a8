package loginhub

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Default expiry for password reset tokens
const TokenExpiryPasswordReset = 1 * time.Hour

// ResetToken represents a single-use password reset token
type ResetToken struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenStore interface for managing password reset tokens
type TokenStore interface {
	CreateToken(userID, email string, expiryDuration time.Duration) (*ResetToken, error)
	GetToken(token string) (*ResetToken, error)
	DeleteToken(token string) error
}

// GenerateSecureToken generates a cryptographically secure random token
func GenerateSecureToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateNonce generates an opaque random value for replay protection
// of federated sign-in flows. The raw value stays local; only its hash
// travels with the authorization request.
func GenerateNonce() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashNonce returns the hex encoded SHA-256 digest of a nonce.
func HashNonce(nonce string) string {
	sum := sha256.Sum256([]byte(nonce))
	return hex.EncodeToString(sum[:])
}

// IsExpired checks if a token has expired
func (t *ResetToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

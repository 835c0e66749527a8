package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/panyam/loginhub"
)

// FSTokenStore stores password reset tokens as JSON files
type FSTokenStore struct {
	StoragePath string
}

func NewFSTokenStore(storagePath string) *FSTokenStore {
	return &FSTokenStore{StoragePath: storagePath}
}

func (s *FSTokenStore) getTokenPath(token string) string {
	return filepath.Join(s.StoragePath, "tokens", token+".json")
}

func (s *FSTokenStore) CreateToken(userID, email string, expiryDuration time.Duration) (*loginhub.ResetToken, error) {
	token, err := loginhub.GenerateSecureToken()
	if err != nil {
		return nil, err
	}

	resetToken := &loginhub.ResetToken{
		Token:     token,
		UserID:    userID,
		Email:     email,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(expiryDuration),
	}

	path := s.getTokenPath(token)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(resetToken, "", "  ")
	if err != nil {
		return nil, err
	}

	if err := writeAtomicFile(path, data); err != nil {
		return nil, err
	}

	return resetToken, nil
}

func (s *FSTokenStore) GetToken(token string) (*loginhub.ResetToken, error) {
	path := s.getTokenPath(token)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("token not found")
		}
		return nil, err
	}

	var resetToken loginhub.ResetToken
	if err := json.Unmarshal(data, &resetToken); err != nil {
		return nil, err
	}

	// Check if token is expired
	if resetToken.IsExpired() {
		// Auto-delete expired token
		_ = s.DeleteToken(token)
		return nil, fmt.Errorf("token expired")
	}

	return &resetToken, nil
}

func (s *FSTokenStore) DeleteToken(token string) error {
	path := s.getTokenPath(token)
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil // Already deleted
	}
	return err
}

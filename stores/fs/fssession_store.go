package fs

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// FSSessionStore implements loginhub.SessionStore using filesystem
// storage: a single JSON file holding the current session's user id.
type FSSessionStore struct {
	StoragePath string
}

type sessionSlot struct {
	UserID string `json:"user_id"`
}

func NewFSSessionStore(storagePath string) *FSSessionStore {
	return &FSSessionStore{StoragePath: storagePath}
}

func (s *FSSessionStore) slotPath() string {
	return filepath.Join(s.StoragePath, "session", "current.json")
}

func (s *FSSessionStore) CurrentUserID() (string, error) {
	data, err := os.ReadFile(s.slotPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	var slot sessionSlot
	if err := json.Unmarshal(data, &slot); err != nil {
		return "", err
	}
	return slot.UserID, nil
}

func (s *FSSessionStore) SetCurrentUserID(userId string) error {
	path := s.slotPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(&sessionSlot{UserID: userId}, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(path, data)
}

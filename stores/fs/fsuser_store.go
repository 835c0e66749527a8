// Package fs provides filesystem-backed store implementations, suitable
// for development and small applications. Each record is a JSON file;
// writes are atomic (write to temp, rename).
package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/panyam/loginhub"
)

// FSUserStore implements loginhub.UserStore using filesystem storage.
//
// # File Structure
//
//	{StoragePath}/
//	└── users/
//	    ├── byid/
//	    │   └── {userId}.json
//	    └── byemail/
//	        └── {normalized email}.json   # {"email": ..., "user_id": ...}
//
// The byemail entries are an index: email lookups resolve to a user id,
// then read the canonical record.
type FSUserStore struct {
	StoragePath string
}

type emailIndexEntry struct {
	Email  string `json:"email"`
	UserID string `json:"user_id"`
}

func NewFSUserStore(storagePath string) *FSUserStore {
	return &FSUserStore{StoragePath: storagePath}
}

func (s *FSUserStore) userPath(userId string) string {
	return filepath.Join(s.StoragePath, "users", "byid", userId+".json")
}

func (s *FSUserStore) emailPath(email string) string {
	return filepath.Join(s.StoragePath, "users", "byemail", normalizeEmail(email)+".json")
}

// normalizeEmail lowercases and makes the address filename-safe.
func normalizeEmail(email string) string {
	value := strings.ToLower(strings.TrimSpace(email))
	return strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(value)
}

func (s *FSUserStore) CreateUser(rec *loginhub.UserRecord) error {
	if _, err := s.GetUserByEmail(rec.Email); err == nil {
		return fmt.Errorf("email already registered")
	}
	if err := s.writeRecord(rec); err != nil {
		return err
	}
	return s.writeEmailIndex(rec)
}

func (s *FSUserStore) GetUserById(userId string) (*loginhub.UserRecord, error) {
	data, err := os.ReadFile(s.userPath(userId))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, loginhub.ErrNotFound
		}
		return nil, err
	}
	var rec loginhub.UserRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *FSUserStore) GetUserByEmail(email string) (*loginhub.UserRecord, error) {
	data, err := os.ReadFile(s.emailPath(email))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, loginhub.ErrNotFound
		}
		return nil, err
	}
	var entry emailIndexEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return s.GetUserById(entry.UserID)
}

func (s *FSUserStore) SaveUser(rec *loginhub.UserRecord) error {
	rec.Version++
	if err := s.writeRecord(rec); err != nil {
		return err
	}
	return s.writeEmailIndex(rec)
}

func (s *FSUserStore) writeRecord(rec *loginhub.UserRecord) error {
	path := s.userPath(rec.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(path, data)
}

func (s *FSUserStore) writeEmailIndex(rec *loginhub.UserRecord) error {
	path := s.emailPath(rec.Email)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(&emailIndexEntry{Email: rec.Email, UserID: rec.ID}, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(path, data)
}

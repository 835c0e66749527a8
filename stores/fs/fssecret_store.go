package fs

import (
	"os"
	"path/filepath"
	"strings"
)

// FSSecretStore implements loginhub.SecretStore using filesystem storage.
// Each service/account slot is one file under {StoragePath}/secrets/,
// written with owner-only permissions. Set overwrites by delete-then-
// insert, so the last writer wins.
type FSSecretStore struct {
	StoragePath string
}

func NewFSSecretStore(storagePath string) *FSSecretStore {
	return &FSSecretStore{StoragePath: storagePath}
}

func (s *FSSecretStore) secretPath(service, account string) string {
	name := sanitizeKey(service) + "_" + sanitizeKey(account)
	return filepath.Join(s.StoragePath, "secrets", name)
}

func sanitizeKey(key string) string {
	return strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(key)
}

// Get returns nil, nil when no entry exists.
func (s *FSSecretStore) Get(service, account string) ([]byte, error) {
	data, err := os.ReadFile(s.secretPath(service, account))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (s *FSSecretStore) Set(service, account string, value []byte) error {
	path := s.secretPath(service, account)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	// Delete then insert keeps a failed write from leaving a stale entry
	// readable with the old value's permissions.
	_ = os.Remove(path)
	return os.WriteFile(path, value, 0600)
}

func (s *FSSecretStore) Delete(service, account string) error {
	err := os.Remove(s.secretPath(service, account))
	if os.IsNotExist(err) {
		return nil // Already deleted
	}
	return err
}

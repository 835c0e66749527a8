package fs

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/panyam/loginhub"
)

// FSDocumentStore implements loginhub.DocumentStore using filesystem
// storage. One JSON file per user under {StoragePath}/documents/.
type FSDocumentStore struct {
	StoragePath string
}

func NewFSDocumentStore(storagePath string) *FSDocumentStore {
	return &FSDocumentStore{StoragePath: storagePath}
}

func (s *FSDocumentStore) documentPath(userId string) string {
	return filepath.Join(s.StoragePath, "documents", userId+".json")
}

func (s *FSDocumentStore) PutUserDocument(userId string, doc *loginhub.UserDocument) error {
	path := s.documentPath(userId)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(path, data)
}

func (s *FSDocumentStore) GetUserDocument(userId string) (*loginhub.UserDocument, error) {
	data, err := os.ReadFile(s.documentPath(userId))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, loginhub.ErrNotFound
		}
		return nil, err
	}
	var doc loginhub.UserDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

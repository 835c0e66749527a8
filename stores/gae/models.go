//go:build !wasm
// +build !wasm

package gae

import (
	"time"

	"cloud.google.com/go/datastore"

	lh "github.com/panyam/loginhub"
)

// UserEntity is the Datastore entity for account records
type UserEntity struct {
	Key          *datastore.Key `datastore:"__key__"`
	Email        string         `datastore:"email"`
	DisplayName  string         `datastore:"display_name,noindex"`
	AvatarURL    string         `datastore:"avatar_url,noindex"`
	PasswordHash string         `datastore:"password_hash,noindex"`
	Linked       []string       `datastore:"linked,noindex"`
	CreatedAt    time.Time      `datastore:"created_at"`
	UpdatedAt    time.Time      `datastore:"updated_at"`
	Version      int            `datastore:"version"`
}

func (e *UserEntity) ToRecord() *lh.UserRecord {
	return &lh.UserRecord{
		ID:           e.Key.Name,
		Email:        e.Email,
		DisplayName:  e.DisplayName,
		AvatarURL:    e.AvatarURL,
		PasswordHash: e.PasswordHash,
		Linked:       e.Linked,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
		Version:      e.Version,
	}
}

func userToEntity(rec *lh.UserRecord, key *datastore.Key) *UserEntity {
	return &UserEntity{
		Key:          key,
		Email:        rec.Email,
		DisplayName:  rec.DisplayName,
		AvatarURL:    rec.AvatarURL,
		PasswordHash: rec.PasswordHash,
		Linked:       rec.Linked,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
		Version:      rec.Version,
	}
}

// DocumentEntity is the Datastore entity for user documents
type DocumentEntity struct {
	Key         *datastore.Key `datastore:"__key__"`
	FirstName   string         `datastore:"firstName,noindex"`
	LastName    string         `datastore:"lastName,noindex"`
	Email       string         `datastore:"email"`
	PhoneNumber string         `datastore:"phoneNumber,noindex"`
	BirthDate   time.Time      `datastore:"birthDate,noindex"`
	UpdatedAt   time.Time      `datastore:"updated_at"`
}

// SecretEntity is the Datastore entity for secret slots
// Key format: Service + ":" + Account
type SecretEntity struct {
	Key       *datastore.Key `datastore:"__key__"`
	Value     []byte         `datastore:"value,noindex"`
	UpdatedAt time.Time      `datastore:"updated_at"`
}

//go:build !wasm
// +build !wasm

package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	lh "github.com/panyam/loginhub"
)

// StringSlice is a helper type for storing string slices in GORM
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, s)
}

// UserModel is the GORM model for account records
type UserModel struct {
	ID           string      `gorm:"primaryKey;size:64"`
	Email        string      `gorm:"size:255;uniqueIndex"`
	DisplayName  string      `gorm:"size:255"`
	AvatarURL    string      `gorm:"size:512"`
	PasswordHash string      `gorm:"size:255"`
	Linked       StringSlice `gorm:"type:jsonb"`
	Version      int         `gorm:"default:0"`
	CreatedAt    time.Time   `gorm:"autoCreateTime"`
	UpdatedAt    time.Time   `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) ToRecord() *lh.UserRecord {
	return &lh.UserRecord{
		ID:           m.ID,
		Email:        m.Email,
		DisplayName:  m.DisplayName,
		AvatarURL:    m.AvatarURL,
		PasswordHash: m.PasswordHash,
		Linked:       m.Linked,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		Version:      m.Version,
	}
}

func modelFromRecord(rec *lh.UserRecord) *UserModel {
	return &UserModel{
		ID:           rec.ID,
		Email:        rec.Email,
		DisplayName:  rec.DisplayName,
		AvatarURL:    rec.AvatarURL,
		PasswordHash: rec.PasswordHash,
		Linked:       rec.Linked,
		Version:      rec.Version,
	}
}

// DocumentModel is the GORM model for the denormalized user documents
type DocumentModel struct {
	UserID      string    `gorm:"primaryKey;size:64"`
	FirstName   string    `gorm:"size:255"`
	LastName    string    `gorm:"size:255"`
	Email       string    `gorm:"size:255"`
	PhoneNumber string    `gorm:"size:32"`
	BirthDate   time.Time ``
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (DocumentModel) TableName() string {
	return "user_documents"
}

// SecretModel is the GORM model for secret slots
type SecretModel struct {
	Service   string    `gorm:"primaryKey;size:128"`
	Account   string    `gorm:"primaryKey;size:128"`
	Value     []byte    ``
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (SecretModel) TableName() string {
	return "secrets"
}

// SessionModel is the GORM model for the persisted session slot
type SessionModel struct {
	Slot      string    `gorm:"primaryKey;size:32"`
	UserID    string    `gorm:"size:64"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (SessionModel) TableName() string {
	return "sessions"
}

// ResetTokenModel is the GORM model for password reset tokens
type ResetTokenModel struct {
	Token     string    `gorm:"primaryKey;size:128"`
	UserID    string    `gorm:"size:64;index"`
	Email     string    `gorm:"size:255"`
	CreatedAt time.Time ``
	ExpiresAt time.Time ``
}

func (ResetTokenModel) TableName() string {
	return "reset_tokens"
}

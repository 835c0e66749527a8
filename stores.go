package loginhub

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when no record exists for a key.
var ErrNotFound = errors.New("not found")

// UserRecord is the stored account state behind the local backend.
type UserRecord struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	PasswordHash string    `json:"password_hash"`
	Linked       []string  `json:"linked"` // backend provider ids
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Version      int       `json:"version"` // optimistic locking version
}

// UserStore manages account records
type UserStore interface {
	// CreateUser stores a new record. Fails if the email is already registered.
	CreateUser(rec *UserRecord) error

	// GetUserById retrieves a record by user id
	GetUserById(userId string) (*UserRecord, error)

	// GetUserByEmail retrieves a record by its registered email
	GetUserByEmail(email string) (*UserRecord, error)

	// SaveUser creates or updates a record (upsert)
	SaveUser(rec *UserRecord) error
}

// DocumentStore manages the denormalized user documents written on sign-up
type DocumentStore interface {
	// PutUserDocument creates or overwrites the document for a user
	PutUserDocument(userId string, doc *UserDocument) error

	// GetUserDocument retrieves the document for a user
	GetUserDocument(userId string) (*UserDocument, error)
}

// SessionStore persists the backend's current session across process
// restarts. It is a single slot: one user id, or empty when signed out.
type SessionStore interface {
	CurrentUserID() (string, error)
	SetCurrentUserID(userId string) error
}

package loginhub

import (
	"context"
	"slices"
	"time"
)

// Provider ids as reported by a backend session's linked credentials.
// These follow the federated issuer naming most auth backends use.
const (
	BackendProviderFacebook = "facebook.com"
	BackendProviderGoogle   = "google.com"
	BackendProviderApple    = "apple.com"
	BackendProviderPassword = "password"
)

// BackendUser is the backend's view of the signed-in account.
type BackendUser struct {
	ID          string
	DisplayName string
	Email       string
	AvatarURL   string

	// Linked lists the provider ids of every credential attached to this
	// account, in the backend's own order.
	Linked []string
}

// UserDocument is the denormalized profile record written on sign-up,
// keyed by the new user's id.
type UserDocument struct {
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber"`
	BirthDate   time.Time `json:"birthDate"`
}

// AuthState is one emission from the backend's session-wide listener.
// User is nil when the backend session ended.
type AuthState struct {
	User *BackendUser
}

// Backend abstracts the auth/database provider behind the hub. A backend
// owns its own session: SignIn starts one, SignOut ends one, and every
// change (including a cold-start restore of a persisted session) is
// reported on the AuthStateChanges stream, independently of whichever
// call caused it.
//
// CreateUser registers a new account but does not start a session - a
// freshly signed-up user still has to sign in.
type Backend interface {
	CreateUser(ctx context.Context, email, password string) (*BackendUser, error)
	SignIn(ctx context.Context, email, password string) (*BackendUser, error)
	SignOut(ctx context.Context) error
	ResetPassword(ctx context.Context, email string) error
	CompletePasswordReset(ctx context.Context, token, newPassword string) error
	UpdateDisplayName(ctx context.Context, userID, displayName string) error
	PutUserDocument(ctx context.Context, userID string, doc *UserDocument) error
	GetUser(ctx context.Context, userID string) (*BackendUser, error)
	AuthStateChanges() <-chan AuthState
}

// kindForLinked derives the ProviderKind for a backend session by
// inspecting its linked credentials. Facebook is checked first, then
// Google, then Apple; anything else falls back to the password path.
func kindForLinked(linked []string) ProviderKind {
	if slices.Contains(linked, BackendProviderFacebook) {
		return ProviderFacebook
	}
	if slices.Contains(linked, BackendProviderGoogle) {
		return ProviderGoogle
	}
	if slices.Contains(linked, BackendProviderApple) {
		return ProviderApple
	}
	return ProviderPassword
}

// identityFromBackendUser builds the normalized profile for a backend
// session, with the same fallbacks the sign-in path uses: display name
// falls back to "User", email to the empty string.
func identityFromBackendUser(user *BackendUser, kind ProviderKind) *Identity {
	name := user.DisplayName
	if name == "" {
		name = "User"
	}
	return &Identity{
		ID:          user.ID,
		DisplayName: name,
		Email:       user.Email,
		AvatarURL:   user.AvatarURL,
		Provider:    kind,
	}
}

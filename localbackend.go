package loginhub

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// LocalBackend is a complete Backend over the store interfaces, with
// bcrypt-hashed passwords and a persisted session slot so a fresh process
// restores its prior session and reports it on the auth-state stream.
type LocalBackend struct {
	users    UserStore
	docs     DocumentStore
	sessions SessionStore
	tokens   TokenStore
	email    SendEmail

	states chan AuthState

	mu      sync.Mutex
	current *BackendUser
}

// NewLocalBackend wires a backend from its stores. docs, sessions, tokens
// and sender are each optional; the features they back degrade to no-ops
// or errors when absent. If a session slot is persisted, the cold-start
// "user present" event is already queued on the auth-state stream when
// this returns.
func NewLocalBackend(users UserStore, docs DocumentStore, sessions SessionStore, tokens TokenStore, sender SendEmail) *LocalBackend {
	b := &LocalBackend{
		users:    users,
		docs:     docs,
		sessions: sessions,
		tokens:   tokens,
		email:    sender,
		states:   make(chan AuthState, 8),
	}
	b.restoreSession()
	return b
}

// restoreSession replays a persisted session on cold start.
func (b *LocalBackend) restoreSession() {
	if b.sessions == nil {
		return
	}
	userId, err := b.sessions.CurrentUserID()
	if err != nil || userId == "" {
		return
	}
	rec, err := b.users.GetUserById(userId)
	if err != nil {
		log.Printf("Error restoring session for %s: %v", userId, err)
		return
	}
	user := backendUserFromRecord(rec)
	b.current = user
	b.emit(AuthState{User: user})
}

// emit pushes a state change without ever blocking a backend call. When
// nothing is draining the stream the oldest queued state is dropped, so a
// late subscriber still converges on the current state.
func (b *LocalBackend) emit(st AuthState) {
	select {
	case b.states <- st:
	default:
		select {
		case <-b.states:
		default:
		}
		select {
		case b.states <- st:
		default:
		}
	}
}

// AuthStateChanges returns the session-wide listener stream. It fires on
// every session change, whichever call caused it.
func (b *LocalBackend) AuthStateChanges() <-chan AuthState {
	return b.states
}

// CreateUser registers a new account. It does not start a session.
func (b *LocalBackend) CreateUser(ctx context.Context, email, password string) (*BackendUser, error) {
	if _, err := b.users.GetUserByEmail(email); err == nil {
		return nil, fmt.Errorf("email already registered")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	rec := &UserRecord{
		ID:           generateSecureUserId(),
		Email:        email,
		PasswordHash: string(passwordHash),
		Linked:       []string{BackendProviderPassword},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := b.users.CreateUser(rec); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("Created local user %s", rec.ID)
	return backendUserFromRecord(rec), nil
}

// SignIn verifies the credentials, starts a session and reports it on the
// auth-state stream.
func (b *LocalBackend) SignIn(ctx context.Context, email, password string) (*BackendUser, error) {
	rec, err := b.users.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	user := backendUserFromRecord(rec)

	b.mu.Lock()
	b.current = user
	b.mu.Unlock()

	if b.sessions != nil {
		if err := b.sessions.SetCurrentUserID(rec.ID); err != nil {
			log.Printf("Error persisting session for %s: %v", rec.ID, err)
		}
	}

	b.emit(AuthState{User: user})
	return user, nil
}

// SignOut ends the session and reports it. Signing out while signed out
// still reports and succeeds.
func (b *LocalBackend) SignOut(ctx context.Context) error {
	b.mu.Lock()
	b.current = nil
	b.mu.Unlock()

	if b.sessions != nil {
		if err := b.sessions.SetCurrentUserID(""); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
	}

	b.emit(AuthState{})
	return nil
}

// ResetPassword creates a single-use reset token and mails it. To avoid
// revealing whether the email is registered, an unknown email is not an
// error.
func (b *LocalBackend) ResetPassword(ctx context.Context, email string) error {
	if b.tokens == nil || b.email == nil {
		return fmt.Errorf("password reset not configured")
	}

	rec, err := b.users.GetUserByEmail(email)
	if err != nil {
		log.Printf("Password reset requested for unknown email")
		return nil
	}

	token, err := b.tokens.CreateToken(rec.ID, email, TokenExpiryPasswordReset)
	if err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}
	if err := b.email.SendPasswordResetEmail(email, token.Token); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}
	return nil
}

// CompletePasswordReset consumes a reset token and installs the new
// password.
func (b *LocalBackend) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	if b.tokens == nil {
		return fmt.Errorf("password reset not configured")
	}

	resetToken, err := b.tokens.GetToken(token)
	if err != nil || resetToken.IsExpired() {
		return fmt.Errorf("invalid or expired token")
	}

	rec, err := b.users.GetUserByEmail(resetToken.Email)
	if err != nil {
		return fmt.Errorf("user not found")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	rec.PasswordHash = string(passwordHash)
	rec.UpdatedAt = time.Now()
	if err := b.users.SaveUser(rec); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	// One-time use
	if err := b.tokens.DeleteToken(token); err != nil {
		log.Printf("Warning: failed to delete token: %v", err)
	}
	return nil
}

// UpdateDisplayName stores a new display name for the user.
func (b *LocalBackend) UpdateDisplayName(ctx context.Context, userID, displayName string) error {
	rec, err := b.users.GetUserById(userID)
	if err != nil {
		return err
	}
	rec.DisplayName = displayName
	rec.UpdatedAt = time.Now()
	if err := b.users.SaveUser(rec); err != nil {
		return err
	}

	b.mu.Lock()
	if b.current != nil && b.current.ID == userID {
		b.current = backendUserFromRecord(rec)
	}
	b.mu.Unlock()
	return nil
}

// PutUserDocument writes the denormalized profile document for a user.
func (b *LocalBackend) PutUserDocument(ctx context.Context, userID string, doc *UserDocument) error {
	if b.docs == nil {
		return fmt.Errorf("document store not configured")
	}
	return b.docs.PutUserDocument(userID, doc)
}

// GetUser retrieves a registered account by id.
func (b *LocalBackend) GetUser(ctx context.Context, userID string) (*BackendUser, error) {
	rec, err := b.users.GetUserById(userID)
	if err != nil {
		return nil, err
	}
	return backendUserFromRecord(rec), nil
}

// CurrentUser returns the signed-in account, or nil.
func (b *LocalBackend) CurrentUser() *BackendUser {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

func backendUserFromRecord(rec *UserRecord) *BackendUser {
	return &BackendUser{
		ID:          rec.ID,
		DisplayName: rec.DisplayName,
		Email:       rec.Email,
		AvatarURL:   rec.AvatarURL,
		Linked:      append([]string(nil), rec.Linked...),
	}
}

// generateSecureUserId generates a cryptographically secure user ID
func generateSecureUserId() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

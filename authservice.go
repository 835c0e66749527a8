package loginhub

import (
	"context"
	"log"
	"time"
)

// AuthOp names the email/password operation an AuthEvent completes.
type AuthOp string

const (
	OpSignUp        AuthOp = "signup"
	OpSignIn        AuthOp = "signin"
	OpSignOut       AuthOp = "signout"
	OpPasswordReset AuthOp = "password_reset"
)

// AuthEvent is a single completion on the email/password service's shared
// channel. Profile is nil for sign-out and password-reset successes,
// meaning "no profile change", not "logged in".
type AuthEvent struct {
	Op      AuthOp
	Profile *Identity
	Err     error
}

// SignupRequest carries the sign-up form fields.
type SignupRequest struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber string
	BirthDate   time.Time
}

// EmailPasswordAuthService wraps the backend's email/password flows. Each
// operation is asynchronous and terminates exactly once with an AuthEvent
// on the shared channel returned by Events.
type EmailPasswordAuthService struct {
	backend Backend
	events  chan AuthEvent
}

func NewEmailPasswordAuthService(backend Backend) *EmailPasswordAuthService {
	return &EmailPasswordAuthService{
		backend: backend,
		events:  make(chan AuthEvent, 8),
	}
}

// Events returns the shared completion channel. It stays open for the
// service's lifetime and carries one event per operation invoked.
func (s *EmailPasswordAuthService) Events() <-chan AuthEvent {
	return s.events
}

// SignUp registers a new account. On success the emitted profile carries
// the password provider kind and "<first> <last>" as display name. The
// denormalized user document and the display name update are best-effort:
// failures are logged, never surfaced, and do not block the emission.
// Sign-up does not start a session.
func (s *EmailPasswordAuthService) SignUp(req SignupRequest) {
	go func() {
		ctx := context.Background()
		user, err := s.backend.CreateUser(ctx, req.Email, req.Password)
		if err != nil {
			s.events <- AuthEvent{Op: OpSignUp, Err: err}
			return
		}

		profile := &Identity{
			ID:          user.ID,
			DisplayName: req.FirstName + " " + req.LastName,
			Email:       req.Email,
			Provider:    ProviderPassword,
		}

		if err := s.backend.UpdateDisplayName(ctx, user.ID, profile.DisplayName); err != nil {
			log.Printf("Error updating display name for %s: %v", user.ID, err)
		}

		doc := &UserDocument{
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			Email:       req.Email,
			PhoneNumber: req.PhoneNumber,
			BirthDate:   req.BirthDate,
		}
		if err := s.backend.PutUserDocument(ctx, user.ID, doc); err != nil {
			log.Printf("Error saving user document for %s: %v", user.ID, err)
		}

		s.events <- AuthEvent{Op: OpSignUp, Profile: profile}
	}()
}

// SignIn authenticates against the backend. The emitted profile uses the
// backend's stored display name (falling back to "User") and email
// (falling back to the empty string).
func (s *EmailPasswordAuthService) SignIn(email, password string) {
	go func() {
		user, err := s.backend.SignIn(context.Background(), email, password)
		if err != nil {
			s.events <- AuthEvent{Op: OpSignIn, Err: err}
			return
		}
		s.events <- AuthEvent{Op: OpSignIn, Profile: identityFromBackendUser(user, ProviderPassword)}
	}()
}

// SignOut ends the backend session. Success emits a nil profile.
func (s *EmailPasswordAuthService) SignOut() {
	go func() {
		if err := s.backend.SignOut(context.Background()); err != nil {
			s.events <- AuthEvent{Op: OpSignOut, Err: err}
			return
		}
		s.events <- AuthEvent{Op: OpSignOut}
	}()
}

// ResetPassword requests a password reset for email. Success emits a nil
// profile and alters neither the profile nor the authenticated flag.
func (s *EmailPasswordAuthService) ResetPassword(email string) {
	go func() {
		if err := s.backend.ResetPassword(context.Background(), email); err != nil {
			s.events <- AuthEvent{Op: OpPasswordReset, Err: err}
			return
		}
		s.events <- AuthEvent{Op: OpPasswordReset}
	}()
}

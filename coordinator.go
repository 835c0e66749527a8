package loginhub

import (
	"context"
	"log"
	"sync"
)

// Session is the observable authentication state owned by the
// SessionCoordinator. The profile pointer is never mutated in place, so a
// snapshot stays valid after later transitions. IsAuthenticated tracks
// profile presence: after any transition settles, IsAuthenticated is true
// exactly when Profile is non-nil.
type Session struct {
	Profile              *Identity
	IsAuthenticated      bool
	LastError            string // empty when the last operation succeeded
	RememberedCredential *RememberedCredential
}

// SessionCoordinator is the single source of truth for who is logged in.
// It aggregates every registered provider's completion channel, the
// email/password service's channel and the backend's session-wide
// auth-state stream into one observable Session.
//
// Two independent sources can assert identity: a provider completing the
// login the user asked for, and the backend listener firing on its own
// (cold-start restore, out-of-band sign-outs). Provider completions obey
// first-writer-wins: once a session is authenticated, later completions
// are dropped until an explicit logout. The backend listener is
// authoritative and overwrites unconditionally.
//
// All state mutation is confined to a single run loop, so observers never
// see a half-applied transition.
type SessionCoordinator struct {
	providers map[ProviderKind]Provider
	email     *EmailPasswordAuthService
	backend   Backend
	secrets   SecretStore

	funcs chan func()
	done  chan struct{}
	stop  sync.Once

	// state is owned by the run loop; session is the last published
	// snapshot, guarded by mu for readers.
	state   Session
	mu      sync.RWMutex
	session Session
	subs    map[int]chan Session
	nextSub int
}

// NewSessionCoordinator builds and starts a coordinator. Each provider
// channel, the service channel and the backend auth-state stream are
// subscribed once, for the coordinator's lifetime. secrets may be nil if
// remembered credentials are not wanted.
func NewSessionCoordinator(providers map[ProviderKind]Provider, email *EmailPasswordAuthService, backend Backend, secrets SecretStore) *SessionCoordinator {
	c := &SessionCoordinator{
		providers: providers,
		email:     email,
		backend:   backend,
		secrets:   secrets,
		funcs:     make(chan func(), 64),
		done:      make(chan struct{}),
		subs:      make(map[int]chan Session),
	}
	go c.run()
	for _, p := range providers {
		go c.forwardResults(p.Results())
	}
	if email != nil {
		go c.forwardAuthEvents(email.Events())
	}
	if backend != nil {
		go c.forwardAuthState(backend.AuthStateChanges())
	}
	return c
}

// Close stops the run loop and detaches all channel forwarders. The
// providers and backend themselves are not shut down.
func (c *SessionCoordinator) Close() {
	c.stop.Do(func() { close(c.done) })
}

func (c *SessionCoordinator) run() {
	for {
		select {
		case f := <-c.funcs:
			f()
			c.publish()
		case <-c.done:
			return
		}
	}
}

// do marshals a state mutation onto the run loop.
func (c *SessionCoordinator) do(f func()) {
	select {
	case c.funcs <- f:
	case <-c.done:
	}
}

func (c *SessionCoordinator) forwardResults(ch <-chan Result) {
	for {
		select {
		case res, ok := <-ch:
			if !ok {
				return
			}
			c.do(func() { c.handleResult(res) })
		case <-c.done:
			return
		}
	}
}

func (c *SessionCoordinator) forwardAuthEvents(ch <-chan AuthEvent) {
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			c.do(func() { c.handleAuthEvent(ev) })
		case <-c.done:
			return
		}
	}
}

func (c *SessionCoordinator) forwardAuthState(ch <-chan AuthState) {
	for {
		select {
		case st, ok := <-ch:
			if !ok {
				return
			}
			c.do(func() { c.handleAuthState(st) })
		case <-c.done:
			return
		}
	}
}

// handleResult applies one provider completion. Runs on the run loop.
func (c *SessionCoordinator) handleResult(res Result) {
	if res.Err != nil {
		c.fail(res.Err)
		return
	}
	if res.Profile == nil {
		return
	}
	// First writer wins: a late or duplicate completion must not clobber
	// an active session.
	if c.state.IsAuthenticated {
		return
	}
	c.state.Profile = res.Profile
	c.state.IsAuthenticated = true
}

// handleAuthEvent applies one email/password completion. Runs on the run
// loop. Sign-in successes adopt like provider completions; sign-up,
// sign-out and password-reset successes leave the profile untouched.
func (c *SessionCoordinator) handleAuthEvent(ev AuthEvent) {
	if ev.Err != nil {
		c.fail(ev.Err)
		return
	}
	switch ev.Op {
	case OpSignIn:
		c.handleResult(Result{Profile: ev.Profile})
	case OpSignUp, OpSignOut, OpPasswordReset:
		// A new sign-up does not authenticate the user; they sign in
		// separately. Clearing the error is the only visible effect.
		c.state.LastError = ""
	}
}

// handleAuthState applies one backend listener emission. Runs on the run
// loop. This path is authoritative: it overwrites whatever a provider
// adopted, in both directions.
func (c *SessionCoordinator) handleAuthState(st AuthState) {
	if st.User == nil {
		c.state.Profile = nil
		c.state.IsAuthenticated = false
		return
	}
	c.state.Profile = identityFromBackendUser(st.User, kindForLinked(st.User.Linked))
	c.state.IsAuthenticated = true
}

// fail records a recoverable error. The profile is cleared together with
// the authenticated flag so that IsAuthenticated == (Profile != nil)
// keeps holding.
func (c *SessionCoordinator) fail(err error) {
	c.state.LastError = err.Error()
	c.state.IsAuthenticated = false
	c.state.Profile = nil
}

// publish snapshots the run-loop state for readers and notifies
// subscribers, latest-wins.
func (c *SessionCoordinator) publish() {
	c.mu.Lock()
	c.session = c.state
	subs := make([]chan Session, 0, len(c.subs))
	for _, ch := range c.subs {
		subs = append(subs, ch)
	}
	snap := c.session
	c.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot so the subscriber always finds the
			// latest one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// Session returns the last settled snapshot.
func (c *SessionCoordinator) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Subscribe registers an observer. The returned channel coalesces: a slow
// reader only ever misses intermediate snapshots, never the latest one.
// The cancel function detaches the observer; one in-flight snapshot may
// still be delivered after cancellation.
func (c *SessionCoordinator) Subscribe() (<-chan Session, func()) {
	ch := make(chan Session, 1)
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
	return ch, cancel
}

// Login starts the named provider's flow. Unregistered kinds are ignored.
// The result arrives later through the observable session.
func (c *SessionCoordinator) Login(kind ProviderKind) {
	p, ok := c.providers[kind]
	if !ok {
		return
	}
	p.Login()
}

// SignUp registers a new email/password account. See
// EmailPasswordAuthService.SignUp for the completion semantics.
func (c *SessionCoordinator) SignUp(req SignupRequest) {
	c.email.SignUp(req)
}

// SignIn authenticates with email and password.
func (c *SessionCoordinator) SignIn(email, password string) {
	c.email.SignIn(email, password)
}

// ResetPassword requests a password reset email.
func (c *SessionCoordinator) ResetPassword(email string) {
	c.email.ResetPassword(email)
}

// Logout signs out of the backend session, logs out every registered
// provider and clears the session state. It is idempotent; a backend
// sign-out failure is logged and does not stop the rest. The remembered
// credential survives logout.
func (c *SessionCoordinator) Logout() {
	go func() {
		if c.backend != nil {
			if err := c.backend.SignOut(context.Background()); err != nil {
				log.Printf("Error signing out from backend: %v", err)
			}
		}
		for _, p := range c.providers {
			p.Logout()
		}
		c.do(func() {
			c.state.Profile = nil
			c.state.IsAuthenticated = false
			c.state.LastError = ""
		})
	}()
}

// SetRememberedCredential persists cred through the secret store
// (overwriting any existing entry) and mirrors it into the session.
// Passing nil deletes the persisted entry. Persistence failures are
// logged, never surfaced.
func (c *SessionCoordinator) SetRememberedCredential(cred *RememberedCredential) {
	if c.secrets != nil {
		if cred != nil {
			if err := c.secrets.Set(SecretService, SecretAccount, encodeCredential(cred)); err != nil {
				log.Printf("Error saving credentials to secret store: %v", err)
			}
		} else {
			if err := c.secrets.Delete(SecretService, SecretAccount); err != nil {
				log.Printf("Error removing credentials from secret store: %v", err)
			}
		}
	}
	c.do(func() { c.state.RememberedCredential = cred })
}

// LoadRememberedCredential reads the persisted entry, if any, into the
// session. Absent or malformed entries leave the session untouched.
func (c *SessionCoordinator) LoadRememberedCredential() {
	if c.secrets == nil {
		return
	}
	data, err := c.secrets.Get(SecretService, SecretAccount)
	if err != nil || data == nil {
		return
	}
	cred := parseCredential(data)
	if cred == nil {
		return
	}
	c.do(func() { c.state.RememberedCredential = cred })
}

package loginhub

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// ----------------------------------------------------------------------
// In-memory stores
// ----------------------------------------------------------------------

type memUserStore struct {
	mu    sync.Mutex
	users map[string]*UserRecord // by id
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*UserRecord)}
}

func (s *memUserStore) CreateUser(rec *UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == rec.Email {
			return fmt.Errorf("email already registered")
		}
	}
	cp := *rec
	s.users[rec.ID] = &cp
	return nil
}

func (s *memUserStore) GetUserById(userId string) (*UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userId]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUserStore) GetUserByEmail(email string) (*UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memUserStore) SaveUser(rec *UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	cp.Version = rec.Version + 1
	s.users[rec.ID] = &cp
	return nil
}

type memDocStore struct {
	mu   sync.Mutex
	docs map[string]*UserDocument
}

func newMemDocStore() *memDocStore {
	return &memDocStore{docs: make(map[string]*UserDocument)}
}

func (s *memDocStore) PutUserDocument(userId string, doc *UserDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *doc
	s.docs[userId] = &cp
	return nil
}

func (s *memDocStore) GetUserDocument(userId string) (*UserDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[userId]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

type memSessionStore struct {
	mu     sync.Mutex
	userId string
}

func (s *memSessionStore) CurrentUserID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userId, nil
}

func (s *memSessionStore) SetCurrentUserID(userId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userId = userId
	return nil
}

type memTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*ResetToken
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{tokens: make(map[string]*ResetToken)}
}

func (s *memTokenStore) CreateToken(userID, email string, expiryDuration time.Duration) (*ResetToken, error) {
	token, err := GenerateSecureToken()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	rt := &ResetToken{
		Token:     token,
		UserID:    userID,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(expiryDuration),
	}
	s.mu.Lock()
	s.tokens[token] = rt
	s.mu.Unlock()
	return rt, nil
}

func (s *memTokenStore) GetToken(token string) (*ResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.tokens[token]
	if !ok {
		return nil, ErrNotFound
	}
	return rt, nil
}

func (s *memTokenStore) DeleteToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

type memSecretStore struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemSecretStore() *memSecretStore {
	return &memSecretStore{entries: make(map[string][]byte)}
}

func (s *memSecretStore) key(service, account string) string { return service + ":" + account }

func (s *memSecretStore) Get(service, account string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.entries[s.key(service, account)]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (s *memSecretStore) Set(service, account string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[s.key(service, account)] = append([]byte(nil), value...)
	return nil
}

func (s *memSecretStore) Delete(service, account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, s.key(service, account))
	return nil
}

// captureEmailSender records reset emails instead of sending them
type captureEmailSender struct {
	mu   sync.Mutex
	sent []struct{ To, Token string }
}

func (c *captureEmailSender) SendPasswordResetEmail(to string, resetToken string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, struct{ To, Token string }{to, resetToken})
	return nil
}

func (c *captureEmailSender) lastSent() (string, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return "", "", false
	}
	last := c.sent[len(c.sent)-1]
	return last.To, last.Token, true
}

// ----------------------------------------------------------------------
// Fake provider and backend
// ----------------------------------------------------------------------

// fakeProvider completes every Login with a preset result
type fakeProvider struct {
	kind    ProviderKind
	result  Result
	results chan Result

	mu         sync.Mutex
	logins     int
	logouts    int
	autoOnCall bool // emit the preset result when Login is called
}

func newFakeProvider(kind ProviderKind, result Result) *fakeProvider {
	return &fakeProvider{
		kind:       kind,
		result:     result,
		results:    make(chan Result, 1),
		autoOnCall: true,
	}
}

func (p *fakeProvider) Kind() ProviderKind { return p.kind }

func (p *fakeProvider) Login() {
	p.mu.Lock()
	p.logins++
	auto := p.autoOnCall
	p.mu.Unlock()
	if auto {
		p.results <- p.result
	}
}

func (p *fakeProvider) Logout() {
	p.mu.Lock()
	p.logouts++
	p.mu.Unlock()
}

func (p *fakeProvider) Results() <-chan Result { return p.results }

// emit pushes a result without a Login call, as a late completion would
func (p *fakeProvider) emit(res Result) { p.results <- res }

func (p *fakeProvider) loginCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.logins
}

func (p *fakeProvider) logoutCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.logouts
}

func testGoogleIdentity() *Identity {
	return &Identity{
		ID:          "123",
		DisplayName: "Test User",
		Email:       "test@example.com",
		AvatarURL:   "https://example.com/avatar.png",
		Provider:    ProviderGoogle,
	}
}

// fakeBackend is a scriptable Backend for coordinator tests
type fakeBackend struct {
	mu          sync.Mutex
	states      chan AuthState
	signInUser  *BackendUser
	signInErr   error
	createErr   error
	signOutErr  error
	resetErr    error
	signOuts    int
	createdName string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{states: make(chan AuthState, 8)}
}

func (b *fakeBackend) CreateUser(ctx context.Context, email, password string) (*BackendUser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.createErr != nil {
		return nil, b.createErr
	}
	return &BackendUser{ID: "new-user", Email: email, Linked: []string{BackendProviderPassword}}, nil
}

func (b *fakeBackend) SignIn(ctx context.Context, email, password string) (*BackendUser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.signInErr != nil {
		return nil, b.signInErr
	}
	return b.signInUser, nil
}

func (b *fakeBackend) SignOut(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signOuts++
	return b.signOutErr
}

func (b *fakeBackend) ResetPassword(ctx context.Context, email string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resetErr
}

func (b *fakeBackend) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	return nil
}

func (b *fakeBackend) UpdateDisplayName(ctx context.Context, userID, displayName string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.createdName = displayName
	return nil
}

func (b *fakeBackend) PutUserDocument(ctx context.Context, userID string, doc *UserDocument) error {
	return nil
}

func (b *fakeBackend) GetUser(ctx context.Context, userID string) (*BackendUser, error) {
	return nil, ErrNotFound
}

func (b *fakeBackend) AuthStateChanges() <-chan AuthState { return b.states }

func (b *fakeBackend) displayName() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.createdName
}

func (b *fakeBackend) signOutCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.signOuts
}

// ----------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------

// waitSession polls the coordinator until pred holds or the deadline hits
func waitSession(t *testing.T, c *SessionCoordinator, pred func(Session) bool) Session {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s := c.Session()
		if pred(s) {
			return s
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for session state, last: %+v", c.Session())
	return Session{}
}

// settle gives in-flight forwarders a moment to drain, for asserting
// that something did NOT happen
func settle() { time.Sleep(50 * time.Millisecond) }

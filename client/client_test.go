package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// memStore is an in-memory CredentialStore for tests.
type memStore struct {
	servers map[string]*ServerCredential
	saves   int
}

func newMemStore() *memStore {
	return &memStore{servers: map[string]*ServerCredential{}}
}

func (s *memStore) GetCredential(serverURL string) (*ServerCredential, error) {
	return s.servers[serverURL], nil
}

func (s *memStore) SetCredential(serverURL string, cred *ServerCredential) error {
	s.servers[serverURL] = cred
	return nil
}

func (s *memStore) RemoveCredential(serverURL string) error {
	delete(s.servers, serverURL)
	return nil
}

func (s *memStore) ListServers() ([]string, error) {
	out := make([]string, 0, len(s.servers))
	for k := range s.servers {
		out = append(out, k)
	}
	return out, nil
}

func (s *memStore) Save() error {
	s.saves++
	return nil
}

func mintToken(t *testing.T, userID string, expiresIn time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(expiresIn).Unix(),
	})
	signed, err := token.SignedString([]byte("server-secret"))
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return signed
}

// loginServer accepts exactly one email/password pair and mints tokens.
func loginServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if body["email"] != "ada@example.com" || body["password"] != "secret123" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"code": "invalid_credentials", "error": "Invalid credentials"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"token":   mintToken(t, "user-1", time.Hour),
			"user": map[string]any{
				"id":           "user-1",
				"display_name": "Ada",
				"email":        "ada@example.com",
			},
		})
	})
	mux.HandleFunc("/whoami", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, r.Header.Get("Authorization"))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestLoginStoresCredential(t *testing.T) {
	ts := loginServer(t)
	store := newMemStore()
	c := NewHubClient(ts.URL, store)

	cred, err := c.Login("ada@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if cred.UserID != "user-1" || cred.UserEmail != "ada@example.com" || cred.DisplayName != "Ada" {
		t.Errorf("credential = %+v", cred)
	}
	if cred.Token == "" {
		t.Error("empty token")
	}
	if !cred.ExpiresAt.After(time.Now().Add(30 * time.Minute)) {
		t.Errorf("expiry = %v, want about an hour out", cred.ExpiresAt)
	}
	if store.saves != 1 {
		t.Errorf("saves = %d, want 1", store.saves)
	}
	if !c.IsLoggedIn() {
		t.Error("IsLoggedIn = false after login")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	ts := loginServer(t)
	c := NewHubClient(ts.URL, newMemStore())

	_, err := c.Login("ada@example.com", "wrong-pass")
	if err == nil {
		t.Fatal("expected login error")
	}
	if !strings.Contains(err.Error(), "Invalid credentials") {
		t.Errorf("err = %v", err)
	}
	if c.IsLoggedIn() {
		t.Error("IsLoggedIn = true after failed login")
	}
}

func TestGetToken(t *testing.T) {
	ts := loginServer(t)
	store := newMemStore()
	c := NewHubClient(ts.URL, store)

	// No credential yet
	token, err := c.GetToken()
	if err != nil || token != "" {
		t.Fatalf("GetToken = %q, %v", token, err)
	}

	if _, err := c.Login("ada@example.com", "secret123"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	token, err = c.GetToken()
	if err != nil || token == "" {
		t.Fatalf("GetToken after login = %q, %v", token, err)
	}

	// Expired credential reads as absent
	store.servers[c.ServerURL()].ExpiresAt = time.Now().Add(-time.Minute)
	token, err = c.GetToken()
	if err != nil || token != "" {
		t.Errorf("GetToken with expired cred = %q, %v", token, err)
	}
	if c.IsLoggedIn() {
		t.Error("IsLoggedIn = true with expired credential")
	}
}

func TestLogout(t *testing.T) {
	ts := loginServer(t)
	store := newMemStore()
	c := NewHubClient(ts.URL, store)

	if _, err := c.Login("ada@example.com", "secret123"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := c.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if c.IsLoggedIn() {
		t.Error("still logged in after Logout")
	}
	if len(store.servers) != 0 {
		t.Errorf("servers = %v", store.servers)
	}
}

func TestHTTPClientAttachesBearerToken(t *testing.T) {
	ts := loginServer(t)
	c := NewHubClient(ts.URL, newMemStore())

	// Anonymous request carries no header
	resp, err := c.HTTPClient().Get(ts.URL + "/whoami")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body := readBody(t, resp)
	if body != "" {
		t.Errorf("anonymous Authorization = %q", body)
	}

	cred, err := c.Login("ada@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	resp, err = c.HTTPClient().Get(ts.URL + "/whoami")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body = readBody(t, resp)
	if body != "Bearer "+cred.Token {
		t.Errorf("Authorization = %q", body)
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(data)
}

func TestAuthTransport(t *testing.T) {
	var gotHeader string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("Authorization")
	}))
	defer ts.Close()

	client := &http.Client{Transport: NewAuthTransport("static-token")}
	resp, err := client.Get(ts.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if gotHeader != "Bearer static-token" {
		t.Errorf("Authorization = %q", gotHeader)
	}

	// Empty token sends no header
	client = &http.Client{Transport: NewAuthTransport("")}
	resp, err = client.Get(ts.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if gotHeader != "" {
		t.Errorf("Authorization with empty token = %q", gotHeader)
	}
}

func TestTokenExpiry(t *testing.T) {
	token := mintToken(t, "user-1", 2*time.Hour)
	exp := tokenExpiry(token)
	want := time.Now().Add(2 * time.Hour)
	if exp.Before(want.Add(-time.Minute)) || exp.After(want.Add(time.Minute)) {
		t.Errorf("expiry = %v, want about %v", exp, want)
	}

	// Garbage tokens expire immediately
	exp = tokenExpiry("not-a-jwt")
	if exp.After(time.Now().Add(time.Second)) {
		t.Errorf("garbage token expiry = %v", exp)
	}
}

func TestServerURLNormalization(t *testing.T) {
	c := NewHubClient("https://hub.example.com/some/path?x=1", newMemStore())
	if c.ServerURL() != "https://hub.example.com" {
		t.Errorf("ServerURL = %q", c.ServerURL())
	}
}

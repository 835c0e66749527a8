package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HubClient is an HTTP client with stored-token management against a
// loginhub web server.  Tokens are minted by the server's login endpoint
// and attached to every request as a bearer header.
type HubClient struct {
	mu            sync.Mutex
	serverURL     string
	store         CredentialStore
	httpClient    *http.Client
	baseTransport http.RoundTripper
	loginEndpoint string // e.g., "/auth/login"
}

// loginResponse is the login endpoint's JSON body
type loginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	Error   string `json:"error"`
	User    struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
		Email       string `json:"email"`
	} `json:"user"`
}

// ClientOption configures a HubClient
type ClientOption func(*HubClient)

// WithLoginEndpoint sets a custom login endpoint path
func WithLoginEndpoint(path string) ClientOption {
	return func(c *HubClient) {
		c.loginEndpoint = path
	}
}

// WithHTTPClient sets a custom base HTTP client (for timeouts, TLS config, etc.)
// The transport from this client will be wrapped with auth handling.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HubClient) {
		if client != nil && client.Transport != nil {
			c.baseTransport = client.Transport
		}
		if client != nil {
			c.httpClient.Timeout = client.Timeout
			c.httpClient.CheckRedirect = client.CheckRedirect
			c.httpClient.Jar = client.Jar
		}
	}
}

// WithTransport sets a custom base transport (for connection pooling, proxies, etc.)
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *HubClient) {
		c.baseTransport = transport
	}
}

// NewHubClient creates a new authenticated HTTP client for a server
func NewHubClient(serverURL string, store CredentialStore, opts ...ClientOption) *HubClient {
	// Normalize server URL
	u, err := url.Parse(serverURL)
	if err == nil && u.Scheme != "" && u.Host != "" {
		serverURL = fmt.Sprintf("%s://%s", u.Scheme, u.Host)
	}

	c := &HubClient{
		serverURL:     serverURL,
		store:         store,
		httpClient:    &http.Client{},
		baseTransport: http.DefaultTransport,
		loginEndpoint: "/auth/login",
	}

	for _, opt := range opts {
		opt(c)
	}

	c.httpClient.Transport = &storeTransport{
		client: c,
		base:   c.baseTransport,
	}

	return c
}

// HTTPClient returns the underlying HTTP client with auth handling
func (c *HubClient) HTTPClient() *http.Client {
	return c.httpClient
}

// ServerURL returns the server URL this client is configured for
func (c *HubClient) ServerURL() string {
	return c.serverURL
}

// GetToken returns the current token, or empty when absent or expired.
// The hub has no refresh grant: an expired token means Login again.
func (c *HubClient) GetToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cred, err := c.store.GetCredential(c.serverURL)
	if err != nil {
		return "", err
	}
	if cred == nil || cred.IsExpired() {
		return "", nil
	}
	return cred.Token, nil
}

// GetCredential returns the stored credential for this server
func (c *HubClient) GetCredential() (*ServerCredential, error) {
	return c.store.GetCredential(c.serverURL)
}

// Login authenticates with email/password and stores the credential
func (c *HubClient) Login(email, password string) (*ServerCredential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	// Use base transport directly to avoid auth loop
	httpClient := &http.Client{Transport: c.baseTransport}
	resp, err := httpClient.Post(c.serverURL+c.loginEndpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var loginResp loginResponse
	if err := json.Unmarshal(respBody, &loginResp); err != nil {
		return nil, fmt.Errorf("invalid response from server: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !loginResp.Success {
		if loginResp.Error != "" {
			return nil, fmt.Errorf("authentication failed: %s", loginResp.Error)
		}
		return nil, fmt.Errorf("authentication failed: HTTP %d", resp.StatusCode)
	}

	cred := &ServerCredential{
		Token:       loginResp.Token,
		UserID:      loginResp.User.ID,
		UserEmail:   loginResp.User.Email,
		DisplayName: loginResp.User.DisplayName,
		ExpiresAt:   tokenExpiry(loginResp.Token),
		CreatedAt:   time.Now(),
	}

	if err := c.store.SetCredential(c.serverURL, cred); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}
	if err := c.store.Save(); err != nil {
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}

	return cred, nil
}

// Logout removes the credential for this server
func (c *HubClient) Logout() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.RemoveCredential(c.serverURL); err != nil {
		return err
	}
	return c.store.Save()
}

// IsLoggedIn returns true if there is a valid (non-expired) credential
func (c *HubClient) IsLoggedIn() bool {
	cred, err := c.store.GetCredential(c.serverURL)
	if err != nil || cred == nil {
		return false
	}
	return !cred.IsExpired()
}

// tokenExpiry reads the exp claim off the hub's JWT without verifying
// the signature.  The server is the only party relying on the
// signature; the client just needs to know when to re-login.
func tokenExpiry(tokenString string) time.Time {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return time.Now()
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Now()
	}
	return exp.Time
}

package providers

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/panyam/loginhub"
)

// rewriteTransport sends every request to the test server regardless of
// the host the provider was configured with.
type rewriteTransport struct {
	target *url.URL
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.URL.Scheme = t.target.Scheme
	clone.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(clone)
}

func testClient(t *testing.T, ts *httptest.Server) *http.Client {
	t.Helper()
	target, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("parse test server url: %v", err)
	}
	return &http.Client{Transport: &rewriteTransport{target: target}}
}

// freeRedirectURL reserves a loopback port for the provider's callback
// listener.
func freeRedirectURL(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return "http://" + addr + "/callback"
}

// approvePresenter plays the user approving consent: it reads the state
// and redirect target out of the auth URL and hits the callback.
func approvePresenter(t *testing.T, code string, mangleState bool) Presenter {
	return PresenterFunc(func(authURL string) error {
		parsed, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		q := parsed.Query()
		state := q.Get("state")
		if mangleState {
			state = "not-the-state"
		}
		redirect := q.Get("redirect_uri")
		resp, err := http.Get(redirect + "?state=" + url.QueryEscape(state) + "&code=" + url.QueryEscape(code))
		if err != nil {
			return err
		}
		resp.Body.Close()
		return nil
	})
}

func awaitResult(t *testing.T, ch <-chan loginhub.Result) loginhub.Result {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for provider result")
		return loginhub.Result{}
	}
}

func fakeVendor(t *testing.T, wantCode string, userInfo map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.FormValue("code") != wantCode {
			http.Error(w, "bad code", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"test-access-token","token_type":"bearer"}`)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("access_token") != "test-access-token" {
			http.Error(w, "bad token", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(userInfo)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestGoogleLoginFlow(t *testing.T) {
	ts := fakeVendor(t, "test-code", map[string]any{
		"id":      "g-123",
		"name":    "Test User",
		"email":   "test@example.com",
		"picture": "https://example.com/avatar.png",
	})

	g := NewGoogle("client-id", "client-secret", freeRedirectURL(t), approvePresenter(t, "test-code", false))
	g.HTTPClient = testClient(t, ts)
	g.UserInfoURL = ts.URL + "/userinfo"

	g.Login()
	res := awaitResult(t, g.Results())
	if res.Err != nil {
		t.Fatalf("result err: %v", res.Err)
	}
	want := loginhub.Identity{
		ID:          "g-123",
		DisplayName: "Test User",
		Email:       "test@example.com",
		AvatarURL:   "https://example.com/avatar.png",
		Provider:    loginhub.ProviderGoogle,
	}
	if *res.Profile != want {
		t.Errorf("profile = %+v, want %+v", *res.Profile, want)
	}
	if g.Kind() != loginhub.ProviderGoogle {
		t.Errorf("kind = %v", g.Kind())
	}
}

func TestGoogleLoginStateMismatch(t *testing.T) {
	ts := fakeVendor(t, "test-code", nil)

	g := NewGoogle("client-id", "client-secret", freeRedirectURL(t), approvePresenter(t, "test-code", true))
	g.HTTPClient = testClient(t, ts)
	g.UserInfoURL = ts.URL + "/userinfo"

	g.Login()
	res := awaitResult(t, g.Results())
	if res.Err == nil {
		t.Fatal("expected state mismatch error")
	}
	if !strings.Contains(res.Err.Error(), "state mismatch") {
		t.Errorf("err = %v", res.Err)
	}
}

func TestGoogleLoginVendorError(t *testing.T) {
	presenter := PresenterFunc(func(authURL string) error {
		parsed, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		redirect := parsed.Query().Get("redirect_uri")
		resp, err := http.Get(redirect + "?error=access_denied")
		if err != nil {
			return err
		}
		resp.Body.Close()
		return nil
	})

	g := NewGoogle("client-id", "client-secret", freeRedirectURL(t), presenter)
	g.Login()
	res := awaitResult(t, g.Results())
	if res.Err == nil || !strings.Contains(res.Err.Error(), "access_denied") {
		t.Errorf("err = %v", res.Err)
	}
}

func TestFacebookLoginFlow(t *testing.T) {
	ts := fakeVendor(t, "fb-code", map[string]any{
		"id":    "fb-456",
		"name":  "FB User",
		"email": "fb@example.com",
		"picture": map[string]any{
			"data": map[string]any{"url": "https://example.com/fb.png"},
		},
	})

	f := NewFacebook("client-id", "client-secret", freeRedirectURL(t), approvePresenter(t, "fb-code", false))
	f.HTTPClient = testClient(t, ts)
	f.UserInfoURL = ts.URL + "/userinfo"

	f.Login()
	res := awaitResult(t, f.Results())
	if res.Err != nil {
		t.Fatalf("result err: %v", res.Err)
	}
	if res.Profile.ID != "fb-456" || res.Profile.Provider != loginhub.ProviderFacebook {
		t.Errorf("profile = %+v", res.Profile)
	}
	if res.Profile.AvatarURL != "https://example.com/fb.png" {
		t.Errorf("avatar = %q", res.Profile.AvatarURL)
	}
}

func TestCallbackHandler(t *testing.T) {
	cases := []struct {
		name     string
		query    string
		wantErr  string
		wantCode string
	}{
		{"success", "state=good&code=abc", "", "abc"},
		{"vendor error", "state=good&error=access_denied", "access_denied", ""},
		{"state mismatch", "state=bad&code=abc", "state mismatch", ""},
		{"missing code", "state=good", "missing authorization code", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := make(chan callbackResult, 1)
			h := callbackHandler("good", out)
			req := httptest.NewRequest("GET", "/callback?"+tc.query, nil)
			h.ServeHTTP(httptest.NewRecorder(), req)

			res := <-out
			if tc.wantErr == "" {
				if res.err != nil {
					t.Fatalf("err = %v", res.err)
				}
				if res.callback.Code != tc.wantCode {
					t.Errorf("code = %q, want %q", res.callback.Code, tc.wantCode)
				}
			} else if res.err == nil || !strings.Contains(res.err.Error(), tc.wantErr) {
				t.Errorf("err = %v, want %q", res.err, tc.wantErr)
			}
		})
	}
}

func TestCallbackHandlerDeliversOnce(t *testing.T) {
	out := make(chan callbackResult, 1)
	h := callbackHandler("good", out)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/callback?state=good&code=abc", nil)
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	<-out
	select {
	case res := <-out:
		t.Errorf("second delivery: %+v", res)
	default:
	}
}

func TestLogoutDropsToken(t *testing.T) {
	g := NewGoogle("client-id", "client-secret", "http://127.0.0.1:1/callback", nil)
	g.mu.Lock()
	g.token = &oauth2.Token{AccessToken: "x"}
	g.mu.Unlock()

	g.Logout()

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.token != nil {
		t.Error("token not dropped")
	}
}

func testAppleKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func TestAppleClientSecret(t *testing.T) {
	key := testAppleKey(t)
	a := NewApple("team-1", "com.example.app", "key-1", key, "http://127.0.0.1:1/callback", nil)

	secret, err := a.clientSecret()
	if err != nil {
		t.Fatalf("clientSecret: %v", err)
	}

	token, err := jwt.Parse(secret, func(token *jwt.Token) (any, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"ES256"}))
	if err != nil || !token.Valid {
		t.Fatalf("parse secret: %v", err)
	}
	if token.Header["kid"] != "key-1" {
		t.Errorf("kid = %v", token.Header["kid"])
	}
	claims := token.Claims.(jwt.MapClaims)
	if claims["iss"] != "team-1" || claims["sub"] != "com.example.app" || claims["aud"] != appleAudience {
		t.Errorf("claims = %v", claims)
	}
}

func TestAppleClientSecretWithoutKey(t *testing.T) {
	a := NewApple("team-1", "com.example.app", "key-1", nil, "http://127.0.0.1:1/callback", nil)
	if _, err := a.clientSecret(); err == nil {
		t.Fatal("expected error without signing key")
	}
}

func mintIDToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("mint id_token: %v", err)
	}
	return raw
}

func TestAppleIdentityFromToken(t *testing.T) {
	a := NewApple("team-1", "com.example.app", "key-1", testAppleKey(t), "http://127.0.0.1:1/callback", nil)

	raw := mintIDToken(t, jwt.MapClaims{
		"sub":   "apple-789",
		"email": "apple@example.com",
		"nonce": "hashed-nonce",
	})
	token := (&oauth2.Token{AccessToken: "x"}).WithExtra(map[string]any{"id_token": raw})
	cb := &Callback{User: `{"name":{"firstName":"First","lastName":"Last"}}`}

	identity, err := a.identityFromToken(token, cb, "hashed-nonce")
	if err != nil {
		t.Fatalf("identityFromToken: %v", err)
	}
	if identity.ID != "apple-789" || identity.Email != "apple@example.com" {
		t.Errorf("identity = %+v", identity)
	}
	if identity.DisplayName != "First Last" {
		t.Errorf("display name = %q", identity.DisplayName)
	}
	if identity.Provider != loginhub.ProviderApple {
		t.Errorf("provider = %v", identity.Provider)
	}
}

func TestAppleIdentityNonceMismatch(t *testing.T) {
	a := NewApple("team-1", "com.example.app", "key-1", testAppleKey(t), "http://127.0.0.1:1/callback", nil)

	raw := mintIDToken(t, jwt.MapClaims{"sub": "apple-789", "nonce": "wrong"})
	token := (&oauth2.Token{AccessToken: "x"}).WithExtra(map[string]any{"id_token": raw})

	if _, err := a.identityFromToken(token, &Callback{}, "hashed-nonce"); err == nil {
		t.Fatal("expected nonce mismatch error")
	}
}

func TestAppleIdentityMissingIDToken(t *testing.T) {
	a := NewApple("team-1", "com.example.app", "key-1", testAppleKey(t), "http://127.0.0.1:1/callback", nil)
	if _, err := a.identityFromToken(&oauth2.Token{AccessToken: "x"}, &Callback{}, "n"); err == nil {
		t.Fatal("expected missing id_token error")
	}
}

func TestAppleUserName(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"full name", `{"name":{"firstName":"Ada","lastName":"Lovelace"}}`, "Ada Lovelace"},
		{"first only", `{"name":{"firstName":"Ada"}}`, "Ada"},
		{"empty payload", "", ""},
		{"malformed json", "{not json", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := appleUserName(tc.raw); got != tc.want {
				t.Errorf("appleUserName(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestParseApplePrivateKey(t *testing.T) {
	key := testAppleKey(t)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	parsed, err := ParseApplePrivateKey(pemBytes)
	if err != nil {
		t.Fatalf("ParseApplePrivateKey: %v", err)
	}
	if !parsed.Equal(key) {
		t.Error("parsed key differs from original")
	}

	if _, err := ParseApplePrivateKey([]byte("not pem")); err == nil {
		t.Error("expected error for junk input")
	}
}

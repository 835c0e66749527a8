// Package providers implements the federated identity providers
// (Facebook, Google, Apple) on top of the OAuth2 authorization code flow.
//
// Each provider satisfies the loginhub.Provider contract: Login launches
// the vendor's consent surface through an injected Presenter, captures the
// redirect on a loopback listener, exchanges the code, normalizes the
// vendor's profile into a loginhub.Identity and emits exactly one Result
// on the provider's channel. The channel is reusable across invocations.
package providers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"

	"golang.org/x/oauth2"

	"github.com/panyam/loginhub"
)

// Presenter opens the vendor's consent surface - the "UI shell"
// collaborator. A desktop or CLI host opens the system browser; tests
// drive the URL directly.
type Presenter interface {
	Present(authURL string) error
}

// PresenterFunc adapts a function to the Presenter interface.
type PresenterFunc func(authURL string) error

func (f PresenterFunc) Present(authURL string) error { return f(authURL) }

// Callback carries what the vendor redirected back to the loopback
// listener: the authorization code plus any extra form values a provider
// cares about (Apple posts a "user" payload on first authorization).
type Callback struct {
	Code string
	User string
}

// fetchFunc turns an exchanged token (and the raw callback) into a
// normalized identity.
type fetchFunc func(token *oauth2.Token, cb *Callback) (*loginhub.Identity, error)

// Base holds what every OAuth2-style provider shares. Concrete providers
// embed it and supply their endpoint, scopes and fetch function.
type Base struct {
	kind      loginhub.ProviderKind
	config    oauth2.Config
	presenter Presenter
	results   chan loginhub.Result

	// HTTPClient is used for userinfo fetches. Defaults to
	// http.DefaultClient. Can be overridden for testing.
	HTTPClient *http.Client

	mu    sync.Mutex
	token *oauth2.Token // last exchanged token, dropped on Logout
}

func newBase(kind loginhub.ProviderKind, config oauth2.Config, presenter Presenter) *Base {
	return &Base{
		kind:      kind,
		config:    config,
		presenter: presenter,
		results:   make(chan loginhub.Result, 1),
	}
}

func (b *Base) Kind() loginhub.ProviderKind { return b.kind }

// Results returns the provider's completion channel.
func (b *Base) Results() <-chan loginhub.Result { return b.results }

// Logout drops the cached token. It never fails.
func (b *Base) Logout() {
	b.mu.Lock()
	b.token = nil
	b.mu.Unlock()
}

// login runs one flow asynchronously and emits its single Result.
func (b *Base) login(authOpts []oauth2.AuthCodeOption, exchangeOpts []oauth2.AuthCodeOption, fetch fetchFunc) {
	go func() {
		profile, err := b.runFlow(authOpts, exchangeOpts, fetch)
		if err != nil {
			b.results <- loginhub.Result{Err: err}
			return
		}
		b.results <- loginhub.Result{Profile: profile}
	}()
}

// runFlow drives one authorization code flow end to end: loopback
// listener up, consent surface presented, redirect captured, code
// exchanged, profile fetched.
func (b *Base) runFlow(authOpts []oauth2.AuthCodeOption, exchangeOpts []oauth2.AuthCodeOption, fetch fetchFunc) (*loginhub.Identity, error) {
	state, err := generateState()
	if err != nil {
		return nil, err
	}

	redirect, err := url.Parse(b.config.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URL: %w", err)
	}
	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for callback: %w", err)
	}
	defer ln.Close()

	cbCh := make(chan callbackResult, 1)
	srv := &http.Server{Handler: callbackHandler(state, cbCh)}
	go srv.Serve(ln)
	defer srv.Close()

	if err := b.presenter.Present(b.config.AuthCodeURL(state, authOpts...)); err != nil {
		return nil, fmt.Errorf("failed to present sign-in surface: %w", err)
	}

	// No timeout here: a flow the user never finishes simply never
	// emits. Cancellation surfaces as the vendor's error redirect.
	cb := <-cbCh
	if cb.err != nil {
		return nil, cb.err
	}

	token, err := b.config.Exchange(b.exchangeContext(), cb.callback.Code, exchangeOpts...)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	b.mu.Lock()
	b.token = token
	b.mu.Unlock()

	return fetch(token, &cb.callback)
}

type callbackResult struct {
	callback Callback
	err      error
}

// callbackHandler captures exactly one redirect. Apple posts its callback
// (response_mode form_post), the others use query params; FormValue
// covers both.
func callbackHandler(state string, out chan<- callbackResult) http.Handler {
	var once sync.Once
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := callbackResult{}
		switch {
		case r.FormValue("error") != "":
			res.err = fmt.Errorf("provider returned error: %s", r.FormValue("error"))
		case r.FormValue("state") != state:
			res.err = fmt.Errorf("oauth state mismatch")
		case r.FormValue("code") == "":
			res.err = fmt.Errorf("missing authorization code")
		default:
			res.callback = Callback{
				Code: r.FormValue("code"),
				User: r.FormValue("user"),
			}
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body>Sign-in complete. You can close this window.</body></html>")

		once.Do(func() { out <- res })
	})
}

func (b *Base) httpClient() *http.Client {
	if b.HTTPClient != nil {
		return b.HTTPClient
	}
	return http.DefaultClient
}

// exchangeContext makes the token exchange use the injectable client too.
func (b *Base) exchangeContext() context.Context {
	return context.WithValue(context.Background(), oauth2.HTTPClient, b.httpClient())
}

func generateState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}

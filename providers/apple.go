package providers

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/panyam/loginhub"
)

const appleAudience = "https://appleid.apple.com"

var appleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://appleid.apple.com/auth/authorize",
	TokenURL: "https://appleid.apple.com/auth/token",
}

// Apple signs users in with Apple. Unlike Google and Facebook, Apple has
// no userinfo endpoint: the identity comes from the id_token minted with
// the code exchange, and the client secret is itself a short-lived ES256
// JWT signed with the developer's key.
type Apple struct {
	*Base

	teamId     string
	keyId      string
	signingKey *ecdsa.PrivateKey
}

func NewApple(teamId, clientId, keyId string, signingKey *ecdsa.PrivateKey, redirectUrl string, presenter Presenter) *Apple {
	if teamId == "" {
		teamId = strings.TrimSpace(os.Getenv("LOGINHUB_APPLE_TEAM_ID"))
	}
	if clientId == "" {
		clientId = strings.TrimSpace(os.Getenv("LOGINHUB_APPLE_CLIENT_ID"))
	}
	if keyId == "" {
		keyId = strings.TrimSpace(os.Getenv("LOGINHUB_APPLE_KEY_ID"))
	}
	if redirectUrl == "" {
		redirectUrl = strings.TrimSpace(os.Getenv("LOGINHUB_APPLE_REDIRECT_URL"))
	}
	if redirectUrl == "" {
		redirectUrl = "http://127.0.0.1:8912/callback"
	}

	out := &Apple{
		Base: newBase(loginhub.ProviderApple, oauth2.Config{
			ClientID:    clientId,
			RedirectURL: redirectUrl,
			Scopes:      []string{"name", "email"},
			Endpoint:    appleEndpoint,
		}, presenter),
		teamId:     teamId,
		keyId:      keyId,
		signingKey: signingKey,
	}
	return out
}

func (a *Apple) Login() {
	nonce, err := loginhub.GenerateNonce()
	if err != nil {
		a.results <- loginhub.Result{Err: err}
		return
	}
	hashed := loginhub.HashNonce(nonce)

	secret, err := a.clientSecret()
	if err != nil {
		a.results <- loginhub.Result{Err: err}
		return
	}
	a.config.ClientSecret = secret

	authOpts := []oauth2.AuthCodeOption{
		// Apple requires form_post whenever name/email scopes are asked for
		oauth2.SetAuthURLParam("response_mode", "form_post"),
		oauth2.SetAuthURLParam("nonce", hashed),
	}
	a.login(authOpts, nil, func(token *oauth2.Token, cb *Callback) (*loginhub.Identity, error) {
		return a.identityFromToken(token, cb, hashed)
	})
}

// clientSecret mints the ES256 JWT Apple expects as the client secret.
func (a *Apple) clientSecret() (string, error) {
	if a.signingKey == nil {
		return "", fmt.Errorf("apple signing key not configured")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": a.teamId,
		"sub": a.config.ClientID,
		"aud": appleAudience,
		"iat": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
	})
	token.Header["kid"] = a.keyId
	return token.SignedString(a.signingKey)
}

// identityFromToken extracts the identity from the id_token claims. The
// token arrived directly from Apple's token endpoint over TLS, so the
// claims are trusted without a signature check; the nonce claim is still
// compared against the one this flow sent, which is what defeats replay.
func (a *Apple) identityFromToken(token *oauth2.Token, cb *Callback, wantNonce string) (*loginhub.Identity, error) {
	rawIdToken, _ := token.Extra("id_token").(string)
	if rawIdToken == "" {
		return nil, fmt.Errorf("no id_token in token response")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(rawIdToken, claims); err != nil {
		return nil, fmt.Errorf("failed to parse id_token: %w", err)
	}

	if nonce, _ := claims["nonce"].(string); nonce != wantNonce {
		return nil, fmt.Errorf("id_token nonce mismatch")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("id_token has no subject")
	}
	email, _ := claims["email"].(string)

	return &loginhub.Identity{
		ID:          sub,
		DisplayName: appleUserName(cb.User),
		Email:       email,
		Provider:    loginhub.ProviderApple,
	}, nil
}

// appleUserName parses the user payload Apple posts on first
// authorization only: {"name": {"firstName": ..., "lastName": ...}}.
// Later authorizations omit it, leaving the name empty.
func appleUserName(raw string) string {
	if raw == "" {
		return ""
	}
	var payload struct {
		Name struct {
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
		} `json:"name"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Name.FirstName + " " + payload.Name.LastName)
}

// ParseApplePrivateKey parses the PEM-encoded PKCS#8 key Apple issues for
// Sign in with Apple.
func ParseApplePrivateKey(pemBytes []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	ecKey, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not an ECDSA private key")
	}
	return ecKey, nil
}

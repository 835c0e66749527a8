package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/panyam/loginhub"
)

// Google signs users in with Google.
type Google struct {
	*Base

	// UserInfoURL is the URL to fetch user info from. Defaults to
	// Google's userinfo API. Can be overridden for testing.
	UserInfoURL string
}

func NewGoogle(clientId, clientSecret, redirectUrl string, presenter Presenter) *Google {
	if clientId == "" {
		clientId = strings.TrimSpace(os.Getenv("LOGINHUB_GOOGLE_CLIENT_ID"))
	}
	if clientSecret == "" {
		clientSecret = strings.TrimSpace(os.Getenv("LOGINHUB_GOOGLE_CLIENT_SECRET"))
	}
	if redirectUrl == "" {
		redirectUrl = strings.TrimSpace(os.Getenv("LOGINHUB_GOOGLE_REDIRECT_URL"))
	}
	if redirectUrl == "" {
		redirectUrl = "http://127.0.0.1:8910/callback"
	}

	out := &Google{
		Base: newBase(loginhub.ProviderGoogle, oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  redirectUrl,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		}, presenter),
		UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
	}
	return out
}

func (g *Google) Login() {
	g.login(nil, nil, g.fetchIdentity)
}

func (g *Google) fetchIdentity(token *oauth2.Token, cb *Callback) (*loginhub.Identity, error) {
	data, err := g.userData(token)
	if err != nil {
		return nil, err
	}

	var info map[string]any
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}

	return &loginhub.Identity{
		ID:          stringValue(info, "id"),
		DisplayName: stringValue(info, "name"),
		Email:       stringValue(info, "email"),
		AvatarURL:   stringValue(info, "picture"),
		Provider:    loginhub.ProviderGoogle,
	}, nil
}

func (g *Google) userData(token *oauth2.Token) ([]byte, error) {
	response, err := g.httpClient().Get(g.UserInfoURL + "?access_token=" + token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %w", err)
	}
	defer response.Body.Close()
	contents, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed read response: %w", err)
	}
	return contents, nil
}

func stringValue(info map[string]any, key string) string {
	if v, ok := info[key].(string); ok {
		return v
	}
	return ""
}

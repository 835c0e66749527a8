package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"

	"github.com/panyam/loginhub"
)

// Facebook signs users in with Facebook.
type Facebook struct {
	*Base

	// UserInfoURL is the Graph API endpoint for the signed-in user.
	// Can be overridden for testing.
	UserInfoURL string
}

func NewFacebook(clientId, clientSecret, redirectUrl string, presenter Presenter) *Facebook {
	if clientId == "" {
		clientId = strings.TrimSpace(os.Getenv("LOGINHUB_FACEBOOK_CLIENT_ID"))
	}
	if clientSecret == "" {
		clientSecret = strings.TrimSpace(os.Getenv("LOGINHUB_FACEBOOK_CLIENT_SECRET"))
	}
	if redirectUrl == "" {
		redirectUrl = strings.TrimSpace(os.Getenv("LOGINHUB_FACEBOOK_REDIRECT_URL"))
	}
	if redirectUrl == "" {
		redirectUrl = "http://127.0.0.1:8911/callback"
	}

	out := &Facebook{
		Base: newBase(loginhub.ProviderFacebook, oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  redirectUrl,
			Scopes:       []string{"public_profile", "email"},
			Endpoint:     facebook.Endpoint,
		}, presenter),
		UserInfoURL: "https://graph.facebook.com/me",
	}
	return out
}

func (f *Facebook) Login() {
	f.login(nil, nil, f.fetchIdentity)
}

func (f *Facebook) fetchIdentity(token *oauth2.Token, cb *Callback) (*loginhub.Identity, error) {
	params := url.Values{}
	params.Set("fields", "id,name,email,picture")
	params.Set("access_token", token.AccessToken)

	response, err := f.httpClient().Get(f.UserInfoURL + "?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %w", err)
	}
	defer response.Body.Close()
	contents, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed read response: %w", err)
	}

	var info map[string]any
	if err := json.Unmarshal(contents, &info); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}

	return &loginhub.Identity{
		ID:          stringValue(info, "id"),
		DisplayName: stringValue(info, "name"),
		Email:       stringValue(info, "email"),
		AvatarURL:   pictureURL(info),
		Provider:    loginhub.ProviderFacebook,
	}, nil
}

// pictureURL digs the avatar out of the Graph API's nested picture shape:
// {"picture": {"data": {"url": ...}}}
func pictureURL(info map[string]any) string {
	picture, ok := info["picture"].(map[string]any)
	if !ok {
		return ""
	}
	data, ok := picture["data"].(map[string]any)
	if !ok {
		return ""
	}
	return stringValue(data, "url")
}

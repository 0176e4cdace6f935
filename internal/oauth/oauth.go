// Package oauth implements the OAuth 2.0 authorization-code flow against
// the social providers. None of them require OIDC for our purposes: the
// raw userinfo JSON is handed to the identity normalizer as-is, so a
// single client covers kakao, google and naver with endpoint presets.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Endpoints describe a provider's OAuth 2.0 surface.
type Endpoints struct {
	Auth     string
	Token    string
	UserInfo string
	Scopes   []string
}

var presets = map[string]Endpoints{
	"kakao": {
		Auth:     "https://kauth.kakao.com/oauth/authorize",
		Token:    "https://kauth.kakao.com/oauth/token",
		UserInfo: "https://kapi.kakao.com/v2/user/me",
		// Kakao: sin scopes explícitos usa los consentidos en la app.
	},
	"google": {
		Auth:     "https://accounts.google.com/o/oauth2/v2/auth",
		Token:    "https://oauth2.googleapis.com/token",
		UserInfo: "https://openidconnect.googleapis.com/v1/userinfo",
		Scopes:   []string{"openid", "email", "profile"},
	},
	"naver": {
		Auth:     "https://nid.naver.com/oauth2.0/authorize",
		Token:    "https://nid.naver.com/oauth2.0/token",
		UserInfo: "https://openapi.naver.com/v1/nid/me",
	},
}

// Client is an OAuth 2.0 authorization-code client for one provider.
type Client struct {
	Provider     string
	ClientID     string
	ClientSecret string
	RedirectURL  string

	endpoints Endpoints
	http      *http.Client
}

// New creates a client for a known provider.
func New(provider, clientID, clientSecret, redirectURL string) (*Client, error) {
	ep, ok := presets[provider]
	if !ok {
		return nil, fmt.Errorf("oauth: unknown provider %q", provider)
	}
	return &Client{
		Provider:     provider,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		endpoints:    ep,
		http:         &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// AuthURL builds the authorization URL the browser is redirected to.
func (c *Client) AuthURL(state string) string {
	u, _ := url.Parse(c.endpoints.Auth)
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", c.RedirectURL)
	q.Set("state", state)
	if len(c.endpoints.Scopes) > 0 {
		q.Set("scope", strings.Join(c.endpoints.Scopes, " "))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Error       string `json:"error,omitempty"`
	ErrorDesc   string `json:"error_description,omitempty"`
}

// ExchangeCode exchanges an authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	form.Set("redirect_uri", c.RedirectURL)
	form.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.Token, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.Error != "" {
		return "", fmt.Errorf("%s oauth error: %s - %s", c.Provider, tr.Error, tr.ErrorDesc)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("no access_token in response")
	}
	return tr.AccessToken, nil
}

// FetchUserInfo fetches the raw userinfo document using the access token.
// The shape is provider-specific; the identity normalizer deals with it.
func (c *Client) FetchUserInfo(ctx context.Context, accessToken string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoints.UserInfo, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s api error: status %d", c.Provider, resp.StatusCode)
	}

	var info map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return info, nil
}

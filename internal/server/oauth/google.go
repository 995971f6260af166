// Package oauth implements the Google authorization-code flow: building the
// consent URL, exchanging the returned code and reading the user's profile,
// plus one-time storage for the anti-CSRF state parameter.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/tzikbal/internal/common"
	"github.com/dmitrijs2005/tzikbal/internal/server/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// GoogleUserInfoURL is the OpenID Connect userinfo endpoint.
const GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// GoogleScopes are requested on every consent screen.
var GoogleScopes = []string{"email", "profile"}

type GoogleProvider struct {
	cfg         *oauth2.Config
	userInfoURL string
}

func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       GoogleScopes,
			Endpoint:     endpoints.Google,
		},
		userInfoURL: GoogleUserInfoURL,
	}
}

// WithEndpoints points the provider at different authorization, token and
// userinfo URLs.
func (p *GoogleProvider) WithEndpoints(authURL, tokenURL, userInfoURL string) *GoogleProvider {
	p.cfg.Endpoint = oauth2.Endpoint{
		AuthURL:   authURL,
		TokenURL:  tokenURL,
		AuthStyle: oauth2.AuthStyleInParams,
	}
	p.userInfoURL = userInfoURL
	return p
}

// AuthCodeURL returns the consent page URL carrying state.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type userInfo struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Exchange trades an authorization code for tokens and returns the
// identity from the userinfo endpoint. A missing or unverified email is
// ErrMissingAssertion.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (models.Assertion, error) {
	if code == "" {
		return models.Assertion{}, common.ErrMissingAssertion
	}

	tok, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return models.Assertion{}, fmt.Errorf("%w: token exchange: %w", common.ErrMissingAssertion, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return models.Assertion{}, err
	}

	resp, err := p.cfg.Client(ctx, tok).Do(req)
	if err != nil {
		return models.Assertion{}, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Assertion{}, fmt.Errorf("%w: userinfo status %d", common.ErrMissingAssertion, resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return models.Assertion{}, fmt.Errorf("decode userinfo: %w", err)
	}

	if info.Email == "" || (info.EmailVerified != nil && !*info.EmailVerified) {
		return models.Assertion{}, common.ErrMissingAssertion
	}

	return models.Assertion{Email: info.Email, Name: info.Name, Picture: info.Picture}, nil
}

package social

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/af-corp/showcase-gateway/internal/config"
)

var ErrNoAppID = errors.New("instagram app id not configured")

// Authorizer runs the Instagram authorization-code flow: it builds the consent
// URL and exchanges the returned code for a user access token.
type Authorizer struct {
	cfg    config.OAuthConfig
	client *http.Client
}

func NewAuthorizer(cfg config.OAuthConfig, client *http.Client) *Authorizer {
	if client == nil {
		client = http.DefaultClient
	}
	return &Authorizer{cfg: cfg, client: client}
}

func (a *Authorizer) Configured() bool { return a.cfg.AppID != "" }

// RedirectURL is the configured callback, or fallback when none is set.
func (a *Authorizer) RedirectURL(fallback string) string {
	if a.cfg.RedirectURL != "" {
		return a.cfg.RedirectURL
	}
	return fallback
}

// AuthCodeURL returns the consent page URL carrying state.
func (a *Authorizer) AuthCodeURL(redirectURL, state string) (string, error) {
	if !a.Configured() {
		return "", ErrNoAppID
	}
	return a.config(redirectURL).AuthCodeURL(state), nil
}

// Exchange trades an authorization code for an access token. redirectURL must
// match the one used to build the consent URL.
func (a *Authorizer) Exchange(ctx context.Context, code, redirectURL string) (string, error) {
	if !a.Configured() {
		return "", ErrNoAppID
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client)
	tok, err := a.config(redirectURL).Exchange(ctx, code)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			return "", fmt.Errorf("failed to exchange code for token: %d - %s", rerr.Response.StatusCode, strings.TrimSpace(string(rerr.Body)))
		}
		return "", fmt.Errorf("failed to exchange code for token: %w", err)
	}
	return tok.AccessToken, nil
}

func (a *Authorizer) config(redirectURL string) *oauth2.Config {
	c := &oauth2.Config{
		ClientID:     a.cfg.AppID,
		ClientSecret: a.cfg.AppSecret,
		RedirectURL:  redirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   a.cfg.AuthURL,
			TokenURL:  a.cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	// Instagram expects a comma-separated scope list, not the space-separated
	// form oauth2 builds from multiple entries.
	if len(a.cfg.Scopes) > 0 {
		c.Scopes = []string{strings.Join(a.cfg.Scopes, ",")}
	}
	return c
}

// NewState returns a random value for the state parameter.
func NewState() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

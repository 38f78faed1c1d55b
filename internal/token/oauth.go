package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// OAuthFetcher runs the client-credentials grant with credentials sent in the form
// body, which is what the Adobe IMS endpoint expects.
type OAuthFetcher struct {
	client *http.Client
}

func NewOAuthFetcher(client *http.Client) *OAuthFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &OAuthFetcher{client: client}
}

func (f *OAuthFetcher) Fetch(ctx context.Context, c Client) (Grant, error) {
	cfg := clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		Scopes:       c.Scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.client)
	tok, err := cfg.Token(ctx)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			return Grant{}, fmt.Errorf("token request failed: %d - %s", rerr.Response.StatusCode, string(rerr.Body))
		}
		return Grant{}, fmt.Errorf("token request: %w", err)
	}

	g := Grant{AccessToken: tok.AccessToken}
	if !tok.Expiry.IsZero() {
		g.ExpiresIn = time.Until(tok.Expiry)
	}
	return g, nil
}

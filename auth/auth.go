// Package auth builds bearer-token HTTP clients for external providers.
package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// ErrNoCredentials is returned when Conf holds neither an API key nor
// client credentials.
var ErrNoCredentials = errors.New("no credentials configured")

// TokenSource returns a static source for API keys and a cached
// client-credentials source otherwise.
func TokenSource(ctx context.Context, conf Conf) (oauth2.TokenSource, error) {
	switch {
	case conf.APIKey != "":
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: conf.APIKey, TokenType: "Bearer"}), nil
	case conf.ClientID != "" && conf.TokenURL != "":
		cc := conf.toOauth2Config()
		return oauth2.ReuseTokenSource(nil, cc.TokenSource(ctx)), nil
	default:
		return nil, ErrNoCredentials
	}
}

// NewHTTPClient returns a client that sets the Authorization header on every
// request. A zero timeout leaves the client unbounded.
func NewHTTPClient(ctx context.Context, conf Conf, timeout time.Duration) (*http.Client, error) {
	ts, err := TokenSource(ctx, conf)
	if err != nil {
		return nil, err
	}
	cli := oauth2.NewClient(ctx, ts)
	cli.Timeout = timeout
	return cli, nil
}

package graph

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// tokenExpiryBuffer is how long before the reported expiry a token is
// treated as expired, so it does not lapse mid-request.
const tokenExpiryBuffer = 5 * time.Minute

const graphScope = "https://graph.microsoft.com/.default"

// tokenSource hands out client-credentials access tokens, caching them
// until shortly before expiry. It is safe for concurrent use.
type tokenSource struct {
	mu     sync.Mutex
	config clientcredentials.Config
	client *http.Client
	src    oauth2.TokenSource
}

func newTokenSource(tokenURL, clientID, clientSecret string, client *http.Client) *tokenSource {
	ts := &tokenSource{
		config: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			Scopes:       []string{graphScope},
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		client: client,
	}
	ts.src = ts.newSource()
	return ts
}

// Token returns a valid access token, fetching a new one if necessary.
func (ts *tokenSource) Token() (string, error) {
	ts.mu.Lock()
	src := ts.src
	ts.mu.Unlock()

	tok, err := src.Token()
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// ForceRefresh discards the cached token and acquires a new one. Used when
// the API rejects a token that has not yet expired.
func (ts *tokenSource) ForceRefresh() (string, error) {
	ts.mu.Lock()
	ts.src = ts.newSource()
	ts.mu.Unlock()

	return ts.Token()
}

func (ts *tokenSource) newSource() oauth2.TokenSource {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, ts.client)
	return oauth2.ReuseTokenSourceWithExpiry(nil, fetcher{ctx: ctx, config: &ts.config}, tokenExpiryBuffer)
}

// fetcher requests a fresh token on every call; caching is left to the
// wrapping reuse source.
type fetcher struct {
	ctx    context.Context
	config *clientcredentials.Config
}

func (f fetcher) Token() (*oauth2.Token, error) {
	return f.config.Token(f.ctx)
}

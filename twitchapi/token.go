package twitchapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/onnwee/matchsync/discovery"
)

// DefaultTokenURL is the Twitch client-credentials endpoint.
const DefaultTokenURL = "https://id.twitch.tv/oauth2/token"

// renewBefore refreshes a cached token this long before it expires.
const renewBefore = time.Minute

// TokenSource fetches and caches a Twitch app access token through the OAuth2
// client-credentials grant. Twitch wants the credentials in the form body.
type TokenSource struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	HTTPClient   *http.Client

	mu  sync.Mutex
	tok *oauth2.Token
}

func (ts *TokenSource) config() *clientcredentials.Config {
	tokenURL := ts.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &clientcredentials.Config{
		ClientID:     ts.ClientID,
		ClientSecret: ts.ClientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
}

// Get returns the cached app token, fetching a new one when none is held or
// the held one expires within a minute. Concurrent callers share one fetch.
// Missing client credentials yield discovery.ErrNoCredential.
func (ts *TokenSource) Get(ctx context.Context) (string, error) {
	if ts.ClientID == "" || ts.ClientSecret == "" {
		return "", discovery.ErrNoCredential
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.tok.Valid() && (ts.tok.Expiry.IsZero() || time.Until(ts.tok.Expiry) > renewBefore) {
		return ts.tok.AccessToken, nil
	}
	if ts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, ts.HTTPClient)
	}
	tok, err := ts.config().Token(ctx)
	if err != nil {
		return "", fmt.Errorf("twitch app token: %w", err)
	}
	ts.tok = tok
	return tok.AccessToken, nil
}

// Invalidate drops the cached token so the next Get fetches a new one. Helix
// calls it after a 401.
func (ts *TokenSource) Invalidate() {
	ts.mu.Lock()
	ts.tok = nil
	ts.mu.Unlock()
}

package graph

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// tokenExpiryBuffer is subtracted from the advertised lifetime so a token is
// never used right before it expires.
const tokenExpiryBuffer = 5 * time.Minute

// noExpiryLifetime caches tokens whose response carried no expires_in.
const noExpiryLifetime = time.Hour

// graphScope is the client-credentials scope for Microsoft Graph.
const graphScope = "https://graph.microsoft.com/.default"

// tokenCache holds one OAuth2 access token and refreshes it on demand.
// It is shared by all concurrent sends of a provider.
type tokenCache struct {
	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
	credentials *clientcredentials.Config
	httpClient  *http.Client
}

func newTokenCache(tokenURL, clientID, clientSecret string, httpClient *http.Client) *tokenCache {
	return &tokenCache{
		credentials: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			Scopes:       []string{graphScope},
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: httpClient,
	}
}

// Token returns a valid access token, fetching a new one when the cached
// token is missing or expired.
func (tc *tokenCache) Token(ctx context.Context) (string, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.accessToken != "" && time.Now().Before(tc.expiresAt) {
		return tc.accessToken, nil
	}

	return tc.fetch(ctx)
}

// Invalidate drops the cached token so the next Token call fetches a new one.
func (tc *tokenCache) Invalidate() {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.accessToken = ""
	tc.expiresAt = time.Time{}
}

// fetch runs the client-credentials grant. The caller must hold tc.mu.
func (tc *tokenCache) fetch(ctx context.Context) (string, error) {
	if tc.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, tc.httpClient)
	}

	tok, err := tc.credentials.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}

	expiresAt := tok.Expiry.Add(-tokenExpiryBuffer)
	if tok.Expiry.IsZero() {
		expiresAt = time.Now().Add(noExpiryLifetime)
	}

	tc.accessToken = tok.AccessToken
	tc.expiresAt = expiresAt

	return tc.accessToken, nil
}

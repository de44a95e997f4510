package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shineum/mail-relay-lite/internal/email"
	"github.com/shineum/mail-relay-lite/internal/provider"
)

// GraphProviderConfig holds the configuration for creating a GraphProvider.
type GraphProviderConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	// Sender is the mailbox whose sendMail endpoint is used.
	Sender string
}

// GraphProvider sends emails via the Microsoft Graph API using OAuth2
// client credentials authentication.
// @MX:ANCHOR: [AUTO] External system integration point for Microsoft Graph API
// @MX:REASON: All email delivery flows through this provider when Graph is configured
type GraphProvider struct {
	graphURL   string
	httpClient *http.Client
	token      *tokenCache
}

// New creates a new GraphProvider with the given configuration.
func New(cfg GraphProviderConfig) *GraphProvider {
	tokenURL := fmt.Sprintf(
		"https://login.microsoftonline.com/%s/oauth2/v2.0/token",
		url.PathEscape(cfg.TenantID),
	)
	graphURL := fmt.Sprintf(
		"https://graph.microsoft.com/v1.0/users/%s/sendMail",
		url.PathEscape(cfg.Sender),
	)

	client := &http.Client{Timeout: 30 * time.Second}

	return newWithOverrides(cfg, graphURL, tokenURL, client)
}

// newWithOverrides creates a GraphProvider with custom URLs and HTTP client,
// used for testing.
func newWithOverrides(cfg GraphProviderConfig, graphURL, tokenURL string, client *http.Client) *GraphProvider {
	return &GraphProvider{
		graphURL:   graphURL,
		httpClient: client,
		token:      newTokenCache(tokenURL, cfg.ClientID, cfg.ClientSecret, client),
	}
}

// Send delivers an envelope with one call to the sendMail endpoint.
// Graph answers 202 Accepted on success.
func (g *GraphProvider) Send(ctx context.Context, env *email.Envelope) (int, error) {
	bodyJSON, err := json.Marshal(buildSendMailRequest(env))
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request body: %w", err)
	}

	token, err := g.token.Token(ctx)
	if err != nil {
		return 0, &provider.Error{
			Provider: g.Name(),
			Err:      fmt.Errorf("failed to get access token: %w", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.graphURL, bytes.NewReader(bodyJSON))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return 0, &provider.Error{
			Provider: g.Name(),
			Err:      fmt.Errorf("HTTP request failed: %w", err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		return resp.StatusCode, nil
	}

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		// A rejected token must not be reused by the next request.
		g.token.Invalidate()
	}

	sendErr := &provider.Error{Provider: g.Name(), StatusCode: resp.StatusCode}

	var graphErrResp graphErrorResponse
	if jsonErr := json.Unmarshal(body, &graphErrResp); jsonErr == nil && graphErrResp.Error.Message != "" {
		sendErr.Errors = []provider.ErrorDetail{{
			Message: graphErrResp.Error.Message,
			Field:   graphErrResp.Error.Code,
		}}
	} else {
		sendErr.Err = fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body)))
	}

	return 0, sendErr
}

// Name returns the provider name.
func (g *GraphProvider) Name() string {
	return "msgraph"
}

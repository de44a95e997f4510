// Package app wires configuration, the delivery provider, the relay and the
// HTTP handler. Both entry points build the same App.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shineum/mail-relay-lite/internal/config"
	"github.com/shineum/mail-relay-lite/internal/httpapi"
	"github.com/shineum/mail-relay-lite/internal/provider"
	"github.com/shineum/mail-relay-lite/internal/provider/graph"
	"github.com/shineum/mail-relay-lite/internal/provider/sendgrid"
	"github.com/shineum/mail-relay-lite/internal/provider/ses"
	"github.com/shineum/mail-relay-lite/internal/provider/stdout"
	"github.com/shineum/mail-relay-lite/internal/relay"
)

// App holds the wired components.
type App struct {
	Config   *config.Config
	Provider provider.Provider
	Relay    *relay.Relay
	Handler  http.Handler
}

// New validates cfg and builds the provider, relay and handler.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	prov, err := SelectProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	r := relay.New(relay.Options{
		DefaultFrom: cfg.Mail.DefaultFrom,
		Provider:    prov,
	})

	return &App{
		Config:   cfg,
		Provider: prov,
		Relay:    r,
		Handler: httpapi.NewHandler(httpapi.Config{
			Relay:       r,
			MaxBodySize: cfg.Server.MaxBodySize,
		}),
	}, nil
}

// SelectProvider chooses the email delivery backend named by cfg.Provider.
func SelectProvider(ctx context.Context, cfg *config.Config) (provider.Provider, error) {
	switch cfg.Provider {
	case config.ProviderSendGrid:
		if !cfg.SendGridConfigured() {
			slog.WarnContext(ctx, "SENDGRID_API_KEY is not set; every send will fail")
		}
		slog.InfoContext(ctx, "using SendGrid provider", "base_url", cfg.SendGrid.BaseURL)
		return sendgrid.New(sendgrid.Config{
			APIKey:  cfg.SendGrid.APIKey,
			BaseURL: cfg.SendGrid.BaseURL,
		}), nil

	case config.ProviderSES:
		slog.InfoContext(ctx, "using AWS SES provider",
			"region", cfg.SES.Region,
			"static_credentials", cfg.SES.AccessKeyID != "",
		)
		p, err := ses.New(ctx, ses.SESProviderConfig{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create SES provider: %w", err)
		}
		return p, nil

	case config.ProviderGraph:
		slog.InfoContext(ctx, "using Microsoft Graph provider", "sender", cfg.Graph.Sender)
		return graph.New(graph.GraphProviderConfig{
			TenantID:     cfg.Graph.TenantID,
			ClientID:     cfg.Graph.ClientID,
			ClientSecret: cfg.Graph.ClientSecret,
			Sender:       cfg.Graph.Sender,
		}), nil

	case config.ProviderStdout:
		slog.InfoContext(ctx, "using stdout provider")
		return stdout.New(), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// LoadConfig loads configuration from the YAML file at path with
// environment overrides, or from the environment alone if path is empty.
func LoadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

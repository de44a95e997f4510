// Package stdout implements a Provider that prints envelopes instead of sending them.
// It is meant for local development without provider credentials.
package stdout

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/shineum/mail-relay-lite/internal/email"
)

const separator = "========================================\n"

// Provider prints envelopes to a writer in a human-readable format.
type Provider struct {
	mu sync.Mutex
	// writer is the output destination, defaulting to os.Stdout.
	writer io.Writer
}

// New creates a new stdout Provider that writes to os.Stdout.
func New() *Provider {
	return &Provider{writer: os.Stdout}
}

// NewWithWriter creates a new stdout Provider that writes to the given writer.
func NewWithWriter(w io.Writer) *Provider {
	return &Provider{writer: w}
}

// Send prints the envelope and reports 202 Accepted.
func (p *Provider) Send(_ context.Context, env *email.Envelope) (int, error) {
	var b strings.Builder

	b.WriteString(separator)
	fmt.Fprintf(&b, "From: %s\n", env.From)
	if env.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\n", env.ReplyTo)
	}
	fmt.Fprintf(&b, "To: %s\n", strings.Join(env.To, ", "))
	if len(env.Cc) > 0 {
		fmt.Fprintf(&b, "Cc: %s\n", strings.Join(env.Cc, ", "))
	}
	if len(env.Bcc) > 0 {
		fmt.Fprintf(&b, "Bcc: %s\n", strings.Join(env.Bcc, ", "))
	}
	fmt.Fprintf(&b, "Subject: %s\n", env.Subject)
	if len(env.Categories) > 0 {
		fmt.Fprintf(&b, "Categories: %s\n", strings.Join(env.Categories, ", "))
	}
	b.WriteString("Body:\n")
	b.WriteString(env.HTMLBody + "\n")

	if len(env.Attachments) > 0 {
		attachments := make([]string, 0, len(env.Attachments))
		for _, att := range env.Attachments {
			size := base64.StdEncoding.DecodedLen(len(att.Content))
			attachments = append(attachments, fmt.Sprintf("%s (%s, %s)", att.Filename, att.Type, formatSize(size)))
		}
		fmt.Fprintf(&b, "Attachments: %s\n", strings.Join(attachments, ", "))
	}

	b.WriteString(separator)

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := io.WriteString(p.writer, b.String()); err != nil {
		return 0, fmt.Errorf("failed to write envelope: %w", err)
	}

	return http.StatusAccepted, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stdout"
}

// formatSize formats a byte count into a human-readable string.
func formatSize(bytes int) string {
	const (
		kb = 1024
		mb = kb * 1024
	)

	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// Package provider defines the interface for email delivery backends.
package provider

import (
	"context"
	"fmt"

	"github.com/shineum/mail-relay-lite/internal/email"
)

// Provider is the interface that email delivery backends must implement.
// Each provider hands a built envelope to the target service
// (e.g., SendGrid, AWS SES, Microsoft Graph, stdout).
type Provider interface {
	// Send delivers the envelope through this provider with a single call.
	// On success it returns the status code reported by the service.
	Send(ctx context.Context, env *email.Envelope) (int, error)

	// Name returns the human-readable name of this provider.
	Name() string
}

// ErrorDetail is one entry of a structured provider error.
type ErrorDetail struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Help    string `json:"help,omitempty"`
}

// Error is returned by providers when the service rejected the request or
// could not be reached. Errors carries the service's structured error list
// when one was available.
type Error struct {
	Provider   string
	StatusCode int
	Errors     []ErrorDetail
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message()
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (HTTP %d): %s", e.Provider, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Provider, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the first structured error message, or an empty string
// if the service returned none.
func (e *Error) Message() string {
	if len(e.Errors) == 0 {
		return ""
	}
	return e.Errors[0].Message
}

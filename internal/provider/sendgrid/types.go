// Package sendgrid implements a Provider that sends emails via the SendGrid v3 Mail Send API.
package sendgrid

import (
	"net/mail"

	"github.com/shineum/mail-relay-lite/internal/email"
	"github.com/shineum/mail-relay-lite/internal/provider"
)

// mailSendRequest is the request body for POST /v3/mail/send.
type mailSendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	ReplyTo          *address          `json:"reply_to,omitempty"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
	Attachments      []attachment      `json:"attachments,omitempty"`
	Categories       []string          `json:"categories,omitempty"`
}

type personalization struct {
	To  []address `json:"to"`
	Cc  []address `json:"cc,omitempty"`
	Bcc []address `json:"bcc,omitempty"`
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type attachment struct {
	Content     string `json:"content"`
	Type        string `json:"type,omitempty"`
	Filename    string `json:"filename"`
	Disposition string `json:"disposition,omitempty"`
}

// errorResponse is the body SendGrid returns for non-2xx responses.
type errorResponse struct {
	Errors []provider.ErrorDetail `json:"errors"`
}

// buildMailSendRequest converts an envelope into a SendGrid request body.
func buildMailSendRequest(env *email.Envelope) *mailSendRequest {
	req := &mailSendRequest{
		Personalizations: []personalization{{
			To:  toAddresses(env.To),
			Cc:  toAddresses(env.Cc),
			Bcc: toAddresses(env.Bcc),
		}},
		From:       parseAddress(env.From),
		Subject:    env.Subject,
		Content:    []content{{Type: "text/html", Value: env.HTMLBody}},
		Categories: env.Categories,
	}

	if env.ReplyTo != "" {
		replyTo := parseAddress(env.ReplyTo)
		req.ReplyTo = &replyTo
	}

	for _, att := range env.Attachments {
		req.Attachments = append(req.Attachments, attachment{
			Content:     att.Content,
			Type:        att.Type,
			Filename:    att.Filename,
			Disposition: att.Disposition,
		})
	}

	return req
}

func toAddresses(addrs []string) []address {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]address, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, parseAddress(a))
	}
	return out
}

// parseAddress splits "Name <user@example.com>" into its parts. Anything
// that does not parse is passed through as the bare address so SendGrid
// reports the problem.
func parseAddress(s string) address {
	parsed, err := mail.ParseAddress(s)
	if err != nil {
		return address{Email: s}
	}
	return address{Email: parsed.Address, Name: parsed.Name}
}

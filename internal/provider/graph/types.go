// Package graph implements a Provider that sends emails via the Microsoft Graph API.
package graph

import (
	"github.com/shineum/mail-relay-lite/internal/email"
)

// sendMailRequest is the top-level request body for the Graph API sendMail endpoint.
type sendMailRequest struct {
	Message         sendMailMessage `json:"message"`
	SaveToSentItems bool            `json:"saveToSentItems"`
}

// sendMailMessage represents the message portion of a sendMail request.
type sendMailMessage struct {
	Subject       string            `json:"subject"`
	Body          messageBody       `json:"body"`
	From          *recipient        `json:"from,omitempty"`
	ToRecipients  []recipient       `json:"toRecipients"`
	CcRecipients  []recipient       `json:"ccRecipients,omitempty"`
	BccRecipients []recipient       `json:"bccRecipients,omitempty"`
	ReplyTo       []recipient       `json:"replyTo,omitempty"`
	Categories    []string          `json:"categories,omitempty"`
	Attachments   []graphAttachment `json:"attachments,omitempty"`
}

type messageBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type emailAddress struct {
	Address string `json:"address"`
}

// graphAttachment is a fileAttachment; ContentBytes is base64 text.
type graphAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
}

// graphErrorResponse represents an error response from the Graph API.
type graphErrorResponse struct {
	Error graphError `json:"error"`
}

type graphError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// buildSendMailRequest converts an envelope into a Graph API sendMail request body.
// The envelope's base64 attachment content is passed through unchanged.
func buildSendMailRequest(env *email.Envelope) *sendMailRequest {
	msg := sendMailMessage{
		Subject: env.Subject,
		Body: messageBody{
			ContentType: "html",
			Content:     env.HTMLBody,
		},
		ToRecipients:  recipients(env.To),
		CcRecipients:  recipients(env.Cc),
		BccRecipients: recipients(env.Bcc),
		Categories:    env.Categories,
	}

	if env.From != "" {
		msg.From = &recipient{EmailAddress: emailAddress{Address: env.From}}
	}
	if env.ReplyTo != "" {
		msg.ReplyTo = recipients([]string{env.ReplyTo})
	}

	for _, att := range env.Attachments {
		msg.Attachments = append(msg.Attachments, graphAttachment{
			ODataType:    "#microsoft.graph.fileAttachment",
			Name:         att.Filename,
			ContentType:  att.Type,
			ContentBytes: att.Content,
		})
	}

	return &sendMailRequest{Message: msg, SaveToSentItems: false}
}

func recipients(addrs []string) []recipient {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]recipient, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, recipient{EmailAddress: emailAddress{Address: addr}})
	}
	return out
}

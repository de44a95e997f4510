// Package email defines the message envelope handed to delivery providers.
package email

// Envelope is the normalized, provider-ready form of a relayed email.
// It is built fresh for every request and never shared between requests.
type Envelope struct {
	From        string
	ReplyTo     string
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	HTMLBody    string
	Categories  []string
	Attachments []Attachment
}

// Attachment describes a file attached to an envelope.
// Content holds the base64 text exactly as the client supplied it.
type Attachment struct {
	Content     string
	Filename    string
	Type        string
	Disposition string
}

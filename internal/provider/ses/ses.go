// Package ses implements a Provider that sends emails via AWS SES v2.
package ses

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"net/mail"
	"net/textproto"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"

	"github.com/shineum/mail-relay-lite/internal/email"
	"github.com/shineum/mail-relay-lite/internal/provider"
)

// categoryTagName is the SES message tag that carries envelope categories.
const categoryTagName = "category"

// SESProviderConfig holds the configuration for creating a SESProvider.
type SESProviderConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// SESProvider sends emails via the AWS SES v2 API.
// @MX:ANCHOR: [AUTO] External system integration point for AWS SES
// @MX:REASON: All email delivery flows through this provider when SES is configured
type SESProvider struct {
	client SendEmailAPI
}

// SendEmailAPI is the interface for the SES v2 SendEmail operation.
// Used for testing with mock implementations.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// New creates a new SESProvider with the given configuration.
// Static credentials are used when both keys are set; otherwise the
// default AWS credential chain applies.
func New(ctx context.Context, cfg SESProviderConfig) (*SESProvider, error) {
	var opts []func(*awsconfig.LoadOptions) error

	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESProvider{client: sesv2.NewFromConfig(awsCfg)}, nil
}

// NewWithClient creates a SESProvider with a custom client, used for testing.
func NewWithClient(client SendEmailAPI) *SESProvider {
	return &SESProvider{client: client}
}

// Send delivers an envelope via AWS SES v2 with a single API call.
// Envelopes with attachments are sent as a raw MIME message; everything
// else uses the SES simple email format.
func (s *SESProvider) Send(ctx context.Context, env *email.Envelope) (int, error) {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(env.From),
		Destination: &types.Destination{
			ToAddresses:  env.To,
			CcAddresses:  env.Cc,
			BccAddresses: env.Bcc,
		},
		EmailTags: categoryTags(env.Categories),
	}
	if env.ReplyTo != "" {
		input.ReplyToAddresses = []string{env.ReplyTo}
	}

	if len(env.Attachments) > 0 {
		raw, err := buildRawMessage(env)
		if err != nil {
			return 0, &provider.Error{
				Provider: s.Name(),
				Errors:   []provider.ErrorDetail{{Message: err.Error()}},
				Err:      err,
			}
		}
		input.Content = &types.EmailContent{Raw: &types.RawMessage{Data: raw}}
	} else {
		input.Content = &types.EmailContent{Simple: buildSimpleMessage(env)}
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return 0, toProviderError(s.Name(), err)
	}

	return http.StatusOK, nil
}

// Name returns the provider name.
func (s *SESProvider) Name() string {
	return "ses"
}

// toProviderError extracts the SES error message and HTTP status from an SDK error.
func toProviderError(name string, err error) *provider.Error {
	perr := &provider.Error{Provider: name, Err: err}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorMessage() != "" {
		perr.Errors = []provider.ErrorDetail{{
			Message: apiErr.ErrorMessage(),
			Field:   apiErr.ErrorCode(),
		}}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		perr.StatusCode = respErr.HTTPStatusCode()
	}

	return perr
}

func categoryTags(categories []string) []types.MessageTag {
	tags := make([]types.MessageTag, 0, len(categories))
	for _, c := range categories {
		tags = append(tags, types.MessageTag{
			Name:  aws.String(categoryTagName),
			Value: aws.String(c),
		})
	}
	return tags
}

// buildSimpleMessage creates the SES simple content for envelopes without attachments.
func buildSimpleMessage(env *email.Envelope) *types.Message {
	return &types.Message{
		Subject: utf8Content(env.Subject),
		Body: &types.Body{
			Html: utf8Content(env.HTMLBody),
		},
	}
}

func utf8Content(s string) *types.Content {
	return &types.Content{
		Data:    aws.String(s),
		Charset: aws.String("UTF-8"),
	}
}

// buildRawMessage constructs a raw MIME message for envelopes with attachments.
// Attachment content arrives base64 encoded and is re-wrapped at 76 columns.
func buildRawMessage(env *email.Envelope) ([]byte, error) {
	var buf bytes.Buffer

	from, err := formatAddressList("From", []string{env.From})
	if err != nil {
		return nil, err
	}
	to, err := formatAddressList("To", env.To)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	if len(env.Cc) > 0 {
		cc, err := formatAddressList("Cc", env.Cc)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "Cc: %s\r\n", cc)
	}
	if env.ReplyTo != "" {
		replyTo, err := formatAddressList("Reply-To", []string{env.ReplyTo})
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "Reply-To: %s\r\n", replyTo)
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", env.Subject))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")

	writer := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	bodyHeader := make(textproto.MIMEHeader)
	bodyHeader.Set("Content-Type", "text/html; charset=UTF-8")
	part, err := writer.CreatePart(bodyHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to create body part: %w", err)
	}
	part.Write([]byte(env.HTMLBody))

	for _, att := range env.Attachments {
		content, err := base64.StdEncoding.DecodeString(att.Content)
		if err != nil {
			return nil, fmt.Errorf("attachment %q is not valid base64: %w", att.Filename, err)
		}

		disposition := att.Disposition
		if disposition == "" {
			disposition = "attachment"
		}

		attHeader := make(textproto.MIMEHeader)
		attHeader.Set("Content-Type", att.Type)
		attHeader.Set("Content-Transfer-Encoding", "base64")
		attHeader.Set("Content-Disposition",
			mime.FormatMediaType(disposition, map[string]string{"filename": att.Filename}))

		part, err := writer.CreatePart(attHeader)
		if err != nil {
			return nil, fmt.Errorf("failed to create attachment part: %w", err)
		}

		part.Write([]byte(encodeBase64WithLineBreaks(content)))
	}

	writer.Close()
	return buf.Bytes(), nil
}

// formatAddressList parses each address and renders them for a MIME header.
// Values carrying line breaks or more than one address are rejected.
func formatAddressList(header string, addrs []string) (string, error) {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if strings.ContainsAny(a, "\r\n") {
			return "", fmt.Errorf("%s address %q contains a line break", header, a)
		}
		parsed, err := mail.ParseAddress(a)
		if err != nil {
			return "", fmt.Errorf("invalid %s address %q: %w", header, a, err)
		}
		out = append(out, parsed.String())
	}
	return strings.Join(out, ", "), nil
}

// encodeBase64WithLineBreaks encodes bytes to base64 with 76-character line breaks per RFC 2045.
func encodeBase64WithLineBreaks(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	var lines []string
	for i := 0; i < len(encoded); i += 76 {
		end := i + 76
		if end > len(encoded) {
			end = len(encoded)
		}
		lines = append(lines, encoded[i:end])
	}
	return strings.Join(lines, "\r\n")
}

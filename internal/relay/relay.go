// Package relay validates inbound email requests, turns them into provider
// envelopes and hands them to a single delivery provider.
//
// The package knows nothing about HTTP or the hosting process; the
// standalone server and the serverless function both adapt their own
// request shapes to Submit and render its Result.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shineum/mail-relay-lite/internal/email"
	"github.com/shineum/mail-relay-lite/internal/provider"
)

const (
	// MissingFieldsMessage is returned for every validation failure.
	MissingFieldsMessage = "Missing required fields (to, subject, html)"
	// SendFailedMessage is used when the provider gave no structured message.
	SendFailedMessage = "Email send failed"

	// DefaultFrom is the sender used when none is configured.
	DefaultFrom = "noreply@example.com"
	// DefaultAttachmentName names an attachment sent without a file name.
	DefaultAttachmentName = "codelist.xlsx"
	// SpreadsheetMIMEType is the content type of every attachment.
	SpreadsheetMIMEType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	// Category tags every envelope for provider-side reporting.
	Category = "codelist-dashboard"
)

const tracerName = "github.com/shineum/mail-relay-lite/internal/relay"

// Outcome is the terminal state of a submission.
type Outcome int

const (
	// Sent means the provider accepted the envelope.
	Sent Outcome = iota + 1
	// Rejected means the request failed validation; no provider call was made.
	Rejected
	// Failed means the provider call returned an error.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Sent:
		return "sent"
	case Rejected:
		return "rejected"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of Submit. ProviderStatus is set for Sent results,
// Err for Rejected and Failed ones.
type Result struct {
	Outcome        Outcome
	ProviderStatus int
	Err            *Error
}

// HTTPStatus maps the outcome to the status code returned to clients.
func (r Result) HTTPStatus() int {
	switch r.Outcome {
	case Sent:
		return http.StatusOK
	case Rejected:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// Options configures a Relay. It is read once by New.
type Options struct {
	// DefaultFrom is the sender used when a request has neither from nor replyTo.
	DefaultFrom string
	// Provider delivers envelopes.
	Provider provider.Provider
}

// Relay is safe for concurrent use; it holds no per-request state.
type Relay struct {
	defaultFrom string
	provider    provider.Provider
	validate    *validator.Validate
	tracer      trace.Tracer
}

// New creates a Relay. An empty DefaultFrom falls back to DefaultFrom.
func New(opts Options) *Relay {
	defaultFrom := opts.DefaultFrom
	if defaultFrom == "" {
		defaultFrom = DefaultFrom
	}

	return &Relay{
		defaultFrom: defaultFrom,
		provider:    opts.Provider,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		tracer:      otel.Tracer(tracerName),
	}
}

// requiredFields holds the mandatory request fields for validation.
type requiredFields struct {
	To      []string `validate:"required,min=1"`
	Subject string   `validate:"required"`
	HTML    string   `validate:"required"`
}

// Validate reports whether req carries every mandatory field.
func (r *Relay) Validate(req Request) error {
	err := r.validate.Struct(requiredFields{
		To:      req.To,
		Subject: req.Subject,
		HTML:    req.HTML,
	})
	if err != nil {
		return NewValidationError(MissingFieldsMessage, err)
	}
	return nil
}

// BuildEnvelope resolves sender fallbacks and attaches the spreadsheet, if
// any. It does not validate req.
func (r *Relay) BuildEnvelope(req Request) *email.Envelope {
	from := firstNonEmpty(req.From, r.defaultFrom)

	env := &email.Envelope{
		From:       from,
		ReplyTo:    firstNonEmpty(req.ReplyTo, req.From, r.defaultFrom),
		To:         req.To,
		Cc:         req.Cc,
		Bcc:        req.Bcc,
		Subject:    req.Subject,
		HTMLBody:   req.HTML,
		Categories: []string{Category},
	}

	if data, name, ok := req.attachment(); ok {
		env.Attachments = []email.Attachment{{
			Content:     data,
			Filename:    name,
			Type:        SpreadsheetMIMEType,
			Disposition: "attachment",
		}}
	}

	return env
}

// Submit validates req, builds its envelope and sends it with exactly one
// provider call. Every failure is returned inside the Result.
func (r *Relay) Submit(ctx context.Context, req Request) Result {
	ctx, span := r.tracer.Start(ctx, "relay.Submit")
	defer span.End()

	if err := r.Validate(req); err != nil {
		var verr *Error
		errors.As(err, &verr)
		slog.DebugContext(ctx, "rejected email request", "error", err)
		span.SetAttributes(attribute.String("relay.outcome", Rejected.String()))
		return Result{Outcome: Rejected, Err: verr}
	}

	env := r.BuildEnvelope(req)
	span.SetAttributes(
		attribute.String("relay.provider", r.provider.Name()),
		attribute.Int("relay.recipients", len(env.To)+len(env.Cc)+len(env.Bcc)),
		attribute.Bool("relay.attachment", len(env.Attachments) > 0),
	)

	status, err := r.provider.Send(ctx, env)
	if err != nil {
		derr := NewDeliveryError(deliveryMessage(err), err)

		attrs := []any{
			"provider", r.provider.Name(),
			"error", err,
		}
		var perr *provider.Error
		if errors.As(err, &perr) {
			attrs = append(attrs, "provider_status", perr.StatusCode, "provider_errors", perr.Errors)
		}
		slog.ErrorContext(ctx, "email send failed", attrs...)

		span.RecordError(err)
		span.SetStatus(codes.Error, derr.Message)
		span.SetAttributes(attribute.String("relay.outcome", Failed.String()))
		return Result{Outcome: Failed, Err: derr}
	}

	slog.InfoContext(ctx, "email sent",
		"provider", r.provider.Name(),
		"provider_status", status,
		"recipients", len(env.To),
		"attachment", len(env.Attachments) > 0,
	)
	span.SetAttributes(
		attribute.String("relay.outcome", Sent.String()),
		attribute.Int("relay.provider_status", status),
	)
	return Result{Outcome: Sent, ProviderStatus: status}
}

// deliveryMessage picks the most specific client-facing message for a send error.
func deliveryMessage(err error) string {
	var perr *provider.Error
	if errors.As(err, &perr) {
		if msg := perr.Message(); msg != "" {
			return msg
		}
	}
	return SendFailedMessage
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

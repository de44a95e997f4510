package relay

import "fmt"

// ErrorReason classifies why a submission did not end in a sent email.
type ErrorReason string

const (
	// ReasonValidation marks a request rejected before any provider call.
	ReasonValidation ErrorReason = "VALIDATION_ERROR"
	// ReasonDelivery marks a failure reported by the provider or its transport.
	ReasonDelivery ErrorReason = "DELIVERY_ERROR"
)

var _ error = &Error{}

// Error is the error carried by rejected and failed results. Message is
// safe to return to the client; Cause keeps the full provider detail.
type Error struct {
	Message string
	Reason  ErrorReason
	Cause   error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s: %s", e.Reason, e.Message)
	if e.Cause != nil {
		s += fmt.Sprintf(" (cause: %s)", e.Cause)
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewValidationError returns an error for a request that failed field validation.
func NewValidationError(message string, cause error) *Error {
	return &Error{Message: message, Reason: ReasonValidation, Cause: cause}
}

// NewDeliveryError returns an error for a send the provider did not accept.
func NewDeliveryError(message string, cause error) *Error {
	return &Error{Message: message, Reason: ReasonDelivery, Cause: cause}
}

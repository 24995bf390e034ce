package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the HTTP boundary. Every error that reaches
// the webhook caller carries exactly one kind.
type Kind string

const (
	// Caller mistakes; rejected before any gateway call, never retried.
	KindInvalidJSON  Kind = "invalid-json"
	KindUnauthorized Kind = "unauthorized"
	KindUnsupported  Kind = "unsupported"
	KindBadDirective Kind = "bad-directive"

	// Transient infrastructure failure after retry exhaustion.
	KindGatewayUnavailable Kind = "gateway-unavailable"

	// Exchange rejected the call with an explicit business error code.
	KindExchange Kind = "exchange-error"

	// The close never converged to flat; the open was aborted.
	KindCloseNotFlat Kind = "close-not-flat"
)

// Error pairs a Kind with the underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with a classification.
func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the classification from err, or KindGatewayUnavailable if
// the error was never classified (nothing may escape unclassified to the
// caller).
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindGatewayUnavailable
}

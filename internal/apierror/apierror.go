// Package apierror defines the error taxonomy shared by the NASA client,
// the source adapters, and the correlation engine. Every error carries a
// stable Kind so the caller can map it to behavior (retry, reject, degrade)
// without string matching, plus a wrapped cause chain for diagnostics.
package apierror

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an error for the caller.
type Kind int

const (
	// KindUnknown is the zero value; errors without a taxonomy kind.
	KindUnknown Kind = iota

	// KindInvalidArgument marks caller mistakes: malformed dates, reversed
	// ranges, unknown rovers or cameras. Never retried.
	KindInvalidArgument

	// KindRangeTooLarge marks a date range exceeding the configured span.
	KindRangeTooLarge

	// KindUpstreamTransient marks network errors, 5xx responses, and
	// rate-limit responses after retry attempts are exhausted.
	KindUpstreamTransient

	// KindUpstreamRejected marks non-retryable 4xx upstream responses.
	KindUpstreamRejected

	// KindCancelled marks caller-initiated cancellation or deadline expiry.
	KindCancelled
)

// String returns the stable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindRangeTooLarge:
		return "range_too_large"
	case KindUpstreamTransient:
		return "upstream_transient"
	case KindUpstreamRejected:
		return "upstream_rejected"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is a classified error with an operation name and a cause chain.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "apod.GetRange"
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a classified error. The cause may be nil.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind from an error chain. Context cancellation errors
// that were never wrapped are classified as KindCancelled so callers see a
// uniform taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	return KindUnknown
}

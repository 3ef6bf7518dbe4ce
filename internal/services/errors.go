package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the stable failure classification surfaced to callers.
type ErrorKind string

const (
	KindInputNotFound     ErrorKind = "input_not_found"
	KindInvalidSpec       ErrorKind = "invalid_spec"
	KindDecodeFailed      ErrorKind = "decode_failed"
	KindEncodeFailed      ErrorKind = "encode_failed"
	KindProbeFailed       ErrorKind = "probe_failed"
	KindTimeout           ErrorKind = "timeout"
	KindCancelled         ErrorKind = "cancelled"
	KindResourceExhausted ErrorKind = "resource_exhausted"
)

// Sentinel markers, one per kind, so callers can use errors.Is.
var (
	ErrInputNotFound     = errors.New("input not found")
	ErrInvalidSpec       = errors.New("invalid spec")
	ErrDecodeFailed      = errors.New("decode failed")
	ErrEncodeFailed      = errors.New("encode failed")
	ErrProbeFailed       = errors.New("probe failed")
	ErrTimeout           = errors.New("timeout")
	ErrCancelled         = errors.New("cancelled")
	ErrResourceExhausted = errors.New("resource exhausted")
)

// ErrInvalidTrackVolume details an InvalidSpec raised for a mix track whose
// volume falls outside [0, 1].
var ErrInvalidTrackVolume = errors.New("invalid track volume")

var kindMarkers = map[ErrorKind]error{
	KindInputNotFound:     ErrInputNotFound,
	KindInvalidSpec:       ErrInvalidSpec,
	KindDecodeFailed:      ErrDecodeFailed,
	KindEncodeFailed:      ErrEncodeFailed,
	KindProbeFailed:       ErrProbeFailed,
	KindTimeout:           ErrTimeout,
	KindCancelled:         ErrCancelled,
	KindResourceExhausted: ErrResourceExhausted,
}

var kindOrder = []ErrorKind{
	KindInputNotFound,
	KindInvalidSpec,
	KindDecodeFailed,
	KindEncodeFailed,
	KindProbeFailed,
	KindTimeout,
	KindCancelled,
	KindResourceExhausted,
}

// Error is the error type returned by every engine. Diagnostic carries the
// raw tail of the external tool's stderr when one ran.
type Error struct {
	Kind       ErrorKind
	Op         string
	Message    string
	Diagnostic string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	parts := make([]string, 0, 3)
	if marker, ok := kindMarkers[e.Kind]; ok {
		parts = append(parts, marker.Error())
	}
	if detail := buildDetail(e.Op, e.Message); detail != "" {
		parts = append(parts, detail)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap exposes both the kind marker and the underlying cause.
func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	errs := make([]error, 0, 2)
	if marker, ok := kindMarkers[e.Kind]; ok {
		errs = append(errs, marker)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// ErrorKind returns the string form of the classification.
func (e *Error) ErrorKind() string {
	if e == nil {
		return ""
	}
	return string(e.Kind)
}

// Wrap builds an Error tagged with kind. The operation and message are joined
// into the error text; err may be nil.
func Wrap(kind ErrorKind, operation, message string, err error) error {
	return &Error{Kind: kind, Op: strings.TrimSpace(operation), Message: strings.TrimSpace(message), Err: err}
}

// Invalid is shorthand for an InvalidSpec error.
func Invalid(operation, format string, args ...any) error {
	return Wrap(KindInvalidSpec, operation, fmt.Sprintf(format, args...), nil)
}

// WithDiagnostic attaches raw tool output to err, converting it to an Error
// when needed.
func WithDiagnostic(err error, diagnostic string) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		clone := *typed
		clone.Diagnostic = diagnostic
		return &clone
	}
	return &Error{Kind: KindOf(err), Diagnostic: diagnostic, Err: err}
}

// KindOf reports the classification of err. Context errors map to Timeout and
// Cancelled; unknown errors map to EncodeFailed. A nil error has no kind.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var typed *Error
	if errors.As(err, &typed) && typed.Kind != "" {
		return typed.Kind
	}
	for _, kind := range kindOrder {
		if errors.Is(err, kindMarkers[kind]) {
			return kind
		}
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCancelled
	}
	return KindEncodeFailed
}

// DiagnosticOf returns the diagnostic text attached to err, if any.
func DiagnosticOf(err error) string {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Diagnostic
	}
	return ""
}

// Rejected reports whether err is a pre-flight rejection, raised before any
// process was spawned.
func Rejected(err error) bool {
	switch KindOf(err) {
	case KindInvalidSpec, KindInputNotFound:
		return true
	default:
		return false
	}
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	return strings.Join(parts, ": ")
}

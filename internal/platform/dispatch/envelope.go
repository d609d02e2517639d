// Package dispatch carries the result envelope every facade returns and the
// policy that decides where writes go.
package dispatch

import (
	"errors"

	"github.com/ehr/dashboard/internal/platform/fhir"
	"github.com/ehr/dashboard/internal/platform/mockstore"
)

// ErrorKind classifies a failed envelope so callers can branch without
// parsing messages.
type ErrorKind string

const (
	KindNone                ErrorKind = ""
	KindNotFound            ErrorKind = "not_found"
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	KindInvalidInput        ErrorKind = "invalid_input"
	KindInternal            ErrorKind = "internal"
)

// ErrInvalidInput is wrapped by facades rejecting a request before any I/O.
var ErrInvalidInput = errors.New("invalid input")

// KindOf classifies err. Not-found is checked before unavailability because
// an upstream 404 satisfies both.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, mockstore.ErrNotFound), errors.Is(err, fhir.ErrResourceNotFound):
		return KindNotFound
	case errors.Is(err, fhir.ErrUpstreamUnavailable):
		return KindUpstreamUnavailable
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, fhir.ErrMissingResourceType):
		return KindInvalidInput
	}
	var unsupported *fhir.UnsupportedResourceError
	if errors.As(err, &unsupported) {
		return KindInvalidInput
	}
	return KindInternal
}

// Envelope wraps a single-record result. Data is only meaningful when
// Success is true.
type Envelope[T any] struct {
	Data      T         `json:"data"`
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	ErrorKind ErrorKind `json:"errorKind,omitempty"`
}

// ListEnvelope wraps a collection result. Data is never nil.
type ListEnvelope[T any] struct {
	Data      []T       `json:"data"`
	Total     int       `json:"total"`
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	ErrorKind ErrorKind `json:"errorKind,omitempty"`
}

// OK returns a successful envelope.
func OK[T any](data T, message string) Envelope[T] {
	return Envelope[T]{Data: data, Success: true, Message: message}
}

// Fail returns a failed envelope carrying the zero T.
func Fail[T any](err error) Envelope[T] {
	return Envelope[T]{Success: false, Error: err.Error(), ErrorKind: KindOf(err)}
}

// List returns a successful list envelope.
func List[T any](items []T, total int, message string) ListEnvelope[T] {
	if items == nil {
		items = []T{}
	}
	return ListEnvelope[T]{Data: items, Total: total, Success: true, Message: message}
}

// ListFail returns a failed list envelope with empty data.
func ListFail[T any](err error) ListEnvelope[T] {
	return ListEnvelope[T]{Data: []T{}, Success: false, Error: err.Error(), ErrorKind: KindOf(err)}
}

// Err reconstructs an error from a failed envelope, or nil on success.
func (e Envelope[T]) Err() error {
	if e.Success {
		return nil
	}
	return &Failure{Kind: e.ErrorKind, Message: e.Error}
}

// Failure is an error rebuilt from an envelope.
type Failure struct {
	Kind    ErrorKind
	Message string
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Is(target error) bool {
	switch f.Kind {
	case KindNotFound:
		return target == mockstore.ErrNotFound || target == fhir.ErrResourceNotFound
	case KindUpstreamUnavailable:
		return target == fhir.ErrUpstreamUnavailable
	case KindInvalidInput:
		return target == ErrInvalidInput
	}
	return false
}

package services

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	ErrInvalidInput             = errors.New("invalid input")
	ErrValidation               = errors.New("validation failed")
	ErrRetriesExhausted         = errors.New("retries exhausted")
	ErrEmbeddingFailed          = errors.New("embedding failed")
	ErrJobDescriptionUnreadable = errors.New("job description has no extractable text")
	ErrSummarizerUnavailable    = errors.New("summarizer unavailable for every candidate")
)

// ValidationError rejects a request before any processing starts.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

type ErrorKind string

const (
	KindRateLimited   ErrorKind = "rate_limited"
	KindInternal      ErrorKind = "internal"
	KindUnavailable   ErrorKind = "unavailable"
	KindTimeout       ErrorKind = "timeout"
	KindAuth          ErrorKind = "auth"
	KindBadRequest    ErrorKind = "bad_request"
	KindEmptyResponse ErrorKind = "empty_response"
	KindUnknown       ErrorKind = "unknown"
)

// Transient reports whether errors of this kind are expected to clear on retry.
func (k ErrorKind) Transient() bool {
	switch k {
	case KindRateLimited, KindInternal, KindUnavailable, KindTimeout:
		return true
	default:
		return false
	}
}

// ProviderError is a classified failure of an external AI call.
type ProviderError struct {
	Op   string
	Kind ErrorKind
	Code int
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s (%d): %v", e.Op, e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsTransient is the default retry predicate.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Kind.Transient()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

// ErrorKindOf returns the provider error kind carried by err, or KindUnknown.
func ErrorKindOf(err error) ErrorKind {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}

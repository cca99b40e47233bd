// Package llm adapts generative text providers to a single capability:
// given a prompt, return raw text or fail with a classified error.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/escalateai/api/internal/complaint"
)

// Backend is one configured model on one provider
type Backend interface {
	// Model returns the provider's model identifier
	Model() string
	// Generate performs a single call. Retrying is the caller's job.
	Generate(ctx context.Context, prompt complaint.Prompt) (string, error)
}

// Kind says whether a failed call is worth repeating
type Kind int

const (
	KindTransient Kind = iota
	KindPermanent
)

func (k Kind) String() string {
	if k == KindPermanent {
		return "permanent"
	}
	return "transient"
}

// ErrNotConfigured is returned by backends without credentials
var ErrNotConfigured = errors.New("api key not configured")

// Error is a classified backend failure
type Error struct {
	Kind       Kind
	Model      string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s backend error (model=%s status=%d): %v", e.Kind, e.Model, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s backend error (model=%s): %v", e.Kind, e.Model, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient wraps err as retryable
func Transient(model string, status int, err error) *Error {
	return &Error{Kind: KindTransient, Model: model, StatusCode: status, Err: err}
}

// Permanent wraps err as not retryable on the same backend
func Permanent(model string, status int, err error) *Error {
	return &Error{Kind: KindPermanent, Model: model, StatusCode: status, Err: err}
}

// KindForStatus maps an HTTP status from a provider to an error kind.
// Rate limits, request timeouts and server errors are transient.
func KindForStatus(code int) Kind {
	switch {
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
		return KindTransient
	case code >= 500:
		return KindTransient
	default:
		return KindPermanent
	}
}

// IsPermanent reports whether err should stop attempts on the backend that
// produced it. Unclassified errors, network failures and timeouts count as
// transient.
func IsPermanent(err error) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind == KindPermanent
	}
	return false
}

// classifyTransport wraps a failure that happened before any HTTP status
// was received
func classifyTransport(model string, err error) *Error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return Transient(model, 0, fmt.Errorf("timeout: %w", err))
	}
	return Transient(model, 0, err)
}

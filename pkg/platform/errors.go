// Package platform wraps the upstream source-hosting platform's REST and
// GraphQL APIs behind the narrow surface the reconciler, webhook engine,
// and dry-run harness depend on: an authenticated client, a per-run cache,
// and a structured error taxonomy.
package platform

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
)

// ErrorKind enumerates the error taxonomy from the controller's error
// handling design.
type ErrorKind string

const (
	ErrAuthExpired      ErrorKind = "auth_expired"
	ErrAuthInsufficient ErrorKind = "auth_insufficient"
	ErrRateLimited      ErrorKind = "rate_limited"
	ErrTransient        ErrorKind = "transient"
	ErrNotFound         ErrorKind = "not_found"
	ErrPolicyViolation  ErrorKind = "policy_violation"
	ErrEnforcementRefused ErrorKind = "enforcement_refused"
	ErrUnknown          ErrorKind = "unknown"
)

// Error is the structured error type every platform-facing call returns.
type Error struct {
	Kind      ErrorKind
	Message   string
	Cause     error
	Resource  string
	Retryable bool
}

func (e *Error) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s error for %s: %s", e.Kind, e.Resource, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) IsRetryable() bool { return e.Retryable }

// New builds an Error of the given kind.
func New(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause, Retryable: isRetryableKind(kind)}
}

// Wrap translates an error returned by the go-github transport (or a
// network failure) into a structured Error. If err is already an *Error
// its resource is backfilled and it is returned unchanged.
func Wrap(err error, resource string) *Error {
	if err == nil {
		return nil
	}
	if perr, ok := err.(*Error); ok {
		if perr.Resource == "" {
			perr.Resource = resource
		}
		return perr
	}
	if ghErr, ok := err.(*github.ErrorResponse); ok {
		return parseAPIError(ghErr, resource)
	}
	if rateErr, ok := err.(*github.RateLimitError); ok {
		return &Error{
			Kind:      ErrRateLimited,
			Message:   fmt.Sprintf("rate limit exceeded, resets at %v", rateErr.Rate.Reset.Time),
			Cause:     err,
			Resource:  resource,
			Retryable: true,
		}
	}
	if isNetworkError(err) {
		return &Error{
			Kind:      ErrTransient,
			Message:   "network error occurred",
			Cause:     err,
			Resource:  resource,
			Retryable: true,
		}
	}
	return &Error{Kind: ErrUnknown, Message: err.Error(), Cause: err, Resource: resource}
}

func parseAPIError(ghErr *github.ErrorResponse, resource string) *Error {
	base := &Error{Resource: resource, Cause: ghErr}

	switch ghErr.Response.StatusCode {
	case http.StatusUnauthorized:
		base.Kind = ErrAuthExpired
		base.Message = "authentication failed, token is invalid or expired"
	case http.StatusForbidden:
		if strings.Contains(ghErr.Message, "rate limit") {
			base.Kind = ErrRateLimited
			base.Message = "rate limit exceeded"
			base.Retryable = true
		} else {
			base.Kind = ErrAuthInsufficient
			base.Message = "token lacks the required scopes for " + resource
		}
	case http.StatusNotFound:
		base.Kind = ErrNotFound
		base.Message = "resource not found: " + resource
	case http.StatusConflict:
		base.Kind = ErrTransient
		base.Message = "resource conflict: " + ghErr.Message
	case http.StatusUnprocessableEntity:
		base.Kind = ErrPolicyViolation
		base.Message = "request rejected by upstream validation: " + ghErr.Message
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		base.Kind = ErrTransient
		base.Message = "upstream platform is temporarily unavailable"
		base.Retryable = true
	default:
		base.Kind = ErrUnknown
		base.Message = ghErr.Message
		base.Retryable = ghErr.Response.StatusCode >= 500
	}
	return base
}

func isNetworkError(err error) bool {
	s := strings.ToLower(err.Error())
	for _, kw := range []string{
		"connection refused", "connection reset", "connection timeout",
		"network is unreachable", "no such host", "timeout", "dial tcp", "i/o timeout",
	} {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func isRetryableKind(kind ErrorKind) bool {
	switch kind {
	case ErrRateLimited, ErrTransient:
		return true
	default:
		return false
	}
}

// RetryConfig configures WithRetry's exponential backoff.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig matches the client's built-in retry/backoff policy:
// the engine never layers its own backoff on top of this (§5).
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{MaxRetries: 3, InitialDelay: time.Second, MaxDelay: 30 * time.Second, BackoffFactor: 2.0}
}

// Operation is a unit of work retried by WithRetry.
type Operation func() error

// WithRetry runs operation, retrying on RateLimited/Transient errors with
// exponential backoff, honoring the platform's own rate-limit reset time
// when it falls inside a reasonable wait window.
func WithRetry(operation Operation, cfg *RetryConfig) error {
	if cfg == nil {
		cfg = DefaultRetryConfig()
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(delay)
			delay = time.Duration(float64(delay) * cfg.BackoffFactor)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		perr, ok := err.(*Error)
		if !ok {
			return err
		}
		if !perr.IsRetryable() {
			return err
		}
		if perr.Kind == ErrRateLimited {
			if rateErr, ok := perr.Cause.(*github.RateLimitError); ok {
				wait := time.Until(rateErr.Rate.Reset.Time)
				if wait > 0 && wait < 5*time.Minute {
					time.Sleep(wait)
					continue
				}
			}
		}
	}

	return fmt.Errorf("operation failed after %d retries: %w", cfg.MaxRetries, lastErr)
}

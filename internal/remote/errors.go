package remote

import (
	"errors"
	"fmt"
	"time"
)

// NetworkError wraps a transient transport or server failure. Entities
// involved in the failed call stay dirty for a later retry.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthenticationError indicates the API token was missing or rejected.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	if e.Message == "" {
		return "authentication failed"
	}
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// AuthorizationError indicates the account is not allowed to perform the
// operation. PremiumRequired marks the variant where collection management
// needs a paid plan; entry points short-circuit on it before any mutation.
type AuthorizationError struct {
	Message         string
	PremiumRequired bool
}

func (e *AuthorizationError) Error() string {
	if e.PremiumRequired {
		return "collection management requires a premium account"
	}
	if e.Message == "" {
		return "operation not authorized"
	}
	return fmt.Sprintf("operation not authorized: %s", e.Message)
}

// RateLimitError is returned when the service rejects a call outright with
// HTTP 429. The pre-flight limiter normally prevents this.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
	}
	if e.Message == "" {
		return "rate limited"
	}
	return fmt.Sprintf("rate limited: %s", e.Message)
}

// IsRetryable reports whether the failed call can be retried later without
// changing anything locally.
func IsRetryable(err error) bool {
	var netErr *NetworkError
	var rlErr *RateLimitError
	return errors.As(err, &netErr) || errors.As(err, &rlErr)
}

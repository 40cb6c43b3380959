package source

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound means the account does not resolve. Fatal to starting a
// monitoring session, not fatal to the process.
var ErrNotFound = errors.New("account not found")

// RateLimitError is a transient rate-limit failure. The range counter waits
// RetryAfter and retries; the poll loop surfaces it and keeps ticking.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// TransportError wraps a network or protocol failure. The engine never
// auto-retries it.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

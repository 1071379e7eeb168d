package catalog

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the pipeline.
var (
	// ErrNotFound is returned by single-item lookups when the page holds no
	// parsable content.
	ErrNotFound = errors.New("content not found")
	// ErrBlocked indicates the remote site refused the client (403/anti-bot).
	ErrBlocked = errors.New("blocked by remote site")
)

// TransientError wraps a failure that was retried and still failed: timeouts,
// network errors, 5xx responses and 429 throttling.
type TransientError struct {
	URL      string
	Status   int
	Attempts int
	Err      error
}

func (e *TransientError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("transient fetch failure for %s after %d attempts (status %d): %v", e.URL, e.Attempts, e.Status, e.Err)
	}
	return fmt.Sprintf("transient fetch failure for %s after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError wraps a failure that retrying cannot fix: 4xx responses
// other than 429, or a malformed URL.
type PermanentError struct {
	URL    string
	Status int
	Err    error
}

func (e *PermanentError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("permanent fetch failure for %s (status %d)", e.URL, e.Status)
	}
	return fmt.Sprintf("permanent fetch failure for %s: %v", e.URL, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsPermanent reports whether err is (or wraps) a PermanentError.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

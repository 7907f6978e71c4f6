package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors
var (
	// ErrInvalidReference indicates the repository reference could not be parsed
	ErrInvalidReference = errors.New("invalid repository reference")

	// ErrNotFound indicates the repository or ref does not exist
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates rate limiting was encountered
	ErrRateLimited = errors.New("rate limited")

	// ErrCorruptArchive indicates the downloaded archive could not be parsed
	ErrCorruptArchive = errors.New("corrupt archive")

	// ErrDestinationExists indicates the destination directory already exists
	ErrDestinationExists = errors.New("destination already exists")

	// ErrCacheMiss indicates a cache miss
	ErrCacheMiss = errors.New("cache miss")

	// ErrTimeout indicates a timeout occurred
	ErrTimeout = errors.New("timeout")

	// ErrNoInterpreter indicates no Python interpreter was found on PATH
	ErrNoInterpreter = errors.New("python interpreter not found")
)

// FetchError represents an error during an HTTP fetch
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError
func NewFetchError(url string, statusCode int, err error) *FetchError {
	return &FetchError{
		URL:        url,
		StatusCode: statusCode,
		Err:        err,
	}
}

// RateLimitError indicates the provider rejected the request due to rate
// limiting. ResetAt is zero when the provider did not say when the limit resets.
type RateLimitError struct {
	URL     string
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	if !e.ResetAt.IsZero() {
		return fmt.Sprintf("rate limited for %s (resets at %s)", e.URL, e.ResetAt.Format(time.RFC3339))
	}
	return fmt.Sprintf("rate limited for %s", e.URL)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// RetryableError indicates an error that can be retried
type RetryableError struct {
	Err        error
	RetryAfter int // Seconds to wait before retry, 0 if unknown
}

func (e *RetryableError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("retryable error (retry after %ds): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("retryable error: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var retryable *RetryableError
	if errors.As(err, &retryable) {
		return true
	}

	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		switch fetchErr.StatusCode {
		case 502, 503, 504:
			return true
		}
	}

	return errors.Is(err, ErrTimeout)
}

// ExtractError represents a failure while unpacking an archive
type ExtractError struct {
	Archive string
	Path    string // Offending filesystem path, empty when not applicable
	Err     error
}

func (e *ExtractError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("extract %s: %s: %v", e.Archive, e.Path, e.Err)
	}
	return fmt.Sprintf("extract %s: %v", e.Archive, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// InstallError carries the installer subprocess exit code and captured output
type InstallError struct {
	ExitCode int
	Output   string
	Err      error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("install failed (exit code %d): %v", e.ExitCode, e.Err)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

// Process exit codes, one per failure category.
const (
	ExitOK               = 0
	ExitFailure          = 1
	ExitInvalidReference = 2
	ExitNotFound         = 3
	ExitNetwork          = 4
	ExitRateLimited      = 5
	ExitFileSystem       = 6
	ExitInstall          = 7
)

// ExitCodeFor maps an error to a process exit code
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}

	var installErr *InstallError
	if errors.As(err, &installErr) {
		return ExitInstall
	}

	switch {
	case errors.Is(err, ErrInvalidReference):
		return ExitInvalidReference
	case errors.Is(err, ErrNotFound):
		return ExitNotFound
	case errors.Is(err, ErrRateLimited):
		return ExitRateLimited
	case errors.Is(err, ErrCorruptArchive),
		errors.Is(err, ErrDestinationExists):
		return ExitFileSystem
	}

	var extractErr *ExtractError
	if errors.As(err, &extractErr) {
		return ExitFileSystem
	}

	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return ExitNetwork
	}

	return ExitFailure
}

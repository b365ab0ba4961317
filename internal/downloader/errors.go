package downloader

import (
	"errors"
	"fmt"
)

// DownloadError is a download failure carrying an explicit retry flag,
// so permanent causes ("file no longer available") can short-circuit
// the caller's retry loop.
type DownloadError struct {
	Message   string
	Retryable bool
	Err       error
}

// Error returns the error message.
func (e *DownloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("download failed: %s: %v", e.Message, e.Err)
	}
	return "download failed: " + e.Message
}

// Unwrap returns the wrapped error.
func (e *DownloadError) Unwrap() error {
	return e.Err
}

// Permanent creates a non-retryable download error.
func Permanent(message string, err error) error {
	return &DownloadError{Message: message, Retryable: false, Err: err}
}

// Retryable creates a retryable download error.
func Retryable(message string, err error) error {
	return &DownloadError{Message: message, Retryable: true, Err: err}
}

// IsRetryable reports whether a failed download may be retried. Errors
// without an explicit flag are treated as retryable transients.
func IsRetryable(err error) bool {
	var dlErr *DownloadError
	if errors.As(err, &dlErr) {
		return dlErr.Retryable
	}
	return true
}

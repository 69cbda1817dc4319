// Package apperr holds the error kinds a report run can fail with.
// Callers wrap one of the sentinels and test with errors.Is.
package apperr

import "errors"

var (
	ErrConfig    = errors.New("configuration error")
	ErrAuth      = errors.New("authentication failed")
	ErrNotFound  = errors.New("not found")
	ErrRateLimit = errors.New("rate limited")
	ErrTransient = errors.New("transient failure")
	ErrUpstream  = errors.New("unexpected upstream response")
	ErrIO        = errors.New("i/o error")
)

const (
	ExitOK     = 0
	ExitFailed = 1
	ExitConfig = 2
)

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrConfig):
		return ExitConfig
	default:
		return ExitFailed
	}
}

// Kind returns a short label for the sentinel err wraps, or "error".
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrConfig):
		return "config"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRateLimit):
		return "rate_limit"
	case errors.Is(err, ErrTransient):
		return "transient"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	case errors.Is(err, ErrIO):
		return "io"
	default:
		return "error"
	}
}

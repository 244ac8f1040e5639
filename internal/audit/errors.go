package audit

import (
	"errors"

	"github.com/tagscope/tagscope/internal/capture"
)

// ErrMalformedTarget rejects inputs that are not usable URLs before any
// browser work starts.
var ErrMalformedTarget = errors.New("malformed target")

// Scan-level error kinds re-exported from the capture layer so callers only
// need the audit package to branch on failure class.
var (
	ErrNavigationTimeout = capture.ErrNavigationTimeout
	ErrNavigationFailure = capture.ErrNavigationFailure
	ErrBrowserLaunch     = capture.ErrBrowserLaunch
)

// Fatal reports whether err means the whole run must stop: nothing at all can
// be scanned without a browser. Per-URL navigation errors are recoverable at
// the batch level.
func Fatal(err error) bool {
	return errors.Is(err, ErrBrowserLaunch)
}

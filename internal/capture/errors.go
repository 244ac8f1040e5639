package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Scan-level error kinds. Batch callers skip past navigation errors and
// continue; a browser-launch failure means nothing can be scanned at all.
var (
	ErrBrowserLaunch     = errors.New("browser launch failed")
	ErrNavigationTimeout = errors.New("navigation timeout")
	ErrNavigationFailure = errors.New("navigation failure")
)

// classifyRequestError turns a raw network error string into a short
// human-readable note attached to blocked script records.
func classifyRequestError(raw string) string {
	s := strings.ToLower(raw)
	switch {
	case strings.Contains(s, "net::err_blocked_by_client"), strings.Contains(s, "adblock"):
		return "Blocked by ad blocker / browser extension"
	case strings.Contains(s, "net::err_connection_refused"):
		return "Connection refused"
	case strings.Contains(s, "net::err_connection_timed_out"), strings.Contains(s, "timeout"):
		return "Connection timed out"
	case strings.Contains(s, "net::err_name_not_resolved"), strings.Contains(s, "dns"):
		return "DNS resolution failed (domain not found)"
	case strings.Contains(s, "net::err_ssl"), strings.Contains(s, "ssl"), strings.Contains(s, "certificate"):
		return "SSL / certificate error"
	case strings.Contains(s, "net::err_aborted"):
		return "Request aborted"
	case strings.Contains(s, "net::err_failed"):
		return "Network request failed"
	case strings.Contains(s, "403"), strings.Contains(s, "forbidden"):
		return "403 Forbidden"
	case strings.Contains(s, "401"), strings.Contains(s, "unauthorized"):
		return "401 Unauthorized"
	case strings.Contains(s, "404"), strings.Contains(s, "not found"):
		return "404 Not Found"
	case strings.Contains(s, "429"):
		return "429 Too Many Requests"
	case strings.Contains(s, "cors"), strings.Contains(s, "cross-origin"):
		return "Blocked by CORS policy"
	case strings.Contains(s, "blocked"):
		return "Request blocked"
	default:
		if len(raw) > 120 {
			raw = raw[:120]
		}
		return "Request failed: " + raw
	}
}

// classifyNavigationError wraps a raw navigation error into one of the
// scan-level error kinds with a readable message.
func classifyNavigationError(err error) error {
	if err == nil {
		return nil
	}
	s := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded), strings.Contains(s, "timeout"):
		return fmt.Errorf("%w: page load timed out, site may be slow or blocking automated browsers", ErrNavigationTimeout)
	case strings.Contains(s, "net::err_name_not_resolved"):
		return fmt.Errorf("%w: domain not found, check the URL", ErrNavigationFailure)
	case strings.Contains(s, "net::err_connection_refused"):
		return fmt.Errorf("%w: connection refused, site may be down", ErrNavigationFailure)
	case strings.Contains(s, "net::err_connection_timed_out"):
		return fmt.Errorf("%w: connection timed out, site may be slow or unreachable", ErrNavigationTimeout)
	case strings.Contains(s, "net::err_ssl"), strings.Contains(s, "certificate"):
		return fmt.Errorf("%w: SSL certificate error", ErrNavigationFailure)
	case strings.Contains(s, "net::err_aborted"):
		return fmt.Errorf("%w: page load aborted, site may be blocking automated access", ErrNavigationFailure)
	case strings.Contains(s, "net::err_failed"):
		return fmt.Errorf("%w: network request failed, site may be blocking automated browsers", ErrNavigationFailure)
	case strings.Contains(s, "blocked"):
		return fmt.Errorf("%w: page load blocked, site is rejecting automated browsers", ErrNavigationFailure)
	case strings.Contains(s, "executable file not found"), strings.Contains(s, "exec:"):
		return fmt.Errorf("%w: %v", ErrBrowserLaunch, err)
	default:
		return fmt.Errorf("%w: %v", ErrNavigationFailure, err)
	}
}

package capture

import "time"

// Backend names a registered capture implementation.
type Backend string

const (
	// BackendChromedp drives a real Chrome instance over CDP. This is the
	// only backend that observes network-level script requests and therefore
	// the only one that can detect dynamically injected scripts.
	BackendChromedp Backend = "chromedp"

	// BackendStatic fetches the page over plain HTTP and parses the served
	// HTML. No JavaScript executes, so the DOM snapshot is the document as
	// authored and the network view is empty.
	BackendStatic Backend = "static"
)

// Config is the minimal configuration required to construct a Capturer.
type Config struct {
	Backend Backend

	// UserAgent is sent with every page load.
	UserAgent string

	// IdleQuiet is the no-in-flight-requests window that counts as network
	// idle.
	IdleQuiet time.Duration
}

// DefaultConfig returns sensible capture defaults.
func DefaultConfig() Config {
	return Config{
		Backend: BackendChromedp,
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) " +
			"Chrome/121.0.0.0 Safari/537.36",
		IdleQuiet: 500 * time.Millisecond,
	}
}

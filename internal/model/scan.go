package model

import "time"

// ScriptType says whether a script arrived as an external resource or as an
// inline <script> block.
type ScriptType string

const (
	ScriptExternal ScriptType = "external"
	ScriptInline   ScriptType = "inline"
)

// Script is one detected script on the audited page.
//
// Identity is the resolved URL for external scripts and a stable content hash
// for inline ones; it is unique within a single scan's result set (a script
// seen on both the network and in the DOM merges into one row).
type Script struct {
	// Identity dedupes observations within one scan. Not serialized.
	Identity string `json:"-"`

	// URL is the resolved script URL; nil for inline scripts.
	URL *string `json:"url"`

	// Name is the last path segment of the URL, or "inline".
	Name string `json:"name"`

	// Vendor is the catalog classification, "Unknown" when nothing matched.
	Vendor string `json:"vendor"`

	// ViaGTM is true only when the script was injected dynamically and a tag
	// manager was detected on the page.
	ViaGTM bool `json:"via_gtm"`

	Type ScriptType `json:"type"`

	// Blocked marks scripts whose request failed or returned an error status.
	Blocked bool `json:"blocked"`

	// BlockReason is a short human-readable note for blocked scripts.
	BlockReason string `json:"block_reason,omitempty"`

	// Injected is true when the script was observed on the network but absent
	// from the settled DOM snapshot. Not serialized; via_gtm is the reported
	// flag and additionally requires tag-manager presence.
	Injected bool `json:"-"`

	// Source holds inline script text for classification. Not serialized.
	Source string `json:"-"`
}

// ScanResult is the report for one target. It is created fresh per scan,
// immutable once returned, and only read/serialized by callers.
type ScanResult struct {
	URL         string    `json:"url"`
	ScannedAt   time.Time `json:"scanned_at"`
	GTMDetected bool      `json:"gtm_detected"`

	// Error is set on failed batch entries in place of scripts; a failed scan
	// never carries a partial script list.
	Error string `json:"error,omitempty"`

	Scripts []Script `json:"scripts"`
}

// Failed reports whether this result represents a scan-level error entry.
func (r *ScanResult) Failed() bool {
	return r.Error != ""
}

// Options configures a single audit scan.
type Options struct {
	// TimeoutSeconds bounds the whole session: navigation plus waits.
	TimeoutSeconds int

	// GracePeriodSeconds is the fixed wait after network idle that lets a tag
	// manager fire late tags. A heuristic: extremely slow tag managers can
	// still be missed.
	GracePeriodSeconds int

	// Headless controls browser visibility; visible mode helps debugging.
	Headless bool
}

// DefaultOptions returns the standard scan budget.
func DefaultOptions() Options {
	return Options{
		TimeoutSeconds:     30,
		GracePeriodSeconds: 2,
		Headless:           true,
	}
}

// Timeout returns the overall session budget as a duration.
func (o Options) Timeout() time.Duration {
	secs := o.TimeoutSeconds
	if secs <= 0 {
		secs = DefaultOptions().TimeoutSeconds
	}
	return time.Duration(secs) * time.Second
}

// GracePeriod returns the post-idle wait as a duration. Zero means the
// default; pass a negative value to disable the grace wait entirely.
func (o Options) GracePeriod() time.Duration {
	secs := o.GracePeriodSeconds
	if secs == 0 {
		secs = DefaultOptions().GracePeriodSeconds
	}
	if secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

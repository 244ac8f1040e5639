package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// InferName extracts a human-readable script name from a URL: the last path
// segment with any query leftovers stripped, falling back to the hostname and
// finally to the raw input.
func InferName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	path := strings.TrimRight(u.Path, "/")
	segment := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		segment = path[i+1:]
	}
	// Strip query params that crept into the filename
	if i := strings.Index(segment, "?"); i >= 0 {
		segment = segment[:i]
	}
	if segment != "" {
		return segment
	}
	if u.Hostname() != "" {
		return u.Hostname()
	}
	return raw
}

// NormalizeScriptURL strips trivial formatting differences from a script URL.
// Query strings and fragments are significant and preserved: vendor IDs often
// live there.
func NormalizeScriptURL(raw string) string {
	return strings.TrimSpace(raw)
}

// ValidateTarget checks that raw is a usable http(s) URL with a host.
func ValidateTarget(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("empty target URL")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing target URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("target URL %q must start with http:// or https://", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("target URL %q has no host", raw)
	}
	return nil
}

// ResolveRef resolves a possibly-relative reference against a base URL,
// returning ref unchanged when either side fails to parse.
func ResolveRef(base, ref string) string {
	ref = strings.TrimSpace(ref)
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

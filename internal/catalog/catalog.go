// Package catalog holds the vendor classification rules: an ordered,
// first-match-wins list evaluated top to bottom. The order is the tie-break
// policy when several patterns could match the same URL, so the catalog is a
// priority list, never a map.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tagscope/tagscope/internal/model"
)

// Unknown is the classification for scripts no rule matched. An expected
// outcome, not an error.
const Unknown = "Unknown"

//go:embed vendors.yaml
var defaultCatalogYAML []byte

// MatchKind selects how a URL rule's pattern is evaluated.
type MatchKind string

const (
	// MatchSubstring is a case-insensitive substring match, the default.
	MatchSubstring MatchKind = "substring"

	// MatchRegex evaluates the pattern as a regular expression.
	MatchRegex MatchKind = "regex"
)

// URLRule classifies external scripts by their full resolved URL.
type URLRule struct {
	Match   MatchKind `yaml:"match"`
	Pattern string    `yaml:"pattern"`
	Vendor  string    `yaml:"vendor"`

	re *regexp.Regexp
}

// InlineRule classifies inline scripts by known call-signature fragments in
// their text content.
type InlineRule struct {
	Pattern string `yaml:"pattern"`
	Vendor  string `yaml:"vendor"`
}

// Catalog is the immutable rule set shared read-only across scans for the
// lifetime of the process.
type Catalog struct {
	urlRules    []URLRule
	inlineRules []InlineRule
	filtered    []string
}

type catalogFile struct {
	URLRules     []URLRule    `yaml:"url_rules"`
	InlineRules  []InlineRule `yaml:"inline_rules"`
	FilteredURLs []string     `yaml:"filtered_urls"`
}

// Default loads the embedded vendor catalog. Call once at process start.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultCatalogYAML))
}

// Load reads a catalog from YAML and compiles its regex rules.
func Load(r io.Reader) (*Catalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decoding vendor catalog: %w", err)
	}
	return New(file.URLRules, file.InlineRules, file.FilteredURLs)
}

// New builds a catalog from explicit rule lists, preserving their order.
func New(urlRules []URLRule, inlineRules []InlineRule, filtered []string) (*Catalog, error) {
	rules := make([]URLRule, len(urlRules))
	copy(rules, urlRules)
	for i := range rules {
		if rules[i].Pattern == "" || rules[i].Vendor == "" {
			return nil, fmt.Errorf("url rule %d: pattern and vendor are required", i)
		}
		switch rules[i].Match {
		case "", MatchSubstring:
			rules[i].Match = MatchSubstring
		case MatchRegex:
			re, err := regexp.Compile(rules[i].Pattern)
			if err != nil {
				return nil, fmt.Errorf("url rule %d (%s): %w", i, rules[i].Vendor, err)
			}
			rules[i].re = re
		default:
			return nil, fmt.Errorf("url rule %d: unknown match kind %q", i, rules[i].Match)
		}
	}

	for i, r := range inlineRules {
		if r.Pattern == "" || r.Vendor == "" {
			return nil, fmt.Errorf("inline rule %d: pattern and vendor are required", i)
		}
	}

	lowered := make([]string, len(filtered))
	for i, f := range filtered {
		lowered[i] = strings.ToLower(f)
	}

	return &Catalog{
		urlRules:    rules,
		inlineRules: append([]InlineRule(nil), inlineRules...),
		filtered:    lowered,
	}, nil
}

// VendorForURL returns the vendor for a script URL, or Unknown. Rules are
// evaluated in catalog order and the first match wins; later rules are never
// consulted even if they would also match.
func (c *Catalog) VendorForURL(url string) string {
	lowered := strings.ToLower(url)
	for _, r := range c.urlRules {
		switch r.Match {
		case MatchRegex:
			if r.re.MatchString(url) {
				return r.Vendor
			}
		default:
			if strings.Contains(lowered, strings.ToLower(r.Pattern)) {
				return r.Vendor
			}
		}
	}
	return Unknown
}

// VendorForInline returns the vendor for inline script text, or Unknown.
// First fingerprint match wins.
func (c *Catalog) VendorForInline(content string) string {
	for _, r := range c.inlineRules {
		if strings.Contains(content, r.Pattern) {
			return r.Vendor
		}
	}
	return Unknown
}

// Classify resolves one observation to a vendor name. Pure and deterministic
// for identical input.
func (c *Catalog) Classify(s model.Script) string {
	if s.Type == model.ScriptInline {
		return c.VendorForInline(s.Source)
	}
	if s.URL == nil {
		return Unknown
	}
	return c.VendorForURL(*s.URL)
}

// IsFiltered reports whether a request URL is tag-manager internal plumbing
// that should be excluded from capture.
func (c *Catalog) IsFiltered(url string) bool {
	lowered := strings.ToLower(url)
	for _, f := range c.filtered {
		if strings.Contains(lowered, f) {
			return true
		}
	}
	return false
}

// IsGTMLoader reports whether a URL is the tag manager's own container
// loader. Covers both standard and server-side GTM, where a custom domain
// proxies /gtm.js or /gtag/js with a container ID in the query string.
// Evaluated before, and independently of, generic vendor classification.
func IsGTMLoader(url string) bool {
	lowered := strings.ToLower(url)
	if strings.Contains(lowered, "googletagmanager.com/gtm.js") {
		return true
	}
	if strings.Contains(lowered, "googletagmanager.com/gtag/js") {
		return true
	}
	if strings.Contains(lowered, "/gtm.js") && strings.Contains(lowered, "id=gtm-") {
		return true
	}
	if strings.Contains(lowered, "/gtag/js") &&
		(strings.Contains(lowered, "id=g-") || strings.Contains(lowered, "id=gtm-")) {
		return true
	}
	return false
}

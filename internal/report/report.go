// Package report renders and persists scan results: console summaries,
// Markdown documents, JSON files, and diffs between two reports.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/tagscope/tagscope/internal/model"
)

// VendorCount is one row of a vendor breakdown.
type VendorCount struct {
	Vendor string
	Count  int
}

// VendorBreakdown tallies scripts per vendor, most common first. Ties keep a
// stable alphabetical order so output is deterministic.
func VendorBreakdown(res *model.ScanResult) []VendorCount {
	counts := make(map[string]int)
	for _, s := range res.Scripts {
		counts[s.Vendor]++
	}
	out := make([]VendorCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, VendorCount{Vendor: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Vendor < out[j].Vendor
	})
	return out
}

// Print writes a human-readable summary of one result. index and total, when
// positive, prefix the header with batch progress. verbose adds a table of
// every detected script.
func Print(w io.Writer, res *model.ScanResult, verbose bool, index, total int) {
	prefix := ""
	if index > 0 && total > 0 {
		prefix = fmt.Sprintf("[%d/%d] ", index, total)
	}
	fmt.Fprintf(w, "\n%sAuditing: %s\n", prefix, res.URL)

	if res.Failed() {
		fmt.Fprintf(w, "  ERROR: %s\n", res.Error)
		return
	}

	inline, external, viaGTM := 0, 0, 0
	for _, s := range res.Scripts {
		switch s.Type {
		case model.ScriptInline:
			inline++
		case model.ScriptExternal:
			external++
		}
		if s.ViaGTM {
			viaGTM++
		}
	}

	fmt.Fprintf(w, "  Found %d scripts (%d inline, %d external)\n", len(res.Scripts), inline, external)
	if res.GTMDetected {
		fmt.Fprintf(w, "  GTM detected: YES\n")
		fmt.Fprintf(w, "  Scripts injected via GTM: %d\n", viaGTM)
	} else {
		fmt.Fprintf(w, "  GTM detected: NO\n")
	}

	if breakdown := VendorBreakdown(res); len(breakdown) > 0 {
		fmt.Fprintln(w, "  Vendor breakdown:")
		for _, vc := range breakdown {
			fmt.Fprintf(w, "    %-35s %d\n", vc.Vendor, vc.Count)
		}
	}

	if verbose && len(res.Scripts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  %-55s %-20s %-30s %-5s %s\n", "URL", "Name", "Vendor", "GTM", "Type")
		for _, s := range res.Scripts {
			u := displayURL(s)
			if len(u) > 53 {
				u = u[:50] + "..."
			}
			gtm := "No"
			if s.ViaGTM {
				gtm = "Yes"
			}
			fmt.Fprintf(w, "  %-55s %-20s %-30s %-5s %s\n", u, s.Name, s.Vendor, gtm, s.Type)
		}
	}
}

func displayURL(s model.Script) string {
	if s.URL == nil {
		return "inline"
	}
	return *s.URL
}

// Save writes results to a JSON file, creating parent directories as needed.
// A single result is written unwrapped; a batch is written as an array.
func Save(path string, results []*model.ScanResult) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory %s: %w", dir, err)
		}
	}

	var payload any = results
	if len(results) == 1 {
		payload = results[0]
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// DefaultOutputPath returns the timestamped default JSON path under baseDir.
func DefaultOutputPath(baseDir string, now time.Time) string {
	name := fmt.Sprintf("audit_%s.json", now.Format("20060102_150405"))
	if baseDir == "" {
		return filepath.Join("output", name)
	}
	return filepath.Join(baseDir, name)
}

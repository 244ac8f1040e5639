// Package cli parses the auditor's command line and loads batch target
// files. Parsing is deterministic and never reads os.Args directly, so tests
// can pass arbitrary slices.
package cli

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tagscope/tagscope/internal/utils"
)

// Args are the command-line arguments controlling one run.
type Args struct {
	// Target is a single URL to audit (mutually exclusive with File).
	Target string

	// File is a path to a text file with one URL per line; blank lines and
	// lines starting with '#' are skipped.
	File string

	// Output is the JSON report path; empty means a timestamped default.
	Output string

	// Markdown optionally writes a markdown report alongside the JSON one.
	Markdown string

	// TimeoutSeconds is the per-URL budget.
	TimeoutSeconds int

	// GracePeriodSeconds is the post-idle wait for late-firing tags. Zero
	// keeps the default; a negative value disables the wait.
	GracePeriodSeconds int

	// NoHeadless shows the browser window (useful for debugging).
	NoHeadless bool

	// Verbose prints a table of all detected scripts per URL.
	Verbose bool

	// Backend selects the capture implementation (chromedp|static).
	Backend string

	// Concurrency caps concurrent browser instances in batch mode.
	Concurrency int

	// RawArgs is the original args slice (useful for debugging/tests).
	RawArgs []string
}

// ParseArgs parses a slice of args and returns Args. The single positional
// argument, if present, is the target URL.
func ParseArgs(args []string) (*Args, error) {
	fs := flag.NewFlagSet("tagscope", flag.ContinueOnError)
	var (
		file        = fs.String("file", "", "Path to a .txt file with one URL per line")
		output      = fs.String("output", "", "Output JSON file path (default: timestamped file under the data dir)")
		mdOut       = fs.String("markdown", "", "Also write a markdown report to this path")
		timeout     = fs.Int("timeout", 30, "Timeout per URL in seconds")
		grace       = fs.Int("grace", 2, "Extra wait after network idle, in seconds, for late-firing tags (0 uses the default, negative disables the wait)")
		noHeadless  = fs.Bool("no-headless", false, "Show the browser window (useful for debugging)")
		verbose     = fs.Bool("verbose", false, "Print a table of all detected scripts per URL")
		backend     = fs.String("backend", "chromedp", "Capture backend: chromedp|static")
		concurrency = fs.Int("concurrency", 1, "Concurrent browser instances in batch mode")
	)
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	target := strings.TrimSpace(fs.Arg(0))
	if target != "" && *file != "" {
		return nil, fmt.Errorf("provide either a URL or -file, not both")
	}
	if target == "" && *file == "" {
		return nil, fmt.Errorf("provide a URL or -file <path>")
	}

	return &Args{
		Target:             target,
		File:               *file,
		Output:             *output,
		Markdown:           *mdOut,
		TimeoutSeconds:     *timeout,
		GracePeriodSeconds: *grace,
		NoHeadless:         *noHeadless,
		Verbose:            *verbose,
		Backend:            *backend,
		Concurrency:        *concurrency,
		RawArgs:            args,
	}, nil
}

// LoadTargets resolves the list of URLs to audit. Invalid entries (not
// http/https) are returned in skipped, for the caller to warn about; at least
// one valid target is required.
func LoadTargets(args *Args) (targets []string, skipped []string, err error) {
	var raw []string
	if args.Target != "" {
		raw = []string{args.Target}
	} else {
		raw, err = readURLFile(args.File)
		if err != nil {
			return nil, nil, err
		}
	}

	for _, u := range raw {
		if verr := utils.ValidateTarget(u); verr != nil {
			skipped = append(skipped, u)
			continue
		}
		targets = append(targets, u)
	}

	if len(targets) == 0 {
		return nil, skipped, fmt.Errorf("no valid URLs to audit")
	}
	return targets, skipped, nil
}

func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening URL file: %w", err)
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading URL file: %w", err)
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("no URLs found in %s", path)
	}
	return urls, nil
}

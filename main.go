// Command tagscope audits webpages for third-party JavaScript: every script
// loaded during page load, including ones injected by a tag manager, is
// captured and classified against the vendor catalog.
//
// Usage:
//
//	tagscope https://example.com
//	tagscope -file urls.txt -concurrency 2
//	tagscope https://example.com -output audit.json -verbose
//	tagscope https://example.com -no-headless -timeout 45
package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/tagscope/tagscope/internal/app"
	"github.com/tagscope/tagscope/internal/audit"
	"github.com/tagscope/tagscope/internal/capture"
	"github.com/tagscope/tagscope/internal/catalog"
	"github.com/tagscope/tagscope/internal/cli"
	"github.com/tagscope/tagscope/internal/interfaces"
	"github.com/tagscope/tagscope/internal/logging"
	"github.com/tagscope/tagscope/internal/model"
	"github.com/tagscope/tagscope/internal/report"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(argv []string) error {
	args, err := cli.ParseArgs(argv)
	if err != nil {
		return err
	}

	targets, skipped, err := cli.LoadTargets(args)
	for _, u := range skipped {
		fmt.Fprintf(os.Stderr, "Warning: skipping invalid URL (no http/https): %s\n", u)
	}
	if err != nil {
		return err
	}

	var logger interfaces.Logger
	if args.Verbose {
		logger = logging.NewStdoutLogger("tagscope")
	} else {
		logger = interfaces.NewTestLogger(false)
	}

	cat, err := catalog.Default()
	if err != nil {
		return err
	}

	captureCfg := capture.DefaultConfig()
	captureCfg.Backend = capture.Backend(args.Backend)
	capturer, err := capture.New(captureCfg, cat, logger)
	if err != nil {
		return err
	}

	auditor := audit.New(cat, capturer, logger)
	defer auditor.Close()

	opts := model.Options{
		TimeoutSeconds:     args.TimeoutSeconds,
		GracePeriodSeconds: args.GracePeriodSeconds,
		Headless:           !args.NoHeadless,
	}

	var printMu sync.Mutex
	onResult := func(index, total int, res *model.ScanResult) {
		printMu.Lock()
		defer printMu.Unlock()
		if total > 1 {
			report.Print(os.Stdout, res, args.Verbose, index+1, total)
		} else {
			report.Print(os.Stdout, res, args.Verbose, 0, 0)
		}
	}

	results, err := auditor.ScanAll(context.Background(), targets, opts, args.Concurrency, onResult)
	if err != nil {
		return err
	}

	outPath := args.Output
	if outPath == "" {
		outPath = report.DefaultOutputPath(app.DefaultConfig().OutputDir(), time.Now())
	}
	if err := report.Save(outPath, results); err != nil {
		return err
	}
	fmt.Printf("\nResults saved to: %s\n", outPath)

	if args.Markdown != "" && len(results) > 0 {
		f, err := os.Create(args.Markdown)
		if err != nil {
			return fmt.Errorf("creating markdown report: %w", err)
		}
		defer f.Close()
		if err := report.WriteMarkdown(f, results[0]); err != nil {
			return fmt.Errorf("writing markdown report: %w", err)
		}
		fmt.Printf("Markdown report saved to: %s\n", args.Markdown)
	}

	return nil
}

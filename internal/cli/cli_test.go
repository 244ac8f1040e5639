package cli_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tagscope/tagscope/internal/cli"
	"github.com/tagscope/tagscope/internal/model"
)

func TestParseArgs_Defaults(t *testing.T) {
	t.Parallel()
	args, err := cli.ParseArgs([]string{"https://example.com"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if args.Target != "https://example.com" {
		t.Errorf("Target = %q", args.Target)
	}
	if args.TimeoutSeconds != 30 {
		t.Errorf("TimeoutSeconds = %d, want 30", args.TimeoutSeconds)
	}
	if args.GracePeriodSeconds != 2 {
		t.Errorf("GracePeriodSeconds = %d, want 2", args.GracePeriodSeconds)
	}
	if args.NoHeadless || args.Verbose {
		t.Error("boolean flags must default to false")
	}
	if args.Backend != "chromedp" {
		t.Errorf("Backend = %q, want chromedp", args.Backend)
	}
	if args.Concurrency != 1 {
		t.Errorf("Concurrency = %d, want 1", args.Concurrency)
	}
}

func TestParseArgs_AllFlags(t *testing.T) {
	t.Parallel()
	args, err := cli.ParseArgs([]string{
		"-file", "urls.txt",
		"-output", "out.json",
		"-markdown", "out.md",
		"-timeout", "60",
		"-grace", "5",
		"-no-headless",
		"-verbose",
		"-backend", "static",
		"-concurrency", "4",
	})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if args.File != "urls.txt" || args.Output != "out.json" || args.Markdown != "out.md" {
		t.Errorf("paths: %+v", args)
	}
	if args.TimeoutSeconds != 60 || args.GracePeriodSeconds != 5 {
		t.Errorf("timings: timeout=%d grace=%d", args.TimeoutSeconds, args.GracePeriodSeconds)
	}
	if !args.NoHeadless || !args.Verbose {
		t.Error("boolean flags not set")
	}
	if args.Backend != "static" || args.Concurrency != 4 {
		t.Errorf("backend=%q concurrency=%d", args.Backend, args.Concurrency)
	}
}

func TestParseArgs_NegativeGraceDisablesWait(t *testing.T) {
	t.Parallel()
	args, err := cli.ParseArgs([]string{"-grace=-1", "https://example.com"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if args.GracePeriodSeconds != -1 {
		t.Fatalf("GracePeriodSeconds = %d, want -1", args.GracePeriodSeconds)
	}
	opts := model.Options{GracePeriodSeconds: args.GracePeriodSeconds}
	if got := opts.GracePeriod(); got != 0 {
		t.Errorf("negative grace must disable the wait, got %v", got)
	}
}

func TestParseArgs_URLAndFileAreExclusive(t *testing.T) {
	t.Parallel()
	if _, err := cli.ParseArgs([]string{"-file", "urls.txt", "https://example.com"}); err == nil {
		t.Fatal("expected error for URL and -file together")
	}
}

func TestParseArgs_RequiresATarget(t *testing.T) {
	t.Parallel()
	if _, err := cli.ParseArgs(nil); err == nil {
		t.Fatal("expected error for no target")
	}
}

func TestLoadTargets_SingleURL(t *testing.T) {
	t.Parallel()
	targets, skipped, err := cli.LoadTargets(&cli.Args{Target: "https://example.com"})
	if err != nil {
		t.Fatalf("LoadTargets: %v", err)
	}
	if len(targets) != 1 || targets[0] != "https://example.com" {
		t.Errorf("targets = %v", targets)
	}
	if len(skipped) != 0 {
		t.Errorf("skipped = %v", skipped)
	}
}

func TestLoadTargets_FileSkipsCommentsAndInvalid(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "urls.txt")
	content := `# production sites
https://a.example.com

https://b.example.com
not-a-url
ftp://c.example.com/file.js
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	targets, skipped, err := cli.LoadTargets(&cli.Args{File: path})
	if err != nil {
		t.Fatalf("LoadTargets: %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("targets = %v", targets)
	}
	if targets[0] != "https://a.example.com" || targets[1] != "https://b.example.com" {
		t.Errorf("targets out of order: %v", targets)
	}
	if len(skipped) != 2 {
		t.Errorf("skipped = %v", skipped)
	}
}

func TestLoadTargets_AllInvalid(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "urls.txt")
	if err := os.WriteFile(path, []byte("not-a-url\nanother bad one\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, _, err := cli.LoadTargets(&cli.Args{File: path}); err == nil {
		t.Fatal("expected error when every URL is invalid")
	}
}

func TestLoadTargets_MissingFile(t *testing.T) {
	t.Parallel()
	if _, _, err := cli.LoadTargets(&cli.Args{File: "/does/not/exist.txt"}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

package audit_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tagscope/tagscope/internal/audit"
	"github.com/tagscope/tagscope/internal/model"
	"github.com/tagscope/tagscope/internal/testutil"
)

func TestScanAll_ResultsInInputOrder(t *testing.T) {
	t.Parallel()
	targets := []string{
		"https://a.example.com",
		"https://b.example.com",
		"https://c.example.com",
	}
	fake := &testutil.FakeCapturer{Cap: &model.Capture{}}
	a := newAuditor(t, fake)

	results, err := a.ScanAll(context.Background(), targets, model.DefaultOptions(), 3, nil)
	if err != nil {
		t.Fatalf("ScanAll: %v", err)
	}
	if len(results) != len(targets) {
		t.Fatalf("expected %d results, got %d", len(targets), len(results))
	}
	for i, res := range results {
		if res.URL != targets[i] {
			t.Errorf("result %d: got %s, want %s", i, res.URL, targets[i])
		}
	}
}

func TestScanAll_ContinuesPastFailures(t *testing.T) {
	t.Parallel()
	fake := &testutil.FakeCapturer{
		Cap: &model.Capture{DOMScripts: []model.DOMScript{{Src: "https://cdn.example.com/a.js"}}},
		ErrFor: map[string]error{
			"https://broken.example.com": audit.ErrNavigationFailure,
		},
	}
	a := newAuditor(t, fake)

	targets := []string{
		"https://ok.example.com",
		"https://broken.example.com",
		"https://also-ok.example.com",
	}
	results, err := a.ScanAll(context.Background(), targets, model.DefaultOptions(), 1, nil)
	if err != nil {
		t.Fatalf("ScanAll: %v", err)
	}

	if !results[1].Failed() {
		t.Error("expected failed entry for broken target")
	}
	if results[1].Error == "" {
		t.Error("failed entry must carry the error text")
	}
	if results[1].Scripts == nil || len(results[1].Scripts) != 0 {
		t.Error("failed entry must have an empty, non-nil script list")
	}
	if results[0].Failed() || results[2].Failed() {
		t.Error("healthy targets must still succeed")
	}
}

func TestScanAll_BrowserLaunchFailureAborts(t *testing.T) {
	t.Parallel()
	fake := &testutil.FakeCapturer{Err: audit.ErrBrowserLaunch}
	a := newAuditor(t, fake)

	_, err := a.ScanAll(context.Background(),
		[]string{"https://a.example.com", "https://b.example.com"},
		model.DefaultOptions(), 1, nil)
	if !errors.Is(err, audit.ErrBrowserLaunch) {
		t.Fatalf("expected ErrBrowserLaunch, got %v", err)
	}
}

func TestScanAll_CallbackSeesEveryEntry(t *testing.T) {
	t.Parallel()
	targets := []string{"https://a.example.com", "https://b.example.com"}
	fake := &testutil.FakeCapturer{Cap: &model.Capture{}}
	a := newAuditor(t, fake)

	var mu sync.Mutex
	seen := make(map[int]string)
	_, err := a.ScanAll(context.Background(), targets, model.DefaultOptions(), 2,
		func(index, total int, res *model.ScanResult) {
			mu.Lock()
			defer mu.Unlock()
			if total != len(targets) {
				t.Errorf("total = %d, want %d", total, len(targets))
			}
			seen[index] = res.URL
		})
	if err != nil {
		t.Fatalf("ScanAll: %v", err)
	}

	if len(seen) != len(targets) {
		t.Fatalf("callback fired %d times, want %d", len(seen), len(targets))
	}
	for i, target := range targets {
		if seen[i] != target {
			t.Errorf("callback index %d: got %s, want %s", i, seen[i], target)
		}
	}
}

func TestScanAll_ZeroConcurrencyStillRuns(t *testing.T) {
	t.Parallel()
	fake := &testutil.FakeCapturer{Cap: &model.Capture{}}
	a := newAuditor(t, fake)
	results, err := a.ScanAll(context.Background(), []string{"https://a.example.com"}, model.DefaultOptions(), 0, nil)
	if err != nil {
		t.Fatalf("ScanAll: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

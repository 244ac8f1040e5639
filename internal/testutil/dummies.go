// Package testutil holds shared fakes for package tests.
package testutil

import (
	"context"
	"sync"

	"github.com/tagscope/tagscope/internal/model"
)

// FakeCapturer returns a canned capture (or error) without touching a
// browser. Safe for concurrent use.
type FakeCapturer struct {
	mu sync.Mutex

	// Cap is returned for every target unless CapFor has an entry.
	Cap *model.Capture

	// CapFor overrides Cap per target URL.
	CapFor map[string]*model.Capture

	// Err, when set, fails every Capture call.
	Err error

	// ErrFor fails specific targets.
	ErrFor map[string]error

	Targets []string
	Closed  bool
}

// Capture implements interfaces.Capturer.
func (f *FakeCapturer) Capture(ctx context.Context, target string, opts model.Options) (*model.Capture, error) {
	f.mu.Lock()
	f.Targets = append(f.Targets, target)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.ErrFor != nil {
		if err, ok := f.ErrFor[target]; ok {
			return nil, err
		}
	}
	if f.Err != nil {
		return nil, f.Err
	}
	if f.CapFor != nil {
		if c, ok := f.CapFor[target]; ok {
			return c, nil
		}
	}
	if f.Cap != nil {
		return f.Cap, nil
	}
	return &model.Capture{}, nil
}

// Close implements interfaces.Capturer.
func (f *FakeCapturer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Str returns a pointer to s; handy for building expected Script values.
func Str(s string) *string {
	return &s
}

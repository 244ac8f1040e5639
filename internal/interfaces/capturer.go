package interfaces

import (
	"context"

	"github.com/tagscope/tagscope/internal/model"
)

// Capturer drives one capture session against a target page: navigate,
// record script network requests, snapshot DOM <script> elements.
// Implementations own the browser (or HTTP) resources for the session and
// must release them on every exit path.
type Capturer interface {
	// Capture loads the target and returns the raw observations for one scan.
	// The context bounds the whole session; exceeding opts.TimeoutSeconds or
	// ctx cancellation must tear down the session rather than leak it.
	Capture(ctx context.Context, target string, opts model.Options) (*model.Capture, error)

	// Close releases any resources held by the capturer.
	Close() error
}

// Package audit is the engine that turns one target URL into a ScanResult:
// capture, reconcile, classify, assemble.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/tagscope/tagscope/internal/catalog"
	"github.com/tagscope/tagscope/internal/interfaces"
	"github.com/tagscope/tagscope/internal/logging"
	"github.com/tagscope/tagscope/internal/model"
	"github.com/tagscope/tagscope/internal/reconcile"
	"github.com/tagscope/tagscope/internal/utils"
)

// Auditor runs scans against a fixed vendor catalog. The catalog is the only
// state shared across concurrent scans and is read-only for the lifetime of
// the process; each scan's browser context is owned by the capturer.
type Auditor struct {
	cat      *catalog.Catalog
	capturer interfaces.Capturer
	logger   logging.Logger
}

// New ties together catalog, capture backend and logger.
func New(cat *catalog.Catalog, capturer interfaces.Capturer, logger interfaces.Logger) *Auditor {
	return &Auditor{
		cat:      cat,
		capturer: capturer,
		logger:   logger.With(logging.Field{Key: "component", Value: "audit"}),
	}
}

// Scan audits one URL and returns its report. It either fully succeeds or
// returns an error; there are no partial results. The assembled result is
// immutable once returned.
func (a *Auditor) Scan(ctx context.Context, target string, opts model.Options) (*model.ScanResult, error) {
	if err := utils.ValidateTarget(target); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTarget, err)
	}

	cap, err := a.capturer.Capture(ctx, target, opts)
	if err != nil {
		a.logger.Warn("capture failed",
			logging.Field{Key: "target", Value: target},
			logging.Field{Key: "error", Value: err.Error()})
		return nil, err
	}

	scripts := reconcile.Merge(cap)
	for i := range scripts {
		scripts[i].Vendor = a.cat.Classify(scripts[i])
	}

	result := &model.ScanResult{
		URL:         target,
		ScannedAt:   time.Now().UTC().Truncate(time.Second),
		GTMDetected: cap.GTMDetected,
		Scripts:     scripts,
	}

	a.logger.Info("scan complete",
		logging.Field{Key: "target", Value: target},
		logging.Field{Key: "scripts", Value: len(scripts)},
		logging.Field{Key: "gtm_detected", Value: cap.GTMDetected})

	return result, nil
}

// Close releases the underlying capture backend.
func (a *Auditor) Close() error {
	return a.capturer.Close()
}

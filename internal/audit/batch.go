package audit

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tagscope/tagscope/internal/logging"
	"github.com/tagscope/tagscope/internal/model"
)

// ResultFunc receives each batch entry as it completes. index is the
// position of the target in the input slice. Called from scan goroutines, so
// implementations must be safe for concurrent use when concurrency > 1.
type ResultFunc func(index, total int, res *model.ScanResult)

// ScanAll audits every target, capping concurrent browser instances at
// concurrency (minimum 1). One bad URL never aborts the batch: per-URL
// failures become entries with Error set and an empty script list, returned
// alongside the successful results in input order. Only a fatal error (no
// browser to scan with) stops the run early.
func (a *Auditor) ScanAll(ctx context.Context, targets []string, opts model.Options, concurrency int, onResult ResultFunc) ([]*model.ScanResult, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]*model.ScanResult, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, target := range targets {
		g.Go(func() error {
			res, err := a.Scan(gctx, target, opts)
			if err != nil {
				if Fatal(err) {
					return err
				}
				res = &model.ScanResult{
					URL:       target,
					ScannedAt: time.Now().UTC().Truncate(time.Second),
					Error:     err.Error(),
					Scripts:   []model.Script{},
				}
				a.logger.Warn("batch entry failed",
					logging.Field{Key: "target", Value: target},
					logging.Field{Key: "error", Value: err.Error()})
			}
			results[i] = res
			if onResult != nil {
				onResult(i, len(targets), res)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

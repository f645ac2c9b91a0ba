package verifier

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/raysh454/threatcheck/internal/model"
)

// VerifyBatch verifies reqs independently with at most concurrency in
// flight. results[i] answers reqs[i]. A concurrency below 1 uses the
// configured BatchConcurrency.
func (v *Verifier) VerifyBatch(ctx context.Context, reqs []model.CheckRequest, concurrency int) []model.CheckResult {
	results := make([]model.CheckResult, len(reqs))
	if len(reqs) == 0 {
		return results
	}
	if concurrency < 1 {
		concurrency = v.cfg.BatchConcurrency
	}

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			results[i] = v.Verify(ctx, req)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

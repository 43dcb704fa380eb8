package index

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Result reports the outcome of indexing one document. An error in one
// document's pipeline never affects another document's run.
type Result struct {
	Doc      string
	Segments int
	Err      error
}

// IndexAll indexes several documents with at most workers running in
// parallel. Each document owns its own store file, so runs are
// independent; per-document failures are reported in the results, not
// propagated, and do not cancel the remaining documents.
func (p *Pipeline) IndexAll(ctx context.Context, docPaths []string, workers int) []Result {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]Result, len(docPaths))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, doc := range docPaths {
		g.Go(func() error {
			n, err := p.Index(ctx, doc)
			mu.Lock()
			results[i] = Result{Doc: doc, Segments: n, Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

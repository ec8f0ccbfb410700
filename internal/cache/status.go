package cache

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// CheckAll runs Check for every file with at most workers goroutines.
// Results are returned in input order. Files not yet started when ctx is
// cancelled are reported stale with the context error as reason.
func (d *Decider) CheckAll(ctx context.Context, files []string, options string, workers int) []Decision {
	if workers < 1 {
		workers = 1
	}

	type indexed struct {
		i   int
		dec Decision
	}

	p := pool.NewWithResults[indexed]().WithMaxGoroutines(workers)
	for i, f := range files {
		i, f := i, f
		p.Go(func() indexed {
			if err := ctx.Err(); err != nil {
				return indexed{i, Decision{
					Source:   f,
					Options:  options,
					Artifact: d.ArtifactFor(f),
					Stale:    true,
					Reason:   Reason(err.Error()),
				}}
			}
			return indexed{i, d.Check(f, options)}
		})
	}

	results := make([]Decision, len(files))
	for _, r := range p.Wait() {
		results[r.i] = r.dec
	}
	return results
}

package sim

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/kosmos/internal/kosmos"
)

type job struct {
	runner *Runner
	cfg    Config
}

// Ensemble runs independent Kosmos instances concurrently. Instances share
// nothing, so each runs on its own goroutine without locking.
type Ensemble struct {
	jobs  []job
	limit int
}

// NewEnsemble bounds concurrent runs by limit; limit <= 0 means unbounded.
func NewEnsemble(limit int) *Ensemble {
	return &Ensemble{limit: limit}
}

func (e *Ensemble) Add(name string, k *kosmos.Kosmos, cfg Config) *Runner {
	r := New(name, k)
	e.jobs = append(e.jobs, job{runner: r, cfg: cfg})
	return r
}

func (e *Ensemble) Len() int { return len(e.jobs) }

// Run returns results in the order the runs were added. The first failure
// cancels the remaining runs.
func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, len(e.jobs))

	g, ctx := errgroup.WithContext(ctx)
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}

	for i, j := range e.jobs {
		g.Go(func() error {
			res, err := j.runner.Run(ctx, j.cfg)
			results[i] = res
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

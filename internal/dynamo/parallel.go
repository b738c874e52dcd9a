package dynamo

import (
	"golang.org/x/sync/errgroup"
)

// ParallelFor executes fn over [0, n) split into at most workers contiguous
// chunks. Chunk boundaries depend only on n, workers and minChunk, never on
// scheduling, so a caller writing disjoint outputs per index gets identical
// results for any worker count. When chunks fail, the error of the lowest
// failing chunk is returned after all chunks finish.
func ParallelFor(n, workers, minChunk int, fn func(start, end int) error) error {
	if n <= 0 {
		return nil
	}
	if minChunk < 1 {
		minChunk = 1
	}
	if workers > n/minChunk {
		workers = n / minChunk
	}
	if workers <= 1 {
		return fn(0, n)
	}

	chunkSize := (n + workers - 1) / workers
	errs := make([]error, (n+chunkSize-1)/chunkSize)

	var g errgroup.Group
	for c := range errs {
		start := c * chunkSize
		end := min(start+chunkSize, n)
		g.Go(func() error {
			errs[c] = fn(start, end)
			return nil
		})
	}
	g.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

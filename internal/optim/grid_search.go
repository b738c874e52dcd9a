// Package optim searches scenario parameters for the cheapest run that
// stays within an energy error budget.
package optim

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/san-kum/kosmos/internal/config"
	"github.com/san-kum/kosmos/internal/dynamo"
	"github.com/san-kum/kosmos/internal/metrics"
	"github.com/san-kum/kosmos/internal/sim"
)

// Candidate is one evaluated point of the grid.
type Candidate struct {
	Params      map[string]float64
	Steps       int
	Evaluations int
	EnergyDrift float64
	Elapsed     time.Duration
	Err         error
}

// Objective scores a candidate; lower is better. ok is false for
// candidates that must not be chosen.
type Objective func(c Candidate) (score float64, ok bool)

// CheapestWithin prefers the fewest force evaluations among candidates whose
// energy drift stays at or below tolerance, breaking ties by wall time.
func CheapestWithin(tolerance float64) Objective {
	return func(c Candidate) (float64, bool) {
		if c.Err != nil || c.EnergyDrift > tolerance {
			return 0, false
		}
		return float64(c.Evaluations) + c.Elapsed.Seconds()*1e-9, true
	}
}

// MinimizeDrift chooses the candidate with the smallest energy drift.
func MinimizeDrift(c Candidate) (float64, bool) {
	if c.Err != nil {
		return 0, false
	}
	return c.EnergyDrift, true
}

// GridSearch evaluates every combination of the listed parameter values.
// When dt is searched the step count is rescaled so every candidate covers
// the base scenario's duration.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	logger     *slog.Logger
}

func NewGridSearch(params []string, ranges [][]float64, logger *slog.Logger) (*GridSearch, error) {
	if len(params) == 0 || len(params) != len(ranges) {
		return nil, dynamo.Invalid("grid needs one value list per parameter (%d names, %d lists)", len(params), len(ranges))
	}
	scratch := config.DefaultConfig()
	for i, name := range params {
		if len(ranges[i]) == 0 {
			return nil, dynamo.Invalid("parameter %s has no values", name)
		}
		if err := scratch.Set(name, ranges[i][0]); err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &GridSearch{paramNames: params, ranges: ranges, logger: logger}, nil
}

// Size is the number of candidates the grid holds.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search runs every candidate and returns the best one under obj together
// with all candidates in grid order. ErrNotFound means no candidate was
// acceptable.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, obj Objective) (Candidate, []Candidate, error) {
	all := make([]Candidate, 0, g.Size())
	if err := g.searchRecursive(ctx, 0, make(map[string]float64), base, &all); err != nil {
		return Candidate{}, all, err
	}

	bestIdx := -1
	bestScore := math.Inf(1)
	for i, c := range all {
		score, ok := obj(c)
		if ok && score < bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return Candidate{}, all, dynamo.ErrNotFound
	}

	g.logger.Info("grid search finished", "candidates", len(all), "best", all[bestIdx].Params, "score", bestScore)
	return all[bestIdx], all, nil
}

func (g *GridSearch) searchRecursive(ctx context.Context, depth int, current map[string]float64, base *config.Config, out *[]Candidate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		c, err := g.evaluate(ctx, current, base)
		if err != nil {
			return err
		}
		*out = append(*out, c)
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, base, out); err != nil {
			return err
		}
	}
	return nil
}

// evaluate runs one candidate. Only cancellation is returned as an error;
// build and step failures are recorded on the candidate.
func (g *GridSearch) evaluate(ctx context.Context, params map[string]float64, base *config.Config) (Candidate, error) {
	cfg := *base
	for name, v := range params {
		if err := cfg.Set(name, v); err != nil {
			return Candidate{}, err
		}
	}
	if cfg.Dt > 0 && cfg.Dt != base.Dt {
		cfg.Steps = int(math.Round(base.Duration() / cfg.Dt))
	}

	c := Candidate{Params: params, Steps: cfg.Steps}
	if err := cfg.Validate(); err != nil {
		c.Err = err
		return c, nil
	}
	k, err := cfg.Build(g.logger)
	if err != nil {
		c.Err = err
		return c, nil
	}
	drift := metrics.NewEnergyDrift()
	k.AddMetric(drift)

	res, err := sim.New("grid", k).Run(ctx, sim.Config{Dt: cfg.Dt, Steps: cfg.Steps})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return c, ctxErr
	}
	c.Err = err
	c.EnergyDrift = drift.Value()
	c.Evaluations = k.Evaluations()
	if res != nil {
		c.Elapsed = res.Elapsed
	}

	g.logger.Debug("grid candidate", "params", params, "steps", c.Steps, "energy_drift", c.EnergyDrift, "error", c.Err)
	return c, nil
}

// Package automation runs batches of scenarios: one-parameter sweeps and
// Monte Carlo trials over perturbed initial conditions.
package automation

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/kosmos/internal/config"
	"github.com/san-kum/kosmos/internal/dynamo"
	"github.com/san-kum/kosmos/internal/metrics"
	"github.com/san-kum/kosmos/internal/sim"
)

// Outcome is what one run of a batch reports.
type Outcome struct {
	StepsTaken    int
	EnergyDrift   float64
	MomentumDrift float64
	// Stability is the fraction of steps every body stayed within the
	// batch radius of the center of mass; 1 when no radius is set.
	Stability float64
	Err       error
}

// Bound reports whether the run finished with every body inside the radius
// at every step.
func (o Outcome) Bound() bool { return o.Err == nil && o.Stability == 1 }

// runOne builds and runs a single scenario. Step failures are recorded in
// the outcome rather than returned so one unstable member does not stop
// the batch.
func runOne(ctx context.Context, name string, cfg *config.Config, radius float64, logger *slog.Logger) Outcome {
	k, err := cfg.Build(logger)
	if err != nil {
		return Outcome{Err: err}
	}

	energy := metrics.NewEnergyDrift()
	momentum := metrics.NewMomentumDrift()
	k.AddMetric(energy)
	k.AddMetric(momentum)
	var stability *metrics.Stability
	if radius > 0 {
		stability = metrics.NewStability(radius)
		k.AddMetric(stability)
	}

	res, err := sim.New(name, k).Run(ctx, sim.Config{Dt: cfg.Dt, Steps: cfg.Steps})
	out := Outcome{Err: err, Stability: 1}
	if res != nil {
		out.StepsTaken = res.StepsTaken
	}
	out.EnergyDrift = energy.Value()
	out.MomentumDrift = momentum.Value()
	if stability != nil {
		out.Stability = stability.Value()
	}
	if err != nil {
		out.Stability = 0
	}
	return out
}

// Sweep runs a scenario once per value of a single parameter, spaced
// linearly from Min to Max.
type Sweep struct {
	Scenario *config.Config
	Param    string
	Min      float64
	Max      float64
	Points   int
	// Radius enables the stability check when positive.
	Radius  float64
	Workers int
}

type SweepResult struct {
	Value float64
	Outcome
}

func (s *Sweep) values() ([]float64, error) {
	if s.Scenario == nil {
		return nil, dynamo.Invalid("sweep needs a scenario")
	}
	if s.Points < 1 {
		return nil, dynamo.Invalid("sweep needs at least one point, got %d", s.Points)
	}
	if s.Points == 1 {
		return []float64{s.Min}, nil
	}
	step := (s.Max - s.Min) / float64(s.Points-1)
	values := make([]float64, s.Points)
	for i := range values {
		values[i] = s.Min + float64(i)*step
	}
	return values, nil
}

// RunSweep returns one result per value, in order. Only cancellation and
// invalid parameters abort the sweep.
func RunSweep(ctx context.Context, s *Sweep, logger *slog.Logger) ([]SweepResult, error) {
	values, err := s.values()
	if err != nil {
		return nil, err
	}

	scenarios := make([]*config.Config, len(values))
	for i, v := range values {
		cfg := *s.Scenario
		if err := cfg.Set(s.Param, v); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		scenarios[i] = &cfg
	}

	outcomes, err := runAll(ctx, "sweep", scenarios, s.Radius, s.Workers, logger)
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, len(values))
	for i, v := range values {
		results[i] = SweepResult{Value: v, Outcome: outcomes[i]}
	}
	return results, nil
}

func runAll(ctx context.Context, name string, scenarios []*config.Config, radius float64, workers int, logger *slog.Logger) ([]Outcome, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	outcomes := make([]Outcome, len(scenarios))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, cfg := range scenarios {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = runOne(gctx, name, cfg, radius, logger)
			logger.Debug("batch run finished", "batch", name, "index", i,
				"steps", outcomes[i].StepsTaken, "energy_drift", outcomes[i].EnergyDrift, "error", outcomes[i].Err)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, ctx.Err()
}

// MonteCarlo runs a scenario many times with every body's velocity
// perturbed by Gaussian noise of standard deviation Perturbation times the
// RMS speed of the unperturbed scenario.
type MonteCarlo struct {
	Scenario     *config.Config
	Trials       int
	Perturbation float64
	Radius       float64
	Seed         uint64
	Workers      int
}

type Trial struct {
	Index int
	Outcome
}

// perturbed draws every trial's scenario up front from a single source so
// the set of trials depends only on the seed.
func (mc *MonteCarlo) perturbed() ([]*config.Config, error) {
	if mc.Scenario == nil {
		return nil, dynamo.Invalid("monte carlo needs a scenario")
	}
	if mc.Trials < 1 {
		return nil, dynamo.Invalid("monte carlo needs at least one trial, got %d", mc.Trials)
	}
	if math.IsNaN(mc.Perturbation) || mc.Perturbation < 0 {
		return nil, dynamo.Invalid("perturbation must be non-negative, got %g", mc.Perturbation)
	}

	vrms := rmsSpeed(mc.Scenario.Bodies)
	sigma := mc.Perturbation * vrms
	rng := rand.New(rand.NewPCG(mc.Seed, mc.Seed^0x9e3779b97f4a7c15))

	scenarios := make([]*config.Config, mc.Trials)
	for t := range scenarios {
		cfg := *mc.Scenario
		cfg.Bodies = make([]config.BodyConfig, len(mc.Scenario.Bodies))
		copy(cfg.Bodies, mc.Scenario.Bodies)
		if sigma > 0 {
			for i := range cfg.Bodies {
				for d := range cfg.Bodies[i].Velocity {
					cfg.Bodies[i].Velocity[d] += sigma * rng.NormFloat64()
				}
			}
		}
		scenarios[t] = &cfg
	}
	return scenarios, nil
}

func rmsSpeed(bodies []config.BodyConfig) float64 {
	if len(bodies) == 0 {
		return 0
	}
	sum := 0.0
	for _, b := range bodies {
		for _, v := range b.Velocity {
			sum += v * v
		}
	}
	return math.Sqrt(sum / float64(len(bodies)))
}

func RunMonteCarlo(ctx context.Context, mc *MonteCarlo, logger *slog.Logger) ([]Trial, error) {
	scenarios, err := mc.perturbed()
	if err != nil {
		return nil, err
	}

	outcomes, err := runAll(ctx, "montecarlo", scenarios, mc.Radius, mc.Workers, logger)
	if err != nil {
		return nil, err
	}

	trials := make([]Trial, len(outcomes))
	for i, o := range outcomes {
		trials[i] = Trial{Index: i, Outcome: o}
	}
	return trials, nil
}

// Summary counts Monte Carlo outcomes.
type Summary struct {
	Trials  int
	Bound   int
	Escaped int
	Failed  int
}

func (s Summary) BoundFraction() float64 {
	if s.Trials == 0 {
		return 0
	}
	return float64(s.Bound) / float64(s.Trials)
}

func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("trials", s.Trials),
		slog.Int("bound", s.Bound),
		slog.Int("escaped", s.Escaped),
		slog.Int("failed", s.Failed),
	)
}

func Summarize(trials []Trial) Summary {
	s := Summary{Trials: len(trials)}
	for _, t := range trials {
		switch {
		case t.Err != nil:
			s.Failed++
		case t.Bound():
			s.Bound++
		default:
			s.Escaped++
		}
	}
	return s
}

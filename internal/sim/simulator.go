// Package sim drives a Kosmos through a run: it steps, samples, reports
// progress and stops on cancellation or the first failed step.
package sim

import (
	"context"
	"math"
	"slices"
	"time"

	"github.com/san-kum/kosmos/internal/dynamo"
	"github.com/san-kum/kosmos/internal/kosmos"
)

type Runner struct {
	name      string
	k         *kosmos.Kosmos
	observers []Observer
}

func New(name string, k *kosmos.Kosmos) *Runner {
	return &Runner{
		name:      name,
		k:         k,
		observers: make([]Observer, 0),
	}
}

func (r *Runner) Kosmos() *kosmos.Kosmos { return r.k }
func (r *Runner) AddObserver(o Observer) { r.observers = append(r.observers, o) }

// Run steps the Kosmos cfg.Steps times. On cancellation or step failure it
// returns the partial result together with the error.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	k := r.k
	logger := k.Logger().With("run", r.name)

	capacity := 2
	if cfg.SampleEvery > 0 {
		capacity += cfg.Steps / cfg.SampleEvery
	}
	result := &Result{
		Name:     r.name,
		Times:    make([]float64, 0, capacity),
		Energies: make([]float64, 0, capacity),
		Samples:  make([]Sample, 0, capacity),
		Metrics:  make(map[string]float64),
	}

	for _, m := range k.Metrics() {
		if s, ok := m.(starter); ok {
			s.Start(k)
		} else {
			m.Reset()
		}
	}

	initialEnergy := k.TotalEnergy()
	r.sample(result, initialEnergy)
	lastSampled := k.Steps()

	logger.Info("run started", "bodies", k.BodyCount(), "dt", cfg.Dt, "steps", cfg.Steps,
		"integrator", k.IntegratorName(), "evaluator", k.EvaluatorName())
	start := time.Now()

	var runErr error
	for i := 0; i < cfg.Steps; i++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		if err := k.Step(cfg.Dt); err != nil {
			runErr = err
			break
		}
		result.StepsTaken++

		for _, obs := range r.observers {
			obs.OnStep(k)
		}

		if cfg.SampleEvery > 0 && result.StepsTaken%cfg.SampleEvery == 0 {
			r.sample(result, k.TotalEnergy())
			lastSampled = k.Steps()
		}
	}

	if lastSampled != k.Steps() {
		r.sample(result, k.TotalEnergy())
	}

	result.Elapsed = time.Since(start)
	if initialEnergy != 0 {
		result.EnergyDrift = math.Abs(result.Final().Energy-initialEnergy) / math.Abs(initialEnergy)
	}
	for _, m := range k.Metrics() {
		result.Metrics[m.Name()] = m.Value()
	}

	if runErr != nil {
		logger.Warn("run stopped", "steps", result.StepsTaken, "error", runErr)
		return result, &RunError{Name: r.name, Step: result.StepsTaken, Wrapped: runErr}
	}

	logger.Info("run finished", "steps", result.StepsTaken, "elapsed", result.Elapsed,
		"energy_drift", result.EnergyDrift, "stats", k.Stats())
	return result, nil
}

func (r *Runner) sample(result *Result, energy float64) {
	k := r.k
	result.Times = append(result.Times, k.Time())
	result.Energies = append(result.Energies, energy)
	result.Samples = append(result.Samples, Sample{
		Step:   k.Steps(),
		Time:   k.Time(),
		Energy: energy,
		Bodies: slices.Collect(k.Bodies()),
	})
}

// RunWithCallback steps until callback returns false or cfg.Steps is
// reached. The callback sees the Kosmos after every step.
func (r *Runner) RunWithCallback(ctx context.Context, cfg Config, callback func(k *kosmos.Kosmos) bool) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}

	for i := 0; i < cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := r.k.Step(cfg.Dt); err != nil {
			return &RunError{Name: r.name, Step: i, Wrapped: err}
		}
		if !callback(r.k) {
			return nil
		}
	}

	return nil
}

func validateConfig(cfg Config) error {
	if math.IsNaN(cfg.Dt) || math.IsInf(cfg.Dt, 0) || cfg.Dt <= 0 {
		return dynamo.Invalid("dt must be positive and finite, got %g", cfg.Dt)
	}
	if cfg.Steps < 0 {
		return dynamo.Invalid("steps must be non-negative, got %d", cfg.Steps)
	}
	if cfg.SampleEvery < 0 {
		return dynamo.Invalid("sample interval must be non-negative, got %d", cfg.SampleEvery)
	}
	return nil
}

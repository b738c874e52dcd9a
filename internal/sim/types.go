package sim

import (
	"fmt"
	"time"

	"github.com/san-kum/kosmos/internal/body"
	"github.com/san-kum/kosmos/internal/kosmos"
)

// Observer is notified after every committed step.
type Observer interface {
	OnStep(k *kosmos.Kosmos)
}

type ObserverFunc func(k *kosmos.Kosmos)

func (f ObserverFunc) OnStep(k *kosmos.Kosmos) { f(k) }

// starter matches metrics that take their reference from the initial state.
type starter interface {
	Start(k *kosmos.Kosmos)
}

type Config struct {
	Dt    float64
	Steps int
	// SampleEvery records bodies every n steps; 0 records only the initial
	// and final states.
	SampleEvery int
}

type Sample struct {
	Step   int
	Time   float64
	Energy float64
	Bodies []body.Snapshot
}

type Result struct {
	Name string
	// Times and Energies parallel Samples.
	Times       []float64
	Energies    []float64
	Samples     []Sample
	Metrics     map[string]float64
	EnergyDrift float64
	StepsTaken  int
	Elapsed     time.Duration
}

// Final is the last recorded sample.
func (r *Result) Final() Sample {
	if len(r.Samples) == 0 {
		return Sample{}
	}
	return r.Samples[len(r.Samples)-1]
}

// Series extracts one body's trajectory from the samples.
func (r *Result) Series(id body.ID) []body.Snapshot {
	out := make([]body.Snapshot, 0, len(r.Samples))
	for _, s := range r.Samples {
		for _, b := range s.Bodies {
			if b.ID == id {
				out = append(out, b)
				break
			}
		}
	}
	return out
}

// Bodies returns the ids present in the first sample.
func (r *Result) Bodies() []body.ID {
	if len(r.Samples) == 0 {
		return nil
	}
	ids := make([]body.ID, len(r.Samples[0].Bodies))
	for i, b := range r.Samples[0].Bodies {
		ids[i] = b.ID
	}
	return ids
}

// RunError reports where a run stopped.
type RunError struct {
	Name    string
	Step    int
	Wrapped error
}

func (e *RunError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("sim: run stopped after %d steps: %v", e.Step, e.Wrapped)
	}
	return fmt.Sprintf("sim: %s stopped after %d steps: %v", e.Name, e.Step, e.Wrapped)
}

func (e *RunError) Unwrap() error { return e.Wrapped }

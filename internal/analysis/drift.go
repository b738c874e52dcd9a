package analysis

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/kosmos/internal/dynamo"
)

// DriftStats summarizes relative energy error (E - E₀)/|E₀| over a run.
type DriftStats struct {
	Samples int
	Mean    float64
	StdDev  float64
	MaxAbs  float64
	Final   float64
}

// Drift computes DriftStats from a series of total energies whose first
// element is the reference.
func Drift(energies []float64) (DriftStats, error) {
	if len(energies) < 2 {
		return DriftStats{}, dynamo.Invalid("need at least 2 energies, got %d", len(energies))
	}
	e0 := energies[0]
	if e0 == 0 {
		return DriftStats{}, dynamo.Invalid("reference energy is zero")
	}

	rel := make([]float64, len(energies))
	abs := make([]float64, len(energies))
	for i, e := range energies {
		rel[i] = (e - e0) / math.Abs(e0)
		abs[i] = math.Abs(rel[i])
	}

	mean, std := stat.MeanStdDev(rel, nil)
	return DriftStats{
		Samples: len(rel),
		Mean:    mean,
		StdDev:  std,
		MaxAbs:  floats.Max(abs),
		Final:   rel[len(rel)-1],
	}, nil
}

func (d DriftStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("samples", d.Samples),
		slog.Float64("mean", d.Mean),
		slog.Float64("stddev", d.StdDev),
		slog.Float64("max_abs", d.MaxAbs),
		slog.Float64("final", d.Final),
	)
}

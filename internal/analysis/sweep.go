package analysis

import (
	"context"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/kosmos/internal/dynamo"
	"github.com/san-kum/kosmos/internal/metrics"
	"github.com/san-kum/kosmos/internal/sim"
)

// SweepPoint is the outcome of one run in a timestep sweep.
type SweepPoint struct {
	Dt          float64
	Steps       int
	EnergyDrift float64
	Evaluations int
}

// TimestepSweep runs the system built by build for the same duration at
// each dt and records the largest relative energy error seen.
func TimestepSweep(ctx context.Context, build Builder, duration float64, dts []float64) ([]SweepPoint, error) {
	if !(duration > 0) {
		return nil, dynamo.Invalid("duration must be positive, got %g", duration)
	}

	points := make([]SweepPoint, 0, len(dts))
	for _, dt := range dts {
		if !(dt > 0) {
			return nil, dynamo.Invalid("dt must be positive, got %g", dt)
		}

		k, err := build()
		if err != nil {
			return nil, err
		}
		drift := metrics.NewEnergyDrift()
		k.AddMetric(drift)

		steps := int(math.Round(duration / dt))
		if _, err := sim.New("sweep", k).Run(ctx, sim.Config{Dt: dt, Steps: steps}); err != nil {
			return nil, err
		}

		points = append(points, SweepPoint{
			Dt:          dt,
			Steps:       steps,
			EnergyDrift: drift.Value(),
			Evaluations: k.Evaluations(),
		})
	}

	return points, nil
}

// ConvergenceOrder fits log(drift) = p·log(dt) + c and returns p, the
// observed order of the integrator's energy error.
func ConvergenceOrder(points []SweepPoint) (float64, error) {
	xs := make([]float64, 0, len(points))
	ys := make([]float64, 0, len(points))
	for _, p := range points {
		if p.EnergyDrift > 0 {
			xs = append(xs, math.Log(p.Dt))
			ys = append(ys, math.Log(p.EnergyDrift))
		}
	}
	if len(xs) < 2 {
		return 0, dynamo.Invalid("need two points with non-zero drift, got %d", len(xs))
	}

	_, slope := stat.LinearRegression(xs, ys, nil, false)
	return slope, nil
}

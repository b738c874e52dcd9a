// Package analysis extracts physical quantities from sampled runs.
//
//   - [EstimatePeriod]: dominant period of a coordinate series via FFT
//   - [CrossingPeriod]: period from upward mean crossings
//   - [Drift]: statistics of relative energy error
//   - [LyapunovExponent]: largest Lyapunov exponent of an N-body system
//   - [TimestepSweep] and [ConvergenceOrder]: integrator error scaling
//
// # Chaos Detection
//
// A positive largest Lyapunov exponent indicates chaotic dynamics:
//
//	lambda, err := analysis.LyapunovExponent(build, dt, steps, 1e-8)
//	if lambda > 0 {
//	    // nearby orbits diverge exponentially
//	}
package analysis

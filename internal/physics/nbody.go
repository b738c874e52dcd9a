package physics

import (
	"math"

	"github.com/san-kum/kosmos/internal/compute"
	"github.com/san-kum/kosmos/internal/dynamo"
	"github.com/san-kum/kosmos/internal/vec"
)

type Options struct {
	G         float64
	Softening float64
	Evaluator string
	Theta     float64
	Workers   int
}

// NBody evaluates softened gravity with a fixed constant and softening
// length. It keeps no per-body state; masses are passed on every call.
type NBody struct {
	G         float64
	Softening float64
	backend   compute.Backend
}

func NewNBody(opts Options) (*NBody, error) {
	if math.IsNaN(opts.G) || math.IsInf(opts.G, 0) || opts.G <= 0 {
		return nil, dynamo.Invalid("gravitational constant must be positive and finite, got %g", opts.G)
	}
	if math.IsNaN(opts.Softening) || math.IsInf(opts.Softening, 0) || opts.Softening < 0 {
		return nil, dynamo.Invalid("softening length must be non-negative and finite, got %g", opts.Softening)
	}

	backend, err := compute.NewBackend(compute.Options{
		Kind:    opts.Evaluator,
		Theta:   opts.Theta,
		Workers: opts.Workers,
	})
	if err != nil {
		return nil, err
	}
	if backend.Name() == compute.KindBarnesHut && opts.Softening == 0 {
		return nil, dynamo.Invalid("barnes-hut evaluator requires a positive softening length")
	}

	return &NBody{
		G:         opts.G,
		Softening: opts.Softening,
		backend:   backend,
	}, nil
}

func (nb *NBody) EvaluatorName() string { return nb.backend.Name() }

// Accelerations writes the net acceleration of every body into dst. On
// error dst may be partially written and must be discarded.
func (nb *NBody) Accelerations(dst, pos []vec.Vec, masses []float64) error {
	return nb.backend.Accelerations(dst, compute.Field{
		Positions: pos,
		Masses:    masses,
		G:         nb.G,
		Softening: nb.Softening,
	})
}

func KineticEnergy(masses []float64, vel []vec.Vec) float64 {
	ke := 0.0
	for i, m := range masses {
		ke += 0.5 * m * vec.Norm2(vel[i])
	}
	return ke
}

// PotentialEnergy sums −G m_i m_j / sqrt(r² + ε²) over pairs i < j. With zero
// softening, coincident bodies give −Inf.
func (nb *NBody) PotentialEnergy(pos []vec.Vec, masses []float64) float64 {
	n := len(masses)
	eps2 := nb.Softening * nb.Softening
	pe := 0.0

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r := math.Sqrt(vec.Norm2(vec.Sub(pos[j], pos[i])) + eps2)
			pe -= nb.G * masses[i] * masses[j] / r
		}
	}

	return pe
}

func (nb *NBody) Energy(pos, vel []vec.Vec, masses []float64) float64 {
	return KineticEnergy(masses, vel) + nb.PotentialEnergy(pos, masses)
}

func Momentum(masses []float64, vel []vec.Vec) vec.Vec {
	var p vec.Vec
	for i, m := range masses {
		p = vec.AddScaled(p, m, vel[i])
	}
	return p
}

// CenterOfMass returns the mass-weighted mean position, or the origin for
// an empty system.
func CenterOfMass(masses []float64, pos []vec.Vec) vec.Vec {
	var total float64
	var weighted vec.Vec
	for i, m := range masses {
		total += m
		weighted = vec.AddScaled(weighted, m, pos[i])
	}
	if total == 0 {
		return vec.Zero
	}
	return vec.Scale(1/total, weighted)
}

// AngularMomentum returns Σ m_i (x_i × v_i) about the origin.
func AngularMomentum(masses []float64, pos, vel []vec.Vec) vec.Vec {
	var l vec.Vec
	for i, m := range masses {
		l = vec.AddScaled(l, m, vec.Cross(pos[i], vel[i]))
	}
	return l
}

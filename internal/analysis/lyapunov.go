package analysis

import (
	"math"

	"github.com/san-kum/kosmos/internal/dynamo"
	"github.com/san-kum/kosmos/internal/kosmos"
	"github.com/san-kum/kosmos/internal/vec"
)

// Builder returns a fresh Kosmos in a fixed initial state.
type Builder func() (*kosmos.Kosmos, error)

// LyapunovExponent estimates the largest Lyapunov exponent by following a
// reference system and a copy whose first body is displaced by
// perturbation. After every step the copy is pulled back to the initial
// phase-space separation along the current separation direction.
//
// λ ≈ Σ ln(dᵢ/d₀) / (steps·dt)
func LyapunovExponent(build Builder, dt float64, steps int, perturbation float64) (float64, error) {
	if steps <= 0 || !(perturbation > 0) {
		return 0, dynamo.Invalid("need positive steps and perturbation")
	}

	ref, err := build()
	if err != nil {
		return 0, err
	}
	shadow, err := build()
	if err != nil {
		return 0, err
	}
	if ref.BodyCount() == 0 {
		return 0, dynamo.Invalid("system has no bodies")
	}

	first := shadow.IDs()[0]
	b, err := shadow.Body(first)
	if err != nil {
		return 0, err
	}
	if err := shadow.SetState(first, vec.Add(b.Position, vec.New(perturbation, 0, 0)), b.Velocity); err != nil {
		return 0, err
	}

	d0 := perturbation
	sumLog := 0.0

	for i := 0; i < steps; i++ {
		if err := ref.Step(dt); err != nil {
			return 0, err
		}
		if err := shadow.Step(dt); err != nil {
			return 0, err
		}

		sep := separation(ref, shadow)
		if sep == 0 {
			continue
		}
		sumLog += math.Log(sep / d0)

		if err := renormalize(ref, shadow, d0/sep); err != nil {
			return 0, err
		}
	}

	return sumLog / (float64(steps) * dt), nil
}

func separation(a, b *kosmos.Kosmos) float64 {
	sa, sb := a.Snapshot().Bodies, b.Snapshot().Bodies
	sum := 0.0
	for i := range sa {
		sum += vec.Norm2(vec.Sub(sb[i].Position, sa[i].Position))
		sum += vec.Norm2(vec.Sub(sb[i].Velocity, sa[i].Velocity))
	}
	return math.Sqrt(sum)
}

func renormalize(ref, shadow *kosmos.Kosmos, scale float64) error {
	sa, sb := ref.Snapshot().Bodies, shadow.Snapshot().Bodies
	for i := range sa {
		pos := vec.AddScaled(sa[i].Position, scale, vec.Sub(sb[i].Position, sa[i].Position))
		vel := vec.AddScaled(sa[i].Velocity, scale, vec.Sub(sb[i].Velocity, sa[i].Velocity))
		if err := shadow.SetState(sb[i].ID, pos, vel); err != nil {
			return err
		}
	}
	return nil
}

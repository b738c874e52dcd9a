package integrators

import "github.com/san-kum/kosmos/internal/vec"

// Euler is explicit forward Euler. Cheapest scheme, but energy error grows
// without bound; use only as a fallback.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Name() string     { return "euler" }
func (e *Euler) Evaluations() int { return 1 }

func (e *Euler) Step(x *State, accel AccelFunc, dt float64) error {
	if err := accel(x.Acc, x.Pos); err != nil {
		return err
	}
	for i := range x.Pos {
		x.Pos[i] = vec.AddScaled(x.Pos[i], dt, x.Vel[i])
		x.Vel[i] = vec.AddScaled(x.Vel[i], dt, x.Acc[i])
	}
	return nil
}

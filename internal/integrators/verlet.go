package integrators

import "github.com/san-kum/kosmos/internal/vec"

// Verlet is velocity-Verlet in kick-drift-kick form:
//
//	v(t+dt/2) = v(t) + a(t)·dt/2
//	x(t+dt)   = x(t) + v(t+dt/2)·dt
//	v(t+dt)   = v(t+dt/2) + a(t+dt)·dt/2
type Verlet struct{}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) Name() string     { return "verlet" }
func (v *Verlet) Evaluations() int { return 2 }

func (v *Verlet) Step(x *State, accel AccelFunc, dt float64) error {
	if err := accel(x.Acc, x.Pos); err != nil {
		return err
	}

	halfDt := 0.5 * dt
	for i := range x.Pos {
		x.Vel[i] = vec.AddScaled(x.Vel[i], halfDt, x.Acc[i])
		x.Pos[i] = vec.AddScaled(x.Pos[i], dt, x.Vel[i])
	}

	if err := accel(x.Acc, x.Pos); err != nil {
		return err
	}

	for i := range x.Vel {
		x.Vel[i] = vec.AddScaled(x.Vel[i], halfDt, x.Acc[i])
	}

	return nil
}

// Leapfrog is the drift-kick-drift form: one evaluation per step at the
// half-step positions. Symplectic and second order like Verlet.
type Leapfrog struct{}

func NewLeapfrog() *Leapfrog {
	return &Leapfrog{}
}

func (l *Leapfrog) Name() string     { return "leapfrog" }
func (l *Leapfrog) Evaluations() int { return 1 }

func (l *Leapfrog) Step(x *State, accel AccelFunc, dt float64) error {
	halfDt := 0.5 * dt
	for i := range x.Pos {
		x.Pos[i] = vec.AddScaled(x.Pos[i], halfDt, x.Vel[i])
	}

	if err := accel(x.Acc, x.Pos); err != nil {
		return err
	}

	for i := range x.Pos {
		x.Vel[i] = vec.AddScaled(x.Vel[i], dt, x.Acc[i])
		x.Pos[i] = vec.AddScaled(x.Pos[i], halfDt, x.Vel[i])
	}

	return nil
}

package integrators

import "github.com/san-kum/kosmos/internal/vec"

// RK4 is the classical fourth-order Runge-Kutta scheme applied to
// (x' = v, v' = a(x)).
type RK4 struct {
	k1v, k2v, k3v, k4v []vec.Vec
	k2x, k3x, k4x      []vec.Vec
	scratch            []vec.Vec
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Name() string     { return "rk4" }
func (r *RK4) Evaluations() int { return 4 }

func (r *RK4) ensureScratch(n int) {
	if len(r.scratch) != n {
		r.k1v = make([]vec.Vec, n)
		r.k2v = make([]vec.Vec, n)
		r.k3v = make([]vec.Vec, n)
		r.k4v = make([]vec.Vec, n)
		r.k2x = make([]vec.Vec, n)
		r.k3x = make([]vec.Vec, n)
		r.k4x = make([]vec.Vec, n)
		r.scratch = make([]vec.Vec, n)
	}
}

func (r *RK4) Step(x *State, accel AccelFunc, dt float64) error {
	n := x.Len()
	r.ensureScratch(n)
	halfDt := 0.5 * dt

	// k1x is x.Vel itself.
	if err := accel(r.k1v, x.Pos); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = vec.AddScaled(x.Pos[i], halfDt, x.Vel[i])
		r.k2x[i] = vec.AddScaled(x.Vel[i], halfDt, r.k1v[i])
	}
	if err := accel(r.k2v, r.scratch); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = vec.AddScaled(x.Pos[i], halfDt, r.k2x[i])
		r.k3x[i] = vec.AddScaled(x.Vel[i], halfDt, r.k2v[i])
	}
	if err := accel(r.k3v, r.scratch); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = vec.AddScaled(x.Pos[i], dt, r.k3x[i])
		r.k4x[i] = vec.AddScaled(x.Vel[i], dt, r.k3v[i])
	}
	if err := accel(r.k4v, r.scratch); err != nil {
		return err
	}

	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		dx := vec.Add(vec.Add(x.Vel[i], vec.Scale(2, r.k2x[i])), vec.Add(vec.Scale(2, r.k3x[i]), r.k4x[i]))
		dv := vec.Add(vec.Add(r.k1v[i], vec.Scale(2, r.k2v[i])), vec.Add(vec.Scale(2, r.k3v[i]), r.k4v[i]))
		x.Pos[i] = vec.AddScaled(x.Pos[i], dt6, dx)
		x.Vel[i] = vec.AddScaled(x.Vel[i], dt6, dv)
		x.Acc[i] = r.k1v[i]
	}

	return nil
}

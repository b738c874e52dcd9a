// Package integrators advances body positions and velocities by one time
// step given an acceleration function.
//
// Available schemes:
//
//   - verlet: velocity-Verlet (kick-drift-kick), symplectic, 2 evaluations
//   - leapfrog: drift-kick-drift leapfrog, symplectic, 1 evaluation
//   - euler: explicit Euler, 1 evaluation; lower-accuracy fallback that
//     drifts in energy over long runs
//   - rk4: classical Runge-Kutta, 4 evaluations; accurate per step but not
//     symplectic
//
// Integrators keep scratch buffers and are not safe for concurrent use.
package integrators

import (
	"sort"
	"strings"

	"github.com/san-kum/kosmos/internal/dynamo"
	"github.com/san-kum/kosmos/internal/vec"
)

const Default = "verlet"

// State is the working copy of a system that an integrator updates in
// place. Acc holds the accelerations of the last evaluation.
type State struct {
	Pos []vec.Vec
	Vel []vec.Vec
	Acc []vec.Vec
}

func NewState(n int) *State {
	return &State{
		Pos: make([]vec.Vec, n),
		Vel: make([]vec.Vec, n),
		Acc: make([]vec.Vec, n),
	}
}

func (s *State) Len() int { return len(s.Pos) }

// Resize sets the length of every slice to n, reusing capacity.
func (s *State) Resize(n int) {
	s.Pos = resize(s.Pos, n)
	s.Vel = resize(s.Vel, n)
	s.Acc = resize(s.Acc, n)
}

func resize(v []vec.Vec, n int) []vec.Vec {
	if cap(v) >= n {
		return v[:n]
	}
	return make([]vec.Vec, n)
}

// IsValid reports whether every position and velocity is finite.
func (s *State) IsValid() bool {
	for i := range s.Pos {
		if !vec.IsFinite(s.Pos[i]) || !vec.IsFinite(s.Vel[i]) {
			return false
		}
	}
	return true
}

// AccelFunc writes the acceleration of every body at positions pos into dst.
type AccelFunc func(dst, pos []vec.Vec) error

type Integrator interface {
	Name() string
	// Evaluations is the number of AccelFunc calls per step.
	Evaluations() int
	// Step advances x by dt. When it returns an error x is in an
	// unspecified intermediate state.
	Step(x *State, accel AccelFunc, dt float64) error
}

var registry = map[string]func() Integrator{
	"verlet":   func() Integrator { return NewVerlet() },
	"leapfrog": func() Integrator { return NewLeapfrog() },
	"euler":    func() Integrator { return NewEuler() },
	"rk4":      func() Integrator { return NewRK4() },
}

// Lookup returns a fresh integrator by name; the empty name selects
// velocity-Verlet.
func Lookup(name string) (Integrator, error) {
	if name == "" {
		name = Default
	}
	fn, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, dynamo.Invalid("unknown integrator %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

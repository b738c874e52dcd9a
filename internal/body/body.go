// Package body defines the unit of simulated matter: a point mass with a
// position, a velocity and an identifier assigned by its owning Kosmos.
package body

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/kosmos/internal/dynamo"
	"github.com/san-kum/kosmos/internal/vec"
)

// ID identifies a body within one Kosmos. Zero means "not yet assigned".
type ID uint64

func (id ID) String() string { return fmt.Sprintf("#%d", uint64(id)) }

// Body is a point mass. Mass is fixed at construction; position and velocity
// change only through the integrator's commit or an explicit SetState on the
// owning Kosmos between steps.
type Body struct {
	id       ID
	name     string
	mass     float64
	position vec.Vec
	velocity vec.Vec
}

// New returns a body with the given mass, position and velocity. It fails
// with dynamo.ErrInvalidParameter when mass is not strictly positive or any
// input is NaN or Inf.
func New(mass float64, position, velocity vec.Vec) (Body, error) {
	if math.IsNaN(mass) || math.IsInf(mass, 0) || mass <= 0 {
		return Body{}, dynamo.Invalid("mass must be positive and finite, got %g", mass)
	}
	if !vec.IsFinite(position) {
		return Body{}, dynamo.Invalid("position must be finite, got %v", position)
	}
	if !vec.IsFinite(velocity) {
		return Body{}, dynamo.Invalid("velocity must be finite, got %v", velocity)
	}
	return Body{mass: mass, position: position, velocity: velocity}, nil
}

// MustNew is New for literal fixtures known to be valid; it panics otherwise.
func MustNew(mass float64, position, velocity vec.Vec) Body {
	b, err := New(mass, position, velocity)
	if err != nil {
		panic(err)
	}
	return b
}

// WithName returns a copy of b carrying a display name.
func (b Body) WithName(name string) Body {
	b.name = name
	return b
}

// WithID returns a copy of b carrying a preassigned id, as restored from a
// checkpoint. The Kosmos confirms the id is unused when the body is added.
func (b Body) WithID(id ID) Body {
	b.id = id
	return b
}

func (b Body) ID() ID            { return b.id }
func (b Body) Name() string      { return b.name }
func (b Body) Mass() float64     { return b.mass }
func (b Body) Position() vec.Vec { return b.position }
func (b Body) Velocity() vec.Vec { return b.velocity }

// SetPosition and SetVelocity are for the owning container only; callers
// outside a Kosmos work on their own copy.
func (b *Body) SetPosition(p vec.Vec) { b.position = p }
func (b *Body) SetVelocity(v vec.Vec) { b.velocity = v }

// Momentum returns m·v.
func (b Body) Momentum() vec.Vec { return vec.Scale(b.mass, b.velocity) }

// KineticEnergy returns ½·m·|v|².
func (b Body) KineticEnergy() float64 { return 0.5 * b.mass * vec.Norm2(b.velocity) }

// Snapshot is the externally visible state of a body.
type Snapshot struct {
	ID       ID
	Name     string
	Mass     float64
	Position vec.Vec
	Velocity vec.Vec
}

func (b Body) Snapshot() Snapshot {
	return Snapshot{
		ID:       b.id,
		Name:     b.name,
		Mass:     b.mass,
		Position: b.position,
		Velocity: b.velocity,
	}
}

// Label returns the name when set, otherwise the id.
func (s Snapshot) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID.String()
}

// LogValue implements slog.LogValuer.
func (s Snapshot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("id", uint64(s.ID)),
		slog.String("name", s.Name),
		slog.Float64("mass", s.Mass),
		slog.Any("position", vec.Array(s.Position)),
		slog.Any("velocity", vec.Array(s.Velocity)),
	)
}

package kosmos

import (
	"log/slog"

	"github.com/san-kum/kosmos/internal/body"
	"github.com/san-kum/kosmos/internal/dynamo"
	"github.com/san-kum/kosmos/internal/physics"
	"github.com/san-kum/kosmos/internal/vec"
)

func (k *Kosmos) positions() []vec.Vec {
	pos := make([]vec.Vec, len(k.bodies))
	for i := range k.bodies {
		pos[i] = k.bodies[i].Position()
	}
	return pos
}

func (k *Kosmos) velocities() []vec.Vec {
	vel := make([]vec.Vec, len(k.bodies))
	for i := range k.bodies {
		vel[i] = k.bodies[i].Velocity()
	}
	return vel
}

func (k *Kosmos) KineticEnergy() float64 {
	return physics.KineticEnergy(k.masses, k.velocities())
}

// PotentialEnergy uses the same softened pair potential as the force
// evaluation, so the total is conserved by the integrated dynamics.
func (k *Kosmos) PotentialEnergy() float64 {
	return k.nbody.PotentialEnergy(k.positions(), k.masses)
}

func (k *Kosmos) TotalEnergy() float64 {
	return k.KineticEnergy() + k.PotentialEnergy()
}

func (k *Kosmos) TotalMomentum() vec.Vec {
	return physics.Momentum(k.masses, k.velocities())
}

// CenterOfMass returns the zero vector for an empty Kosmos.
func (k *Kosmos) CenterOfMass() vec.Vec {
	return physics.CenterOfMass(k.masses, k.positions())
}

func (k *Kosmos) AngularMomentum() vec.Vec {
	return physics.AngularMomentum(k.masses, k.positions(), k.velocities())
}

func (k *Kosmos) TotalMass() float64 {
	var m float64
	for _, mi := range k.masses {
		m += mi
	}
	return m
}

// Stats is a point-in-time summary suitable for logging.
type Stats struct {
	Time        float64
	Steps       int
	Evaluations int
	Bodies      int
	Energy      float64
	Momentum    vec.Vec
}

func (k *Kosmos) Stats() Stats {
	return Stats{
		Time:        k.time,
		Steps:       k.steps,
		Evaluations: k.evaluations,
		Bodies:      len(k.bodies),
		Energy:      k.TotalEnergy(),
		Momentum:    k.TotalMomentum(),
	}
}

func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("time", s.Time),
		slog.Int("steps", s.Steps),
		slog.Int("evaluations", s.Evaluations),
		slog.Int("bodies", s.Bodies),
		slog.Float64("energy", s.Energy),
		slog.Float64("momentum", vec.Norm(s.Momentum)),
	)
}

// Snapshot is the externally visible state of a Kosmos: enough to rebuild
// it with Restore and continue bit-for-bit.
type Snapshot struct {
	G         float64
	Softening float64
	Time      float64
	Steps     int
	Bodies    []body.Snapshot
	// NextID is the id the next added body would get. Zero means unknown
	// and leaves ids to follow the restored bodies.
	NextID body.ID
}

func (k *Kosmos) Snapshot() Snapshot {
	s := Snapshot{
		G:         k.nbody.G,
		Softening: k.nbody.Softening,
		Time:      k.time,
		Steps:     k.steps,
		Bodies:    make([]body.Snapshot, 0, len(k.bodies)),
		NextID:    k.nextID + 1,
	}
	for b := range k.Bodies() {
		s.Bodies = append(s.Bodies, b)
	}
	return s
}

// Restore builds a Kosmos from a snapshot. G and Softening in s override
// those in cfg; bodies keep their ids and order. Ids below s.NextID are
// never issued again, even those removed before the snapshot.
func Restore(cfg Config, s Snapshot) (*Kosmos, error) {
	if s.Steps < 0 || s.Time < 0 {
		return nil, dynamo.Invalid("snapshot clock must be non-negative, got time %g steps %d", s.Time, s.Steps)
	}
	cfg.G = s.G
	cfg.Softening = s.Softening
	k, err := New(cfg)
	if err != nil {
		return nil, err
	}
	for _, sb := range s.Bodies {
		b, err := body.New(sb.Mass, sb.Position, sb.Velocity)
		if err != nil {
			return nil, err
		}
		if _, err := k.AddBody(b.WithName(sb.Name).WithID(sb.ID)); err != nil {
			return nil, err
		}
	}
	if s.NextID > k.nextID+1 {
		k.nextID = s.NextID - 1
	}
	k.time = s.Time
	k.steps = s.Steps
	return k, nil
}

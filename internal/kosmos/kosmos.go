package kosmos

import (
	"fmt"
	"iter"
	"log/slog"
	"math"

	"github.com/san-kum/kosmos/internal/body"
	"github.com/san-kum/kosmos/internal/dynamo"
	"github.com/san-kum/kosmos/internal/integrators"
	"github.com/san-kum/kosmos/internal/physics"
	"github.com/san-kum/kosmos/internal/vec"
)

// Config fixes the physics of a Kosmos for its whole lifetime.
type Config struct {
	// G is the gravitational constant in the caller's unit system.
	G float64
	// Softening is the length ε added as ε² to every squared separation.
	Softening float64
	// Integrator names the time-stepping scheme; empty selects verlet.
	Integrator string
	// Evaluator selects "direct" (default) or "barnes-hut" force summation.
	Evaluator string
	// Theta is the Barnes-Hut opening angle.
	Theta float64
	// Workers bounds force-evaluation goroutines; <= 0 uses every CPU.
	Workers int
	Logger  *slog.Logger
}

// Metric observes the Kosmos after every committed step.
type Metric interface {
	Name() string
	Observe(k *Kosmos)
	Value() float64
	Reset()
}

type Kosmos struct {
	cfg        Config
	nbody      *physics.NBody
	integrator integrators.Integrator
	logger     *slog.Logger

	bodies  []body.Body
	masses  []float64
	index   map[body.ID]int
	retired map[body.ID]struct{}
	nextID  body.ID

	work *integrators.State

	time        float64
	timeComp    float64
	steps       int
	evaluations int
	stepping    bool

	metrics []Metric
}

func New(cfg Config) (*Kosmos, error) {
	nb, err := physics.NewNBody(physics.Options{
		G:         cfg.G,
		Softening: cfg.Softening,
		Evaluator: cfg.Evaluator,
		Theta:     cfg.Theta,
		Workers:   cfg.Workers,
	})
	if err != nil {
		return nil, err
	}

	integ, err := integrators.Lookup(cfg.Integrator)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Kosmos{
		cfg:        cfg,
		nbody:      nb,
		integrator: integ,
		logger:     logger,
		index:      make(map[body.ID]int),
		retired:    make(map[body.ID]struct{}),
		work:       integrators.NewState(0),
	}, nil
}

func (k *Kosmos) G() float64             { return k.nbody.G }
func (k *Kosmos) Softening() float64     { return k.nbody.Softening }
func (k *Kosmos) IntegratorName() string { return k.integrator.Name() }
func (k *Kosmos) EvaluatorName() string  { return k.nbody.EvaluatorName() }
func (k *Kosmos) Time() float64          { return k.time }
func (k *Kosmos) Steps() int             { return k.steps }
func (k *Kosmos) BodyCount() int         { return len(k.bodies) }
func (k *Kosmos) Evaluations() int       { return k.evaluations }
func (k *Kosmos) Stepping() bool         { return k.stepping }
func (k *Kosmos) Metrics() []Metric      { return k.metrics }
func (k *Kosmos) AddMetric(m Metric)     { k.metrics = append(k.metrics, m) }
func (k *Kosmos) Logger() *slog.Logger   { return k.logger }
func (k *Kosmos) Config() Config         { return k.cfg }

// AddBody stores a copy of b and returns its id. A body without an id gets
// the next fresh one; a preassigned id (restored from a checkpoint) must not
// be held or retired in this Kosmos.
func (k *Kosmos) AddBody(b body.Body) (body.ID, error) {
	if k.stepping {
		return 0, dynamo.ErrStepInProgress
	}
	if b.Mass() <= 0 {
		return 0, dynamo.Invalid("body mass must be positive, got %g", b.Mass())
	}

	id := b.ID()
	if id == 0 {
		k.nextID++
		id = k.nextID
	} else {
		if _, ok := k.index[id]; ok {
			return 0, fmt.Errorf("%w: %v", dynamo.ErrDuplicateID, id)
		}
		if _, ok := k.retired[id]; ok {
			return 0, fmt.Errorf("%w: %v was removed and cannot be reused", dynamo.ErrDuplicateID, id)
		}
		if id > k.nextID {
			k.nextID = id
		}
	}

	k.index[id] = len(k.bodies)
	k.bodies = append(k.bodies, b.WithID(id))
	k.masses = append(k.masses, b.Mass())

	k.logger.Debug("body added", "id", uint64(id), "name", b.Name(), "mass", b.Mass(), "bodies", len(k.bodies))
	return id, nil
}

// RemoveBody drops a body; the remaining bodies keep their relative order.
// Its id is never issued again.
func (k *Kosmos) RemoveBody(id body.ID) error {
	if k.stepping {
		return dynamo.ErrStepInProgress
	}
	i, ok := k.index[id]
	if !ok {
		return fmt.Errorf("%w: %v", dynamo.ErrNotFound, id)
	}

	k.bodies = append(k.bodies[:i], k.bodies[i+1:]...)
	k.masses = append(k.masses[:i], k.masses[i+1:]...)
	delete(k.index, id)
	k.retired[id] = struct{}{}
	for j := i; j < len(k.bodies); j++ {
		k.index[k.bodies[j].ID()] = j
	}

	k.logger.Debug("body removed", "id", uint64(id), "bodies", len(k.bodies))
	return nil
}

func (k *Kosmos) Body(id body.ID) (body.Snapshot, error) {
	i, ok := k.index[id]
	if !ok {
		return body.Snapshot{}, fmt.Errorf("%w: %v", dynamo.ErrNotFound, id)
	}
	return k.bodies[i].Snapshot(), nil
}

// SetState overwrites a body's position and velocity between steps.
func (k *Kosmos) SetState(id body.ID, position, velocity vec.Vec) error {
	if k.stepping {
		return dynamo.ErrStepInProgress
	}
	i, ok := k.index[id]
	if !ok {
		return fmt.Errorf("%w: %v", dynamo.ErrNotFound, id)
	}
	if !vec.IsFinite(position) || !vec.IsFinite(velocity) {
		return dynamo.Invalid("state of %v must be finite", id)
	}
	k.bodies[i].SetPosition(position)
	k.bodies[i].SetVelocity(velocity)
	return nil
}

// Bodies yields a snapshot of every body in insertion order. The sequence
// reads the live collection, so each iteration reflects the current state.
func (k *Kosmos) Bodies() iter.Seq[body.Snapshot] {
	return func(yield func(body.Snapshot) bool) {
		for i := 0; i < len(k.bodies); i++ {
			if !yield(k.bodies[i].Snapshot()) {
				return
			}
		}
	}
}

func (k *Kosmos) IDs() []body.ID {
	ids := make([]body.ID, len(k.bodies))
	for i, b := range k.bodies {
		ids[i] = b.ID()
	}
	return ids
}

func validDt(dt float64) error {
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt <= 0 {
		return dynamo.Invalid("dt must be positive and finite, got %g", dt)
	}
	return nil
}

// Step runs one evaluate→integrate cycle and advances time by dt. On error
// nothing is committed.
func (k *Kosmos) Step(dt float64) error {
	if k.stepping {
		return dynamo.ErrStepInProgress
	}
	if err := validDt(dt); err != nil {
		return err
	}

	k.stepping = true
	defer func() { k.stepping = false }()

	if err := k.advance(dt); err != nil {
		k.logger.Warn("step failed", "step", k.steps, "time", k.time, "dt", dt, "error", err)
		return &dynamo.StepError{Step: k.steps, Time: k.time, Dt: dt, Wrapped: err}
	}

	k.steps++
	k.addTime(dt)

	for _, m := range k.metrics {
		m.Observe(k)
	}
	return nil
}

// Run calls Step steps times and stops at the first error.
func (k *Kosmos) Run(dt float64, steps int) error {
	if steps < 0 {
		return dynamo.Invalid("steps must be non-negative, got %d", steps)
	}
	if err := validDt(dt); err != nil {
		return err
	}
	for i := 0; i < steps; i++ {
		if err := k.Step(dt); err != nil {
			return err
		}
	}
	return nil
}

func (k *Kosmos) advance(dt float64) error {
	n := len(k.bodies)
	k.work.Resize(n)
	for i := range k.bodies {
		k.work.Pos[i] = k.bodies[i].Position()
		k.work.Vel[i] = k.bodies[i].Velocity()
	}

	if err := k.integrator.Step(k.work, k.accelerate, dt); err != nil {
		return err
	}
	if !k.work.IsValid() {
		return fmt.Errorf("%w: non-finite state after integration", dynamo.ErrNumericalInstability)
	}

	for i := range k.bodies {
		k.bodies[i].SetPosition(k.work.Pos[i])
		k.bodies[i].SetVelocity(k.work.Vel[i])
	}
	k.evaluations += k.integrator.Evaluations()
	return nil
}

func (k *Kosmos) accelerate(dst, pos []vec.Vec) error {
	return k.nbody.Accelerations(dst, pos, k.masses)
}

// addTime accumulates with Kahan compensation so long runs of small steps
// do not lose time to rounding.
func (k *Kosmos) addTime(dt float64) {
	y := dt - k.timeComp
	t := k.time + y
	k.timeComp = (t - k.time) - y
	k.time = t
}

// Reset rewinds the clock and step counters to zero and resets every
// metric. Bodies keep their current state.
func (k *Kosmos) Reset() error {
	if k.stepping {
		return dynamo.ErrStepInProgress
	}
	k.time = 0
	k.timeComp = 0
	k.steps = 0
	k.evaluations = 0
	for _, m := range k.metrics {
		m.Reset()
	}
	k.logger.Debug("kosmos reset", "bodies", len(k.bodies))
	return nil
}

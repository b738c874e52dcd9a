package kosmos

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/kosmos/internal/body"
	"github.com/san-kum/kosmos/internal/dynamo"
	"github.com/san-kum/kosmos/internal/vec"
)

// binary returns two unit masses on a circular orbit of unit separation
// with G = 1. The period is π√2.
func binary(t *testing.T, cfg Config) *Kosmos {
	t.Helper()
	if cfg.G == 0 {
		cfg.G = 1
	}
	k, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	v := math.Sqrt2 / 2
	if _, err := k.AddBody(body.MustNew(1, vec.New(0.5, 0, 0), vec.New(0, v, 0))); err != nil {
		t.Fatal(err)
	}
	if _, err := k.AddBody(body.MustNew(1, vec.New(-0.5, 0, 0), vec.New(0, -v, 0))); err != nil {
		t.Fatal(err)
	}
	return k
}

func cluster(t *testing.T, n int, cfg Config) *Kosmos {
	t.Helper()
	k, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < n; i++ {
		fi := float64(i)
		pos := vec.New(math.Cos(fi*0.7)*(1+fi*0.05), math.Sin(fi*1.3), 0.1*math.Cos(fi))
		vel := vec.New(-0.1*math.Sin(fi), 0.1*math.Cos(fi*0.3), 0)
		if _, err := k.AddBody(body.MustNew(1+0.01*fi, pos, vel)); err != nil {
			t.Fatal(err)
		}
	}
	return k
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero G", Config{G: 0}},
		{"negative G", Config{G: -1}},
		{"nan G", Config{G: math.NaN()}},
		{"negative softening", Config{G: 1, Softening: -0.1}},
		{"unknown integrator", Config{G: 1, Integrator: "midpoint"}},
		{"unknown evaluator", Config{G: 1, Evaluator: "fmm"}},
		{"tree without softening", Config{G: 1, Evaluator: "barnes-hut"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); !errors.Is(err, dynamo.ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter, got %v", err)
			}
		})
	}

	k, err := New(Config{G: 1})
	if err != nil {
		t.Fatal(err)
	}
	if k.IntegratorName() != "verlet" || k.EvaluatorName() != "direct" {
		t.Errorf("defaults = %s/%s", k.IntegratorName(), k.EvaluatorName())
	}
}

func TestCircularOrbitConservation(t *testing.T) {
	k := binary(t, Config{})
	period := math.Pi * math.Sqrt2
	dt := period / 10000

	e0 := k.TotalEnergy()
	p0 := k.TotalMomentum()

	if err := k.Run(dt, 1000); err != nil {
		t.Fatal(err)
	}

	if drift := math.Abs((k.TotalEnergy() - e0) / e0); drift > 1e-6 {
		t.Errorf("relative energy drift %g over 1000 steps", drift)
	}
	if drift := vec.Norm(vec.Sub(k.TotalMomentum(), p0)); drift > 1e-12 {
		t.Errorf("momentum drift %g", drift)
	}
}

func TestCircularOrbitReturns(t *testing.T) {
	k := binary(t, Config{})
	initial := k.Snapshot().Bodies

	period := math.Pi * math.Sqrt2
	if err := k.Run(period/10000, 10000); err != nil {
		t.Fatal(err)
	}

	if math.Abs(k.Time()-period) > 1e-9 {
		t.Errorf("time = %v, want %v", k.Time(), period)
	}
	i := 0
	for b := range k.Bodies() {
		if d := vec.Norm(vec.Sub(b.Position, initial[i].Position)); d > 1e-4 {
			t.Errorf("%s is %g from its start after one period", b.Label(), d)
		}
		i++
	}
}

func TestSingleBodyDrift(t *testing.T) {
	for _, integ := range []string{"verlet", "leapfrog", "euler", "rk4"} {
		t.Run(integ, func(t *testing.T) {
			k, err := New(Config{G: 1, Integrator: integ})
			if err != nil {
				t.Fatal(err)
			}
			pos := vec.New(1, 2, 3)
			vel := vec.New(0.1, -0.2, 0.3)
			id, _ := k.AddBody(body.MustNew(5, pos, vel))

			const dt = 0.01
			if err := k.Run(dt, 100); err != nil {
				t.Fatal(err)
			}

			got, _ := k.Body(id)
			want := vec.AddScaled(pos, k.Time(), vel)
			if d := vec.Norm(vec.Sub(got.Position, want)); d > 1e-12 {
				t.Errorf("position off by %g", d)
			}
			if got.Velocity != vel {
				t.Errorf("velocity changed to %v", got.Velocity)
			}
		})
	}
}

func TestDiagnosticsIdempotent(t *testing.T) {
	k := cluster(t, 20, Config{G: 1, Softening: 0.05})

	if a, b := k.TotalEnergy(), k.TotalEnergy(); a != b {
		t.Errorf("TotalEnergy not idempotent: %v != %v", a, b)
	}
	if a, b := k.TotalMomentum(), k.TotalMomentum(); a != b {
		t.Errorf("TotalMomentum not idempotent")
	}
	if a, b := k.CenterOfMass(), k.CenterOfMass(); a != b {
		t.Errorf("CenterOfMass not idempotent")
	}
	if k.Time() != 0 || k.Steps() != 0 {
		t.Errorf("diagnostics advanced the clock")
	}
}

func TestEmptyKosmos(t *testing.T) {
	k, _ := New(Config{G: 1})
	if k.TotalEnergy() != 0 || k.TotalMomentum() != vec.Zero || k.CenterOfMass() != vec.Zero {
		t.Errorf("empty diagnostics should be zero")
	}
	if err := k.Step(0.5); err != nil {
		t.Fatal(err)
	}
	if k.Time() != 0.5 {
		t.Errorf("time = %v", k.Time())
	}
}

func TestRemoveBody(t *testing.T) {
	k, _ := New(Config{G: 1})
	a, _ := k.AddBody(body.MustNew(1, vec.New(0, 0, 0), vec.Zero))
	b, _ := k.AddBody(body.MustNew(2, vec.New(1, 0, 0), vec.Zero))
	c, _ := k.AddBody(body.MustNew(3, vec.New(0, 2, 0), vec.New(0.1, 0, 0)))

	if err := k.RemoveBody(b); err != nil {
		t.Fatal(err)
	}

	ref, _ := New(Config{G: 1})
	ref.AddBody(body.MustNew(1, vec.New(0, 0, 0), vec.Zero))
	ref.AddBody(body.MustNew(3, vec.New(0, 2, 0), vec.New(0.1, 0, 0)))

	if k.TotalEnergy() != ref.TotalEnergy() {
		t.Errorf("energy after removal %v, want %v", k.TotalEnergy(), ref.TotalEnergy())
	}
	if ids := k.IDs(); len(ids) != 2 || ids[0] != a || ids[1] != c {
		t.Errorf("order after removal = %v", ids)
	}

	if err := k.Step(0.01); err != nil {
		t.Fatal(err)
	}
	if err := ref.Step(0.01); err != nil {
		t.Fatal(err)
	}
	if k.TotalEnergy() != ref.TotalEnergy() {
		t.Errorf("removed body still contributes after stepping")
	}

	if _, err := k.Body(b); !errors.Is(err, dynamo.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := k.RemoveBody(b); !errors.Is(err, dynamo.ErrNotFound) {
		t.Errorf("second removal: expected ErrNotFound, got %v", err)
	}
}

func TestIDsNeverReused(t *testing.T) {
	k, _ := New(Config{G: 1})
	first, _ := k.AddBody(body.MustNew(1, vec.Zero, vec.Zero))
	k.RemoveBody(first)

	second, _ := k.AddBody(body.MustNew(1, vec.Zero, vec.Zero))
	if second == first {
		t.Errorf("id %v reused", first)
	}

	if _, err := k.AddBody(body.MustNew(1, vec.Zero, vec.Zero).WithID(first)); !errors.Is(err, dynamo.ErrDuplicateID) {
		t.Errorf("retired id accepted: %v", err)
	}
	if _, err := k.AddBody(body.MustNew(1, vec.Zero, vec.Zero).WithID(second)); !errors.Is(err, dynamo.ErrDuplicateID) {
		t.Errorf("live id accepted: %v", err)
	}

	explicit, err := k.AddBody(body.MustNew(1, vec.Zero, vec.Zero).WithID(10))
	if err != nil || explicit != 10 {
		t.Fatalf("explicit id: %v %v", explicit, err)
	}
	next, _ := k.AddBody(body.MustNew(1, vec.Zero, vec.Zero))
	if next <= explicit {
		t.Errorf("fresh id %v not above explicit %v", next, explicit)
	}
}

func TestAddBodyRejectsZeroValue(t *testing.T) {
	k, _ := New(Config{G: 1})
	if _, err := k.AddBody(body.Body{}); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}
	if k.BodyCount() != 0 {
		t.Errorf("rejected body was stored")
	}
}

func TestInvalidDt(t *testing.T) {
	k := binary(t, Config{})
	before := k.Snapshot()

	for _, dt := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if err := k.Step(dt); !errors.Is(err, dynamo.ErrInvalidParameter) {
			t.Errorf("Step(%v): expected ErrInvalidParameter, got %v", dt, err)
		}
		if err := k.Run(dt, 3); !errors.Is(err, dynamo.ErrInvalidParameter) {
			t.Errorf("Run(%v): expected ErrInvalidParameter, got %v", dt, err)
		}
	}
	if err := k.Run(0.1, -1); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("negative steps: %v", err)
	}
	if err := k.Run(0.1, 0); err != nil {
		t.Errorf("zero steps: %v", err)
	}

	if k.Time() != 0 || k.Steps() != 0 {
		t.Errorf("clock moved: time %v steps %d", k.Time(), k.Steps())
	}
	if after := k.Snapshot(); after.Bodies[0] != before.Bodies[0] || after.Bodies[1] != before.Bodies[1] {
		t.Errorf("bodies changed")
	}
}

func TestFailedStepCommitsNothing(t *testing.T) {
	k, _ := New(Config{G: 1})
	k.AddBody(body.MustNew(1, vec.New(1, 1, 1), vec.New(0, 1, 0)))
	k.AddBody(body.MustNew(1, vec.New(5, 0, 0), vec.New(0, 0, 1)))
	k.AddBody(body.MustNew(1, vec.New(1, 1, 1), vec.New(1, 0, 0)))
	before := k.Snapshot()

	err := k.Step(0.1)
	if !errors.Is(err, dynamo.ErrNumericalInstability) {
		t.Fatalf("expected ErrNumericalInstability, got %v", err)
	}
	var stepErr *dynamo.StepError
	if !errors.As(err, &stepErr) || stepErr.Step != 0 || stepErr.Dt != 0.1 {
		t.Errorf("expected StepError at step 0, got %#v", err)
	}

	after := k.Snapshot()
	if after.Time != before.Time || after.Steps != before.Steps {
		t.Errorf("clock moved")
	}
	for i := range before.Bodies {
		if after.Bodies[i] != before.Bodies[i] {
			t.Errorf("body %d changed: %v -> %v", i, before.Bodies[i], after.Bodies[i])
		}
	}
	if k.Evaluations() != 0 {
		t.Errorf("failed step counted evaluations")
	}
}

func TestBodiesRestartable(t *testing.T) {
	k := binary(t, Config{})

	count := func() (n int) {
		for range k.Bodies() {
			n++
		}
		return n
	}
	seq := k.Bodies()

	var first vec.Vec
	for b := range seq {
		first = b.Position
		break
	}

	k.Step(0.01)
	for b := range seq {
		if b.Position == first {
			t.Errorf("sequence replayed historical state")
		}
		break
	}

	k.AddBody(body.MustNew(1, vec.New(3, 0, 0), vec.Zero))
	if n := count(); n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
}

func TestWorkerCountDeterminism(t *testing.T) {
	run := func(workers int) Snapshot {
		k := cluster(t, 80, Config{G: 1, Softening: 0.01, Workers: workers})
		if err := k.Run(1e-3, 20); err != nil {
			t.Fatal(err)
		}
		return k.Snapshot()
	}

	ref := run(1)
	for _, w := range []int{2, 3, 8} {
		got := run(w)
		for i := range ref.Bodies {
			if got.Bodies[i] != ref.Bodies[i] {
				t.Fatalf("workers=%d: body %d differs", w, i)
			}
		}
	}
}

type mutatingMetric struct {
	k   *Kosmos
	err error
}

func (m *mutatingMetric) Name() string   { return "mutating" }
func (m *mutatingMetric) Value() float64 { return 0 }
func (m *mutatingMetric) Reset()         {}
func (m *mutatingMetric) Observe(k *Kosmos) {
	_, m.err = k.AddBody(body.MustNew(1, vec.Zero, vec.Zero))
}

func TestStepInProgress(t *testing.T) {
	k := binary(t, Config{})
	m := &mutatingMetric{k: k}
	k.AddMetric(m)

	if err := k.Step(0.01); err != nil {
		t.Fatal(err)
	}
	if !errors.Is(m.err, dynamo.ErrStepInProgress) {
		t.Errorf("expected ErrStepInProgress, got %v", m.err)
	}
	if k.BodyCount() != 2 {
		t.Errorf("body added mid-step")
	}
	if k.Stepping() {
		t.Errorf("still stepping after Step returned")
	}
}

func TestResetKeepsBodies(t *testing.T) {
	k := binary(t, Config{})
	k.Run(0.01, 10)
	pos := k.Snapshot().Bodies[0].Position

	if err := k.Reset(); err != nil {
		t.Fatal(err)
	}
	if k.Time() != 0 || k.Steps() != 0 || k.Evaluations() != 0 {
		t.Errorf("clock not reset")
	}
	if k.BodyCount() != 2 || k.Snapshot().Bodies[0].Position != pos {
		t.Errorf("bodies changed by Reset")
	}
}

func TestSnapshotRestore(t *testing.T) {
	k := cluster(t, 12, Config{G: 1, Softening: 0.02})
	k.Run(1e-3, 5)
	k.RemoveBody(3)

	r, err := Restore(Config{}, k.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	if r.Time() != k.Time() || r.Steps() != k.Steps() || r.G() != 1 || r.Softening() != 0.02 {
		t.Errorf("restored clock/config mismatch")
	}

	k.Run(1e-3, 5)
	r.Run(1e-3, 5)
	a, b := k.Snapshot(), r.Snapshot()
	for i := range a.Bodies {
		if a.Bodies[i] != b.Bodies[i] {
			t.Fatalf("body %d diverged after restore", i)
		}
	}

	if _, err := Restore(Config{}, Snapshot{G: 1, Time: -1}); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("negative time accepted: %v", err)
	}
}

func TestRestoreNeverReissuesRemovedIDs(t *testing.T) {
	k := cluster(t, 4, Config{G: 1, Softening: 0.02})
	if err := k.RemoveBody(4); err != nil {
		t.Fatal(err)
	}
	s := k.Snapshot()
	if s.NextID != 5 {
		t.Errorf("NextID = %v, want 5", s.NextID)
	}

	r, err := Restore(Config{}, s)
	if err != nil {
		t.Fatal(err)
	}
	id, err := r.AddBody(body.MustNew(1, vec.Zero, vec.Zero))
	if err != nil {
		t.Fatal(err)
	}
	if id != 5 {
		t.Errorf("restored Kosmos issued %v, want #5", id)
	}

	s.NextID = 0
	r, _ = Restore(Config{}, s)
	if id, _ := r.AddBody(body.MustNew(1, vec.Zero, vec.Zero)); id != 4 {
		t.Errorf("without NextID ids follow the bodies, got %v", id)
	}
}

func TestBarnesHutCoincidentBodies(t *testing.T) {
	for _, evaluator := range []string{"direct", "barnes-hut"} {
		k, err := New(Config{G: 1, Softening: 0.1, Evaluator: evaluator})
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 3; i++ {
			if _, err := k.AddBody(body.MustNew(1, vec.New(1, 1, 1), vec.Zero)); err != nil {
				t.Fatal(err)
			}
		}
		if err := k.Step(0.01); err != nil {
			t.Fatalf("%s: %v", evaluator, err)
		}
		if k.Steps() != 1 {
			t.Errorf("%s: step not committed", evaluator)
		}
		for b := range k.Bodies() {
			if b.Position != vec.New(1, 1, 1) || b.Velocity != vec.Zero {
				t.Errorf("%s: body %v moved to %v", evaluator, b.ID, b.Position)
			}
		}
	}
}

func TestBarnesHutTracksDirect(t *testing.T) {
	run := func(evaluator string, massScale float64) (Snapshot, float64, float64) {
		k, err := New(Config{G: 1, Softening: 0.05, Evaluator: evaluator, Theta: 0.5, Workers: 4})
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 150; i++ {
			fi := float64(i)
			pos := vec.New(math.Cos(fi*0.7)*(1+fi*0.02), math.Sin(fi*1.3)*(1+fi*0.01), 0.3*math.Cos(fi*2.1))
			vel := vec.New(-0.1*math.Sin(fi), 0.1*math.Cos(fi*0.3), 0)
			mass := massScale * (0.5 + math.Mod(fi*0.37, 1.5))
			if _, err := k.AddBody(body.MustNew(mass, pos, vel)); err != nil {
				t.Fatal(err)
			}
		}
		e0 := k.TotalEnergy()
		if err := k.Run(1e-3, 20); err != nil {
			t.Fatalf("%s: %v", evaluator, err)
		}
		return k.Snapshot(), e0, k.TotalEnergy()
	}

	for _, scale := range []float64{0.01, 2} {
		direct, e0, eDirect := run("direct", scale)
		tree, _, eTree := run("barnes-hut", scale)

		if rel := math.Abs(eTree-eDirect) / math.Abs(e0); rel > 1e-2 {
			t.Errorf("scale %v: energy differs by %e of |E0|", scale, rel)
		}
		var maxDiff float64
		for i := range direct.Bodies {
			maxDiff = math.Max(maxDiff, vec.Norm(vec.Sub(tree.Bodies[i].Position, direct.Bodies[i].Position)))
		}
		if maxDiff > 5e-3 {
			t.Errorf("scale %v: positions differ by up to %e", scale, maxDiff)
		}
	}
}

func TestSetState(t *testing.T) {
	k, _ := New(Config{G: 1})
	id, _ := k.AddBody(body.MustNew(1, vec.Zero, vec.Zero))

	if err := k.SetState(id, vec.New(1, 0, 0), vec.New(0, 1, 0)); err != nil {
		t.Fatal(err)
	}
	if err := k.SetState(id, vec.New(math.NaN(), 0, 0), vec.Zero); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("NaN accepted: %v", err)
	}
	if err := k.SetState(99, vec.Zero, vec.Zero); !errors.Is(err, dynamo.ErrNotFound) {
		t.Errorf("unknown id: %v", err)
	}
	got, _ := k.Body(id)
	if got.Position != vec.New(1, 0, 0) {
		t.Errorf("position = %v", got.Position)
	}
}

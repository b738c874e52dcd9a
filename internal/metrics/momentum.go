package metrics

import (
	"math"

	"github.com/san-kum/kosmos/internal/kosmos"
	"github.com/san-kum/kosmos/internal/vec"
)

// MomentumDrift is the largest change in total momentum since the first
// observation, relative to the total scalar momentum Σ m|v| at that time so
// that systems with zero net momentum still have a meaningful scale.
type MomentumDrift struct {
	name     string
	initial  vec.Vec
	scale    float64
	maxDrift float64
	samples  int
}

func NewMomentumDrift() *MomentumDrift {
	return &MomentumDrift{name: "momentum_drift"}
}

func (m *MomentumDrift) Name() string { return m.name }

func (m *MomentumDrift) Start(k *kosmos.Kosmos) {
	m.Reset()
	m.initial, m.scale = momentumScale(k)
	m.samples = 1
}

func (m *MomentumDrift) Observe(k *kosmos.Kosmos) {
	if m.samples == 0 {
		m.initial, m.scale = momentumScale(k)
	}
	m.samples++

	d := vec.Norm(vec.Sub(k.TotalMomentum(), m.initial))
	if m.scale > 0 {
		d /= m.scale
	}
	m.maxDrift = math.Max(m.maxDrift, d)
}

func (m *MomentumDrift) Value() float64 { return m.maxDrift }

func (m *MomentumDrift) Reset() {
	m.initial = vec.Zero
	m.scale = 0
	m.maxDrift = 0
	m.samples = 0
}

func momentumScale(k *kosmos.Kosmos) (vec.Vec, float64) {
	var scale float64
	for b := range k.Bodies() {
		scale += b.Mass * vec.Norm(b.Velocity)
	}
	return k.TotalMomentum(), scale
}

// CenterOfMassDrift is the largest displacement of the center of mass from
// where uniform motion at the initial momentum would have carried it.
type CenterOfMassDrift struct {
	name     string
	origin   vec.Vec
	velocity vec.Vec
	t0       float64
	maxDrift float64
	samples  int
}

func NewCenterOfMassDrift() *CenterOfMassDrift {
	return &CenterOfMassDrift{name: "com_drift"}
}

func (c *CenterOfMassDrift) Name() string { return c.name }

func (c *CenterOfMassDrift) Start(k *kosmos.Kosmos) {
	c.Reset()
	c.anchor(k)
	c.samples = 1
}

func (c *CenterOfMassDrift) anchor(k *kosmos.Kosmos) {
	c.origin = k.CenterOfMass()
	c.t0 = k.Time()
	if m := k.TotalMass(); m > 0 {
		c.velocity = vec.Scale(1/m, k.TotalMomentum())
	}
}

func (c *CenterOfMassDrift) Observe(k *kosmos.Kosmos) {
	if c.samples == 0 {
		c.anchor(k)
	}
	c.samples++

	want := vec.AddScaled(c.origin, k.Time()-c.t0, c.velocity)
	c.maxDrift = math.Max(c.maxDrift, vec.Norm(vec.Sub(k.CenterOfMass(), want)))
}

func (c *CenterOfMassDrift) Value() float64 { return c.maxDrift }

func (c *CenterOfMassDrift) Reset() {
	c.origin = vec.Zero
	c.velocity = vec.Zero
	c.t0 = 0
	c.maxDrift = 0
	c.samples = 0
}

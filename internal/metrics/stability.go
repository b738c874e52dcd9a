package metrics

import (
	"github.com/san-kum/kosmos/internal/kosmos"
	"github.com/san-kum/kosmos/internal/vec"
)

// Stability is the fraction of observed steps in which every body stayed
// within radius of the center of mass.
type Stability struct {
	name       string
	radius     float64
	violations int
	samples    int
}

func NewStability(radius float64) *Stability {
	return &Stability{
		name:   "stability",
		radius: radius,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(k *kosmos.Kosmos) {
	s.samples++
	com := k.CenterOfMass()
	r2 := s.radius * s.radius
	for b := range k.Bodies() {
		if vec.Norm2(vec.Sub(b.Position, com)) > r2 {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

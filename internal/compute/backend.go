package compute

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/san-kum/kosmos/internal/dynamo"
	"github.com/san-kum/kosmos/internal/vec"
)

const (
	KindDirect    = "direct"
	KindBarnesHut = "barnes-hut"

	// rows below this are not worth a goroutine
	minRowsPerWorker = 16
)

// Field is the input of one force evaluation. Positions and Masses are
// indexed alike and are read-only for the kernel.
type Field struct {
	Positions []vec.Vec
	Masses    []float64
	G         float64
	Softening float64
}

func (f Field) validate(dst []vec.Vec) error {
	if len(f.Positions) != len(f.Masses) || len(dst) != len(f.Masses) {
		return fmt.Errorf("compute: length mismatch (positions %d, masses %d, dst %d)",
			len(f.Positions), len(f.Masses), len(dst))
	}
	return nil
}

// Backend computes the net gravitational acceleration on every body.
type Backend interface {
	Name() string
	Accelerations(dst []vec.Vec, f Field) error
}

// Options select and tune a backend.
type Options struct {
	Kind    string
	Theta   float64
	Workers int
}

// NewBackend resolves a backend by kind. An empty kind selects direct
// summation; Workers <= 0 means runtime.NumCPU().
func NewBackend(opts Options) (Backend, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	switch strings.ToLower(opts.Kind) {
	case "", KindDirect:
		return NewCPUBackend(workers), nil
	case KindBarnesHut, "barneshut", "tree":
		return NewTreeBackend(opts.Theta, workers)
	default:
		return nil, dynamo.Invalid("unknown evaluator %q (want %s or %s)", opts.Kind, KindDirect, KindBarnesHut)
	}
}

func zero(dst []vec.Vec) {
	for i := range dst {
		dst[i] = vec.Zero
	}
}

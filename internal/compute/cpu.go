package compute

import (
	"fmt"
	"math"

	"github.com/san-kum/kosmos/internal/dynamo"
	"github.com/san-kum/kosmos/internal/vec"
)

// CPUBackend sums every pair directly. Row i is accumulated by a single
// worker over j in ascending order, so the floating-point result does not
// depend on the worker count.
type CPUBackend struct {
	workers int
}

func NewCPUBackend(workers int) *CPUBackend {
	if workers < 1 {
		workers = 1
	}
	return &CPUBackend{workers: workers}
}

func (c *CPUBackend) Name() string { return KindDirect }
func (c *CPUBackend) Workers() int { return c.workers }

func (c *CPUBackend) Accelerations(dst []vec.Vec, f Field) error {
	if err := f.validate(dst); err != nil {
		return err
	}

	n := len(f.Masses)
	if n <= 1 {
		zero(dst)
		return nil
	}

	return dynamo.ParallelFor(n, c.workers, minRowsPerWorker, func(start, end int) error {
		return c.rows(dst, f, start, end)
	})
}

func (c *CPUBackend) rows(dst []vec.Vec, f Field, start, end int) error {
	pos := f.Positions
	masses := f.Masses
	n := len(masses)
	eps2 := f.Softening * f.Softening

	for i := start; i < end; i++ {
		xi, yi, zi := pos[i].X, pos[i].Y, pos[i].Z
		var ax, ay, az float64

		for j := 0; j < n; j++ {
			if j == i {
				continue
			}

			rx := pos[j].X - xi
			ry := pos[j].Y - yi
			rz := pos[j].Z - zi
			r2 := rx*rx + ry*ry + rz*rz + eps2
			if r2 == 0 {
				return fmt.Errorf("%w: bodies %d and %d coincide", dynamo.ErrNumericalInstability, i, j)
			}

			rInv := 1.0 / math.Sqrt(r2)
			r3Inv := rInv * rInv * rInv

			s := f.G * masses[j] * r3Inv
			ax += s * rx
			ay += s * ry
			az += s * rz
		}

		dst[i] = vec.Vec{X: ax, Y: ay, Z: az}
	}

	return nil
}

// Package vec provides the 3D vector arithmetic used by every part of the
// simulator. Vec is gonum's r3.Vec; the helpers here fix the project-wide
// policies (zero-vector normalization, finiteness checks) on top of it.
package vec

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

type Vec = r3.Vec

// Zero is the additive identity.
var Zero = Vec{}

func New(x, y, z float64) Vec { return Vec{X: x, Y: y, Z: z} }

func Add(a, b Vec) Vec { return r3.Add(a, b) }

func Sub(a, b Vec) Vec { return r3.Sub(a, b) }

func Scale(f float64, v Vec) Vec { return r3.Scale(f, v) }

func Dot(a, b Vec) float64 { return r3.Dot(a, b) }

func Cross(a, b Vec) Vec { return r3.Cross(a, b) }

func Norm(v Vec) float64 { return r3.Norm(v) }

func Norm2(v Vec) float64 { return r3.Norm2(v) }

// Normalize returns v scaled to unit length. The zero vector normalizes to
// the zero vector rather than NaN.
func Normalize(v Vec) Vec {
	n := r3.Norm(v)
	if n == 0 {
		return Zero
	}
	return r3.Scale(1/n, v)
}

// AddScaled returns a + f*b.
func AddScaled(a Vec, f float64, b Vec) Vec {
	return Vec{X: a.X + f*b.X, Y: a.Y + f*b.Y, Z: a.Z + f*b.Z}
}

// IsFinite reports whether no component is NaN or Inf.
func IsFinite(v Vec) bool {
	return finite(v.X) && finite(v.Y) && finite(v.Z)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Array returns v as a fixed array, the layout used by scenario files.
func Array(v Vec) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

// FromArray is the inverse of Array.
func FromArray(a [3]float64) Vec { return Vec{X: a[0], Y: a[1], Z: a[2]} }

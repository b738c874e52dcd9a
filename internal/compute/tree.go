package compute

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/kosmos/internal/dynamo"
	"github.com/san-kum/kosmos/internal/vec"
)

const (
	DefaultTheta = 0.5

	// maxTreeDepth stops subdivision for bodies closer than the root cell can
	// resolve; whatever is left shares a leaf.
	maxTreeDepth = 48
)

// TreeBackend approximates far-field interactions with a Barnes-Hut
// octree. Theta is the opening angle; zero opens every cell, which gives
// direct summation. Leaves are always summed body by body, so coincident
// bodies are accepted. It needs a positive softening length because
// aggregated cells give no way to detect a zero separation.
type TreeBackend struct {
	theta   float64
	workers int
}

func NewTreeBackend(theta float64, workers int) (*TreeBackend, error) {
	if math.IsNaN(theta) || theta < 0 || theta > 1 {
		return nil, dynamo.Invalid("theta must be in [0, 1], got %g", theta)
	}
	if workers < 1 {
		workers = 1
	}
	return &TreeBackend{theta: theta, workers: workers}, nil
}

func (t *TreeBackend) Name() string   { return KindBarnesHut }
func (t *TreeBackend) Theta() float64 { return t.theta }

func (t *TreeBackend) Accelerations(dst []vec.Vec, f Field) error {
	if err := f.validate(dst); err != nil {
		return err
	}
	if f.Softening <= 0 {
		return dynamo.Invalid("barnes-hut requires a positive softening length")
	}

	n := len(f.Masses)
	if n <= 1 {
		zero(dst)
		return nil
	}

	tree := buildOctree(f.Positions, f.Masses)
	eps2 := f.Softening * f.Softening

	return dynamo.ParallelFor(n, t.workers, minRowsPerWorker, func(start, end int) error {
		for i := start; i < end; i++ {
			dst[i] = r3.Scale(f.G, tree.walk(0, i, t.theta, eps2))
		}
		return nil
	})
}

// octree is rebuilt for every evaluation. Nodes are stored flat and a
// node's bodies are order[start:end].
type octree struct {
	nodes  []octNode
	order  []int
	pos    []r3.Vec
	masses []float64
}

type octNode struct {
	center r3.Vec
	half   float64

	com  r3.Vec
	mass float64

	start, end int
	children   [8]int32
	leaf       bool
}

var noChildren = [8]int32{-1, -1, -1, -1, -1, -1, -1, -1}

func buildOctree(pos []r3.Vec, masses []float64) *octree {
	n := len(pos)
	t := &octree{
		nodes:  make([]octNode, 0, 2*n),
		order:  make([]int, n),
		pos:    pos,
		masses: masses,
	}
	for i := range t.order {
		t.order[i] = i
	}

	lo, hi := pos[0], pos[0]
	for _, p := range pos[1:] {
		lo = r3.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = r3.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	ext := r3.Sub(hi, lo)
	half := 0.5 * math.Max(ext.X, math.Max(ext.Y, ext.Z))

	t.build(0, n, r3.Scale(0.5, r3.Add(lo, hi)), half, 0, make([]int, n))
	return t
}

func (t *octree) build(start, end int, center r3.Vec, half float64, depth int, scratch []int) int32 {
	idx := int32(len(t.nodes))

	var com r3.Vec
	var mass float64
	for _, i := range t.order[start:end] {
		com = r3.Add(com, r3.Scale(t.masses[i], t.pos[i]))
		mass += t.masses[i]
	}
	if mass > 0 {
		com = r3.Scale(1/mass, com)
	} else {
		com = center
	}

	leaf := end-start == 1 || depth == maxTreeDepth || t.coincident(start, end)
	t.nodes = append(t.nodes, octNode{
		center:   center,
		half:     half,
		com:      com,
		mass:     mass,
		start:    start,
		end:      end,
		children: noChildren,
		leaf:     leaf,
	})
	if leaf {
		return idx
	}

	var counts [8]int
	for _, i := range t.order[start:end] {
		counts[octant(t.pos[i], center)]++
	}
	var offsets [8]int
	off := start
	for o := range offsets {
		offsets[o] = off
		off += counts[o]
	}
	fill := offsets
	for _, i := range t.order[start:end] {
		o := octant(t.pos[i], center)
		scratch[fill[o]] = i
		fill[o]++
	}
	copy(t.order[start:end], scratch[start:end])

	q := half / 2
	for o := range counts {
		if counts[o] == 0 {
			continue
		}
		c := t.build(offsets[o], offsets[o]+counts[o], childCenter(center, q, o), q, depth+1, scratch)
		t.nodes[idx].children[o] = c
	}
	return idx
}

func (t *octree) coincident(start, end int) bool {
	first := t.pos[t.order[start]]
	for _, i := range t.order[start+1 : end] {
		if t.pos[i] != first {
			return false
		}
	}
	return true
}

// walk sums the acceleration on body i from the subtree at n, without G.
// A cell is replaced by its center of mass when its side over the distance
// to that center is below theta and body i lies outside it.
func (t *octree) walk(n int32, i int, theta, eps2 float64) r3.Vec {
	node := &t.nodes[n]
	p := t.pos[i]

	if node.leaf {
		var a r3.Vec
		for _, j := range t.order[node.start:node.end] {
			if j == i {
				continue
			}
			a = r3.Add(a, softened(r3.Sub(t.pos[j], p), t.masses[j], eps2))
		}
		return a
	}

	d := r3.Sub(node.com, p)
	if 2*node.half < theta*r3.Norm(d) && !node.contains(p) {
		return softened(d, node.mass, eps2)
	}

	var a r3.Vec
	for _, c := range node.children {
		if c >= 0 {
			a = r3.Add(a, t.walk(c, i, theta, eps2))
		}
	}
	return a
}

func (n *octNode) contains(p r3.Vec) bool {
	return math.Abs(p.X-n.center.X) <= n.half &&
		math.Abs(p.Y-n.center.Y) <= n.half &&
		math.Abs(p.Z-n.center.Z) <= n.half
}

func softened(d r3.Vec, m, eps2 float64) r3.Vec {
	d2 := r3.Norm2(d) + eps2
	return r3.Scale(m/(d2*math.Sqrt(d2)), d)
}

func octant(p, center r3.Vec) int {
	o := 0
	if p.X >= center.X {
		o |= 1
	}
	if p.Y >= center.Y {
		o |= 2
	}
	if p.Z >= center.Z {
		o |= 4
	}
	return o
}

func childCenter(center r3.Vec, q float64, o int) r3.Vec {
	c := center
	c.X += sign(o&1 != 0) * q
	c.Y += sign(o&2 != 0) * q
	c.Z += sign(o&4 != 0) * q
	return c
}

func sign(upper bool) float64 {
	if upper {
		return 1
	}
	return -1
}

// Package physics evaluates Newtonian gravity for a set of point masses.
//
// [NBody] is the force evaluator behind a Kosmos: given positions and
// masses it produces the net acceleration on every body,
//
//	a_i = Σ_{j≠i} G m_j (x_j − x_i) / (|x_j − x_i|² + ε²)^{3/2}
//
// using either direct summation or a Barnes-Hut tree, selected by
// [Options.Evaluator]. The same softening length ε enters the potential
// energy, so [NBody.Energy] is the conserved quantity of the softened
// system.
//
// # Energy Conservation
//
// Monitor drift with the diagnostics:
//
//	nb, _ := physics.NewNBody(physics.Options{G: 1, Softening: 0.01})
//	e0 := nb.Energy(pos, vel, masses)
package physics

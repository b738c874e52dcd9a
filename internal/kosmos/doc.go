// Package kosmos is the simulation container: it owns a set of bodies and
// the simulation clock, and advances them with evaluate→integrate cycles.
//
//	k, _ := kosmos.New(kosmos.Config{G: 1, Softening: 0.01})
//	id, _ := k.AddBody(body.MustNew(1, vec.New(0.5, 0, 0), vec.New(0, 0.7, 0)))
//	err := k.Run(1e-3, 1000)
//	e := k.TotalEnergy()
//
// # Ordering
//
// Bodies are kept in insertion order. Force sums, diagnostics and
// [Kosmos.Bodies] all follow that order, so a run is bit-for-bit
// reproducible given the same insertions, configuration and timesteps,
// independent of the number of force workers.
//
// # Atomic Steps
//
// A step is computed on a scratch copy of the system and committed only
// when every force evaluation succeeded and the result is finite. A failed
// step leaves time and all bodies exactly as they were.
//
// # Thread Safety
//
// A Kosmos is NOT safe for concurrent use. Callers sharing one across
// goroutines must serialize access. Separate instances share nothing.
package kosmos

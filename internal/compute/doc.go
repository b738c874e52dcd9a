// Package compute provides the force-summation kernels behind the N-body
// evaluator:
//
//   - CPU: direct O(N²) summation, rows partitioned across workers
//   - Tree: Barnes-Hut octree approximation, O(N log N)
//
// Both write one acceleration per body and never share partial sums between
// workers, so results are identical for any worker count:
//
//	backend := compute.NewCPUBackend(runtime.NumCPU())
//	err := backend.Accelerations(acc, compute.Field{Positions: pos, Masses: m, G: 1})
package compute

// Package dynamo holds the primitives shared by every layer of the
// simulator: the error taxonomy and the deterministic parallel loop used by
// the force evaluators.
//
//   - [ErrInvalidParameter]: rejected construction or step arguments
//   - [ErrNotFound]: unknown body id
//   - [ErrNumericalInstability]: a singular force evaluation
//   - [StepError]: wraps a failed step with its position in the run
//   - [ParallelFor]: fixed-chunk fan-out whose results do not depend on
//     scheduling order
//
// # Thread Safety
//
// Nothing in this package holds shared mutable state. A Kosmos is NOT
// thread-safe; callers that share one must serialize access themselves.
package dynamo

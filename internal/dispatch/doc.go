// Package dispatch implements a bounded, single-worker async relay used for
// audit events and queued mail delivery.
//
// # Semantics
//
//   - DropIfFull=true: Emit never blocks; overflow is counted in Dropped.
//   - DropIfFull=false: Emit blocks until the item is queued, the caller's
//     context is done, or the dispatcher is closed.
//   - Close stops intake and drains every queued item before returning.
//
// # What this package must NOT do
//
//   - Decide what to emit; callers own that.
//   - Import authcore or any sibling internal package.
package dispatch

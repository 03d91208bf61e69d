// Package rate implements the login attempt tracker: a per-key fixed-window
// counter with a pluggable ledger store.
//
// # Window semantics
//
// A key is blocked once it has MaxAttempts recorded attempts and the last one
// is younger than Window. Blocked attempts are not counted. When Window has
// elapsed since the last attempt the entry is cleared and the next attempt
// counts as the first; there is no gradual decay.
//
// # Stores
//
//   - MemoryStore - process-local map; limits fragment across instances.
//   - RedisStore - shared hash per key under the abl: prefix with a TTL equal
//     to the sweep age, so Redis expiry replaces the sweep.
//
// # What this package must NOT do
//
//   - Resolve accounts or decide exemptions; the engine does that.
//   - Be imported outside the authcore module.
package rate

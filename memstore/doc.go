// Package memstore provides a process-local authcore.AccountStore.
//
// It backs examples/http-minimal and the transport tests. Every operation
// holds one mutex, so RotateRefreshToken and IncrementResetAttempts are
// atomic exactly as the PostgreSQL repository is. Returned accounts are
// copies; mutating them never changes stored state.
package memstore

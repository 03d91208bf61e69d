package authcore

import (
	"context"

	"github.com/Br3achBl0ckers/authcore/internal/dispatch"
)

type auditDispatcher = dispatch.Dispatcher[AuditEvent]

// newAuditDispatcher returns nil when auditing is disabled; every method of
// the returned dispatcher is nil-safe.
func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	return dispatch.New(dispatch.Config{
		BufferSize: cfg.BufferSize,
		DropIfFull: cfg.DropIfFull,
	}, func(ctx context.Context, event AuditEvent) {
		sink.Emit(ctx, event)
	})
}

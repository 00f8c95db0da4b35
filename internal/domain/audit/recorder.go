// Package audit defines the change-trail contract used by domain services.
// The PostgreSQL implementation compresses entity snapshots and stores them
// in sys_audit_log.
package audit

import (
	"context"

	"clinika/internal/core/id"
)

// Action describes what happened to the entity.
type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionDeleted   Action = "deleted"
	ActionFinalized Action = "finalized"
	ActionAdjusted  Action = "adjusted"
)

// Recorder stores entity change snapshots. Implementations must be
// best-effort: audit failures are logged, never propagated to the caller.
type Recorder interface {
	Record(ctx context.Context, entityType string, entityID id.ID, action Action, snapshot any)
}

// Nop discards all records. Used in tests and when auditing is disabled.
type Nop struct{}

func (Nop) Record(ctx context.Context, entityType string, entityID id.ID, action Action, snapshot any) {
}

// Package entity provides core domain entities.
package entity

import (
	"context"
	"time"

	"clinika/internal/core/id"
)

// Validatable is implemented by entities that support self-validation.
// Validation checks internal invariants (without database access).
type Validatable interface {
	// Validate checks entity invariants.
	// Returns nil if valid, AppError with details otherwise.
	Validate(ctx context.Context) error
}

// BaseEntity contains common fields for all persisted entities.
// Rows are never hard-deleted; removal sets DeletedAt.
type BaseEntity struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// CreatedAt / UpdatedAt audit timestamps
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	// DeletedAt marks soft-deleted rows (nil = live)
	DeletedAt *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
}

// NewBaseEntity creates a new BaseEntity with generated ID and timestamps.
func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{
		ID:        id.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates the UpdatedAt timestamp.
func (b *BaseEntity) Touch() {
	b.UpdatedAt = time.Now().UTC()
}

// MarkDeleted sets the soft-delete timestamp.
func (b *BaseEntity) MarkDeleted() {
	now := time.Now().UTC()
	b.DeletedAt = &now
	b.Touch()
}

// IsDeleted reports whether the entity is soft-deleted.
func (b *BaseEntity) IsDeleted() bool {
	return b.DeletedAt != nil
}

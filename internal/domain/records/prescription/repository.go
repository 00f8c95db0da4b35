package prescription

import (
	"context"

	"clinika/internal/core/id"
)

// ListFilter narrows line listings.
type ListFilter struct {
	MedicalRecordID *id.ID
	DrugID          *id.ID
	IncludeDeleted  bool

	Limit  int
	Offset int
}

// Repository persists prescription lines.
type Repository interface {
	Create(ctx context.Context, l *Line) error

	// GetByID loads a line, soft-deleted ones included.
	GetByID(ctx context.Context, lineID id.ID) (*Line, error)

	Update(ctx context.Context, l *Line) error

	SoftDelete(ctx context.Context, lineID id.ID) error

	List(ctx context.Context, filter ListFilter) ([]*Line, error)
}

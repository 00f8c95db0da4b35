package drug

import (
	"context"

	"clinika/internal/core/id"
)

// ListFilter narrows drug listings.
type ListFilter struct {
	// Search matches against name (ILIKE)
	Search string

	// ActiveOnly excludes inactive drugs
	ActiveOnly bool

	// IncludeDeleted includes soft-deleted rows
	IncludeDeleted bool

	Limit  int
	Offset int
}

// Repository defines persistence operations for the drug catalog.
type Repository interface {
	Create(ctx context.Context, d *Drug) error

	GetByID(ctx context.Context, drugID id.ID) (*Drug, error)

	GetByName(ctx context.Context, name string) (*Drug, error)

	Update(ctx context.Context, d *Drug) error

	// SoftDelete sets deleted_at; rows are never physically removed
	SoftDelete(ctx context.Context, drugID id.ID) error

	List(ctx context.Context, filter ListFilter) ([]*Drug, error)
}

package purchase

import (
	"context"

	"clinika/internal/core/id"
)

// ListFilter narrows order listings.
type ListFilter struct {
	Status *Status
	Search string

	Limit  int
	Offset int
}

// Repository persists purchase orders and their lines.
type Repository interface {
	// Create stores the order header and its lines.
	Create(ctx context.Context, o *Order) error

	// GetByID loads an order with lines. Soft-deleted lines are included
	// so edit history stays visible; callers filter by DeletedAt.
	GetByID(ctx context.Context, orderID id.ID) (*Order, error)

	// Update stores the header (status, totals, timestamps).
	Update(ctx context.Context, o *Order) error

	// ReplaceLines rewrites the order's line set.
	ReplaceLines(ctx context.Context, orderID id.ID, lines []Line) error

	// List returns order headers without lines.
	List(ctx context.Context, filter ListFilter) ([]*Order, error)
}

// Package projection provides the derived stock read view: total quantity
// and nearest expiry per drug, recomputed from the batch store on every
// read. No side effects, no caching.
package projection

import (
	"context"
	"time"

	"clinika/internal/core/apperror"
	"clinika/internal/core/id"
	"clinika/internal/core/types"
	"clinika/internal/domain/inventory/batch"
)

// Summary is the per-drug stock aggregate.
type Summary struct {
	DrugID     id.ID          `db:"drug_id" json:"drugId"`
	TotalQty   types.Quantity `db:"total_qty" json:"totalQty"`
	NearestExp *time.Time     `db:"nearest_exp" json:"nearestExp,omitempty"`
}

// ListFilter narrows summary listings.
type ListFilter struct {
	// DrugIDs restricts to specific drugs
	DrugIDs []id.ID

	// BelowMinStock returns only drugs whose total is under their
	// minimum-stock threshold (low-stock report)
	BelowMinStock bool

	Limit  int
	Offset int
}

// Repository computes summaries from the batch store.
type Repository interface {
	// SummaryByDrug aggregates one drug's non-deleted batches.
	SummaryByDrug(ctx context.Context, drugID id.ID) (Summary, error)

	// ListSummaries aggregates across drugs.
	ListSummaries(ctx context.Context, filter ListFilter) ([]Summary, error)
}

// Service exposes the stock projection.
type Service struct {
	repo Repository
}

// NewService creates a projection service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ByDrug returns the stock summary for one drug.
func (s *Service) ByDrug(ctx context.Context, drugID id.ID) (Summary, error) {
	return s.repo.SummaryByDrug(ctx, drugID)
}

// List returns stock summaries.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Summary, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	return s.repo.ListSummaries(ctx, filter)
}

// EnsureAvailable reports whether qty units of a drug are on hand.
// Consumers outside the engine use it for availability display; the
// consumption paths themselves never fail closed on a shortfall.
func (s *Service) EnsureAvailable(ctx context.Context, drugID id.ID, qty types.Quantity) error {
	summary, err := s.repo.SummaryByDrug(ctx, drugID)
	if err != nil {
		return err
	}
	if summary.TotalQty < qty {
		return apperror.NewInsufficientStock(drugID.String(), qty.Int64(), summary.TotalQty.Int64())
	}
	return nil
}

// Summarize computes a summary from batches in process. The SQL repository
// does the same aggregation server-side; this keeps the rule testable and
// available to callers that already hold the batches.
func Summarize(drugID id.ID, batches []*batch.Batch) Summary {
	s := Summary{DrugID: drugID}
	for _, b := range batches {
		if b.IsDeleted() {
			continue
		}
		s.TotalQty += b.Quantity
		if b.Quantity.IsPositive() && b.ExpiresAt != nil {
			if s.NearestExp == nil || b.ExpiresAt.Before(*s.NearestExp) {
				s.NearestExp = b.ExpiresAt
			}
		}
	}
	return s
}

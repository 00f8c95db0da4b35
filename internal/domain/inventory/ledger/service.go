package ledger

import (
	"context"
	"fmt"

	"clinika/internal/core/apperror"
	"clinika/internal/core/id"
	"clinika/pkg/logger"
)

// Service provides operations on the movement ledger.
// Writes happen inside the stock mutation engine's transaction; reads serve
// the audit/history API.
type Service struct {
	repo Repository
}

// NewService creates a new ledger service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Append validates and records movements.
func (s *Service) Append(ctx context.Context, movements []Movement) error {
	if len(movements) == 0 {
		return nil
	}

	for i, m := range movements {
		if !m.Quantity.IsPositive() {
			return apperror.NewValidation(fmt.Sprintf("movement %d: quantity must be positive", i))
		}
		if id.IsNil(m.DrugID) {
			return apperror.NewValidation(fmt.Sprintf("movement %d: drug_id is required", i))
		}
		if id.IsNil(m.BatchID) {
			return apperror.NewValidation(fmt.Sprintf("movement %d: batch_id is required", i))
		}
	}

	if err := s.repo.Append(ctx, movements); err != nil {
		return fmt.Errorf("append movements: %w", err)
	}

	logger.Debug(ctx, "recorded stock movements",
		"count", len(movements),
		"drug_id", movements[0].DrugID,
	)

	return nil
}

// History returns movement history for a drug.
func (s *Service) History(ctx context.Context, drugID id.ID, filter HistoryFilter) ([]Movement, error) {
	if filter.Order == "" {
		filter.Order = SortDesc
	}
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	return s.repo.ListByDrug(ctx, drugID, filter)
}

// TotalsByDrug sums ledger quantities for a drug.
func (s *Service) TotalsByDrug(ctx context.Context, drugID id.ID) (Totals, error) {
	return s.repo.TotalsByDrug(ctx, drugID)
}

package drug

import (
	"context"
	"fmt"

	"clinika/internal/core/apperror"
	"clinika/internal/core/id"
	"clinika/internal/core/tx"
	"clinika/internal/domain/audit"
	"clinika/pkg/logger"
)

// Service provides business operations for the drug catalog.
type Service struct {
	repo      Repository
	txManager tx.Manager
	audit     audit.Recorder
}

// NewService creates a new drug catalog service.
func NewService(repo Repository, txManager tx.Manager, auditRec audit.Recorder) *Service {
	if auditRec == nil {
		auditRec = audit.Nop{}
	}
	return &Service{
		repo:      repo,
		txManager: txManager,
		audit:     auditRec,
	}
}

// Create adds a new drug to the catalog.
func (s *Service) Create(ctx context.Context, d *Drug) error {
	if err := d.Validate(ctx); err != nil {
		return err
	}

	if existing, err := s.repo.GetByName(ctx, d.Name); err == nil && existing != nil {
		return apperror.NewDuplicate("drug", "name", d.Name)
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, d)
	})
	if err != nil {
		return fmt.Errorf("create drug: %w", err)
	}

	s.audit.Record(ctx, "drug", d.ID, audit.ActionCreated, d)
	logger.Info(ctx, "drug created", "id", d.ID, "name", d.Name)
	return nil
}

// GetByID retrieves a drug.
func (s *Service) GetByID(ctx context.Context, drugID id.ID) (*Drug, error) {
	return s.repo.GetByID(ctx, drugID)
}

// Update modifies a drug's master data.
func (s *Service) Update(ctx context.Context, d *Drug) error {
	if err := d.Validate(ctx); err != nil {
		return err
	}

	if existing, err := s.repo.GetByName(ctx, d.Name); err == nil && existing != nil && existing.ID != d.ID {
		return apperror.NewDuplicate("drug", "name", d.Name)
	}

	d.Touch()
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, d)
	})
	if err != nil {
		return fmt.Errorf("update drug: %w", err)
	}

	s.audit.Record(ctx, "drug", d.ID, audit.ActionUpdated, d)
	return nil
}

// Delete soft-deletes a drug. Batches and movements referencing it are kept.
func (s *Service) Delete(ctx context.Context, drugID id.ID) error {
	d, err := s.repo.GetByID(ctx, drugID)
	if err != nil {
		return err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.SoftDelete(ctx, drugID)
	})
	if err != nil {
		return fmt.Errorf("delete drug: %w", err)
	}

	s.audit.Record(ctx, "drug", d.ID, audit.ActionDeleted, d)
	logger.Info(ctx, "drug deleted", "id", drugID, "name", d.Name)
	return nil
}

// List retrieves drugs with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Drug, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}

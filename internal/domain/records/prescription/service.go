package prescription

import (
	"context"

	"clinika/internal/core/apperror"
	"clinika/internal/core/id"
	"clinika/internal/core/tx"
	"clinika/internal/core/types"
	"clinika/internal/domain/audit"
	"clinika/internal/domain/inventory/projection"
	"clinika/pkg/logger"
)

// Dispenser applies inventory effects for prescription line changes.
// Satisfied by the stock mutation engine.
type Dispenser interface {
	ConsumePrescription(ctx context.Context, recordID, drugID id.ID, qty types.Quantity) error
	AdjustPrescription(ctx context.Context, recordID, drugID id.ID, oldQty, newQty types.Quantity) error
	RevertPrescription(ctx context.Context, recordID, drugID id.ID, qty types.Quantity) error
}

// Service keeps prescription lines and inventory in lockstep: every
// line write and its stock effect commit in one transaction.
type Service struct {
	repo       Repository
	dispenser  Dispenser
	projection *projection.Service
	txManager  tx.Manager
	audit      audit.Recorder
}

// NewService creates a prescription line service.
func NewService(repo Repository, dispenser Dispenser, proj *projection.Service, txManager tx.Manager, auditRec audit.Recorder) *Service {
	if auditRec == nil {
		auditRec = audit.Nop{}
	}
	return &Service{
		repo:       repo,
		dispenser:  dispenser,
		projection: proj,
		txManager:  txManager,
		audit:      auditRec,
	}
}

// Create records a line and dispenses its quantity. A shortfall does
// not block the record; it is logged and the engine allocates what
// exists.
func (s *Service) Create(ctx context.Context, l *Line) (*Line, error) {
	if err := l.Validate(ctx); err != nil {
		return nil, err
	}

	s.warnIfUnavailable(ctx, l.DrugID, l.Quantity)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, l); err != nil {
			return err
		}
		if err := s.dispenser.ConsumePrescription(ctx, l.MedicalRecordID, l.DrugID, l.Quantity); err != nil {
			return err
		}
		s.audit.Record(ctx, "prescription_line", l.ID, audit.ActionCreated, l)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "prescription line created",
		"line_id", l.ID.String(),
		"medical_record_id", l.MedicalRecordID.String(),
		"drug_id", l.DrugID.String(),
		"quantity", l.Quantity.Int64(),
	)

	return l, nil
}

// GetByID loads a line.
func (s *Service) GetByID(ctx context.Context, lineID id.ID) (*Line, error) {
	return s.repo.GetByID(ctx, lineID)
}

// UpdateQuantity edits a line's quantity and note, applying only the
// stock delta. Changing the drug is not an edit; record a delete and a
// new line instead.
func (s *Service) UpdateQuantity(ctx context.Context, lineID id.ID, qty types.Quantity, note string) (*Line, error) {
	if !qty.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity")
	}

	var result *Line

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		l, err := s.repo.GetByID(ctx, lineID)
		if err != nil {
			return err
		}
		if l.IsDeleted() {
			return apperror.NewNotFound("prescription line", lineID.String())
		}

		oldQty := l.Quantity
		if qty > oldQty {
			s.warnIfUnavailable(ctx, l.DrugID, qty-oldQty)
		}

		l.Quantity = qty
		l.Note = note
		l.Touch()

		if err := s.repo.Update(ctx, l); err != nil {
			return err
		}
		if err := s.dispenser.AdjustPrescription(ctx, l.MedicalRecordID, l.DrugID, oldQty, qty); err != nil {
			return err
		}

		s.audit.Record(ctx, "prescription_line", l.ID, audit.ActionAdjusted, l)
		result = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "prescription line adjusted",
		"line_id", result.ID.String(),
		"quantity", result.Quantity.Int64(),
	)

	return result, nil
}

// Delete soft-deletes a line and returns its dispensed quantity to
// stock. Deleting twice is a no-op on inventory.
func (s *Service) Delete(ctx context.Context, lineID id.ID) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		l, err := s.repo.GetByID(ctx, lineID)
		if err != nil {
			return err
		}
		if l.IsDeleted() {
			return nil
		}

		if err := s.repo.SoftDelete(ctx, lineID); err != nil {
			return err
		}
		if err := s.dispenser.RevertPrescription(ctx, l.MedicalRecordID, l.DrugID, l.Quantity); err != nil {
			return err
		}

		s.audit.Record(ctx, "prescription_line", l.ID, audit.ActionDeleted, l)
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "prescription line deleted", "line_id", lineID.String())
	return nil
}

// List returns lines.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Line, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

// warnIfUnavailable surfaces a shortfall in the log without blocking
// the medical workflow.
func (s *Service) warnIfUnavailable(ctx context.Context, drugID id.ID, qty types.Quantity) {
	if s.projection == nil {
		return
	}
	if err := s.projection.EnsureAvailable(ctx, drugID, qty); err != nil {
		logger.Warn(ctx, "dispensing beyond recorded stock",
			"drug_id", drugID.String(),
			"requested", qty.Int64(),
			"error", err.Error(),
		)
	}
}

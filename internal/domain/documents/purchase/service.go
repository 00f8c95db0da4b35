package purchase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"clinika/internal/core/apperror"
	"clinika/internal/core/id"
	"clinika/internal/core/tx"
	"clinika/internal/domain/audit"
	"clinika/internal/domain/inventory/engine"
	"clinika/pkg/logger"
	"clinika/pkg/lotcode"
)

// Receiver credits inventory for a finalized order. Satisfied by the
// stock mutation engine.
type Receiver interface {
	ReceivePurchase(ctx context.Context, orderID id.ID, lines []engine.ReceiptLine) error
}

// Service manages the purchase order lifecycle.
type Service struct {
	repo      Repository
	receiver  Receiver
	lots      lotcode.Generator
	txManager tx.Manager
	audit     audit.Recorder
}

// NewService creates a purchase order service.
func NewService(repo Repository, receiver Receiver, lots lotcode.Generator, txManager tx.Manager, auditRec audit.Recorder) *Service {
	if auditRec == nil {
		auditRec = audit.Nop{}
	}
	return &Service{
		repo:      repo,
		receiver:  receiver,
		lots:      lots,
		txManager: txManager,
		audit:     auditRec,
	}
}

// Create records a draft order. Lines without a lot code get one
// synthesized; lines that already carry a code keep it unchanged, so
// re-submitting the same payload does not mint fresh codes.
func (s *Service) Create(ctx context.Context, o *Order) (*Order, error) {
	if err := o.Validate(ctx); err != nil {
		return nil, err
	}

	if o.Number == "" {
		o.Number = s.nextNumber(o)
	}
	s.fillLotCodes(o)
	o.recalculateTotal()

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, o); err != nil {
			return err
		}
		s.audit.Record(ctx, "purchase_order", o.ID, audit.ActionCreated, o)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase order created",
		"order_id", o.ID.String(),
		"number", o.Number,
		"lines", len(o.Lines),
	)

	return o, nil
}

// GetByID loads an order with its lines.
func (s *Service) GetByID(ctx context.Context, orderID id.ID) (*Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

// Update rewrites a draft order's header and lines. Finalized orders
// are immutable.
func (s *Service) Update(ctx context.Context, o *Order) (*Order, error) {
	existing, err := s.repo.GetByID(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	if err := existing.CanModify(); err != nil {
		return nil, err
	}

	if err := o.Validate(ctx); err != nil {
		return nil, err
	}

	o.Status = StatusDraft
	o.Number = existing.Number
	s.fillLotCodes(o)
	o.recalculateTotal()
	o.Touch()

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, o); err != nil {
			return err
		}
		if err := s.repo.ReplaceLines(ctx, o.ID, o.Lines); err != nil {
			return err
		}
		s.audit.Record(ctx, "purchase_order", o.ID, audit.ActionUpdated, o)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return o, nil
}

// Finalize performs the single draft→finalized transition and credits
// stock for every live line. A finalized order cannot be finalized
// again; the movements it produced are never duplicated.
func (s *Service) Finalize(ctx context.Context, orderID id.ID) (*Order, error) {
	var result *Order

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetByID(ctx, orderID)
		if err != nil {
			return err
		}

		if o.IsFinalized() {
			return apperror.NewBusinessRule(
				apperror.CodeOrderFinalized,
				"Purchase order is already finalized.",
			).WithDetail("order_id", orderID.String())
		}
		if err := o.Validate(ctx); err != nil {
			return err
		}

		o.MarkFinalized()
		if err := s.repo.Update(ctx, o); err != nil {
			return err
		}

		if err := s.receiver.ReceivePurchase(ctx, o.ID, receiptLines(o)); err != nil {
			return err
		}

		s.audit.Record(ctx, "purchase_order", o.ID, audit.ActionFinalized, o)
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase order finalized",
		"order_id", result.ID.String(),
		"number", result.Number,
	)

	return result, nil
}

// List returns order headers.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Order, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}

// fillLotCodes synthesizes codes for lines that arrived without one.
func (s *Service) fillLotCodes(o *Order) {
	now := time.Now().UTC()
	for i := range o.Lines {
		if o.Lines[i].DeletedAt != nil {
			continue
		}
		if strings.TrimSpace(o.Lines[i].LotCode) == "" {
			o.Lines[i].LotCode = s.lots.Next(lotcode.PrefixPurchase, o.Lines[i].DrugID, now)
		}
	}
}

// nextNumber derives a document number from the order id, which is
// time-ordered, so numbers sort roughly by creation time.
func (s *Service) nextNumber(o *Order) string {
	frag := strings.ToUpper(strings.ReplaceAll(o.ID.String(), "-", "")[:8])
	return fmt.Sprintf("PO-%s-%s", o.CreatedAt.UTC().Format("20060102"), frag)
}

func receiptLines(o *Order) []engine.ReceiptLine {
	lines := make([]engine.ReceiptLine, 0, len(o.Lines))
	for _, line := range o.Lines {
		if line.DeletedAt != nil {
			continue
		}
		lines = append(lines, engine.ReceiptLine{
			DrugID:    line.DrugID,
			LotCode:   line.LotCode,
			Quantity:  line.Quantity,
			ExpiresAt: line.ExpiresAt,
		})
	}
	return lines
}

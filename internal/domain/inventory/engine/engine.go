// Package engine implements the stock mutation engine: the single writer
// for the batch store and movement ledger. It reacts to purchase receipts,
// prescription writes and manual adjustments, each applied in one atomic
// transaction.
package engine

import (
	"context"
	"fmt"
	"time"

	"clinika/internal/core/apperror"
	"clinika/internal/core/id"
	"clinika/internal/core/tx"
	"clinika/internal/core/types"
	"clinika/internal/domain/inventory/batch"
	"clinika/internal/domain/inventory/fefo"
	"clinika/internal/domain/inventory/ledger"
	"clinika/pkg/logger"
	"clinika/pkg/lotcode"
)

// Engine orchestrates batch and ledger writes.
type Engine struct {
	batches   batch.Repository
	ledger    *ledger.Service
	lots      lotcode.Generator
	txManager tx.Manager
}

// New creates a stock mutation engine.
func New(batches batch.Repository, ledgerSvc *ledger.Service, lots lotcode.Generator, txManager tx.Manager) *Engine {
	return &Engine{
		batches:   batches,
		ledger:    ledgerSvc,
		lots:      lots,
		txManager: txManager,
	}
}

// ReceiptLine is one purchase line credited on finalization.
type ReceiptLine struct {
	DrugID    id.ID
	LotCode   string
	Quantity  types.Quantity
	ExpiresAt *time.Time
}

// ReceivePurchase credits stock for a finalized purchase order. Batches are
// resolved or created by (drug, lot code); the expiry date is backfilled
// only onto batches that have none. One IN movement per line.
func (e *Engine) ReceivePurchase(ctx context.Context, orderID id.ID, lines []ReceiptLine) error {
	return e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var movements []ledger.Movement

		for i, line := range lines {
			if !line.Quantity.IsPositive() {
				continue
			}
			if line.LotCode == "" {
				return apperror.NewValidation(fmt.Sprintf("line %d: lot code is required", i))
			}

			b, err := e.resolveOrCreateByLot(ctx, line.DrugID, line.LotCode, line.ExpiresAt)
			if err != nil {
				return err
			}

			if !b.HasExpiry() && line.ExpiresAt != nil {
				if err := e.batches.SetExpiry(ctx, b.ID, *line.ExpiresAt); err != nil {
					return fmt.Errorf("set expiry on batch %s: %w", b.ID, err)
				}
			}

			if err := e.batches.UpdateQuantity(ctx, b.ID, b.Quantity+line.Quantity); err != nil {
				return fmt.Errorf("credit batch %s: %w", b.ID, err)
			}

			movements = append(movements, ledger.NewMovement(
				line.DrugID, b.ID, ledger.DirectionIn, ledger.SourcePurchase, &orderID, line.Quantity,
			))
		}

		if err := e.ledger.Append(ctx, movements); err != nil {
			return err
		}

		logger.Info(ctx, "purchase received",
			"order_id", orderID,
			"lines", len(movements),
		)
		return nil
	})
}

// ConsumePrescription debits stock for a newly recorded prescription line.
// Batches are consumed in FEFO order; one OUT movement per touched batch.
func (e *Engine) ConsumePrescription(ctx context.Context, recordID, drugID id.ID, qty types.Quantity) error {
	if !qty.IsPositive() {
		return nil
	}
	return e.consume(ctx, drugID, qty, ledger.SourcePrescription, &recordID)
}

// AdjustPrescription reconciles stock after a prescription line's quantity
// changed. A positive delta is an additional FEFO consumption; a negative
// delta is returned into the single soonest-expiring batch.
func (e *Engine) AdjustPrescription(ctx context.Context, recordID, drugID id.ID, oldQty, newQty types.Quantity) error {
	delta := newQty - oldQty
	switch {
	case delta.IsPositive():
		return e.consume(ctx, drugID, delta, ledger.SourcePrescriptionAdjust, &recordID)
	case delta.IsNegative():
		return e.deposit(ctx, drugID, delta.Abs(), ledger.SourcePrescriptionAdjust, &recordID)
	default:
		return nil
	}
}

// RevertPrescription returns the full quantity of a deleted prescription
// line into the soonest-expiring batch.
func (e *Engine) RevertPrescription(ctx context.Context, recordID, drugID id.ID, qty types.Quantity) error {
	if !qty.IsPositive() {
		return nil
	}
	return e.deposit(ctx, drugID, qty, ledger.SourcePrescription, &recordID)
}

// ManualAdjustment is an explicit stock correction request.
type ManualAdjustment struct {
	DrugID    id.ID
	Direction ledger.Direction
	Quantity  types.Quantity
	LotCode   string
	ExpiresAt *time.Time
}

// ManualAdjust applies a manual stock correction.
//
// IN resolves the target batch by lot code, then by soonest expiry, then
// creates an ADJ- batch. OUT requires an existing batch and clamps the
// decrement at zero; the ledger records the clamped amount actually removed.
func (e *Engine) ManualAdjust(ctx context.Context, adj ManualAdjustment) error {
	if !adj.Quantity.IsPositive() {
		logger.Debug(ctx, "manual adjustment ignored: non-positive quantity",
			"drug_id", adj.DrugID,
			"quantity", adj.Quantity,
		)
		return nil
	}

	switch adj.Direction {
	case ledger.DirectionIn:
		return e.manualIn(ctx, adj)
	case ledger.DirectionOut:
		return e.manualOut(ctx, adj)
	default:
		return apperror.NewValidation("direction must be 'in' or 'out'").
			WithDetail("direction", string(adj.Direction))
	}
}

func (e *Engine) manualIn(ctx context.Context, adj ManualAdjustment) error {
	return e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var b *batch.Batch
		var err error

		if adj.LotCode != "" {
			b, err = e.resolveOrCreateByLot(ctx, adj.DrugID, adj.LotCode, adj.ExpiresAt)
			if err != nil {
				return err
			}
			// Expiry backfill happens only on the lot-code path.
			if !b.HasExpiry() && adj.ExpiresAt != nil {
				if err := e.batches.SetExpiry(ctx, b.ID, *adj.ExpiresAt); err != nil {
					return fmt.Errorf("set expiry on batch %s: %w", b.ID, err)
				}
			}
		} else {
			b, err = e.earliestBatch(ctx, adj.DrugID)
			if err != nil {
				return err
			}
			if b == nil {
				code := e.lots.Next(lotcode.PrefixAdjustment, adj.DrugID, time.Now())
				b = batch.New(adj.DrugID, code, 0, adj.ExpiresAt)
				if err := e.batches.Create(ctx, b); err != nil {
					return fmt.Errorf("create adjustment batch: %w", err)
				}
			}
		}

		if err := e.batches.UpdateQuantity(ctx, b.ID, b.Quantity+adj.Quantity); err != nil {
			return fmt.Errorf("credit batch %s: %w", b.ID, err)
		}

		m := ledger.NewMovement(adj.DrugID, b.ID, ledger.DirectionIn, ledger.SourceAdjustment, nil, adj.Quantity)
		if err := e.ledger.Append(ctx, []ledger.Movement{m}); err != nil {
			return err
		}

		logger.Info(ctx, "manual stock adjustment applied",
			"drug_id", adj.DrugID,
			"batch_id", b.ID,
			"direction", "in",
			"quantity", adj.Quantity,
		)
		return nil
	})
}

func (e *Engine) manualOut(ctx context.Context, adj ManualAdjustment) error {
	return e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var b *batch.Batch
		var err error

		if adj.LotCode != "" {
			b, err = e.batches.GetByDrugAndLotCode(ctx, adj.DrugID, adj.LotCode)
			if err != nil {
				if apperror.IsNotFound(err) {
					return apperror.NewNoBatchAvailable(adj.DrugID.String()).
						WithDetail("lot_code", adj.LotCode)
				}
				return err
			}
		} else {
			b, err = e.earliestBatch(ctx, adj.DrugID)
			if err != nil {
				return err
			}
			if b == nil {
				return apperror.NewNoBatchAvailable(adj.DrugID.String())
			}
		}

		// Clamp at zero: a single manual action never drives on-hand stock
		// negative. The ledger records the clamped amount, not the request.
		removed := b.Quantity.Min(adj.Quantity)
		if !removed.IsPositive() {
			logger.Warn(ctx, "manual OUT against empty batch, nothing removed",
				"drug_id", adj.DrugID,
				"batch_id", b.ID,
				"requested", adj.Quantity,
			)
			return nil
		}

		if err := e.batches.UpdateQuantity(ctx, b.ID, b.Quantity-removed); err != nil {
			return fmt.Errorf("debit batch %s: %w", b.ID, err)
		}

		m := ledger.NewMovement(adj.DrugID, b.ID, ledger.DirectionOut, ledger.SourceAdjustment, nil, removed)
		if err := e.ledger.Append(ctx, []ledger.Movement{m}); err != nil {
			return err
		}

		if removed < adj.Quantity {
			logger.Warn(ctx, "manual OUT clamped to available quantity",
				"drug_id", adj.DrugID,
				"batch_id", b.ID,
				"requested", adj.Quantity,
				"removed", removed,
			)
		}
		return nil
	})
}

// consume debits qty from the drug's batches in FEFO order. A shortfall is
// allocated partially and logged, never failed: prescriptions are recorded
// regardless of physical stock and the ledger reflects what actually moved.
func (e *Engine) consume(ctx context.Context, drugID id.ID, qty types.Quantity, source ledger.Source, sourceID *id.ID) error {
	return e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		batches, err := e.batches.ListForUpdateByDrug(ctx, drugID)
		if err != nil {
			return fmt.Errorf("list batches: %w", err)
		}

		plan := fefo.Plan(batches, qty)

		if shortfall := fefo.Shortfall(plan, qty); shortfall.IsPositive() {
			logger.Warn(ctx, "consumption exceeds available stock, allocating what exists",
				"drug_id", drugID,
				"requested", qty,
				"shortfall", shortfall,
			)
		}

		byID := make(map[id.ID]*batch.Batch, len(batches))
		for _, b := range batches {
			byID[b.ID] = b
		}

		movements := make([]ledger.Movement, 0, len(plan))
		for _, debit := range plan {
			b := byID[debit.BatchID]
			if err := e.batches.UpdateQuantity(ctx, b.ID, b.Quantity-debit.Quantity); err != nil {
				return fmt.Errorf("debit batch %s: %w", b.ID, err)
			}
			movements = append(movements, ledger.NewMovement(
				drugID, b.ID, ledger.DirectionOut, source, sourceID, debit.Quantity,
			))
		}

		return e.ledger.Append(ctx, movements)
	})
}

// deposit credits qty into the drug's soonest-expiring batch, creating a
// RET- batch when the drug has none. A return carries no information about
// which batch it came from, so it goes where it is most usable: the batch
// closest to its own expiry.
func (e *Engine) deposit(ctx context.Context, drugID id.ID, qty types.Quantity, source ledger.Source, sourceID *id.ID) error {
	return e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		b, err := e.earliestBatch(ctx, drugID)
		if err != nil {
			return err
		}

		if b == nil {
			code := e.lots.Next(lotcode.PrefixReturn, drugID, time.Now())
			b = batch.New(drugID, code, 0, nil)
			if err := e.batches.Create(ctx, b); err != nil {
				return fmt.Errorf("create return batch: %w", err)
			}
		}

		if err := e.batches.UpdateQuantity(ctx, b.ID, b.Quantity+qty); err != nil {
			return fmt.Errorf("credit batch %s: %w", b.ID, err)
		}

		m := ledger.NewMovement(drugID, b.ID, ledger.DirectionIn, source, sourceID, qty)
		return e.ledger.Append(ctx, []ledger.Movement{m})
	})
}

// resolveOrCreateByLot finds a non-deleted batch by (drug, lot code) or
// creates an empty one with the given expiry.
func (e *Engine) resolveOrCreateByLot(ctx context.Context, drugID id.ID, lot string, expiresAt *time.Time) (*batch.Batch, error) {
	b, err := e.batches.GetByDrugAndLotCode(ctx, drugID, lot)
	if err == nil {
		return b, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, err
	}

	b = batch.New(drugID, lot, 0, expiresAt)
	if err := e.batches.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create batch %s: %w", lot, err)
	}
	return b, nil
}

// earliestBatch returns the head of the drug's FEFO order under lock, or
// nil when the drug has no batches.
func (e *Engine) earliestBatch(ctx context.Context, drugID id.ID) (*batch.Batch, error) {
	batches, err := e.batches.ListForUpdateByDrug(ctx, drugID)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	if len(batches) == 0 {
		return nil, nil
	}
	return batches[0], nil
}

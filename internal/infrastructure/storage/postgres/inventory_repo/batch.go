// Package inventory_repo provides PostgreSQL implementations for the batch
// store, movement ledger and stock projection.
package inventory_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"clinika/internal/core/apperror"
	"clinika/internal/core/id"
	"clinika/internal/core/types"
	"clinika/internal/domain/inventory/batch"
	"clinika/internal/infrastructure/storage/postgres"
)

const batchTable = "inv_batches"

var batchColumns = []string{
	"id", "drug_id", "lot_code", "quantity", "expires_at",
	"created_at", "updated_at", "deleted_at",
}

// fefoOrder is the canonical batch ordering: soonest expiry first, undated
// batches last, UUIDv7 id as the deterministic tie-break.
const fefoOrder = "expires_at ASC NULLS LAST, id ASC"

// BatchRepo implements batch.Repository.
type BatchRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ batch.Repository = (*BatchRepo)(nil)

// NewBatchRepo creates a new batch store repository.
func NewBatchRepo(txManager *postgres.TxManager) *BatchRepo {
	return &BatchRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *BatchRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder.Select(batchColumns...).From(batchTable)
}

// Create inserts a new batch.
func (r *BatchRepo) Create(ctx context.Context, b *batch.Batch) error {
	q := r.builder.Insert(batchTable).
		Columns(batchColumns...).
		Values(
			b.ID, b.DrugID, b.LotCode, b.Quantity, b.ExpiresAt,
			b.CreatedAt, b.UpdatedAt, b.DeletedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	return nil
}

// GetByID retrieves one batch, soft-deleted ones included.
func (r *BatchRepo) GetByID(ctx context.Context, batchID id.ID) (*batch.Batch, error) {
	q := r.baseSelect().Where(squirrel.Eq{"id": batchID}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var b batch.Batch
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &b, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("batch", batchID.String())
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}

	return &b, nil
}

// GetByDrugAndLotCode retrieves a live batch by its natural key.
func (r *BatchRepo) GetByDrugAndLotCode(ctx context.Context, drugID id.ID, lotCode string) (*batch.Batch, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"drug_id": drugID}).
		Where(squirrel.Eq{"lot_code": lotCode}).
		Where(squirrel.Eq{"deleted_at": nil}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var b batch.Batch
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &b, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("batch", lotCode)
		}
		return nil, fmt.Errorf("get batch by lot code: %w", err)
	}

	return &b, nil
}

// ListForUpdateByDrug returns live batches in FEFO order with row locks held
// until the enclosing transaction ends. Serializes concurrent stock events
// on the same drug.
func (r *BatchRepo) ListForUpdateByDrug(ctx context.Context, drugID id.ID) ([]*batch.Batch, error) {
	if r.txManager.GetTx(ctx) == nil {
		return nil, fmt.Errorf("ListForUpdateByDrug requires transaction context")
	}

	q := r.baseSelect().
		Where(squirrel.Eq{"drug_id": drugID}).
		Where(squirrel.Eq{"deleted_at": nil}).
		OrderBy(fefoOrder).
		Suffix("FOR UPDATE")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*batch.Batch
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list batches for update: %w", err)
	}

	return items, nil
}

// ListByDrug returns live batches in FEFO order without locking.
func (r *BatchRepo) ListByDrug(ctx context.Context, drugID id.ID) ([]*batch.Batch, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"drug_id": drugID}).
		Where(squirrel.Eq{"deleted_at": nil}).
		OrderBy(fefoOrder)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*batch.Batch
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}

	return items, nil
}

// UpdateQuantity sets the on-hand quantity of a batch.
func (r *BatchRepo) UpdateQuantity(ctx context.Context, batchID id.ID, quantity types.Quantity) error {
	q := r.builder.Update(batchTable).
		Set("quantity", quantity).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": batchID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update batch quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("batch", batchID.String())
	}

	return nil
}

// SetExpiry backfills the expiry of a batch that has none. A batch that
// already carries a date is left untouched.
func (r *BatchRepo) SetExpiry(ctx context.Context, batchID id.ID, expiresAt time.Time) error {
	q := r.builder.Update(batchTable).
		Set("expires_at", expiresAt).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": batchID}).
		Where(squirrel.Eq{"expires_at": nil})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("set batch expiry: %w", err)
	}

	return nil
}

// SoftDelete marks a batch as removed.
func (r *BatchRepo) SoftDelete(ctx context.Context, batchID id.ID) error {
	q := r.builder.Update(batchTable).
		Set("deleted_at", squirrel.Expr("now()")).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": batchID}).
		Where(squirrel.Eq{"deleted_at": nil})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("soft delete batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("batch", batchID.String())
	}

	return nil
}

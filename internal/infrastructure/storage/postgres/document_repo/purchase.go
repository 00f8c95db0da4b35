// Package document_repo provides PostgreSQL implementations for document
// repositories.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"clinika/internal/core/apperror"
	"clinika/internal/core/id"
	"clinika/internal/domain/documents/purchase"
	"clinika/internal/infrastructure/storage/postgres"
)

const (
	purchaseOrderTable = "doc_purchase_orders"
	purchaseLineTable  = "doc_purchase_lines"
)

var orderColumns = []string{
	"id", "number", "supplier_name", "status", "finalized_at", "total_amount",
	"created_at", "updated_at", "deleted_at",
}

var lineColumns = []string{
	"line_id", "line_no", "drug_id", "quantity", "unit_price", "amount",
	"lot_code", "expires_at", "deleted_at",
}

// PurchaseRepo implements purchase.Repository.
type PurchaseRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ purchase.Repository = (*PurchaseRepo)(nil)

// NewPurchaseRepo creates a new purchase order repository.
func NewPurchaseRepo(txManager *postgres.TxManager) *PurchaseRepo {
	return &PurchaseRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create stores the order header and its lines.
func (r *PurchaseRepo) Create(ctx context.Context, o *purchase.Order) error {
	q := r.builder.Insert(purchaseOrderTable).
		Columns(orderColumns...).
		Values(
			o.ID, o.Number, o.SupplierName, o.Status, o.FinalizedAt, o.TotalAmount,
			o.CreatedAt, o.UpdatedAt, o.DeletedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	return r.insertLines(ctx, o.ID, o.Lines)
}

// GetByID loads an order with all its lines, soft-deleted lines included.
func (r *PurchaseRepo) GetByID(ctx context.Context, orderID id.ID) (*purchase.Order, error) {
	q := r.builder.Select(orderColumns...).
		From(purchaseOrderTable).
		Where(squirrel.Eq{"id": orderID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var o purchase.Order
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &o, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("purchase order", orderID.String())
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	lines, err := r.getLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	o.Lines = lines

	return &o, nil
}

// Update stores the order header.
func (r *PurchaseRepo) Update(ctx context.Context, o *purchase.Order) error {
	q := r.builder.Update(purchaseOrderTable).
		Set("supplier_name", o.SupplierName).
		Set("status", o.Status).
		Set("finalized_at", o.FinalizedAt).
		Set("total_amount", o.TotalAmount).
		Set("updated_at", o.UpdatedAt).
		Where(squirrel.Eq{"id": o.ID}).
		Where(squirrel.Eq{"deleted_at": nil})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("purchase order", o.ID.String())
	}

	return nil
}

// ReplaceLines rewrites the order's line set.
func (r *PurchaseRepo) ReplaceLines(ctx context.Context, orderID id.ID, lines []purchase.Line) error {
	del := r.builder.Delete(purchaseLineTable).
		Where(squirrel.Eq{"order_id": orderID})

	sql, args, err := del.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete lines: %w", err)
	}

	return r.insertLines(ctx, orderID, lines)
}

// List returns order headers without lines, newest first.
func (r *PurchaseRepo) List(ctx context.Context, filter purchase.ListFilter) ([]*purchase.Order, error) {
	q := r.builder.Select(orderColumns...).
		From(purchaseOrderTable).
		Where(squirrel.Eq{"deleted_at": nil}).
		OrderBy("created_at DESC")

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.Or{
			squirrel.ILike{"number": "%" + filter.Search + "%"},
			squirrel.ILike{"supplier_name": "%" + filter.Search + "%"},
		})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var orders []*purchase.Order
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &orders, sql, args...); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	return orders, nil
}

func (r *PurchaseRepo) insertLines(ctx context.Context, orderID id.ID, lines []purchase.Line) error {
	if len(lines) == 0 {
		return nil
	}

	columns := append([]string{"order_id"}, lineColumns...)
	q := r.builder.Insert(purchaseLineTable).Columns(columns...)
	for _, line := range lines {
		q = q.Values(
			orderID,
			line.LineID, line.LineNo, line.DrugID, line.Quantity, line.UnitPrice,
			line.Amount, line.LotCode, line.ExpiresAt, line.DeletedAt,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}

	return nil
}

func (r *PurchaseRepo) getLines(ctx context.Context, orderID id.ID) ([]purchase.Line, error) {
	q := r.builder.Select(lineColumns...).
		From(purchaseLineTable).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("line_no ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []purchase.Line
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select lines: %w", err)
	}

	return lines, nil
}

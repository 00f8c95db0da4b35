package inventory_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"clinika/internal/core/id"
	"clinika/internal/core/types"
	"clinika/internal/domain/inventory/projection"
	"clinika/internal/infrastructure/storage/postgres"
)

// ProjectionRepo implements projection.Repository. The stock view is
// recomputed from live batches on every read; nothing here is cached or
// materialized.
type ProjectionRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ projection.Repository = (*ProjectionRepo)(nil)

// NewProjectionRepo creates a new stock projection repository.
func NewProjectionRepo(txManager *postgres.TxManager) *ProjectionRepo {
	return &ProjectionRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// SummaryByDrug aggregates one drug's live batches. A drug with no batches
// gets a zero summary, not an error.
func (r *ProjectionRepo) SummaryByDrug(ctx context.Context, drugID id.ID) (projection.Summary, error) {
	summary := projection.Summary{DrugID: drugID}

	// Nearest expiry only considers batches that still hold stock.
	sql := `
		SELECT
			COALESCE(SUM(quantity), 0) AS total_qty,
			MIN(expires_at) FILTER (WHERE quantity > 0 AND expires_at IS NOT NULL) AS nearest_exp
		FROM inv_batches
		WHERE drug_id = $1
		  AND deleted_at IS NULL
	`

	var totalQty int64
	querier := r.txManager.GetQuerier(ctx)
	err := querier.QueryRow(ctx, sql, drugID).Scan(&totalQty, &summary.NearestExp)
	if err != nil && err != pgx.ErrNoRows {
		return summary, fmt.Errorf("summarize stock: %w", err)
	}
	summary.TotalQty = types.Quantity(totalQty)

	return summary, nil
}

// ListSummaries aggregates across drugs.
func (r *ProjectionRepo) ListSummaries(ctx context.Context, filter projection.ListFilter) ([]projection.Summary, error) {
	q := r.builder.Select(
		"d.id AS drug_id",
		"COALESCE(SUM(b.quantity), 0) AS total_qty",
		"MIN(b.expires_at) FILTER (WHERE b.quantity > 0 AND b.expires_at IS NOT NULL) AS nearest_exp",
	).
		From("cat_drugs d").
		LeftJoin("inv_batches b ON b.drug_id = d.id AND b.deleted_at IS NULL").
		Where(squirrel.Eq{"d.deleted_at": nil}).
		GroupBy("d.id", "d.name", "d.min_stock").
		OrderBy("d.name ASC")

	if len(filter.DrugIDs) > 0 {
		q = q.Where(squirrel.Eq{"d.id": filter.DrugIDs})
	}
	if filter.BelowMinStock {
		q = q.Having("COALESCE(SUM(b.quantity), 0) < d.min_stock")
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

	var summaries []projection.Summary
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &summaries, sql, args...); err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}

	return summaries, nil
}

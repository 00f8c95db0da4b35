package inventory_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"clinika/internal/core/id"
	"clinika/internal/core/types"
	"clinika/internal/domain/inventory/ledger"
	"clinika/internal/infrastructure/storage/postgres"
)

const movementTable = "inv_movements"

var movementColumns = []string{
	"id", "drug_id", "batch_id", "direction", "source", "source_id",
	"quantity", "created_at", "deleted_at",
}

// MovementRepo implements ledger.Repository. The table is append-only;
// there is no update or delete statement in this file on purpose.
type MovementRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ ledger.Repository = (*MovementRepo)(nil)

// NewMovementRepo creates a new movement ledger repository.
func NewMovementRepo(txManager *postgres.TxManager) *MovementRepo {
	return &MovementRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Append inserts movements in order. Uses the COPY protocol when running
// inside a transaction, which is the only way the engine calls it.
func (r *MovementRepo) Append(ctx context.Context, movements []ledger.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	if tx := r.txManager.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		rows := make([][]any, 0, len(movements))
		for _, m := range movements {
			rows = append(rows, []any{
				m.ID, m.DrugID, m.BatchID, m.Direction, m.Source, m.SourceID,
				m.Quantity, m.CreatedAt, m.DeletedAt,
			})
		}
		if _, err := inserter.CopyFromSlice(ctx, movementTable, movementColumns, rows); err != nil {
			return fmt.Errorf("copy movements: %w", err)
		}
		return nil
	}

	// Fallback for non-transactional callers.
	q := r.builder.Insert(movementTable).Columns(movementColumns...)
	for _, m := range movements {
		q = q.Values(
			m.ID, m.DrugID, m.BatchID, m.Direction, m.Source, m.SourceID,
			m.Quantity, m.CreatedAt, m.DeletedAt,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movements: %w", err)
	}

	return nil
}

// ListByDrug returns movement history for a drug.
func (r *MovementRepo) ListByDrug(ctx context.Context, drugID id.ID, filter ledger.HistoryFilter) ([]ledger.Movement, error) {
	q := r.builder.Select(movementColumns...).
		From(movementTable).
		Where(squirrel.Eq{"drug_id": drugID})

	if filter.Direction != nil {
		q = q.Where(squirrel.Eq{"direction": *filter.Direction})
	}
	if filter.Source != nil {
		q = q.Where(squirrel.Eq{"source": *filter.Source})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.ToDate})
	}

	// Id is the tie-break within equal timestamps; both are time-ordered.
	if filter.Order == ledger.SortAsc {
		q = q.OrderBy("created_at ASC", "id ASC")
	} else {
		q = q.OrderBy("created_at DESC", "id DESC")
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

	var movements []ledger.Movement
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}

	return movements, nil
}

// TotalsByDrug sums IN and OUT quantities over movements whose batch is not
// soft-deleted. The conservation invariant compares this against the batch
// store totals.
func (r *MovementRepo) TotalsByDrug(ctx context.Context, drugID id.ID) (ledger.Totals, error) {
	totals := ledger.Totals{DrugID: drugID}

	sql := `
		SELECT
			COALESCE(SUM(CASE WHEN m.direction = 'in' THEN m.quantity ELSE 0 END), 0) AS in_qty,
			COALESCE(SUM(CASE WHEN m.direction = 'out' THEN m.quantity ELSE 0 END), 0) AS out_qty
		FROM inv_movements m
		JOIN inv_batches b ON b.id = m.batch_id
		WHERE m.drug_id = $1
		  AND b.deleted_at IS NULL
	`

	var inQty, outQty int64
	querier := r.txManager.GetQuerier(ctx)
	err := querier.QueryRow(ctx, sql, drugID).Scan(&inQty, &outQty)
	if err != nil && err != pgx.ErrNoRows {
		return totals, fmt.Errorf("sum movements: %w", err)
	}

	totals.In = types.Quantity(inQty)
	totals.Out = types.Quantity(outQty)

	return totals, nil
}

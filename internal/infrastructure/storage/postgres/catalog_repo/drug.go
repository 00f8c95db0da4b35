// Package catalog_repo provides PostgreSQL implementations for catalog
// repositories.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"clinika/internal/core/apperror"
	"clinika/internal/core/id"
	"clinika/internal/domain/catalogs/drug"
	"clinika/internal/infrastructure/storage/postgres"
)

const drugTable = "cat_drugs"

var drugColumns = []string{
	"id", "name", "unit", "unit_price", "min_stock", "active",
	"created_at", "updated_at", "deleted_at",
}

// DrugRepo implements drug.Repository.
type DrugRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ drug.Repository = (*DrugRepo)(nil)

// NewDrugRepo creates a new drug catalog repository.
func NewDrugRepo(txManager *postgres.TxManager) *DrugRepo {
	return &DrugRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *DrugRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder.Select(drugColumns...).From(drugTable)
}

// Create inserts a new drug.
func (r *DrugRepo) Create(ctx context.Context, d *drug.Drug) error {
	q := r.builder.Insert(drugTable).
		Columns(drugColumns...).
		Values(
			d.ID, d.Name, d.Unit, d.UnitPrice, d.MinStock, d.Active,
			d.CreatedAt, d.UpdatedAt, d.DeletedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert drug: %w", err)
	}

	return nil
}

// GetByID retrieves a drug, soft-deleted ones included.
func (r *DrugRepo) GetByID(ctx context.Context, drugID id.ID) (*drug.Drug, error) {
	q := r.baseSelect().Where(squirrel.Eq{"id": drugID}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var d drug.Drug
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &d, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("drug", drugID.String())
		}
		return nil, fmt.Errorf("get drug: %w", err)
	}

	return &d, nil
}

// GetByName retrieves a live drug by its unique name.
func (r *DrugRepo) GetByName(ctx context.Context, name string) (*drug.Drug, error) {
	q := r.baseSelect().
		Where(squirrel.Expr("lower(name) = lower(?)", name)).
		Where(squirrel.Eq{"deleted_at": nil}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var d drug.Drug
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &d, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("drug", name)
		}
		return nil, fmt.Errorf("get drug by name: %w", err)
	}

	return &d, nil
}

// Update stores all mutable fields.
func (r *DrugRepo) Update(ctx context.Context, d *drug.Drug) error {
	q := r.builder.Update(drugTable).
		Set("name", d.Name).
		Set("unit", d.Unit).
		Set("unit_price", d.UnitPrice).
		Set("min_stock", d.MinStock).
		Set("active", d.Active).
		Set("updated_at", d.UpdatedAt).
		Where(squirrel.Eq{"id": d.ID}).
		Where(squirrel.Eq{"deleted_at": nil})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update drug: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("drug", d.ID.String())
	}

	return nil
}

// SoftDelete marks a drug as removed.
func (r *DrugRepo) SoftDelete(ctx context.Context, drugID id.ID) error {
	q := r.builder.Update(drugTable).
		Set("deleted_at", squirrel.Expr("now()")).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": drugID}).
		Where(squirrel.Eq{"deleted_at": nil})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("soft delete drug: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("drug", drugID.String())
	}

	return nil
}

// List returns drugs matching the filter, name ascending.
func (r *DrugRepo) List(ctx context.Context, filter drug.ListFilter) ([]*drug.Drug, error) {
	q := r.baseSelect().OrderBy("name ASC")

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deleted_at": nil})
	}
	if filter.ActiveOnly {
		q = q.Where(squirrel.Eq{"active": true})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"name": "%" + filter.Search + "%"})
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

	var items []*drug.Drug
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list drugs: %w", err)
	}

	return items, nil
}

// Package record_repo provides PostgreSQL implementations for medical
// record repositories.
package record_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"clinika/internal/core/apperror"
	"clinika/internal/core/id"
	"clinika/internal/domain/records/prescription"
	"clinika/internal/infrastructure/storage/postgres"
)

const prescriptionLineTable = "rec_prescription_lines"

var prescriptionLineColumns = []string{
	"id", "medical_record_id", "drug_id", "quantity", "note",
	"created_at", "updated_at", "deleted_at",
}

// PrescriptionRepo implements prescription.Repository.
type PrescriptionRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ prescription.Repository = (*PrescriptionRepo)(nil)

// NewPrescriptionRepo creates a new prescription line repository.
func NewPrescriptionRepo(txManager *postgres.TxManager) *PrescriptionRepo {
	return &PrescriptionRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new line.
func (r *PrescriptionRepo) Create(ctx context.Context, l *prescription.Line) error {
	q := r.builder.Insert(prescriptionLineTable).
		Columns(prescriptionLineColumns...).
		Values(
			l.ID, l.MedicalRecordID, l.DrugID, l.Quantity, l.Note,
			l.CreatedAt, l.UpdatedAt, l.DeletedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert prescription line: %w", err)
	}

	return nil
}

// GetByID loads a line, soft-deleted ones included.
func (r *PrescriptionRepo) GetByID(ctx context.Context, lineID id.ID) (*prescription.Line, error) {
	q := r.builder.Select(prescriptionLineColumns...).
		From(prescriptionLineTable).
		Where(squirrel.Eq{"id": lineID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var l prescription.Line
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &l, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("prescription line", lineID.String())
		}
		return nil, fmt.Errorf("get prescription line: %w", err)
	}

	return &l, nil
}

// Update stores a line's mutable fields.
func (r *PrescriptionRepo) Update(ctx context.Context, l *prescription.Line) error {
	q := r.builder.Update(prescriptionLineTable).
		Set("quantity", l.Quantity).
		Set("note", l.Note).
		Set("updated_at", l.UpdatedAt).
		Where(squirrel.Eq{"id": l.ID}).
		Where(squirrel.Eq{"deleted_at": nil})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update prescription line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("prescription line", l.ID.String())
	}

	return nil
}

// SoftDelete marks a line as removed.
func (r *PrescriptionRepo) SoftDelete(ctx context.Context, lineID id.ID) error {
	q := r.builder.Update(prescriptionLineTable).
		Set("deleted_at", squirrel.Expr("now()")).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": lineID}).
		Where(squirrel.Eq{"deleted_at": nil})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("soft delete prescription line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("prescription line", lineID.String())
	}

	return nil
}

// List returns lines matching the filter, newest first.
func (r *PrescriptionRepo) List(ctx context.Context, filter prescription.ListFilter) ([]*prescription.Line, error) {
	q := r.builder.Select(prescriptionLineColumns...).
		From(prescriptionLineTable).
		OrderBy("created_at DESC")

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deleted_at": nil})
	}
	if filter.MedicalRecordID != nil {
		q = q.Where(squirrel.Eq{"medical_record_id": *filter.MedicalRecordID})
	}
	if filter.DrugID != nil {
		q = q.Where(squirrel.Eq{"drug_id": *filter.DrugID})
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

	var lines []*prescription.Line
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("list prescription lines: %w", err)
	}

	return lines, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"assetledger/internal/apperrors"
	"assetledger/internal/model"
)

// OperationFilter narrows operation listings. Empty fields match everything.
type OperationFilter struct {
	Platform string
	Symbol   string
	Status   string
	PlanID   string
}

// OperationRepository provides data access methods for the operation ledger table.
type OperationRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewOperationRepository creates a new OperationRepository with the provided database connection.
func NewOperationRepository(db *sql.DB) *OperationRepository {
	return &OperationRepository{db: db}
}

// WithTx returns a copy of the repository that runs its statements inside tx.
func (r *OperationRepository) WithTx(tx *sql.Tx) *OperationRepository {
	return &OperationRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *OperationRepository) getQuerier() interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const operationColumns = `id, date, platform, asset_type, symbol, type, amount, currency,
	shares, price_per_share, fee, status, plan_id, execution_kind, created_at`

// Insert writes a new operation row.
func (r *OperationRepository) Insert(ctx context.Context, op *model.Operation) error {
	query := `
		INSERT INTO operation (id, date, platform, asset_type, symbol, type, amount, currency,
			shares, price_per_share, fee, status, plan_id, execution_kind)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var planID any
	if op.PlanID != "" {
		planID = op.PlanID
	}

	_, err := r.getQuerier().ExecContext(ctx, query,
		op.ID,
		op.Date.Format("2006-01-02"),
		op.Platform,
		op.AssetType,
		op.Symbol,
		op.Type,
		op.Amount.String(),
		op.Currency,
		nullDecimalArg(op.Shares),
		nullDecimalArg(op.PricePerShare),
		op.Fee.String(),
		op.Status,
		planID,
		op.ExecutionKind,
	)
	if err != nil {
		return fmt.Errorf("failed to insert operation: %w", err)
	}

	return nil
}

// Update overwrites all mutable fields of an existing operation row.
// Returns ErrOperationNotFound if no row matches the ID.
func (r *OperationRepository) Update(ctx context.Context, op *model.Operation) error {
	query := `
		UPDATE operation
		SET date = ?, platform = ?, asset_type = ?, symbol = ?, type = ?, amount = ?,
			currency = ?, shares = ?, price_per_share = ?, fee = ?, status = ?, execution_kind = ?
		WHERE id = ?
	`

	result, err := r.getQuerier().ExecContext(ctx, query,
		op.Date.Format("2006-01-02"),
		op.Platform,
		op.AssetType,
		op.Symbol,
		op.Type,
		op.Amount.String(),
		op.Currency,
		nullDecimalArg(op.Shares),
		nullDecimalArg(op.PricePerShare),
		op.Fee.String(),
		op.Status,
		op.ExecutionKind,
		op.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update operation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperrors.ErrOperationNotFound
	}

	return nil
}

// Delete removes an operation row. Returns ErrOperationNotFound if no row matches.
func (r *OperationRepository) Delete(ctx context.Context, operationID string) error {
	query := `DELETE FROM operation WHERE id = ?`

	result, err := r.getQuerier().ExecContext(ctx, query, operationID)
	if err != nil {
		return fmt.Errorf("failed to delete operation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperrors.ErrOperationNotFound
	}

	return nil
}

// Get retrieves a single operation by its ID.
func (r *OperationRepository) Get(operationID string) (model.Operation, error) {
	query := `SELECT ` + operationColumns + ` FROM operation WHERE id = ?`

	rows, err := r.getQuerier().Query(query, operationID)
	if err != nil {
		return model.Operation{}, fmt.Errorf("failed to query operation table: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return model.Operation{}, fmt.Errorf("error iterating operation table: %w", err)
		}
		return model.Operation{}, apperrors.ErrOperationNotFound
	}

	return scanOperation(rows)
}

// List retrieves operations matching the filter, sorted by date ascending with
// insertion order as the tiebreak.
func (r *OperationRepository) List(filter OperationFilter) ([]model.Operation, error) {
	query := `SELECT ` + operationColumns + ` FROM operation WHERE 1=1`

	var args []any

	if filter.Platform != "" {
		query += ` AND platform = ?`
		args = append(args, filter.Platform)
	}
	if filter.Symbol != "" {
		query += ` AND symbol = ?`
		args = append(args, filter.Symbol)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.PlanID != "" {
		query += ` AND plan_id = ?`
		args = append(args, filter.PlanID)
	}

	query += ` ORDER BY date ASC, created_at ASC, id ASC`

	return r.queryOperations(query, args...)
}

// ListReplayable retrieves every non-pending operation in deterministic replay
// order: ascending date, then created_at, then id. This is the order the
// position projector uses for a full rebuild.
func (r *OperationRepository) ListReplayable() ([]model.Operation, error) {
	query := `SELECT ` + operationColumns + ` FROM operation
		WHERE status != ?
		ORDER BY date ASC, created_at ASC, id ASC`

	return r.queryOperations(query, model.StatusPending)
}

// ListPending retrieves all pending operations, oldest first.
func (r *OperationRepository) ListPending() ([]model.Operation, error) {
	query := `SELECT ` + operationColumns + ` FROM operation
		WHERE status = ?
		ORDER BY date ASC, created_at ASC, id ASC`

	return r.queryOperations(query, model.StatusPending)
}

// ExistsForPlanOnDate reports whether the plan already has an operation dated
// the given day. Used by the backfill generator to avoid duplicates.
func (r *OperationRepository) ExistsForPlanOnDate(planID string, date time.Time) (bool, error) {
	query := `SELECT COUNT(*) FROM operation WHERE plan_id = ? AND date = ?`

	var count int
	err := r.getQuerier().QueryRow(query, planID, date.Format("2006-01-02")).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query operation table: %w", err)
	}

	return count > 0, nil
}

func (r *OperationRepository) queryOperations(query string, args ...any) ([]model.Operation, error) {
	rows, err := r.getQuerier().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query operation table: %w", err)
	}
	defer rows.Close()

	operations := []model.Operation{}

	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		operations = append(operations, op)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating operation table: %w", err)
	}

	return operations, nil
}

func scanOperation(rows *sql.Rows) (model.Operation, error) {
	var dateStr, createdAtStr string
	var planID sql.NullString
	var op model.Operation

	err := rows.Scan(
		&op.ID,
		&dateStr,
		&op.Platform,
		&op.AssetType,
		&op.Symbol,
		&op.Type,
		&op.Amount,
		&op.Currency,
		&op.Shares,
		&op.PricePerShare,
		&op.Fee,
		&op.Status,
		&planID,
		&op.ExecutionKind,
		&createdAtStr,
	)
	if err != nil {
		return model.Operation{}, fmt.Errorf("failed to scan operation table results: %w", err)
	}

	op.Date, err = ParseTime(dateStr)
	if err != nil || op.Date.IsZero() {
		return model.Operation{}, fmt.Errorf("failed to parse date: %w", err)
	}

	op.CreatedAt, err = ParseTime(createdAtStr)
	if err != nil {
		return model.Operation{}, fmt.Errorf("failed to parse date: %w", err)
	}

	if planID.Valid {
		op.PlanID = planID.String
	}

	return op, nil
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"assetledger/internal/apperrors"
	"assetledger/internal/model"
)

// PlanRepository provides data access methods for the plan table.
type PlanRepository struct {
	db *sql.DB
}

// NewPlanRepository creates a new PlanRepository with the provided database connection.
func NewPlanRepository(db *sql.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

const planColumns = `id, platform, asset_type, symbol, currency, amount, frequency, interval_days,
	start_date, end_date, next_execution_date, last_execution_date,
	execution_count, total_invested, total_shares, status,
	smart_enabled, base_amount, max_amount, increase_rate, fee_rate, excluded_dates,
	created_at, updated_at`

// Insert writes a new plan row.
func (r *PlanRepository) Insert(ctx context.Context, p *model.Plan) error {
	excluded, err := json.Marshal(p.ExcludedDates)
	if err != nil {
		return fmt.Errorf("failed to encode excluded dates: %w", err)
	}

	query := `
		INSERT INTO plan (id, platform, asset_type, symbol, currency, amount, frequency, interval_days,
			start_date, end_date, next_execution_date, last_execution_date,
			execution_count, total_invested, total_shares, status,
			smart_enabled, base_amount, max_amount, increase_rate, fee_rate, excluded_dates)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		p.ID,
		p.Platform,
		p.AssetType,
		p.Symbol,
		p.Currency,
		p.Amount.String(),
		p.Frequency,
		nullIntArg(p.IntervalDays),
		p.StartDate.Format("2006-01-02"),
		nullDateArg(p.EndDate),
		nullDateArg(p.NextExecutionDate),
		nullDateArg(p.LastExecutionDate),
		p.ExecutionCount,
		p.TotalInvested.String(),
		p.TotalShares.String(),
		p.Status,
		p.SmartEnabled,
		nullDecimalArg(p.BaseAmount),
		nullDecimalArg(p.MaxAmount),
		nullDecimalArg(p.IncreaseRate),
		nullDecimalArg(p.FeeRate),
		string(excluded),
	)
	if err != nil {
		return fmt.Errorf("failed to insert plan: %w", err)
	}

	return nil
}

// Update overwrites all mutable fields of an existing plan row.
// Returns ErrPlanNotFound if no row matches the ID.
func (r *PlanRepository) Update(ctx context.Context, p *model.Plan) error {
	excluded, err := json.Marshal(p.ExcludedDates)
	if err != nil {
		return fmt.Errorf("failed to encode excluded dates: %w", err)
	}

	query := `
		UPDATE plan
		SET platform = ?, asset_type = ?, symbol = ?, currency = ?, amount = ?, frequency = ?,
			interval_days = ?, start_date = ?, end_date = ?, next_execution_date = ?,
			last_execution_date = ?, execution_count = ?, total_invested = ?, total_shares = ?,
			status = ?, smart_enabled = ?, base_amount = ?, max_amount = ?, increase_rate = ?,
			fee_rate = ?, excluded_dates = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		p.Platform,
		p.AssetType,
		p.Symbol,
		p.Currency,
		p.Amount.String(),
		p.Frequency,
		nullIntArg(p.IntervalDays),
		p.StartDate.Format("2006-01-02"),
		nullDateArg(p.EndDate),
		nullDateArg(p.NextExecutionDate),
		nullDateArg(p.LastExecutionDate),
		p.ExecutionCount,
		p.TotalInvested.String(),
		p.TotalShares.String(),
		p.Status,
		p.SmartEnabled,
		nullDecimalArg(p.BaseAmount),
		nullDecimalArg(p.MaxAmount),
		nullDecimalArg(p.IncreaseRate),
		nullDecimalArg(p.FeeRate),
		string(excluded),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperrors.ErrPlanNotFound
	}

	return nil
}

// Get retrieves a single plan by its ID.
func (r *PlanRepository) Get(planID string) (model.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plan WHERE id = ?`

	rows, err := r.db.Query(query, planID)
	if err != nil {
		return model.Plan{}, fmt.Errorf("failed to query plan table: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return model.Plan{}, fmt.Errorf("error iterating plan table: %w", err)
		}
		return model.Plan{}, apperrors.ErrPlanNotFound
	}

	return scanPlan(rows)
}

// List retrieves all plans, optionally filtered by status, newest first.
func (r *PlanRepository) List(status string) ([]model.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plan WHERE 1=1`

	var args []any

	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}

	query += ` ORDER BY created_at DESC`

	return r.queryPlans(query, args...)
}

// ListDue retrieves every active plan whose next execution date is on or
// before the given day, or has never been set (first run, due immediately).
func (r *PlanRepository) ListDue(today time.Time) ([]model.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plan
		WHERE status = ?
		AND (next_execution_date IS NULL OR next_execution_date <= ?)
		ORDER BY created_at ASC`

	return r.queryPlans(query, model.PlanActive, today.Format("2006-01-02"))
}

func (r *PlanRepository) queryPlans(query string, args ...any) ([]model.Plan, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan table: %w", err)
	}
	defer rows.Close()

	plans := []model.Plan{}

	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plan table: %w", err)
	}

	return plans, nil
}

func scanPlan(rows *sql.Rows) (model.Plan, error) {
	var p model.Plan
	var startDateStr, createdAtStr, updatedAtStr, excludedStr string
	var endDateStr, nextExecStr, lastExecStr sql.NullString
	var intervalDays sql.NullInt64

	err := rows.Scan(
		&p.ID,
		&p.Platform,
		&p.AssetType,
		&p.Symbol,
		&p.Currency,
		&p.Amount,
		&p.Frequency,
		&intervalDays,
		&startDateStr,
		&endDateStr,
		&nextExecStr,
		&lastExecStr,
		&p.ExecutionCount,
		&p.TotalInvested,
		&p.TotalShares,
		&p.Status,
		&p.SmartEnabled,
		&p.BaseAmount,
		&p.MaxAmount,
		&p.IncreaseRate,
		&p.FeeRate,
		&excludedStr,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return model.Plan{}, fmt.Errorf("failed to scan plan table results: %w", err)
	}

	if intervalDays.Valid {
		p.IntervalDays = int(intervalDays.Int64)
	}

	p.StartDate, err = ParseTime(startDateStr)
	if err != nil || p.StartDate.IsZero() {
		return model.Plan{}, fmt.Errorf("failed to parse date: %w", err)
	}

	if p.EndDate, err = parseNullDate(endDateStr); err != nil {
		return model.Plan{}, err
	}
	if p.NextExecutionDate, err = parseNullDate(nextExecStr); err != nil {
		return model.Plan{}, err
	}
	if p.LastExecutionDate, err = parseNullDate(lastExecStr); err != nil {
		return model.Plan{}, err
	}

	if err := json.Unmarshal([]byte(excludedStr), &p.ExcludedDates); err != nil {
		return model.Plan{}, fmt.Errorf("failed to decode excluded dates: %w", err)
	}

	p.CreatedAt, err = ParseTime(createdAtStr)
	if err != nil {
		return model.Plan{}, fmt.Errorf("failed to parse date: %w", err)
	}
	p.UpdatedAt, err = ParseTime(updatedAtStr)
	if err != nil {
		return model.Plan{}, fmt.Errorf("failed to parse date: %w", err)
	}

	return p, nil
}

func parseNullDate(str sql.NullString) (*time.Time, error) {
	if !str.Valid {
		return nil, nil
	}
	t, err := ParseTime(str.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse date: %w", err)
	}
	return &t, nil
}

// nullIntArg converts a zero-value int to NULL for optional integer columns.
func nullIntArg(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

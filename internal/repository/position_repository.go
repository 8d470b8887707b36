package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"assetledger/internal/apperrors"
	"assetledger/internal/model"
)

// PositionRepository provides data access methods for the position table.
// Only the position projector writes through this repository.
type PositionRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPositionRepository creates a new PositionRepository with the provided database connection.
func NewPositionRepository(db *sql.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// WithTx returns a copy of the repository that runs its statements inside tx.
// Full rebuilds run delete-and-replay inside one transaction so readers never
// observe a half-rebuilt position set.
func (r *PositionRepository) WithTx(tx *sql.Tx) *PositionRepository {
	return &PositionRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *PositionRepository) getQuerier() interface {
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

// GetByBucket retrieves the position for one (platform, symbol, currency) bucket.
// Returns ErrPositionNotFound if the bucket has no open position.
func (r *PositionRepository) GetByBucket(platform, symbol, currency string) (model.Position, error) {
	query := `
		SELECT id, platform, symbol, currency, shares, avg_cost, total_invested, updated_at
		FROM position
		WHERE platform = ? AND symbol = ? AND currency = ?
	`

	var updatedAtStr string
	var p model.Position

	err := r.getQuerier().QueryRow(query, platform, symbol, currency).Scan(
		&p.ID,
		&p.Platform,
		&p.Symbol,
		&p.Currency,
		&p.Shares,
		&p.AvgCost,
		&p.TotalInvested,
		&updatedAtStr,
	)
	if err == sql.ErrNoRows {
		return model.Position{}, apperrors.ErrPositionNotFound
	}
	if err != nil {
		return model.Position{}, fmt.Errorf("failed to scan position table results: %w", err)
	}

	p.UpdatedAt, err = ParseTime(updatedAtStr)
	if err != nil {
		return model.Position{}, fmt.Errorf("failed to parse date: %w", err)
	}

	return p, nil
}

// Upsert writes the position row for its bucket, inserting or overwriting.
func (r *PositionRepository) Upsert(ctx context.Context, p *model.Position) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	query := `
		INSERT INTO position (id, platform, symbol, currency, shares, avg_cost, total_invested, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (platform, symbol, currency) DO UPDATE SET
			shares = excluded.shares,
			avg_cost = excluded.avg_cost,
			total_invested = excluded.total_invested,
			updated_at = excluded.updated_at
	`

	_, err := r.getQuerier().ExecContext(ctx, query,
		p.ID,
		p.Platform,
		p.Symbol,
		p.Currency,
		p.Shares.String(),
		p.AvgCost.String(),
		p.TotalInvested.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert position: %w", err)
	}

	return nil
}

// DeleteByBucket removes the position row for one bucket. Deleting a bucket
// that does not exist is not an error; a zero-quantity bucket simply has no row.
func (r *PositionRepository) DeleteByBucket(ctx context.Context, platform, symbol, currency string) error {
	query := `DELETE FROM position WHERE platform = ? AND symbol = ? AND currency = ?`

	if _, err := r.getQuerier().ExecContext(ctx, query, platform, symbol, currency); err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}

	return nil
}

// DeleteAll removes every position row. Used as the first step of a full rebuild.
func (r *PositionRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.getQuerier().ExecContext(ctx, `DELETE FROM position`); err != nil {
		return fmt.Errorf("failed to clear position table: %w", err)
	}

	return nil
}

// List retrieves positions matching the filter, ordered by platform then symbol.
func (r *PositionRepository) List(filter model.PositionFilter) ([]model.Position, error) {
	query := `
		SELECT id, platform, symbol, currency, shares, avg_cost, total_invested, updated_at
		FROM position
		WHERE 1=1
	`

	var args []any

	if filter.Platform != "" {
		query += ` AND platform = ?`
		args = append(args, filter.Platform)
	}
	if filter.Symbol != "" {
		query += ` AND symbol = ?`
		args = append(args, filter.Symbol)
	}
	if filter.Currency != "" {
		query += ` AND currency = ?`
		args = append(args, filter.Currency)
	}

	query += ` ORDER BY platform ASC, symbol ASC`

	rows, err := r.getQuerier().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query position table: %w", err)
	}
	defer rows.Close()

	positions := []model.Position{}

	for rows.Next() {
		var updatedAtStr string
		var p model.Position

		err := rows.Scan(
			&p.ID,
			&p.Platform,
			&p.Symbol,
			&p.Currency,
			&p.Shares,
			&p.AvgCost,
			&p.TotalInvested,
			&updatedAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position table results: %w", err)
		}

		p.UpdatedAt, err = ParseTime(updatedAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}

		positions = append(positions, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating position table: %w", err)
	}

	return positions, nil
}

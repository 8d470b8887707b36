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

// PriceRepository provides data access methods for the price_point table.
// Rows are unique per (symbol, date); Upsert overwrites rather than duplicates.
type PriceRepository struct {
	db *sql.DB
}

// NewPriceRepository creates a new PriceRepository with the provided database connection.
func NewPriceRepository(db *sql.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// Upsert inserts or overwrites the price row for (symbol, date).
// Idempotent: a later write for the same day replaces the earlier one.
func (r *PriceRepository) Upsert(ctx context.Context, pp *model.PricePoint) error {
	if pp.ID == "" {
		pp.ID = uuid.New().String()
	}

	query := `
		INSERT INTO price_point (id, symbol, date, price, accumulated_price, growth_rate, source)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, date) DO UPDATE SET
			price = excluded.price,
			accumulated_price = excluded.accumulated_price,
			growth_rate = excluded.growth_rate,
			source = excluded.source
	`

	_, err := r.db.ExecContext(ctx, query,
		pp.ID,
		pp.Symbol,
		pp.Date.Format("2006-01-02"),
		pp.Price.String(),
		nullDecimalArg(pp.AccumulatedPrice),
		nullDecimalArg(pp.GrowthRate),
		pp.Source,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert price_point: %w", err)
	}

	return nil
}

// Latest returns the most recent price row for the symbol.
// Returns ErrPriceNotFound if the symbol has no prices at all.
func (r *PriceRepository) Latest(symbol string) (model.PricePoint, error) {
	query := `
		SELECT id, symbol, date, price, accumulated_price, growth_rate, source
		FROM price_point
		WHERE symbol = ?
		ORDER BY date DESC
		LIMIT 1
	`

	return r.scanOne(r.db.QueryRow(query, symbol))
}

// PriceOn returns the price row for the exact date, without falling forward or
// back across gaps. Returns ErrPriceNotFound when no row exists for that day.
func (r *PriceRepository) PriceOn(symbol string, date time.Time) (model.PricePoint, error) {
	query := `
		SELECT id, symbol, date, price, accumulated_price, growth_rate, source
		FROM price_point
		WHERE symbol = ? AND date = ?
	`

	return r.scanOne(r.db.QueryRow(query, symbol, date.Format("2006-01-02")))
}

// History returns up to limit price rows for the symbol, newest first.
func (r *PriceRepository) History(symbol string, limit int) ([]model.PricePoint, error) {
	query := `
		SELECT id, symbol, date, price, accumulated_price, growth_rate, source
		FROM price_point
		WHERE symbol = ?
		ORDER BY date DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query price_point table: %w", err)
	}
	defer rows.Close()

	prices := []model.PricePoint{}

	for rows.Next() {
		var dateStr string
		var pp model.PricePoint

		err := rows.Scan(
			&pp.ID,
			&pp.Symbol,
			&dateStr,
			&pp.Price,
			&pp.AccumulatedPrice,
			&pp.GrowthRate,
			&pp.Source,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price_point table results: %w", err)
		}

		pp.Date, err = ParseTime(dateStr)
		if err != nil || pp.Date.IsZero() {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}

		prices = append(prices, pp)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price_point table: %w", err)
	}

	return prices, nil
}

func (r *PriceRepository) scanOne(row *sql.Row) (model.PricePoint, error) {
	var dateStr string
	var pp model.PricePoint

	err := row.Scan(
		&pp.ID,
		&pp.Symbol,
		&dateStr,
		&pp.Price,
		&pp.AccumulatedPrice,
		&pp.GrowthRate,
		&pp.Source,
	)
	if err == sql.ErrNoRows {
		return model.PricePoint{}, apperrors.ErrPriceNotFound
	}
	if err != nil {
		return model.PricePoint{}, fmt.Errorf("failed to scan price_point table results: %w", err)
	}

	pp.Date, err = ParseTime(dateStr)
	if err != nil || pp.Date.IsZero() {
		return model.PricePoint{}, fmt.Errorf("failed to parse date: %w", err)
	}

	return pp, nil
}

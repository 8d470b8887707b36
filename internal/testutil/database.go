package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite" // Test Package
)

// SetupTestDB creates an in-memory SQLite database for testing.
// The database is automatically cleaned up when the test completes.
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    db := testutil.SetupTestDB(t)
//	    // db is ready to use with schema created
//	}
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// In-memory database (destroyed when connection closes)
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	// Configure SQLite for testing
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = MEMORY", // Faster for tests
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			t.Fatalf("Failed to set pragma: %v", err)
		}
	}

	// Create schema
	if err := createTestSchema(db); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	// Cleanup when test ends
	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// createTestSchema creates all database tables for testing.
// Schema is synchronized with the goose migrations.
func createTestSchema(db *sql.DB) error {
	schema := `
		-- Operation ledger
		CREATE TABLE operation (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			date DATE NOT NULL,
			platform VARCHAR(50) NOT NULL,
			asset_type VARCHAR(20) NOT NULL,
			symbol VARCHAR(20) NOT NULL,
			type VARCHAR(10) NOT NULL,
			amount TEXT NOT NULL,
			currency VARCHAR(3) NOT NULL,
			shares TEXT,
			price_per_share TEXT,
			fee TEXT NOT NULL DEFAULT '0',
			status VARCHAR(10) NOT NULL,
			plan_id VARCHAR(36),
			execution_kind VARCHAR(10) NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		-- Derived position table
		CREATE TABLE position (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			platform VARCHAR(50) NOT NULL,
			symbol VARCHAR(20) NOT NULL,
			currency VARCHAR(3) NOT NULL,
			shares TEXT NOT NULL,
			avg_cost TEXT NOT NULL,
			total_invested TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT unique_position_bucket UNIQUE (platform, symbol, currency)
		);

		-- NAV time series
		CREATE TABLE price_point (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			symbol VARCHAR(20) NOT NULL,
			date DATE NOT NULL,
			price TEXT NOT NULL,
			accumulated_price TEXT,
			growth_rate TEXT,
			source VARCHAR(50) NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT unique_price_point UNIQUE (symbol, date)
		);

		-- Recurring investment plans
		CREATE TABLE plan (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			platform VARCHAR(50) NOT NULL,
			asset_type VARCHAR(20) NOT NULL,
			symbol VARCHAR(20) NOT NULL,
			currency VARCHAR(3) NOT NULL,
			amount TEXT NOT NULL,
			frequency VARCHAR(10) NOT NULL,
			interval_days INTEGER,
			start_date DATE NOT NULL,
			end_date DATE,
			next_execution_date DATE,
			last_execution_date DATE,
			execution_count INTEGER NOT NULL DEFAULT 0,
			total_invested TEXT NOT NULL DEFAULT '0',
			total_shares TEXT NOT NULL DEFAULT '0',
			status VARCHAR(10) NOT NULL,
			smart_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			base_amount TEXT,
			max_amount TEXT,
			increase_rate TEXT,
			fee_rate TEXT,
			excluded_dates TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		-- Custodian integration settings
		CREATE TABLE custodian_config (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			platform VARCHAR(50) NOT NULL UNIQUE,
			api_key_encrypted TEXT,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			sync_symbols TEXT NOT NULL DEFAULT '[]',
			last_sync_date DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX ix_operation_date ON operation(date);
		CREATE INDEX ix_operation_bucket ON operation(platform, symbol, currency);
		CREATE INDEX ix_operation_status ON operation(status);
		CREATE INDEX ix_operation_plan_id ON operation(plan_id);
		CREATE INDEX ix_price_point_symbol_date ON price_point(symbol, date);
		CREATE INDEX ix_plan_status ON plan(status);
		CREATE INDEX ix_plan_next_execution_date ON plan(next_execution_date);
	`

	_, err := db.Exec(schema)
	return err
}

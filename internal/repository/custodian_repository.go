package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"assetledger/internal/apperrors"
	"assetledger/internal/model"
)

// CustodianRepository provides data access methods for the custodian_config table.
// The api_key_encrypted column holds a fernet token; encryption and decryption
// live in the secrets package, this layer only moves the ciphertext.
type CustodianRepository struct {
	db *sql.DB
}

// NewCustodianRepository creates a new CustodianRepository with the provided database connection.
func NewCustodianRepository(db *sql.DB) *CustodianRepository {
	return &CustodianRepository{db: db}
}

// Get retrieves the configuration for one platform along with its encrypted credential.
func (r *CustodianRepository) Get(platform string) (model.CustodianConfig, string, error) {
	query := `
		SELECT id, platform, api_key_encrypted, enabled, sync_symbols, last_sync_date, created_at, updated_at
		FROM custodian_config
		WHERE platform = ?
	`

	var cfg model.CustodianConfig
	var encrypted, lastSync sql.NullString
	var symbolsStr, createdAtStr, updatedAtStr string

	err := r.db.QueryRow(query, platform).Scan(
		&cfg.ID,
		&cfg.Platform,
		&encrypted,
		&cfg.Enabled,
		&symbolsStr,
		&lastSync,
		&createdAtStr,
		&updatedAtStr,
	)
	if err == sql.ErrNoRows {
		return model.CustodianConfig{}, "", apperrors.ErrCustodianConfigNotFound
	}
	if err != nil {
		return model.CustodianConfig{}, "", fmt.Errorf("failed to scan custodian_config table results: %w", err)
	}

	cfg.Configured = encrypted.Valid && encrypted.String != ""

	if err := json.Unmarshal([]byte(symbolsStr), &cfg.SyncSymbols); err != nil {
		return model.CustodianConfig{}, "", fmt.Errorf("failed to decode sync symbols: %w", err)
	}

	if lastSync.Valid {
		t, err := ParseTime(lastSync.String)
		if err != nil {
			return model.CustodianConfig{}, "", fmt.Errorf("failed to parse date: %w", err)
		}
		cfg.LastSyncDate = &t
	}

	cfg.CreatedAt, err = ParseTime(createdAtStr)
	if err != nil {
		return model.CustodianConfig{}, "", fmt.Errorf("failed to parse date: %w", err)
	}
	cfg.UpdatedAt, err = ParseTime(updatedAtStr)
	if err != nil {
		return model.CustodianConfig{}, "", fmt.Errorf("failed to parse date: %w", err)
	}

	return cfg, encrypted.String, nil
}

// ListEnabled retrieves all enabled custodian configurations.
func (r *CustodianRepository) ListEnabled() ([]model.CustodianConfig, error) {
	query := `
		SELECT id, platform, api_key_encrypted, enabled, sync_symbols, last_sync_date, created_at, updated_at
		FROM custodian_config
		WHERE enabled = TRUE
		ORDER BY platform ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query custodian_config table: %w", err)
	}
	defer rows.Close()

	configs := []model.CustodianConfig{}

	for rows.Next() {
		var cfg model.CustodianConfig
		var encrypted, lastSync sql.NullString
		var symbolsStr, createdAtStr, updatedAtStr string

		err := rows.Scan(
			&cfg.ID,
			&cfg.Platform,
			&encrypted,
			&cfg.Enabled,
			&symbolsStr,
			&lastSync,
			&createdAtStr,
			&updatedAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan custodian_config table results: %w", err)
		}

		cfg.Configured = encrypted.Valid && encrypted.String != ""

		if err := json.Unmarshal([]byte(symbolsStr), &cfg.SyncSymbols); err != nil {
			return nil, fmt.Errorf("failed to decode sync symbols: %w", err)
		}

		if lastSync.Valid {
			t, err := ParseTime(lastSync.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse date: %w", err)
			}
			cfg.LastSyncDate = &t
		}

		cfg.CreatedAt, err = ParseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}
		cfg.UpdatedAt, err = ParseTime(updatedAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}

		configs = append(configs, cfg)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating custodian_config table: %w", err)
	}

	return configs, nil
}

// Upsert inserts or replaces the configuration for a platform. Passing an empty
// encryptedKey keeps the stored credential untouched.
func (r *CustodianRepository) Upsert(ctx context.Context, cfg *model.CustodianConfig, encryptedKey string) error {
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}

	symbols, err := json.Marshal(cfg.SyncSymbols)
	if err != nil {
		return fmt.Errorf("failed to encode sync symbols: %w", err)
	}

	query := `
		INSERT INTO custodian_config (id, platform, api_key_encrypted, enabled, sync_symbols)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (platform) DO UPDATE SET
			api_key_encrypted = CASE WHEN excluded.api_key_encrypted != '' THEN excluded.api_key_encrypted ELSE custodian_config.api_key_encrypted END,
			enabled = excluded.enabled,
			sync_symbols = excluded.sync_symbols,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err = r.db.ExecContext(ctx, query,
		cfg.ID,
		cfg.Platform,
		encryptedKey,
		cfg.Enabled,
		string(symbols),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert custodian_config: %w", err)
	}

	return nil
}

// UpdateLastSync stamps the most recent successful price sync for a platform.
func (r *CustodianRepository) UpdateLastSync(ctx context.Context, platform string, at time.Time) error {
	query := `
		UPDATE custodian_config
		SET last_sync_date = ?, updated_at = CURRENT_TIMESTAMP
		WHERE platform = ?
	`

	result, err := r.db.ExecContext(ctx, query, at.UTC().Format(time.RFC3339), platform)
	if err != nil {
		return fmt.Errorf("failed to update custodian_config: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperrors.ErrCustodianConfigNotFound
	}

	return nil
}

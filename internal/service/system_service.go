package service

import (
	"database/sql"
	"strconv"

	"assetledger/internal/database"
	"assetledger/internal/model"
)

// AppVersion is stamped at build time via -ldflags.
var AppVersion = "dev"

// SystemService exposes operational information about the running instance.
type SystemService struct {
	db *sql.DB
}

// NewSystemService creates a new SystemService with the provided database connection.
func NewSystemService(db *sql.DB) *SystemService {
	return &SystemService{db: db}
}

// HealthCheck verifies database connectivity.
func (s *SystemService) HealthCheck() error {
	return database.HealthCheck(s.db)
}

// GetVersionInfo returns the application version and the database migration version.
func (s *SystemService) GetVersionInfo() (model.VersionInfo, error) {
	dbVersion, err := database.Version(s.db)
	if err != nil {
		return model.VersionInfo{}, err
	}

	return model.VersionInfo{
		AppVersion: AppVersion,
		DbVersion:  strconv.FormatInt(dbVersion, 10),
	}, nil
}

package testutil

import (
	"database/sql"
	"testing"

	"assetledger/internal/repository"
	"assetledger/internal/service"
)

// NewTestPriceService wires a PriceService against the test database.
func NewTestPriceService(t *testing.T, db *sql.DB) *service.PriceService {
	t.Helper()

	return service.NewPriceService(repository.NewPriceRepository(db))
}

// NewTestPositionService wires a PositionService against the test database.
func NewTestPositionService(t *testing.T, db *sql.DB) *service.PositionService {
	t.Helper()

	return service.NewPositionService(
		db,
		repository.NewPositionRepository(db),
		repository.NewOperationRepository(db),
		NewTestPriceService(t, db),
	)
}

// NewTestOperationService wires an OperationService against the test database.
func NewTestOperationService(t *testing.T, db *sql.DB) *service.OperationService {
	t.Helper()

	priceService := NewTestPriceService(t, db)
	positionService := service.NewPositionService(
		db,
		repository.NewPositionRepository(db),
		repository.NewOperationRepository(db),
		priceService,
	)

	return service.NewOperationService(
		db,
		repository.NewOperationRepository(db),
		priceService,
		positionService,
	)
}

// NewTestPlanService wires a PlanService against the test database.
func NewTestPlanService(t *testing.T, db *sql.DB) *service.PlanService {
	t.Helper()

	return service.NewPlanService(
		repository.NewPlanRepository(db),
		repository.NewOperationRepository(db),
		NewTestOperationService(t, db),
		NewTestPriceService(t, db),
	)
}

// NewTestBackfillService wires a BackfillService against the test database.
func NewTestBackfillService(t *testing.T, db *sql.DB) *service.BackfillService {
	t.Helper()

	return service.NewBackfillService(
		repository.NewPlanRepository(db),
		repository.NewOperationRepository(db),
		NewTestPriceService(t, db),
		NewTestPositionService(t, db),
		NewTestPlanService(t, db),
	)
}

package apperrors

import "errors"

// Domain entity errors represent missing entities in the system.
// These errors indicate that a requested resource does not exist; callers that
// can defer (e.g. a price lookup feeding an operation) treat them as
// recoverable and leave the operation pending instead of failing.
var (
	// ErrOperationNotFound indicates that an operation with the given ID does not exist.
	ErrOperationNotFound = errors.New("operation not found")

	// ErrPositionNotFound indicates that no position exists for the requested bucket.
	ErrPositionNotFound = errors.New("position not found")

	// ErrPriceNotFound indicates no price record for a specific symbol and date combination.
	ErrPriceNotFound = errors.New("price not found")

	// ErrPlanNotFound indicates that a plan with the given ID does not exist.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrCustodianConfigNotFound indicates custodian integration has not been set up.
	ErrCustodianConfigNotFound = errors.New("custodian configuration not found")
)

// Business logic errors represent validation failures or constraint violations.
// These errors indicate that an operation cannot be completed due to business rules.
var (
	// ErrInsufficientShares indicates that a sell operation cannot be applied
	// because the bucket does not hold enough shares. Fatal on live inserts;
	// logged and tolerated during a full rebuild, where ledger replay
	// determinism takes priority.
	ErrInsufficientShares = errors.New("insufficient shares for sale")

	// ErrInvalidShareQuantity indicates a buy whose computed share quantity is
	// not positive: either the net amount is too small to survive the two
	// decimal rounding, or the fee exceeds the amount. Such an operation can
	// never be applied to a position.
	ErrInvalidShareQuantity = errors.New("computed share quantity is not positive")

	// ErrPlanNotActive indicates an execution was requested for a plan that is
	// paused, stopped or completed.
	ErrPlanNotActive = errors.New("plan is not active")

	// ErrPlanEnded indicates the plan's end date is in the past; historical
	// periods must go through the backfill generator instead.
	ErrPlanEnded = errors.New("plan end date has passed")

	// ErrInvalidFrequency indicates a plan frequency the scheduler cannot step,
	// such as a custom frequency without a positive interval.
	ErrInvalidFrequency = errors.New("invalid plan frequency")

	// ErrInvalidDateRange indicates that the provided date range is invalid
	// (e.g., start date is after end date).
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrInvalidUUID indicates that a provided ID is not a valid UUID format.
	ErrInvalidUUID = errors.New("invalid UUID format")

	// ErrNegativeAmount indicates that an amount field has an invalid negative value.
	ErrNegativeAmount = errors.New("amount cannot be negative")

	// ErrDuplicateEntry indicates that an entity with the same unique constraint already exists.
	ErrDuplicateEntry = errors.New("duplicate entry")
)

// Concurrency errors.
var (
	// ErrRebuildInProgress indicates a full position rebuild is already running.
	// Retry with backoff is the caller's responsibility.
	ErrRebuildInProgress = errors.New("position rebuild already in progress")
)

// Operation failure errors represent system-level failures when retrieving or
// processing data. These indicate that an operation failed, but not due to
// missing entities or validation issues.
var (
	ErrFailedToRetrieveOperations = errors.New("failed to retrieve operations")
	ErrFailedToRetrieveOperation  = errors.New("failed to retrieve operation")
	ErrFailedToRetrievePositions  = errors.New("failed to retrieve positions")
	ErrFailedToGetSummary         = errors.New("failed to get position summary")
	ErrFailedToRetrievePrices     = errors.New("failed to retrieve prices")
	ErrFailedToUpsertPrice        = errors.New("failed to upsert price")
	ErrFailedToRetrievePlans      = errors.New("failed to retrieve plans")
	ErrFailedToRetrievePlan       = errors.New("failed to retrieve plan")
	ErrFailedToExecutePlan        = errors.New("failed to execute plan")
	ErrFailedToGenerateHistory    = errors.New("failed to generate historical operations")
	ErrFailedToRebuildPositions   = errors.New("failed to rebuild positions")
	ErrFailedToGetVersionInfo     = errors.New("failed to get version information")
)

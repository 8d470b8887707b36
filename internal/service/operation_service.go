package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"assetledger/internal/api/request"
	"assetledger/internal/apperrors"
	"assetledger/internal/model"
	"assetledger/internal/repository"
)

// OperationService owns the operation ledger. It records, edits and deletes
// operations, and keeps the projection in step: a priced operation is applied
// to its position bucket in the same transaction as the ledger write, while an
// unpriced one stays pending until a price for its date appears.
type OperationService struct {
	db              *sql.DB
	operationRepo   *repository.OperationRepository
	priceService    *PriceService
	positionService *PositionService
}

// NewOperationService creates a new OperationService with the provided dependencies.
func NewOperationService(
	db *sql.DB,
	operationRepo *repository.OperationRepository,
	priceService *PriceService,
	positionService *PositionService,
) *OperationService {
	return &OperationService{
		db:              db,
		operationRepo:   operationRepo,
		priceService:    priceService,
		positionService: positionService,
	}
}

// RecordOperation creates a new ledger entry from a user request.
//
// If the request carries an explicit price per share, or the NAV store has a
// price for the operation date, the share count is computed immediately and the
// operation is confirmed and applied to its position. A price miss is not an
// error: the operation is recorded as pending and picked up later by
// ConfirmPending once the price arrives.
func (s *OperationService) RecordOperation(ctx context.Context, req request.CreateOperationRequest) (model.Operation, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return model.Operation{}, fmt.Errorf("failed to parse date: %w", err)
	}

	fee := decimal.Zero
	if req.Fee != nil {
		fee = *req.Fee
	}

	executionKind := req.ExecutionKind
	if executionKind == "" {
		executionKind = model.ExecutionManual
	}

	op := model.Operation{
		ID:            uuid.New().String(),
		Date:          date.UTC(),
		Platform:      req.Platform,
		AssetType:     req.AssetType,
		Symbol:        req.Symbol,
		Type:          req.Type,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Fee:           fee,
		Status:        model.StatusPending,
		ExecutionKind: executionKind,
	}

	price, err := s.resolvePrice(req, op)
	switch {
	case err == nil:
		op.PricePerShare = decimal.NullDecimal{Decimal: price, Valid: true}
		op.Shares = decimal.NullDecimal{Decimal: ComputeShares(op.Amount, op.Fee, price), Valid: true}
		op.Status = model.StatusConfirmed
	case errors.Is(err, apperrors.ErrPriceNotFound):
		// Stays pending; no quantity, no position impact.
	default:
		return model.Operation{}, err
	}

	if op.Type == model.OperationDividend {
		// Dividends are cash events; they confirm without a quantity and do
		// not move the position.
		op.Shares = decimal.NullDecimal{}
		op.PricePerShare = decimal.NullDecimal{}
		op.Status = model.StatusConfirmed
	}

	// An amount that nets out to zero shares at this price (or a fee eating
	// the whole amount) cannot be booked against a position.
	if op.Priced() && !op.Shares.Decimal.IsPositive() {
		return model.Operation{}, apperrors.ErrInvalidShareQuantity
	}

	if err := s.Append(ctx, &op); err != nil {
		return model.Operation{}, err
	}

	return op, nil
}

// resolvePrice picks the explicit request price when present, otherwise the
// exact-date NAV price for the operation's symbol.
func (s *OperationService) resolvePrice(req request.CreateOperationRequest, op model.Operation) (decimal.Decimal, error) {
	if req.PricePerShare != nil {
		return *req.PricePerShare, nil
	}

	pp, err := s.priceService.PriceOn(op.Symbol, op.Date)
	if err != nil {
		return decimal.Decimal{}, err
	}

	return pp.Price, nil
}

// Append writes the operation to the ledger. A priced operation is applied to
// its position in the same transaction and marked processed; anything else is
// a plain insert. On any failure the transaction rolls back and neither the
// ledger nor the position bucket is touched.
func (s *OperationService) Append(ctx context.Context, op *model.Operation) error {
	if !op.Priced() {
		return s.operationRepo.Insert(ctx, op)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	txRepo := s.operationRepo.WithTx(tx)

	if err := txRepo.Insert(ctx, op); err != nil {
		return err
	}

	if err := s.positionService.ApplyTx(ctx, tx, *op); err != nil {
		return err
	}

	op.Status = model.StatusProcessed
	if err := txRepo.Update(ctx, op); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdateOperation applies a typed patch to an existing operation. Shares are
// recomputed from the patched amount, fee and price. The ledger row is the only
// thing written here: an out-of-band edit invalidates the incremental
// projection, so the caller must follow up with a full position rebuild.
func (s *OperationService) UpdateOperation(ctx context.Context, operationID string, req request.UpdateOperationRequest) (model.Operation, error) {
	op, err := s.operationRepo.Get(operationID)
	if err != nil {
		return model.Operation{}, err
	}

	if req.Date != nil {
		date, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			return model.Operation{}, fmt.Errorf("failed to parse date: %w", err)
		}
		op.Date = date.UTC()
	}
	if req.Platform != nil {
		op.Platform = *req.Platform
	}
	if req.AssetType != nil {
		op.AssetType = *req.AssetType
	}
	if req.Symbol != nil {
		op.Symbol = *req.Symbol
	}
	if req.Type != nil {
		op.Type = *req.Type
	}
	if req.Amount != nil {
		op.Amount = *req.Amount
	}
	if req.Currency != nil {
		op.Currency = *req.Currency
	}
	if req.Fee != nil {
		op.Fee = *req.Fee
	}
	if req.PricePerShare != nil {
		op.PricePerShare = decimal.NullDecimal{Decimal: *req.PricePerShare, Valid: true}
	}

	if op.PricePerShare.Valid && op.Type != model.OperationDividend {
		shares := ComputeShares(op.Amount, op.Fee, op.PricePerShare.Decimal)
		if !shares.IsPositive() {
			return model.Operation{}, apperrors.ErrInvalidShareQuantity
		}
		op.Shares = decimal.NullDecimal{Decimal: shares, Valid: true}
		op.Status = model.StatusConfirmed
	}

	if err := s.operationRepo.Update(ctx, &op); err != nil {
		return model.Operation{}, err
	}

	return op, nil
}

// DeleteOperation removes an operation from the ledger. As with updates, the
// caller must trigger a full position rebuild afterwards.
func (s *OperationService) DeleteOperation(ctx context.Context, operationID string) error {
	return s.operationRepo.Delete(ctx, operationID)
}

// GetOperation retrieves a single operation by its ID.
func (s *OperationService) GetOperation(operationID string) (model.Operation, error) {
	return s.operationRepo.Get(operationID)
}

// GetOperations retrieves operations matching the filter in ledger order.
func (s *OperationService) GetOperations(filter repository.OperationFilter) ([]model.Operation, error) {
	return s.operationRepo.List(filter)
}

// ConfirmPending sweeps all pending operations and confirms those whose
// operation date now has a price in the NAV store. Each confirmation computes
// the share count with the standard rounding and applies the operation to its
// position. Operations whose price is still missing are left untouched.
//
// Returns the number of operations confirmed.
func (s *OperationService) ConfirmPending(ctx context.Context) (int, error) {
	pending, err := s.operationRepo.ListPending()
	if err != nil {
		return 0, err
	}

	confirmed := 0
	for _, op := range pending {
		pp, err := s.priceService.PriceOn(op.Symbol, op.Date)
		if errors.Is(err, apperrors.ErrPriceNotFound) {
			continue
		}
		if err != nil {
			return confirmed, err
		}

		if op.Type != model.OperationDividend && !ComputeShares(op.Amount, op.Fee, pp.Price).IsPositive() {
			log.Printf("confirm sweep: operation %s nets zero shares at price %s, leaving pending",
				op.ID, pp.Price)
			continue
		}

		if err := s.confirm(ctx, op, pp.Price); err != nil {
			return confirmed, err
		}
		confirmed++
	}

	return confirmed, nil
}

// confirm prices one pending operation and applies it, all inside one transaction.
func (s *OperationService) confirm(ctx context.Context, op model.Operation, price decimal.Decimal) error {
	op.PricePerShare = decimal.NullDecimal{Decimal: price, Valid: true}
	op.Shares = decimal.NullDecimal{Decimal: ComputeShares(op.Amount, op.Fee, price), Valid: true}
	op.Status = model.StatusConfirmed

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	txRepo := s.operationRepo.WithTx(tx)

	if err := s.positionService.ApplyTx(ctx, tx, op); err != nil {
		return err
	}

	op.Status = model.StatusProcessed
	if err := txRepo.Update(ctx, &op); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

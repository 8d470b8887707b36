package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"assetledger/internal/apperrors"
	"assetledger/internal/model"
	"assetledger/internal/repository"
)

// PositionService is the position projector: the only writer of the position
// table. It derives one position per (platform, symbol, currency) bucket from
// the operation ledger, either incrementally as priced operations arrive or by
// a full deterministic replay of the ledger.
//
// Mutations are serialized by a single mutex; positions see at most one
// in-flight apply or rebuild at a time. A full rebuild additionally runs inside
// one transaction so readers never observe a half-rebuilt position set.
type PositionService struct {
	db            *sql.DB
	positionRepo  *repository.PositionRepository
	operationRepo *repository.OperationRepository
	priceService  *PriceService

	mu         sync.Mutex
	rebuilding atomic.Bool
}

// NewPositionService creates a new PositionService with the provided dependencies.
func NewPositionService(
	db *sql.DB,
	positionRepo *repository.PositionRepository,
	operationRepo *repository.OperationRepository,
	priceService *PriceService,
) *PositionService {
	return &PositionService{
		db:            db,
		positionRepo:  positionRepo,
		operationRepo: operationRepo,
		priceService:  priceService,
	}
}

// ApplyTx applies one priced operation to its bucket inside the caller's
// transaction. The caller owns the transaction so that the ledger insert and
// the projection update commit or roll back together: position updates are
// all-or-nothing per operation.
//
// Outside rebuild, a sell that exceeds the held quantity fails with
// ErrInsufficientShares and leaves the bucket untouched.
func (s *PositionService) ApplyTx(ctx context.Context, tx *sql.Tx, op model.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.apply(ctx, s.positionRepo.WithTx(tx), op, false)
}

// RebuildAll deletes every position and replays the full ledger in ascending
// date order (insertion order as tiebreak). This is the reconciliation
// primitive: the only path guaranteed to produce a ledger-consistent state, and
// it must run after any out-of-band ledger edit or batch backfill.
//
// Returns the number of operations replayed. Returns ErrRebuildInProgress if
// another rebuild is already running; retry is the caller's responsibility.
func (s *PositionService) RebuildAll(ctx context.Context) (int, error) {
	if !s.rebuilding.CompareAndSwap(false, true) {
		return 0, apperrors.ErrRebuildInProgress
	}
	defer s.rebuilding.Store(false)

	s.mu.Lock()
	defer s.mu.Unlock()

	operations, err := s.operationRepo.ListReplayable()
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin rebuild transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	txRepo := s.positionRepo.WithTx(tx)

	if err := txRepo.DeleteAll(ctx); err != nil {
		return 0, err
	}

	processed := 0
	for _, op := range operations {
		// During replay a sell exceeding the running position is evidence of a
		// reordered history, not an error: log and continue so the rebuild
		// stays deterministic.
		if err := s.apply(ctx, txRepo, op, true); err != nil {
			return 0, err
		}
		processed++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit rebuild transaction: %w", err)
	}

	return processed, nil
}

// apply routes one operation to its bucket. Dividend operations carry cash
// only and do not move shares or cost basis, so they are accepted as no-ops.
func (s *PositionService) apply(ctx context.Context, repo *repository.PositionRepository, op model.Operation, rebuild bool) error {
	if !op.Priced() {
		return nil
	}

	// A priced buy or sell must carry a positive share count; otherwise the
	// bucket arithmetic below would divide by zero or drive shares negative.
	if op.Type != model.OperationDividend && !op.Shares.Decimal.IsPositive() {
		if rebuild {
			log.Printf("rebuild: operation %s has share quantity %s, skipping",
				op.ID, op.Shares.Decimal)
			return nil
		}
		return apperrors.ErrInvalidShareQuantity
	}

	switch op.Type {
	case model.OperationBuy:
		return s.applyBuy(ctx, repo, op)
	case model.OperationSell:
		return s.applySell(ctx, repo, op, rebuild)
	case model.OperationDividend:
		return nil
	default:
		return fmt.Errorf("unknown operation type: %s", op.Type)
	}
}

func (s *PositionService) applyBuy(ctx context.Context, repo *repository.PositionRepository, op model.Operation) error {
	position, err := repo.GetByBucket(op.Platform, op.Symbol, op.Currency)
	if err != nil && !errors.Is(err, apperrors.ErrPositionNotFound) {
		return err
	}
	if errors.Is(err, apperrors.ErrPositionNotFound) {
		position = model.Position{
			Platform:      op.Platform,
			Symbol:        op.Symbol,
			Currency:      op.Currency,
			Shares:        decimal.Zero,
			AvgCost:       decimal.Zero,
			TotalInvested: decimal.Zero,
		}
	}

	position.Shares = position.Shares.Add(op.Shares.Decimal)
	position.TotalInvested = position.TotalInvested.Add(op.Amount)
	position.AvgCost = position.TotalInvested.Div(position.Shares)

	return repo.Upsert(ctx, &position)
}

func (s *PositionService) applySell(ctx context.Context, repo *repository.PositionRepository, op model.Operation, rebuild bool) error {
	position, err := repo.GetByBucket(op.Platform, op.Symbol, op.Currency)
	if err != nil {
		if errors.Is(err, apperrors.ErrPositionNotFound) {
			if rebuild {
				log.Printf("rebuild: sell %s for %s/%s/%s has no open position, skipping",
					op.ID, op.Platform, op.Symbol, op.Currency)
				return nil
			}
			return apperrors.ErrInsufficientShares
		}
		return err
	}

	remaining := position.Shares.Sub(op.Shares.Decimal)
	if remaining.IsNegative() {
		if !rebuild {
			return apperrors.ErrInsufficientShares
		}
		log.Printf("rebuild: sell %s exceeds position %s/%s/%s by %s shares, clamping to zero",
			op.ID, op.Platform, op.Symbol, op.Currency, remaining.Neg())
		remaining = decimal.Zero
	}

	if remaining.IsZero() {
		// A bucket with zero quantity is deleted, not kept at zero.
		return repo.DeleteByBucket(ctx, op.Platform, op.Symbol, op.Currency)
	}

	// Reduce the cost basis proportionally (weighted-average-cost method).
	position.TotalInvested = position.TotalInvested.Mul(remaining).Div(position.Shares)
	position.Shares = remaining
	position.AvgCost = position.TotalInvested.Div(position.Shares)

	return repo.Upsert(ctx, &position)
}

// GetPositions retrieves positions matching the filter, with valuation fields
// recomputed from the latest known prices.
func (s *PositionService) GetPositions(filter model.PositionFilter) ([]model.Position, error) {
	positions, err := s.positionRepo.List(filter)
	if err != nil {
		return nil, err
	}

	for i := range positions {
		s.enrich(&positions[i])
	}

	return positions, nil
}

// GetSummary aggregates all positions into portfolio-level totals.
func (s *PositionService) GetSummary() (model.PositionSummary, error) {
	positions, err := s.GetPositions(model.PositionFilter{})
	if err != nil {
		return model.PositionSummary{}, err
	}

	summary := model.PositionSummary{
		TotalInvested: decimal.Zero,
		TotalValue:    decimal.Zero,
		TotalProfit:   decimal.Zero,
		ProfitRate:    decimal.Zero,
		PositionCount: len(positions),
		ByCurrency:    make(map[string]decimal.Decimal),
	}

	for _, p := range positions {
		summary.TotalInvested = summary.TotalInvested.Add(p.TotalInvested)
		summary.TotalValue = summary.TotalValue.Add(p.CurrentValue)
		summary.TotalProfit = summary.TotalProfit.Add(p.TotalProfit)
		summary.ByCurrency[p.Currency] = summary.ByCurrency[p.Currency].Add(p.CurrentValue)
	}

	if summary.TotalInvested.IsPositive() {
		summary.ProfitRate = summary.TotalProfit.Div(summary.TotalInvested)
	}

	return summary, nil
}

// enrich recomputes the derived valuation fields from the NAV store.
// A missing latest price leaves the position valued at zero rather than failing.
func (s *PositionService) enrich(p *model.Position) {
	latest, err := s.priceService.Latest(p.Symbol)
	if err != nil {
		p.LatestPrice = decimal.NullDecimal{}
		p.CurrentValue = decimal.Zero
		p.TotalProfit = p.CurrentValue.Sub(p.TotalInvested)
		p.ProfitRate = decimal.Zero
		return
	}

	p.LatestPrice = decimal.NullDecimal{Decimal: latest.Price, Valid: true}
	p.CurrentValue = p.Shares.Mul(latest.Price)
	p.TotalProfit = p.CurrentValue.Sub(p.TotalInvested)
	if p.TotalInvested.IsPositive() {
		p.ProfitRate = p.TotalProfit.Div(p.TotalInvested)
	} else {
		p.ProfitRate = decimal.Zero
	}
}

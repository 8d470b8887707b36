package service

import (
	"context"
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

// BackfillService synthesizes the historical operations a plan would have
// produced had it been running in the past. Generated operations use the
// plan's fixed amount; smart sizing needs trailing history that did not exist
// at the synthetic dates, so it never applies retroactively.
type BackfillService struct {
	planRepo        *repository.PlanRepository
	operationRepo   *repository.OperationRepository
	priceService    *PriceService
	positionService *PositionService
	planService     *PlanService
}

// NewBackfillService creates a new BackfillService with the provided dependencies.
func NewBackfillService(
	planRepo *repository.PlanRepository,
	operationRepo *repository.OperationRepository,
	priceService *PriceService,
	positionService *PositionService,
	planService *PlanService,
) *BackfillService {
	return &BackfillService{
		planRepo:        planRepo,
		operationRepo:   operationRepo,
		priceService:    priceService,
		positionService: positionService,
		planService:     planService,
	}
}

// BackfillResult summarizes one backfill run.
type BackfillResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// GenerateHistory walks the plan's schedule from its start date to the given
// end date and inserts a confirmed historical buy for every step that has a
// price. Steps are skipped, not failed, when the date is excluded, already has
// an operation for this plan, or has no price in the NAV store.
//
// The inserts bypass the incremental projector; one full rebuild at the end
// brings positions in line, and the plan's counters are recomputed from the
// ledger.
func (s *BackfillService) GenerateHistory(ctx context.Context, planID string, req request.BackfillRequest) (BackfillResult, error) {
	plan, err := s.planRepo.Get(planID)
	if err != nil {
		return BackfillResult{}, err
	}

	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return BackfillResult{}, fmt.Errorf("failed to parse end date: %w", err)
	}
	endDate = endDate.UTC()

	if endDate.Before(plan.StartDate) {
		return BackfillResult{}, apperrors.ErrInvalidDateRange
	}
	if plan.EndDate != nil && endDate.After(*plan.EndDate) {
		endDate = *plan.EndDate
	}
	if today := Today(); endDate.After(today) {
		endDate = today
	}

	excluded := make(map[string]bool, len(req.ExcludedDates))
	for _, d := range req.ExcludedDates {
		excluded[d] = true
	}

	result := BackfillResult{}

	for date := plan.StartDate; !date.After(endDate); date = s.planService.stepDate(plan, date) {
		key := date.Format("2006-01-02")

		if excluded[key] || plan.Excluded(date) {
			result.Skipped++
			continue
		}

		exists, err := s.operationRepo.ExistsForPlanOnDate(plan.ID, date)
		if err != nil {
			return result, err
		}
		if exists {
			result.Skipped++
			continue
		}

		pp, err := s.priceService.PriceOn(plan.Symbol, date)
		if errors.Is(err, apperrors.ErrPriceNotFound) {
			log.Printf("Backfill for plan %s: no price for %s on %s, skipping", plan.ID, plan.Symbol, key)
			result.Skipped++
			continue
		}
		if err != nil {
			return result, err
		}

		fee := decimal.Zero
		if plan.FeeRate.Valid {
			fee = plan.Amount.Mul(plan.FeeRate.Decimal).Round(2)
		}

		shares := ComputeShares(plan.Amount, fee, pp.Price)
		if !shares.IsPositive() {
			log.Printf("Backfill for plan %s: amount nets zero shares at price %s on %s, skipping",
				plan.ID, pp.Price, key)
			result.Skipped++
			continue
		}

		op := model.Operation{
			ID:            uuid.New().String(),
			Date:          date,
			Platform:      plan.Platform,
			AssetType:     plan.AssetType,
			Symbol:        plan.Symbol,
			Type:          model.OperationBuy,
			Amount:        plan.Amount,
			Currency:      plan.Currency,
			Shares:        decimal.NullDecimal{Decimal: shares, Valid: true},
			PricePerShare: decimal.NullDecimal{Decimal: pp.Price, Valid: true},
			Fee:           fee,
			Status:        model.StatusConfirmed,
			PlanID:        plan.ID,
			ExecutionKind: model.ExecutionHistorical,
		}

		if err := s.operationRepo.Insert(ctx, &op); err != nil {
			return result, err
		}
		result.Created++
	}

	if result.Created > 0 {
		if _, err := s.positionService.RebuildAll(ctx); err != nil {
			return result, err
		}
		if _, err := s.planService.RefreshCounters(ctx, plan.ID); err != nil {
			return result, err
		}
	}

	return result, nil
}

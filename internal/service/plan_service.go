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

// PlanService manages recurring investment plans: their lifecycle, their
// schedule, and the creation of ledger operations when a plan comes due.
type PlanService struct {
	planRepo         *repository.PlanRepository
	operationRepo    *repository.OperationRepository
	operationService *OperationService
	priceService     *PriceService
}

// NewPlanService creates a new PlanService with the provided dependencies.
func NewPlanService(
	planRepo *repository.PlanRepository,
	operationRepo *repository.OperationRepository,
	operationService *OperationService,
	priceService *PriceService,
) *PlanService {
	return &PlanService{
		planRepo:         planRepo,
		operationRepo:    operationRepo,
		operationService: operationService,
		priceService:     priceService,
	}
}

// CreatePlan creates a new plan. The first execution is scheduled for the
// plan's start date.
func (s *PlanService) CreatePlan(ctx context.Context, req request.CreatePlanRequest) (model.Plan, error) {
	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return model.Plan{}, fmt.Errorf("failed to parse start date: %w", err)
	}
	startDate = startDate.UTC()

	var endDate *time.Time
	if req.EndDate != nil {
		parsed, err := time.Parse("2006-01-02", *req.EndDate)
		if err != nil {
			return model.Plan{}, fmt.Errorf("failed to parse end date: %w", err)
		}
		parsed = parsed.UTC()
		if parsed.Before(startDate) {
			return model.Plan{}, apperrors.ErrInvalidDateRange
		}
		endDate = &parsed
	}

	if req.Frequency == model.FrequencyCustom && req.IntervalDays < 1 {
		return model.Plan{}, fmt.Errorf("%w: custom frequency requires a positive interval", apperrors.ErrInvalidFrequency)
	}

	plan := model.Plan{
		ID:                uuid.New().String(),
		Platform:          req.Platform,
		AssetType:         req.AssetType,
		Symbol:            req.Symbol,
		Amount:            req.Amount,
		Currency:          req.Currency,
		Frequency:         req.Frequency,
		StartDate:         startDate,
		EndDate:           endDate,
		NextExecutionDate: &startDate,
		Status:            model.PlanActive,
		IntervalDays:      req.IntervalDays,
		ExcludedDates:     []string{},
	}

	if req.FeeRate != nil {
		plan.FeeRate = decimal.NullDecimal{Decimal: *req.FeeRate, Valid: true}
	}
	if req.ExcludedDates != nil {
		plan.ExcludedDates = req.ExcludedDates
	}
	if req.SmartEnabled {
		plan.SmartEnabled = true
		if req.BaseAmount != nil {
			plan.BaseAmount = decimal.NullDecimal{Decimal: *req.BaseAmount, Valid: true}
		} else {
			plan.BaseAmount = decimal.NullDecimal{Decimal: plan.Amount, Valid: true}
		}
		if req.MaxAmount != nil {
			plan.MaxAmount = decimal.NullDecimal{Decimal: *req.MaxAmount, Valid: true}
		}
		if req.IncreaseRate != nil {
			plan.IncreaseRate = decimal.NullDecimal{Decimal: *req.IncreaseRate, Valid: true}
		}
	}

	if err := s.planRepo.Insert(ctx, &plan); err != nil {
		return model.Plan{}, err
	}

	return plan, nil
}

// UpdatePlan applies a typed patch to an existing plan. Changing the schedule
// (frequency, interval or start date) reschedules the next execution from the
// plan's last execution, or from the new start date if the plan has never run.
func (s *PlanService) UpdatePlan(ctx context.Context, planID string, req request.UpdatePlanRequest) (model.Plan, error) {
	plan, err := s.planRepo.Get(planID)
	if err != nil {
		return model.Plan{}, err
	}

	scheduleChanged := false

	if req.Amount != nil {
		plan.Amount = *req.Amount
	}
	if req.Frequency != nil && *req.Frequency != plan.Frequency {
		plan.Frequency = *req.Frequency
		scheduleChanged = true
	}
	if req.IntervalDays != nil && *req.IntervalDays != plan.IntervalDays {
		plan.IntervalDays = *req.IntervalDays
		scheduleChanged = true
	}
	if req.StartDate != nil {
		startDate, err := time.Parse("2006-01-02", *req.StartDate)
		if err != nil {
			return model.Plan{}, fmt.Errorf("failed to parse start date: %w", err)
		}
		plan.StartDate = startDate.UTC()
		scheduleChanged = true
	}
	if req.EndDate != nil {
		if *req.EndDate == "" {
			plan.EndDate = nil
		} else {
			endDate, err := time.Parse("2006-01-02", *req.EndDate)
			if err != nil {
				return model.Plan{}, fmt.Errorf("failed to parse end date: %w", err)
			}
			endDate = endDate.UTC()
			if endDate.Before(plan.StartDate) {
				return model.Plan{}, apperrors.ErrInvalidDateRange
			}
			plan.EndDate = &endDate
		}
	}
	if req.FeeRate != nil {
		plan.FeeRate = decimal.NullDecimal{Decimal: *req.FeeRate, Valid: true}
	}
	if req.ExcludedDates != nil {
		plan.ExcludedDates = *req.ExcludedDates
	}
	if req.SmartEnabled != nil {
		plan.SmartEnabled = *req.SmartEnabled
	}
	if req.BaseAmount != nil {
		plan.BaseAmount = decimal.NullDecimal{Decimal: *req.BaseAmount, Valid: true}
	}
	if req.MaxAmount != nil {
		plan.MaxAmount = decimal.NullDecimal{Decimal: *req.MaxAmount, Valid: true}
	}
	if req.IncreaseRate != nil {
		plan.IncreaseRate = decimal.NullDecimal{Decimal: *req.IncreaseRate, Valid: true}
	}

	if plan.Frequency == model.FrequencyCustom && plan.IntervalDays < 1 {
		return model.Plan{}, fmt.Errorf("%w: custom frequency requires a positive interval", apperrors.ErrInvalidFrequency)
	}

	if scheduleChanged {
		if plan.LastExecutionDate != nil {
			next := s.stepDate(plan, *plan.LastExecutionDate)
			plan.NextExecutionDate = &next
		} else {
			start := plan.StartDate
			plan.NextExecutionDate = &start
		}
	}

	if err := s.planRepo.Update(ctx, &plan); err != nil {
		return model.Plan{}, err
	}

	return plan, nil
}

// Pause suspends an active plan. A paused plan keeps its next execution date
// but is skipped by the due-plan sweep.
func (s *PlanService) Pause(ctx context.Context, planID string) (model.Plan, error) {
	return s.transition(ctx, planID, model.PlanActive, model.PlanPaused)
}

// Resume reactivates a paused plan. If its next execution date fell in the
// past while paused, it is advanced to the next occurrence from today so the
// plan does not fire a burst of catch-up executions.
func (s *PlanService) Resume(ctx context.Context, planID string) (model.Plan, error) {
	plan, err := s.planRepo.Get(planID)
	if err != nil {
		return model.Plan{}, err
	}
	if plan.Status != model.PlanPaused {
		return model.Plan{}, apperrors.ErrPlanNotActive
	}

	plan.Status = model.PlanActive
	today := Today()
	if plan.NextExecutionDate != nil && plan.NextExecutionDate.Before(today) {
		next := *plan.NextExecutionDate
		for next.Before(today) {
			next = s.stepDate(plan, next)
		}
		plan.NextExecutionDate = &next
	}

	if err := s.planRepo.Update(ctx, &plan); err != nil {
		return model.Plan{}, err
	}

	return plan, nil
}

// Stop terminates a plan permanently. A stopped plan cannot be resumed.
func (s *PlanService) Stop(ctx context.Context, planID string) (model.Plan, error) {
	plan, err := s.planRepo.Get(planID)
	if err != nil {
		return model.Plan{}, err
	}
	if plan.Status == model.PlanStopped || plan.Status == model.PlanCompleted {
		return model.Plan{}, apperrors.ErrPlanEnded
	}

	plan.Status = model.PlanStopped
	plan.NextExecutionDate = nil

	if err := s.planRepo.Update(ctx, &plan); err != nil {
		return model.Plan{}, err
	}

	return plan, nil
}

func (s *PlanService) transition(ctx context.Context, planID, from, to string) (model.Plan, error) {
	plan, err := s.planRepo.Get(planID)
	if err != nil {
		return model.Plan{}, err
	}
	if plan.Status != from {
		return model.Plan{}, apperrors.ErrPlanNotActive
	}

	plan.Status = to
	if err := s.planRepo.Update(ctx, &plan); err != nil {
		return model.Plan{}, err
	}

	return plan, nil
}

// GetPlan retrieves a single plan by its ID.
func (s *PlanService) GetPlan(planID string) (model.Plan, error) {
	return s.planRepo.Get(planID)
}

// GetPlans retrieves all plans, optionally filtered by status.
func (s *PlanService) GetPlans(status string) ([]model.Plan, error) {
	return s.planRepo.List(status)
}

// Execute runs one execution of a plan: it sizes the purchase, records a buy
// operation dated today, and advances the schedule. The next execution date is
// stepped from the due date rather than from today, so a late execution does
// not drift the schedule.
//
// A plan past its end date is marked completed and ErrPlanEnded is returned.
func (s *PlanService) Execute(ctx context.Context, planID, executionKind string) (model.Operation, error) {
	plan, err := s.planRepo.Get(planID)
	if err != nil {
		return model.Operation{}, err
	}
	if plan.Status != model.PlanActive {
		return model.Operation{}, apperrors.ErrPlanNotActive
	}

	today := Today()
	if plan.EndDate != nil && today.After(*plan.EndDate) {
		plan.Status = model.PlanCompleted
		plan.NextExecutionDate = nil
		if err := s.planRepo.Update(ctx, &plan); err != nil {
			return model.Operation{}, err
		}
		return model.Operation{}, apperrors.ErrPlanEnded
	}

	dueDate := today
	if plan.NextExecutionDate != nil {
		dueDate = *plan.NextExecutionDate
	}

	// Sizing follows the plan's configuration, not the caller: a manual
	// trigger of a smart-enabled plan still gets the smart amount. The
	// execution kind is recorded on the operation as provenance only.
	amount := plan.Amount
	if plan.SmartEnabled {
		amount = s.smartAmount(plan)
	}

	fee := decimal.Zero
	if plan.FeeRate.Valid {
		fee = amount.Mul(plan.FeeRate.Decimal).Round(2)
	}

	op := model.Operation{
		ID:            uuid.New().String(),
		Date:          today,
		Platform:      plan.Platform,
		AssetType:     plan.AssetType,
		Symbol:        plan.Symbol,
		Type:          model.OperationBuy,
		Amount:        amount,
		Currency:      plan.Currency,
		Fee:           fee,
		Status:        model.StatusPending,
		PlanID:        plan.ID,
		ExecutionKind: executionKind,
	}

	if pp, err := s.priceService.PriceOn(plan.Symbol, today); err == nil {
		op.PricePerShare = decimal.NullDecimal{Decimal: pp.Price, Valid: true}
		op.Shares = decimal.NullDecimal{Decimal: ComputeShares(amount, fee, pp.Price), Valid: true}
		op.Status = model.StatusConfirmed
	} else if !errors.Is(err, apperrors.ErrPriceNotFound) {
		return model.Operation{}, err
	}

	if err := s.operationService.Append(ctx, &op); err != nil {
		return model.Operation{}, err
	}

	next := s.stepDate(plan, dueDate)
	plan.NextExecutionDate = &next

	// Counters come from the plan's full operation history rather than from
	// incrementing, so manual edits and backfills never leave them stale.
	if err := s.recomputeCounters(&plan); err != nil {
		return model.Operation{}, err
	}

	if err := s.planRepo.Update(ctx, &plan); err != nil {
		return model.Operation{}, err
	}

	return op, nil
}

// CheckAndExecuteDue executes every active plan whose next execution date is
// today or earlier. Smart-enabled plans execute with smart sizing, the rest as
// plain scheduled buys. An ended plan is marked completed and skipped; any
// other per-plan failure is logged and does not stop the sweep.
//
// Returns the number of plans executed.
func (s *PlanService) CheckAndExecuteDue(ctx context.Context) (int, error) {
	due, err := s.planRepo.ListDue(Today())
	if err != nil {
		return 0, err
	}

	executed := 0
	for _, plan := range due {
		kind := model.ExecutionScheduled
		if plan.SmartEnabled {
			kind = model.ExecutionSmart
		}

		if _, err := s.Execute(ctx, plan.ID, kind); err != nil {
			if errors.Is(err, apperrors.ErrPlanEnded) {
				log.Printf("Plan %s (%s) past its end date, marked completed", plan.ID, plan.Symbol)
				continue
			}
			log.Printf("Failed to execute plan %s (%s): %v", plan.ID, plan.Symbol, err)
			continue
		}
		executed++
	}

	return executed, nil
}

// RefreshCounters recomputes a plan's execution count, total invested and last
// execution date from its operations in the ledger. Used after backfills and
// operation edits touch plan-linked history.
func (s *PlanService) RefreshCounters(ctx context.Context, planID string) (model.Plan, error) {
	plan, err := s.planRepo.Get(planID)
	if err != nil {
		return model.Plan{}, err
	}

	if err := s.recomputeCounters(&plan); err != nil {
		return model.Plan{}, err
	}

	if err := s.planRepo.Update(ctx, &plan); err != nil {
		return model.Plan{}, err
	}

	return plan, nil
}

// recomputeCounters rebuilds the plan's cumulative counters and last execution
// date from its operations in the ledger.
func (s *PlanService) recomputeCounters(plan *model.Plan) error {
	ops, err := s.operationRepo.List(repository.OperationFilter{PlanID: plan.ID})
	if err != nil {
		return err
	}

	plan.ExecutionCount = len(ops)
	plan.TotalInvested = decimal.Zero
	plan.TotalShares = decimal.Zero
	plan.LastExecutionDate = nil
	for _, op := range ops {
		plan.TotalInvested = plan.TotalInvested.Add(op.Amount)
		if op.Shares.Valid {
			plan.TotalShares = plan.TotalShares.Add(op.Shares.Decimal)
		}
		if plan.LastExecutionDate == nil || op.Date.After(*plan.LastExecutionDate) {
			last := op.Date
			plan.LastExecutionDate = &last
		}
	}

	return nil
}

// smartAmount sizes a purchase against the recent price trend. When the latest
// price sits below the trailing 30-day average and an increase rate is set,
// the amount grows with the deviation, capped at the plan's maximum; otherwise
// the base amount is used unchanged. With no price history the base amount is
// used.
func (s *PlanService) smartAmount(plan model.Plan) decimal.Decimal {
	base := plan.Amount
	if plan.BaseAmount.Valid {
		base = plan.BaseAmount.Decimal
	}

	history, err := s.priceService.History(plan.Symbol, 30)
	if err != nil || len(history) == 0 {
		return base
	}

	latest := history[0].Price
	sum := decimal.Zero
	for _, pp := range history {
		sum = sum.Add(pp.Price)
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(history))))
	if avg.IsZero() || latest.GreaterThanOrEqual(avg) || !plan.IncreaseRate.Valid {
		return base
	}

	deviation := avg.Sub(latest).Div(avg)
	amount := base.Mul(decimal.NewFromInt(1).Add(deviation.Mul(plan.IncreaseRate.Decimal))).Round(2)

	if plan.MaxAmount.Valid && amount.GreaterThan(plan.MaxAmount.Decimal) {
		return plan.MaxAmount.Decimal
	}

	return amount
}

// stepDate advances a date by one plan interval. Monthly stepping counts from
// the plan's start day and clamps to the end of shorter months, so a plan
// started on the 31st fires on Feb 28 and returns to the 31st in March.
func (s *PlanService) stepDate(plan model.Plan, from time.Time) time.Time {
	switch plan.Frequency {
	case model.FrequencyDaily:
		return from.AddDate(0, 0, 1)
	case model.FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case model.FrequencyMonthly:
		return addMonthClamped(from, plan.StartDate.Day())
	case model.FrequencyCustom:
		days := plan.IntervalDays
		if days < 1 {
			days = 1
		}
		return from.AddDate(0, 0, days)
	default:
		return from.AddDate(0, 0, 1)
	}
}

// addMonthClamped moves to the next calendar month, landing on anchorDay or
// the month's last day when the month is shorter.
func addMonthClamped(from time.Time, anchorDay int) time.Time {
	year, month, _ := from.Date()
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	lastDay := firstOfNext.AddDate(0, 1, -1).Day()

	day := anchorDay
	if day > lastDay {
		day = lastDay
	}

	return time.Date(firstOfNext.Year(), firstOfNext.Month(), day, 0, 0, 0, 0, time.UTC)
}

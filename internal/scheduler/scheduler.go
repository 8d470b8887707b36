// Package scheduler runs the recurring background jobs: the nightly price sync
// and the due-plan sweep that executes recurring investment plans.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"assetledger/internal/config"
	"assetledger/internal/pricefeed"
	"assetledger/internal/service"
)

// Scheduler wraps a cron runner with the application's two background jobs.
// The price sync runs before the plan sweep so freshly due plans see today's
// prices and confirm immediately instead of going pending.
type Scheduler struct {
	cron        *cron.Cron
	syncService *pricefeed.SyncService
	planService *service.PlanService
}

// New creates a Scheduler and registers the jobs from the cron specs in the
// configuration. An empty spec disables its job.
func New(cfg config.SchedulerConfig, syncService *pricefeed.SyncService, planService *service.PlanService) (*Scheduler, error) {
	s := &Scheduler{
		cron:        cron.New(),
		syncService: syncService,
		planService: planService,
	}

	if cfg.PriceSyncSpec != "" {
		if _, err := s.cron.AddFunc(cfg.PriceSyncSpec, s.runPriceSync); err != nil {
			return nil, fmt.Errorf("failed to schedule price sync: %w", err)
		}
	}

	if cfg.PlanDueSpec != "" {
		if _, err := s.cron.AddFunc(cfg.PlanDueSpec, s.runPlanSweep); err != nil {
			return nil, fmt.Errorf("failed to schedule plan sweep: %w", err)
		}
	}

	return s, nil
}

// Start begins running the scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop shuts the scheduler down and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runPriceSync() {
	written, err := s.syncService.SyncAll(context.Background())
	if err != nil {
		log.Printf("Price sync failed: %v", err)
		return
	}
	log.Printf("Price sync wrote %d price rows", written)
}

func (s *Scheduler) runPlanSweep() {
	executed, err := s.planService.CheckAndExecuteDue(context.Background())
	if err != nil {
		log.Printf("Plan sweep failed: %v", err)
		return
	}
	if executed > 0 {
		log.Printf("Plan sweep executed %d due plans", executed)
	}
}

package pricefeed

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"assetledger/internal/service"
)

// maxConcurrentFetches bounds parallel requests against the provider.
const maxConcurrentFetches = 4

// SyncService refreshes the price store from the provider for every symbol an
// enabled custodian tracks, then confirms any ledger operations that were
// waiting on those prices.
type SyncService struct {
	client           *Client
	priceService     *service.PriceService
	operationService *service.OperationService
	custodianService *service.CustodianService
}

// NewSyncService creates a new SyncService with the provided dependencies.
func NewSyncService(
	client *Client,
	priceService *service.PriceService,
	operationService *service.OperationService,
	custodianService *service.CustodianService,
) *SyncService {
	return &SyncService{
		client:           client,
		priceService:     priceService,
		operationService: operationService,
		custodianService: custodianService,
	}
}

// SyncAll refreshes prices for all enabled custodians. Symbols are fetched
// concurrently with a bounded worker count; a failed symbol is logged and
// skipped so the rest of the sweep completes. After the price writes, pending
// operations are re-checked against the new prices.
//
// Returns the number of price rows written.
func (s *SyncService) SyncAll(ctx context.Context) (int, error) {
	configs, err := s.custodianService.ListEnabled()
	if err != nil {
		return 0, err
	}

	total := 0
	for _, cfg := range configs {
		written, err := s.syncSymbols(ctx, cfg.Platform, cfg.SyncSymbols)
		if err != nil {
			return total, err
		}
		total += written
	}

	if total > 0 {
		confirmed, err := s.operationService.ConfirmPending(ctx)
		if err != nil {
			return total, err
		}
		if confirmed > 0 {
			log.Printf("Price sync confirmed %d pending operations", confirmed)
		}
	}

	return total, nil
}

func (s *SyncService) syncSymbols(ctx context.Context, platform string, symbols []string) (int, error) {
	if len(symbols) == 0 {
		return 0, nil
	}

	results := make([]int, len(symbols))

	g, fetchCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)

	for i, symbol := range symbols {
		g.Go(func() error {
			written, err := s.syncSymbol(fetchCtx, symbol)
			if err != nil {
				// Per-symbol failures must not fail the sweep.
				log.Printf("Failed to sync prices for %s: %v", symbol, err)
				return nil
			}
			results[i] = written
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, n := range results {
		total += n
	}

	if total > 0 {
		if err := s.custodianService.MarkSynced(ctx, platform, time.Now().UTC()); err != nil {
			log.Printf("Failed to stamp last sync for %s: %v", platform, err)
		}
	}

	return total, nil
}

func (s *SyncService) syncSymbol(ctx context.Context, symbol string) (int, error) {
	quotes, err := s.client.RecentQuotes(ctx, symbol)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, q := range quotes {
		meta := service.PriceMeta{Source: "provider"}
		if _, err := s.priceService.Upsert(ctx, symbol, q.Date, q.Close, meta); err != nil {
			return written, err
		}
		written++
	}

	return written, nil
}

// BackfillRange pulls historical closes for one symbol and writes them into
// the price store. Used before generating historical plan operations so the
// backfill has prices to compute shares from.
func (s *SyncService) BackfillRange(ctx context.Context, symbol string, start, end time.Time) (int, error) {
	quotes, err := s.client.QuotesByDateRange(ctx, symbol, start, end)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, q := range quotes {
		meta := service.PriceMeta{Source: "provider"}
		if _, err := s.priceService.Upsert(ctx, symbol, q.Date, q.Close, meta); err != nil {
			return written, err
		}
		written++
	}

	return written, nil
}

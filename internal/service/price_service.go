package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"assetledger/internal/model"
	"assetledger/internal/repository"
)

// latestPriceTTL bounds how long a cached latest-price row may be served.
const latestPriceTTL = 5 * time.Minute

type cachedPrice struct {
	price     model.PricePoint
	expiresAt time.Time
}

// PriceService is the NAV store: a time-indexed table of (symbol, date) prices
// with upsert-or-overwrite semantics. The latest-price read path is cached with
// a bounded TTL; Upsert invalidates the affected symbol explicitly so readers
// never see a stale row after a write.
type PriceService struct {
	priceRepo *repository.PriceRepository

	mu    sync.Mutex
	cache map[string]cachedPrice
}

// NewPriceService creates a new PriceService with the provided repository dependency.
func NewPriceService(priceRepo *repository.PriceRepository) *PriceService {
	return &PriceService{
		priceRepo: priceRepo,
		cache:     make(map[string]cachedPrice),
	}
}

// PriceMeta carries the optional NAV fields supplied by price feeds.
type PriceMeta struct {
	AccumulatedPrice decimal.NullDecimal
	GrowthRate       decimal.NullDecimal
	Source           string
}

// Upsert writes the price for (symbol, date), overwriting any existing row for
// the same day, and invalidates the symbol's cached latest price.
func (s *PriceService) Upsert(ctx context.Context, symbol string, date time.Time, price decimal.Decimal, meta PriceMeta) (model.PricePoint, error) {
	pp := model.PricePoint{
		Symbol:           symbol,
		Date:             DateOnly(date),
		Price:            price,
		AccumulatedPrice: meta.AccumulatedPrice,
		GrowthRate:       meta.GrowthRate,
		Source:           meta.Source,
	}

	if err := s.priceRepo.Upsert(ctx, &pp); err != nil {
		return model.PricePoint{}, err
	}

	s.mu.Lock()
	delete(s.cache, symbol)
	s.mu.Unlock()

	return pp, nil
}

// Latest returns the most recent price row for the symbol.
// Returns apperrors.ErrPriceNotFound if the symbol has no prices.
func (s *PriceService) Latest(symbol string) (model.PricePoint, error) {
	s.mu.Lock()
	if entry, ok := s.cache[symbol]; ok && time.Now().Before(entry.expiresAt) {
		s.mu.Unlock()
		return entry.price, nil
	}
	s.mu.Unlock()

	pp, err := s.priceRepo.Latest(symbol)
	if err != nil {
		return model.PricePoint{}, err
	}

	s.mu.Lock()
	s.cache[symbol] = cachedPrice{price: pp, expiresAt: time.Now().Add(latestPriceTTL)}
	s.mu.Unlock()

	return pp, nil
}

// PriceOn returns the price for the exact date only; gaps are not filled from
// neighbouring days. Returns apperrors.ErrPriceNotFound when the day is missing.
func (s *PriceService) PriceOn(symbol string, date time.Time) (model.PricePoint, error) {
	return s.priceRepo.PriceOn(symbol, DateOnly(date))
}

// History returns up to limit price rows for the symbol, newest first.
func (s *PriceService) History(symbol string, limit int) ([]model.PricePoint, error) {
	return s.priceRepo.History(symbol, limit)
}

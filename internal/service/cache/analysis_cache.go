package cache

import (
	"context"
	"errors"
	"time"

	"EarnRev/internal/domain/models"
	"EarnRev/internal/domain/repository"
	pkgcache "EarnRev/pkg/cache"
	"EarnRev/pkg/logger"
)

const keyPrefix = "analysis:v1"

// AnalysisCache stores full backtest results in a pkg/cache backend.
// Cache failures are logged and treated as misses; they never fail an analysis.
type AnalysisCache struct {
	store pkgcache.Service
	ttl   time.Duration
	log   *logger.Logger
}

var _ repository.AnalysisCache = (*AnalysisCache)(nil)

func NewAnalysisCache(store pkgcache.Service, ttl time.Duration, log *logger.Logger) *AnalysisCache {
	if log == nil {
		log = logger.Nop()
	}
	return &AnalysisCache{store: store, ttl: ttl, log: log}
}

// Key returns the cache key for a ticker and event window.
func Key(ticker string, maxEvents int) string {
	return pkgcache.GenerateKeyWithParams(keyPrefix, ticker, maxEvents)
}

func (c *AnalysisCache) Get(ctx context.Context, ticker string, maxEvents int) (*models.AnalysisResult, bool) {
	var r models.AnalysisResult
	if err := c.store.Get(ctx, Key(ticker, maxEvents), &r); err != nil {
		if !errors.Is(err, pkgcache.ErrCacheMiss) {
			c.log.Warn("analysis cache read failed", logger.String("ticker", ticker), logger.Error(err))
		}
		return nil, false
	}
	return &r, true
}

func (c *AnalysisCache) Set(ctx context.Context, ticker string, maxEvents int, r *models.AnalysisResult) {
	if r == nil {
		return
	}
	if err := c.store.Set(ctx, Key(ticker, maxEvents), r, c.ttl); err != nil {
		c.log.Warn("analysis cache write failed", logger.String("ticker", ticker), logger.Error(err))
	}
}

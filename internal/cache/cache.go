package cache

import (
	"context"
	"time"

	"dastak/backend/internal/domain"
)

// ReportCache caches computed sales reports keyed by period and window
// start. Implementations must treat a miss as (nil, nil).
type ReportCache interface {
	Get(ctx context.Context, key string) (*domain.SalesReport, error)
	Set(ctx context.Context, key string, report domain.SalesReport, ttl time.Duration) error
	Close() error
}

// NoopReportCache is used when Redis is not configured; every lookup
// is a miss.
type NoopReportCache struct{}

func (NoopReportCache) Get(ctx context.Context, key string) (*domain.SalesReport, error) {
	return nil, nil
}

func (NoopReportCache) Set(ctx context.Context, key string, report domain.SalesReport, ttl time.Duration) error {
	return nil
}

func (NoopReportCache) Close() error { return nil }

package contracts

import (
	"context"
	"time"
)

// MarketDataProvider supplies option chains and daily bars.
// 구현체: internal/external/polygon
type MarketDataProvider interface {
	// ListExpiries returns the sorted, unique option expiries listed for symbol
	ListExpiries(ctx context.Context, symbol string) ([]time.Time, error)
	// ChainSnapshot returns the full chain for one expiry at request time
	ChainSnapshot(ctx context.Context, symbol string, expiry time.Time) (*ChainSnapshot, error)
	// DailyBars returns daily bars in [from, to], ascending
	DailyBars(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error)
}

// EarningsProvider supplies the earnings calendar.
// 구현체: internal/external/finnhub
type EarningsProvider interface {
	EarningsCalendar(ctx context.Context, from, to time.Time) ([]EarningsEvent, error)
}

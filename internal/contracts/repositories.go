package contracts

import (
	"context"
	"errors"
	"time"
)

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만

var (
	// ErrNotFound is returned when a requested row does not exist
	ErrNotFound = errors.New("not found")
	// ErrNoPrevious: 같은 거래일의 이전 장중 점수가 없음 (첫 실행)
	ErrNoPrevious = errors.New("no previous intraday score")
)

// EarningsRepository manages earnings_events
type EarningsRepository interface {
	UpsertBatch(ctx context.Context, events []EarningsEvent) error
	// ListByDateRange returns events with earnings_ts in [from, to), in the market timezone
	ListByDateRange(ctx context.Context, from, to time.Time) ([]EarningsEvent, error)
}

// OptionRepository manages option_contracts and option_snapshots
type OptionRepository interface {
	UpsertContracts(ctx context.Context, items []OptionContract) error
	InsertSnapshot(ctx context.Context, snap *ChainSnapshot) error
	// LatestOpenInterest returns the newest stored OI per option symbol strictly before asOf
	LatestOpenInterest(ctx context.Context, optionSymbols []string, asOf time.Time) (map[string]float64, error)
}

// DailySignalRepository manages daily_signals
type DailySignalRepository interface {
	UpsertBatch(ctx context.Context, records []DailySignalRecord) error
	ListByDate(ctx context.Context, tradeDate time.Time) ([]DailySignalRecord, error)
	// Get returns one (tradeDate, symbol) row, ErrNotFound when absent
	Get(ctx context.Context, tradeDate time.Time, symbol string) (*DailySignalRecord, error)
	// ListBySymbol returns one symbol's rows with trade_date in [from, to), ascending
	ListBySymbol(ctx context.Context, symbol string, from, to time.Time) ([]DailySignalRecord, error)
}

// IntradayScoreRepository manages intraday_signals
type IntradayScoreRepository interface {
	// GetPrevious returns the most recent score for (tradeDate, symbol), ErrNoPrevious when none
	GetPrevious(ctx context.Context, tradeDate time.Time, symbol string) (*PreviousIntradayScore, error)
	Save(ctx context.Context, rec *IntradaySignalRecord) error
	// ListLatestByDate returns the newest row per symbol, or every row of symbol when set
	ListLatestByDate(ctx context.Context, tradeDate time.Time, symbol string) ([]IntradaySignalRecord, error)
}

// OIDeltaRepository manages oi_deltas
type OIDeltaRepository interface {
	Upsert(ctx context.Context, delta OIDelta) error
	ListByDate(ctx context.Context, tradeDate time.Time) ([]OIDelta, error)
}

package brain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/eds/backend/internal/contracts"
	"github.com/wonny/eds/backend/internal/s1_events"
	"github.com/wonny/eds/backend/internal/s2_signals"
	"github.com/wonny/eds/backend/internal/s4_scoring"
	"github.com/wonny/eds/backend/internal/strategyconfig"
	"github.com/wonny/eds/backend/pkg/logger"
)

const dateLayout = "2006-01-02"

// D5 이력 조회 구간 (달력일)
const consistencyLookbackDays = 180

// Deps are the providers and repositories a run needs
type Deps struct {
	Market   contracts.MarketDataProvider
	Earnings contracts.EarningsProvider

	EarningsRepo contracts.EarningsRepository
	Options      contracts.OptionRepository
	Daily        contracts.DailySignalRepository
	Intraday     contracts.IntradayScoreRepository
	OIDeltas     contracts.OIDeltaRepository
}

// Config holds run parameters
type Config struct {
	Location     *time.Location // 시장 타임존
	Workers      int
	DaysAhead    int // 어닝 조회 범위 [trade_date, trade_date+DaysAhead]
	MaxEventDTE  int
	SectorSymbol string
	LookbackDays int
	OutDir       string // 비어 있으면 CSV 생략
}

// Orchestrator coordinates the post-close, pre-market and intraday runs
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Orchestrator struct {
	deps       Deps
	config     Config
	strategy   *strategyconfig.Config
	configHash string

	filter  *s1_events.Filter
	builder *s2_signals.Builder

	logger *logger.Logger
	now    func() time.Time
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(deps Deps, config Config, strategy *strategyconfig.Config, log *logger.Logger) (*Orchestrator, error) {
	if strategy == nil {
		strategy = strategyconfig.Default()
	}
	if err := strategyconfig.Validate(strategy); err != nil {
		return nil, fmt.Errorf("invalid strategy config: %w", err)
	}
	hash, err := strategyconfig.Hash(strategy)
	if err != nil {
		return nil, fmt.Errorf("hash strategy config: %w", err)
	}

	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.MaxEventDTE <= 0 {
		config.MaxEventDTE = s1_events.DefaultFilterConfig().MaxEventDTE
	}

	engine := s2_signals.NewEngine(deps.Market, s2_signals.EngineConfig{
		SectorSymbol: config.SectorSymbol,
		LookbackDays: config.LookbackDays,
	}, log)

	// nil Options 이면 스냅샷 저장 생략
	var sink s2_signals.SnapshotSink
	if deps.Options != nil {
		sink = deps.Options
	}

	return &Orchestrator{
		deps:       deps,
		config:     config,
		strategy:   strategy,
		configHash: hash,
		filter: s1_events.NewFilter(deps.Market, s1_events.FilterConfig{
			MaxEventDTE:      config.MaxEventDTE,
			RequireNeighbors: false,
		}, log),
		builder: s2_signals.NewBuilder(deps.Market, engine, sink, config.Workers, log),
		logger:  log.WithModule("brain"),
		now:     time.Now,
	}, nil
}

// ConfigHash returns the hash of the active strategy config
func (o *Orchestrator) ConfigHash() string {
	return o.configHash
}

// Today returns the current calendar date in the market timezone
func (o *Orchestrator) Today() time.Time {
	return contracts.DateOf(o.now().In(o.config.Location))
}

// runLogger tags one run's log lines with a fresh run id
func (o *Orchestrator) runLogger(job string) (string, *logger.Logger) {
	runID := uuid.NewString()
	return runID, o.logger.WithFields(map[string]interface{}{
		"job":    job,
		"run_id": runID,
	})
}

// localMidnight returns 00:00 of date in the market timezone
func (o *Orchestrator) localMidnight(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, o.config.Location)
}

// PreviousTradeDate returns the last weekday before date
func PreviousTradeDate(date time.Time) time.Time {
	d := contracts.DateOf(date).AddDate(0, 0, -1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// consistencyFor computes D5 for each symbol from its stored daily history.
// 이력이 부족하거나 조회 실패 시 해당 심볼은 0
func (o *Orchestrator) consistencyFor(ctx context.Context, symbols []string, tradeDate time.Time) map[string]float64 {
	out := make(map[string]float64, len(symbols))
	cfg := o.strategy.Daily.Consistency
	from := contracts.DateOf(tradeDate).AddDate(0, 0, -consistencyLookbackDays)

	for _, symbol := range symbols {
		history, err := o.deps.Daily.ListBySymbol(ctx, symbol, from, tradeDate)
		if err != nil {
			o.logger.WithError(err).WithField("symbol", symbol).Warn("Consistency history unavailable")
			continue
		}
		if len(history) < cfg.MinPoints {
			continue
		}

		bars, err := o.deps.Market.DailyBars(ctx, symbol, history[0].TradeDate, tradeDate)
		if err != nil {
			o.logger.WithError(err).WithField("symbol", symbol).Warn("Consistency bars unavailable")
			continue
		}

		signs, returns := s4_scoring.ConsistencyInputs(history, bars)
		out[symbol] = s4_scoring.Consistency(signs, returns, cfg)
	}

	return out
}

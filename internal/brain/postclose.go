package brain

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/eds/backend/internal/contracts"
	"github.com/wonny/eds/backend/internal/metrics"
	"github.com/wonny/eds/backend/internal/s2_signals"
	"github.com/wonny/eds/backend/internal/s3_normalize"
	"github.com/wonny/eds/backend/internal/s4_scoring"
)

const jobPostClose = "post_close"

// PostCloseResult holds the outcome of one post-close run
type PostCloseResult struct {
	RunID      string
	TradeDate  time.Time
	Events     int
	Tradeable  int
	Records    []contracts.DailySignalRecord // |score| 내림차순
	CSVPath    string
	ConfigHash string
	Duration   time.Duration
}

// RunPostClose scores every upcoming earnings event after the close.
// 어닝 → 만기 필터 → 시그널 → 정규화 → 점수 → 저장/CSV
func (o *Orchestrator) RunPostClose(ctx context.Context, tradeDate time.Time) (*PostCloseResult, error) {
	start := time.Now()
	runID, log := o.runLogger(jobPostClose)
	tradeDate = contracts.DateOf(tradeDate)

	result := &PostCloseResult{
		RunID:      runID,
		TradeDate:  tradeDate,
		ConfigHash: o.configHash,
	}

	log.WithFields(map[string]interface{}{
		"trade_date":  tradeDate.Format(dateLayout),
		"days_ahead":  o.config.DaysAhead,
		"config_hash": o.configHash,
	}).Info("Starting post-close run")

	// 1. Earnings
	events, err := o.deps.Earnings.EarningsCalendar(ctx, tradeDate, tradeDate.AddDate(0, 0, o.config.DaysAhead))
	if err != nil {
		return result, fmt.Errorf("fetch earnings: %w", err)
	}
	result.Events = len(events)
	if err := o.deps.EarningsRepo.UpsertBatch(ctx, events); err != nil {
		return result, fmt.Errorf("save earnings: %w", err)
	}
	if len(events) == 0 {
		log.Info("No earnings events, nothing to score")
		result.Duration = time.Since(start)
		return result, nil
	}

	// 2. Expiry filter
	tradeable := o.filter.BatchFilter(ctx, events)
	result.Tradeable = len(tradeable)
	metrics.RecordSymbols(jobPostClose, "filter", 0, len(events)-len(tradeable))
	if len(tradeable) == 0 {
		log.Info("No tradeable events after expiry filter")
		result.Duration = time.Since(start)
		return result, nil
	}

	// 3. Signals (worker pool, barrier)
	reqs := make([]s2_signals.BuildRequest, len(tradeable))
	for i, te := range tradeable {
		reqs[i] = s2_signals.BuildRequest{
			Symbol:        te.Symbol,
			TradeDate:     tradeDate,
			Expiries:      te.Expiries,
			WithNeighbors: true,
		}
	}
	built := o.builder.Build(ctx, reqs)
	metrics.RecordSymbols(jobPostClose, "signals", len(built), len(reqs)-len(built))
	if err := ctx.Err(); err != nil {
		return result, err
	}
	if len(built) == 0 {
		log.Warn("No signals computed")
		result.Duration = time.Since(start)
		return result, nil
	}

	bundles := make([]*contracts.SignalBundle, len(built))
	symbols := make([]string, len(built))
	for i, b := range built {
		bundles[i] = b.Bundle
		symbols[i] = b.Bundle.Symbol
	}

	// 4. Normalize + score
	normalized := s3_normalize.NormalizeBatch(bundles, contracts.DailySignalFields, o.strategy.Normalize.WinsorizeStd)
	consistency := o.consistencyFor(ctx, symbols, tradeDate)
	scores := s4_scoring.ScoreDailyBatch(normalized, consistency, o.strategy.Daily)

	records := o.dailyRecords(tradeDate, bundles, scores)
	SortByAbsScore(records)
	result.Records = records

	// 5. Persist + export
	if err := o.deps.Daily.UpsertBatch(ctx, records); err != nil {
		return result, fmt.Errorf("save daily signals: %w", err)
	}
	for _, r := range records {
		metrics.RecordDecision(jobPostClose, string(r.Decision))
	}

	if o.config.OutDir != "" {
		path, err := ExportPredictions(o.config.OutDir, tradeDate, records)
		if err != nil {
			return result, fmt.Errorf("export predictions: %w", err)
		}
		result.CSVPath = path
	}

	result.Duration = time.Since(start)

	log.WithFields(map[string]interface{}{
		"trade_date": tradeDate.Format(dateLayout),
		"events":     result.Events,
		"tradeable":  result.Tradeable,
		"scored":     len(records),
		"csv":        result.CSVPath,
		"duration":   result.Duration.Seconds(),
	}).Info("Post-close run completed")

	return result, nil
}

// dailyRecords pairs bundles with their scores; 두 슬라이스는 같은 순서
func (o *Orchestrator) dailyRecords(tradeDate time.Time, bundles []*contracts.SignalBundle, scores []contracts.DirectionalScore) []contracts.DailySignalRecord {
	records := make([]contracts.DailySignalRecord, len(scores))
	for i, s := range scores {
		records[i] = contracts.DailySignalRecord{
			TradeDate:  tradeDate,
			Bundle:     *bundles[i],
			Score:      s.Score,
			Decision:   s.Decision,
			Direction:  s.Direction,
			Conviction: s.Conviction,
			Structure:  s.Structure,
			ConfigHash: o.configHash,
		}
	}
	return records
}

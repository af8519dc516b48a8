package brain

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/eds/backend/internal/contracts"
	"github.com/wonny/eds/backend/internal/metrics"
	"github.com/wonny/eds/backend/internal/s3_normalize"
	"github.com/wonny/eds/backend/internal/s4_scoring"
)

const (
	jobPreMarket = "pre_market"

	// ATM 최근접 행사가 기준 ±2 행사가
	atmStrikeWindow = 2
)

// PreMarketResult holds the outcome of one pre-market ΔOI run
type PreMarketResult struct {
	RunID     string
	TradeDate time.Time
	Signals   int
	Deltas    []contracts.OIDelta
	Records   []contracts.DailySignalRecord // 재점수 결과, ΔOI 가 없으면 nil
	Duration  time.Duration
}

// RunPreMarket refreshes ΔOI for tradeDate's daily signals and re-scores them.
// tradeDate 는 전 거래일 (post-close 실행일)
func (o *Orchestrator) RunPreMarket(ctx context.Context, tradeDate time.Time) (*PreMarketResult, error) {
	start := time.Now()
	runID, log := o.runLogger(jobPreMarket)
	tradeDate = contracts.DateOf(tradeDate)
	result := &PreMarketResult{RunID: runID, TradeDate: tradeDate}

	log.WithField("trade_date", tradeDate.Format(dateLayout)).Info("Starting pre-market run")

	// ΔOI 는 저장된 OI 가 기준이므로 Options 저장소 없이는 실행 불가
	if o.deps.Options == nil || o.deps.OIDeltas == nil {
		return result, fmt.Errorf("pre-market run requires option and oi delta repositories")
	}

	records, err := o.deps.Daily.ListByDate(ctx, tradeDate)
	if err != nil {
		return result, fmt.Errorf("load daily signals: %w", err)
	}
	result.Signals = len(records)
	if len(records) == 0 {
		log.Info("No daily signals for trade date")
		result.Duration = time.Since(start)
		return result, nil
	}

	asOf := o.now()
	deltas := make([]*contracts.OIDelta, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Workers)
	for i := range records {
		i := i
		g.Go(func() error {
			rec := records[i]
			d, err := o.computeOIDelta(gctx, tradeDate, asOf, rec.Symbol(), rec.Bundle.EventExpiry)
			if err != nil {
				// 심볼 단위 실패는 제외하고 계속
				log.WithError(err).WithField("symbol", rec.Symbol()).Warn("ΔOI unavailable")
				return nil
			}
			deltas[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	bySymbol := make(map[string]contracts.OIDelta)
	for _, d := range deltas {
		if d == nil {
			continue
		}
		if err := o.deps.OIDeltas.Upsert(ctx, *d); err != nil {
			return result, fmt.Errorf("save oi delta: %w", err)
		}
		result.Deltas = append(result.Deltas, *d)
		bySymbol[d.Symbol] = *d
	}
	metrics.RecordSymbols(jobPreMarket, "oi_delta", len(bySymbol), len(records)-len(bySymbol))

	if len(bySymbol) == 0 {
		log.Warn("No valid ΔOI, skipping re-score")
		result.Duration = time.Since(start)
		return result, nil
	}

	rescored, err := o.rescoreWithOI(ctx, tradeDate, records, bySymbol)
	if err != nil {
		return result, err
	}
	result.Records = rescored
	result.Duration = time.Since(start)

	log.WithFields(map[string]interface{}{
		"trade_date": tradeDate.Format(dateLayout),
		"signals":    result.Signals,
		"deltas":     len(result.Deltas),
		"duration":   result.Duration.Seconds(),
	}).Info("Pre-market run completed")

	return result, nil
}

// computeOIDelta snapshots the event chain and compares ATM-window OI with the last stored OI
func (o *Orchestrator) computeOIDelta(ctx context.Context, tradeDate, asOf time.Time, symbol string, expiry *time.Time) (*contracts.OIDelta, error) {
	if expiry == nil {
		return nil, fmt.Errorf("missing event expiry")
	}

	snap, err := o.deps.Market.ChainSnapshot(ctx, symbol, *expiry)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	if snap.Empty() {
		return nil, fmt.Errorf("empty snapshot")
	}

	spot := contracts.SpotPrice(snap.Contracts)
	if spot == nil {
		return nil, fmt.Errorf("missing spot")
	}

	window := ATMWindow(snap.Contracts, *spot, atmStrikeWindow)
	if len(window) == 0 {
		return nil, fmt.Errorf("no contracts in ATM window")
	}

	optionSymbols := make([]string, 0, len(window))
	for _, c := range window {
		optionSymbols = append(optionSymbols, c.OptionSymbol)
	}
	previous, err := o.deps.Options.LatestOpenInterest(ctx, optionSymbols, asOf)
	if err != nil {
		return nil, fmt.Errorf("previous open interest: %w", err)
	}

	calls, puts := OIDeltaTotals(window, previous)

	// 다음 실행의 기준값으로 저장
	windowSnap := &contracts.ChainSnapshot{Symbol: symbol, Expiry: *expiry, AsOf: asOf, Contracts: window}
	if err := o.deps.Options.UpsertContracts(ctx, window); err != nil {
		o.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to upsert contracts")
	} else if err := o.deps.Options.InsertSnapshot(ctx, windowSnap); err != nil {
		o.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to insert snapshot")
	}

	o.logger.WithFields(map[string]interface{}{
		"symbol":     symbol,
		"d_oi_calls": calls,
		"d_oi_puts":  puts,
	}).Debug("Computed ΔOI")

	exp := contracts.DateOf(*expiry)
	return &contracts.OIDelta{
		TradeDate:   tradeDate,
		Symbol:      symbol,
		EventExpiry: &exp,
		CallsDelta:  calls,
		PutsDelta:   puts,
	}, nil
}

// ATMWindow returns the contracts whose strike is within ±width strikes of the
// strike closest to spot
func ATMWindow(chain []contracts.OptionContract, spot float64, width int) []contracts.OptionContract {
	seen := make(map[float64]bool)
	var strikes []float64
	for _, c := range chain {
		if c.Strike <= 0 || seen[c.Strike] {
			continue
		}
		seen[c.Strike] = true
		strikes = append(strikes, c.Strike)
	}
	if len(strikes) == 0 {
		return nil
	}
	sort.Float64s(strikes)

	closest := 0
	for i, k := range strikes {
		if math.Abs(k-spot) < math.Abs(strikes[closest]-spot) {
			closest = i
		}
	}
	lo := max(0, closest-width)
	hi := min(len(strikes)-1, closest+width)

	inWindow := make(map[float64]bool, hi-lo+1)
	for _, k := range strikes[lo : hi+1] {
		inWindow[k] = true
	}

	var out []contracts.OptionContract
	for _, c := range chain {
		if inWindow[c.Strike] && c.OptionSymbol != "" {
			out = append(out, c)
		}
	}
	return out
}

// OIDeltaTotals sums current minus previous OI per side.
// 현재 OI 가 없는 계약은 제외, 이전 기록이 없으면 이전 OI 0
func OIDeltaTotals(window []contracts.OptionContract, previous map[string]float64) (calls, puts int64) {
	for _, c := range window {
		if c.OpenInterest == nil {
			continue
		}
		d := int64(*c.OpenInterest) - int64(previous[c.OptionSymbol])
		switch c.Type {
		case contracts.OptionCall:
			calls += d
		case contracts.OptionPut:
			puts += d
		}
	}
	return calls, puts
}

// rescoreWithOI re-normalizes the stored bundles with ΔOI net and upserts the new scores.
// ΔOI 가 없는 심볼은 nil 유지 (z 기본값 0)
func (o *Orchestrator) rescoreWithOI(ctx context.Context, tradeDate time.Time, records []contracts.DailySignalRecord, deltas map[string]contracts.OIDelta) ([]contracts.DailySignalRecord, error) {
	bundles := make([]*contracts.SignalBundle, len(records))
	symbols := make([]string, len(records))
	for i := range records {
		b := records[i].Bundle
		if d, ok := deltas[b.Symbol]; ok {
			b.DeltaOINet = contracts.Float(float64(d.Net()))
		}
		bundles[i] = &b
		symbols[i] = b.Symbol
	}

	normalized := s3_normalize.NormalizeBatch(bundles, contracts.PreMarketSignalFields, o.strategy.Normalize.WinsorizeStd)
	consistency := o.consistencyFor(ctx, symbols, tradeDate)
	scores := s4_scoring.ScoreDailyBatch(normalized, consistency, o.strategy.Daily)

	rescored := o.dailyRecords(tradeDate, bundles, scores)
	SortByAbsScore(rescored)

	if err := o.deps.Daily.UpsertBatch(ctx, rescored); err != nil {
		return nil, fmt.Errorf("save re-scored daily signals: %w", err)
	}
	for _, r := range rescored {
		metrics.RecordDecision(jobPreMarket, string(r.Decision))
	}

	return rescored, nil
}

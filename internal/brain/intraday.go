package brain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/eds/backend/internal/contracts"
	"github.com/wonny/eds/backend/internal/metrics"
	"github.com/wonny/eds/backend/internal/s1_events"
	"github.com/wonny/eds/backend/internal/s2_signals"
	"github.com/wonny/eds/backend/internal/s3_normalize"
	"github.com/wonny/eds/backend/internal/s4_scoring"
)

const jobIntraday = "intraday"

// 장중 모니터링 대상 어닝 구간 (시장 타임존)
const (
	afterCloseHour   = 13 // 당일 13:00 이후
	beforeOpenHour   = 6  // 익일 06:30 이전
	beforeOpenMinute = 30

	// 어닝 시각을 모를 때 장 마감 발표로 가정
	assumedEarningsHour = 16
)

// IntradayResult holds the outcome of one intraday run
type IntradayResult struct {
	RunID     string
	TradeDate time.Time
	AsOf      time.Time
	Events    int
	Records   []contracts.IntradaySignalRecord
	Failed    []string // 저장 실패 심볼
	Duration  time.Duration
}

// RunIntraday nowcasts today's after-close and tomorrow's pre-open earnings
func (o *Orchestrator) RunIntraday(ctx context.Context, tradeDate time.Time) (*IntradayResult, error) {
	start := time.Now()
	runID, log := o.runLogger(jobIntraday)
	tradeDate = contracts.DateOf(tradeDate)
	result := &IntradayResult{RunID: runID, TradeDate: tradeDate, AsOf: o.now()}

	log.WithField("trade_date", tradeDate.Format(dateLayout)).Info("Starting intraday run")

	events, err := o.intradayEvents(ctx, tradeDate)
	if err != nil {
		return result, err
	}
	result.Events = len(events)
	if len(events) == 0 {
		log.Info("No earnings events in intraday window")
		result.Duration = time.Since(start)
		return result, nil
	}

	reqs := o.intradayRequests(ctx, tradeDate, events)
	metrics.RecordSymbols(jobIntraday, "filter", 0, len(events)-len(reqs))
	if len(reqs) == 0 {
		result.Duration = time.Since(start)
		return result, nil
	}

	built := o.builder.Build(ctx, reqs)
	metrics.RecordSymbols(jobIntraday, "signals", len(built), len(reqs)-len(built))
	if err := ctx.Err(); err != nil {
		return result, err
	}
	if len(built) == 0 {
		log.Warn("No intraday signals computed")
		result.Duration = time.Since(start)
		return result, nil
	}

	bundles := make([]*contracts.SignalBundle, len(built))
	for i, b := range built {
		bundles[i] = b.Bundle
	}

	normalized := s3_normalize.NormalizeBatch(bundles, contracts.IntradaySignalFields, o.strategy.Normalize.WinsorizeStd)
	scores := s4_scoring.ScoreIntradayBatch(normalized, o.strategy.Intraday)

	smoothing := o.strategy.Intraday.Smoothing
	var saveErrs []error
	for i, scored := range scores {
		symbol := bundles[i].Symbol

		var previous *contracts.PreviousIntradayScore
		prev, err := o.deps.Intraday.GetPrevious(ctx, tradeDate, symbol)
		switch {
		case err == nil:
			previous = prev
		case errors.Is(err, contracts.ErrNoPrevious):
		default:
			// 이전 점수 조회 실패는 첫 실행으로 취급
			log.WithError(err).WithField("symbol", symbol).Warn("Previous intraday score unavailable")
		}

		state := s4_scoring.ApplyIntradaySmoothing(symbol, tradeDate, scored, previous, smoothing)

		rec := contracts.IntradaySignalRecord{
			TradeDate:  tradeDate,
			AsOf:       result.AsOf,
			Bundle:     *bundles[i],
			Normalized: normalized[i].Values,
			State:      state,
			EWMAAlpha:  smoothing.EWMAAlpha,
		}
		if err := o.deps.Intraday.Save(ctx, &rec); err != nil {
			// 나머지 심볼은 계속 저장
			log.WithError(err).WithField("symbol", symbol).Error("Failed to save intraday score")
			result.Failed = append(result.Failed, symbol)
			saveErrs = append(saveErrs, fmt.Errorf("%s: %w", symbol, err))
			continue
		}

		metrics.RecordDecision(jobIntraday, string(state.Decision))
		result.Records = append(result.Records, rec)
	}

	result.Duration = time.Since(start)
	metrics.RecordSymbols(jobIntraday, "persist", 0, len(result.Failed))

	log.WithFields(map[string]interface{}{
		"trade_date": tradeDate.Format(dateLayout),
		"events":     result.Events,
		"scored":     len(result.Records),
		"failed":     len(result.Failed),
		"duration":   result.Duration.Seconds(),
	}).Info("Intraday run completed")

	if len(saveErrs) > 0 {
		return result, fmt.Errorf("save intraday scores (%d/%d failed): %w", len(saveErrs), len(scores), errors.Join(saveErrs...))
	}
	return result, nil
}

// intradayEvents loads today's after-close and tomorrow's pre-open events.
// DB 구간이 비어 있으면 해당 구간만 Finnhub 에서 조회 후 저장
func (o *Orchestrator) intradayEvents(ctx context.Context, tradeDate time.Time) ([]contracts.EarningsEvent, error) {
	tomorrow := tradeDate.AddDate(0, 0, 1)
	todayStart := o.localMidnight(tradeDate).Add(afterCloseHour * time.Hour)
	todayEnd := o.localMidnight(tomorrow)
	tomorrowEnd := todayEnd.Add(beforeOpenHour*time.Hour + beforeOpenMinute*time.Minute)

	afterClose, err := o.deps.EarningsRepo.ListByDateRange(ctx, todayStart, todayEnd)
	if err != nil {
		return nil, fmt.Errorf("load after-close earnings: %w", err)
	}
	if len(afterClose) == 0 {
		afterClose = o.fetchEarnings(ctx, tradeDate, contracts.SessionAMC)
	}

	beforeOpen, err := o.deps.EarningsRepo.ListByDateRange(ctx, todayEnd, tomorrowEnd)
	if err != nil {
		return nil, fmt.Errorf("load pre-open earnings: %w", err)
	}
	if len(beforeOpen) == 0 {
		beforeOpen = o.fetchEarnings(ctx, tomorrow, contracts.SessionBMO)
	}

	seen := make(map[string]bool)
	var out []contracts.EarningsEvent
	for _, e := range append(afterClose, beforeOpen...) {
		if seen[e.Symbol] {
			continue
		}
		seen[e.Symbol] = true
		out = append(out, e)
	}
	return out, nil
}

// fetchEarnings pulls one day from the provider, saves it, and keeps session matches
func (o *Orchestrator) fetchEarnings(ctx context.Context, date time.Time, session contracts.Session) []contracts.EarningsEvent {
	events, err := o.deps.Earnings.EarningsCalendar(ctx, date, date)
	if err != nil {
		o.logger.WithError(err).WithField("date", date.Format(dateLayout)).Warn("Earnings fallback fetch failed")
		return nil
	}
	if err := o.deps.EarningsRepo.UpsertBatch(ctx, events); err != nil {
		o.logger.WithError(err).Warn("Failed to save fetched earnings")
	}

	var out []contracts.EarningsEvent
	for _, e := range events {
		if e.Session == session {
			out = append(out, e)
		}
	}
	return out
}

// intradayRequests resolves the event expiry of each event, assuming a 16:00 release
func (o *Orchestrator) intradayRequests(ctx context.Context, tradeDate time.Time, events []contracts.EarningsEvent) []s2_signals.BuildRequest {
	reqs := make([]s2_signals.BuildRequest, 0, len(events))
	for _, e := range events {
		if ctx.Err() != nil {
			break
		}

		expiries, err := o.deps.Market.ListExpiries(ctx, e.Symbol)
		if err != nil || len(expiries) == 0 {
			o.logger.WithField("symbol", e.Symbol).Warn("No option expiries available")
			continue
		}

		d := e.EarningsDate()
		assumed := time.Date(d.Year(), d.Month(), d.Day(), assumedEarningsHour, 0, 0, 0, o.config.Location)
		triple := s1_events.ResolveEventAndNeighbors(assumed, expiries)
		if triple.Event == nil {
			o.logger.WithField("symbol", e.Symbol).Warn("No event expiry for earnings date")
			continue
		}

		reqs = append(reqs, s2_signals.BuildRequest{
			Symbol:    e.Symbol,
			TradeDate: tradeDate,
			Expiries:  contracts.ExpiryTriple{Event: triple.Event},
		})
	}
	return reqs
}

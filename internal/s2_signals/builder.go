package s2_signals

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/eds/backend/internal/contracts"
	"github.com/wonny/eds/backend/pkg/logger"
)

// ChainSource supplies option chain snapshots
type ChainSource interface {
	ChainSnapshot(ctx context.Context, symbol string, expiry time.Time) (*contracts.ChainSnapshot, error)
}

// SnapshotSink persists fetched chains. nil 이면 저장 생략
type SnapshotSink interface {
	UpsertContracts(ctx context.Context, items []contracts.OptionContract) error
	InsertSnapshot(ctx context.Context, snap *contracts.ChainSnapshot) error
}

// BuildRequest describes one symbol to compute
type BuildRequest struct {
	Symbol        string
	TradeDate     time.Time
	Expiries      contracts.ExpiryTriple
	WithNeighbors bool // prev/next 체인도 조회 (일간)
}

// BuildResult is one computed bundle plus the event chain it came from
type BuildResult struct {
	Bundle *contracts.SignalBundle
	Event  *contracts.ChainSnapshot
}

// Builder fans per-symbol signal computation out over a worker pool
// ⭐ SSOT: 시그널 생성 오케스트레이션은 여기서만
type Builder struct {
	chains  ChainSource
	engine  *Engine
	sink    SnapshotSink
	workers int
	logger  *logger.Logger
}

// NewBuilder creates a new signal builder
func NewBuilder(chains ChainSource, engine *Engine, sink SnapshotSink, workers int, log *logger.Logger) *Builder {
	return &Builder{
		chains:  chains,
		engine:  engine,
		sink:    sink,
		workers: workers,
		logger:  log.WithModule("s2_builder"),
	}
}

// Build computes bundles for all requests. 결과는 요청 순서, 실패 심볼은 제외
func (b *Builder) Build(ctx context.Context, reqs []BuildRequest) []BuildResult {
	b.logger.WithFields(map[string]interface{}{
		"symbol_count": len(reqs),
		"workers":      b.workers,
	}).Info("Starting signal generation")

	results := RunPool(ctx, b.logger, b.workers, reqs,
		func(r BuildRequest) string { return r.Symbol },
		b.buildOne,
	)

	out := make([]BuildResult, len(results))
	for i, r := range results {
		out[i] = r.Value
	}
	return out
}

func (b *Builder) buildOne(ctx context.Context, req BuildRequest) (BuildResult, error) {
	if req.Expiries.Event == nil {
		return BuildResult{}, fmt.Errorf("no event expiry")
	}

	event, err := b.chains.ChainSnapshot(ctx, req.Symbol, *req.Expiries.Event)
	if err != nil {
		return BuildResult{}, fmt.Errorf("event chain: %w", err)
	}
	if event.Empty() {
		return BuildResult{}, fmt.Errorf("event chain is empty")
	}

	var prev, next *contracts.ChainSnapshot
	if req.WithNeighbors {
		prev = b.neighbor(ctx, req.Symbol, req.Expiries.Prev)
		next = b.neighbor(ctx, req.Symbol, req.Expiries.Next)
	}

	b.persist(ctx, req.Symbol, event, prev, next)

	baseline := b.engine.Baseline(ctx, req.Symbol, req.TradeDate)
	bundle := b.engine.ComputeAll(ctx, ComputeInput{
		Symbol:      req.Symbol,
		AsOf:        event.AsOf,
		TradeDate:   req.TradeDate,
		EventExpiry: req.Expiries.Event,
		Event:       event,
		Prev:        prev,
		Next:        next,
		Baseline:    &baseline,
	})

	b.logger.WithFields(map[string]interface{}{
		"symbol":    req.Symbol,
		"contracts": len(event.Contracts),
	}).Debug("Computed signals")

	return BuildResult{Bundle: bundle, Event: event}, nil
}

// neighbor fetches an optional neighbor chain. 실패해도 심볼은 유지
func (b *Builder) neighbor(ctx context.Context, symbol string, expiry *time.Time) *contracts.ChainSnapshot {
	if expiry == nil {
		return nil
	}
	snap, err := b.chains.ChainSnapshot(ctx, symbol, *expiry)
	if err != nil {
		b.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"expiry": expiry.Format("2006-01-02"),
			"error":  err.Error(),
		}).Warn("Neighbor chain unavailable")
		return nil
	}
	return snap
}

func (b *Builder) persist(ctx context.Context, symbol string, snaps ...*contracts.ChainSnapshot) {
	if b.sink == nil {
		return
	}
	for _, snap := range snaps {
		if snap.Empty() {
			continue
		}
		if err := b.sink.UpsertContracts(ctx, snap.Contracts); err != nil {
			b.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to upsert contracts")
			continue
		}
		if err := b.sink.InsertSnapshot(ctx, snap); err != nil {
			b.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to insert snapshot")
		}
	}
}

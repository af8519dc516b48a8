package s2_signals

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/eds/backend/internal/contracts"
	"github.com/wonny/eds/backend/pkg/logger"
)

// BarSource supplies daily bars for momentum and baselines
type BarSource interface {
	DailyBars(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error)
}

// EngineConfig holds signal engine parameters
type EngineConfig struct {
	SectorSymbol string // 베타 기준 (기본 SPY)
	LookbackDays int    // 모멘텀 합산 일수 (기본 3)
}

// Engine computes the raw signal bundle for one symbol
// ⭐ SSOT: 시그널 계산은 여기서만
type Engine struct {
	bars   BarSource
	config EngineConfig
	logger *logger.Logger

	// 섹터 바는 실행 내 모든 심볼이 공유
	mu         sync.Mutex
	sectorBars map[string][]contracts.Bar
}

// NewEngine creates a new signal engine
func NewEngine(bars BarSource, config EngineConfig, log *logger.Logger) *Engine {
	if config.SectorSymbol == "" {
		config.SectorSymbol = "SPY"
	}
	if config.LookbackDays < 1 {
		config.LookbackDays = 3
	}
	return &Engine{
		bars:       bars,
		config:     config,
		logger:     log.WithModule("s2_signals"),
		sectorBars: make(map[string][]contracts.Bar),
	}
}

// ComputeInput is everything ComputeAll needs for one symbol
type ComputeInput struct {
	Symbol      string
	AsOf        time.Time
	TradeDate   time.Time // 모멘텀 기준일
	EventExpiry *time.Time
	Event       *contracts.ChainSnapshot
	Prev        *contracts.ChainSnapshot // optional
	Next        *contracts.ChainSnapshot // optional
	Baseline    *Med20Baseline           // nil 이면 thrust 없음
}

// ComputeAll computes every signal for one symbol. Missing data yields nil
// fields, never an error.
func (e *Engine) ComputeAll(ctx context.Context, in ComputeInput) *contracts.SignalBundle {
	event := in.Event.ContractsOrNil()
	spot := contracts.SpotPrice(event)

	bundle := &contracts.SignalBundle{
		Symbol:      in.Symbol,
		AsOf:        in.AsOf,
		EventExpiry: in.EventExpiry,
		SpotPrice:   spot,
	}

	bundle.RR25 = RR25(event)

	pcr := PCR(event)
	bundle.VolPCR = pcr.VolPCR
	bundle.NotionalPCR = pcr.NotionalPCR

	if in.Baseline != nil {
		thrust := VolumeThrust(event, *in.Baseline)
		bundle.CallThrust = thrust.CallThrust
		bundle.PutThrust = thrust.PutThrust
		bundle.NetThrust = thrust.NetThrust
	}
	bundle.CallVolume, bundle.PutVolume = SideVolumes(event)

	bundle.ATMIVEvent = ATMIV(event, spot)
	if !in.Prev.Empty() {
		bundle.ATMIVPrev = ATMIV(in.Prev.Contracts, spot)
	}
	if !in.Next.Empty() {
		bundle.ATMIVNext = ATMIV(in.Next.Contracts, spot)
	}
	bundle.IVBump = IVBump(bundle.ATMIVEvent, bundle.ATMIVPrev, bundle.ATMIVNext)

	bundle.SpreadPctATM = SpreadPctATM(event, spot)

	if mom := e.momentum(ctx, in.Symbol, in.TradeDate); mom != nil {
		bundle.StockReturn = &mom.StockReturn
		bundle.SectorReturn = &mom.SectorReturn
		bundle.Beta = &mom.Beta
		bundle.BetaAdjReturn = &mom.BetaAdjReturn
	}

	return bundle
}

// Baseline estimates the option volume baseline for symbol as of date
func (e *Engine) Baseline(ctx context.Context, symbol string, date time.Time) Med20Baseline {
	from, to := BaselineWindow(date)
	bars, err := e.bars.DailyBars(ctx, symbol, from, to)
	if err != nil {
		e.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"error":  err.Error(),
		}).Warn("Baseline bars unavailable, using fallback")
		return FallbackBaseline
	}
	return BaselineFromBars(bars)
}

func (e *Engine) momentum(ctx context.Context, symbol string, date time.Time) *MomentumResult {
	if e.bars == nil || date.IsZero() {
		return nil
	}
	from, to := MomentumWindow(date, e.config.LookbackDays)

	stockBars, err := e.bars.DailyBars(ctx, symbol, from, to)
	if err != nil {
		e.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"error":  err.Error(),
		}).Warn("Momentum bars unavailable")
		return nil
	}

	sectorBars, err := e.sector(ctx, from, to)
	if err != nil {
		e.logger.WithFields(map[string]interface{}{
			"sector": e.config.SectorSymbol,
			"error":  err.Error(),
		}).Warn("Sector bars unavailable")
		return nil
	}

	return BetaAdjustedMomentum(stockBars, sectorBars, e.config.LookbackDays)
}

// sector returns the benchmark bars for the window, fetched once per window
func (e *Engine) sector(ctx context.Context, from, to time.Time) ([]contracts.Bar, error) {
	key := fmt.Sprintf("%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"))

	e.mu.Lock()
	defer e.mu.Unlock()

	if bars, ok := e.sectorBars[key]; ok {
		return bars, nil
	}

	bars, err := e.bars.DailyBars(ctx, e.config.SectorSymbol, from, to)
	if err != nil {
		return nil, err
	}
	e.sectorBars[key] = bars
	return bars, nil
}

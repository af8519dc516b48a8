package s1_events

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/eds/backend/internal/contracts"
	"github.com/wonny/eds/backend/pkg/logger"
)

// ExpiryLookup returns the listed expiries for a symbol
type ExpiryLookup interface {
	ListExpiries(ctx context.Context, symbol string) ([]time.Time, error)
}

// FilterConfig controls BatchFilter
type FilterConfig struct {
	MaxEventDTE      int  `yaml:"max_event_dte"`
	RequireNeighbors bool `yaml:"require_neighbors"`
}

// DefaultFilterConfig returns the post-close defaults
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MaxEventDTE:      60,
		RequireNeighbors: false,
	}
}

// Filter resolves and validates expiries for a batch of earnings events
type Filter struct {
	lookup ExpiryLookup
	config FilterConfig
	logger *logger.Logger
}

// NewFilter creates a new expiry filter
func NewFilter(lookup ExpiryLookup, config FilterConfig, log *logger.Logger) *Filter {
	return &Filter{
		lookup: lookup,
		config: config,
		logger: log.WithModule("s1_events"),
	}
}

// BatchFilter returns the tradeable subset of events, in input order.
// 심볼 단위 실패는 로그 후 제외. 배치 전체는 중단하지 않음
func (f *Filter) BatchFilter(ctx context.Context, events []contracts.EarningsEvent) []contracts.TradeableEvent {
	result := make([]contracts.TradeableEvent, 0, len(events))

	vcfg := DefaultValidationConfig()
	vcfg.MaxEventDTE = f.config.MaxEventDTE

	for _, ev := range events {
		if ctx.Err() != nil {
			f.logger.WithError(ctx.Err()).Warn("Batch filter cancelled")
			break
		}

		te, err := f.resolve(ctx, ev, vcfg)
		if err != nil {
			f.logger.WithFields(map[string]interface{}{
				"symbol": ev.Symbol,
				"error":  err.Error(),
			}).Warn("Dropping earnings event")
			continue
		}
		if te == nil {
			continue
		}

		result = append(result, *te)
	}

	f.logger.WithFields(map[string]interface{}{
		"total":     len(events),
		"tradeable": len(result),
	}).Info("Expiry filter completed")

	return result
}

// resolve handles one event. panic 은 해당 심볼만 제외하도록 error 로 변환
func (f *Filter) resolve(ctx context.Context, ev contracts.EarningsEvent, vcfg ValidationConfig) (te *contracts.TradeableEvent, err error) {
	defer func() {
		if r := recover(); r != nil {
			te, err = nil, fmt.Errorf("panic resolving expiries: %v", r)
		}
	}()

	expiries, err := f.lookup.ListExpiries(ctx, ev.Symbol)
	if err != nil {
		return nil, fmt.Errorf("list expiries: %w", err)
	}
	if len(expiries) == 0 {
		return nil, fmt.Errorf("no expiries listed")
	}

	triple := ResolveEventAndNeighbors(ev.EarningsTS, expiries)
	validation := Validate(triple, ev.EarningsDate(), vcfg)

	if !validation.IsValid {
		f.logger.WithFields(map[string]interface{}{
			"symbol":       ev.Symbol,
			"has_event":    validation.HasEvent,
			"event_dte_ok": validation.EventDTEOK,
		}).Debug("Event expiry failed validation")
		return nil, nil
	}

	if f.config.RequireNeighbors && !triple.HasNeighbors() {
		return nil, nil
	}

	return &contracts.TradeableEvent{
		EarningsEvent: ev,
		Expiries:      triple,
		Validation:    validation,
	}, nil
}

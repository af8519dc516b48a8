package s1_events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/eds/backend/internal/contracts"
	"github.com/wonny/eds/backend/pkg/logger"
)

func d(year int, month time.Month, day int) time.Time {
	return contracts.NewDate(year, month, day)
}

func weekly() []time.Time {
	return []time.Time{
		d(2025, 10, 18),
		d(2025, 10, 25),
		d(2025, 11, 1),
		d(2025, 11, 15),
	}
}

func TestResolveEventAndNeighbors(t *testing.T) {
	tests := []struct {
		name       string
		earningsTS time.Time
		expiries   []time.Time
		wantEvent  *time.Time
		wantPrev   *time.Time
		wantNext   *time.Time
	}{
		{
			name:       "after close shifts to next day",
			earningsTS: time.Date(2025, 10, 26, 16, 0, 0, 0, time.UTC),
			expiries:   weekly(),
			wantEvent:  ptr(d(2025, 11, 1)),
			wantPrev:   ptr(d(2025, 10, 25)),
			wantNext:   ptr(d(2025, 11, 15)),
		},
		{
			name:       "same-day expiry is event before close",
			earningsTS: time.Date(2025, 10, 25, 15, 59, 59, 0, time.UTC),
			expiries:   weekly(),
			wantEvent:  ptr(d(2025, 10, 25)),
			wantPrev:   ptr(d(2025, 10, 18)),
			wantNext:   ptr(d(2025, 11, 1)),
		},
		{
			name:       "same-day expiry becomes prev at close",
			earningsTS: time.Date(2025, 10, 25, 16, 0, 0, 0, time.UTC),
			expiries:   weekly(),
			wantEvent:  ptr(d(2025, 11, 1)),
			wantPrev:   ptr(d(2025, 10, 25)),
			wantNext:   ptr(d(2025, 11, 15)),
		},
		{
			name:       "unsorted input",
			earningsTS: time.Date(2025, 10, 20, 9, 0, 0, 0, time.UTC),
			expiries:   []time.Time{d(2025, 11, 15), d(2025, 10, 18), d(2025, 11, 1), d(2025, 10, 25)},
			wantEvent:  ptr(d(2025, 10, 25)),
			wantPrev:   ptr(d(2025, 10, 18)),
			wantNext:   ptr(d(2025, 11, 1)),
		},
		{
			name:       "first expiry has no prev",
			earningsTS: time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC),
			expiries:   weekly(),
			wantEvent:  ptr(d(2025, 10, 18)),
			wantNext:   ptr(d(2025, 10, 25)),
		},
		{
			name:       "last expiry has no next",
			earningsTS: time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC),
			expiries:   weekly(),
			wantEvent:  ptr(d(2025, 11, 15)),
			wantPrev:   ptr(d(2025, 11, 1)),
		},
		{
			name:       "after all expiries",
			earningsTS: time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC),
			expiries:   weekly(),
		},
		{
			name:       "empty list",
			earningsTS: time.Date(2025, 10, 26, 9, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveEventAndNeighbors(tt.earningsTS, tt.expiries)
			assert.Equal(t, tt.wantEvent, got.Event)
			assert.Equal(t, tt.wantPrev, got.Prev)
			assert.Equal(t, tt.wantNext, got.Next)

			if got.Event != nil && got.Prev != nil {
				assert.True(t, got.Prev.Before(*got.Event))
			}
			if got.Event != nil && got.Next != nil {
				assert.True(t, got.Event.Before(*got.Next))
			}
		})
	}
}

func TestResolveEventAndNeighbors_DoesNotMutateInput(t *testing.T) {
	in := []time.Time{d(2025, 11, 15), d(2025, 10, 18)}
	ResolveEventAndNeighbors(time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC), in)
	assert.Equal(t, d(2025, 11, 15), in[0])
}

func TestValidate(t *testing.T) {
	earnings := d(2025, 10, 26)
	cfg := DefaultValidationConfig()

	t.Run("typical weekly triple", func(t *testing.T) {
		triple := contracts.ExpiryTriple{
			Event: ptr(d(2025, 11, 1)),
			Prev:  ptr(d(2025, 10, 25)),
			Next:  ptr(d(2025, 11, 15)),
		}
		v := Validate(triple, earnings, cfg)

		assert.True(t, v.HasEvent)
		assert.True(t, v.EventDTEOK)
		assert.Equal(t, 6, *v.EventDTE)
		// prev 가 발표 전이면 min_prev_dte=0 에서 false
		assert.False(t, v.PrevDTEOK)
		assert.Equal(t, -1, *v.PrevDTE)
		assert.True(t, v.NextDTEOK)
		assert.Equal(t, 14, *v.NextGap)
		assert.True(t, v.IsValid)
	})

	t.Run("event too far", func(t *testing.T) {
		triple := contracts.ExpiryTriple{Event: ptr(d(2026, 3, 20))}
		v := Validate(triple, earnings, cfg)
		assert.False(t, v.EventDTEOK)
		assert.False(t, v.IsValid)
	})

	t.Run("event at max dte boundary", func(t *testing.T) {
		triple := contracts.ExpiryTriple{Event: ptr(earnings.AddDate(0, 0, 90))}
		assert.True(t, Validate(triple, earnings, cfg).IsValid)
	})

	t.Run("next gap under 7 days", func(t *testing.T) {
		triple := contracts.ExpiryTriple{Event: ptr(d(2025, 11, 1)), Next: ptr(d(2025, 11, 3))}
		v := Validate(triple, earnings, cfg)
		assert.False(t, v.NextDTEOK)
		assert.True(t, v.IsValid)
	})

	t.Run("no event", func(t *testing.T) {
		v := Validate(contracts.ExpiryTriple{}, earnings, cfg)
		assert.False(t, v.HasEvent)
		assert.False(t, v.IsValid)
		assert.Nil(t, v.EventDTE)
	})
}

type fakeLookup struct {
	expiries map[string][]time.Time
	errs     map[string]error
	panics   map[string]bool
}

func (f *fakeLookup) ListExpiries(_ context.Context, symbol string) ([]time.Time, error) {
	if f.panics[symbol] {
		var empty []time.Time
		return empty[:1], nil
	}
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	return f.expiries[symbol], nil
}

func TestFilter_BatchFilter(t *testing.T) {
	lookup := &fakeLookup{
		expiries: map[string][]time.Time{
			"AAPL": weekly(),
			"MSFT": {d(2025, 11, 1)},
			"FAR":  {d(2026, 6, 19)},
		},
		errs: map[string]error{"ERR": errors.New("boom")},
	}

	ts := time.Date(2025, 10, 26, 16, 0, 0, 0, time.UTC)
	events := []contracts.EarningsEvent{
		{Symbol: "AAPL", EarningsTS: ts, Session: contracts.SessionAMC},
		{Symbol: "ERR", EarningsTS: ts},
		{Symbol: "NONE", EarningsTS: ts},
		{Symbol: "MSFT", EarningsTS: ts},
		{Symbol: "FAR", EarningsTS: ts},
	}

	t.Run("default keeps events without neighbors", func(t *testing.T) {
		f := NewFilter(lookup, DefaultFilterConfig(), logger.Nop())
		got := f.BatchFilter(context.Background(), events)

		require.Len(t, got, 2)
		assert.Equal(t, "AAPL", got[0].Symbol)
		assert.Equal(t, d(2025, 11, 1), *got[0].Expiries.Event)
		assert.Equal(t, "MSFT", got[1].Symbol)
	})

	t.Run("require neighbors", func(t *testing.T) {
		f := NewFilter(lookup, FilterConfig{MaxEventDTE: 60, RequireNeighbors: true}, logger.Nop())
		got := f.BatchFilter(context.Background(), events)

		require.Len(t, got, 1)
		assert.Equal(t, "AAPL", got[0].Symbol)
	})
}

func TestFilter_BatchFilter_PanicDropsOnlyThatSymbol(t *testing.T) {
	lookup := &fakeLookup{
		expiries: map[string][]time.Time{
			"AAPL": weekly(),
			"MSFT": {d(2025, 11, 1)},
		},
		panics: map[string]bool{"BAD": true},
	}

	ts := time.Date(2025, 10, 26, 16, 0, 0, 0, time.UTC)
	events := []contracts.EarningsEvent{
		{Symbol: "AAPL", EarningsTS: ts},
		{Symbol: "BAD", EarningsTS: ts},
		{Symbol: "MSFT", EarningsTS: ts},
	}

	f := NewFilter(lookup, DefaultFilterConfig(), logger.Nop())

	var got []contracts.TradeableEvent
	require.NotPanics(t, func() {
		got = f.BatchFilter(context.Background(), events)
	})
	require.Len(t, got, 2)
	assert.Equal(t, "AAPL", got[0].Symbol)
	assert.Equal(t, "MSFT", got[1].Symbol)
}

func ptr(t time.Time) *time.Time {
	return &t
}

package repos

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/eds/backend/internal/contracts"
	"github.com/wonny/eds/backend/pkg/config"
	"github.com/wonny/eds/backend/pkg/database"
)

var (
	_ contracts.EarningsRepository      = (*EarningsRepository)(nil)
	_ contracts.OptionRepository        = (*OptionRepository)(nil)
	_ contracts.DailySignalRepository   = (*DailySignalRepository)(nil)
	_ contracts.IntradayScoreRepository = (*IntradayRepository)(nil)
	_ contracts.OIDeltaRepository       = (*OIDeltaRepository)(nil)
)

// 테스트 전용 심볼. 실제 티커와 겹치지 않게 접두어 사용
const testSymbol = "ZZTEST"

func setup(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, db.Migrate(ctx))

	cleanup := func() {
		for _, q := range []string{
			`DELETE FROM eds.earnings_events WHERE symbol = $1`,
			`DELETE FROM eds.daily_signals WHERE symbol = $1`,
			`DELETE FROM eds.intraday_signals WHERE symbol = $1`,
			`DELETE FROM eds.oi_deltas WHERE symbol = $1`,
			`DELETE FROM eds.option_snapshots WHERE option_symbol LIKE 'O:' || $1 || '%'`,
			`DELETE FROM eds.option_contracts WHERE underlying = $1`,
		} {
			_, _ = db.Pool.Exec(context.Background(), q, testSymbol)
		}
	}
	cleanup()
	t.Cleanup(cleanup)

	return db.Pool
}

func TestEarningsRepository(t *testing.T) {
	pool := setup(t)
	ctx := context.Background()

	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	repo := NewEarningsRepository(pool, loc)

	ts := time.Date(2025, 10, 30, 13, 0, 0, 0, loc)
	require.NoError(t, repo.UpsertBatch(ctx, []contracts.EarningsEvent{
		{Symbol: testSymbol, EarningsTS: ts, Session: contracts.SessionAMC},
	}))
	// 같은 날짜 재저장은 시각만 갱신
	ts = time.Date(2025, 10, 30, 13, 30, 0, 0, loc)
	require.NoError(t, repo.UpsertBatch(ctx, []contracts.EarningsEvent{
		{Symbol: testSymbol, EarningsTS: ts, Session: contracts.SessionCustom},
	}))

	events, err := repo.ListByDateRange(ctx, time.Date(2025, 10, 30, 0, 0, 0, 0, loc), time.Date(2025, 10, 31, 0, 0, 0, 0, loc))
	require.NoError(t, err)

	var found []contracts.EarningsEvent
	for _, e := range events {
		if e.Symbol == testSymbol {
			found = append(found, e)
		}
	}
	require.Len(t, found, 1)
	assert.True(t, ts.Equal(found[0].EarningsTS))
	assert.Equal(t, loc, found[0].EarningsTS.Location())
	assert.Equal(t, contracts.SessionCustom, found[0].Session)
}

func TestOptionRepository_LatestOpenInterest(t *testing.T) {
	pool := setup(t)
	ctx := context.Background()
	repo := NewOptionRepository(pool)

	sym := "O:" + testSymbol + "251031C00100000"
	c := contracts.OptionContract{
		OptionSymbol: sym,
		Underlying:   testSymbol,
		Expiry:       contracts.NewDate(2025, 10, 31),
		Strike:       100,
		Type:         contracts.OptionCall,
	}
	require.NoError(t, repo.UpsertContracts(ctx, []contracts.OptionContract{c}))

	t0 := time.Date(2025, 10, 29, 20, 0, 0, 0, time.UTC)
	t1 := t0.Add(10 * time.Hour)

	c.OpenInterest = contracts.Float(1000)
	require.NoError(t, repo.InsertSnapshot(ctx, &contracts.ChainSnapshot{Symbol: testSymbol, AsOf: t0, Contracts: []contracts.OptionContract{c}}))
	c.OpenInterest = contracts.Float(1500)
	require.NoError(t, repo.InsertSnapshot(ctx, &contracts.ChainSnapshot{Symbol: testSymbol, AsOf: t1, Contracts: []contracts.OptionContract{c}}))

	got, err := repo.LatestOpenInterest(ctx, []string{sym}, t1)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, got[sym])

	got, err = repo.LatestOpenInterest(ctx, []string{sym}, t1.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1500.0, got[sym])

	got, err = repo.LatestOpenInterest(ctx, nil, t1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDailySignalRepository(t *testing.T) {
	pool := setup(t)
	ctx := context.Background()
	repo := NewDailySignalRepository(pool)

	expiry := contracts.NewDate(2025, 10, 31)
	rec := contracts.DailySignalRecord{
		TradeDate: contracts.NewDate(2025, 10, 29),
		Bundle: contracts.SignalBundle{
			Symbol:      testSymbol,
			EventExpiry: &expiry,
			RR25:        contracts.Float(0.02),
			VolPCR:      contracts.Float(0.8),
		},
		Score:      0.71,
		Decision:   contracts.DecisionCall,
		Direction:  contracts.DirectionCall,
		Conviction: contracts.ConvictionHigh,
		Structure:  contracts.StructureNaked,
		ConfigHash: "abc",
	}
	require.NoError(t, repo.UpsertBatch(ctx, []contracts.DailySignalRecord{rec}))

	// 프리마켓 재점수는 덮어쓰기
	rec.Bundle.DeltaOINet = contracts.Float(1200)
	rec.Score = 0.75
	require.NoError(t, repo.UpsertBatch(ctx, []contracts.DailySignalRecord{rec}))

	rows, err := repo.ListBySymbol(ctx, testSymbol, contracts.NewDate(2025, 10, 1), contracts.NewDate(2025, 10, 30))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	got := rows[0]
	assert.Equal(t, rec.TradeDate, got.TradeDate)
	assert.InDelta(t, 0.75, got.Score, 1e-9)
	assert.Equal(t, 1200.0, *got.Bundle.DeltaOINet)
	assert.Equal(t, expiry, *got.Bundle.EventExpiry)
	assert.Nil(t, got.Bundle.IVBump)
	assert.Equal(t, contracts.ConvictionHigh, got.Conviction)

	one, err := repo.Get(ctx, rec.TradeDate, testSymbol)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, one.Score, 1e-9)

	_, err = repo.Get(ctx, contracts.NewDate(2025, 10, 28), testSymbol)
	assert.ErrorIs(t, err, contracts.ErrNotFound)

	// 상한은 제외
	rows, err = repo.ListBySymbol(ctx, testSymbol, contracts.NewDate(2025, 10, 1), contracts.NewDate(2025, 10, 29))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestIntradayRepository(t *testing.T) {
	pool := setup(t)
	ctx := context.Background()
	repo := NewIntradayRepository(pool)

	day := contracts.NewDate(2025, 10, 30)

	_, err := repo.GetPrevious(ctx, day, testSymbol)
	assert.True(t, errors.Is(err, contracts.ErrNoPrevious))

	save := func(asOf time.Time, now, ewma float64) {
		require.NoError(t, repo.Save(ctx, &contracts.IntradaySignalRecord{
			TradeDate: day,
			AsOf:      asOf,
			Bundle:    contracts.SignalBundle{Symbol: testSymbol, CallVolume: 40, PutVolume: 10},
			Normalized: map[contracts.SignalField]contracts.NormalizedValue{
				contracts.FieldRR25:   {Z: contracts.Float(1.2)},
				contracts.FieldIVBump: {Pct: contracts.Float(0.5)},
			},
			State: contracts.IntradayScoreState{
				Symbol:        testSymbol,
				TradeDate:     day,
				ScoreNow:      now,
				ScoreEWMA:     ewma,
				Direction:     contracts.DirectionCall,
				Decision:      contracts.DecisionCall,
				Structure:     contracts.StructureVertical,
				SizeReduction: 1.0,
			},
			EWMAAlpha: 0.3,
		}))
	}

	t0 := time.Date(2025, 10, 30, 14, 0, 0, 0, time.UTC)
	save(t0, 0.5, 0.5)
	save(t0.Add(30*time.Minute), 0.6, 0.53)

	prev, err := repo.GetPrevious(ctx, day, testSymbol)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, prev.ScoreNow, 1e-9)
	assert.InDelta(t, 0.53, prev.ScoreEWMA, 1e-9)

	history, err := repo.ListLatestByDate(ctx, day, testSymbol)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].AsOf.Before(history[1].AsOf))
	assert.Equal(t, 50.0, history[1].Bundle.TotalVolume())
	assert.Equal(t, 1.2, *history[1].Normalized[contracts.FieldRR25].Z)

	latest, err := repo.ListLatestByDate(ctx, day, "")
	require.NoError(t, err)
	var mine []contracts.IntradaySignalRecord
	for _, r := range latest {
		if r.Bundle.Symbol == testSymbol {
			mine = append(mine, r)
		}
	}
	require.Len(t, mine, 1)
	assert.InDelta(t, 0.6, mine[0].State.ScoreNow, 1e-9)
}

func TestOIDeltaRepository(t *testing.T) {
	pool := setup(t)
	ctx := context.Background()
	repo := NewOIDeltaRepository(pool)

	day := contracts.NewDate(2025, 10, 30)
	require.NoError(t, repo.Upsert(ctx, contracts.OIDelta{TradeDate: day, Symbol: testSymbol, CallsDelta: 300, PutsDelta: 100}))
	require.NoError(t, repo.Upsert(ctx, contracts.OIDelta{TradeDate: day, Symbol: testSymbol, CallsDelta: 500, PutsDelta: 100}))

	deltas, err := repo.ListByDate(ctx, day)
	require.NoError(t, err)

	var got *contracts.OIDelta
	for i := range deltas {
		if deltas[i].Symbol == testSymbol {
			got = &deltas[i]
		}
	}
	require.NotNil(t, got)
	assert.Equal(t, int64(400), got.Net())
	assert.Nil(t, got.EventExpiry)
}

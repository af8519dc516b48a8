package brain

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/eds/backend/internal/contracts"
	"github.com/wonny/eds/backend/pkg/logger"
)

var la = mustLoadLocation("America/Los_Angeles")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// === Fakes ===

type fakeMarket struct {
	mu       sync.Mutex
	expiries map[string][]time.Time
	chains   map[string][]contracts.OptionContract
	calls    map[string]int
}

func (m *fakeMarket) ListExpiries(_ context.Context, symbol string) ([]time.Time, error) {
	exp, ok := m.expiries[symbol]
	if !ok {
		return nil, errors.New("unknown symbol")
	}
	return exp, nil
}

func (m *fakeMarket) ChainSnapshot(_ context.Context, symbol string, expiry time.Time) (*contracts.ChainSnapshot, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[symbol]++
	m.mu.Unlock()

	chain, ok := m.chains[symbol]
	if !ok {
		return nil, errors.New("no chain")
	}
	return &contracts.ChainSnapshot{
		Symbol:    symbol,
		Expiry:    expiry,
		AsOf:      time.Date(2025, 10, 29, 20, 0, 0, 0, time.UTC),
		Contracts: chain,
	}, nil
}

func (m *fakeMarket) DailyBars(context.Context, string, time.Time, time.Time) ([]contracts.Bar, error) {
	return nil, errors.New("bars disabled in test")
}

type fakeEarnings struct {
	mu     sync.Mutex
	events map[string][]contracts.EarningsEvent // from date → events
	calls  []string
}

func (f *fakeEarnings) EarningsCalendar(_ context.Context, from, to time.Time) ([]contracts.EarningsEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, from.Format(dateLayout)+".."+to.Format(dateLayout))
	return f.events[from.Format(dateLayout)], nil
}

type memEarningsRepo struct {
	mu     sync.Mutex
	events []contracts.EarningsEvent
}

func (r *memEarningsRepo) UpsertBatch(_ context.Context, events []contracts.EarningsEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *memEarningsRepo) ListByDateRange(_ context.Context, from, to time.Time) ([]contracts.EarningsEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []contracts.EarningsEvent
	for _, e := range r.events {
		if !e.EarningsTS.Before(from) && e.EarningsTS.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

type memOptionRepo struct {
	mu        sync.Mutex
	previous  map[string]float64
	snapshots int
}

func (r *memOptionRepo) UpsertContracts(context.Context, []contracts.OptionContract) error {
	return nil
}

func (r *memOptionRepo) InsertSnapshot(context.Context, *contracts.ChainSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots++
	return nil
}

func (r *memOptionRepo) LatestOpenInterest(_ context.Context, symbols []string, _ time.Time) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, s := range symbols {
		if v, ok := r.previous[s]; ok {
			out[s] = v
		}
	}
	return out, nil
}

type memDailyRepo struct {
	mu      sync.Mutex
	records map[string]contracts.DailySignalRecord // date|symbol
}

func (r *memDailyRepo) UpsertBatch(_ context.Context, records []contracts.DailySignalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.records == nil {
		r.records = make(map[string]contracts.DailySignalRecord)
	}
	for _, rec := range records {
		r.records[rec.TradeDate.Format(dateLayout)+"|"+rec.Symbol()] = rec
	}
	return nil
}

func (r *memDailyRepo) ListByDate(_ context.Context, tradeDate time.Time) ([]contracts.DailySignalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []contracts.DailySignalRecord
	for _, rec := range r.records {
		if rec.TradeDate.Equal(contracts.DateOf(tradeDate)) {
			out = append(out, rec)
		}
	}
	SortByAbsScore(out)
	return out, nil
}

func (r *memDailyRepo) Get(_ context.Context, tradeDate time.Time, symbol string) (*contracts.DailySignalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.TradeDate.Equal(contracts.DateOf(tradeDate)) && rec.Bundle.Symbol == symbol {
			out := rec
			return &out, nil
		}
	}
	return nil, contracts.ErrNotFound
}

func (r *memDailyRepo) ListBySymbol(context.Context, string, time.Time, time.Time) ([]contracts.DailySignalRecord, error) {
	return nil, nil
}

type memIntradayRepo struct {
	mu       sync.Mutex
	previous map[string]contracts.PreviousIntradayScore
	saved    []contracts.IntradaySignalRecord
	failSave map[string]bool
}

func (r *memIntradayRepo) GetPrevious(_ context.Context, _ time.Time, symbol string) (*contracts.PreviousIntradayScore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.previous[symbol]
	if !ok {
		return nil, contracts.ErrNoPrevious
	}
	return &p, nil
}

func (r *memIntradayRepo) Save(_ context.Context, rec *contracts.IntradaySignalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSave[rec.Bundle.Symbol] {
		return errors.New("insert failed")
	}
	r.saved = append(r.saved, *rec)
	return nil
}

func (r *memIntradayRepo) ListLatestByDate(context.Context, time.Time, string) ([]contracts.IntradaySignalRecord, error) {
	return r.saved, nil
}

type memOIDeltaRepo struct {
	mu     sync.Mutex
	deltas map[string]contracts.OIDelta
}

func (r *memOIDeltaRepo) Upsert(_ context.Context, d contracts.OIDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deltas == nil {
		r.deltas = make(map[string]contracts.OIDelta)
	}
	r.deltas[d.Symbol] = d
	return nil
}

func (r *memOIDeltaRepo) ListByDate(context.Context, time.Time) ([]contracts.OIDelta, error) {
	var out []contracts.OIDelta
	for _, d := range r.deltas {
		out = append(out, d)
	}
	return out, nil
}

// === Fixtures ===

func optionSymbol(symbol string, typ contracts.OptionType, strike float64) string {
	side := "C"
	if typ == contracts.OptionPut {
		side = "P"
	}
	return fmt.Sprintf("O:%s251031%s%08d", symbol, side, int(strike*1000))
}

// testChain builds strikes 80..120 around spot 101 with the given per-contract volumes and OI
func testChain(symbol string, callVol, putVol, callOI, putOI float64) []contracts.OptionContract {
	var chain []contracts.OptionContract
	for i, strike := range []float64{80, 85, 90, 95, 100, 105, 110, 115, 120} {
		callDelta := 0.9 - 0.1*float64(i)
		for _, typ := range []contracts.OptionType{contracts.OptionCall, contracts.OptionPut} {
			delta, vol, oi := callDelta, callVol, callOI
			if typ == contracts.OptionPut {
				delta, vol, oi = callDelta-1, putVol, putOI
			}
			chain = append(chain, contracts.OptionContract{
				OptionSymbol:    optionSymbol(symbol, typ, strike),
				Underlying:      symbol,
				Expiry:          contracts.NewDate(2025, 10, 31),
				Strike:          strike,
				Type:            typ,
				Bid:             contracts.Float(2.0),
				Ask:             contracts.Float(2.1),
				LastPrice:       contracts.Float(2.05),
				IV:              contracts.Float(0.3 + 0.01*float64(i)),
				Delta:           contracts.Float(delta),
				DayVolume:       contracts.Float(vol),
				OpenInterest:    contracts.Float(oi),
				UnderlyingPrice: contracts.Float(101),
			})
		}
	}
	return chain
}

type testEnv struct {
	market   *fakeMarket
	earnings *fakeEarnings
	events   *memEarningsRepo
	options  *memOptionRepo
	daily    *memDailyRepo
	intraday *memIntradayRepo
	oi       *memOIDeltaRepo
	orch     *Orchestrator
	outDir   string
}

func newTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()

	expiries := []time.Time{
		contracts.NewDate(2025, 10, 24),
		contracts.NewDate(2025, 10, 31),
		contracts.NewDate(2025, 11, 7),
	}

	env := &testEnv{
		market: &fakeMarket{
			expiries: map[string][]time.Time{"AAA": expiries, "BBB": expiries},
			chains: map[string][]contracts.OptionContract{
				"AAA": testChain("AAA", 400, 100, 100, 50),
				"BBB": testChain("BBB", 100, 400, 100, 50),
			},
		},
		earnings: &fakeEarnings{events: map[string][]contracts.EarningsEvent{}},
		events:   &memEarningsRepo{},
		options:  &memOptionRepo{previous: map[string]float64{}},
		daily:    &memDailyRepo{},
		intraday: &memIntradayRepo{previous: map[string]contracts.PreviousIntradayScore{}},
		oi:       &memOIDeltaRepo{},
		outDir:   t.TempDir(),
	}

	orch, err := NewOrchestrator(Deps{
		Market:       env.market,
		Earnings:     env.earnings,
		EarningsRepo: env.events,
		Options:      env.options,
		Daily:        env.daily,
		Intraday:     env.intraday,
		OIDeltas:     env.oi,
	}, Config{
		Location:  la,
		Workers:   2,
		DaysAhead: 1,
		OutDir:    env.outDir,
	}, nil, logger.Nop())
	require.NoError(t, err)
	orch.now = func() time.Time { return now }
	env.orch = orch

	return env
}

// === Tests ===

func TestPreviousTradeDate(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"tuesday", contracts.NewDate(2025, 10, 28), contracts.NewDate(2025, 10, 27)},
		{"monday skips weekend", contracts.NewDate(2025, 10, 27), contracts.NewDate(2025, 10, 24)},
		{"sunday", contracts.NewDate(2025, 10, 26), contracts.NewDate(2025, 10, 24)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PreviousTradeDate(tt.in))
		})
	}
}

func TestATMWindow(t *testing.T) {
	chain := testChain("AAA", 1, 1, 1, 1)

	window := ATMWindow(chain, 101, 2)
	require.Len(t, window, 10) // 5 strikes × call/put

	strikes := map[float64]bool{}
	for _, c := range window {
		strikes[c.Strike] = true
	}
	assert.Equal(t, map[float64]bool{90: true, 95: true, 100: true, 105: true, 110: true}, strikes)

	// 가장자리에서는 잘림
	edge := ATMWindow(chain, 79, 2)
	assert.Len(t, edge, 6)

	assert.Nil(t, ATMWindow(nil, 100, 2))
}

func TestOIDeltaTotals(t *testing.T) {
	window := []contracts.OptionContract{
		{OptionSymbol: "C1", Type: contracts.OptionCall, OpenInterest: contracts.Float(150)},
		{OptionSymbol: "C2", Type: contracts.OptionCall, OpenInterest: contracts.Float(40)},
		{OptionSymbol: "C3", Type: contracts.OptionCall}, // OI 없음 → 제외
		{OptionSymbol: "P1", Type: contracts.OptionPut, OpenInterest: contracts.Float(80)},
	}
	previous := map[string]float64{"C1": 100, "C3": 500, "P1": 100}

	calls, puts := OIDeltaTotals(window, previous)
	assert.Equal(t, int64(90), calls) // (150-100) + (40-0)
	assert.Equal(t, int64(-20), puts)
}

func TestWritePredictions(t *testing.T) {
	expiry := contracts.NewDate(2025, 10, 31)
	records := []contracts.DailySignalRecord{
		{Bundle: contracts.SignalBundle{Symbol: "LOW", EventExpiry: &expiry}, Score: 0.1, Decision: contracts.DecisionPassOrSpread},
		{Bundle: contracts.SignalBundle{Symbol: "HIGH", RR25: contracts.Float(0.05)}, Score: -0.9, Decision: contracts.DecisionPut},
	}
	SortByAbsScore(records)

	var buf bytes.Buffer
	require.NoError(t, WritePredictions(&buf, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, predictionHeader, rows[0])
	assert.Equal(t, "HIGH", rows[1][0])
	assert.Equal(t, "", rows[1][1])
	assert.Equal(t, "-0.900000", rows[1][2])
	assert.Equal(t, "0.050000", rows[1][7])
	assert.Equal(t, "LOW", rows[2][0])
	assert.Equal(t, "2025-10-31", rows[2][1])
	assert.Equal(t, "", rows[2][7])
}

func TestRunPostClose(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, 10, 29, 13, 30, 0, 0, la))
	env.earnings.events["2025-10-29"] = []contracts.EarningsEvent{
		{Symbol: "AAA", EarningsTS: time.Date(2025, 10, 29, 16, 0, 0, 0, la), Session: contracts.SessionAMC},
		{Symbol: "BBB", EarningsTS: time.Date(2025, 10, 30, 6, 0, 0, 0, la), Session: contracts.SessionBMO},
		{Symbol: "NOOPT", EarningsTS: time.Date(2025, 10, 30, 6, 0, 0, 0, la), Session: contracts.SessionBMO},
	}

	tradeDate := contracts.NewDate(2025, 10, 29)
	result, err := env.orch.RunPostClose(context.Background(), tradeDate)
	require.NoError(t, err)

	assert.Equal(t, []string{"2025-10-29..2025-10-30"}, env.earnings.calls)
	assert.Len(t, env.events.events, 3)
	assert.Equal(t, 3, result.Events)
	assert.Equal(t, 2, result.Tradeable)
	require.Len(t, result.Records, 2)

	// 이벤트/이전/다음 만기 체인 조회
	assert.Equal(t, 3, env.market.calls["AAA"])
	assert.Greater(t, env.options.snapshots, 0)

	for _, r := range result.Records {
		assert.Equal(t, tradeDate, r.TradeDate)
		assert.Equal(t, env.orch.ConfigHash(), r.ConfigHash)
		require.NotNil(t, r.Bundle.EventExpiry)
		assert.Equal(t, contracts.NewDate(2025, 10, 31), *r.Bundle.EventExpiry)
	}
	assert.GreaterOrEqual(t, abs(result.Records[0].Score), abs(result.Records[1].Score))

	stored, err := env.daily.ListByDate(context.Background(), tradeDate)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	require.NotEmpty(t, result.CSVPath)
	assert.True(t, strings.HasSuffix(result.CSVPath, "predictions_20251029.csv"))
	data, err := os.ReadFile(result.CSVPath)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 3)
}

func TestRunPostClose_NoEvents(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, 10, 29, 13, 30, 0, 0, la))

	result, err := env.orch.RunPostClose(context.Background(), contracts.NewDate(2025, 10, 29))
	require.NoError(t, err)
	assert.Len(t, result.RunID, 36)
	assert.Zero(t, result.Events)
	assert.Empty(t, result.Records)
	assert.Empty(t, result.CSVPath)
}

func TestRunPreMarket(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, 10, 30, 6, 0, 0, 0, la))
	tradeDate := contracts.NewDate(2025, 10, 29)
	expiry := contracts.NewDate(2025, 10, 31)

	require.NoError(t, env.daily.UpsertBatch(context.Background(), []contracts.DailySignalRecord{
		{TradeDate: tradeDate, Bundle: contracts.SignalBundle{Symbol: "AAA", EventExpiry: &expiry, RR25: contracts.Float(0.02)}},
		{TradeDate: tradeDate, Bundle: contracts.SignalBundle{Symbol: "BBB", EventExpiry: &expiry, RR25: contracts.Float(-0.02)}},
		{TradeDate: tradeDate, Bundle: contracts.SignalBundle{Symbol: "NOEXP"}},
	}))

	// AAA: 창 안의 콜 5개 모두 이전 OI 80
	for _, k := range []float64{90, 95, 100, 105, 110} {
		env.options.previous[optionSymbol("AAA", contracts.OptionCall, k)] = 80
	}

	result, err := env.orch.RunPreMarket(context.Background(), tradeDate)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Signals)
	require.Len(t, result.Deltas, 2)

	aaa := env.oi.deltas["AAA"]
	assert.Equal(t, int64(100), aaa.CallsDelta) // 5 × (100 - 80)
	assert.Equal(t, int64(250), aaa.PutsDelta)  // 5 × 50, 이전 기록 없음
	assert.Equal(t, int64(-150), aaa.Net())
	assert.Equal(t, tradeDate, aaa.TradeDate)

	bbb := env.oi.deltas["BBB"]
	assert.Equal(t, int64(500), bbb.CallsDelta)

	require.Len(t, result.Records, 3)
	bySymbol := map[string]contracts.DailySignalRecord{}
	for _, r := range result.Records {
		bySymbol[r.Symbol()] = r
	}
	require.NotNil(t, bySymbol["AAA"].Bundle.DeltaOINet)
	assert.Equal(t, -150.0, *bySymbol["AAA"].Bundle.DeltaOINet)
	assert.Nil(t, bySymbol["NOEXP"].Bundle.DeltaOINet)
	assert.Equal(t, env.orch.ConfigHash(), bySymbol["BBB"].ConfigHash)

	// ΔOI 창 스냅샷 저장 (다음 실행 기준값)
	assert.Equal(t, 2, env.options.snapshots)
}

func TestRunPreMarket_NoSignals(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, 10, 30, 6, 0, 0, 0, la))

	result, err := env.orch.RunPreMarket(context.Background(), contracts.NewDate(2025, 10, 29))
	require.NoError(t, err)
	assert.Zero(t, result.Signals)
	assert.Empty(t, env.oi.deltas)
}

func TestRunPreMarket_MissingOptionRepository(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, 10, 30, 6, 0, 0, 0, la))
	env.orch.deps.Options = nil

	var err error
	require.NotPanics(t, func() {
		_, err = env.orch.RunPreMarket(context.Background(), contracts.NewDate(2025, 10, 29))
	})
	assert.ErrorContains(t, err, "requires option")
}

func TestRunIntraday(t *testing.T) {
	now := time.Date(2025, 10, 29, 10, 0, 0, 0, la)
	env := newTestEnv(t, now)

	require.NoError(t, env.events.UpsertBatch(context.Background(), []contracts.EarningsEvent{
		{Symbol: "AAA", EarningsTS: time.Date(2025, 10, 29, 13, 30, 0, 0, la), Session: contracts.SessionCustom},
		{Symbol: "EARLY", EarningsTS: time.Date(2025, 10, 29, 9, 0, 0, 0, la), Session: contracts.SessionCustom},
	}))
	// 익일 구간은 DB 에 없으므로 Finnhub 에서 조회, bmo 만 유지
	env.earnings.events["2025-10-30"] = []contracts.EarningsEvent{
		{Symbol: "BBB", EarningsTS: time.Date(2025, 10, 30, 6, 0, 0, 0, la), Session: contracts.SessionBMO},
		{Symbol: "LATE", EarningsTS: time.Date(2025, 10, 30, 16, 0, 0, 0, la), Session: contracts.SessionAMC},
	}
	env.intraday.previous["AAA"] = contracts.PreviousIntradayScore{ScoreNow: 0.1, ScoreEWMA: 0.1}

	tradeDate := contracts.NewDate(2025, 10, 29)
	result, err := env.orch.RunIntraday(context.Background(), tradeDate)
	require.NoError(t, err)

	assert.Equal(t, []string{"2025-10-30..2025-10-30"}, env.earnings.calls)
	assert.Equal(t, 2, result.Events)
	require.Len(t, result.Records, 2)
	require.Len(t, env.intraday.saved, 2)

	// 장중에는 이벤트 체인만 조회
	assert.Equal(t, 1, env.market.calls["AAA"])

	for _, r := range result.Records {
		assert.Equal(t, now, r.AsOf)
		assert.Equal(t, tradeDate, r.TradeDate)
		assert.InDelta(t, 0.3, r.EWMAAlpha, 1e-9)
		assert.Equal(t, 4500.0, r.Bundle.TotalVolume()) // 9 행사가 × (400 + 100)

		switch r.Bundle.Symbol {
		case "AAA":
			want := 0.3*r.State.ScoreNow + 0.7*0.1
			assert.InDelta(t, want, r.State.ScoreEWMA, 1e-9)
		case "BBB":
			assert.InDelta(t, r.State.ScoreNow, r.State.ScoreEWMA, 1e-9)
		default:
			t.Fatalf("unexpected symbol %s", r.Bundle.Symbol)
		}
	}
}

func TestRunIntraday_SaveFailureKeepsOtherSymbols(t *testing.T) {
	now := time.Date(2025, 10, 29, 10, 0, 0, 0, la)
	env := newTestEnv(t, now)

	require.NoError(t, env.events.UpsertBatch(context.Background(), []contracts.EarningsEvent{
		{Symbol: "AAA", EarningsTS: time.Date(2025, 10, 29, 13, 30, 0, 0, la), Session: contracts.SessionCustom},
		{Symbol: "BBB", EarningsTS: time.Date(2025, 10, 29, 16, 0, 0, 0, la), Session: contracts.SessionAMC},
		{Symbol: "CCC", EarningsTS: time.Date(2025, 10, 29, 16, 0, 0, 0, la), Session: contracts.SessionAMC},
	}))
	env.market.expiries["CCC"] = env.market.expiries["AAA"]
	env.market.chains["CCC"] = testChain("CCC", 200, 200, 100, 100)
	env.intraday.failSave = map[string]bool{"AAA": true}

	result, err := env.orch.RunIntraday(context.Background(), contracts.NewDate(2025, 10, 29))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1/3 failed")
	assert.Contains(t, err.Error(), "AAA")

	assert.Equal(t, []string{"AAA"}, result.Failed)
	require.Len(t, result.Records, 2)
	require.Len(t, env.intraday.saved, 2)
	for _, r := range env.intraday.saved {
		assert.NotEqual(t, "AAA", r.Bundle.Symbol)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

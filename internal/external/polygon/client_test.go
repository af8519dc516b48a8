package polygon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/eds/backend/internal/contracts"
	"github.com/wonny/eds/backend/pkg/config"
	"github.com/wonny/eds/backend/pkg/httputil"
	"github.com/wonny/eds/backend/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, snapshotLimit int) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	hc := httputil.New(&config.Config{Env: "test"}, logger.Nop()).DisableRetry()
	client := NewClient(hc, nil, config.PolygonConfig{
		APIKey:        "test-key",
		BaseURL:       srv.URL,
		SnapshotLimit: snapshotLimit,
	}, logger.Nop())
	client.now = func() time.Time { return time.Date(2025, 10, 24, 20, 30, 0, 0, time.UTC) }
	return client, srv
}

func TestListExpiries_Paginates(t *testing.T) {
	var srvURL string
	var calls int32

	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/v3/reference/options/contracts", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"))

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("cursor") == "" {
			assert.Equal(t, "AAPL", r.URL.Query().Get("underlying_ticker"))
			assert.Equal(t, "false", r.URL.Query().Get("expired"))
			w.Write([]byte(`{"status":"OK","results":[
				{"expiration_date":"2025-11-07"},
				{"expiration_date":"2025-10-31"},
				{"expiration_date":"not-a-date"}
			],"next_url":"` + srvURL + `/v3/reference/options/contracts?cursor=p2"}`))
			return
		}
		w.Write([]byte(`{"status":"OK","results":[
			{"expiration_date":"2025-10-31"},
			{"expiration_date":"2025-10-24"}
		]}`))
	}, 0)
	srvURL = srv.URL

	got, err := client.ListExpiries(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		contracts.NewDate(2025, 10, 24),
		contracts.NewDate(2025, 10, 31),
		contracts.NewDate(2025, 11, 7),
	}, got)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestListExpiries_StatusError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"status":"NOT_AUTHORIZED"}`))
	}, 0)

	_, err := client.ListExpiries(context.Background(), "AAPL")
	require.Error(t, err)

	var se *httputil.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
}

const snapshotPage1 = `{"status":"OK","results":[
	{
		"details":{"ticker":"O:AAPL251031C00250000","strike_price":250,"expiration_date":"2025-10-31","contract_type":"call"},
		"last_quote":{"bid":4.9,"ask":5.1},
		"last_trade":{"price":5.0},
		"greeks":{"delta":0.52,"gamma":0.03,"theta":-0.2,"vega":0.15},
		"day":{"close":5.05,"volume":1200},
		"implied_volatility":0.41,
		"open_interest":3400,
		"underlying_asset":{"ticker":"AAPL","price":251.3}
	},
	{
		"details":{"ticker":"O:AAPL251031X00250000","strike_price":250,"expiration_date":"2025-10-31","contract_type":"other"}
	}
],"next_url":"NEXT"}`

const snapshotPage2 = `{"status":"OK","results":[
	{"details":{"ticker":"O:AAPL251031P00250000","strike_price":250,"expiration_date":"2025-10-31","contract_type":"put"}},
	{"details":{"ticker":"O:AAPL251031C00255000","strike_price":255,"expiration_date":"2025-10-31","contract_type":"call"}},
	{"details":{"ticker":"O:AAPL251031P00255000","strike_price":255,"expiration_date":"2025-10-31","contract_type":"put"}}
],"next_url":"NEXT"}`

func TestChainSnapshot(t *testing.T) {
	var srvURL string
	var pages int32

	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&pages, 1)
		assert.Equal(t, "/v3/snapshot/options/AAPL", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")

		next := srvURL + "/v3/snapshot/options/AAPL?cursor=p2"
		if r.URL.Query().Get("cursor") == "" {
			assert.Equal(t, "2025-10-31", r.URL.Query().Get("expiration_date"))
			assert.Equal(t, "3", r.URL.Query().Get("limit"))
			w.Write([]byte(replaceNext(snapshotPage1, next)))
			return
		}
		w.Write([]byte(replaceNext(snapshotPage2, next)))
	}, 3)
	srvURL = srv.URL

	snap, err := client.ChainSnapshot(context.Background(), "AAPL", contracts.NewDate(2025, 10, 31))
	require.NoError(t, err)

	// limit 3 에서 중단, 세 번째 페이지는 요청하지 않음
	require.Len(t, snap.Contracts, 3)
	assert.Equal(t, int32(2), atomic.LoadInt32(&pages))
	assert.Equal(t, "AAPL", snap.Symbol)
	assert.Equal(t, time.Date(2025, 10, 24, 20, 30, 0, 0, time.UTC), snap.AsOf)

	call := snap.Contracts[0]
	assert.Equal(t, "O:AAPL251031C00250000", call.OptionSymbol)
	assert.Equal(t, contracts.OptionCall, call.Type)
	assert.Equal(t, 250.0, call.Strike)
	assert.Equal(t, 4.9, *call.Bid)
	assert.Equal(t, 5.1, *call.Ask)
	assert.Equal(t, 5.0, *call.LastPrice)
	assert.Equal(t, 5.05, *call.DayClose)
	assert.Equal(t, 1200.0, *call.DayVolume)
	assert.Equal(t, 0.41, *call.IV)
	assert.Equal(t, 0.52, *call.Delta)
	assert.Equal(t, 3400.0, *call.OpenInterest)
	assert.Equal(t, 251.3, *call.UnderlyingPrice)

	put := snap.Contracts[1]
	assert.Equal(t, contracts.OptionPut, put.Type)
	assert.Nil(t, put.Bid)
	assert.Nil(t, put.Delta)
	assert.Nil(t, put.UnderlyingPrice)
}

func replaceNext(body, next string) string {
	return strings.Replace(body, `"NEXT"`, `"`+next+`"`, 1)
}

func TestDailyBars(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/aggs/ticker/AAPL/range/1/day/2025-10-01/2025-10-02", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("adjusted"))
		assert.Equal(t, "asc", r.URL.Query().Get("sort"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"OK","resultsCount":2,"results":[
			{"t":1759291200000,"c":255.1,"v":41000000},
			{"t":1759377600000,"c":257.4,"v":39000000}
		]}`))
	}, 0)

	bars, err := client.DailyBars(context.Background(), "AAPL", contracts.NewDate(2025, 10, 1), contracts.NewDate(2025, 10, 2))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, contracts.NewDate(2025, 10, 1), bars[0].Date)
	assert.Equal(t, contracts.NewDate(2025, 10, 2), bars[1].Date)
	assert.Equal(t, 257.4, bars[1].Close)
	assert.Equal(t, 41000000.0, bars[0].Volume)
}

func TestNewLimiter(t *testing.T) {
	l := NewLimiter(60)
	assert.InDelta(t, 1.0, float64(l.Limit()), 1e-9)

	unlimited := NewLimiter(0)
	assert.True(t, unlimited.Allow())
	assert.True(t, unlimited.Allow())
}

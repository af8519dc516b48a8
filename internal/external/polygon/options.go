package polygon

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/wonny/eds/backend/internal/contracts"
	"github.com/wonny/eds/backend/pkg/redis"
)

const dateLayout = "2006-01-02"

// ListExpiries returns unique, ascending expiration dates of non-expired contracts.
// Redis 캐시 6시간 (만기 목록은 장중에 거의 바뀌지 않음)
func (c *Client) ListExpiries(ctx context.Context, symbol string) ([]time.Time, error) {
	key := redis.ExpiriesKey(symbol)

	var cached []time.Time
	if hit, err := c.cache.Get(ctx, key, &cached); err != nil {
		c.logger.WithError(err).Warn("expiry cache read failed")
	} else if hit {
		return cached, nil
	}

	params := url.Values{}
	params.Set("underlying_ticker", symbol)
	params.Set("expired", "false")
	params.Set("limit", strconv.Itoa(contractsPageSize))

	seen := make(map[time.Time]struct{})
	err := c.getPaged(ctx, "contracts", c.endpoint("/v3/reference/options/contracts", params),
		func() pagedResponse { return &contractsResponse{} },
		func(p pagedResponse) bool {
			for _, r := range p.(*contractsResponse).Results {
				d, err := time.Parse(dateLayout, r.ExpirationDate)
				if err != nil {
					continue
				}
				seen[d] = struct{}{}
			}
			return true
		})
	if err != nil {
		return nil, fmt.Errorf("list expiries %s: %w", symbol, err)
	}

	expiries := make([]time.Time, 0, len(seen))
	for d := range seen {
		expiries = append(expiries, d)
	}
	sort.Slice(expiries, func(i, j int) bool { return expiries[i].Before(expiries[j]) })

	if err := c.cache.Set(ctx, key, expiries, redis.TTLMedium); err != nil {
		c.logger.WithError(err).Warn("expiry cache write failed")
	}

	return expiries, nil
}

// ChainSnapshot fetches every contract of one expiry, up to snapshotLimit
func (c *Client) ChainSnapshot(ctx context.Context, symbol string, expiry time.Time) (*contracts.ChainSnapshot, error) {
	params := url.Values{}
	params.Set("expiration_date", expiry.Format(dateLayout))
	params.Set("limit", strconv.Itoa(min(snapshotPageSize, c.snapshotLimit)))

	snap := &contracts.ChainSnapshot{
		Symbol: symbol,
		Expiry: contracts.DateOf(expiry),
		AsOf:   c.now().UTC(),
	}

	err := c.getPaged(ctx, "snapshot", c.endpoint("/v3/snapshot/options/"+url.PathEscape(symbol), params),
		func() pagedResponse { return &snapshotResponse{} },
		func(p pagedResponse) bool {
			for _, r := range p.(*snapshotResponse).Results {
				if len(snap.Contracts) >= c.snapshotLimit {
					return false
				}
				if oc, ok := toContract(symbol, r); ok {
					snap.Contracts = append(snap.Contracts, oc)
				}
			}
			return len(snap.Contracts) < c.snapshotLimit
		})
	if err != nil {
		return nil, fmt.Errorf("chain snapshot %s %s: %w", symbol, expiry.Format(dateLayout), err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol":    symbol,
		"expiry":    expiry.Format(dateLayout),
		"contracts": len(snap.Contracts),
	}).Debug("Fetched chain snapshot")

	return snap, nil
}

// toContract maps a snapshot result; contracts without type or expiry are skipped
func toContract(symbol string, r snapshotResult) (contracts.OptionContract, bool) {
	var typ contracts.OptionType
	switch r.Details.ContractType {
	case "call":
		typ = contracts.OptionCall
	case "put":
		typ = contracts.OptionPut
	default:
		return contracts.OptionContract{}, false
	}

	expiry, err := time.Parse(dateLayout, r.Details.ExpirationDate)
	if err != nil {
		return contracts.OptionContract{}, false
	}

	oc := contracts.OptionContract{
		OptionSymbol: r.Details.Ticker,
		Underlying:   symbol,
		Expiry:       expiry,
		Strike:       r.Details.StrikePrice,
		Type:         typ,
		IV:           r.ImpliedVolatility,
		OpenInterest: r.OpenInterest,
	}
	if q := r.LastQuote; q != nil {
		oc.Bid, oc.Ask = q.Bid, q.Ask
	}
	if t := r.LastTrade; t != nil {
		oc.LastPrice = t.Price
	}
	if g := r.Greeks; g != nil {
		oc.Delta, oc.Gamma, oc.Theta, oc.Vega = g.Delta, g.Gamma, g.Theta, g.Vega
	}
	if d := r.Day; d != nil {
		oc.DayClose, oc.DayVolume = d.Close, d.Volume
	}
	if u := r.UnderlyingAsset; u != nil {
		oc.UnderlyingPrice = u.Price
	}
	return oc, true
}

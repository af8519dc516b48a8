package polygon

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/wonny/eds/backend/internal/contracts"
	"github.com/wonny/eds/backend/pkg/redis"
)

// marketTZ: 일봉 타임스탬프는 미 동부 자정 기준
var marketTZ = mustLoadLocation("America/New_York")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DailyBars returns adjusted daily bars in [from, to], ascending.
// 과거 구간 (to < 오늘) 만 캐시
func (c *Client) DailyBars(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error) {
	fromStr, toStr := from.Format(dateLayout), to.Format(dateLayout)
	key := redis.BarsKey(symbol, fromStr, toStr)
	historical := contracts.DateOf(to).Before(contracts.DateOf(c.now()))

	if historical {
		var cached []contracts.Bar
		if hit, err := c.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	params := url.Values{}
	params.Set("adjusted", "true")
	params.Set("sort", "asc")
	params.Set("limit", "50000")

	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s", url.PathEscape(symbol), fromStr, toStr)

	var resp aggsResponse
	if err := c.getJSON(ctx, "aggs", c.endpoint(path, params), &resp); err != nil {
		return nil, fmt.Errorf("daily bars %s: %w", symbol, err)
	}

	bars := make([]contracts.Bar, 0, len(resp.Results))
	for _, r := range resp.Results {
		bars = append(bars, contracts.Bar{
			Date:   contracts.DateOf(time.UnixMilli(r.T).In(marketTZ)),
			Close:  r.C,
			Volume: r.V,
		})
	}

	if historical {
		if err := c.cache.Set(ctx, key, bars, redis.TTLDaily); err != nil {
			c.logger.WithError(err).Warn("bars cache write failed")
		}
	}

	return bars, nil
}

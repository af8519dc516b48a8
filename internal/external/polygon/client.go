package polygon

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/eds/backend/internal/metrics"
	"github.com/wonny/eds/backend/pkg/config"
	"github.com/wonny/eds/backend/pkg/httputil"
	"github.com/wonny/eds/backend/pkg/logger"
	"github.com/wonny/eds/backend/pkg/redis"
)

const (
	defaultBaseURL = "https://api.polygon.io"
	// 스냅샷 페이지 최대 크기 (API 상한)
	snapshotPageSize = 250
	// 만기 목록 조회 페이지 크기
	contractsPageSize = 1000
)

// Client handles communication with the Polygon.io REST API
// ⭐ SSOT: 옵션 체인/일봉 호출은 이 클라이언트에서만
type Client struct {
	httpClient    *httputil.Client
	cache         *redis.Cache
	logger        *logger.Logger
	baseURL       string
	apiKey        string
	snapshotLimit int
	now           func() time.Time
}

// NewClient creates a new Polygon client. cache may be nil.
func NewClient(httpClient *httputil.Client, cache *redis.Cache, cfg config.PolygonConfig, log *logger.Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	limit := cfg.SnapshotLimit
	if limit <= 0 {
		limit = 500
	}

	return &Client{
		httpClient:    httpClient,
		cache:         cache,
		logger:        log.WithModule("polygon"),
		baseURL:       baseURL,
		apiKey:        cfg.APIKey,
		snapshotLimit: limit,
		now:           time.Now,
	}
}

// NewLimiter returns the in-process token bucket for a Polygon key
func NewLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
}

// endpoint builds an API URL with the key attached
func (c *Client) endpoint(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apiKey", c.apiKey)
	return c.baseURL + path + "?" + params.Encode()
}

// withKey re-attaches the API key to a next_url cursor (Polygon omits it)
func (c *Client) withKey(next string) (string, error) {
	u, err := url.Parse(next)
	if err != nil {
		return "", fmt.Errorf("invalid next_url: %w", err)
	}
	q := u.Query()
	q.Set("apiKey", c.apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// getJSON fetches one page and records call metrics under name
func (c *Client) getJSON(ctx context.Context, name, target string, dest interface{}) error {
	start := time.Now()
	err := c.httpClient.GetJSON(ctx, target, dest)
	metrics.RecordProviderCall("polygon", name, time.Since(start), err)
	return err
}

// getPaged walks next_url cursors until fn reports done or the cursor ends
func (c *Client) getPaged(ctx context.Context, name, first string, page func() pagedResponse, fn func(pagedResponse) bool) error {
	target := first
	for target != "" {
		resp := page()
		if err := c.getJSON(ctx, name, target, resp); err != nil {
			return err
		}
		if !fn(resp) {
			return nil
		}

		next := resp.NextURL()
		if next == "" {
			return nil
		}
		var err error
		if target, err = c.withKey(next); err != nil {
			return err
		}
	}
	return nil
}

// pagedResponse is any Polygon v3 list response
type pagedResponse interface {
	NextURL() string
}

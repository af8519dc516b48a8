package finnhub

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/eds/backend/internal/contracts"
	"github.com/wonny/eds/backend/internal/metrics"
	"github.com/wonny/eds/backend/pkg/config"
	"github.com/wonny/eds/backend/pkg/httputil"
	"github.com/wonny/eds/backend/pkg/logger"
)

const (
	defaultBaseURL = "https://finnhub.io/api/v1"
	dateLayout     = "2006-01-02"

	// hour 코드 → 현지 시각 (시장 타임존)
	bmoHour = 6
	amcHour = 16
)

// Client handles communication with the Finnhub earnings calendar API
// ⭐ SSOT: 어닝 캘린더 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	apiKey     string
	loc        *time.Location
}

// NewClient creates a new Finnhub client. loc is the market timezone used for earnings timestamps.
func NewClient(httpClient *httputil.Client, cfg config.FinnhubConfig, loc *time.Location, log *logger.Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.WithModule("finnhub"),
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		loc:        loc,
	}
}

// calendarResponse: /calendar/earnings
type calendarResponse struct {
	EarningsCalendar []calendarEntry `json:"earningsCalendar"`
}

type calendarEntry struct {
	Symbol string `json:"symbol"`
	Date   string `json:"date"` // YYYY-MM-DD
	Hour   string `json:"hour"` // bmo | amc | dmh | "" | HH:MM
}

// EarningsCalendar returns all announcements in [from, to]
func (c *Client) EarningsCalendar(ctx context.Context, from, to time.Time) ([]contracts.EarningsEvent, error) {
	params := url.Values{}
	params.Set("from", from.Format(dateLayout))
	params.Set("to", to.Format(dateLayout))
	params.Set("token", c.apiKey)

	var resp calendarResponse
	start := time.Now()
	err := c.httpClient.GetJSON(ctx, c.baseURL+"/calendar/earnings?"+params.Encode(), &resp)
	metrics.RecordProviderCall("finnhub", "calendar", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("earnings calendar %s..%s: %w", from.Format(dateLayout), to.Format(dateLayout), err)
	}

	events := make([]contracts.EarningsEvent, 0, len(resp.EarningsCalendar))
	skipped := 0
	for _, e := range resp.EarningsCalendar {
		ev, ok := c.toEvent(e)
		if !ok {
			skipped++
			continue
		}
		events = append(events, ev)
	}

	c.logger.WithFields(map[string]interface{}{
		"from":    from.Format(dateLayout),
		"to":      to.Format(dateLayout),
		"events":  len(events),
		"skipped": skipped,
	}).Debug("Fetched earnings calendar")

	return events, nil
}

func (c *Client) toEvent(e calendarEntry) (contracts.EarningsEvent, bool) {
	if e.Symbol == "" || e.Date == "" {
		return contracts.EarningsEvent{}, false
	}
	day, err := time.ParseInLocation(dateLayout, e.Date, c.loc)
	if err != nil {
		return contracts.EarningsEvent{}, false
	}

	hour, minute := HourOf(e.Hour)
	return contracts.EarningsEvent{
		Symbol:     e.Symbol,
		EarningsTS: time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, c.loc),
		Session:    SessionOf(e.Hour),
	}, true
}

// HourOf maps a Finnhub hour code to local time.
// "" 와 알 수 없는 코드는 장 마감 (16:00) 으로 간주
func HourOf(code string) (hour, minute int) {
	label := strings.ToLower(strings.TrimSpace(code))
	switch label {
	case "bmo":
		return bmoHour, 0
	case "", "amc":
		return amcHour, 0
	}

	parts := strings.Split(label, ":")
	if len(parts) >= 2 {
		h, errH := strconv.Atoi(parts[0])
		m, errM := strconv.Atoi(parts[1])
		if errH == nil && errM == nil && h >= 0 && h < 24 && m >= 0 && m < 60 {
			return h, m
		}
	}
	return amcHour, 0
}

// SessionOf maps a Finnhub hour code to a session; 비어 있으면 amc
func SessionOf(code string) contracts.Session {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "", "amc":
		return contracts.SessionAMC
	case "bmo":
		return contracts.SessionBMO
	default:
		return contracts.SessionCustom
	}
}

package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/eds/backend/internal/contracts"
	"github.com/wonny/eds/backend/pkg/logger"
)

// SignalHandler serves stored scores, events and ΔOI
// ⭐ SSOT: 시그널 조회 API 는 이 핸들러에서만
type SignalHandler struct {
	daily    contracts.DailySignalRepository
	intraday contracts.IntradayScoreRepository
	earnings contracts.EarningsRepository
	oiDeltas contracts.OIDeltaRepository

	location *time.Location
	logger   *logger.Logger
	now      func() time.Time
}

// Repos groups the repositories the handler reads from
type Repos struct {
	Daily    contracts.DailySignalRepository
	Intraday contracts.IntradayScoreRepository
	Earnings contracts.EarningsRepository
	OIDeltas contracts.OIDeltaRepository
}

// NewSignalHandler creates a new signal handler. loc 는 기본 날짜 계산용 시장 타임존
func NewSignalHandler(repos Repos, loc *time.Location, log *logger.Logger) *SignalHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &SignalHandler{
		daily:    repos.Daily,
		intraday: repos.Intraday,
		earnings: repos.Earnings,
		oiDeltas: repos.OIDeltas,
		location: loc,
		logger:   log,
		now:      time.Now,
	}
}

// ListResponse wraps a dated list
type ListResponse struct {
	Date  string      `json:"date"`
	Count int         `json:"count"`
	Items interface{} `json:"items"`
}

// GetDaily returns the daily scores of a trade date ordered by |score|
// GET /api/signals/daily?date=YYYY-MM-DD
func (h *SignalHandler) GetDaily(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r, h.location, h.now)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.daily.ListByDate(r.Context(), date)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list daily signals")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve daily signals")
		return
	}
	if records == nil {
		records = []contracts.DailySignalRecord{}
	}

	respondJSON(w, http.StatusOK, ListResponse{Date: date.Format(dateLayout), Count: len(records), Items: records})
}

// GetDailySymbol returns one symbol's daily score
// GET /api/signals/daily/{symbol}?date=YYYY-MM-DD
func (h *SignalHandler) GetDailySymbol(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r, h.location, h.now)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(mux.Vars(r)["symbol"]))

	record, err := h.daily.Get(r.Context(), date, symbol)
	if errors.Is(err, contracts.ErrNotFound) {
		respondError(w, http.StatusNotFound, "No daily signal for "+symbol+" on "+date.Format(dateLayout))
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to get daily signal")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve daily signal")
		return
	}

	respondJSON(w, http.StatusOK, record)
}

// GetIntraday returns the latest intraday score per symbol, or one symbol's history
// GET /api/signals/intraday?date=YYYY-MM-DD&symbol=XYZ
func (h *SignalHandler) GetIntraday(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r, h.location, h.now)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))

	records, err := h.intraday.ListLatestByDate(r.Context(), date, symbol)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to list intraday signals")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve intraday signals")
		return
	}
	if records == nil {
		records = []contracts.IntradaySignalRecord{}
	}

	respondJSON(w, http.StatusOK, ListResponse{Date: date.Format(dateLayout), Count: len(records), Items: records})
}

// GetEvents returns the stored earnings events of one local calendar day
// GET /api/events?date=YYYY-MM-DD
func (h *SignalHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r, h.location, h.now)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	from := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, h.location)
	events, err := h.earnings.ListByDateRange(r.Context(), from, from.AddDate(0, 0, 1))
	if err != nil {
		h.logger.WithError(err).Error("Failed to list earnings events")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve earnings events")
		return
	}
	if events == nil {
		events = []contracts.EarningsEvent{}
	}

	respondJSON(w, http.StatusOK, ListResponse{Date: date.Format(dateLayout), Count: len(events), Items: events})
}

// GetOIDeltas returns the pre-market ΔOI rows of a trade date
// GET /api/oi-deltas?date=YYYY-MM-DD
func (h *SignalHandler) GetOIDeltas(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r, h.location, h.now)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	deltas, err := h.oiDeltas.ListByDate(r.Context(), date)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list oi deltas")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve oi deltas")
		return
	}
	if deltas == nil {
		deltas = []contracts.OIDelta{}
	}

	respondJSON(w, http.StatusOK, ListResponse{Date: date.Format(dateLayout), Count: len(deltas), Items: deltas})
}

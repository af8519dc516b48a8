package contracts

import "time"

// Session is the earnings release session hint
type Session string

const (
	SessionBMO    Session = "bmo"    // before market open
	SessionAMC    Session = "amc"    // after market close
	SessionCustom Session = "custom" // 명시적 HH:MM
)

// EarningsEvent is one earnings announcement
// ⭐ SSOT: 어닝 이벤트 → S1 만기 매핑 입력
type EarningsEvent struct {
	Symbol     string    `json:"symbol"`
	EarningsTS time.Time `json:"earnings_ts"` // 시장 타임존 (America/Los_Angeles)
	Session    Session   `json:"session"`
}

// EarningsDate returns the calendar date of the announcement in its own timezone
func (e EarningsEvent) EarningsDate() time.Time {
	return DateOf(e.EarningsTS)
}

// ExpiryTriple holds the event expiry and its neighbors.
// 세 값이 모두 있으면 Prev < Event < Next
type ExpiryTriple struct {
	Event *time.Time `json:"event"`
	Prev  *time.Time `json:"prev"`
	Next  *time.Time `json:"next"`
}

// HasNeighbors reports whether both prev and next exist
func (t ExpiryTriple) HasNeighbors() bool {
	return t.Prev != nil && t.Next != nil
}

// ExpiryValidation holds the day-to-expiry checks for a triple
type ExpiryValidation struct {
	HasEvent   bool `json:"has_event"`
	HasPrev    bool `json:"has_prev"`
	HasNext    bool `json:"has_next"`
	EventDTEOK bool `json:"event_dte_ok"`
	PrevDTEOK  bool `json:"prev_dte_ok"`
	NextDTEOK  bool `json:"next_dte_ok"`
	IsValid    bool `json:"is_valid"`

	EventDTE *int `json:"event_dte,omitempty"` // event - earnings_date
	PrevDTE  *int `json:"prev_dte,omitempty"`  // prev - earnings_date (보통 음수)
	NextGap  *int `json:"next_gap,omitempty"`  // next - event
}

// TradeableEvent is an earnings event that passed expiry validation
type TradeableEvent struct {
	EarningsEvent
	Expiries   ExpiryTriple     `json:"expiries"`
	Validation ExpiryValidation `json:"validation"`
}

// DateOf truncates t to its calendar date, returned as midnight UTC.
// 모든 만기/거래일 비교는 이 형식으로 수행
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewDate builds a calendar date at midnight UTC
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns whole calendar days from a to b (b - a)
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

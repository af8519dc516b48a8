package s1_events

import (
	"sort"
	"time"

	"github.com/wonny/eds/backend/internal/contracts"
)

// 장 마감 (16:00) 이후 발표는 다음 달력일 기준으로 이벤트 만기를 찾음.
// 당일 만기는 발표 전에 이미 정산되므로 prev 로 취급
const marketCloseHour = 16

// ValidationConfig holds day-to-expiry limits
type ValidationConfig struct {
	MinPrevDTE  int `yaml:"min_prev_dte"`  // prev - earnings_date 최소값
	MaxEventDTE int `yaml:"max_event_dte"` // event - earnings_date 최대값
	MinNextGap  int `yaml:"min_next_gap"`  // next - event 최소값
}

// DefaultValidationConfig returns the standard limits
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MinPrevDTE:  0,
		MaxEventDTE: 90,
		MinNextGap:  7,
	}
}

// ResolveEventAndNeighbors selects the event expiry for an earnings timestamp
// and its immediate neighbors.
// ⭐ SSOT: 이벤트 만기 선택은 여기서만
func ResolveEventAndNeighbors(earningsTS time.Time, expiries []time.Time) contracts.ExpiryTriple {
	var triple contracts.ExpiryTriple
	if len(expiries) == 0 {
		return triple
	}

	target := contracts.DateOf(earningsTS)
	if earningsTS.Hour() >= marketCloseHour {
		target = target.AddDate(0, 0, 1)
	}

	sorted := make([]time.Time, len(expiries))
	for i, e := range expiries {
		sorted[i] = contracts.DateOf(e)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	idx := sort.Search(len(sorted), func(i int) bool { return !sorted[i].Before(target) })
	if idx == len(sorted) {
		return triple
	}

	event := sorted[idx]
	triple.Event = &event

	if idx > 0 {
		prev := sorted[idx-1]
		triple.Prev = &prev
	}
	if idx < len(sorted)-1 {
		next := sorted[idx+1]
		triple.Next = &next
	}

	return triple
}

// Validate checks the triple against DTE limits relative to the (unshifted) earnings date
func Validate(triple contracts.ExpiryTriple, earningsDate time.Time, cfg ValidationConfig) contracts.ExpiryValidation {
	earningsDate = contracts.DateOf(earningsDate)

	v := contracts.ExpiryValidation{
		HasEvent: triple.Event != nil,
		HasPrev:  triple.Prev != nil,
		HasNext:  triple.Next != nil,
	}

	if triple.Event != nil {
		dte := contracts.DaysBetween(earningsDate, *triple.Event)
		v.EventDTE = &dte
		v.EventDTEOK = dte >= 0 && dte <= cfg.MaxEventDTE
	}

	// prev 는 보통 발표 전이므로 기본값 0 에서는 false 가 정상
	if triple.Prev != nil {
		dte := contracts.DaysBetween(earningsDate, *triple.Prev)
		v.PrevDTE = &dte
		v.PrevDTEOK = dte >= cfg.MinPrevDTE
	}

	if triple.Next != nil && triple.Event != nil {
		gap := contracts.DaysBetween(*triple.Event, *triple.Next)
		v.NextGap = &gap
		v.NextDTEOK = gap >= cfg.MinNextGap
	}

	v.IsValid = v.HasEvent && v.EventDTEOK
	return v
}

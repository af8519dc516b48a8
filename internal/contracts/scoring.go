package contracts

import "time"

// Direction is the option side to buy
type Direction string

const (
	DirectionCall Direction = "CALL"
	DirectionPut  Direction = "PUT"
	DirectionNone Direction = "NONE"
)

// Decision is the final trade decision
type Decision string

const (
	DecisionCall         Decision = "CALL"
	DecisionPut          Decision = "PUT"
	DecisionPass         Decision = "PASS"
	DecisionPassOrSpread Decision = "PASS_OR_SPREAD" // 일간 전용
)

// Structure is the option structure recommendation
type Structure string

const (
	StructureNaked    Structure = "NAKED"
	StructureVertical Structure = "VERTICAL"
	StructureSkip     Structure = "SKIP"
)

// Conviction buckets |score|
type Conviction string

const (
	ConvictionHigh   Conviction = "HIGH"
	ConvictionMedium Conviction = "MEDIUM"
	ConvictionLow    Conviction = "LOW"
)

// Intraday notes
const (
	NoteWhipsawReduce = "WHIPSAW_REDUCE"
)

// ScoreComponents are the weighted inputs of a score (before weighting)
type ScoreComponents struct {
	D1 float64 `json:"d1"` // z_rr_25d
	D2 float64 `json:"d2"` // flow (ΔOI + thrust)
	D3 float64 `json:"d3"` // pcr 항 (일간: -z_vol_pcr, 장중: z_vol_pcr)
	D4 float64 `json:"d4"` // z_beta_adj_return
	D5 float64 `json:"d5"` // skew/return consistency (일간 전용)
	P1 float64 `json:"p1"` // pct_iv_bump
	P2 float64 `json:"p2"` // z_spread_pct_atm
}

// DirectionalScore is the scorer output for one symbol
// ⭐ SSOT: S4 → 저장/CSV/API 전달
type DirectionalScore struct {
	Symbol     string          `json:"symbol"`
	Score      float64         `json:"score"`
	Direction  Direction       `json:"direction"`
	Decision   Decision        `json:"decision"`
	Structure  Structure       `json:"structure"`
	Conviction Conviction      `json:"conviction"`
	Components ScoreComponents `json:"components"`
}

// IntradayScoreState is the smoothed intraday score, keyed by (TradeDate, Symbol)
type IntradayScoreState struct {
	Symbol        string    `json:"symbol"`
	TradeDate     time.Time `json:"trade_date"`
	ScoreNow      float64   `json:"dirscore_now"`
	ScoreEWMA     float64   `json:"dirscore_ewma"`
	Direction     Direction `json:"direction"`
	Decision      Decision  `json:"decision"`
	Structure     Structure `json:"structure"`
	SizeReduction float64   `json:"size_reduction"`
	Notes         string    `json:"notes,omitempty"`
}

// PreviousIntradayScore is the last persisted intraday score of the same day
type PreviousIntradayScore struct {
	ScoreNow  float64 `json:"dirscore_now"`
	ScoreEWMA float64 `json:"dirscore_ewma"`
}

// DailySignalRecord is one daily_signals row
type DailySignalRecord struct {
	TradeDate  time.Time    `json:"trade_date"`
	Bundle     SignalBundle `json:"signals"`
	Score      float64      `json:"dirscore"`
	Decision   Decision     `json:"decision"`
	Direction  Direction    `json:"direction"`
	Conviction Conviction   `json:"conviction"`
	Structure  Structure    `json:"structure"`
	ConfigHash string       `json:"config_hash"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Symbol returns the record symbol
func (r *DailySignalRecord) Symbol() string {
	return r.Bundle.Symbol
}

// IntradaySignalRecord is one intraday_signals row
type IntradaySignalRecord struct {
	TradeDate  time.Time                       `json:"trade_date"`
	AsOf       time.Time                       `json:"asof_ts"`
	Bundle     SignalBundle                    `json:"signals"`
	Normalized map[SignalField]NormalizedValue `json:"normalized"`
	State      IntradayScoreState              `json:"state"`
	EWMAAlpha  float64                         `json:"ewma_alpha"`
}

// OIDelta is the pre-market open interest change in the ATM window
type OIDelta struct {
	TradeDate   time.Time  `json:"trade_date"`
	Symbol      string     `json:"symbol"`
	EventExpiry *time.Time `json:"event_expiry,omitempty"`
	CallsDelta  int64      `json:"d_oi_calls"`
	PutsDelta   int64      `json:"d_oi_puts"`
}

// Net returns calls - puts
func (d OIDelta) Net() int64 {
	return d.CallsDelta - d.PutsDelta
}

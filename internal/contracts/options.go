package contracts

import "time"

// OptionType is call or put
type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// OptionContract is one strike/type/expiry at a point in time.
// 스냅샷마다 새로 생성되며 생성 후 수정하지 않음
type OptionContract struct {
	OptionSymbol string     `json:"option_symbol"` // e.g. O:AAPL251219C00150000
	Underlying   string     `json:"underlying"`
	Expiry       time.Time  `json:"expiry"`
	Strike       float64    `json:"strike"`
	Type         OptionType `json:"option_type"`

	// 시장 데이터 (없으면 nil)
	Bid             *float64 `json:"bid,omitempty"`
	Ask             *float64 `json:"ask,omitempty"`
	LastPrice       *float64 `json:"last_trade_price,omitempty"`
	DayClose        *float64 `json:"day_close,omitempty"`
	IV              *float64 `json:"implied_volatility,omitempty"`
	Delta           *float64 `json:"delta,omitempty"`
	Gamma           *float64 `json:"gamma,omitempty"`
	Theta           *float64 `json:"theta,omitempty"`
	Vega            *float64 `json:"vega,omitempty"`
	DayVolume       *float64 `json:"day_volume,omitempty"`
	OpenInterest    *float64 `json:"open_interest,omitempty"`
	UnderlyingPrice *float64 `json:"underlying_price,omitempty"`
}

// Price returns the last trade price, falling back to the day close
func (c OptionContract) Price() *float64 {
	if c.LastPrice != nil {
		return c.LastPrice
	}
	return c.DayClose
}

// Volume returns day volume, 0 when missing
func (c OptionContract) Volume() float64 {
	if c.DayVolume == nil {
		return 0
	}
	return *c.DayVolume
}

// ChainSnapshot is a set of contracts for one underlying taken at AsOf
type ChainSnapshot struct {
	Symbol    string           `json:"symbol"`
	Expiry    time.Time        `json:"expiry"`
	AsOf      time.Time        `json:"asof_ts"`
	Contracts []OptionContract `json:"contracts"`
}

// Empty reports whether the snapshot has no contracts (nil-safe)
func (s *ChainSnapshot) Empty() bool {
	return s == nil || len(s.Contracts) == 0
}

// ContractsOrNil returns the contracts of a possibly nil snapshot
func (s *ChainSnapshot) ContractsOrNil() []OptionContract {
	if s == nil {
		return nil
	}
	return s.Contracts
}

// SpotPrice returns the first underlying price reported in the snapshot
func SpotPrice(contracts []OptionContract) *float64 {
	for _, c := range contracts {
		if c.UnderlyingPrice != nil {
			return c.UnderlyingPrice
		}
	}
	return nil
}

// Bar is one daily aggregate of an underlying
type Bar struct {
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Float returns a pointer to v. 테스트와 파서에서 nullable 필드를 채울 때 사용
func Float(v float64) *float64 {
	return &v
}

package contracts

import "time"

// SignalBundle is the raw signal set for one (symbol, as_of).
// ⭐ SSOT: S2 → S3/S4 시그널 데이터 전달
// 모든 값은 nullable. 데이터가 없으면 nil 이며 0 과 구분됨
type SignalBundle struct {
	Symbol string    `json:"symbol"`
	AsOf   time.Time `json:"asof_ts"`

	// Provenance
	EventExpiry *time.Time `json:"event_expiry,omitempty"`
	SpotPrice   *float64   `json:"spot_price,omitempty"`

	// Skew
	RR25 *float64 `json:"rr_25d,omitempty"`

	// Flow
	VolPCR      *float64 `json:"vol_pcr,omitempty"`
	NotionalPCR *float64 `json:"notional_pcr,omitempty"`
	CallThrust  *float64 `json:"call_thrust,omitempty"`
	PutThrust   *float64 `json:"put_thrust,omitempty"`
	NetThrust   *float64 `json:"net_thrust,omitempty"`

	// Term structure
	ATMIVEvent *float64 `json:"atm_iv_event,omitempty"`
	ATMIVPrev  *float64 `json:"atm_iv_prev,omitempty"`
	ATMIVNext  *float64 `json:"atm_iv_next,omitempty"`
	IVBump     *float64 `json:"iv_bump,omitempty"`

	// Liquidity
	SpreadPctATM *float64 `json:"spread_pct_atm,omitempty"`

	// Momentum
	StockReturn   *float64 `json:"stock_return,omitempty"`
	SectorReturn  *float64 `json:"sector_return,omitempty"`
	Beta          *float64 `json:"beta,omitempty"`
	BetaAdjReturn *float64 `json:"beta_adj_return,omitempty"`

	// Pre-market ΔOI (calls - puts)
	DeltaOINet *float64 `json:"delta_oi_net,omitempty"`

	// 장중 가드레일 입력
	CallVolume float64 `json:"call_volume"`
	PutVolume  float64 `json:"put_volume"`
}

// TotalVolume returns call + put day volume of the event chain
func (b *SignalBundle) TotalVolume() float64 {
	return b.CallVolume + b.PutVolume
}

// SignalField names one normalizable column of SignalBundle
type SignalField string

const (
	FieldRR25          SignalField = "rr_25d"
	FieldVolPCR        SignalField = "vol_pcr"
	FieldNotionalPCR   SignalField = "notional_pcr"
	FieldCallThrust    SignalField = "call_thrust"
	FieldPutThrust     SignalField = "put_thrust"
	FieldNetThrust     SignalField = "net_thrust"
	FieldIVBump        SignalField = "iv_bump"
	FieldSpreadPctATM  SignalField = "spread_pct_atm"
	FieldBetaAdjReturn SignalField = "beta_adj_return"
	FieldDeltaOINet    SignalField = "delta_oi_net"
)

// DailySignalFields is the column set normalized by the post-close run
var DailySignalFields = []SignalField{
	FieldRR25,
	FieldVolPCR,
	FieldNotionalPCR,
	FieldCallThrust,
	FieldPutThrust,
	FieldNetThrust,
	FieldIVBump,
	FieldSpreadPctATM,
	FieldBetaAdjReturn,
}

// PreMarketSignalFields adds ΔOI to the daily set
var PreMarketSignalFields = append(append([]SignalField{}, DailySignalFields...), FieldDeltaOINet)

// IntradaySignalFields is the column set normalized by each intraday run
var IntradaySignalFields = []SignalField{
	FieldRR25,
	FieldNetThrust,
	FieldVolPCR,
	FieldBetaAdjReturn,
	FieldIVBump,
	FieldSpreadPctATM,
}

// Value returns the raw value of field f (nil for unknown fields)
func (b *SignalBundle) Value(f SignalField) *float64 {
	switch f {
	case FieldRR25:
		return b.RR25
	case FieldVolPCR:
		return b.VolPCR
	case FieldNotionalPCR:
		return b.NotionalPCR
	case FieldCallThrust:
		return b.CallThrust
	case FieldPutThrust:
		return b.PutThrust
	case FieldNetThrust:
		return b.NetThrust
	case FieldIVBump:
		return b.IVBump
	case FieldSpreadPctATM:
		return b.SpreadPctATM
	case FieldBetaAdjReturn:
		return b.BetaAdjReturn
	case FieldDeltaOINet:
		return b.DeltaOINet
	default:
		return nil
	}
}

// NormalizedValue is the z-score and percentile rank of one field in one batch
type NormalizedValue struct {
	Z   *float64 `json:"z,omitempty"`
	Pct *float64 `json:"pct,omitempty"`
}

// NormalizedSignal pairs a bundle with its batch-relative values.
// 배치 범위 밖에서는 의미 없음
type NormalizedSignal struct {
	Bundle *SignalBundle                   `json:"bundle"`
	Values map[SignalField]NormalizedValue `json:"values"`
}

// Z returns the z-score of f, nil if missing
func (n *NormalizedSignal) Z(f SignalField) *float64 {
	if n == nil || n.Values == nil {
		return nil
	}
	return n.Values[f].Z
}

// Pct returns the percentile rank of f, nil if missing
func (n *NormalizedSignal) Pct(f SignalField) *float64 {
	if n == nil || n.Values == nil {
		return nil
	}
	return n.Values[f].Pct
}

// Symbol returns the bundle symbol
func (n *NormalizedSignal) Symbol() string {
	if n == nil || n.Bundle == nil {
		return ""
	}
	return n.Bundle.Symbol
}

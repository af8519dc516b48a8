package s2_signals

import (
	"sort"
	"time"

	"github.com/wonny/eds/backend/internal/contracts"
)

// 계약당 주식 수
const contractMultiplier = 100

// PCRResult holds put/call ratios
type PCRResult struct {
	VolPCR      *float64
	NotionalPCR *float64
}

// PCR computes volume and notional put/call ratios over the event chain.
// 가격(last → day close)이 없거나 0 이하인 계약은 건너뜀
func PCR(chain []contracts.OptionContract) PCRResult {
	var callVol, putVol, callNotional, putNotional float64

	for _, c := range chain {
		price := c.Price()
		if price == nil || *price <= 0 {
			continue
		}

		vol := c.Volume()
		notional := vol * *price * contractMultiplier

		switch c.Type {
		case contracts.OptionCall:
			callVol += vol
			callNotional += notional
		case contracts.OptionPut:
			putVol += vol
			putNotional += notional
		}
	}

	var res PCRResult
	if callVol > 0 {
		v := putVol / callVol
		res.VolPCR = &v
	}
	if callNotional > 0 {
		v := putNotional / callNotional
		res.NotionalPCR = &v
	}
	return res
}

// SideVolumes sums day volume by side
func SideVolumes(chain []contracts.OptionContract) (calls, puts float64) {
	for _, c := range chain {
		switch c.Type {
		case contracts.OptionCall:
			calls += c.Volume()
		case contracts.OptionPut:
			puts += c.Volume()
		}
	}
	return calls, puts
}

// Med20Baseline is the typical (20-day median) option volume per side
type Med20Baseline struct {
	CallMed20 float64 `json:"call_med20"`
	PutMed20  float64 `json:"put_med20"`
}

// FallbackBaseline is used when underlying bars are unavailable
var FallbackBaseline = Med20Baseline{CallMed20: 10000, PutMed20: 8000}

// 기초자산 거래량 대비 옵션 거래량 추정 비율
const (
	optionVolumeShare = 0.05
	callShare         = 0.6
	putShare          = 0.4
	baselineDays      = 30
)

// BaselineFromBars estimates the option volume baseline from the median
// underlying share volume. 바 데이터가 없으면 FallbackBaseline
func BaselineFromBars(bars []contracts.Bar) Med20Baseline {
	vols := make([]float64, 0, len(bars))
	for _, b := range bars {
		if b.Volume > 0 {
			vols = append(vols, b.Volume)
		}
	}
	if len(vols) == 0 {
		return FallbackBaseline
	}

	m := median(vols)
	return Med20Baseline{
		CallMed20: m * optionVolumeShare * callShare,
		PutMed20:  m * optionVolumeShare * putShare,
	}
}

// BaselineWindow returns the bar window used by BaselineFromBars
func BaselineWindow(date time.Time) (from, to time.Time) {
	return date.AddDate(0, 0, -baselineDays), date
}

// ThrustResult holds per-side volume thrust
type ThrustResult struct {
	CallThrust *float64
	PutThrust  *float64
	NetThrust  *float64
}

// VolumeThrust = (volume − med20) / med20 per side.
// 기준값이 0 이하이면 해당 side 는 nil, net 은 양쪽 모두 있을 때만
func VolumeThrust(chain []contracts.OptionContract, baseline Med20Baseline) ThrustResult {
	calls, puts := SideVolumes(chain)

	var res ThrustResult
	if baseline.CallMed20 > 0 {
		v := (calls - baseline.CallMed20) / baseline.CallMed20
		res.CallThrust = &v
	}
	if baseline.PutMed20 > 0 {
		v := (puts - baseline.PutMed20) / baseline.PutMed20
		res.PutThrust = &v
	}
	if res.CallThrust != nil && res.PutThrust != nil {
		v := *res.CallThrust - *res.PutThrust
		res.NetThrust = &v
	}
	return res
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

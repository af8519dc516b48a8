package s4_scoring

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/eds/backend/internal/contracts"
	"github.com/wonny/eds/backend/internal/strategyconfig"
)

// Consistency is D5: corr(past rr sign, next-day return) rescaled to [-scale, +scale].
// 표본 부족 또는 NaN (분산 0) 이면 0
func Consistency(rrSigns, nextReturns []float64, cfg strategyconfig.Consistency) float64 {
	if len(rrSigns) != len(nextReturns) || len(rrSigns) < cfg.MinPoints {
		return 0
	}

	corr := stat.Correlation(rrSigns, nextReturns, nil)
	if math.IsNaN(corr) || math.IsInf(corr, 0) {
		return 0
	}
	return corr * cfg.Scale
}

// ConsistencyInputs pairs each stored rr_25d sign with the underlying's
// return from that trade date's close to the next bar's close.
// bars 는 날짜 오름차순이어야 함
func ConsistencyInputs(history []contracts.DailySignalRecord, bars []contracts.Bar) (signs, returns []float64) {
	if len(bars) < 2 {
		return nil, nil
	}

	for _, rec := range history {
		if rec.Bundle.RR25 == nil || math.IsNaN(*rec.Bundle.RR25) {
			continue
		}

		day := contracts.DateOf(rec.TradeDate)
		// 첫 번째로 day 보다 늦은 bar
		i := sort.Search(len(bars), func(k int) bool {
			return contracts.DateOf(bars[k].Date).After(day)
		})
		if i == 0 || i >= len(bars) {
			continue
		}
		// 기준 bar 는 day 당일이어야 함 (휴장일 기록 제외)
		if !contracts.DateOf(bars[i-1].Date).Equal(day) || bars[i-1].Close <= 0 {
			continue
		}

		signs = append(signs, sign(*rec.Bundle.RR25))
		returns = append(returns, bars[i].Close/bars[i-1].Close-1)
	}
	return signs, returns
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

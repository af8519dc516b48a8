package s2_signals

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/eds/backend/internal/contracts"
)

const (
	betaWindow     = 60 // trailing 수익률 개수
	minBetaWindow  = 20
	minExtraObs    = 20 // lookback + 20 이상 필요
	barHistoryDays = 120 // lookback 에 더해 조회할 달력일 (~80 거래일)
)

// MomentumResult is the beta-adjusted short-horizon momentum
type MomentumResult struct {
	StockReturn   float64 `json:"stock_return"`
	SectorReturn  float64 `json:"sector_return"`
	Beta          float64 `json:"beta"`
	BetaAdjReturn float64 `json:"beta_adj_return"`
}

// MomentumWindow returns the bar range needed for BetaAdjustedMomentum
func MomentumWindow(date time.Time, lookback int) (from, to time.Time) {
	return date.AddDate(0, 0, -(lookback + barHistoryDays)), date
}

// BetaAdjustedMomentum returns stock_return − β·sector_return over the last
// lookback daily returns. β = Cov(stock, sector) / Var(sector) over the trailing
// 60 overlapping returns (β = 1 when sector variance is 0).
// 겹치는 관측치가 lookback+20 미만이면 nil
func BetaAdjustedMomentum(stockBars, sectorBars []contracts.Bar, lookback int) *MomentumResult {
	if lookback < 1 {
		return nil
	}

	stockRet, sectorRet := mergedReturns(stockBars, sectorBars)
	n := len(stockRet)
	if n < lookback+minExtraObs {
		return nil
	}

	start := n - betaWindow
	if start < 0 {
		start = 0
	}
	ws, wm := stockRet[start:], sectorRet[start:]
	if len(ws) < minBetaWindow {
		return nil
	}

	beta := 1.0
	if v := stat.Variance(wm, nil); v != 0 {
		beta = stat.Covariance(ws, wm, nil) / v
	}

	var stockSum, sectorSum float64
	for i := n - lookback; i < n; i++ {
		stockSum += stockRet[i]
		sectorSum += sectorRet[i]
	}

	return &MomentumResult{
		StockReturn:   stockSum,
		SectorReturn:  sectorSum,
		Beta:          beta,
		BetaAdjReturn: stockSum - beta*sectorSum,
	}
}

// mergedReturns computes simple daily returns per series and inner-joins them
// on date, in stock bar order
func mergedReturns(stockBars, sectorBars []contracts.Bar) ([]float64, []float64) {
	sector := dailyReturns(sectorBars)

	stockRet := make([]float64, 0, len(stockBars))
	sectorRet := make([]float64, 0, len(stockBars))
	for i := 1; i < len(stockBars); i++ {
		prev, cur := stockBars[i-1].Close, stockBars[i].Close
		if prev <= 0 {
			continue
		}
		sr, ok := sector[contracts.DateOf(stockBars[i].Date)]
		if !ok {
			continue
		}
		stockRet = append(stockRet, cur/prev-1)
		sectorRet = append(sectorRet, sr)
	}
	return stockRet, sectorRet
}

func dailyReturns(bars []contracts.Bar) map[time.Time]float64 {
	out := make(map[time.Time]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev <= 0 {
			continue
		}
		out[contracts.DateOf(bars[i].Date)] = bars[i].Close/prev - 1
	}
	return out
}

package s3_normalize

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/eds/backend/internal/contracts"
)

// DefaultWinsorizeStd clips z-scores to ±2σ
const DefaultWinsorizeStd = 2.0

// NormalizeBatch converts each field to a winsorized z-score and a percentile
// rank relative to the rest of the batch.
// ⭐ SSOT: 횡단면 정규화는 여기서만. 결과는 배치 밖에서 재사용하지 않음
func NormalizeBatch(bundles []*contracts.SignalBundle, fields []contracts.SignalField, winsorizeStd float64) []*contracts.NormalizedSignal {
	if winsorizeStd <= 0 {
		winsorizeStd = DefaultWinsorizeStd
	}

	out := make([]*contracts.NormalizedSignal, len(bundles))
	for i, b := range bundles {
		out[i] = &contracts.NormalizedSignal{
			Bundle: b,
			Values: make(map[contracts.SignalField]contracts.NormalizedValue, len(fields)),
		}
	}

	for _, field := range fields {
		column := make([]*float64, len(bundles))
		for i, b := range bundles {
			column[i] = validValue(b.Value(field))
		}

		zs := ZScores(column, winsorizeStd)
		pcts := PercentileRanks(column)

		for i := range out {
			out[i].Values[field] = contracts.NormalizedValue{Z: zs[i], Pct: pcts[i]}
		}
	}

	return out
}

// ZScores returns clipped z-scores for a column. nil 입력은 nil 유지.
// 표본 표준편차가 0 이거나 정의되지 않으면 (값 1개) 모두 0
func ZScores(column []*float64, winsorizeStd float64) []*float64 {
	values := present(column)
	out := make([]*float64, len(column))
	if len(values) == 0 {
		return out
	}

	mean, std := stat.MeanStdDev(values, nil)
	flat := std == 0 || math.IsNaN(std)

	for i, v := range column {
		if v == nil {
			continue
		}
		z := 0.0
		if !flat {
			z = clip((*v-mean)/std, winsorizeStd)
		}
		out[i] = &z
	}
	return out
}

// PercentileRanks returns average rank / count in (0, 1]. 동률은 평균 순위를 공유
func PercentileRanks(column []*float64) []*float64 {
	type entry struct {
		idx int
		v   float64
	}

	entries := make([]entry, 0, len(column))
	for i, v := range column {
		if v != nil {
			entries = append(entries, entry{idx: i, v: *v})
		}
	}

	out := make([]*float64, len(column))
	n := len(entries)
	if n == 0 {
		return out
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].v < entries[j].v })

	for i := 0; i < n; {
		j := i
		for j < n && entries[j].v == entries[i].v {
			j++
		}
		// 1-based 순위 i+1 .. j 의 평균
		avgRank := float64(i+1+j) / 2.0
		pct := avgRank / float64(n)
		for k := i; k < j; k++ {
			p := pct
			out[entries[k].idx] = &p
		}
		i = j
	}
	return out
}

func present(column []*float64) []float64 {
	values := make([]float64, 0, len(column))
	for _, v := range column {
		if v != nil {
			values = append(values, *v)
		}
	}
	return values
}

// validValue treats NaN and ±Inf as missing
func validValue(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}

func clip(z, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, z))
}

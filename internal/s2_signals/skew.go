package s2_signals

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"

	"github.com/wonny/eds/backend/internal/contracts"
)

const (
	// RRTargetDelta is the delta used for the risk reversal legs
	RRTargetDelta = 0.25

	atmIVBand = 0.20 // spot ±20%
)

// point is one (x, y) sample for interpolation
type point struct {
	x, y float64
}

// InterpIVAtDelta returns the IV at |delta| = target on one side of the chain.
// 관측 범위 밖의 target 은 가장 가까운 끝점 IV 로 고정 (외삽 없음)
func InterpIVAtDelta(chain []contracts.OptionContract, target float64, side contracts.OptionType) *float64 {
	pts := make([]point, 0, len(chain))
	for _, c := range chain {
		if c.Type != side || c.Delta == nil || c.IV == nil || *c.IV <= 0 {
			continue
		}
		pts = append(pts, point{x: math.Abs(*c.Delta), y: *c.IV})
	}

	xs, ys := sortedUnique(pts)
	if len(xs) < 2 {
		return nil
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil
	}

	v := pl.Predict(target)
	return &v
}

// ATMIV returns the at-the-money IV around spot.
// 양쪽 모두 2개 이상의 행사가가 있으면 각각 spot 에서 선형 보간 후 평균,
// 아니면 spot 에 가장 가까운 행사가의 IV
func ATMIV(chain []contracts.OptionContract, spot *float64) *float64 {
	if len(chain) == 0 || spot == nil || *spot <= 0 {
		return nil
	}
	s := *spot

	var calls, puts []point
	for _, c := range chain {
		if c.IV == nil || *c.IV <= 0 {
			continue
		}
		if math.Abs(c.Strike-s)/s > atmIVBand {
			continue
		}
		switch c.Type {
		case contracts.OptionCall:
			calls = append(calls, point{x: c.Strike, y: *c.IV})
		case contracts.OptionPut:
			puts = append(puts, point{x: c.Strike, y: *c.IV})
		}
	}

	cx, cy := sortedUnique(calls)
	px, py := sortedUnique(puts)
	if len(cx) < 2 || len(px) < 2 {
		return closestIV(append(append([]point{}, calls...), puts...), s)
	}

	v := (linearAt(cx, cy, s) + linearAt(px, py, s)) / 2.0
	return &v
}

// closestIV returns the IV of the strike nearest to spot, nil when pts is empty
func closestIV(pts []point, spot float64) *float64 {
	if len(pts) == 0 {
		return nil
	}
	best := pts[0]
	for _, p := range pts[1:] {
		if math.Abs(p.x-spot) < math.Abs(best.x-spot) {
			best = p
		}
	}
	v := best.y
	return &v
}

// RR25 = IV(25Δ call) − IV(25Δ put). 양수면 콜 스큐 (강세)
func RR25(chain []contracts.OptionContract) *float64 {
	call := InterpIVAtDelta(chain, RRTargetDelta, contracts.OptionCall)
	put := InterpIVAtDelta(chain, RRTargetDelta, contracts.OptionPut)
	if call == nil || put == nil {
		return nil
	}

	v := *call - *put
	return &v
}

// sortedUnique sorts by x and averages y over duplicate x values
func sortedUnique(pts []point) ([]float64, []float64) {
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].x < pts[j].x })

	xs := make([]float64, 0, len(pts))
	ys := make([]float64, 0, len(pts))
	for i := 0; i < len(pts); {
		j, sum := i, 0.0
		for j < len(pts) && pts[j].x == pts[i].x {
			sum += pts[j].y
			j++
		}
		xs = append(xs, pts[i].x)
		ys = append(ys, sum/float64(j-i))
		i = j
	}
	return xs, ys
}

// linearAt evaluates the piecewise linear curve through (xs, ys) at x,
// extending the first/last segment outside the observed range.
// xs 는 정렬되어 있고 길이 2 이상
func linearAt(xs, ys []float64, x float64) float64 {
	n := len(xs)
	i := sort.SearchFloat64s(xs, x)
	switch {
	case i <= 0:
		i = 1
	case i >= n:
		i = n - 1
	}

	x0, x1 := xs[i-1], xs[i]
	y0, y1 := ys[i-1], ys[i]
	return y0 + (y1-y0)*(x-x0)/(x1-x0)
}

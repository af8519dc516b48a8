package s2_signals

import (
	"math"

	"github.com/wonny/eds/backend/internal/contracts"
)

const atmSpreadBand = 0.05 // spot ±5%

// IVBump = ATM IV(event) − mean of the available neighbor ATM IVs.
// event 가 없거나 이웃이 하나도 없으면 nil
func IVBump(event, prev, next *float64) *float64 {
	if event == nil {
		return nil
	}

	sum, n := 0.0, 0
	for _, v := range []*float64{prev, next} {
		if v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}

	v := *event - sum/float64(n)
	return &v
}

// SpreadPctATM is the mean (ask−bid)/mid×100 over contracts within ±5% of spot
func SpreadPctATM(chain []contracts.OptionContract, spot *float64) *float64 {
	if len(chain) == 0 || spot == nil || *spot <= 0 {
		return nil
	}
	s := *spot

	sum, n := 0.0, 0
	for _, c := range chain {
		if math.Abs(c.Strike-s)/s > atmSpreadBand {
			continue
		}
		if c.Bid == nil || c.Ask == nil || *c.Bid <= 0 || *c.Ask <= 0 {
			continue
		}

		mid := (*c.Bid + *c.Ask) / 2.0
		sum += (*c.Ask - *c.Bid) / mid * 100
		n++
	}
	if n == 0 {
		return nil
	}

	v := sum / float64(n)
	return &v
}

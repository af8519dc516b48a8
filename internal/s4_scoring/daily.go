package s4_scoring

import (
	"math"

	"github.com/wonny/eds/backend/internal/contracts"
	"github.com/wonny/eds/backend/internal/strategyconfig"
)

// 누락 값 기본값: z 항은 0, iv bump 백분위는 중앙값
const (
	defaultZ   = 0.0
	defaultPct = 0.5
)

// ScoreDaily combines one normalized row into the post-close DirScore.
// d5 is the precomputed consistency term (0 when history is short).
func ScoreDaily(n *contracts.NormalizedSignal, d5 float64, cfg strategyconfig.Daily) contracts.DirectionalScore {
	w := cfg.Weights

	c := contracts.ScoreComponents{
		D1: zOr(n, contracts.FieldRR25),
		D2: dailyFlow(n, cfg.D2),
		D3: -zOr(n, contracts.FieldVolPCR),
		D4: zOr(n, contracts.FieldBetaAdjReturn),
		D5: finiteOr(d5, 0),
		P1: pctOr(n, contracts.FieldIVBump),
		P2: zOr(n, contracts.FieldSpreadPctATM),
	}

	score := w.D1*c.D1 + w.D2*c.D2 + w.D3*c.D3 + w.D4*c.D4 + w.D5*c.D5 + w.P1*c.P1 + w.P2*c.P2

	conviction := convictionFor(score, cfg.Conviction)

	return contracts.DirectionalScore{
		Symbol:     n.Symbol(),
		Score:      score,
		Direction:  dailyDirection(score),
		Decision:   dailyDecision(score, cfg.Decision),
		Structure:  dailyStructure(c.P1, conviction, cfg.Structure),
		Conviction: conviction,
		Components: c,
	}
}

// ScoreDailyBatch scores every row of a normalized batch in order.
// consistency 는 심볼별 D5, 없는 심볼은 0
func ScoreDailyBatch(batch []*contracts.NormalizedSignal, consistency map[string]float64, cfg strategyconfig.Daily) []contracts.DirectionalScore {
	out := make([]contracts.DirectionalScore, 0, len(batch))
	for _, n := range batch {
		out = append(out, ScoreDaily(n, consistency[n.Symbol()], cfg))
	}
	return out
}

// dailyFlow builds D2 from ΔOI and volume thrust
// thrust: z_net_thrust, 없으면 z_call_thrust - z_put_thrust
func dailyFlow(n *contracts.NormalizedSignal, cfg strategyconfig.D2Config) float64 {
	var thrust float64
	if z := n.Z(contracts.FieldNetThrust); z != nil {
		thrust = *z
	} else {
		call, put := n.Z(contracts.FieldCallThrust), n.Z(contracts.FieldPutThrust)
		if call != nil || put != nil {
			thrust = zVal(call) - zVal(put)
		}
	}

	d2 := cfg.ThrustWeight * thrust
	if cfg.Mode == strategyconfig.D2OIPlusThrust {
		d2 += zOr(n, contracts.FieldDeltaOINet)
	}
	return d2
}

func dailyDirection(score float64) contracts.Direction {
	if score > 0 {
		return contracts.DirectionCall
	}
	return contracts.DirectionPut
}

func dailyDecision(score float64, t strategyconfig.Decision) contracts.Decision {
	switch {
	case score >= t.CallMin:
		return contracts.DecisionCall
	case score <= t.PutMax:
		return contracts.DecisionPut
	default:
		return contracts.DecisionPassOrSpread
	}
}

func convictionFor(score float64, t strategyconfig.Conviction) contracts.Conviction {
	abs := math.Abs(score)
	switch {
	case abs >= t.HighMin:
		return contracts.ConvictionHigh
	case abs >= t.MediumMin:
		return contracts.ConvictionMedium
	default:
		return contracts.ConvictionLow
	}
}

// dailyStructure: pct_iv_bump 는 [0,1] 백분위 그대로 비교
func dailyStructure(pctIVBump float64, conviction contracts.Conviction, t strategyconfig.Structure) contracts.Structure {
	if conviction == contracts.ConvictionLow {
		return contracts.StructureSkip
	}
	switch {
	case pctIVBump <= t.NakedMaxPct:
		return contracts.StructureNaked
	case pctIVBump <= t.VerticalMaxPct:
		return contracts.StructureVertical
	default:
		return contracts.StructureSkip
	}
}

// === Helper Functions ===

func zOr(n *contracts.NormalizedSignal, f contracts.SignalField) float64 {
	return zVal(n.Z(f))
}

func zVal(z *float64) float64 {
	if z == nil {
		return defaultZ
	}
	return finiteOr(*z, defaultZ)
}

func pctOr(n *contracts.NormalizedSignal, f contracts.SignalField) float64 {
	p := n.Pct(f)
	if p == nil {
		return defaultPct
	}
	return finiteOr(*p, defaultPct)
}

func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

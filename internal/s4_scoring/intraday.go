package s4_scoring

import (
	"math"

	"github.com/wonny/eds/backend/internal/contracts"
	"github.com/wonny/eds/backend/internal/strategyconfig"
)

// ScoreIntraday computes the nowcast score and applies the guardrails.
// ΔOI 항 없음 (장중에는 새 OI 가 없음)
func ScoreIntraday(n *contracts.NormalizedSignal, cfg strategyconfig.Intraday) contracts.DirectionalScore {
	w := cfg.Weights

	c := contracts.ScoreComponents{
		D1: zOr(n, contracts.FieldRR25),
		D2: zOr(n, contracts.FieldNetThrust),
		D3: zOr(n, contracts.FieldVolPCR),
		D4: zOr(n, contracts.FieldBetaAdjReturn),
		P1: pctOr(n, contracts.FieldIVBump),
		P2: zOr(n, contracts.FieldSpreadPctATM),
	}

	score := w.D1*c.D1 + w.D2*c.D2 + w.D3*c.D3 + w.D4*c.D4 + w.P1*c.P1 + w.P2*c.P2

	direction := contracts.DirectionCall
	if score < 0 {
		direction = contracts.DirectionPut
	}

	var (
		spread      *float64
		totalVolume float64
	)
	if n.Bundle != nil {
		spread = n.Bundle.SpreadPctATM
		totalVolume = n.Bundle.TotalVolume()
	}

	decision, structure := resolveIntraday(score, n.Pct(contracts.FieldIVBump), spread, totalVolume, cfg.Guardrails)

	return contracts.DirectionalScore{
		Symbol:     n.Symbol(),
		Score:      score,
		Direction:  direction,
		Decision:   decision,
		Structure:  structure,
		Conviction: convictionFor(score, strategyconfig.Conviction{HighMin: cfg.Guardrails.NakedMinAbsScore, MediumMin: cfg.Guardrails.MinAbsScore}),
		Components: c,
	}
}

// ScoreIntradayBatch scores a normalized intraday batch in order
func ScoreIntradayBatch(batch []*contracts.NormalizedSignal, cfg strategyconfig.Intraday) []contracts.DirectionalScore {
	out := make([]contracts.DirectionalScore, 0, len(batch))
	for _, n := range batch {
		out = append(out, ScoreIntraday(n, cfg))
	}
	return out
}

// resolveIntraday applies guardrails in order, first match wins
func resolveIntraday(score float64, pctIVBump, spreadPct *float64, totalVolume float64, g strategyconfig.Guardrails) (contracts.Decision, contracts.Structure) {
	if totalVolume < g.MinTotalVolume {
		return contracts.DecisionPass, contracts.StructureSkip
	}
	if spreadPct != nil && !math.IsNaN(*spreadPct) && *spreadPct > g.MaxSpreadPct {
		return contracts.DecisionPass, contracts.StructureSkip
	}

	abs := math.Abs(score)
	if abs < g.MinAbsScore {
		return contracts.DecisionPass, contracts.StructureSkip
	}

	decision := contracts.DecisionCall
	if score < 0 {
		decision = contracts.DecisionPut
	}

	structure := contracts.StructureNaked
	if abs < g.NakedMinAbsScore {
		structure = contracts.StructureVertical
	}

	// 이벤트 IV 가 비싸면 점수와 무관하게 vertical
	if pctIVBump != nil && !math.IsNaN(*pctIVBump) && *pctIVBump >= g.ForceVerticalPct {
		structure = contracts.StructureVertical
	}

	return decision, structure
}

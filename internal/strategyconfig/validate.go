package strategyconfig

import (
	"errors"
	"fmt"
	"math"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}

	// === Normalize ===
	if cfg.Normalize.WinsorizeStd <= 0 {
		return ValidationError{"normalize.winsorize_std", "must be > 0"}
	}

	// === Daily ===
	d := cfg.Daily
	if err := validateFinite([]float64{
		d.Weights.D1, d.Weights.D2, d.Weights.D3, d.Weights.D4,
		d.Weights.D5, d.Weights.P1, d.Weights.P2,
	}); err != nil {
		return ValidationError{"daily.weights", err.Error()}
	}
	// 패널티 항은 양수가 되면 단조성이 깨짐
	if d.Weights.P1 > 0 {
		return ValidationError{"daily.weights.p1_iv_bump", "must be <= 0"}
	}
	if d.Weights.P2 > 0 {
		return ValidationError{"daily.weights.p2_spread", "must be <= 0"}
	}

	switch d.D2.Mode {
	case D2OIPlusThrust, D2ThrustOnly:
	default:
		return ValidationError{"daily.d2.mode", fmt.Sprintf("must be %s or %s", D2OIPlusThrust, D2ThrustOnly)}
	}
	if d.D2.ThrustWeight < 0 {
		return ValidationError{"daily.d2.thrust_weight", "must be >= 0"}
	}

	if d.Consistency.MinPoints < 2 {
		return ValidationError{"daily.consistency.min_points", "must be >= 2"}
	}

	if d.Decision.CallMin <= 0 {
		return ValidationError{"daily.decision.call_min", "must be > 0"}
	}
	if d.Decision.PutMax >= 0 {
		return ValidationError{"daily.decision.put_max", "must be < 0"}
	}

	if d.Conviction.MediumMin <= 0 {
		return ValidationError{"daily.conviction.medium_min", "must be > 0"}
	}
	if d.Conviction.HighMin < d.Conviction.MediumMin {
		return ValidationError{"daily.conviction", "high_min must be >= medium_min"}
	}

	if err := validatePctRange(d.Structure.NakedMaxPct, "daily.structure.naked_max_pct"); err != nil {
		return err
	}
	if err := validatePctRange(d.Structure.VerticalMaxPct, "daily.structure.vertical_max_pct"); err != nil {
		return err
	}
	if d.Structure.NakedMaxPct > d.Structure.VerticalMaxPct {
		return ValidationError{"daily.structure", "naked_max_pct must be <= vertical_max_pct"}
	}

	// === Intraday ===
	in := cfg.Intraday
	if err := validateFinite([]float64{
		in.Weights.D1, in.Weights.D2, in.Weights.D3,
		in.Weights.D4, in.Weights.P1, in.Weights.P2,
	}); err != nil {
		return ValidationError{"intraday.weights", err.Error()}
	}
	if in.Weights.P1 > 0 {
		return ValidationError{"intraday.weights.p1_iv_bump", "must be <= 0"}
	}

	g := in.Guardrails
	if g.MinTotalVolume < 0 {
		return ValidationError{"intraday.guardrails.min_total_volume", "must be >= 0"}
	}
	if g.MaxSpreadPct <= 0 {
		return ValidationError{"intraday.guardrails.max_spread_pct", "must be > 0"}
	}
	if g.MinAbsScore < 0 || g.NakedMinAbsScore < g.MinAbsScore {
		return ValidationError{"intraday.guardrails", "need 0 <= min_abs_score <= naked_min_abs_score"}
	}
	if err := validatePctRange(g.ForceVerticalPct, "intraday.guardrails.force_vertical_iv_pct"); err != nil {
		return err
	}

	s := in.Smoothing
	if s.EWMAAlpha <= 0 || s.EWMAAlpha > 1 {
		return ValidationError{"intraday.smoothing.ewma_alpha", "must be in (0, 1]"}
	}
	if s.WhipsawDelta <= 0 {
		return ValidationError{"intraday.smoothing.whipsaw_delta", "must be > 0"}
	}
	if err := validatePctRange(s.WhipsawSizeReduction, "intraday.smoothing.whipsaw_size_reduction"); err != nil {
		return err
	}

	return nil
}

// === Helper Functions ===

func validateFinite(weights []float64) error {
	if len(weights) == 0 {
		return errors.New("must not be empty")
	}
	for _, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return errors.New("must be finite")
		}
	}
	return nil
}

// validatePctRange는 퍼센트 값이 0~1 범위인지 검증
func validatePctRange(pct float64, field string) error {
	if pct < 0 || pct > 1 {
		return ValidationError{field, "must be in range [0, 1]"}
	}
	return nil
}

package strategyconfig

// Config EDS 스코어링 전략 설정
// ⭐ SSOT: 가중치/임계값은 여기서만 정의 (코드에 하드코딩 금지)
type Config struct {
	Meta      Meta      `yaml:"meta" json:"meta"`
	Normalize Normalize `yaml:"normalize" json:"normalize"`
	Daily     Daily     `yaml:"daily" json:"daily"`
	Intraday  Intraday  `yaml:"intraday" json:"intraday"`
}

// Meta 전략 메타데이터
type Meta struct {
	StrategyID  string `yaml:"strategy_id" json:"strategy_id"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Normalize 횡단면 정규화
type Normalize struct {
	WinsorizeStd float64 `yaml:"winsorize_std" json:"winsorize_std"`
}

// D2Mode selects how the flow component combines ΔOI and volume thrust
type D2Mode string

const (
	// D2OIPlusThrust: z_delta_oi_net + thrust_weight × thrust (ΔOI 없으면 0)
	D2OIPlusThrust D2Mode = "oi_plus_thrust"
	// D2ThrustOnly: thrust 항만 사용 (ΔOI 무시)
	D2ThrustOnly D2Mode = "thrust_only"
)

// Daily 장 마감 후 일간 스코어
type Daily struct {
	Weights     DailyWeights `yaml:"weights" json:"weights"`
	D2          D2Config     `yaml:"d2" json:"d2"`
	Consistency Consistency  `yaml:"consistency" json:"consistency"`
	Decision    Decision     `yaml:"decision" json:"decision"`
	Conviction  Conviction   `yaml:"conviction" json:"conviction"`
	Structure   Structure    `yaml:"structure" json:"structure"`
}

// DailyWeights
// D3 는 -z_vol_pcr 에 곱해짐 (양수 가중치)
type DailyWeights struct {
	D1 float64 `yaml:"d1_rr25" json:"d1_rr25"`
	D2 float64 `yaml:"d2_flow" json:"d2_flow"`
	D3 float64 `yaml:"d3_pcr" json:"d3_pcr"`
	D4 float64 `yaml:"d4_momentum" json:"d4_momentum"`
	D5 float64 `yaml:"d5_consistency" json:"d5_consistency"`
	P1 float64 `yaml:"p1_iv_bump" json:"p1_iv_bump"`
	P2 float64 `yaml:"p2_spread" json:"p2_spread"`
}

// D2Config flow 구성요소
type D2Config struct {
	Mode         D2Mode  `yaml:"mode" json:"mode"`
	ThrustWeight float64 `yaml:"thrust_weight" json:"thrust_weight"`
}

// Consistency D5: corr(rr_sign, next-day return) × scale
type Consistency struct {
	MinPoints int     `yaml:"min_points" json:"min_points"`
	Scale     float64 `yaml:"scale" json:"scale"`
}

// Decision 방향 결정 임계값
type Decision struct {
	CallMin float64 `yaml:"call_min" json:"call_min"`
	PutMax  float64 `yaml:"put_max" json:"put_max"`
}

// Conviction |score| 기준
type Conviction struct {
	HighMin   float64 `yaml:"high_min" json:"high_min"`
	MediumMin float64 `yaml:"medium_min" json:"medium_min"`
}

// Structure pct_iv_bump 기준
type Structure struct {
	NakedMaxPct    float64 `yaml:"naked_max_pct" json:"naked_max_pct"`
	VerticalMaxPct float64 `yaml:"vertical_max_pct" json:"vertical_max_pct"`
}

// Intraday 장중 스코어
type Intraday struct {
	Weights    IntradayWeights `yaml:"weights" json:"weights"`
	Guardrails Guardrails      `yaml:"guardrails" json:"guardrails"`
	Smoothing  Smoothing       `yaml:"smoothing" json:"smoothing"`
}

// IntradayWeights
// D3 는 z_vol_pcr 에 직접 곱해짐 (음수 가중치)
type IntradayWeights struct {
	D1 float64 `yaml:"d1_rr25" json:"d1_rr25"`
	D2 float64 `yaml:"d2_net_thrust" json:"d2_net_thrust"`
	D3 float64 `yaml:"d3_vol_pcr" json:"d3_vol_pcr"`
	D4 float64 `yaml:"d4_momentum" json:"d4_momentum"`
	P1 float64 `yaml:"p1_iv_bump" json:"p1_iv_bump"`
	P2 float64 `yaml:"p2_spread" json:"p2_spread"`
}

// Guardrails 적용 순서: volume → spread → |score| → structure
type Guardrails struct {
	MinTotalVolume   float64 `yaml:"min_total_volume" json:"min_total_volume"`
	MaxSpreadPct     float64 `yaml:"max_spread_pct" json:"max_spread_pct"`
	MinAbsScore      float64 `yaml:"min_abs_score" json:"min_abs_score"`
	NakedMinAbsScore float64 `yaml:"naked_min_abs_score" json:"naked_min_abs_score"`
	ForceVerticalPct float64 `yaml:"force_vertical_iv_pct" json:"force_vertical_iv_pct"`
}

// Smoothing EWMA + whipsaw
type Smoothing struct {
	EWMAAlpha            float64 `yaml:"ewma_alpha" json:"ewma_alpha"`
	WhipsawDelta         float64 `yaml:"whipsaw_delta" json:"whipsaw_delta"`
	WhipsawSizeReduction float64 `yaml:"whipsaw_size_reduction" json:"whipsaw_size_reduction"`
}

// Default returns the built-in weights used when no strategy file is configured
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "eds_v1",
			Version:    "1.0.0",
		},
		Normalize: Normalize{WinsorizeStd: 2.0},
		Daily: Daily{
			Weights: DailyWeights{
				D1: 0.32,
				D2: 0.28,
				D3: 0.18,
				D4: 0.12,
				D5: 0.10,
				P1: -0.10,
				P2: -0.05,
			},
			D2:          D2Config{Mode: D2OIPlusThrust, ThrustWeight: 0.5},
			Consistency: Consistency{MinPoints: 4, Scale: 2.0},
			Decision:    Decision{CallMin: 0.6, PutMax: -0.6},
			Conviction:  Conviction{HighMin: 0.6, MediumMin: 0.4},
			Structure:   Structure{NakedMaxPct: 0.60, VerticalMaxPct: 0.85},
		},
		Intraday: Intraday{
			Weights: IntradayWeights{
				D1: 0.38,
				D2: 0.28,
				D3: -0.18,
				D4: 0.10,
				P1: -0.10,
				P2: -0.05,
			},
			Guardrails: Guardrails{
				MinTotalVolume:   10,
				MaxSpreadPct:     10,
				MinAbsScore:      0.40,
				NakedMinAbsScore: 0.60,
				ForceVerticalPct: 0.80,
			},
			Smoothing: Smoothing{
				EWMAAlpha:            0.3,
				WhipsawDelta:         0.4,
				WhipsawSizeReduction: 0.5,
			},
		},
	}
}

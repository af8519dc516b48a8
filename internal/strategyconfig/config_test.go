package strategyconfig

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := "../../config/strategy/eds_v1.yaml"

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, yamlData, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, yamlData)

	assert.Equal(t, "eds_v1", cfg.Meta.StrategyID)
	assert.Equal(t, D2OIPlusThrust, cfg.Daily.D2.Mode)

	// 파일과 내장 기본값은 같은 가중치여야 함
	assert.Equal(t, Default().Daily, cfg.Daily)
	assert.Equal(t, Default().Intraday, cfg.Intraday)
}

func TestParse_UnknownField(t *testing.T) {
	data := []byte(`
meta:
  strategy_id: x
normalize:
  winsorize_stdd: 2.0
`)
	_, err := Parse(data)
	require.Error(t, err)
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = LoadOrDefault("does/not/exist.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(Default()))

	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"missing strategy id", func(c *Config) { c.Meta.StrategyID = "" }, "meta.strategy_id"},
		{"winsorize zero", func(c *Config) { c.Normalize.WinsorizeStd = 0 }, "normalize.winsorize_std"},
		{"positive iv penalty", func(c *Config) { c.Daily.Weights.P1 = 0.1 }, "daily.weights.p1_iv_bump"},
		{"unknown d2 mode", func(c *Config) { c.Daily.D2.Mode = "oi_only" }, "daily.d2.mode"},
		{"short consistency", func(c *Config) { c.Daily.Consistency.MinPoints = 1 }, "daily.consistency.min_points"},
		{"put threshold positive", func(c *Config) { c.Daily.Decision.PutMax = 0.2 }, "daily.decision.put_max"},
		{"conviction inverted", func(c *Config) { c.Daily.Conviction.HighMin = 0.3 }, "daily.conviction"},
		{"structure inverted", func(c *Config) { c.Daily.Structure.NakedMaxPct = 0.9 }, "daily.structure"},
		{"structure out of range", func(c *Config) { c.Daily.Structure.VerticalMaxPct = 1.2 }, "daily.structure.vertical_max_pct"},
		{"guardrail order", func(c *Config) { c.Intraday.Guardrails.NakedMinAbsScore = 0.2 }, "intraday.guardrails"},
		{"alpha zero", func(c *Config) { c.Intraday.Smoothing.EWMAAlpha = 0 }, "intraday.smoothing.ewma_alpha"},
		{"alpha above one", func(c *Config) { c.Intraday.Smoothing.EWMAAlpha = 1.5 }, "intraday.smoothing.ewma_alpha"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)

			var ve ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestHash(t *testing.T) {
	h1, err := Hash(Default())
	require.NoError(t, err)
	assert.Len(t, h1, 64)

	h2, err := Hash(Default())
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	changed := Default()
	changed.Intraday.Smoothing.EWMAAlpha = 0.5
	h3, err := Hash(changed)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

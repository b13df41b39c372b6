package config

import (
	"os"
	"path/filepath"
	"testing"

	"funnel-mcp/internal/lag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var settingKeys = []string{
	"DATA_PATH", "LOGS_FOLDER", "PARAM_DIR", "PARAM_CACHE_SIZE", "ENABLE_MERMAID_CHARTS",
	"LAG_MIN_FIT_CONVERTERS", "LAG_MIN_MEAN_MEDIAN_RATIO", "LAG_MAX_MEAN_MEDIAN_RATIO",
	"LAG_DEFAULT_SIGMA", "LAG_MAX_SIGMA", "LAG_DEFAULT_T95_DAYS", "LAG_RECENCY_HALF_LIFE_DAYS",
	"LAG_FORECAST_BLEND_LAMBDA", "LAG_ANCHOR_DELAY_BLEND_K", "LAG_ACTIVE_EDGE_EPSILON",
	"LAG_COMPLETENESS_SEMANTICS",
}

// clearEnv unsets every recognised key; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range settingKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := fromEnv("/opt/funnel")
	require.NoError(t, err)

	assert.Equal(t, "/opt/funnel", cfg.DataPath)
	assert.Equal(t, filepath.Join("/opt/funnel", "logs"), cfg.LogDir)
	assert.Equal(t, filepath.Join("/opt/funnel", "params"), cfg.ParamDir)
	assert.Equal(t, 64, cfg.ParamCacheSize)
	assert.False(t, cfg.EnableMermaidCharts)
	assert.Equal(t, lag.DefaultSettings(), cfg.Settings)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_PATH", "/data")
	t.Setenv("PARAM_CACHE_SIZE", "8")
	t.Setenv("ENABLE_MERMAID_CHARTS", "true")
	t.Setenv("LAG_FORECAST_BLEND_LAMBDA", "0.3")
	t.Setenv("LAG_DEFAULT_T95_DAYS", "45")
	t.Setenv("LAG_COMPLETENESS_SEMANTICS", "unconditional")
	t.Setenv("LAG_MAX_SIGMA", "not-a-number")

	cfg, err := fromEnv("")
	require.NoError(t, err)

	assert.Equal(t, "/data", cfg.DataPath)
	assert.Equal(t, 8, cfg.ParamCacheSize)
	assert.True(t, cfg.EnableMermaidCharts)
	assert.Equal(t, 0.3, cfg.Settings.ForecastBlendLambda)
	assert.Equal(t, 45.0, cfg.Settings.DefaultT95Days)
	assert.Equal(t, lag.SemanticsUnconditional, cfg.Settings.Semantics)
	assert.Equal(t, lag.DefaultSettings().MaxSigma, cfg.Settings.MaxSigma, "bad values fall back")
}

func TestFromEnv_RejectsInvalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"LAG_DEFAULT_SIGMA", "-1"},
		{"LAG_COMPLETENESS_SEMANTICS", "sometimes"},
		{"PARAM_CACHE_SIZE", "0"},
		{"PARAM_CACHE_SIZE", "lots"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := fromEnv("")
			assert.Error(t, err)
		})
	}
}

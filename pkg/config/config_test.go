package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalYAML = `
trading:
  symbols: ["BTC/USDT"]
  timeframes: ["1h", "4h"]
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Trading.FractalPeriod)
	assert.Equal(t, 1.5, cfg.Trading.MinFractalStrength)
	assert.Equal(t, 2, cfg.Trading.ConfirmationBars)
	assert.Equal(t, 2.0, cfg.Trading.PositionSizePct)
	assert.Equal(t, 3, cfg.Trading.MaxPositions)
	assert.Equal(t, 2.0, cfg.Trading.StopLossPct)
	assert.Equal(t, 4.0, cfg.Trading.TakeProfitPct)
	assert.Equal(t, 5.0, cfg.Trading.DailyLossLimitPct)
	assert.Equal(t, 15.0, cfg.Trading.MaxDrawdownPct)
	assert.Equal(t, "paper", cfg.Execution.Mode)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadRejectsEvenFractalPeriod(t *testing.T) {
	_, err := Load(writeConfig(t, minimalYAML+`  fractal_period: 4
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be odd")
}

func TestLoadRejectsUnknownTimeframe(t *testing.T) {
	_, err := Load(writeConfig(t, `
trading:
  symbols: ["BTC/USDT"]
  timeframes: ["1h", "7h"]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown timeframe")
}

func TestLoadRequiresTwoTimeframes(t *testing.T) {
	_, err := Load(writeConfig(t, `
trading:
  symbols: ["BTC/USDT"]
  timeframes: ["1h"]
`))
	require.Error(t, err)
}

func TestLoadRequiresGatewayURLInHTTPMode(t *testing.T) {
	_, err := Load(writeConfig(t, minimalYAML+`
execution:
  mode: http
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway_url")
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("FRACTAL_PERIOD", "7")
	t.Setenv("MIN_FRACTAL_STRENGTH", "2.5")
	t.Setenv("MAX_POSITIONS", "5")
	t.Setenv("TIMEFRAMES", "15m,1h,4h")

	cfg, err := LoadWithEnv(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Trading.FractalPeriod)
	assert.Equal(t, 2.5, cfg.Trading.MinFractalStrength)
	assert.Equal(t, 5, cfg.Trading.MaxPositions)
	assert.Equal(t, []string{"15m", "1h", "4h"}, cfg.Trading.Timeframes)
}

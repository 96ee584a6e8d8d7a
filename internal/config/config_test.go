package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
app:
  env: prod
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "data/candles", cfg.Data.Root)
	assert.Equal(t, "binance", cfg.Data.Exchange)
	assert.Equal(t, ":9991", cfg.Server.HTTPAddr)
	assert.Equal(t, "rsi_reversal", cfg.Backtest.Strategy)
	assert.Equal(t, 10000.0, cfg.Backtest.InitialCapital)
}

func TestLoadMergesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
data:
  root: /var/candles
`)
	path := writeFile(t, dir, "config.yaml", `
include:
  - base.yaml
backtest:
  symbol: ETHUSDT
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/candles", cfg.Data.Root)
	assert.Equal(t, "ETHUSDT", cfg.Backtest.Symbol)
}

func TestLoadRejectsUnknownExchange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
data:
  exchange: kraken
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsInvertedRange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
backtest:
  start: "2024-06-01"
  end: "2024-01-01"
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestBacktestRange(t *testing.T) {
	b := BacktestConfig{Start: "2024-01-01", End: "2024-01-02"}
	start, end, err := b.Range()
	require.NoError(t, err)
	assert.Equal(t, int64(86400000), end-start)

	b = BacktestConfig{Start: "not-a-date", End: "2024-01-02"}
	_, _, err = b.Range()
	assert.Error(t, err)
}

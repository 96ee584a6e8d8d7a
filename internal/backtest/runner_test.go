package backtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T) (*Runner, *ResultStore, *Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "candles"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	results, err := NewResultStore(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { results.Close() })

	svc, err := NewService(ServiceConfig{
		Store:           store,
		Sources:         map[string]CandleSource{"binance": &fakeSource{step: 3600_000}},
		DefaultExchange: "binance",
		RateLimitPerMin: 60000,
	})
	require.NoError(t, err)

	runner, err := NewRunner(RunnerConfig{Svc: svc, Results: results})
	require.NoError(t, err)
	return runner, results, store
}

func waitRun(t *testing.T, results *ResultStore, id string) Run {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		run, err := results.GetRun(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, run)
		switch run.Status {
		case RunStatusDone, RunStatusFailed:
			return *run
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("run did not finish in time")
	return Run{}
}

func TestRunnerStartRunPersistsResult(t *testing.T) {
	runner, results, store := newTestRunner(t)

	ctx := context.Background()
	hour := int64(3600_000)
	tf, _ := ParseTimeframe("1h")
	_, err := store.InsertCandles(ctx, "BTCUSDT", "1h", storeCandles(tf, hour, 2*hour, 3*hour, 4*hour, 5*hour))
	require.NoError(t, err)

	run, err := runner.StartRun(RunRequest{
		Strategy:       "rsi_reversal",
		Symbol:         "BTCUSDT",
		Timeframe:      "1h",
		StartTS:        hour,
		EndTS:          5 * hour,
		InitialCapital: 10000,
	})
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusPending, run.Status)

	done := waitRun(t, results, run.ID)
	assert.Equal(t, RunStatusDone, done.Status)
	assert.Equal(t, 10000.0, done.InitialCapital)
	// 预热期 RSI 为中性 50，高于 overbought 阈值(20)即开多；价格不动则一直持仓
	assert.Equal(t, 1, done.TotalTrades)

	trades, err := results.RunTrades(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "buy", trades[0].Action)

	equity, err := results.RunEquity(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, equity, 5)
}

func TestRunnerStartRunMissingDataFails(t *testing.T) {
	runner, results, _ := newTestRunner(t)

	hour := int64(3600_000)
	run, err := runner.StartRun(RunRequest{
		Strategy:       "rsi_reversal",
		Symbol:         "BTCUSDT",
		Timeframe:      "1h",
		StartTS:        hour,
		EndTS:          3 * hour,
		InitialCapital: 10000,
	})
	require.NoError(t, err)

	done := waitRun(t, results, run.ID)
	assert.Equal(t, RunStatusFailed, done.Status)
	assert.NotEmpty(t, done.Message)
}

func TestRunnerRejectsBadRequest(t *testing.T) {
	runner, _, _ := newTestRunner(t)

	hour := int64(3600_000)
	_, err := runner.StartRun(RunRequest{
		Strategy: "rsi_reversal", Symbol: "BTCUSDT", Timeframe: "1w",
		StartTS: hour, EndTS: 2 * hour,
	})
	assert.Error(t, err, "bad timeframe")

	_, err = runner.StartRun(RunRequest{
		Strategy: "rsi_reversal", Symbol: "BTCUSDT", Timeframe: "1h",
		StartTS: 2 * hour, EndTS: hour,
	})
	assert.Error(t, err, "inverted range")

	_, err = runner.StartRun(RunRequest{
		Strategy: "nope", Symbol: "BTCUSDT", Timeframe: "1h",
		StartTS: hour, EndTS: 2 * hour,
	})
	assert.Error(t, err, "unknown strategy")
}

func TestRunnerExecuteSync(t *testing.T) {
	runner, _, store := newTestRunner(t)

	ctx := context.Background()
	hour := int64(3600_000)
	tf, _ := ParseTimeframe("1h")
	_, err := store.InsertCandles(ctx, "ETHUSDT", "1h", storeCandles(tf, hour, 2*hour, 3*hour))
	require.NoError(t, err)

	result, err := runner.Execute(ctx, RunConfig{
		Strategy:       "rsi_reversal",
		Symbol:         "ETHUSDT",
		Timeframe:      "1h",
		StartTS:        hour,
		EndTS:          3 * hour,
		InitialCapital: 10000,
	})
	require.NoError(t, err)
	assert.Len(t, result.EquityCurve, 3)
	assert.Equal(t, 10000.0, result.InitialCapital)
}

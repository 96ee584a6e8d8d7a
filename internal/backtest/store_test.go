package backtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeCandles(tf Timeframe, openTimes ...int64) []Candle {
	step := tf.Duration.Milliseconds()
	out := make([]Candle, 0, len(openTimes))
	for _, ts := range openTimes {
		out = append(out, Candle{
			OpenTime:  ts,
			CloseTime: ts + step - 1,
			Open:      100,
			High:      101,
			Low:       99,
			Close:     100.5,
			Volume:    10,
		})
	}
	return out
}

func TestStoreInsertAndRange(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	tf, _ := ParseTimeframe("1h")
	hour := tf.Duration.Milliseconds()

	n, err := store.InsertCandles(ctx, "BTCUSDT", "1h", storeCandles(tf, hour, 2*hour, 3*hour))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	list, err := store.RangeCandles(ctx, "BTCUSDT", "1h", hour, 2*hour)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, hour, list[0].OpenTime)

	all, err := store.ListAllCandles(ctx, "BTCUSDT", "1h")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStoreUpsertOverwrites(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	tf, _ := ParseTimeframe("1h")
	hour := tf.Duration.Milliseconds()

	first := storeCandles(tf, hour)
	_, err = store.InsertCandles(ctx, "BTCUSDT", "1h", first)
	require.NoError(t, err)

	updated := first
	updated[0].Close = 222
	_, err = store.InsertCandles(ctx, "BTCUSDT", "1h", updated)
	require.NoError(t, err)

	list, err := store.RangeCandles(ctx, "BTCUSDT", "1h", hour, hour)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 222.0, list[0].Close)
}

func TestStoreCheckIntegrity(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	tf, _ := ParseTimeframe("1h")
	hour := tf.Duration.Milliseconds()

	// 缺第 2、4 根
	_, err = store.InsertCandles(ctx, "BTCUSDT", "1h", storeCandles(tf, hour, 3*hour, 5*hour))
	require.NoError(t, err)

	report, err := store.CheckIntegrity(ctx, "BTCUSDT", "1h", tf, hour, 5*hour)
	require.NoError(t, err)
	assert.Equal(t, int64(5), report.Expected)
	assert.Equal(t, int64(3), report.Present)
	require.Len(t, report.Gaps, 2)
	assert.Equal(t, Gap{From: 2 * hour, To: 2 * hour}, report.Gaps[0])
	assert.Equal(t, Gap{From: 4 * hour, To: 4 * hour}, report.Gaps[1])
	assert.False(t, report.Complete())
}

func TestStoreManifest(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	tf, _ := ParseTimeframe("1h")
	hour := tf.Duration.Milliseconds()

	_, err = store.InsertCandles(ctx, "btcusdt", "1H", storeCandles(tf, hour, 2*hour))
	require.NoError(t, err)

	m, err := store.Manifest(ctx, "btcusdt", "1H")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", m.Symbol)
	assert.Equal(t, "1h", m.Timeframe)
	assert.Equal(t, hour, m.MinTime)
	assert.Equal(t, 2*hour, m.MaxTime)
	assert.Equal(t, int64(2), m.Rows)
}

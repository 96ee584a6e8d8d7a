package backtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kairos/internal/indicator"
	"kairos/internal/market"
)

// scriptStrategy 按预置脚本逐根返回动作。
type scriptStrategy struct {
	Account
	actions []Action
	tick    int
}

func newScriptStrategy(actions ...Action) *scriptStrategy {
	return &scriptStrategy{Account: NewAccount(10000), actions: actions}
}

func (s *scriptStrategy) Name() string { return "script" }

func (s *scriptStrategy) OnTick(_ market.Candle, _ indicator.Set) Action {
	if s.tick >= len(s.actions) {
		return ActionNone
	}
	a := s.actions[s.tick]
	s.tick++
	return a
}

func makeCandles(closes ...float64) []market.Candle {
	out := make([]market.Candle, 0, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		high := open
		if c > high {
			high = c
		}
		low := open
		if c < low {
			low = c
		}
		out = append(out, market.Candle{
			OpenTime:  int64(i) * 60000,
			CloseTime: int64(i)*60000 + 59999,
			Open:      open,
			High:      high + 1,
			Low:       low - 1,
			Close:     c,
			Volume:    100,
		})
	}
	return out
}

func TestEngineEmptySeriesFails(t *testing.T) {
	e, err := NewEngine(newScriptStrategy())
	require.NoError(t, err)

	_, err = e.Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestEngineNilStrategyFails(t *testing.T) {
	_, err := NewEngine(nil)
	assert.Error(t, err)
}

func TestEngineFlatStrategy(t *testing.T) {
	candles := makeCandles(100, 105, 95, 110, 90)
	e, err := NewEngine(newScriptStrategy())
	require.NoError(t, err)

	result, err := e.Run(context.Background(), candles)
	require.NoError(t, err)

	assert.Equal(t, 10000.0, result.FinalValue)
	assert.Equal(t, 0.0, result.TotalReturnPct)
	assert.Equal(t, 0.0, result.MaxDrawdownPct)
	assert.Equal(t, 0, result.TotalTrades)
	assert.Equal(t, 0.0, result.WinRatePct)
	require.Len(t, result.EquityCurve, len(candles))
	for _, s := range result.EquityCurve {
		assert.Equal(t, 10000.0, s.Value)
	}
}

func TestEngineSingleCandleBuy(t *testing.T) {
	candles := makeCandles(100)
	e, err := NewEngine(newScriptStrategy(ActionBuy))
	require.NoError(t, err)

	result, err := e.Run(context.Background(), candles)
	require.NoError(t, err)

	// 入场即收盘价，浮动盈亏为 0
	assert.Equal(t, 10000.0, result.FinalValue)
	assert.Equal(t, 1, result.TotalTrades)
	assert.Equal(t, 0, result.WinningTrades)
	require.Len(t, result.EquityCurve, 1)
}

func TestEngineBuyThenClose(t *testing.T) {
	candles := makeCandles(100, 110)
	e, err := NewEngine(newScriptStrategy(ActionBuy, ActionClose))
	require.NoError(t, err)

	result, err := e.Run(context.Background(), candles)
	require.NoError(t, err)

	assert.Equal(t, 10010.0, result.FinalValue)
	assert.InDelta(t, 0.1, result.TotalReturnPct, 1e-9)
	assert.Equal(t, 2, result.TotalTrades)
	assert.Equal(t, 1, result.WinningTrades)
	assert.Equal(t, 0, result.LosingTrades)
	assert.Equal(t, 100.0, result.WinRatePct)
	assert.Equal(t, 10.0, result.AvgWin)
}

func TestEngineEquityCurveShape(t *testing.T) {
	candles := makeCandles(100, 101, 102, 103)
	e, err := NewEngine(newScriptStrategy(ActionBuy))
	require.NoError(t, err)

	result, err := e.Run(context.Background(), candles)
	require.NoError(t, err)

	require.Len(t, result.EquityCurve, len(candles))
	for i, s := range result.EquityCurve {
		assert.Equal(t, candles[i].CloseTime, s.Timestamp)
		assert.Equal(t, candles[i].Close, s.Price)
		if i > 0 {
			assert.Greater(t, s.Timestamp, result.EquityCurve[i-1].Timestamp)
		}
	}
	// 持多仓，价值随收盘价抬升
	assert.Equal(t, 10003.0, result.EquityCurve[3].Value)
}

func TestEngineMarkToMarketOpenPosition(t *testing.T) {
	candles := makeCandles(100, 90)
	e, err := NewEngine(newScriptStrategy(ActionBuy, ActionNone))
	require.NoError(t, err)

	result, err := e.Run(context.Background(), candles)
	require.NoError(t, err)

	// 未平仓亏损计入期末价值
	assert.Equal(t, 9990.0, result.FinalValue)
	assert.InDelta(t, -0.1, result.TotalReturnPct, 1e-9)
	// 平仓成交为 0 笔，胜率无定义取 0
	assert.Equal(t, 0.0, result.WinRatePct)
}

func TestEngineDeterministic(t *testing.T) {
	candles := makeCandles(100, 105, 95, 110, 90, 120)
	script := []Action{ActionBuy, ActionNone, ActionSell, ActionClose, ActionBuy, ActionNone}

	run := func() *Result {
		e, err := NewEngine(newScriptStrategy(script...))
		require.NoError(t, err)
		result, err := e.Run(context.Background(), candles)
		require.NoError(t, err)
		return result
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)
}

func TestEngineContextCancel(t *testing.T) {
	candles := makeCandles(100, 101)
	e, err := NewEngine(newScriptStrategy())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Run(ctx, candles)
	assert.ErrorIs(t, err, context.Canceled)
}

package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kairos/internal/indicator"
	"kairos/internal/market"
)

func tick(price float64) market.Candle {
	return market.Candle{Open: price, High: price + 1, Low: price - 1, Close: price, Volume: 1}
}

func TestRSIReversalDefaults(t *testing.T) {
	s := NewRSIReversal(10000, nil)
	assert.Equal(t, 80.0, s.Oversold)
	assert.Equal(t, 20.0, s.Overbought)
	assert.InDelta(t, 0.007, s.TakeProfit, 1e-12)
	assert.InDelta(t, 0.003, s.StopLoss, 1e-12)
}

func TestRSIReversalSignalPolarity(t *testing.T) {
	s := NewRSIReversal(10000, nil)

	// 阈值命名反转是既定行为：RSI 高于 overbought 阈值(20)时买入
	assert.Equal(t, ActionBuy, s.OnTick(tick(100), indicator.Set{"rsi": 85}))
	assert.Equal(t, ActionBuy, s.OnTick(tick(100), indicator.Set{"rsi": 21}))
	assert.Equal(t, ActionSell, s.OnTick(tick(100), indicator.Set{"rsi": 15}))
	// 20~... 等于阈值不触发
	assert.Equal(t, ActionNone, s.OnTick(tick(100), indicator.Set{"rsi": 20}))
}

func TestRSIReversalNeutralWhenNoRSI(t *testing.T) {
	s := NewRSIReversal(10000, nil)
	// 缺失 rsi 按中性 50 处理，50 > 20 仍触发买入
	assert.Equal(t, ActionBuy, s.OnTick(tick(100), indicator.Set{}))
}

func TestRSIReversalTakeProfitAndStopLoss(t *testing.T) {
	s := NewRSIReversal(10000, nil)
	require.NoError(t, s.Ledger().Execute(ActionBuy, 100, 1))

	// 持仓期间不再看 RSI
	assert.Equal(t, ActionNone, s.OnTick(tick(100.5), indicator.Set{"rsi": 1}))
	// +0.7% 止盈
	assert.Equal(t, ActionClose, s.OnTick(tick(100.7), indicator.Set{"rsi": 50}))
	// -0.3% 止损
	assert.Equal(t, ActionClose, s.OnTick(tick(99.7), indicator.Set{"rsi": 50}))
}

func TestRSIReversalShortExits(t *testing.T) {
	s := NewRSIReversal(10000, nil)
	require.NoError(t, s.Ledger().Execute(ActionSell, 100, 1))

	assert.Equal(t, ActionClose, s.OnTick(tick(99.3), indicator.Set{"rsi": 50}))
	assert.Equal(t, ActionClose, s.OnTick(tick(100.3), indicator.Set{"rsi": 50}))
	assert.Equal(t, ActionNone, s.OnTick(tick(100.1), indicator.Set{"rsi": 50}))
}

func TestRSIReversalCustomParams(t *testing.T) {
	s := NewRSIReversal(10000, Params{
		"oversold_threshold":   70,
		"overbought_threshold": 30,
		"take_profit_pct":      1.0,
		"stop_loss_pct":        0.5,
	})
	assert.Equal(t, 70.0, s.Oversold)
	assert.Equal(t, 30.0, s.Overbought)
	assert.InDelta(t, 0.01, s.TakeProfit, 1e-12)
	assert.InDelta(t, 0.005, s.StopLoss, 1e-12)
}

func TestStrategyRegistry(t *testing.T) {
	assert.Contains(t, Strategies(), "rsi_reversal")

	s, err := NewStrategy("rsi_reversal", 5000, nil)
	require.NoError(t, err)
	assert.Equal(t, "rsi_reversal", s.Name())
	assert.Equal(t, 5000.0, s.Ledger().InitialCapital)

	_, err = NewStrategy("unknown", 5000, nil)
	assert.Error(t, err)
}

func TestNewStrategyDefaultCapital(t *testing.T) {
	s, err := NewStrategy("rsi_reversal", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultInitialCapital, s.Ledger().InitialCapital)
}

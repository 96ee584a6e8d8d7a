package backtest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReport(t *testing.T) {
	result := &Result{
		Strategy:       "rsi_reversal",
		InitialCapital: 10000,
		FinalValue:     10123.456,
		TotalReturnPct: 1.23456,
		MaxDrawdownPct: -2.5,
		TotalTrades:    4,
		WinningTrades:  1,
		LosingTrades:   1,
		WinRatePct:     50,
		AvgWin:         10,
		AvgLoss:        -4,
		Trades: []Trade{
			{Timestamp: 1700000000000, Action: "buy", Price: 100},
			{Timestamp: 1700003600000, Action: "close_long", Price: 110, PnL: 10},
		},
	}
	var b strings.Builder
	require.NoError(t, WriteReport(&b, result))
	out := b.String()

	assert.Contains(t, out, "rsi_reversal")
	assert.Contains(t, out, "10123.46")
	assert.Contains(t, out, "1.23%")
	assert.Contains(t, out, "close_long")
	// 开仓行的盈亏以占位符显示
	assert.Contains(t, out, "-")
}

func TestWriteReportNil(t *testing.T) {
	var b strings.Builder
	assert.Error(t, WriteReport(&b, nil))
}

package backtest

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// WriteReport 将回测结果打印为对齐的文本报告，金额统一保留两位小数。
func WriteReport(w io.Writer, result *Result) error {
	if result == nil {
		return fmt.Errorf("result 不能为空")
	}

	money := func(v float64) string {
		return decimal.NewFromFloat(v).StringFixed(2)
	}
	pct := func(v float64) string {
		return decimal.NewFromFloat(v).StringFixed(2) + "%"
	}

	var b strings.Builder
	line := strings.Repeat("=", 52)
	b.WriteString(line + "\n")
	b.WriteString(fmt.Sprintf("回测报告: %s\n", result.Strategy))
	b.WriteString(line + "\n")
	rows := []struct {
		label string
		value string
	}{
		{"初始资金", money(result.InitialCapital)},
		{"期末价值", money(result.FinalValue)},
		{"总收益率", pct(result.TotalReturnPct)},
		{"最大回撤", pct(result.MaxDrawdownPct)},
		{"成交笔数", fmt.Sprintf("%d", result.TotalTrades)},
		{"盈利平仓", fmt.Sprintf("%d", result.WinningTrades)},
		{"亏损平仓", fmt.Sprintf("%d", result.LosingTrades)},
		{"胜率", pct(result.WinRatePct)},
		{"平均盈利", money(result.AvgWin)},
		{"平均亏损", money(result.AvgLoss)},
	}
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("%-12s %s\n", r.label, r.value))
	}

	if len(result.Trades) > 0 {
		b.WriteString(line + "\n")
		b.WriteString(fmt.Sprintf("%-20s %-12s %12s %12s\n", "时间", "动作", "价格", "盈亏"))
		for _, t := range result.Trades {
			ts := time.UnixMilli(t.Timestamp).UTC().Format("2006-01-02 15:04")
			pnl := "-"
			if t.PnL != 0 {
				pnl = money(t.PnL)
			}
			b.WriteString(fmt.Sprintf("%-20s %-12s %12s %12s\n", ts, t.Action, money(t.Price), pnl))
		}
	}
	b.WriteString(line + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

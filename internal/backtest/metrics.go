package backtest

// calcPerformance 将资金曲线与成交流水归约为汇总指标。
// 胜负统计只看 PnL 非零的平仓成交；开仓（PnL 恒 0）计入总笔数但不参与分类。
func calcPerformance(strategy string, ledger *Ledger, equity []EquitySample) *Result {
	initial := ledger.InitialCapital
	final := initial
	if len(equity) > 0 {
		final = equity[len(equity)-1].Value
	}

	totalReturn := 0.0
	if initial != 0 {
		totalReturn = (final - initial) / initial * 100
	}

	// 扩展峰值回撤：drawdown = (value-peak)/peak*100，取最小值。
	maxDrawdown := 0.0
	peak := 0.0
	for i, sample := range equity {
		if i == 0 || sample.Value > peak {
			peak = sample.Value
		}
		if peak != 0 {
			dd := (sample.Value - peak) / peak * 100
			if dd < maxDrawdown {
				maxDrawdown = dd
			}
		}
	}

	var wins, losses int
	var winSum, lossSum float64
	for _, t := range ledger.Trades {
		switch {
		case t.PnL > 0:
			wins++
			winSum += t.PnL
		case t.PnL < 0:
			losses++
			lossSum += t.PnL
		}
	}
	winRate := 0.0
	if wins+losses > 0 {
		winRate = float64(wins) / float64(wins+losses) * 100
	}
	avgWin := 0.0
	if wins > 0 {
		avgWin = winSum / float64(wins)
	}
	avgLoss := 0.0
	if losses > 0 {
		avgLoss = lossSum / float64(losses)
	}

	return &Result{
		Strategy:       strategy,
		InitialCapital: initial,
		FinalValue:     final,
		TotalReturnPct: totalReturn,
		MaxDrawdownPct: maxDrawdown,
		TotalTrades:    len(ledger.Trades),
		WinningTrades:  wins,
		LosingTrades:   losses,
		WinRatePct:     winRate,
		AvgWin:         avgWin,
		AvgLoss:        avgLoss,
		EquityCurve:    equity,
		Trades:         append([]Trade(nil), ledger.Trades...),
	}
}

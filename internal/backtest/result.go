package backtest

// EquitySample 记录单根 K 线收盘后的组合估值，与输入序列一一对应。
type EquitySample struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
	Price     float64 `json:"price"`
}

// Result 是一次回测的最终产物，生成后不再修改，可直接用于展示。
type Result struct {
	Strategy       string         `json:"strategy"`
	InitialCapital float64        `json:"initial_capital"`
	FinalValue     float64        `json:"final_value"`
	TotalReturnPct float64        `json:"total_return_pct"`
	MaxDrawdownPct float64        `json:"max_drawdown_pct"`
	TotalTrades    int            `json:"total_trades"`
	WinningTrades  int            `json:"winning_trades"`
	LosingTrades   int            `json:"losing_trades"`
	WinRatePct     float64        `json:"win_rate_pct"`
	AvgWin         float64        `json:"avg_win"`
	AvgLoss        float64        `json:"avg_loss"`
	EquityCurve    []EquitySample `json:"equity_curve"`
	Trades         []Trade        `json:"trades"`
}

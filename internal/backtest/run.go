package backtest

import "time"

const (
	RunStatusPending = "pending"
	RunStatusRunning = "running"
	RunStatusDone    = "done"
	RunStatusFailed  = "failed"
)

// RunConfig 记录一次回测的参数快照，便于重放。
type RunConfig struct {
	Strategy       string  `json:"strategy"`
	Symbol         string  `json:"symbol"`
	Timeframe      string  `json:"timeframe"`
	StartTS        int64   `json:"start_ts"`
	EndTS          int64   `json:"end_ts"`
	InitialCapital float64 `json:"initial_capital"`
	Params         Params  `json:"params,omitempty"`
}

// Run 表示一次回测任务及其汇总结果。
type Run struct {
	ID             string    `json:"id"`
	Strategy       string    `json:"strategy"`
	Symbol         string    `json:"symbol"`
	Timeframe      string    `json:"timeframe"`
	Status         string    `json:"status"`
	Message        string    `json:"message,omitempty"`
	InitialCapital float64   `json:"initial_capital"`
	FinalValue     float64   `json:"final_value"`
	TotalReturnPct float64   `json:"total_return_pct"`
	MaxDrawdownPct float64   `json:"max_drawdown_pct"`
	TotalTrades    int       `json:"total_trades"`
	WinningTrades  int       `json:"winning_trades"`
	LosingTrades   int       `json:"losing_trades"`
	WinRatePct     float64   `json:"win_rate_pct"`
	AvgWin         float64   `json:"avg_win"`
	AvgLoss        float64   `json:"avg_loss"`
	Config         RunConfig `json:"config"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	CompletedAt    time.Time `json:"completed_at,omitempty"`
}

// RunRequest 为 HTTP 提交使用。
type RunRequest struct {
	Strategy       string  `json:"strategy" binding:"required"`
	Symbol         string  `json:"symbol" binding:"required"`
	Timeframe      string  `json:"timeframe" binding:"required"`
	StartTS        int64   `json:"start_ts" binding:"required"`
	EndTS          int64   `json:"end_ts" binding:"required"`
	InitialCapital float64 `json:"initial_capital"`
	Params         Params  `json:"params"`
}

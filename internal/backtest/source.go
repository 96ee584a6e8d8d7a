package backtest

import (
	"context"

	"kairos/internal/market"
)

// Candle 在包内沿用 market.Candle。
type Candle = market.Candle

// FetchRequest 描述一次远端 K 线请求。
type FetchRequest struct {
	Symbol   string
	Interval string
	Start    int64 // Unix ms
	End      int64 // Unix ms（可选；0 表示不限制）
	Limit    int
}

// CandleSource 统一不同数据源的拉取行为。
type CandleSource interface {
	Fetch(ctx context.Context, req FetchRequest) ([]Candle, error)
	Name() string
}

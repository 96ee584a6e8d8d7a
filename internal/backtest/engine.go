package backtest

import (
	"context"
	"fmt"

	"kairos/internal/indicator"
	"kairos/internal/logger"
	"kairos/internal/market"
)

// Engine 将历史 K 线逐根推演给策略，维护账本并采样资金曲线。
// 严格按时间顺序单线程执行，指标只读因果窗口，无任何前视。
type Engine struct {
	strategy Strategy
}

func NewEngine(strategy Strategy) (*Engine, error) {
	if strategy == nil {
		return nil, fmt.Errorf("strategy 不能为空")
	}
	if strategy.Ledger() == nil {
		return nil, fmt.Errorf("strategy ledger 不能为空")
	}
	return &Engine{strategy: strategy}, nil
}

// Run 执行完整回测。序列为空或非法时立即失败，不产生部分结果。
// 相同输入多次运行产生逐位一致的 Result。
func (e *Engine) Run(ctx context.Context, candles []market.Candle) (*Result, error) {
	if err := market.ValidateSeries(candles); err != nil {
		return nil, fmt.Errorf("K 线序列校验失败: %w", err)
	}
	logger.Infof("[backtest] %s 开始回测，共 %d 根 K 线", e.strategy.Name(), len(candles))

	ledger := e.strategy.Ledger()
	equity := make([]EquitySample, 0, len(candles))

	for i, candle := range candles {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		ind := indicator.At(candles, i)
		action := e.strategy.OnTick(candle, ind)
		if action != ActionNone {
			if err := ledger.Execute(action, candle.Close, candle.CloseTime); err != nil {
				return nil, fmt.Errorf("第 %d 根 K 线执行失败: %w", i, err)
			}
		}
		ledger.MarkPrice(candle.Close)

		equity = append(equity, EquitySample{
			Timestamp: candle.CloseTime,
			Value:     ledger.Value(),
			Price:     candle.Close,
		})
	}

	result := calcPerformance(e.strategy.Name(), ledger, equity)
	logger.Infof("[backtest] %s 完成：final=%.2f return=%.2f%% maxDD=%.2f%% trades=%d",
		e.strategy.Name(), result.FinalValue, result.TotalReturnPct, result.MaxDrawdownPct, result.TotalTrades)
	return result, nil
}

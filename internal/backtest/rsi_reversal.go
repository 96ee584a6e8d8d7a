package backtest

import (
	"kairos/internal/indicator"
	"kairos/internal/market"
)

// RSIReversal 是 RSI 反转策略：RSI 高于 Overbought 阈值时做多、
// 低于 Oversold 阈值时做空，并按入场价的固定比例止盈/止损。
//
// 注意：阈值命名与常规 RSI 含义相反（买入触发在 RSI *高于* overbought
// 上），这是策略既定行为的一部分，不要按字面含义“纠正”。
type RSIReversal struct {
	Account

	Oversold   float64
	Overbought float64
	TakeProfit float64 // 比例，如 0.007
	StopLoss   float64 // 比例，如 0.003
}

// 原始默认参数：oversold=80 overbought=20 tp=0.7% sl=0.3%。
const (
	defaultOversold   = 80.0
	defaultOverbought = 20.0
	defaultTakeProfit = 0.7
	defaultStopLoss   = 0.3
)

func init() {
	Register("rsi_reversal", func(initialCapital float64, params Params) (Strategy, error) {
		return NewRSIReversal(initialCapital, params), nil
	})
}

// NewRSIReversal 构建策略；tp/sl 参数以百分数传入（0.7 表示 0.7%）。
func NewRSIReversal(initialCapital float64, params Params) *RSIReversal {
	return &RSIReversal{
		Account:    NewAccount(initialCapital),
		Oversold:   params.Get("oversold_threshold", defaultOversold),
		Overbought: params.Get("overbought_threshold", defaultOverbought),
		TakeProfit: params.Get("take_profit_pct", defaultTakeProfit) / 100.0,
		StopLoss:   params.Get("stop_loss_pct", defaultStopLoss) / 100.0,
	}
}

func (s *RSIReversal) Name() string { return "rsi_reversal" }

// OnTick 自上而下求值，先命中先生效：
//  1. 持仓时按现价检查止盈/止损，满足则 close；
//  2. 空仓时按 RSI 阈值开仓；
//  3. 其余情况不动作。
func (s *RSIReversal) OnTick(candle market.Candle, ind indicator.Set) Action {
	ledger := s.Ledger()
	price := candle.Close

	if ledger.Position != Flat {
		pct := ledger.UnrealizedPctAt(price)
		if pct >= s.TakeProfit || pct <= -s.StopLoss {
			return ActionClose
		}
		return ActionNone
	}

	rsi := ind.RSI()
	switch {
	case rsi > s.Overbought:
		return ActionBuy
	case rsi < s.Oversold:
		return ActionSell
	default:
		return ActionNone
	}
}

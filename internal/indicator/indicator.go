package indicator

import (
	"math"

	"github.com/markcheno/go-talib"

	"kairos/internal/market"
)

const (
	// MaxLookback 限制单次计算可读的历史根数，同时保证不读未来数据。
	MaxLookback = 50

	RSIPeriod = 14
	SMAPeriod = 20

	// NeutralRSI 在历史不足或无价格波动时作为中性默认值返回，
	// 让策略从第一根 K 线起即可统一运行（预热期信号视为无信息）。
	NeutralRSI = 50.0
)

// Set 保存某一根 K 线上的指标快照，按根计算、不跨根缓存。
type Set map[string]float64

// RSI 返回 rsi 值；不存在时返回中性值。
func (s Set) RSI() float64 {
	if v, ok := s["rsi"]; ok {
		return v
	}
	return NeutralRSI
}

// SMA20 返回 20 周期均线；第二个返回值表示历史是否足够。
func (s Set) SMA20() (float64, bool) {
	v, ok := s["sma_20"]
	return v, ok
}

// At 计算 series[idx] 处的指标，仅读取 [max(0, idx-MaxLookback), idx]
// 区间内的 K 线（因果窗口）。
func At(series []market.Candle, idx int) Set {
	out := make(Set, 2)
	if idx < 0 || idx >= len(series) {
		out["rsi"] = NeutralRSI
		return out
	}
	start := idx - MaxLookback
	if start < 0 {
		start = 0
	}
	window := series[start : idx+1]
	closes := market.Closes(window)

	// RSI 需要 period+1 个收盘价（period 个差分）才有定义。
	rsi := NeutralRSI
	if len(closes) > RSIPeriod {
		values := talib.Rsi(closes, RSIPeriod)
		if last := values[len(values)-1]; !math.IsNaN(last) {
			rsi = last
		}
	}
	out["rsi"] = rsi

	if len(closes) >= SMAPeriod {
		values := talib.Sma(closes, SMAPeriod)
		last := values[len(values)-1]
		if math.IsNaN(last) {
			last = series[idx].Close
		}
		out["sma_20"] = last
	}
	return out
}

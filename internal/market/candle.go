package market

import (
	"fmt"
	"math"
)

// Candle 表示一根已收盘的 K 线（时间为 Unix 毫秒）。
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Trades    int64   `json:"trades"`
}

// Validate 检查单根 K 线的价格约束。
func (c Candle) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"open", c.Open},
		{"high", c.High},
		{"low", c.Low},
		{"close", c.Close},
		{"volume", c.Volume},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%s 非有限值", f.name)
		}
		if f.value < 0 {
			return fmt.Errorf("%s 不能为负: %v", f.name, f.value)
		}
	}
	if c.High < c.Low {
		return fmt.Errorf("high(%v) < low(%v)", c.High, c.Low)
	}
	if c.High < c.Open || c.High < c.Close {
		return fmt.Errorf("high(%v) 低于 open/close", c.High)
	}
	if c.Low > c.Open || c.Low > c.Close {
		return fmt.Errorf("low(%v) 高于 open/close", c.Low)
	}
	return nil
}

// ValidateSeries 检查序列非空、时间唯一且严格递增、每根 K 线合法。
// 回测引擎在遍历前调用，失败即中止（不产生部分结果）。
func ValidateSeries(candles []Candle) error {
	if len(candles) == 0 {
		return fmt.Errorf("K 线序列为空")
	}
	for i, c := range candles {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("第 %d 根 K 线非法: %w", i, err)
		}
		if i > 0 && c.OpenTime <= candles[i-1].OpenTime {
			return fmt.Errorf("第 %d 根 K 线时间未递增: %d <= %d", i, c.OpenTime, candles[i-1].OpenTime)
		}
	}
	return nil
}

// Closes 抽取收盘价序列，供指标计算使用。
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

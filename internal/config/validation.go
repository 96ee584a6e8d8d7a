package config

import (
	"fmt"
	"strings"
	"time"
)

var rangeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Data.validate(); err != nil {
		return err
	}
	if err := c.Backtest.validate(); err != nil {
		return err
	}
	return nil
}

func (d *DataConfig) validate() error {
	if strings.TrimSpace(d.Root) == "" {
		return fmt.Errorf("data.root 不能为空")
	}
	if strings.ToLower(strings.TrimSpace(d.Exchange)) != "binance" {
		return fmt.Errorf("data.exchange 暂仅支持 binance，收到: %s", d.Exchange)
	}
	if d.RateLimitPerMin <= 0 {
		return fmt.Errorf("data.rate_limit_per_min 必须大于 0")
	}
	return nil
}

func (b *BacktestConfig) validate() error {
	if b.InitialCapital < 0 {
		return fmt.Errorf("backtest.initial_capital 不能为负")
	}
	if b.Start == "" && b.End == "" {
		return nil
	}
	start, end, err := b.Range()
	if err != nil {
		return err
	}
	if start >= end {
		return fmt.Errorf("backtest.start 必须早于 backtest.end")
	}
	return nil
}

// Range 解析回测时间范围，返回毫秒时间戳。
func (b *BacktestConfig) Range() (int64, int64, error) {
	start, err := parseRangeTime(b.Start)
	if err != nil {
		return 0, 0, fmt.Errorf("backtest.start 非法: %w", err)
	}
	end, err := parseRangeTime(b.End)
	if err != nil {
		return 0, 0, fmt.Errorf("backtest.end 非法: %w", err)
	}
	return start, end, nil
}

func parseRangeTime(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("时间为空")
	}
	for _, layout := range rangeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("无法解析时间: %s", s)
}

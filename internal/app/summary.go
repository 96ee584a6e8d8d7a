package app

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	kcfg "kairos/internal/config"
)

type StartupSummary struct {
	Env       string
	HTTPAddr  string
	DataRoot  string
	Exchange  string
	Backtest  kcfg.BacktestConfig
	Effective string // 生效配置的 YAML 文本
}

func buildSummary(cfg *kcfg.Config) *StartupSummary {
	s := &StartupSummary{
		Env:      cfg.App.Env,
		HTTPAddr: cfg.Server.HTTPAddr,
		DataRoot: cfg.Data.Root,
		Exchange: cfg.Data.Exchange,
		Backtest: cfg.Backtest,
	}
	if out, err := yaml.Marshal(cfg); err == nil {
		s.Effective = string(out)
	}
	return s
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%*s\n", 40+len("启动配置摘要 (STARTUP SUMMARY)")/2, "启动配置摘要 (STARTUP SUMMARY)")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("[运行环境]")
	fmt.Printf("  环境: %s\n", s.Env)
	fmt.Printf("  HTTP: %s\n", s.HTTPAddr)
	fmt.Println()

	fmt.Println("[数据]")
	fmt.Printf("  存储目录: %s\n", s.DataRoot)
	fmt.Printf("  交易所: %s\n", s.Exchange)
	fmt.Println()

	fmt.Println("[回测]")
	fmt.Printf("  策略: %s\n", s.Backtest.Strategy)
	if s.Backtest.Symbol != "" {
		fmt.Printf("  标的: %s @ %s\n", s.Backtest.Symbol, s.Backtest.Timeframe)
	}
	if s.Backtest.Start != "" {
		fmt.Printf("  区间: %s ~ %s\n", s.Backtest.Start, s.Backtest.End)
	}
	fmt.Printf("  初始资金: %.2f\n", s.Backtest.InitialCapital)
	fmt.Println()

	if s.Effective != "" {
		fmt.Println("[生效配置]")
		for _, line := range strings.Split(strings.TrimRight(s.Effective, "\n"), "\n") {
			fmt.Println("  " + line)
		}
	}
	fmt.Println(strings.Repeat("=", 80))
}

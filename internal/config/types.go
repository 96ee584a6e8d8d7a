package config

import "strings"

// Config 是 Kairos 的主配置载体。
type Config struct {
	App      AppConfig      `toml:"app"`
	Data     DataConfig     `toml:"data"`
	Server   ServerConfig   `toml:"server"`
	Backtest BacktestConfig `toml:"backtest"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
}

// DataConfig 描述 K 线数据的来源与落盘位置。
type DataConfig struct {
	Root            string `toml:"root"`               // K 线 sqlite 目录
	ResultsPath     string `toml:"results_path"`       // 回测结果库文件
	Exchange        string `toml:"exchange"`           // 目前仅 binance
	RESTBaseURL     string `toml:"rest_base_url"`      // 交易所 REST 地址
	RateLimitPerMin int    `toml:"rate_limit_per_min"` // 拉取限速
	MaxConcurrent   int    `toml:"max_concurrent"`     // 并发拉取任务上限
	CSVPath         string `toml:"csv_path"`           // 可选：run 模式直接读 CSV
}

type ServerConfig struct {
	HTTPAddr string `toml:"http_addr"`
}

// BacktestConfig 描述 run 模式下执行的单次回测。
type BacktestConfig struct {
	Symbol         string             `toml:"symbol"`
	Timeframe      string             `toml:"timeframe"`
	Start          string             `toml:"start"` // RFC3339 或 2006-01-02
	End            string             `toml:"end"`
	Strategy       string             `toml:"strategy"`
	InitialCapital float64            `toml:"initial_capital"`
	Params         map[string]float64 `toml:"params"`
	ProfilesPath   string             `toml:"profiles_path"` // 策略参数 profile 文件
	ExportDir      string             `toml:"export_dir"`    // 非空时导出成交/资金曲线/图表
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}

package config

import "strings"

// 默认值常量
const (
	defaultAppEnv       = "dev"
	defaultAppLogLevel  = "info"
	defaultAppLogPath   = "data/logs/kairos.log"
	defaultDataRoot     = "data/candles"
	defaultResultsPath  = "data/db/runs.db"
	defaultExchange     = "binance"
	defaultRESTBaseURL  = "https://fapi.binance.com"
	defaultRateLimit    = 1100
	defaultConcurrent   = 2
	defaultHTTPAddr     = ":9991"
	defaultTimeframe    = "1h"
	defaultStrategy     = "rsi_reversal"
	defaultCapital      = 10000.0
	defaultProfilesPath = "configs/profiles.yaml"
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Data.applyDefaults(keys)
	c.Server.applyDefaults(keys)
	c.Backtest.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (d *DataConfig) applyDefaults(keys keySet) {
	if d == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("data.root", &d.Root, defaultDataRoot),
		stringFieldDefault("data.results_path", &d.ResultsPath, defaultResultsPath),
		stringFieldDefault("data.exchange", &d.Exchange, defaultExchange),
		stringFieldDefault("data.rest_base_url", &d.RESTBaseURL, defaultRESTBaseURL),
		fieldDefault{
			key:   "data.rate_limit_per_min",
			need:  func() bool { return d.RateLimitPerMin <= 0 },
			apply: func() { d.RateLimitPerMin = defaultRateLimit },
		},
		fieldDefault{
			key:   "data.max_concurrent",
			need:  func() bool { return d.MaxConcurrent <= 0 },
			apply: func() { d.MaxConcurrent = defaultConcurrent },
		},
	)
}

func (s *ServerConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("server.http_addr", &s.HTTPAddr, defaultHTTPAddr),
	)
}

func (b *BacktestConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("backtest.timeframe", &b.Timeframe, defaultTimeframe),
		stringFieldDefault("backtest.strategy", &b.Strategy, defaultStrategy),
		stringFieldDefault("backtest.profiles_path", &b.ProfilesPath, defaultProfilesPath),
		fieldDefault{
			key:   "backtest.initial_capital",
			need:  func() bool { return b.InitialCapital <= 0 },
			apply: func() { b.InitialCapital = defaultCapital },
		},
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

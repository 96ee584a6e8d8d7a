package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"kairos/internal/backtest"
	kcfg "kairos/internal/config"
	"kairos/internal/config/loader"
	"kairos/internal/logger"
)

// App 负责应用级编排：加载配置、初始化依赖、按模式启动。
type App struct {
	cfg      *kcfg.Config
	store    *backtest.Store
	results  *backtest.ResultStore
	svc      *backtest.Service
	runner   *backtest.Runner
	server   *backtest.HTTPServer
	profiles *loader.ProfileLoader
	Summary  *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *kcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	store, err := backtest.NewStore(cfg.Data.Root)
	if err != nil {
		return nil, fmt.Errorf("初始化 K 线存储失败: %w", err)
	}
	results, err := backtest.NewResultStore(cfg.Data.ResultsPath)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("初始化结果存储失败: %w", err)
	}
	source := backtest.NewBinanceSource(cfg.Data.RESTBaseURL)
	svc, err := backtest.NewService(backtest.ServiceConfig{
		Store:           store,
		Sources:         map[string]backtest.CandleSource{cfg.Data.Exchange: source},
		DefaultExchange: cfg.Data.Exchange,
		RateLimitPerMin: cfg.Data.RateLimitPerMin,
		MaxConcurrent:   cfg.Data.MaxConcurrent,
	})
	if err != nil {
		results.Close()
		store.Close()
		return nil, fmt.Errorf("初始化数据服务失败: %w", err)
	}

	var profiles *loader.ProfileLoader
	if path := strings.TrimSpace(cfg.Backtest.ProfilesPath); path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			profiles, err = loader.NewProfileLoader(path)
			if err != nil {
				results.Close()
				store.Close()
				return nil, fmt.Errorf("初始化参数 profile 失败: %w", err)
			}
		} else {
			logger.Warnf("参数 profile 文件不存在，跳过: %s", path)
		}
	}

	var params backtest.ParamsProvider
	if profiles != nil {
		params = profiles
	}
	runner, err := backtest.NewRunner(backtest.RunnerConfig{
		Svc:     svc,
		Results: results,
		Params:  params,
	})
	if err != nil {
		results.Close()
		store.Close()
		return nil, fmt.Errorf("初始化回测执行器失败: %w", err)
	}
	server, err := backtest.NewHTTPServer(backtest.HTTPConfig{
		Addr:    cfg.Server.HTTPAddr,
		Svc:     svc,
		Runner:  runner,
		Results: results,
	})
	if err != nil {
		results.Close()
		store.Close()
		return nil, fmt.Errorf("初始化 HTTP 服务失败: %w", err)
	}

	return &App{
		cfg:      cfg,
		store:    store,
		results:  results,
		svc:      svc,
		runner:   runner,
		server:   server,
		profiles: profiles,
		Summary:  buildSummary(cfg),
	}, nil
}

// Serve 启动 HTTP 服务，阻塞直到 ctx 取消。
func (a *App) Serve(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	a.svc.SetContext(ctx)
	a.runner.SetContext(ctx)
	if a.profiles != nil {
		a.profiles.Subscribe(func(snap loader.ProfileSnapshot) {
			logger.Infof("策略参数 profile 生效: version=%d profiles=%d", snap.Version, len(snap.Profiles))
		})
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	logger.Infof("HTTP 服务已启动: %s", a.cfg.Server.HTTPAddr)
	return group.Wait()
}

// RunOnce 按配置执行一次回测，打印报告并按需导出。
func (a *App) RunOnce(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	bc := a.cfg.Backtest

	params := backtest.Params{}
	if a.profiles != nil {
		for k, v := range a.profiles.StrategyParams(bc.Strategy) {
			params[k] = v
		}
	}
	for k, v := range bc.Params {
		params[k] = v
	}

	strategy, err := backtest.NewStrategy(bc.Strategy, bc.InitialCapital, params)
	if err != nil {
		return err
	}
	engine, err := backtest.NewEngine(strategy)
	if err != nil {
		return err
	}

	candles, err := a.loadCandles(ctx)
	if err != nil {
		return err
	}
	logger.Infof("开始回测: strategy=%s candles=%d", bc.Strategy, len(candles))
	result, err := engine.Run(ctx, candles)
	if err != nil {
		return err
	}
	if err := backtest.WriteReport(os.Stdout, result); err != nil {
		return err
	}
	if dir := strings.TrimSpace(bc.ExportDir); dir != "" {
		if err := a.export(dir, result); err != nil {
			return err
		}
	}
	return nil
}

// loadCandles 在配置了 CSV 时直接读文件，否则走本地 K 线存储。
func (a *App) loadCandles(ctx context.Context) ([]backtest.Candle, error) {
	if path := strings.TrimSpace(a.cfg.Data.CSVPath); path != "" {
		return backtest.LoadCSV(path)
	}
	bc := a.cfg.Backtest
	if bc.Symbol == "" {
		return nil, fmt.Errorf("backtest.symbol 不能为空")
	}
	start, end, err := bc.Range()
	if err != nil {
		return nil, err
	}
	candles, err := a.svc.RangeCandles(ctx, bc.Symbol, bc.Timeframe, start, end)
	if err != nil {
		return nil, fmt.Errorf("读取 K 线失败: %w", err)
	}
	return candles, nil
}

func (a *App) export(dir string, result *backtest.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	trades := filepath.Join(dir, "trades.csv")
	if err := backtest.WriteTradesCSV(result.Trades, trades); err != nil {
		return fmt.Errorf("导出成交失败: %w", err)
	}
	equity := filepath.Join(dir, "equity.csv")
	if err := backtest.WriteEquityCSV(result.EquityCurve, equity); err != nil {
		return fmt.Errorf("导出资金曲线失败: %w", err)
	}
	chart := filepath.Join(dir, "equity.html")
	if err := backtest.WriteEquityChartHTML(chart, result.Strategy, result.EquityCurve); err != nil {
		return fmt.Errorf("导出图表失败: %w", err)
	}
	logger.Infof("导出完成: %s %s %s", trades, equity, chart)
	return nil
}

// Close 释放持久化资源。
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.results != nil {
		_ = a.results.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}

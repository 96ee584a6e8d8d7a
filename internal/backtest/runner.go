package backtest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"kairos/internal/logger"
)

// Runner 异步执行回测任务：登记、拉数、跑引擎、落库。
type Runner struct {
	svc     *Service
	results *ResultStore
	params  ParamsProvider

	mu      sync.Mutex
	baseCtx context.Context
}

// ParamsProvider 返回指定策略的参数集（如 profile 热加载器）。
// 请求内联参数优先于 provider 给出的默认值。
type ParamsProvider interface {
	StrategyParams(name string) Params
}

type RunnerConfig struct {
	Svc     *Service
	Results *ResultStore
	Params  ParamsProvider
}

func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Svc == nil {
		return nil, errors.New("service 不能为空")
	}
	if cfg.Results == nil {
		return nil, errors.New("result store 不能为空")
	}
	return &Runner{
		svc:     cfg.Svc,
		results: cfg.Results,
		params:  cfg.Params,
		baseCtx: context.Background(),
	}, nil
}

func (r *Runner) SetContext(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ctx != nil {
		r.baseCtx = ctx
	}
}

func (r *Runner) ctx() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.baseCtx
}

// StartRun 校验请求并登记任务，随后在后台执行。
func (r *Runner) StartRun(req RunRequest) (Run, error) {
	if _, err := ParseTimeframe(req.Timeframe); err != nil {
		return Run{}, err
	}
	if req.StartTS >= req.EndTS {
		return Run{}, fmt.Errorf("时间范围非法: start=%d end=%d", req.StartTS, req.EndTS)
	}
	if req.InitialCapital < 0 {
		return Run{}, fmt.Errorf("初始资金不能为负: %f", req.InitialCapital)
	}

	params := r.mergedParams(req.Strategy, req.Params)
	// 先行构建一次以校验策略名
	if _, err := NewStrategy(req.Strategy, req.InitialCapital, params); err != nil {
		return Run{}, err
	}

	cfg := RunConfig{
		Strategy:       req.Strategy,
		Symbol:         req.Symbol,
		Timeframe:      req.Timeframe,
		StartTS:        req.StartTS,
		EndTS:          req.EndTS,
		InitialCapital: req.InitialCapital,
		Params:         params,
	}
	run := Run{
		ID:             uuid.NewString(),
		Strategy:       req.Strategy,
		Symbol:         req.Symbol,
		Timeframe:      req.Timeframe,
		Status:         RunStatusPending,
		InitialCapital: req.InitialCapital,
		Config:         cfg,
	}
	ctx := r.ctx()
	if err := r.results.InsertRun(ctx, run); err != nil {
		return Run{}, fmt.Errorf("登记回测任务失败: %w", err)
	}
	go r.execute(run.ID, cfg)
	return run, nil
}

// Execute 同步执行一次回测（CLI run 模式使用），不经过结果存储。
func (r *Runner) Execute(ctx context.Context, cfg RunConfig) (*Result, error) {
	candles, err := r.svc.RangeCandles(ctx, cfg.Symbol, cfg.Timeframe, cfg.StartTS, cfg.EndTS)
	if err != nil {
		return nil, fmt.Errorf("读取 K 线失败: %w", err)
	}
	strategy, err := NewStrategy(cfg.Strategy, cfg.InitialCapital, cfg.Params)
	if err != nil {
		return nil, err
	}
	engine, err := NewEngine(strategy)
	if err != nil {
		return nil, err
	}
	return engine.Run(ctx, candles)
}

func (r *Runner) execute(id string, cfg RunConfig) {
	ctx := r.ctx()
	if err := r.results.UpdateRunStatus(ctx, id, RunStatusRunning, "执行中"); err != nil {
		logger.Warnf("[backtest] 更新任务状态失败 id=%s: %v", id, err)
	}
	result, err := r.Execute(ctx, cfg)
	if err != nil {
		logger.Errorf("[backtest] 任务执行失败 id=%s: %v", id, err)
		_ = r.results.UpdateRunStatus(ctx, id, RunStatusFailed, err.Error())
		return
	}
	if err := r.results.SaveResult(ctx, id, result); err != nil {
		logger.Errorf("[backtest] 结果写入失败 id=%s: %v", id, err)
		_ = r.results.UpdateRunStatus(ctx, id, RunStatusFailed, fmt.Sprintf("结果写入失败: %v", err))
		return
	}
	logger.Infof("[backtest] 任务完成 id=%s 收益=%.2f%% 最大回撤=%.2f%%",
		id, result.TotalReturnPct, result.MaxDrawdownPct)
}

func (r *Runner) mergedParams(strategy string, inline Params) Params {
	merged := Params{}
	if r.params != nil {
		for k, v := range r.params.StrategyParams(strategy) {
			merged[k] = v
		}
	}
	for k, v := range inline {
		merged[k] = v
	}
	if len(merged) == 0 {
		return nil
	}
	return merged
}

package backtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// RunModel maps to 'backtest_runs'.
type RunModel struct {
	ID             string         `gorm:"column:id;primaryKey"`
	Strategy       string         `gorm:"column:strategy"`
	Symbol         string         `gorm:"column:symbol"`
	Timeframe      string         `gorm:"column:timeframe"`
	Status         string         `gorm:"column:status;index"`
	Message        string         `gorm:"column:message"`
	InitialCapital float64        `gorm:"column:initial_capital"`
	FinalValue     float64        `gorm:"column:final_value"`
	TotalReturnPct float64        `gorm:"column:total_return_pct"`
	MaxDrawdownPct float64        `gorm:"column:max_drawdown_pct"`
	TotalTrades    int            `gorm:"column:total_trades"`
	WinningTrades  int            `gorm:"column:winning_trades"`
	LosingTrades   int            `gorm:"column:losing_trades"`
	WinRatePct     float64        `gorm:"column:win_rate_pct"`
	AvgWin         float64        `gorm:"column:avg_win"`
	AvgLoss        float64        `gorm:"column:avg_loss"`
	Config         datatypes.JSON `gorm:"column:config"`
	CreatedAt      int64          `gorm:"column:created_at"`
	UpdatedAt      int64          `gorm:"column:updated_at"`
	CompletedAt    int64          `gorm:"column:completed_at"`
}

func (RunModel) TableName() string { return "backtest_runs" }

// TradeModel maps to 'backtest_trades'.
type TradeModel struct {
	ID        int64   `gorm:"column:id;primaryKey"`
	RunID     string  `gorm:"column:run_id;index"`
	Timestamp int64   `gorm:"column:timestamp"`
	Action    string  `gorm:"column:action"`
	Price     float64 `gorm:"column:price"`
	PnL       float64 `gorm:"column:pnl"`
}

func (TradeModel) TableName() string { return "backtest_trades" }

// EquityModel maps to 'backtest_equity'.
type EquityModel struct {
	ID        int64   `gorm:"column:id;primaryKey"`
	RunID     string  `gorm:"column:run_id;index"`
	Timestamp int64   `gorm:"column:timestamp"`
	Value     float64 `gorm:"column:value"`
	Price     float64 `gorm:"column:price"`
}

func (EquityModel) TableName() string { return "backtest_equity" }

// ResultStore 持久化已完成回测的汇总、成交与资金曲线。
type ResultStore struct {
	db *gorm.DB
}

func NewResultStore(path string) (*ResultStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("result store path 不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&RunModel{}, &TradeModel{}, &EquityModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &ResultStore{db: db}, nil
}

func (s *ResultStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InsertRun 登记一次新任务。
func (s *ResultStore) InsertRun(ctx context.Context, run Run) error {
	cfg, err := json.Marshal(run.Config)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	model := RunModel{
		ID:             run.ID,
		Strategy:       run.Strategy,
		Symbol:         run.Symbol,
		Timeframe:      run.Timeframe,
		Status:         run.Status,
		Message:        run.Message,
		InitialCapital: run.InitialCapital,
		FinalValue:     run.InitialCapital,
		Config:         datatypes.JSON(cfg),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

// UpdateRunStatus 更新任务状态与进度消息。
func (s *ResultStore) UpdateRunStatus(ctx context.Context, id, status, message string) error {
	return s.db.WithContext(ctx).Model(&RunModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"message":    message,
			"updated_at": time.Now().UnixMilli(),
		}).Error
}

// SaveResult 在单个事务内写入汇总、成交与资金曲线并标记完成。
func (s *ResultStore) SaveResult(ctx context.Context, id string, result *Result) error {
	if result == nil {
		return errors.New("result 不能为空")
	}
	now := time.Now().UnixMilli()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":           RunStatusDone,
			"message":          "完成",
			"final_value":      result.FinalValue,
			"total_return_pct": result.TotalReturnPct,
			"max_drawdown_pct": result.MaxDrawdownPct,
			"total_trades":     result.TotalTrades,
			"winning_trades":   result.WinningTrades,
			"losing_trades":    result.LosingTrades,
			"win_rate_pct":     result.WinRatePct,
			"avg_win":          result.AvgWin,
			"avg_loss":         result.AvgLoss,
			"updated_at":       now,
			"completed_at":     now,
		}
		if err := tx.Model(&RunModel{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		for _, t := range result.Trades {
			model := TradeModel{RunID: id, Timestamp: t.Timestamp, Action: t.Action, Price: t.Price, PnL: t.PnL}
			if err := tx.Create(&model).Error; err != nil {
				return err
			}
		}
		for _, e := range result.EquityCurve {
			model := EquityModel{RunID: id, Timestamp: e.Timestamp, Value: e.Value, Price: e.Price}
			if err := tx.Create(&model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetRun 按 ID 读取任务，不存在时返回 (nil, nil)。
func (s *ResultStore) GetRun(ctx context.Context, id string) (*Run, error) {
	var model RunModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run := model.toRun()
	return &run, nil
}

// ListRuns 按创建时间倒序返回最近的任务。
func (s *ResultStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	var models []RunModel
	if err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]Run, 0, len(models))
	for _, m := range models {
		out = append(out, m.toRun())
	}
	return out, nil
}

// RunTrades 返回任务的成交流水（按时间升序）。
func (s *ResultStore) RunTrades(ctx context.Context, id string) ([]Trade, error) {
	var models []TradeModel
	if err := s.db.WithContext(ctx).
		Where("run_id = ?", id).
		Order("timestamp ASC, id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]Trade, 0, len(models))
	for _, m := range models {
		out = append(out, Trade{Timestamp: m.Timestamp, Action: m.Action, Price: m.Price, PnL: m.PnL})
	}
	return out, nil
}

// RunEquity 返回任务的资金曲线（按时间升序）。
func (s *ResultStore) RunEquity(ctx context.Context, id string) ([]EquitySample, error) {
	var models []EquityModel
	if err := s.db.WithContext(ctx).
		Where("run_id = ?", id).
		Order("timestamp ASC, id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]EquitySample, 0, len(models))
	for _, m := range models {
		out = append(out, EquitySample{Timestamp: m.Timestamp, Value: m.Value, Price: m.Price})
	}
	return out, nil
}

func (m RunModel) toRun() Run {
	var cfg RunConfig
	if len(m.Config) > 0 {
		_ = json.Unmarshal(m.Config, &cfg)
	}
	run := Run{
		ID:             m.ID,
		Strategy:       m.Strategy,
		Symbol:         m.Symbol,
		Timeframe:      m.Timeframe,
		Status:         m.Status,
		Message:        m.Message,
		InitialCapital: m.InitialCapital,
		FinalValue:     m.FinalValue,
		TotalReturnPct: m.TotalReturnPct,
		MaxDrawdownPct: m.MaxDrawdownPct,
		TotalTrades:    m.TotalTrades,
		WinningTrades:  m.WinningTrades,
		LosingTrades:   m.LosingTrades,
		WinRatePct:     m.WinRatePct,
		AvgWin:         m.AvgWin,
		AvgLoss:        m.AvgLoss,
		Config:         cfg,
		CreatedAt:      time.UnixMilli(m.CreatedAt),
		UpdatedAt:      time.UnixMilli(m.UpdatedAt),
	}
	if m.CompletedAt > 0 {
		run.CompletedAt = time.UnixMilli(m.CompletedAt)
	}
	return run
}

package backtest

import (
	"fmt"
	"sort"
	"sync"

	"kairos/internal/indicator"
	"kairos/internal/market"
)

// Strategy 根据当前 K 线与指标给出动作建议；自身持有资金账本，
// 但动作仅为建议，成交由引擎通过 Ledger.Execute 代理。
type Strategy interface {
	Name() string
	OnTick(candle market.Candle, ind indicator.Set) Action
	Ledger() *Ledger
}

// Account 提供共享的账本实现，具体策略通过组合嵌入，
// 只需再实现决策函数即可。
type Account struct {
	ledger *Ledger
}

func NewAccount(initialCapital float64) Account {
	if initialCapital <= 0 {
		initialCapital = DefaultInitialCapital
	}
	return Account{ledger: NewLedger(initialCapital)}
}

func (a Account) Ledger() *Ledger { return a.ledger }

// DefaultInitialCapital 与原始参数保持一致。
const DefaultInitialCapital = 10000.0

// Params 是策略的命名参数集合（来自配置 profile）。
type Params map[string]float64

func (p Params) Get(key string, fallback float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return fallback
}

// Factory 按初始资金与参数构建策略实例。
type Factory func(initialCapital float64, params Params) (Strategy, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register 注册命名策略工厂，重名直接覆盖（便于测试替换）。
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// NewStrategy 按名称构建策略；未注册的名称返回错误。
func NewStrategy(name string, initialCapital float64, params Params) (Strategy, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("未注册的策略: %s", name)
	}
	return factory(initialCapital, params)
}

// Strategies 返回已注册的策略名（排序后），供 CLI/HTTP 列表使用。
func Strategies() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

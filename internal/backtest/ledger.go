package backtest

import "fmt"

// Position 表示账户当前方向。
type Position int

const (
	Flat Position = iota
	Long
	Short
)

func (p Position) String() string {
	switch p {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "flat"
	}
}

// Action 是策略对单根 K 线给出的建议动作；执行由引擎代理。
type Action string

const (
	ActionNone  Action = ""
	ActionBuy   Action = "buy"
	ActionSell  Action = "sell"
	ActionClose Action = "close"
)

// Trade 记录一次成交。开仓动作 PnL 恒为 0，平仓动作写入带符号的已实现盈亏。
// 记录追加后不再修改。
type Trade struct {
	Timestamp int64   `json:"timestamp"`
	Action    string  `json:"action"` // buy/sell/close_long/close_short
	Price     float64 `json:"price"`
	PnL       float64 `json:"pnl"`
}

// Ledger 维护单个策略的资金、仓位与成交流水。
// 不变量：Position==Flat 当且仅当 EntryPrice==0；
// 仓位与入场价只通过 Execute 变更。
type Ledger struct {
	InitialCapital float64
	Capital        float64
	Position       Position
	EntryPrice     float64
	CurrentPrice   float64
	Trades         []Trade
}

func NewLedger(initialCapital float64) *Ledger {
	return &Ledger{
		InitialCapital: initialCapital,
		Capital:        initialCapital,
	}
}

// Execute 按状态机执行动作：
//   - buy：若持空先平空（实现 entry-price），再开多；已持多为 no-op
//   - sell：对称
//   - close：平当前仓位并转 Flat；已 Flat 为 no-op
//
// 未知动作视为策略实现的契约违约，返回错误。
func (l *Ledger) Execute(action Action, price float64, ts int64) error {
	switch action {
	case ActionBuy:
		if l.Position == Long {
			break
		}
		if l.Position == Short {
			l.closePosition(price, ts)
		}
		l.Position = Long
		l.EntryPrice = price
		l.append(Trade{Timestamp: ts, Action: "buy", Price: price})
	case ActionSell:
		if l.Position == Short {
			break
		}
		if l.Position == Long {
			l.closePosition(price, ts)
		}
		l.Position = Short
		l.EntryPrice = price
		l.append(Trade{Timestamp: ts, Action: "sell", Price: price})
	case ActionClose:
		if l.Position != Flat {
			l.closePosition(price, ts)
		}
	case ActionNone:
	default:
		return fmt.Errorf("未知动作: %q", action)
	}
	l.CurrentPrice = price
	return nil
}

func (l *Ledger) closePosition(price float64, ts int64) {
	var pnl float64
	var tag string
	switch l.Position {
	case Long:
		pnl = price - l.EntryPrice
		tag = "close_long"
	case Short:
		pnl = l.EntryPrice - price
		tag = "close_short"
	default:
		return
	}
	l.Capital += pnl
	l.append(Trade{Timestamp: ts, Action: tag, Price: price, PnL: pnl})
	l.Position = Flat
	l.EntryPrice = 0
}

func (l *Ledger) append(t Trade) {
	l.Trades = append(l.Trades, t)
}

// MarkPrice 更新最近观测价，用于逐根 mark-to-market 估值。
func (l *Ledger) MarkPrice(price float64) {
	l.CurrentPrice = price
}

// Value 返回当前组合价值：已实现资金加上未平仓位按现价的浮动盈亏。
func (l *Ledger) Value() float64 {
	switch l.Position {
	case Long:
		return l.Capital + (l.CurrentPrice - l.EntryPrice)
	case Short:
		return l.Capital + (l.EntryPrice - l.CurrentPrice)
	default:
		return l.Capital
	}
}

// UnrealizedPctAt 返回未平仓位按给定价格相对入场价的浮动盈亏比例，
// Flat 时为 0。
func (l *Ledger) UnrealizedPctAt(price float64) float64 {
	if l.Position == Flat || l.EntryPrice == 0 {
		return 0
	}
	if l.Position == Long {
		return (price - l.EntryPrice) / l.EntryPrice
	}
	return (l.EntryPrice - price) / l.EntryPrice
}

package backtest

import (
	"fmt"
	"time"
)

type Side string

const (
	Long  Side = "long"
	Short Side = "short"
)

// Direction is the side of a single fill.
type Direction string

const (
	Buy  Direction = "buy"
	Sell Direction = "sell"
)

// Entry returns the fill direction that opens a position on side s.
func (s Side) Entry() Direction {
	if s == Short {
		return Sell
	}
	return Buy
}

// Exit returns the fill direction that closes a position on side s.
func (s Side) Exit() Direction {
	return reverseDirection(s.Entry())
}

type ExitReason string

const (
	ExitStrategy      ExitReason = "strategy"
	ExitStopLoss      ExitReason = "stop_loss"
	ExitTakeProfit    ExitReason = "take_profit"
	ExitEndOfBacktest ExitReason = "end_of_backtest"
)

// Position is an open trade owned by the engine. Once closed it is replaced by
// the Trade returned from RiskManager.ClosePosition.
type Position struct {
	ID         string
	EntryPrice float64
	Shares     int
	EntryDate  time.Time
	Side       Side

	// Only meaningful when set through SetStopLoss / SetTakeProfit.
	StopLossPrice   float64
	TakeProfitPrice float64

	// Running cost accumulators, entry costs included.
	CommissionPaid float64
	SlippageCost   float64

	hasStopLoss   bool
	hasTakeProfit bool

	exit *exit
	pnl  float64
}

type exit struct {
	price  float64
	date   time.Time
	reason ExitReason
}

// SetStopLoss arms a stop at price. A level of 0 is a real level.
func (p *Position) SetStopLoss(price float64) {
	p.StopLossPrice, p.hasStopLoss = price, true
}

// SetTakeProfit arms a profit target at price.
func (p *Position) SetTakeProfit(price float64) {
	p.TakeProfitPrice, p.hasTakeProfit = price, true
}

// StopLoss returns the stop-loss level and whether one is set.
func (p *Position) StopLoss() (float64, bool) {
	return p.StopLossPrice, p.hasStopLoss
}

// TakeProfit returns the take-profit level and whether one is set.
func (p *Position) TakeProfit() (float64, bool) {
	return p.TakeProfitPrice, p.hasTakeProfit
}

// IsClosed reports whether an exit has been recorded.
func (p *Position) IsClosed() bool {
	return p.exit != nil
}

// IsLong is true when side is `Long`.
func (p *Position) IsLong() bool {
	return p.Side != Short
}

// grossPnL is the mark-to-market P&L at price, before costs.
func (p *Position) grossPnL(price float64) float64 {
	if p.IsLong() {
		return (price - p.EntryPrice) * float64(p.Shares)
	}
	return (p.EntryPrice - price) * float64(p.Shares)
}

// UnrealizedPnL marks the position to current. Costs already paid are sunk
// and not deducted. A closed position returns its frozen net P&L.
func (p *Position) UnrealizedPnL(current float64) float64 {
	if p.IsClosed() {
		return p.pnl
	}
	return p.grossPnL(current)
}

// Value returns the position's cost basis (entry price × shares).
func (p *Position) Value() float64 {
	return p.EntryPrice * float64(p.Shares)
}

// CalculatePnL finalises a closed position into a Trade. It must only be
// called once the exit has been recorded.
func (p *Position) CalculatePnL() (Trade, error) {
	if !p.IsClosed() {
		return Trade{}, fmt.Errorf("calculate pnl for position %s: %w", p.ID, ErrInvalidState)
	}

	p.pnl = p.grossPnL(p.exit.price) - p.CommissionPaid - p.SlippageCost

	var pct float64
	if basis := p.Value(); basis != 0 {
		pct = p.pnl / basis * 100
	}

	return Trade{
		ID:              p.ID,
		EntryPrice:      p.EntryPrice,
		Shares:          p.Shares,
		EntryDate:       p.EntryDate,
		Side:            p.Side,
		StopLossPrice:   p.StopLossPrice,
		TakeProfitPrice: p.TakeProfitPrice,
		CommissionPaid:  p.CommissionPaid,
		SlippageCost:    p.SlippageCost,
		ExitPrice:       p.exit.price,
		ExitDate:        p.exit.date,
		ExitReason:      p.exit.reason,
		PnL:             p.pnl,
		PnLPercent:      pct,
	}, nil
}

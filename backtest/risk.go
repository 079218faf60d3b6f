package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// RiskConfig holds the trading frictions and risk controls of a run. Every
// percent is expressed on a 0-100 scale, e.g. Slippage 0.05 means 0.05%.
type RiskConfig struct {
	// Currency units charged on every fill.
	Commission float64 `json:"commission" mapstructure:"commission"`
	// Percent of price lost to slippage on every fill.
	Slippage float64 `json:"slippage" mapstructure:"slippage"`
	// Stop-loss distance from entry in percent. Zero disables it.
	StopLoss float64 `json:"stopLoss" mapstructure:"stop_loss"`
	// Take-profit distance from entry in percent. Zero disables it.
	TakeProfit float64 `json:"takeProfit" mapstructure:"take_profit"`
	// Percent of capital allocated per position. Values above 100 are not clamped.
	PositionSize float64 `json:"positionSize" mapstructure:"position_size"`
	// Maximum number of concurrently open positions.
	MaxPositions int `json:"maxPositions" mapstructure:"max_positions"`
}

// DefaultRiskConfig allocates the whole capital to a single position with no
// frictions.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{PositionSize: 100, MaxPositions: 1}
}

// Validate rejects values that would make a run meaningless. NewRiskManager
// does not call it.
func (c RiskConfig) Validate() error {
	switch {
	case c.Commission < 0:
		return fmt.Errorf("commission %v must be >= 0: %w", c.Commission, ErrConfiguration)
	case c.Slippage < 0:
		return fmt.Errorf("slippage %v must be >= 0: %w", c.Slippage, ErrConfiguration)
	case c.StopLoss < 0:
		return fmt.Errorf("stop loss %v must be > 0 or unset: %w", c.StopLoss, ErrConfiguration)
	case c.TakeProfit < 0:
		return fmt.Errorf("take profit %v must be > 0 or unset: %w", c.TakeProfit, ErrConfiguration)
	case c.PositionSize <= 0:
		return fmt.Errorf("position size %v must be > 0: %w", c.PositionSize, ErrConfiguration)
	case c.MaxPositions < 1:
		return fmt.Errorf("max positions %d must be >= 1: %w", c.MaxPositions, ErrConfiguration)
	}
	return nil
}

// RiskStatistics is a snapshot of the costs and exits accumulated by a
// RiskManager.
type RiskStatistics struct {
	TotalCommissionPaid float64 `json:"totalCommissionPaid"`
	TotalSlippageCost   float64 `json:"totalSlippageCost"`
	StopLossExits       int     `json:"stopLossExits"`
	TakeProfitExits     int     `json:"takeProfitExits"`
	TotalRiskCost       float64 `json:"totalRiskCost"`
}

// RiskManager sizes, prices and exits positions for a single run. It keeps
// running statistics, so a fresh instance is needed per run.
type RiskManager struct {
	cfg RiskConfig

	totalCommission float64
	totalSlippage   float64
	stopLossExits   int
	takeProfitExits int
}

func NewRiskManager(cfg RiskConfig) *RiskManager {
	return &RiskManager{cfg: cfg}
}

// Config returns the configuration the manager was built with.
func (rm *RiskManager) Config() RiskConfig {
	return rm.cfg
}

// MaxPositions returns the concurrent position cap.
func (rm *RiskManager) MaxPositions() int {
	return rm.cfg.MaxPositions
}

// ApplySlippage moves price against the trader: buys pay more, sells receive less.
func (rm *RiskManager) ApplySlippage(price float64, d Direction) float64 {
	if rm.cfg.Slippage == 0 {
		return price
	}
	s := rm.cfg.Slippage / 100
	if d == Buy {
		return price * (1 + s)
	}
	return price * (1 - s)
}

// PositionSize returns the whole number of shares to trade at price. It
// returns 0 once open reaches the position cap. With more than one slot the
// allocation is split equally between slots.
func (rm *RiskManager) PositionSize(capital, price float64, open int) int {
	if open >= rm.cfg.MaxPositions || price <= 0 {
		return 0
	}

	allocation := capital * rm.cfg.PositionSize / 100
	if rm.cfg.MaxPositions > 1 {
		allocation /= float64(rm.cfg.MaxPositions)
	}
	if allocation <= 0 {
		return 0
	}

	return int(math.Floor(allocation / price))
}

// StopLossPrice returns the stop level for an entry, or false when no stop
// loss is configured.
func (rm *RiskManager) StopLossPrice(entry float64, side Side) (float64, bool) {
	if rm.cfg.StopLoss <= 0 {
		return 0, false
	}
	if side == Short {
		return entry * (1 + rm.cfg.StopLoss/100), true
	}
	return entry * (1 - rm.cfg.StopLoss/100), true
}

// TakeProfitPrice returns the profit target for an entry, or false when no
// take profit is configured.
func (rm *RiskManager) TakeProfitPrice(entry float64, side Side) (float64, bool) {
	if rm.cfg.TakeProfit <= 0 {
		return 0, false
	}
	if side == Short {
		return entry * (1 - rm.cfg.TakeProfit/100), true
	}
	return entry * (1 + rm.cfg.TakeProfit/100), true
}

// OpenPosition sizes and fills a new position at price. It returns nil when
// no whole share can be bought or the position cap is reached. Entry
// commission and slippage are added to the manager's statistics.
func (rm *RiskManager) OpenPosition(price, capital float64, date time.Time, side Side, open int) *Position {
	shares := rm.PositionSize(capital, price, open)
	if shares == 0 {
		return nil
	}

	entry := rm.ApplySlippage(price, side.Entry())
	slippage := math.Abs(entry-price) * float64(shares)

	p := &Position{
		ID:             uuid.NewString(),
		EntryPrice:     entry,
		Shares:         shares,
		EntryDate:      date,
		Side:           side,
		CommissionPaid: rm.cfg.Commission,
		SlippageCost:   slippage,
	}
	// Levels are derived from the slipped fill, not the intended price.
	if sl, ok := rm.StopLossPrice(entry, side); ok {
		p.SetStopLoss(sl)
	}
	if tp, ok := rm.TakeProfitPrice(entry, side); ok {
		p.SetTakeProfit(tp)
	}

	rm.totalCommission += rm.cfg.Commission
	rm.totalSlippage += slippage

	return p
}

// CheckStopLoss reports whether bar touched the stop. The fill is assumed to
// happen exactly at the stop level.
func (rm *RiskManager) CheckStopLoss(p *Position, bar Bar) (bool, float64) {
	sl, ok := p.StopLoss()
	if !ok {
		return false, 0
	}
	if p.IsLong() && bar.Low <= sl {
		return true, sl
	}
	if !p.IsLong() && bar.High >= sl {
		return true, sl
	}
	return false, 0
}

// CheckTakeProfit reports whether bar touched the profit target.
func (rm *RiskManager) CheckTakeProfit(p *Position, bar Bar) (bool, float64) {
	tp, ok := p.TakeProfit()
	if !ok {
		return false, 0
	}
	if p.IsLong() && bar.High >= tp {
		return true, tp
	}
	if !p.IsLong() && bar.Low <= tp {
		return true, tp
	}
	return false, 0
}

// CheckExit evaluates the stop loss before the take profit, so a bar that
// spans both levels always exits at the stop. The matching exit counter is
// incremented on detection.
func (rm *RiskManager) CheckExit(p *Position, bar Bar) (float64, ExitReason, bool) {
	if hit, price := rm.CheckStopLoss(p, bar); hit {
		rm.stopLossExits++
		return price, ExitStopLoss, true
	}
	if hit, price := rm.CheckTakeProfit(p, bar); hit {
		rm.takeProfitExits++
		return price, ExitTakeProfit, true
	}
	return 0, "", false
}

// ClosePosition fills the exit at price (before slippage), charges exit
// commission and slippage onto the position and returns the finalised Trade.
// The caller owns moving the position out of its open set.
func (rm *RiskManager) ClosePosition(p *Position, price float64, date time.Time, reason ExitReason) (Trade, error) {
	if p.IsClosed() {
		return Trade{}, fmt.Errorf("close position %s: %w", p.ID, ErrPositionClosed)
	}

	fill := rm.ApplySlippage(price, p.Side.Exit())
	slippage := math.Abs(fill-price) * float64(p.Shares)

	p.CommissionPaid += rm.cfg.Commission
	p.SlippageCost += slippage
	p.exit = &exit{price: fill, date: date, reason: reason}

	trade, err := p.CalculatePnL()
	if err != nil {
		return Trade{}, err
	}

	rm.totalCommission += rm.cfg.Commission
	rm.totalSlippage += slippage

	return trade, nil
}

// Statistics returns the accumulated costs and exit counts.
func (rm *RiskManager) Statistics() RiskStatistics {
	return RiskStatistics{
		TotalCommissionPaid: rm.totalCommission,
		TotalSlippageCost:   rm.totalSlippage,
		StopLossExits:       rm.stopLossExits,
		TakeProfitExits:     rm.takeProfitExits,
		TotalRiskCost:       rm.totalCommission + rm.totalSlippage,
	}
}

// Design:
//
//	bt := backtest.New(bars, backtest.Opts{Capital: 10000, Risk: risk})
//	res, err := bt.Strategy(strategies.SMACrossover(10, 30)).Run()
package backtest

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
)

// EquityPoint is the account value after one bar.
type EquityPoint struct {
	Date     time.Time `json:"date"`
	Equity   float64   `json:"equity"`
	Drawdown float64   `json:"drawdown"`
}

type Opts struct {
	// This is our starting capital. Defaults to 10,000.00.
	Capital float64
	// Unset PositionSize and MaxPositions default to 100% and 1.
	Risk RiskConfig
	// Informational only, copied into the result.
	Symbol string
	// Defaults to slog.Default().
	Logger *slog.Logger
}

// Backtest drives one run. It is not safe for concurrent use and must not be
// reused; see Sweep for parallel runs.
type Backtest struct {
	opts     Opts
	bars     Bars
	strategy Strategy
	risk     *RiskManager
	log      *slog.Logger

	capital float64
	// allocated tracks the cash debited from capital for each open position.
	allocated   map[string]float64
	open        []*Position
	closed      []Trade
	equityCurve []EquityPoint
	peak        float64
	// realized is the net P&L of every closed trade, kept apart from capital
	// so the equity curve can be reconciled each bar.
	realized float64
}

// New is our starting point. This is where we define our config for the backtest.
func New(bars []Bar, opts Opts) *Backtest {
	if opts.Capital == 0 {
		opts.Capital = 10000.00
	}
	if opts.Risk.PositionSize == 0 {
		opts.Risk.PositionSize = 100
	}
	if opts.Risk.MaxPositions == 0 {
		opts.Risk.MaxPositions = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Backtest{
		opts:        opts,
		bars:        bars,
		risk:        NewRiskManager(opts.Risk),
		log:         opts.Logger,
		capital:     opts.Capital,
		allocated:   make(map[string]float64),
		equityCurve: make([]EquityPoint, 0, len(bars)),
		peak:        math.Inf(-1),
	}
}

// Strategy sets the signal source for the run.
func (bt *Backtest) Strategy(s Strategy) *Backtest {
	bt.strategy = s
	return bt
}

// Run processes every bar in order and returns the run's results.
func (bt *Backtest) Run() (*Result, error) {
	// There's nothing we can do without data
	if len(bt.bars) == 0 {
		return nil, ErrNoData
	}
	if bt.strategy == nil {
		return nil, ErrNoStrategy
	}

	bt.log.Info("backtest started",
		"symbol", bt.opts.Symbol,
		"bars", len(bt.bars),
		"capital", bt.opts.Capital,
		"commission", bt.opts.Risk.Commission,
		"slippage_pct", bt.opts.Risk.Slippage,
		"stop_loss_pct", bt.opts.Risk.StopLoss,
		"take_profit_pct", bt.opts.Risk.TakeProfit,
	)

	for i, bar := range bt.bars {
		if err := bt.next(i, bar); err != nil {
			return nil, fmt.Errorf("bar %d (%s): %w", i, bar.Date.Format(time.DateOnly), err)
		}
	}

	last := bt.bars.Last()
	for _, p := range bt.snapshot() {
		if err := bt.closePosition(p, last.Close, last.Date, ExitEndOfBacktest); err != nil {
			return nil, err
		}
	}

	stats := bt.risk.Statistics()
	perf := Calculate(bt.closed, bt.equityCurve, bt.opts.Capital, stats)
	if perf != nil {
		perf.BuyHoldReturn = BuyAndHoldReturn(bt.bars)
	}
	res := &Result{
		ID:             "bt_" + uuid.NewString(),
		Symbol:         bt.opts.Symbol,
		InitialCapital: bt.opts.Capital,
		Performance:    perf,
		Trades:         bt.closed,
		EquityCurve:    bt.equityCurve,
		Statistics:     stats,
		CreatedAt:      time.Now().UTC(),
	}

	bt.log.Info("backtest finished",
		"id", res.ID,
		"trades", len(res.Trades),
		"final_equity", res.FinalEquity(),
		"total_risk_cost", stats.TotalRiskCost,
	)

	return res, nil
}

// next runs the per-bar state machine: exits, signal, entries, equity.
func (bt *Backtest) next(i int, bar Bar) error {
	if err := bt.checkExits(bar); err != nil {
		return err
	}

	switch bt.strategy.Signal(bt.bars, i) {
	case BuySignal:
		bt.buy(bar)
	case SellSignal:
		for _, p := range bt.snapshot() {
			if err := bt.closePosition(p, bar.Close, bar.Date, ExitStrategy); err != nil {
				return err
			}
		}
	}

	return bt.updateEquity(bar)
}

// checkExits collects exit decisions over a snapshot of the open set before
// applying any close.
func (bt *Backtest) checkExits(bar Bar) error {
	type decision struct {
		position *Position
		price    float64
		reason   ExitReason
	}

	var exits []decision
	for _, p := range bt.snapshot() {
		if price, reason, ok := bt.risk.CheckExit(p, bar); ok {
			exits = append(exits, decision{p, price, reason})
		}
	}

	for _, d := range exits {
		if err := bt.closePosition(d.position, d.price, bar.Date, d.reason); err != nil {
			return err
		}
	}
	return nil
}

func (bt *Backtest) buy(bar Bar) {
	// The risk manager would reject too, this just skips the call.
	if len(bt.open) >= bt.risk.MaxPositions() {
		return
	}

	p := bt.risk.OpenPosition(bar.Close, bt.capital, bar.Date, Long, len(bt.open))
	if p == nil {
		return
	}

	// Shares stay valued through the position, only the commission leaves capital.
	bt.capital -= p.CommissionPaid
	bt.allocated[p.ID] = p.CommissionPaid
	bt.open = append(bt.open, p)

	bt.log.Debug("position opened",
		"date", bar.Date,
		"side", p.Side,
		"shares", p.Shares,
		"entry_price", p.EntryPrice,
		"stop_loss", p.StopLossPrice,
		"take_profit", p.TakeProfitPrice,
	)
}

// closePosition moves p from the open set into the ledger and releases its
// allocation plus net P&L into capital.
func (bt *Backtest) closePosition(p *Position, price float64, date time.Time, reason ExitReason) error {
	trade, err := bt.risk.ClosePosition(p, price, date, reason)
	if err != nil {
		return err
	}

	bt.remove(p)
	bt.closed = append(bt.closed, trade)
	bt.capital += bt.allocated[p.ID] + trade.PnL
	bt.realized += trade.PnL
	delete(bt.allocated, p.ID)

	bt.log.Debug("position closed",
		"date", date,
		"reason", reason,
		"entry_price", trade.EntryPrice,
		"exit_price", trade.ExitPrice,
		"pnl", trade.PnL,
	)
	return nil
}

func (bt *Backtest) remove(p *Position) {
	for i, o := range bt.open {
		if o == p {
			bt.open = append(bt.open[:i], bt.open[i+1:]...)
			return
		}
	}
}

// snapshot copies the open set so closes don't disturb iteration.
func (bt *Backtest) snapshot() []*Position {
	return append([]*Position(nil), bt.open...)
}

// unrealized sums open positions' mark-to-market P&L at price.
func (bt *Backtest) unrealized(price float64) float64 {
	var pnl float64
	for _, p := range bt.open {
		pnl += p.UnrealizedPnL(price)
	}
	return pnl
}

func (bt *Backtest) updateEquity(bar Bar) error {
	equity := bt.capital + bt.unrealized(bar.Close)
	bt.peak = math.Max(bt.peak, equity)

	var drawdown float64
	if bt.peak > 0 {
		drawdown = (equity - bt.peak) / bt.peak
	}

	bt.equityCurve = append(bt.equityCurve, EquityPoint{
		Date:     bar.Date,
		Equity:   equity,
		Drawdown: drawdown,
	})

	// Rebuild equity from the ledger: starting cash, realized P&L, cash still
	// held against open positions and their marks.
	var held float64
	for _, a := range bt.allocated {
		held += a
	}
	ledger := bt.opts.Capital + bt.realized - held + bt.unrealized(bar.Close)
	if math.Abs(ledger-equity) > 1e-6*math.Max(1, math.Abs(equity)) {
		return fmt.Errorf("%w: ledger %f != equity %f", ErrEquityMismatch, ledger, equity)
	}
	return nil
}

// Capital returns cash not tied to open positions.
func (bt *Backtest) Capital() float64 {
	return bt.capital
}

// OpenPositions returns a copy of the currently open positions.
func (bt *Backtest) OpenPositions() []*Position {
	return bt.snapshot()
}

// RiskManager exposes the run's risk manager.
func (bt *Backtest) RiskManager() *RiskManager {
	return bt.risk
}

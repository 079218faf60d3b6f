package backtest

import "time"

// Trade is a closed position in the ledger. It is only ever built by
// Position.CalculatePnL.
type Trade struct {
	ID              string
	EntryPrice      float64
	Shares          int
	EntryDate       time.Time
	Side            Side
	StopLossPrice   float64
	TakeProfitPrice float64
	CommissionPaid  float64
	SlippageCost    float64

	ExitPrice  float64
	ExitDate   time.Time
	ExitReason ExitReason

	// Net of commission and slippage.
	PnL        float64
	PnLPercent float64
}

// IsLong is true when side is `Long`.
func (t Trade) IsLong() bool {
	return t.Side != Short
}

// Duration returns how long the trade was held.
func (t Trade) Duration() time.Duration {
	return t.ExitDate.Sub(t.EntryDate)
}

// Value returns trade total value at entry (shares × entry price).
func (t Trade) Value() float64 {
	return t.EntryPrice * float64(t.Shares)
}

package backtest

// Signal is a strategy's decision for one bar. Anything other than BuySignal
// or SellSignal, including the zero value, is a hold.
type Signal string

const (
	Hold       Signal = "hold"
	BuySignal  Signal = "buy"
	SellSignal Signal = "sell"
)

// Strategy turns history into a signal for bar i. It receives the whole
// series and is trusted not to read past i. Implementations must be
// deterministic for reproducible runs.
type Strategy interface {
	Signal(bars Bars, i int) Signal
}

// StrategyFunc adapts a plain function to Strategy.
type StrategyFunc func(bars Bars, i int) Signal

func (f StrategyFunc) Signal(bars Bars, i int) Signal {
	return f(bars, i)
}

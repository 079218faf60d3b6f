package strategies

import (
	"github.com/pedropmedina/backtester/backtest"
	"github.com/pedropmedina/backtester/indicators"
)

// SMACrossover buys on a golden cross (fast SMA crossing above slow) and
// sells on a death cross. It holds until slow bars of history exist.
func SMACrossover(fast, slow int) backtest.Strategy {
	return backtest.StrategyFunc(func(bars backtest.Bars, i int) backtest.Signal {
		if i < slow || i >= len(bars) {
			return backtest.Hold
		}

		closes := bars[:i+1].Closes()
		fastNow, ok1 := indicators.SMAAt(fast, closes, i)
		slowNow, ok2 := indicators.SMAAt(slow, closes, i)
		fastPrev, ok3 := indicators.SMAAt(fast, closes, i-1)
		slowPrev, ok4 := indicators.SMAAt(slow, closes, i-1)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return backtest.Hold
		}

		switch {
		case fastPrev <= slowPrev && fastNow > slowNow:
			return backtest.BuySignal
		case fastPrev >= slowPrev && fastNow < slowNow:
			return backtest.SellSignal
		}
		return backtest.Hold
	})
}

// CloseOverSMA sells when the bar's close price is below the SMA and
// buys when it closes above SMA.
func CloseOverSMA(period int) backtest.Strategy {
	return backtest.StrategyFunc(func(bars backtest.Bars, i int) backtest.Signal {
		if i >= len(bars) {
			return backtest.Hold
		}

		// Only history up to i feeds the average.
		sma := indicators.SMA(period, bars[:i+1].Closes())
		bar := bars[i]
		ma := sma[len(sma)-1]

		// Buy signal
		if bar.Open < ma && bar.Close > ma {
			return backtest.BuySignal
		}

		// Sell signal
		if bar.Open > ma && bar.Close < ma {
			return backtest.SellSignal
		}
		return backtest.Hold
	})
}

package backtest

import (
	"math"
	"slices"
	"time"
)

// TradingPeriods is the number of bars per year used for annualisation.
const TradingPeriods = 252

// Performance summarises a finished run.
type Performance struct {
	TotalReturn float64
	// Close-to-close return of the instrument over the run. Set by Run.
	BuyHoldReturn float64
	CAGR          float64
	SharpeRatio   float64
	SortinoRatio  float64
	// CAGR over the magnitude of MaxDrawdown.
	CalmarRatio float64
	MaxDrawdown float64
	// Longest stretch below a prior peak, an unrecovered one included.
	MaxDrawdownDuration time.Duration
	// Fraction of bars with a position open.
	Exposure      float64
	WinRate       float64
	ProfitFactor  float64
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	AvgWin        float64
	AvgLoss       float64
	Expectancy    float64

	TotalCommissions  float64
	TotalSlippageCost float64
	TotalRiskCost     float64
	StopLossTrades    int
	TakeProfitTrades  int

	BestTrade        float64
	WorstTrade       float64
	AvgTrade         float64
	EquityPeak       float64
	AvgTradeDuration time.Duration
	MaxTradeDuration time.Duration
}

// Calculate reduces the ledger and equity curve into performance metrics.
// It returns nil when no trade was closed.
func Calculate(trades []Trade, curve []EquityPoint, initialCapital float64, stats RiskStatistics) *Performance {
	if len(trades) == 0 {
		return nil
	}

	var (
		pnls      = make([]float64, len(trades))
		pnlPcts   = make([]float64, len(trades))
		durations = make([]time.Duration, len(trades))
	)
	for i, t := range trades {
		pnls[i] = t.PnL
		pnlPcts[i] = t.PnLPercent
		durations[i] = t.Duration()
	}

	isWin := func(e float64) bool { return e > 0 }
	isLoss := func(e float64) bool { return e < 0 }

	wins := count(pnls, isWin)
	losses := count(pnls, isLoss)
	totalWins := sumFunc(pnls, isWin)
	totalLosses := math.Abs(sumFunc(pnls, isLoss))

	p := &Performance{
		TotalTrades:       len(trades),
		WinningTrades:     wins,
		LosingTrades:      losses,
		WinRate:           float64(wins) / float64(len(trades)),
		TotalCommissions:  stats.TotalCommissionPaid,
		TotalSlippageCost: stats.TotalSlippageCost,
		TotalRiskCost:     stats.TotalRiskCost,
		StopLossTrades:    stats.StopLossExits,
		TakeProfitTrades:  stats.TakeProfitExits,
		BestTrade:         slices.Max(pnlPcts),
		WorstTrade:        slices.Min(pnlPcts),
		AvgTrade:          mean(pnls),
		AvgTradeDuration:  mean(durations),
		MaxTradeDuration:  slices.Max(durations),
	}
	if wins > 0 {
		p.AvgWin = totalWins / float64(wins)
	}
	if losses > 0 {
		p.AvgLoss = sumFunc(pnls, isLoss) / float64(losses)
	}
	if totalLosses > 0 {
		p.ProfitFactor = totalWins / totalLosses
	}
	p.Expectancy = p.WinRate*p.AvgWin + (1-p.WinRate)*p.AvgLoss

	if len(curve) == 0 {
		return p
	}

	final := curve[len(curve)-1].Equity
	if initialCapital != 0 {
		p.TotalReturn = (final - initialCapital) / initialCapital
	}
	p.CAGR = cagr(final, initialCapital, len(curve))
	p.SharpeRatio = sharpe(curve)
	p.SortinoRatio = sortino(curve)

	equities := make([]float64, len(curve))
	drawdowns := make([]float64, len(curve))
	for i, pt := range curve {
		equities[i] = pt.Equity
		drawdowns[i] = pt.Drawdown
	}
	p.MaxDrawdown = min(slices.Min(drawdowns), 0)
	p.EquityPeak = slices.Max(equities)
	if p.MaxDrawdown < 0 {
		p.CalmarRatio = p.CAGR / math.Abs(p.MaxDrawdown)
	}
	p.MaxDrawdownDuration = maxDrawdownDuration(curve)
	p.Exposure = exposure(trades, curve)

	return p
}

// BuyAndHoldReturn is the return of holding from the first close to the last.
func BuyAndHoldReturn(bars Bars) float64 {
	if len(bars) == 0 || bars.First().Close == 0 {
		return 0
	}
	return (bars.Last().Close - bars.First().Close) / bars.First().Close
}

// exposure counts the curve points falling inside any trade's holding window,
// entry and exit bars included.
func exposure(trades []Trade, curve []EquityPoint) float64 {
	if len(curve) == 0 {
		return 0
	}
	var exposed int
	for _, pt := range curve {
		for _, t := range trades {
			if !pt.Date.Before(t.EntryDate) && !pt.Date.After(t.ExitDate) {
				exposed++
				break
			}
		}
	}
	return float64(exposed) / float64(len(curve))
}

func maxDrawdownDuration(curve []EquityPoint) time.Duration {
	var (
		longest time.Duration
		since   time.Time
	)
	for _, pt := range curve {
		switch {
		case pt.Drawdown < 0 && since.IsZero():
			since = pt.Date
		case pt.Drawdown == 0 && !since.IsZero():
			longest = max(longest, pt.Date.Sub(since))
			since = time.Time{}
		}
	}
	if !since.IsZero() {
		longest = max(longest, curve[len(curve)-1].Date.Sub(since))
	}
	return longest
}

// Returns computes simple per-bar returns of the equity curve. A bar following
// a zero equity point contributes 0.
func Returns(curve []EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (curve[i].Equity-prev)/prev)
	}
	return returns
}

// sharpe annualises mean over stdev of per-bar returns, 0 rf.
func sharpe(curve []EquityPoint) float64 {
	returns := Returns(curve)
	if len(returns) == 0 {
		return 0
	}
	sd := stdev(returns)
	if sd == 0 {
		return 0
	}
	return mean(returns) / sd * math.Sqrt(TradingPeriods)
}

// sortino is sharpe with only the downside deviation in the denominator.
func sortino(curve []EquityPoint) float64 {
	returns := Returns(curve)
	if len(returns) == 0 {
		return 0
	}
	var ss float64
	for _, r := range returns {
		if r < 0 {
			ss += r * r
		}
	}
	dd := math.Sqrt(ss / float64(len(returns)))
	if dd == 0 {
		return 0
	}
	return mean(returns) / dd * math.Sqrt(TradingPeriods)
}

// cagr treats every bar as one trading period. A wiped out account yields -1.
func cagr(final, initial float64, bars int) float64 {
	if bars == 0 || initial <= 0 {
		return 0
	}
	ratio := final / initial
	if ratio <= 0 {
		return -1
	}
	return math.Pow(ratio, float64(TradingPeriods)/float64(bars)) - 1
}

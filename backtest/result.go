package backtest

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Result is everything a run produced, at full precision.
type Result struct {
	ID             string
	Symbol         string
	InitialCapital float64
	// Nil when no trade was closed.
	Performance *Performance
	Trades      []Trade
	EquityCurve []EquityPoint
	Statistics  RiskStatistics
	CreatedAt   time.Time
}

// FinalEquity returns the last equity point, or the initial capital when the
// curve is empty.
func (r *Result) FinalEquity() float64 {
	if len(r.EquityCurve) == 0 {
		return r.InitialCapital
	}
	return r.EquityCurve[len(r.EquityCurve)-1].Equity
}

// Payload is the response shape consumed by reporting clients.
type Payload struct {
	Backtest BacktestPayload `json:"backtest"`
}

type BacktestPayload struct {
	ID          string              `json:"id"`
	Symbol      string              `json:"symbol,omitempty"`
	Performance *PerformancePayload `json:"performance"`
	Trades      []TradePayload      `json:"trades"`
	EquityCurve []EquityPoint       `json:"equityCurve"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// MarshalJSON writes an empty performance object for runs without trades.
func (b BacktestPayload) MarshalJSON() ([]byte, error) {
	type plain BacktestPayload
	out := struct {
		plain
		Performance any `json:"performance"`
	}{plain: plain(b), Performance: b.Performance}
	if b.Performance == nil {
		out.Performance = struct{}{}
	}
	return json.Marshal(out)
}

type PerformancePayload struct {
	TotalReturn         float64 `json:"totalReturn"`
	BuyHoldReturn       float64 `json:"buyHoldReturn"`
	CAGR                float64 `json:"cagr"`
	SharpeRatio         float64 `json:"sharpeRatio"`
	SortinoRatio        float64 `json:"sortinoRatio"`
	CalmarRatio         float64 `json:"calmarRatio"`
	MaxDrawdown         float64 `json:"maxDrawdown"`
	MaxDrawdownDuration string  `json:"maxDrawdownDuration"`
	Exposure            float64 `json:"exposure"`

	WinRate       float64 `json:"winRate"`
	ProfitFactor  float64 `json:"profitFactor"`
	TotalTrades   int     `json:"totalTrades"`
	WinningTrades int     `json:"winningTrades"`
	LosingTrades  int     `json:"losingTrades"`
	AvgWin        float64 `json:"avgWin"`
	AvgLoss       float64 `json:"avgLoss"`
	Expectancy    float64 `json:"expectancy"`

	TotalCommissions  float64 `json:"totalCommissions"`
	TotalSlippageCost float64 `json:"totalSlippageCost"`
	TotalRiskCost     float64 `json:"totalRiskCost"`
	StopLossTrades    int     `json:"stopLossTrades"`
	TakeProfitTrades  int     `json:"takeProfitTrades"`

	BestTrade        float64 `json:"bestTrade"`
	WorstTrade       float64 `json:"worstTrade"`
	AvgTrade         float64 `json:"avgTrade"`
	EquityPeak       float64 `json:"equityPeak"`
	AvgTradeDuration string  `json:"avgTradeDuration"`
	MaxTradeDuration string  `json:"maxTradeDuration"`
}

type TradePayload struct {
	EntryDate      time.Time  `json:"entryDate"`
	ExitDate       time.Time  `json:"exitDate"`
	EntryPrice     float64    `json:"entryPrice"`
	ExitPrice      float64    `json:"exitPrice"`
	Shares         int        `json:"shares"`
	Side           Side       `json:"side"`
	PnL            float64    `json:"pnl"`
	PnLPercent     float64    `json:"pnlPercent"`
	CommissionCost float64    `json:"commissionCost"`
	SlippageCost   float64    `json:"slippageCost"`
	ExitReason     ExitReason `json:"exitReason"`
}

// round rounds half away from zero to places decimals.
func round(f float64, places int32) float64 {
	return decimal.NewFromFloat(f).Round(places).InexactFloat64()
}

// Payload rounds returns and fractions to 4 places; money amounts, the
// Sharpe, Sortino and Calmar ratios and profit factor to 2.
func (r *Result) Payload() Payload {
	trades := make([]TradePayload, len(r.Trades))
	for i, t := range r.Trades {
		trades[i] = TradePayload{
			EntryDate:      t.EntryDate,
			ExitDate:       t.ExitDate,
			EntryPrice:     t.EntryPrice,
			ExitPrice:      t.ExitPrice,
			Shares:         t.Shares,
			Side:           t.Side,
			PnL:            round(t.PnL, 2),
			PnLPercent:     round(t.PnLPercent, 2),
			CommissionCost: round(t.CommissionPaid, 2),
			SlippageCost:   round(t.SlippageCost, 2),
			ExitReason:     t.ExitReason,
		}
	}

	curve := r.EquityCurve
	if curve == nil {
		curve = []EquityPoint{}
	}

	return Payload{Backtest: BacktestPayload{
		ID:          r.ID,
		Symbol:      r.Symbol,
		Performance: r.performancePayload(),
		Trades:      trades,
		EquityCurve: curve,
		CreatedAt:   r.CreatedAt,
	}}
}

func (r *Result) performancePayload() *PerformancePayload {
	p := r.Performance
	if p == nil {
		return nil
	}
	return &PerformancePayload{
		TotalReturn:         round(p.TotalReturn, 4),
		BuyHoldReturn:       round(p.BuyHoldReturn, 4),
		CAGR:                round(p.CAGR, 4),
		SharpeRatio:         round(p.SharpeRatio, 2),
		SortinoRatio:        round(p.SortinoRatio, 2),
		CalmarRatio:         round(p.CalmarRatio, 2),
		MaxDrawdown:         round(p.MaxDrawdown, 4),
		MaxDrawdownDuration: p.MaxDrawdownDuration.String(),
		Exposure:            round(p.Exposure, 4),

		WinRate:           round(p.WinRate, 4),
		ProfitFactor:      round(p.ProfitFactor, 2),
		TotalTrades:       p.TotalTrades,
		WinningTrades:     p.WinningTrades,
		LosingTrades:      p.LosingTrades,
		AvgWin:            round(p.AvgWin, 2),
		AvgLoss:           round(p.AvgLoss, 2),
		Expectancy:        round(p.Expectancy, 2),
		TotalCommissions:  round(p.TotalCommissions, 2),
		TotalSlippageCost: round(p.TotalSlippageCost, 2),
		TotalRiskCost:     round(p.TotalRiskCost, 2),
		StopLossTrades:    p.StopLossTrades,
		TakeProfitTrades:  p.TakeProfitTrades,
		BestTrade:         round(p.BestTrade, 2),
		WorstTrade:        round(p.WorstTrade, 2),
		AvgTrade:          round(p.AvgTrade, 2),
		EquityPeak:        round(p.EquityPeak, 2),
		AvgTradeDuration:  p.AvgTradeDuration.String(),
		MaxTradeDuration:  p.MaxTradeDuration.String(),
	}
}

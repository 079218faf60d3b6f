package backtest

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Summary writes the run's stats as an aligned key/value table.
func (r *Result) Summary(w io.Writer) error {
	data := [][2]string{
		{"id", r.ID},
		{"initial capital", fmt.Sprintf("$%.2f", r.InitialCapital)},
		{"equity final", fmt.Sprintf("$%.2f", r.FinalEquity())},
	}
	if len(r.EquityCurve) > 0 {
		start, end := r.EquityCurve[0].Date, r.EquityCurve[len(r.EquityCurve)-1].Date
		data = append(data,
			[2]string{"start", start.Format(time.DateOnly)},
			[2]string{"end", end.Format(time.DateOnly)},
			[2]string{"bars", strconv.Itoa(len(r.EquityCurve))},
		)
	}

	if p := r.Performance; p != nil {
		data = append(data, [][2]string{
			{"exposure time", fmt.Sprintf("%.2f%%", p.Exposure*100)},
			{"total return", fmt.Sprintf("%.2f%%", p.TotalReturn*100)},
			{"buy & hold return", fmt.Sprintf("%.2f%%", p.BuyHoldReturn*100)},
			{"cagr", fmt.Sprintf("%.2f%%", p.CAGR*100)},
			{"sharpe ratio", fmt.Sprintf("%.2f", p.SharpeRatio)},
			{"sortino ratio", fmt.Sprintf("%.2f", p.SortinoRatio)},
			{"calmar ratio", fmt.Sprintf("%.2f", p.CalmarRatio)},
			{"max drawdown", fmt.Sprintf("%.2f%%", p.MaxDrawdown*100)},
			{"max. drawdown duration", p.MaxDrawdownDuration.String()},
			{"equity peak", fmt.Sprintf("$%.2f", p.EquityPeak)},
			{"# trades", strconv.Itoa(p.TotalTrades)},
			{"winning trades", strconv.Itoa(p.WinningTrades)},
			{"losing trades", strconv.Itoa(p.LosingTrades)},
			{"win rate", fmt.Sprintf("%.2f%%", p.WinRate*100)},
			{"profit factor", fmt.Sprintf("%.2f", p.ProfitFactor)},
			{"avg. win", fmt.Sprintf("$%.2f", p.AvgWin)},
			{"avg. loss", fmt.Sprintf("$%.2f", p.AvgLoss)},
			{"expectancy", fmt.Sprintf("$%.2f", p.Expectancy)},
			{"best trade", fmt.Sprintf("%.2f%%", p.BestTrade)},
			{"worst trade", fmt.Sprintf("%.2f%%", p.WorstTrade)},
			{"max. trade duration", p.MaxTradeDuration.String()},
			{"avg. trade duration", p.AvgTradeDuration.String()},
		}...)
	} else {
		data = append(data, [2]string{"# trades", "0"})
	}

	s := r.Statistics
	var costPct float64
	if r.InitialCapital != 0 {
		costPct = s.TotalRiskCost / r.InitialCapital * 100
	}
	data = append(data, [][2]string{
		{"total commissions", fmt.Sprintf("$%.2f", s.TotalCommissionPaid)},
		{"total slippage cost", fmt.Sprintf("$%.2f", s.TotalSlippageCost)},
		{"stop loss exits", strconv.Itoa(s.StopLossExits)},
		{"take profit exits", strconv.Itoa(s.TakeProfitExits)},
		{"total risk cost", fmt.Sprintf("$%.2f (%.2f%% of initial capital)", s.TotalRiskCost, costPct)},
	}...)

	row := slices.MaxFunc(data, func(a, b [2]string) int {
		return cmp.Compare(len(a[0]), len(b[0]))
	})
	span := len(row[0]) + 1

	title := cases.Title(language.English)
	var sb strings.Builder
	for _, d := range data {
		padding := strings.Repeat(" ", span-(len(d[0])+1))
		fmt.Fprintf(&sb, "%s %s: %s\n", padding, title.String(d[0]), d[1])
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

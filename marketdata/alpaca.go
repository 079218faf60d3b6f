package marketdata

import (
	"fmt"
	"time"

	alpacamd "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/pedropmedina/backtester/backtest"
)

// BarsGetter is the part of the Alpaca market data client we use.
type BarsGetter interface {
	GetBars(symbol string, req alpacamd.GetBarsRequest) ([]alpacamd.Bar, error)
}

type AlpacaOpts struct {
	BaseURL   string
	APIKey    string
	APISecret string
}

// Alpaca loads historical bars from Alpaca's market data API.
type Alpaca struct {
	client BarsGetter
}

// NewAlpaca wraps a real market data client built from opts.
func NewAlpaca(opts AlpacaOpts) *Alpaca {
	return &Alpaca{client: alpacamd.NewClient(alpacamd.ClientOpts{
		BaseURL:   opts.BaseURL,
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
	})}
}

// NewAlpacaWithClient is used when the caller already owns a client.
func NewAlpacaWithClient(c BarsGetter) *Alpaca {
	return &Alpaca{client: c}
}

// Bars fetches symbol bars of timeframeMinutes length in [start, end].
func (a *Alpaca) Bars(symbol string, timeframeMinutes int, start, end time.Time) (backtest.Bars, error) {
	tf := alpacamd.OneDay
	if timeframeMinutes > 0 {
		tf = alpacamd.NewTimeFrame(timeframeMinutes, alpacamd.Min)
	}

	bars, err := a.client.GetBars(symbol, alpacamd.GetBarsRequest{
		TimeFrame: tf,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return nil, fmt.Errorf("get %s bars from alpaca: %w", symbol, err)
	}

	return FromAlpaca(bars), nil
}

// FromAlpaca maps Alpaca bars onto the engine's bar type.
func FromAlpaca(bars []alpacamd.Bar) backtest.Bars {
	out := make(backtest.Bars, len(bars))
	for i, b := range bars {
		out[i] = backtest.Bar{
			Date:   b.Timestamp,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	return out
}

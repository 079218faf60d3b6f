package backtest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Bar is a single OHLCV observation. OHLC consistency is assumed, never checked.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume uint64    `json:"volume"`
}

// DateLayouts are the bar date formats accepted from JSON and CSV input.
var DateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", time.DateOnly}

// ParseDate parses s with the first matching layout of DateLayouts.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// UnmarshalJSON accepts any of DateLayouts for the date field, so clients can
// send plain "2024-01-15" dates.
func (b *Bar) UnmarshalJSON(data []byte) error {
	type plain Bar
	aux := struct {
		*plain
		Date string `json:"date"`
	}{plain: (*plain)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Date == "" {
		return nil
	}

	date, err := ParseDate(aux.Date)
	if err != nil {
		return err
	}
	b.Date = date
	return nil
}

type Price string

const (
	Open  Price = "open"
	High  Price = "high"
	Low   Price = "low"
	Close Price = "close"
)

// Price returns the bar's price for p, defaulting to close.
func (b Bar) Price(p Price) float64 {
	switch p {
	case Open:
		return b.Open
	case High:
		return b.High
	case Low:
		return b.Low
	default:
		return b.Close
	}
}

// Bars is an ordered bar series. The engine uses the order as given.
type Bars []Bar

// Prices returns list of prices type e.g. open, close ...
func (bs Bars) Prices(p Price) []float64 {
	prices := make([]float64, len(bs))
	for i, b := range bs {
		prices[i] = b.Price(p)
	}
	return prices
}

// Closes is shorthand for Prices(Close).
func (bs Bars) Closes() []float64 {
	return bs.Prices(Close)
}

// First returns first bar in the series.
func (bs Bars) First() Bar {
	return bs[0]
}

// Last returns last bar in the series.
func (bs Bars) Last() Bar {
	return bs[len(bs)-1]
}

// At returns bar at given index allowing easy backward access.
//
//	At(0) // get first bar
//	At(-1) // get last bar
func (bs Bars) At(i int) Bar {
	if i < 0 {
		return bs[len(bs)+i]
	}
	return bs[i]
}

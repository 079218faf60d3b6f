package marketdata

import (
	"errors"
	"testing"
	"time"

	alpacamd "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

type fakeBars struct {
	symbol string
	req    alpacamd.GetBarsRequest
	bars   []alpacamd.Bar
	err    error
}

func (f *fakeBars) GetBars(symbol string, req alpacamd.GetBarsRequest) ([]alpacamd.Bar, error) {
	f.symbol, f.req = symbol, req
	return f.bars, f.err
}

func TestAlpacaBars(t *testing.T) {
	ts := time.Date(2024, 2, 12, 14, 30, 0, 0, time.UTC)
	fake := &fakeBars{bars: []alpacamd.Bar{
		{Timestamp: ts, Open: 500, High: 502, Low: 499, Close: 501, Volume: 1200},
		{Timestamp: ts.Add(5 * time.Minute), Open: 501, High: 503, Low: 500, Close: 502.5, Volume: 900},
	}}
	start, end := ts, ts.Add(time.Hour)

	bars, err := NewAlpacaWithClient(fake).Bars("SPY", 5, start, end)
	if err != nil {
		t.Fatalf("Bars returned error: %v", err)
	}

	if fake.symbol != "SPY" || fake.req.TimeFrame != alpacamd.NewTimeFrame(5, alpacamd.Min) {
		t.Fatalf("request=(%s, %v), expected (SPY, 5Min)", fake.symbol, fake.req.TimeFrame)
	}
	if !fake.req.Start.Equal(start) || !fake.req.End.Equal(end) {
		t.Fatalf("range=(%v, %v), expected (%v, %v)", fake.req.Start, fake.req.End, start, end)
	}
	if len(bars) != 2 {
		t.Fatalf("got %d bars, expected 2", len(bars))
	}
	if b := bars[1]; !b.Date.Equal(ts.Add(5*time.Minute)) || b.Close != 502.5 || b.Volume != 900 {
		t.Fatalf("bar=%+v, expected the second alpaca bar", b)
	}
}

func TestAlpacaBarsDailyDefault(t *testing.T) {
	fake := &fakeBars{}
	if _, err := NewAlpacaWithClient(fake).Bars("AAPL", 0, time.Time{}, time.Time{}); err != nil {
		t.Fatalf("Bars returned error: %v", err)
	}
	if fake.req.TimeFrame != alpacamd.OneDay {
		t.Fatalf("TimeFrame=%v, expected 1Day", fake.req.TimeFrame)
	}
}

func TestAlpacaBarsError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewAlpacaWithClient(&fakeBars{err: boom}).Bars("SPY", 0, time.Time{}, time.Time{})
	if !errors.Is(err, boom) {
		t.Fatalf("error=%v, expected wrapped boom", err)
	}
}

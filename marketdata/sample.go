package marketdata

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/pedropmedina/backtester/backtest"
)

// SampleOpts shapes a generated random walk.
type SampleOpts struct {
	Days      int
	BasePrice float64
	Start     time.Time
}

// NewRand returns a deterministic source for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Sample generates daily bars as a random walk driven by r. The same source
// state always yields the same series.
func Sample(r *rand.Rand, opts SampleOpts) backtest.Bars {
	if opts.Days <= 0 {
		opts.Days = 252
	}
	if opts.BasePrice <= 0 {
		opts.BasePrice = 150
	}
	if opts.Start.IsZero() {
		opts.Start = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	bars := make(backtest.Bars, 0, opts.Days)
	price := opts.BasePrice
	date := opts.Start

	for range opts.Days {
		change := uniform(r, -2, 2)
		o := price
		c := math.Max(price+change, 0.01)
		h := math.Max(o, c) + uniform(r, 0, 1)
		l := math.Max(math.Min(o, c)-uniform(r, 0, 1), 0.01)

		bars = append(bars, backtest.Bar{
			Date:   date,
			Open:   round2(o),
			High:   round2(h),
			Low:    round2(l),
			Close:  round2(c),
			Volume: 1_000_000 + r.Uint64N(4_000_001),
		})

		price = c
		date = date.AddDate(0, 0, 1)
	}

	return bars
}

func uniform(r *rand.Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

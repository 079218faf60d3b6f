package backtest

import (
	"math"

	"golang.org/x/exp/constraints"
)

type number interface {
	constraints.Integer | constraints.Float
}

func reverseDirection(d Direction) Direction {
	if d == Buy {
		return Sell
	}
	return Buy
}

func sum[S ~[]E, E number](s S) E {
	var sum E
	for _, e := range s {
		sum += e
	}
	return sum
}

func sumFunc[S ~[]E, E number](s S, pred func(x E) bool) E {
	var sum E
	for _, e := range s {
		if pred(e) {
			sum += e
		}
	}
	return sum
}

func count[S ~[]E, E number](s S, pred func(x E) bool) int {
	var count int
	for _, e := range s {
		if pred(e) {
			count++
		}
	}
	return count
}

// mean returns 0 for an empty slice.
func mean[S ~[]E, E number](s S) E {
	if len(s) == 0 {
		return 0
	}
	return sum(s) / E(len(s))
}

// stdev is the population standard deviation.
func stdev[S ~[]E, E constraints.Float](s S) E {
	if len(s) == 0 {
		return 0
	}
	m := mean(s)
	var ss E
	for _, e := range s {
		ss += (e - m) * (e - m)
	}
	return E(math.Sqrt(float64(ss / E(len(s)))))
}

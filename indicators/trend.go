package indicators

// SMA (Simple Moving Average) takes the closing prices of an asset over time period
// sums them up and divides them by the period/total e.g. (1 + 2 + 3 + 4) / 4 = 2.5
//
// Until period values are available the average covers every value seen so far.
func SMA(period int, values []float64) []float64 {
	results := make([]float64, len(values))
	if period <= 0 {
		return results
	}

	// Keep track of the sum up to i
	sum := float64(0)
	for i, v := range values {
		count := i + 1
		sum += v

		if i >= period {
			// period = 2, values = []float64{ 1, 2, 3, 4 }
			// i=2 -> sum = (1+2+3) - 1 = 5
			// i=3 -> sum = (5+4) - 2 = 7
			sum -= values[i-period]
			count = period
		}

		results[i] = sum / float64(count)
	}

	return results
}

// SMAAt returns the average of the period values ending at index end. It
// reports false when fewer than period values exist up to end.
func SMAAt(period int, values []float64, end int) (float64, bool) {
	if period <= 0 || end < period-1 || end >= len(values) {
		return 0, false
	}

	var sum float64
	for _, v := range values[end-period+1 : end+1] {
		sum += v
	}
	return sum / float64(period), true
}

package marketdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pedropmedina/backtester/backtest"
)

// LoadCSV reads bars from path. See ReadCSV for the format.
func LoadCSV(path string) (backtest.Bars, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bars, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}

// ReadCSV parses rows of date,open,high,low,close[,volume], dates in any of
// backtest.DateLayouts. A first row whose date column does not parse is
// treated as a header. Rows keep file order.
func ReadCSV(r io.Reader) (backtest.Bars, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var bars backtest.Bars
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		if line == 1 {
			if _, err := backtest.ParseDate(rec[0]); err != nil {
				continue
			}
		}

		bar, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseRecord(rec []string) (backtest.Bar, error) {
	if len(rec) < 5 {
		return backtest.Bar{}, fmt.Errorf("want at least 5 columns, got %d", len(rec))
	}

	date, err := backtest.ParseDate(rec[0])
	if err != nil {
		return backtest.Bar{}, err
	}

	var ohlc [4]float64
	for i := range ohlc {
		ohlc[i], err = strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64)
		if err != nil {
			return backtest.Bar{}, fmt.Errorf("column %d: %w", i+2, err)
		}
	}

	var volume uint64
	if len(rec) > 5 && strings.TrimSpace(rec[5]) != "" {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[5]), 64)
		if err != nil || v < 0 {
			return backtest.Bar{}, fmt.Errorf("bad volume %q", rec[5])
		}
		volume = uint64(v)
	}

	return backtest.Bar{
		Date:   date,
		Open:   ohlc[0],
		High:   ohlc[1],
		Low:    ohlc[2],
		Close:  ohlc[3],
		Volume: volume,
	}, nil
}

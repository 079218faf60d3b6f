package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(NewHandler(slog.New(slog.DiscardHandler)))
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := do(t, newTestRouter(), http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("GET /healthz=%d %s", w.Code, w.Body.String())
	}
}

func TestListStrategies(t *testing.T) {
	w := do(t, newTestRouter(), http.MethodGet, "/api/strategies", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, expected 200", w.Code)
	}
	var body struct {
		Strategies []string `json:"strategies"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Strategies) != 2 {
		t.Fatalf("strategies=%v, expected two", body.Strategies)
	}
}

func TestRunBacktestSample(t *testing.T) {
	body := `{
		"symbol": "SAMPLE",
		"initialCapital": 10000,
		"riskParams": {"commission": 1, "slippage": 0.05, "stopLoss": 2, "takeProfit": 5},
		"strategy": {"name": "sma_crossover", "fast": 5, "slow": 20},
		"sample": {"days": 252, "seed": 42}
	}`
	w := do(t, newTestRouter(), http.MethodPost, "/api/backtest", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Backtest struct {
			ID          string            `json:"id"`
			Symbol      string            `json:"symbol"`
			Performance json.RawMessage   `json:"performance"`
			Trades      []json.RawMessage `json:"trades"`
			EquityCurve []json.RawMessage `json:"equityCurve"`
		} `json:"backtest"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	bt := resp.Backtest
	if !strings.HasPrefix(bt.ID, "bt_") || bt.Symbol != "SAMPLE" {
		t.Fatalf("id=%q symbol=%q", bt.ID, bt.Symbol)
	}
	if len(bt.EquityCurve) != 252 {
		t.Fatalf("got %d equity points, expected 252", len(bt.EquityCurve))
	}
	if len(bt.Performance) == 0 {
		t.Fatal("response has no performance field")
	}
}

func TestRunBacktestSampleIsDeterministic(t *testing.T) {
	body := `{"initialCapital": 5000, "strategy": {"name": "close_over_sma", "period": 10}, "sample": {"days": 120, "seed": 9}}`
	router := newTestRouter()

	first := do(t, router, http.MethodPost, "/api/backtest", body)
	second := do(t, router, http.MethodPost, "/api/backtest", body)
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("status=(%d, %d), expected 200", first.Code, second.Code)
	}

	trades := func(w *httptest.ResponseRecorder) string {
		var resp struct {
			Backtest struct {
				Trades json.RawMessage `json:"trades"`
			} `json:"backtest"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		return string(resp.Backtest.Trades)
	}
	if trades(first) != trades(second) {
		t.Fatal("same seed produced different trades")
	}
}

func TestRunBacktestBars(t *testing.T) {
	body := `{
		"initialCapital": 1000,
		"strategy": {"name": "close_over_sma", "period": 2},
		"bars": [
			{"date": "2024-01-02T00:00:00Z", "open": 10, "high": 10, "low": 10, "close": 10},
			{"date": "2024-01-03T00:00:00Z", "open": 9, "high": 12, "low": 9, "close": 12},
			{"date": "2024-01-04T00:00:00Z", "open": 13, "high": 13, "low": 8, "close": 8}
		]
	}`
	w := do(t, newTestRouter(), http.MethodPost, "/api/backtest", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Backtest struct {
			Trades []struct {
				EntryPrice float64 `json:"entryPrice"`
				ExitPrice  float64 `json:"exitPrice"`
				ExitReason string  `json:"exitReason"`
			} `json:"trades"`
		} `json:"backtest"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	trades := resp.Backtest.Trades
	if len(trades) != 1 || trades[0].EntryPrice != 12 || trades[0].ExitPrice != 8 || trades[0].ExitReason != "strategy" {
		t.Fatalf("trades=%+v, expected one strategy exit 12 -> 8", trades)
	}
}

func TestRunBacktestDateOnlyBars(t *testing.T) {
	body := `{
		"initialCapital": 1000,
		"strategy": {"name": "close_over_sma", "period": 2},
		"bars": [
			{"date": "2024-01-15", "open": 10, "high": 10, "low": 10, "close": 10},
			{"date": "2024-01-16", "open": 9, "high": 12, "low": 9, "close": 12},
			{"date": "2024-01-17", "open": 13, "high": 13, "low": 8, "close": 8}
		]
	}`
	w := do(t, newTestRouter(), http.MethodPost, "/api/backtest", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Backtest struct {
			Trades []struct {
				EntryDate time.Time `json:"entryDate"`
				ExitDate  time.Time `json:"exitDate"`
			} `json:"trades"`
		} `json:"backtest"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	trades := resp.Backtest.Trades
	wantEntry := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)
	wantExit := time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC)
	if len(trades) != 1 || !trades[0].EntryDate.Equal(wantEntry) || !trades[0].ExitDate.Equal(wantExit) {
		t.Fatalf("trades=%+v, expected one trade from %v to %v", trades, wantEntry, wantExit)
	}
}

func TestRunBacktestBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"initialCapital": `},
		{"unknown date layout", `{"bars": [{"date": "15/01/2024", "open": 1, "high": 1, "low": 1, "close": 1}]}`},
		{"negative capital", `{"initialCapital": -1, "sample": {"days": 10}}`},
		{"bad risk", `{"riskParams": {"stopLoss": -2}, "sample": {"days": 10}}`},
		{"unknown strategy", `{"strategy": {"name": "martingale"}, "sample": {"days": 10}}`},
		{"no data", `{"initialCapital": 1000}`},
		{"sample too large", `{"sample": {"days": 1000000}}`},
	}

	router := newTestRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/api/backtest", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status=%d body=%s, expected 400", w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), `"error"`) {
				t.Fatalf("body=%s, expected an error field", w.Body.String())
			}
		})
	}
}

func TestRunSweep(t *testing.T) {
	body := `{
		"initialCapital": 10000,
		"strategy": {"name": "sma_crossover", "fast": 5, "slow": 20},
		"sample": {"days": 200, "seed": 3},
		"variants": [
			{"commission": 0},
			{"commission": 1, "stopLoss": 2},
			{"commission": 2, "takeProfit": 4}
		]
	}`
	w := do(t, newTestRouter(), http.MethodPost, "/api/sweep", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Backtests []struct {
			ID          string            `json:"id"`
			EquityCurve []json.RawMessage `json:"equityCurve"`
		} `json:"backtests"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Backtests) != 3 {
		t.Fatalf("got %d backtests, expected 3", len(resp.Backtests))
	}
	seen := map[string]bool{}
	for i, bt := range resp.Backtests {
		if len(bt.EquityCurve) != 200 {
			t.Fatalf("backtest %d has %d equity points, expected 200", i, len(bt.EquityCurve))
		}
		if seen[bt.ID] {
			t.Fatalf("duplicate backtest id %q", bt.ID)
		}
		seen[bt.ID] = true
	}
}

func TestRunSweepBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no variants", `{"sample": {"days": 10}}`},
		{"bad variant", `{"sample": {"days": 10}, "variants": [{"commission": 1}, {"slippage": -1}]}`},
	}

	router := newTestRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(t, router, http.MethodPost, "/api/sweep", tt.body); w.Code != http.StatusBadRequest {
				t.Fatalf("status=%d body=%s, expected 400", w.Code, w.Body.String())
			}
		})
	}
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pedropmedina/backtester/backtest"
)

// noEnv points Load at a .env file that does not exist.
func noEnv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", noEnv(t))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Capital != 10000 || cfg.Risk.PositionSize != 100 || cfg.Risk.MaxPositions != 1 {
		t.Fatalf("config=%+v, expected engine defaults", cfg)
	}
	if cfg.Strategy.Name != "sma_crossover" || cfg.Strategy.Fast != 10 || cfg.Strategy.Slow != 30 {
		t.Fatalf("strategy=%+v, expected sma_crossover 10/30", cfg.Strategy)
	}
	if cfg.Data.Source != SourceSample || cfg.Data.Seed != 1 || cfg.Data.Days != 252 {
		t.Fatalf("data=%+v, expected seeded sample data", cfg.Data)
	}
	if cfg.HTTP.Addr != ":8080" || cfg.Logger.Level != "info" {
		t.Fatalf("http=%+v logger=%+v", cfg.HTTP, cfg.Logger)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backtest.yaml")
	yaml := `capital: 25000
symbol: SPY
risk:
  stop_loss: 2
  take_profit: 5
  max_positions: 3
strategy:
  name: close_over_sma
  period: 20
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BACKTEST_RISK_COMMISSION", "0.75")
	t.Setenv("APCA_API_KEY_ID", "key")

	cfg, err := Load(path, noEnv(t))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	want := backtest.RiskConfig{Commission: 0.75, StopLoss: 2, TakeProfit: 5, PositionSize: 100, MaxPositions: 3}
	if cfg.Risk != want {
		t.Fatalf("risk=%+v, expected %+v", cfg.Risk, want)
	}
	if cfg.Capital != 25000 || cfg.Symbol != "SPY" {
		t.Fatalf("capital=%v symbol=%q", cfg.Capital, cfg.Symbol)
	}
	if cfg.Strategy.Name != "close_over_sma" || cfg.Strategy.Period != 20 {
		t.Fatalf("strategy=%+v", cfg.Strategy)
	}
	if cfg.Alpaca.KeyID != "key" {
		t.Fatalf("alpaca key=%q, expected APCA_API_KEY_ID", cfg.Alpaca.KeyID)
	}

	opts := cfg.Opts()
	if opts.Capital != 25000 || opts.Symbol != "SPY" || opts.Risk != want {
		t.Fatalf("opts=%+v", opts)
	}
}

func TestLoadDotEnv(t *testing.T) {
	env := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(env, []byte("BACKTEST_SYMBOL=QQQ\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// godotenv sets the variable process wide; t.Setenv restores it after.
	t.Setenv("BACKTEST_SYMBOL", "")
	os.Unsetenv("BACKTEST_SYMBOL")

	cfg, err := Load("", env)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Symbol != "QQQ" {
		t.Fatalf("symbol=%q, expected QQQ from .env", cfg.Symbol)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), noEnv(t)); err == nil {
		t.Fatal("Load of a missing config file returned no error")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Capital: 1000,
			Symbol:  "SPY",
			Risk:    backtest.DefaultRiskConfig(),
			Data:    DataConfig{Source: SourceSample, Days: 10},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no capital", func(c *Config) { c.Capital = 0 }},
		{"bad risk", func(c *Config) { c.Risk.StopLoss = -1 }},
		{"no days", func(c *Config) { c.Data.Days = 0 }},
		{"csv without path", func(c *Config) { c.Data.Source = SourceCSV }},
		{"unknown source", func(c *Config) { c.Data.Source = "ftp" }},
		{"alpaca without keys", func(c *Config) { c.Data.Source = SourceAlpaca }},
		{"alpaca bad range", func(c *Config) {
			c.Data = DataConfig{Source: SourceAlpaca, Start: "2024-02-10", End: "2024-02-01"}
			c.Alpaca = AlpacaConfig{KeyID: "k", SecretKey: "s"}
		}},
		{"alpaca unparsable date", func(c *Config) {
			c.Data = DataConfig{Source: SourceAlpaca, Start: "02/10/2024", End: "2024-02-21"}
			c.Alpaca = AlpacaConfig{KeyID: "k", SecretKey: "s"}
		}},
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config returned error: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			if err := c.Validate(); !errors.Is(err, backtest.ErrConfiguration) {
				t.Fatalf("Validate error=%v, expected ErrConfiguration", err)
			}
		})
	}
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pedropmedina/backtester/backtest"
	"github.com/pedropmedina/backtester/logger"
	"github.com/pedropmedina/backtester/strategies"
)

// EnvPrefix prefixes every environment override, e.g. BACKTEST_RISK_COMMISSION.
const EnvPrefix = "BACKTEST"

const (
	SourceSample = "sample"
	SourceCSV    = "csv"
	SourceAlpaca = "alpaca"
)

type Config struct {
	Capital  float64             `mapstructure:"capital"`
	Symbol   string              `mapstructure:"symbol"`
	Risk     backtest.RiskConfig `mapstructure:"risk"`
	Strategy strategies.Params   `mapstructure:"strategy"`
	Data     DataConfig          `mapstructure:"data"`
	Alpaca   AlpacaConfig        `mapstructure:"alpaca"`
	Logger   logger.Config       `mapstructure:"logger"`
	HTTP     HTTPConfig          `mapstructure:"http"`
}

type DataConfig struct {
	// sample, csv or alpaca
	Source  string `mapstructure:"source"`
	CSVPath string `mapstructure:"csv_path"`
	Seed    uint64 `mapstructure:"seed"`
	Days    int    `mapstructure:"days"`
	// YYYY-MM-DD, used by alpaca
	Start            string `mapstructure:"start"`
	End              string `mapstructure:"end"`
	TimeframeMinutes int    `mapstructure:"timeframe_minutes"`
}

type AlpacaConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	KeyID     string `mapstructure:"key_id"`
	SecretKey string `mapstructure:"secret_key"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads .env files (missing ones are skipped), then the optional config
// file at path, then BACKTEST_* environment overrides.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Alpaca's own variable names, as used by its SDK examples.
	_ = v.BindEnv("alpaca.base_url", EnvPrefix+"_ALPACA_BASE_URL", "APCA_API_DATA_URL")
	_ = v.BindEnv("alpaca.key_id", EnvPrefix+"_ALPACA_KEY_ID", "APCA_API_KEY_ID")
	_ = v.BindEnv("alpaca.secret_key", EnvPrefix+"_ALPACA_SECRET_KEY", "APCA_API_SECRET_KEY")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("capital", 10000.0)
	v.SetDefault("symbol", "SAMPLE")

	v.SetDefault("risk.commission", 0.0)
	v.SetDefault("risk.slippage", 0.0)
	v.SetDefault("risk.stop_loss", 0.0)
	v.SetDefault("risk.take_profit", 0.0)
	v.SetDefault("risk.position_size", 100.0)
	v.SetDefault("risk.max_positions", 1)

	v.SetDefault("strategy.name", "sma_crossover")
	v.SetDefault("strategy.fast", 10)
	v.SetDefault("strategy.slow", 30)
	v.SetDefault("strategy.period", 14)

	v.SetDefault("data.source", SourceSample)
	v.SetDefault("data.csv_path", "")
	v.SetDefault("data.seed", 1)
	v.SetDefault("data.days", 252)
	v.SetDefault("data.start", "")
	v.SetDefault("data.end", "")
	v.SetDefault("data.timeframe_minutes", 0)

	v.SetDefault("alpaca.base_url", "")
	v.SetDefault("alpaca.key_id", "")
	v.SetDefault("alpaca.secret_key", "")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/backtest.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", false)

	v.SetDefault("http.addr", ":8080")
}

// Validate checks the settings a run depends on. Every error wraps
// backtest.ErrConfiguration.
func (c *Config) Validate() error {
	if c.Capital <= 0 {
		return fmt.Errorf("capital %v must be > 0: %w", c.Capital, backtest.ErrConfiguration)
	}
	if err := c.Risk.Validate(); err != nil {
		return err
	}

	switch c.Data.Source {
	case SourceSample:
		if c.Data.Days <= 0 {
			return fmt.Errorf("data.days %d must be > 0: %w", c.Data.Days, backtest.ErrConfiguration)
		}
	case SourceCSV:
		if c.Data.CSVPath == "" {
			return fmt.Errorf("data.csv_path is required for csv source: %w", backtest.ErrConfiguration)
		}
	case SourceAlpaca:
		if c.Alpaca.KeyID == "" || c.Alpaca.SecretKey == "" {
			return fmt.Errorf("alpaca key id and secret are required: %w", backtest.ErrConfiguration)
		}
		if c.Symbol == "" {
			return fmt.Errorf("symbol is required for alpaca source: %w", backtest.ErrConfiguration)
		}
		start, end, err := c.Data.Range()
		if err != nil {
			return err
		}
		if !end.After(start) {
			return fmt.Errorf("data.end must be after data.start: %w", backtest.ErrConfiguration)
		}
	default:
		return fmt.Errorf("unknown data.source %q: %w", c.Data.Source, backtest.ErrConfiguration)
	}
	return nil
}

// Range parses Start and End as dates.
func (d DataConfig) Range() (time.Time, time.Time, error) {
	start, err := time.Parse(time.DateOnly, d.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bad data.start %q: %w", d.Start, backtest.ErrConfiguration)
	}
	end, err := time.Parse(time.DateOnly, d.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bad data.end %q: %w", d.End, backtest.ErrConfiguration)
	}
	return start, end, nil
}

// Opts maps the config onto backtest options.
func (c *Config) Opts() backtest.Opts {
	return backtest.Opts{
		Capital: c.Capital,
		Risk:    c.Risk,
		Symbol:  c.Symbol,
	}
}

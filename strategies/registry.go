package strategies

import (
	"fmt"
	"sort"

	"github.com/pedropmedina/backtester/backtest"
)

// Params configures a strategy picked by name. Unused fields are ignored.
type Params struct {
	Name   string `json:"name" mapstructure:"name"`
	Fast   int    `json:"fast" mapstructure:"fast"`
	Slow   int    `json:"slow" mapstructure:"slow"`
	Period int    `json:"period" mapstructure:"period"`
}

var registry = map[string]func(Params) (backtest.Strategy, error){
	"sma_crossover": func(p Params) (backtest.Strategy, error) {
		if p.Fast == 0 {
			p.Fast = 10
		}
		if p.Slow == 0 {
			p.Slow = 30
		}
		if p.Fast < 1 || p.Slow <= p.Fast {
			return nil, fmt.Errorf("sma_crossover needs 0 < fast < slow, got fast=%d slow=%d", p.Fast, p.Slow)
		}
		return SMACrossover(p.Fast, p.Slow), nil
	},
	"close_over_sma": func(p Params) (backtest.Strategy, error) {
		if p.Period == 0 {
			p.Period = 14
		}
		if p.Period < 1 {
			return nil, fmt.Errorf("close_over_sma needs period > 0, got %d", p.Period)
		}
		return CloseOverSMA(p.Period), nil
	},
}

// New builds the strategy registered under p.Name. An empty name selects
// sma_crossover.
func New(p Params) (backtest.Strategy, error) {
	if p.Name == "" {
		p.Name = "sma_crossover"
	}
	build, ok := registry[p.Name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (available: %v)", p.Name, Names())
	}
	return build(p)
}

// Names lists registered strategies in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package backtest

import "errors"

var (
	// ErrInvalidState is returned when P&L is finalised on an open position.
	ErrInvalidState = errors.New("invalid position state")
	// ErrPositionClosed is returned when a position is closed twice.
	ErrPositionClosed = errors.New("position already closed")
	// ErrConfiguration wraps every RiskConfig validation failure.
	ErrConfiguration = errors.New("invalid configuration")
	ErrNoData        = errors.New("no bars to backtest")
	ErrNoStrategy    = errors.New("no strategy set")
	// ErrEquityMismatch means capital plus open P&L drifted from the equity curve.
	ErrEquityMismatch = errors.New("equity does not match capital plus open pnl")
)

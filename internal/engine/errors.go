package engine

import (
	"errors"

	"coverSwap/internal/bmath"
)

var (
	// ErrPoolUnavailable is returned when a referenced pool does not exist or
	// does not hold the expected token pair.
	ErrPoolUnavailable = errors.New("pool unavailable")
	// ErrInvalidPoolParameters is returned for non-positive weights or degenerate reserves.
	ErrInvalidPoolParameters = bmath.ErrInvalidPoolParameters
	// ErrDivisionByZero is returned when a zero outcome reserve is used as a ratio denominator.
	ErrDivisionByZero = bmath.ErrDivisionByZero
	// ErrInsufficientLiquidity is returned when a share balance exceeds what the pool can back.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrInvalidAmount is returned for negative or missing caller amounts.
	ErrInvalidAmount = errors.New("invalid amount")
)

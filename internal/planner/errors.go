package planner

import (
	"context"
	"errors"
	"fmt"

	"coverSwap/internal/config"
	"coverSwap/internal/engine"
	"coverSwap/internal/poolstate"
)

// ErrCoverageExpired is returned when minting into a coverage whose
// expiration is at or before the snapshot block time.
var ErrCoverageExpired = errors.New("coverage expired")

// ErrIncompatibleCoverages is returned when a swap source and target do not
// share collateral and paired token, so redeemed funds cannot fund the mint.
var ErrIncompatibleCoverages = errors.New("incompatible coverages")

// PlanError records which coverage and step a plan failed on.
type PlanError struct {
	Coverage string
	Step     string
	Err      error
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("coverage %s: %s: %v", e.Coverage, e.Step, e.Err)
}

func (e *PlanError) Unwrap() error {
	return e.Err
}

func planErr(coverage, step string, err error) error {
	if err == nil {
		return nil
	}
	return &PlanError{Coverage: coverage, Step: step, Err: err}
}

// errorKind labels an error for metrics.
func errorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, engine.ErrPoolUnavailable):
		return "pool_unavailable"
	case errors.Is(err, engine.ErrInvalidPoolParameters):
		return "invalid_pool_parameters"
	case errors.Is(err, engine.ErrDivisionByZero):
		return "division_by_zero"
	case errors.Is(err, engine.ErrInsufficientLiquidity):
		return "insufficient_liquidity"
	case errors.Is(err, engine.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrCoverageExpired):
		return "coverage_expired"
	case errors.Is(err, ErrIncompatibleCoverages):
		return "incompatible_coverages"
	case errors.Is(err, config.ErrUnknownCoverage):
		return "unknown_coverage"
	case errors.Is(err, poolstate.ErrCallRejected):
		return "call_rejected"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, poolstate.ErrTransport):
		return "rpc"
	default:
		return "internal"
	}
}

// retryable reports whether a read failure may succeed on a later attempt.
func retryable(err error) bool {
	return errorKind(err) == "rpc"
}

// Package engine computes mint, swap and redeem plans for coverages whose
// claim and no-claim outcome tokens trade in two weighted pools against a
// common paired token. Every function is pure: inputs are snapshots, outputs
// are amounts for the caller to submit.
package engine

import (
	"fmt"
	"math/big"

	"coverSwap/internal/bmath"
	"coverSwap/internal/model"
)

// Params holds the tunable constants of the planners. The defaults carry the
// values the coverage tooling has always used; neither is derived from the
// pool math.
type Params struct {
	// RedeemTolerance is the outcome-token surplus left unswapped when the two
	// pools redeem unevenly. Default one whole token.
	RedeemTolerance *big.Int
	// MintCollateralPerUnit is the collateral consumed per outcome unit minted,
	// in fixed point. Default 1.0.
	MintCollateralPerUnit *big.Int
}

// DefaultParams returns the standard planner constants.
func DefaultParams() Params {
	return Params{
		RedeemTolerance:       new(big.Int).Set(bmath.One),
		MintCollateralPerUnit: new(big.Int).Set(bmath.One),
	}
}

// Engine evaluates plans with a fixed set of params. The zero value uses
// DefaultParams.
type Engine struct {
	params Params
}

// New builds an Engine. Nil fields fall back to the defaults.
func New(params Params) Engine {
	def := DefaultParams()
	if params.RedeemTolerance == nil {
		params.RedeemTolerance = def.RedeemTolerance
	}
	if params.MintCollateralPerUnit == nil {
		params.MintCollateralPerUnit = def.MintCollateralPerUnit
	}
	return Engine{params: params}
}

// Params returns the constants in use.
func (e Engine) Params() Params {
	if e.params.RedeemTolerance == nil || e.params.MintCollateralPerUnit == nil {
		return New(e.params).params
	}
	return e.params
}

func validatePair(pair model.PoolPair) error {
	if err := pair.Claim.Validate(); err != nil {
		return fmt.Errorf("%w: claim pool: %v", ErrInvalidPoolParameters, err)
	}
	if err := pair.Noclaim.Validate(); err != nil {
		return fmt.Errorf("%w: noclaim pool: %v", ErrInvalidPoolParameters, err)
	}
	return nil
}

func checkAmount(name string, v *big.Int) error {
	if v == nil {
		return fmt.Errorf("%w: %s is nil", ErrInvalidAmount, name)
	}
	if v.Sign() < 0 {
		return fmt.Errorf("%w: %s is negative", ErrInvalidAmount, name)
	}
	return nil
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

// mulDiv returns floor(a*b/c).
func mulDiv(a, b, c *big.Int) *big.Int {
	v := new(big.Int).Mul(a, b)
	return v.Quo(v, c)
}

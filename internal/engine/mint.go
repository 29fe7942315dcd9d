package engine

import (
	"fmt"
	"math/big"

	"coverSwap/internal/bmath"
	"coverSwap/internal/model"
)

// PlanMintFromCollateral sizes a mint when the collateral balance also funds
// the paired side of both pools. It picks the largest mint such that
//
//	mint*(claimB/claimA + noclaimB/noclaimA + collateralPerUnit) <= collateral
//
// and provides paired token in each pool at its current ratio.
func (e Engine) PlanMintFromCollateral(pair model.PoolPair, collateral *big.Int) (model.MintPlan, error) {
	if err := checkAmount("collateral", collateral); err != nil {
		return model.MintPlan{}, err
	}
	if err := checkSeeded(pair); err != nil {
		return model.MintPlan{}, err
	}

	ac, bc := pair.Claim.ReserveA, pair.Claim.ReserveB
	an, bn := pair.Noclaim.ReserveA, pair.Noclaim.ReserveB

	// Scale the ratio terms by One so the per-unit collateral stays fixed point.
	acan := new(big.Int).Mul(ac, an)
	denominator := new(big.Int).Add(new(big.Int).Mul(bc, an), new(big.Int).Mul(bn, ac))
	denominator.Mul(denominator, bmath.One)
	denominator.Add(denominator, new(big.Int).Mul(e.Params().MintCollateralPerUnit, acan))
	if denominator.Sign() == 0 {
		return model.MintPlan{}, fmt.Errorf("%w: zero mint cost", ErrDivisionByZero)
	}

	numerator := new(big.Int).Mul(collateral, acan)
	numerator.Mul(numerator, bmath.One)
	mint := numerator.Quo(numerator, denominator)

	return pairedFor(pair, mint), nil
}

// PlanMintCapped computes the paired token needed to provide requested
// outcome units to both pools. When that exceeds available, the mint is
// scaled by available/required so the plan never spends more than available.
func (e Engine) PlanMintCapped(pair model.PoolPair, requested, available *big.Int) (model.MintPlan, error) {
	if err := checkAmount("requested mint", requested); err != nil {
		return model.MintPlan{}, err
	}
	if err := checkAmount("available paired", available); err != nil {
		return model.MintPlan{}, err
	}
	if err := checkSeeded(pair); err != nil {
		return model.MintPlan{}, err
	}

	plan := pairedFor(pair, requested)
	if plan.TotalPaired().Cmp(available) <= 0 {
		return plan, nil
	}

	ac, bc := pair.Claim.ReserveA, pair.Claim.ReserveB
	an, bn := pair.Noclaim.ReserveA, pair.Noclaim.ReserveB

	// requested*available/required with the unrounded requirement
	// requested*(bc/ac + bn/an) reduces to available*ac*an/(bc*an + bn*ac).
	perUnit := new(big.Int).Add(new(big.Int).Mul(bc, an), new(big.Int).Mul(bn, ac))
	reduced := new(big.Int).Mul(available, ac)
	reduced.Mul(reduced, an)
	reduced.Quo(reduced, perUnit)
	if reduced.Cmp(requested) > 0 {
		reduced.Set(requested)
	}

	plan = pairedFor(pair, reduced)
	plan.Capped = true
	return plan, nil
}

// PlanMintExact returns the paired token needed to provide exactly mint
// outcome units to both pools. It is used when collateral and paired token
// differ, so the mint size is not bounded by the paired balance.
func (e Engine) PlanMintExact(pair model.PoolPair, mint *big.Int) (model.MintPlan, error) {
	if err := checkAmount("mint", mint); err != nil {
		return model.MintPlan{}, err
	}
	if err := checkSeeded(pair); err != nil {
		return model.MintPlan{}, err
	}
	return pairedFor(pair, mint), nil
}

func checkSeeded(pair model.PoolPair) error {
	if err := validatePair(pair); err != nil {
		return err
	}
	if pair.Claim.ReserveA.Sign() == 0 {
		return fmt.Errorf("%w: claim pool %s has no outcome reserve", ErrDivisionByZero, pair.Claim.Address)
	}
	if pair.Noclaim.ReserveA.Sign() == 0 {
		return fmt.Errorf("%w: noclaim pool %s has no outcome reserve", ErrDivisionByZero, pair.Noclaim.Address)
	}
	return nil
}

func pairedFor(pair model.PoolPair, mint *big.Int) model.MintPlan {
	return model.MintPlan{
		MintAmount:          new(big.Int).Set(mint),
		ClaimPairedAmount:   mulDiv(pair.Claim.ReserveB, mint, pair.Claim.ReserveA),
		NoclaimPairedAmount: mulDiv(pair.Noclaim.ReserveB, mint, pair.Noclaim.ReserveA),
	}
}

package engine

import (
	"fmt"
	"math/big"

	"coverSwap/internal/bmath"
	"coverSwap/internal/model"
)

// Reconcile computes how much of a coverage leg can be redeemed. The caller's
// shares are valued pro rata in both pools; the smaller outcome amount is
// redeemable symmetrically and any surplus above the tolerance is sold into
// its own pool for paired token, priced at the pool's reserves as read.
func (e Engine) Reconcile(leg model.CoverageLeg) (model.RedeemPlan, error) {
	if err := validatePair(leg.Pools); err != nil {
		return model.RedeemPlan{}, err
	}
	claimShares := sharesOrZero(leg.ClaimShares)
	noclaimShares := sharesOrZero(leg.NoclaimShares)

	claimOut, claimPaired, err := proRata(leg.Pools.Claim, claimShares)
	if err != nil {
		return model.RedeemPlan{}, fmt.Errorf("claim pool: %w", err)
	}
	noclaimOut, noclaimPaired, err := proRata(leg.Pools.Noclaim, noclaimShares)
	if err != nil {
		return model.RedeemPlan{}, fmt.Errorf("noclaim pool: %w", err)
	}

	plan := model.RedeemPlan{
		ClaimRedeemable:       claimOut,
		NoclaimRedeemable:     noclaimOut,
		SymmetricRedeemAmount: minBig(claimOut, noclaimOut),
		PairedTokenRecovered:  new(big.Int).Add(claimPaired, noclaimPaired),
		LeftoverSwapAmount:    new(big.Int),
		LeftoverSwapProceeds:  new(big.Int),
		ClaimSharesBurned:     new(big.Int).Set(claimShares),
		NoclaimSharesBurned:   new(big.Int).Set(noclaimShares),
	}

	surplus := new(big.Int).Sub(claimOut, noclaimOut)
	side, pool := model.SideClaim, leg.Pools.Claim
	if surplus.Sign() < 0 {
		surplus.Neg(surplus)
		side, pool = model.SideNoclaim, leg.Pools.Noclaim
	}

	tolerance := e.Params().RedeemTolerance
	if surplus.Cmp(tolerance) <= 0 {
		return plan, nil
	}

	amount := new(big.Int).Sub(surplus, tolerance)
	proceeds, err := bmath.CalcOutGivenIn(pool.ReserveA, pool.WeightA, pool.ReserveB, pool.WeightB, amount, pool.SwapFee)
	if err != nil {
		return model.RedeemPlan{}, fmt.Errorf("%s leftover swap: %w", side, err)
	}

	plan.LeftoverSide = side
	plan.LeftoverSwapAmount = amount
	plan.LeftoverSwapProceeds = proceeds
	plan.PairedTokenRecovered.Add(plan.PairedTokenRecovered, proceeds)
	return plan, nil
}

func sharesOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// proRata returns the outcome and paired token a share balance withdraws.
func proRata(pool model.PoolInfo, shares *big.Int) (*big.Int, *big.Int, error) {
	if shares.Sign() < 0 {
		return nil, nil, fmt.Errorf("%w: negative share balance", ErrInvalidAmount)
	}
	if shares.Sign() == 0 {
		return new(big.Int), new(big.Int), nil
	}
	if pool.TotalShares.Sign() == 0 {
		return nil, nil, fmt.Errorf("%w: pool %s has no shares outstanding", ErrInsufficientLiquidity, pool.Address)
	}
	if shares.Cmp(pool.TotalShares) > 0 {
		return nil, nil, fmt.Errorf("%w: balance %s exceeds supply %s", ErrInsufficientLiquidity, shares, pool.TotalShares)
	}
	return mulDiv(pool.ReserveA, shares, pool.TotalShares), mulDiv(pool.ReserveB, shares, pool.TotalShares), nil
}

package engine

import (
	"fmt"
	"math/big"

	"coverSwap/internal/model"
)

// ApplyFee returns amount less floor(amount*numerator/denominator). A nil fee
// leaves the amount unchanged.
func ApplyFee(amount *big.Int, fee *model.FeeRatio) (*big.Int, error) {
	if err := checkAmount("amount", amount); err != nil {
		return nil, err
	}
	if fee == nil {
		return new(big.Int).Set(amount), nil
	}
	if fee.Numerator == nil || fee.Denominator == nil {
		return nil, fmt.Errorf("%w: incomplete fee ratio", ErrInvalidAmount)
	}
	if fee.Denominator.Sign() == 0 {
		return nil, fmt.Errorf("%w: fee denominator", ErrDivisionByZero)
	}
	if fee.Numerator.Sign() < 0 || fee.Denominator.Sign() < 0 || fee.Numerator.Cmp(fee.Denominator) > 0 {
		return nil, fmt.Errorf("%w: fee %s/%s", ErrInvalidAmount, fee.Numerator, fee.Denominator)
	}
	cut := mulDiv(amount, fee.Numerator, fee.Denominator)
	return cut.Sub(amount, cut), nil
}

// PlanSwap moves a position from one coverage to another. The source leg is
// reconciled, the redeem fee is taken from the redeemed outcome amount that
// becomes the new mint budget, and the target mint is capped by the paired
// token recovered from the source pools.
func (e Engine) PlanSwap(source model.CoverageLeg, target model.PoolPair, fee *model.FeeRatio) (model.RedeemPlan, model.MintPlan, error) {
	redeem, err := e.Reconcile(source)
	if err != nil {
		return model.RedeemPlan{}, model.MintPlan{}, fmt.Errorf("reconcile source: %w", err)
	}

	budget, err := ApplyFee(redeem.SymmetricRedeemAmount, fee)
	if err != nil {
		return model.RedeemPlan{}, model.MintPlan{}, fmt.Errorf("redeem fee: %w", err)
	}

	mint, err := e.PlanMintCapped(target, budget, redeem.PairedTokenRecovered)
	if err != nil {
		return model.RedeemPlan{}, model.MintPlan{}, fmt.Errorf("plan target mint: %w", err)
	}
	return redeem, mint, nil
}

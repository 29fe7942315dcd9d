package bmath

import (
	"fmt"
	"math/big"
)

// SpotRatio returns reserveB/reserveA in fixed point. It is informational
// and does not include the weights or the swap fee.
func SpotRatio(reserveA, reserveB *big.Int) (*big.Int, error) {
	if reserveA == nil || reserveB == nil {
		return nil, fmt.Errorf("%w: nil reserve", ErrInvalidPoolParameters)
	}
	if reserveA.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	return bdiv(reserveB, reserveA)
}

// CalcOutGivenIn returns the amount of the out token a pool pays for
// amountIn of the in token:
//
//	out = reserveOut * (1 - (reserveIn / (reserveIn + amountIn*(1-fee)))^(weightIn/weightOut))
//
// The result never reaches reserveOut. Inputs too small to move the ratio
// past BNum rounding (a few wei against 18-decimal reserves) yield 0.
func CalcOutGivenIn(reserveIn, weightIn, reserveOut, weightOut, amountIn, fee *big.Int) (*big.Int, error) {
	for _, v := range []*big.Int{reserveIn, weightIn, reserveOut, weightOut, amountIn, fee} {
		if v == nil {
			return nil, fmt.Errorf("%w: nil operand", ErrInvalidPoolParameters)
		}
	}
	if weightIn.Sign() <= 0 || weightOut.Sign() <= 0 {
		return nil, fmt.Errorf("%w: weights must be positive", ErrInvalidPoolParameters)
	}
	if fee.Sign() < 0 || fee.Cmp(One) >= 0 {
		return nil, fmt.Errorf("%w: fee %s outside [0,1)", ErrInvalidPoolParameters, fee)
	}
	if amountIn.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative amount in", ErrInvalidPoolParameters)
	}
	if reserveIn.Sign() < 0 || reserveOut.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative reserve", ErrInvalidPoolParameters)
	}

	weightRatio, err := bdiv(weightIn, weightOut)
	if err != nil {
		return nil, err
	}
	adjustedIn := bmul(amountIn, new(big.Int).Sub(One, fee))
	denominator := new(big.Int).Add(reserveIn, adjustedIn)
	if denominator.Sign() <= 0 {
		return nil, fmt.Errorf("%w: empty pool after fee", ErrInvalidPoolParameters)
	}
	if reserveIn.Sign() == 0 {
		return nil, fmt.Errorf("%w: zero reserve in", ErrInvalidPoolParameters)
	}
	if amountIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return new(big.Int), nil
	}

	y, err := bdiv(reserveIn, denominator)
	if err != nil {
		return nil, err
	}
	foo, err := bpow(y, weightRatio)
	if err != nil {
		return nil, fmt.Errorf("pow: %w", err)
	}
	bar := new(big.Int).Sub(One, foo)
	if bar.Sign() < 0 {
		bar.SetInt64(0)
	}
	out := bmul(reserveOut, bar)
	if out.Cmp(reserveOut) >= 0 {
		out.Sub(reserveOut, big.NewInt(1))
	}
	return out, nil
}

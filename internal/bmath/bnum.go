// Package bmath implements the constant-weighted two-asset invariant on
// 18-decimal fixed point integers, matching the rounding of the on-chain
// Balancer BNum library so planned amounts agree with what a pool computes.
package bmath

import (
	"errors"
	"math/big"
)

var (
	// ErrInvalidPoolParameters is returned for non-positive weights, fees
	// outside [0,1) or degenerate reserves.
	ErrInvalidPoolParameters = errors.New("invalid pool parameters")
	// ErrDivisionByZero is returned when a zero reserve is used as a ratio denominator.
	ErrDivisionByZero = errors.New("division by zero")
)

// One is 1.0 in 18-decimal fixed point.
var One = mustBigInt("1000000000000000000")

var (
	halfOne      = new(big.Int).Rsh(One, 1)
	minPowBase   = big.NewInt(1)
	maxPowBase   = new(big.Int).Sub(new(big.Int).Lsh(One, 1), big.NewInt(1))
	powPrecision = new(big.Int).Div(One, big.NewInt(10_000_000_000))
)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// FromRat converts a rational into fixed point, rounding half up.
func FromRat(r *big.Rat) *big.Int {
	num := new(big.Int).Mul(r.Num(), One)
	den := r.Denom()
	num.Add(num, new(big.Int).Rsh(den, 1))
	return num.Quo(num, den)
}

func bmul(a, b *big.Int) *big.Int {
	c := new(big.Int).Mul(a, b)
	c.Add(c, halfOne)
	return c.Quo(c, One)
}

func bdiv(a, b *big.Int) (*big.Int, error) {
	if b.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	c := new(big.Int).Mul(a, One)
	c.Add(c, new(big.Int).Rsh(b, 1))
	return c.Quo(c, b), nil
}

// bsubSign returns |a-b| and whether a < b.
func bsubSign(a, b *big.Int) (*big.Int, bool) {
	if a.Cmp(b) >= 0 {
		return new(big.Int).Sub(a, b), false
	}
	return new(big.Int).Sub(b, a), true
}

func bfloor(a *big.Int) *big.Int {
	f := new(big.Int).Quo(a, One)
	return f.Mul(f, One)
}

// bpowi raises a to an integer power n by squaring.
func bpowi(a *big.Int, n uint64) *big.Int {
	base := new(big.Int).Set(a)
	z := new(big.Int).Set(One)
	if n%2 != 0 {
		z.Set(base)
	}
	for n /= 2; n != 0; n /= 2 {
		base = bmul(base, base)
		if n%2 != 0 {
			z = bmul(z, base)
		}
	}
	return z
}

// bpow computes base^exp for base in [1 wei, 2 - 1 wei].
func bpow(base, exp *big.Int) (*big.Int, error) {
	if base.Cmp(minPowBase) < 0 || base.Cmp(maxPowBase) > 0 {
		return nil, ErrInvalidPoolParameters
	}
	whole := bfloor(exp)
	remain := new(big.Int).Sub(exp, whole)

	n := new(big.Int).Quo(whole, One)
	if !n.IsUint64() {
		return nil, ErrInvalidPoolParameters
	}
	wholePow := bpowi(base, n.Uint64())
	if remain.Sign() == 0 {
		return wholePow, nil
	}
	partial := bpowApprox(base, remain, powPrecision)
	return bmul(wholePow, partial), nil
}

// bpowApprox evaluates the binomial series of base^exp for exp < 1.
func bpowApprox(base, exp, precision *big.Int) *big.Int {
	x, xneg := bsubSign(base, One)
	term := new(big.Int).Set(One)
	sum := new(big.Int).Set(term)
	negative := false

	for i := int64(1); term.Cmp(precision) >= 0; i++ {
		bigK := new(big.Int).Mul(big.NewInt(i), One)
		c, cneg := bsubSign(exp, new(big.Int).Sub(bigK, One))
		term = bmul(term, bmul(c, x))
		term, _ = bdiv(term, bigK)
		if term.Sign() == 0 {
			break
		}
		if xneg {
			negative = !negative
		}
		if cneg {
			negative = !negative
		}
		if negative {
			sum.Sub(sum, term)
		} else {
			sum.Add(sum, term)
		}
	}
	return sum
}

package model

import (
	"fmt"
	"math/big"
	"strings"
)

// PoolInfo is a snapshot of one weighted two-asset pool. A is the outcome
// token, B the paired token. Weights and fee are 18-decimal fixed point.
type PoolInfo struct {
	Address     string   `json:"address"`
	ReserveA    *big.Int `json:"reserve_a"`
	ReserveB    *big.Int `json:"reserve_b"`
	WeightA     *big.Int `json:"weight_a"`
	WeightB     *big.Int `json:"weight_b"`
	SwapFee     *big.Int `json:"swap_fee"`
	TotalShares *big.Int `json:"total_shares"`
	BlockNumber uint64   `json:"block_number"`
}

// Validate checks the structural invariants of a snapshot.
func (p PoolInfo) Validate() error {
	fields := []struct {
		name  string
		value *big.Int
	}{
		{"reserve_a", p.ReserveA},
		{"reserve_b", p.ReserveB},
		{"weight_a", p.WeightA},
		{"weight_b", p.WeightB},
		{"swap_fee", p.SwapFee},
		{"total_shares", p.TotalShares},
	}
	for _, f := range fields {
		if f.value == nil {
			return fmt.Errorf("%s is nil", f.name)
		}
		if f.value.Sign() < 0 {
			return fmt.Errorf("%s is negative: %s", f.name, f.value)
		}
	}
	if p.WeightA.Sign() == 0 || p.WeightB.Sign() == 0 {
		return fmt.Errorf("weights must be positive")
	}
	if (p.ReserveA.Sign() > 0 || p.ReserveB.Sign() > 0) && p.TotalShares.Sign() == 0 {
		return fmt.Errorf("pool holds reserves but has no shares")
	}
	return nil
}

// PoolPair holds the claim and no-claim pools of one coverage.
type PoolPair struct {
	Claim   PoolInfo `json:"claim"`
	Noclaim PoolInfo `json:"noclaim"`
}

// CoverageLeg is a pool pair plus the caller's share balance in each pool.
type CoverageLeg struct {
	Pools         PoolPair `json:"pools"`
	ClaimShares   *big.Int `json:"claim_shares"`
	NoclaimShares *big.Int `json:"noclaim_shares"`
}

// FeeRatio is the protocol redeem fee as numerator/denominator.
type FeeRatio struct {
	Numerator   *big.Int `json:"numerator"`
	Denominator *big.Int `json:"denominator"`
}

func sameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

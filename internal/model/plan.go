package model

import "math/big"

// Side names one of the two pools of a coverage.
type Side string

const (
	SideNone    Side = ""
	SideClaim   Side = "claim"
	SideNoclaim Side = "noclaim"
)

// RedeemPlan is the result of reconciling a coverage leg.
type RedeemPlan struct {
	ClaimRedeemable       *big.Int `json:"claim_redeemable"`
	NoclaimRedeemable     *big.Int `json:"noclaim_redeemable"`
	SymmetricRedeemAmount *big.Int `json:"symmetric_redeem_amount"`
	PairedTokenRecovered  *big.Int `json:"paired_token_recovered"`
	LeftoverSide          Side     `json:"leftover_side,omitempty"`
	LeftoverSwapAmount    *big.Int `json:"leftover_swap_amount"`
	LeftoverSwapProceeds  *big.Int `json:"leftover_swap_proceeds"`
	ClaimSharesBurned     *big.Int `json:"claim_shares_burned"`
	NoclaimSharesBurned   *big.Int `json:"noclaim_shares_burned"`
}

// MintPlan is the result of the mint planner.
type MintPlan struct {
	MintAmount          *big.Int `json:"mint_amount"`
	ClaimPairedAmount   *big.Int `json:"claim_paired_amount"`
	NoclaimPairedAmount *big.Int `json:"noclaim_paired_amount"`
	Capped              bool     `json:"capped"`
}

// TotalPaired returns the paired token required by both pools.
func (m MintPlan) TotalPaired() *big.Int {
	total := new(big.Int)
	if m.ClaimPairedAmount != nil {
		total.Add(total, m.ClaimPairedAmount)
	}
	if m.NoclaimPairedAmount != nil {
		total.Add(total, m.NoclaimPairedAmount)
	}
	return total
}

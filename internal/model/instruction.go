package model

import "math/big"

// Action names a plan kind.
type Action string

const (
	ActionMint     Action = "mint"
	ActionSwap     Action = "swap"
	ActionRedeem   Action = "redeem"
	ActionPosition Action = "position"
)

// MintInstruction mints coverage and provides liquidity to both pools.
type MintInstruction struct {
	Coverage            Coverage `json:"coverage"`
	MintAmount          *big.Int `json:"mint_amount"`
	ClaimPairedAmount   *big.Int `json:"claim_paired_amount"`
	NoclaimPairedAmount *big.Int `json:"noclaim_paired_amount"`
}

// SwapInstruction exits the source coverage and mints into the target.
type SwapInstruction struct {
	Source                    Coverage `json:"source"`
	ClaimShareAmount          *big.Int `json:"claim_share_amount"`
	NoclaimShareAmount        *big.Int `json:"noclaim_share_amount"`
	Target                    Coverage `json:"target"`
	TargetClaimPairedAmount   *big.Int `json:"target_claim_paired_amount"`
	TargetNoclaimPairedAmount *big.Int `json:"target_noclaim_paired_amount"`
	TargetMintAmount          *big.Int `json:"target_mint_amount"`
}

// RedeemInstruction exits both pools and redeems the outcome tokens.
type RedeemInstruction struct {
	Coverage           Coverage `json:"coverage"`
	ClaimShareAmount   *big.Int `json:"claim_share_amount"`
	NoclaimShareAmount *big.Int `json:"noclaim_share_amount"`
}

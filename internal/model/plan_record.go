package model

// PlanRecord is the persisted form of a computed plan.
type PlanRecord struct {
	ID          string      `json:"id"`
	ChainID     uint64      `json:"chain_id"`
	BlockNumber uint64      `json:"block_number"`
	Action      Action      `json:"action"`
	Holder      string      `json:"holder,omitempty"`
	Source      string      `json:"source"`
	Target      string      `json:"target,omitempty"`
	Pools       []PoolInfo  `json:"pools"`
	Redeem      *RedeemPlan `json:"redeem,omitempty"`
	Mint        *MintPlan   `json:"mint,omitempty"`
	Instruction interface{} `json:"instruction,omitempty"`
	Calldata    string      `json:"calldata,omitempty"`
	CreatedAt   string      `json:"created_at"`
}

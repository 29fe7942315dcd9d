package model

// Coverage identifies one coverage instrument and the settlement token its
// outcome-token pools trade against.
type Coverage struct {
	Name           string `json:"name"`
	ProtocolAddr   string `json:"protocol"`
	CoverAddr      string `json:"cover"`
	CollateralAddr string `json:"collateral"`
	ClaimToken     string `json:"claim_token"`
	NoclaimToken   string `json:"noclaim_token"`
	Expiration     uint64 `json:"expiration"`
	PairedToken    string `json:"paired_token"`
	ClaimPool      string `json:"claim_pool"`
	NoclaimPool    string `json:"noclaim_pool"`
}

// CollateralIsPaired reports whether minting consumes the same token the
// pools are paired against.
func (c Coverage) CollateralIsPaired() bool {
	return c.CollateralAddr != "" && sameAddress(c.CollateralAddr, c.PairedToken)
}

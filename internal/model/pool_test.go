package model

import (
	"encoding/json"
	"math/big"
	"strings"
	"testing"
)

func validPool() PoolInfo {
	half := new(big.Int).Exp(big.NewInt(10), big.NewInt(17), nil)
	half.Mul(half, big.NewInt(5))
	return PoolInfo{
		Address:     "0x1111111111111111111111111111111111111111",
		ReserveA:    big.NewInt(1000),
		ReserveB:    big.NewInt(2000),
		WeightA:     half,
		WeightB:     new(big.Int).Set(half),
		SwapFee:     big.NewInt(0),
		TotalShares: big.NewInt(100),
		BlockNumber: 42,
	}
}

func TestPoolInfoValidate(t *testing.T) {
	if err := validPool().Validate(); err != nil {
		t.Fatalf("valid pool rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(p *PoolInfo)
		want   string
	}{
		{"nil reserve", func(p *PoolInfo) { p.ReserveA = nil }, "reserve_a is nil"},
		{"negative reserve", func(p *PoolInfo) { p.ReserveB = big.NewInt(-1) }, "reserve_b is negative"},
		{"zero weight", func(p *PoolInfo) { p.WeightB = big.NewInt(0) }, "weights must be positive"},
		{"unbacked reserves", func(p *PoolInfo) { p.TotalShares = big.NewInt(0) }, "no shares"},
	}
	for _, tc := range cases {
		p := validPool()
		tc.mutate(&p)
		err := p.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: got %v want %q", tc.name, err, tc.want)
		}
	}

	empty := validPool()
	empty.ReserveA = big.NewInt(0)
	empty.ReserveB = big.NewInt(0)
	empty.TotalShares = big.NewInt(0)
	if err := empty.Validate(); err != nil {
		t.Fatalf("empty pool rejected: %v", err)
	}
}

func TestCoverageCollateralIsPaired(t *testing.T) {
	c := Coverage{
		CollateralAddr: "0x6B175474E89094C44Da98b954EedeAC495271d0F",
		PairedToken:    "0x6b175474e89094c44da98b954eedeac495271d0f",
	}
	if !c.CollateralIsPaired() {
		t.Fatalf("expected case-insensitive match")
	}
	c.PairedToken = "0x0000000000000000000000000000000000000001"
	if c.CollateralIsPaired() {
		t.Fatalf("different tokens reported as paired")
	}
	c.CollateralAddr = ""
	c.PairedToken = ""
	if c.CollateralIsPaired() {
		t.Fatalf("unresolved collateral reported as paired")
	}
}

func TestMintPlanTotalPaired(t *testing.T) {
	plan := MintPlan{ClaimPairedAmount: big.NewInt(7), NoclaimPairedAmount: big.NewInt(5)}
	if plan.TotalPaired().Cmp(big.NewInt(12)) != 0 {
		t.Fatalf("total paired: got %s", plan.TotalPaired())
	}
	if (MintPlan{}).TotalPaired().Sign() != 0 {
		t.Fatalf("empty plan should total zero")
	}
}

func TestPlanRecordJSONFields(t *testing.T) {
	record := PlanRecord{
		ID:          "abc",
		ChainID:     1,
		BlockNumber: 12000000,
		Action:      ActionRedeem,
		Source:      "compound",
		Redeem: &RedeemPlan{
			SymmetricRedeemAmount: big.NewInt(50),
			LeftoverSide:          SideNoclaim,
		},
		CreatedAt: "2024-01-01T00:00:00Z",
	}
	b, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	text := string(b)
	for _, want := range []string{`"action":"redeem"`, `"symmetric_redeem_amount":50`, `"leftover_side":"noclaim"`} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %s in %s", want, text)
		}
	}
	if strings.Contains(text, `"mint"`) {
		t.Fatalf("nil mint plan should be omitted: %s", text)
	}
}

package engine

import (
	"errors"
	"math/big"
	"testing"

	"coverSwap/internal/bmath"
	"coverSwap/internal/model"
)

func tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), bmath.One)
}

// milli returns n/1000 of a token.
func milli(n int64) *big.Int {
	v := new(big.Int).Mul(big.NewInt(n), bmath.One)
	return v.Quo(v, big.NewInt(1000))
}

func halfWeight() *big.Int {
	return new(big.Int).Quo(bmath.One, big.NewInt(2))
}

func pool(addr string, reserveA, reserveB, shares *big.Int) model.PoolInfo {
	return model.PoolInfo{
		Address:     addr,
		ReserveA:    reserveA,
		ReserveB:    reserveB,
		WeightA:     halfWeight(),
		WeightB:     halfWeight(),
		SwapFee:     milli(20),
		TotalShares: shares,
		BlockNumber: 100,
	}
}

func standardPair() model.PoolPair {
	return model.PoolPair{
		Claim:   pool("0xclaim", tokens(1000), tokens(2000), tokens(100)),
		Noclaim: pool("0xnoclaim", tokens(1000), tokens(2000), tokens(100)),
	}
}

func expectEqual(t *testing.T, name string, got, want *big.Int) {
	t.Helper()
	if got == nil || got.Cmp(want) != 0 {
		t.Fatalf("%s: got %v want %s", name, got, want)
	}
}

func TestPlanMintFromCollateral(t *testing.T) {
	plan, err := Engine{}.PlanMintFromCollateral(standardPair(), tokens(300))
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	expectEqual(t, "mint", plan.MintAmount, tokens(60))
	expectEqual(t, "claim paired", plan.ClaimPairedAmount, tokens(120))
	expectEqual(t, "noclaim paired", plan.NoclaimPairedAmount, tokens(120))
	if plan.Capped {
		t.Fatalf("capacity mint should not be capped")
	}
	spent := new(big.Int).Add(plan.MintAmount, plan.TotalPaired())
	if spent.Cmp(tokens(300)) > 0 {
		t.Fatalf("plan spends %s of 300 tokens", spent)
	}
}

func TestPlanMintFromCollateralCustomUnitCost(t *testing.T) {
	eng := New(Params{MintCollateralPerUnit: new(big.Int).Mul(bmath.One, big.NewInt(2))})
	plan, err := eng.PlanMintFromCollateral(standardPair(), tokens(300))
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	expectEqual(t, "mint", plan.MintAmount, tokens(50))
}

func TestPlanMintExact(t *testing.T) {
	pair := standardPair()
	pair.Noclaim = pool("0xnoclaim", tokens(500), tokens(250), tokens(10))

	plan, err := Engine{}.PlanMintExact(pair, tokens(10))
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	expectEqual(t, "mint", plan.MintAmount, tokens(10))
	expectEqual(t, "claim paired", plan.ClaimPairedAmount, tokens(20))
	expectEqual(t, "noclaim paired", plan.NoclaimPairedAmount, tokens(5))
}

func TestPlanMintCappedHalves(t *testing.T) {
	pair := standardPair()
	full, err := Engine{}.PlanMintCapped(pair, tokens(60), tokens(240))
	if err != nil {
		t.Fatalf("full plan: %v", err)
	}
	if full.Capped {
		t.Fatalf("exact availability should not cap")
	}
	expectEqual(t, "full mint", full.MintAmount, tokens(60))

	half, err := Engine{}.PlanMintCapped(pair, tokens(60), tokens(120))
	if err != nil {
		t.Fatalf("half plan: %v", err)
	}
	if !half.Capped {
		t.Fatalf("expected capped plan")
	}
	expectEqual(t, "half mint", half.MintAmount, tokens(30))
	expectEqual(t, "half claim paired", half.ClaimPairedAmount, tokens(60))
	expectEqual(t, "half noclaim paired", half.NoclaimPairedAmount, tokens(60))
}

func TestPlanMintCappedNeverExceedsAvailable(t *testing.T) {
	pairs := []model.PoolPair{
		standardPair(),
		{
			Claim:   pool("0xa", big.NewInt(7), big.NewInt(13), big.NewInt(3)),
			Noclaim: pool("0xb", big.NewInt(11), big.NewInt(5), big.NewInt(3)),
		},
		{
			Claim:   pool("0xa", tokens(333), milli(777_777), tokens(10)),
			Noclaim: pool("0xb", milli(12_345), tokens(99_999), tokens(10)),
		},
	}
	availables := []*big.Int{
		big.NewInt(0), big.NewInt(1), big.NewInt(17), milli(1), tokens(3), tokens(101), tokens(5000),
	}
	requested := tokens(1000)
	for i, pair := range pairs {
		for _, available := range availables {
			plan, err := Engine{}.PlanMintCapped(pair, requested, available)
			if err != nil {
				t.Fatalf("pair %d available %s: %v", i, available, err)
			}
			if plan.TotalPaired().Cmp(available) > 0 {
				t.Fatalf("pair %d: plan spends %s of %s", i, plan.TotalPaired(), available)
			}
			if plan.MintAmount.Cmp(requested) > 0 {
				t.Fatalf("pair %d: mint %s exceeds request", i, plan.MintAmount)
			}
		}
	}
}

func TestPlanMintZeroOutcomeReserve(t *testing.T) {
	pair := standardPair()
	pair.Claim = pool("0xclaim", big.NewInt(0), big.NewInt(0), big.NewInt(0))

	if _, err := (Engine{}).PlanMintFromCollateral(pair, tokens(1)); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("collateral mint: expected ErrDivisionByZero, got %v", err)
	}
	if _, err := (Engine{}).PlanMintCapped(pair, tokens(1), tokens(1)); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("capped mint: expected ErrDivisionByZero, got %v", err)
	}
	if _, err := (Engine{}).PlanMintExact(pair, tokens(1)); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("exact mint: expected ErrDivisionByZero, got %v", err)
	}
}

func TestPlanMintRejectsBadInput(t *testing.T) {
	if _, err := (Engine{}).PlanMintFromCollateral(standardPair(), big.NewInt(-1)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	pair := standardPair()
	pair.Noclaim.WeightB = big.NewInt(0)
	if _, err := (Engine{}).PlanMintExact(pair, tokens(1)); !errors.Is(err, ErrInvalidPoolParameters) {
		t.Fatalf("expected ErrInvalidPoolParameters, got %v", err)
	}
}

func unevenLeg() model.CoverageLeg {
	return model.CoverageLeg{
		Pools: model.PoolPair{
			Claim:   pool("0xclaim", tokens(500), tokens(1000), tokens(100)),
			Noclaim: pool("0xnoclaim", tokens(530), tokens(1000), tokens(100)),
		},
		ClaimShares:   tokens(10),
		NoclaimShares: tokens(10),
	}
}

func TestReconcileSwapsSurplus(t *testing.T) {
	plan, err := Engine{}.Reconcile(unevenLeg())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	expectEqual(t, "claim redeemable", plan.ClaimRedeemable, tokens(50))
	expectEqual(t, "noclaim redeemable", plan.NoclaimRedeemable, tokens(53))
	expectEqual(t, "symmetric", plan.SymmetricRedeemAmount, tokens(50))
	if plan.LeftoverSide != model.SideNoclaim {
		t.Fatalf("leftover side: got %q", plan.LeftoverSide)
	}
	expectEqual(t, "leftover amount", plan.LeftoverSwapAmount, tokens(2))

	want, err := bmath.CalcOutGivenIn(tokens(530), halfWeight(), tokens(1000), halfWeight(), tokens(2), milli(20))
	if err != nil {
		t.Fatalf("calc: %v", err)
	}
	if want.Sign() <= 0 {
		t.Fatalf("expected positive proceeds")
	}
	expectEqual(t, "proceeds", plan.LeftoverSwapProceeds, want)

	recovered := new(big.Int).Add(tokens(200), want)
	expectEqual(t, "recovered", plan.PairedTokenRecovered, recovered)
	expectEqual(t, "claim burned", plan.ClaimSharesBurned, tokens(10))
	expectEqual(t, "noclaim burned", plan.NoclaimSharesBurned, tokens(10))
}

func TestReconcileSwapsClaimSurplus(t *testing.T) {
	leg := unevenLeg()
	leg.Pools.Claim, leg.Pools.Noclaim = leg.Pools.Noclaim, leg.Pools.Claim

	plan, err := Engine{}.Reconcile(leg)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	expectEqual(t, "claim redeemable", plan.ClaimRedeemable, tokens(53))
	expectEqual(t, "symmetric", plan.SymmetricRedeemAmount, tokens(50))
	if plan.LeftoverSide != model.SideClaim {
		t.Fatalf("leftover side: got %q", plan.LeftoverSide)
	}
	expectEqual(t, "leftover amount", plan.LeftoverSwapAmount, tokens(2))

	want, err := bmath.CalcOutGivenIn(tokens(530), halfWeight(), tokens(1000), halfWeight(), tokens(2), milli(20))
	if err != nil {
		t.Fatalf("calc: %v", err)
	}
	expectEqual(t, "proceeds", plan.LeftoverSwapProceeds, want)
	expectEqual(t, "recovered", plan.PairedTokenRecovered, new(big.Int).Add(tokens(200), want))
}

func TestReconcileFullExitStillPricesLeftover(t *testing.T) {
	leg := model.CoverageLeg{
		Pools: model.PoolPair{
			Claim:   pool("0xclaim", tokens(50), tokens(100), tokens(100)),
			Noclaim: pool("0xnoclaim", tokens(53), tokens(106), tokens(100)),
		},
		ClaimShares:   tokens(100),
		NoclaimShares: tokens(100),
	}

	plan, err := Engine{}.Reconcile(leg)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if plan.LeftoverSide != model.SideNoclaim {
		t.Fatalf("leftover side: got %q", plan.LeftoverSide)
	}
	expectEqual(t, "leftover amount", plan.LeftoverSwapAmount, tokens(2))
	if plan.LeftoverSwapProceeds.Sign() <= 0 {
		t.Fatalf("leftover swap earned nothing")
	}
	expectEqual(t, "recovered", plan.PairedTokenRecovered, new(big.Int).Add(tokens(206), plan.LeftoverSwapProceeds))
}

func TestReconcileWithinTolerance(t *testing.T) {
	leg := unevenLeg()
	leg.Pools.Noclaim.ReserveA = milli(505_000)

	plan, err := Engine{}.Reconcile(leg)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	expectEqual(t, "noclaim redeemable", plan.NoclaimRedeemable, milli(50_500))
	if plan.LeftoverSide != model.SideNone {
		t.Fatalf("unexpected leftover side %q", plan.LeftoverSide)
	}
	expectEqual(t, "leftover amount", plan.LeftoverSwapAmount, big.NewInt(0))
	expectEqual(t, "recovered", plan.PairedTokenRecovered, tokens(200))
}

func TestReconcileCustomTolerance(t *testing.T) {
	eng := New(Params{RedeemTolerance: tokens(5)})
	plan, err := eng.Reconcile(unevenLeg())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if plan.LeftoverSwapAmount.Sign() != 0 {
		t.Fatalf("surplus of 3 within tolerance 5 should not swap, got %s", plan.LeftoverSwapAmount)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	leg := unevenLeg()
	first, err := Engine{}.Reconcile(leg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := Engine{}.Reconcile(leg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	expectEqual(t, "symmetric", second.SymmetricRedeemAmount, first.SymmetricRedeemAmount)
	expectEqual(t, "recovered", second.PairedTokenRecovered, first.PairedTokenRecovered)
	expectEqual(t, "proceeds", second.LeftoverSwapProceeds, first.LeftoverSwapProceeds)
	if leg.Pools.Noclaim.ReserveA.Cmp(tokens(530)) != 0 {
		t.Fatalf("reconcile mutated its input")
	}
}

func TestReconcileEmptyPosition(t *testing.T) {
	leg := model.CoverageLeg{Pools: standardPair()}
	plan, err := Engine{}.Reconcile(leg)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	expectEqual(t, "symmetric", plan.SymmetricRedeemAmount, big.NewInt(0))
	expectEqual(t, "recovered", plan.PairedTokenRecovered, big.NewInt(0))
}

func TestReconcileInsufficientLiquidity(t *testing.T) {
	leg := unevenLeg()
	leg.ClaimShares = tokens(101)
	if _, err := (Engine{}).Reconcile(leg); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("oversized balance: expected ErrInsufficientLiquidity, got %v", err)
	}

	leg = unevenLeg()
	leg.Pools.Claim = pool("0xclaim", big.NewInt(0), big.NewInt(0), big.NewInt(0))
	if _, err := (Engine{}).Reconcile(leg); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("empty pool: expected ErrInsufficientLiquidity, got %v", err)
	}
}

func TestMintThenReconcileRoundTrip(t *testing.T) {
	pair := standardPair()
	mint, err := Engine{}.PlanMintExact(pair, tokens(60))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	join := func(p model.PoolInfo, paired *big.Int) (model.PoolInfo, *big.Int) {
		issued := mulDiv(p.TotalShares, mint.MintAmount, p.ReserveA)
		return model.PoolInfo{
			Address:     p.Address,
			ReserveA:    new(big.Int).Add(p.ReserveA, mint.MintAmount),
			ReserveB:    new(big.Int).Add(p.ReserveB, paired),
			WeightA:     p.WeightA,
			WeightB:     p.WeightB,
			SwapFee:     p.SwapFee,
			TotalShares: new(big.Int).Add(p.TotalShares, issued),
		}, issued
	}
	claimPool, claimShares := join(pair.Claim, mint.ClaimPairedAmount)
	noclaimPool, noclaimShares := join(pair.Noclaim, mint.NoclaimPairedAmount)

	plan, err := Engine{}.Reconcile(model.CoverageLeg{
		Pools:         model.PoolPair{Claim: claimPool, Noclaim: noclaimPool},
		ClaimShares:   claimShares,
		NoclaimShares: noclaimShares,
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	expectEqual(t, "symmetric", plan.SymmetricRedeemAmount, mint.MintAmount)
	expectEqual(t, "recovered", plan.PairedTokenRecovered, mint.TotalPaired())
	if plan.LeftoverSide != model.SideNone {
		t.Fatalf("unexpected leftover swap on %q", plan.LeftoverSide)
	}
}

func TestApplyFee(t *testing.T) {
	got, err := ApplyFee(tokens(60), nil)
	if err != nil {
		t.Fatalf("nil fee: %v", err)
	}
	expectEqual(t, "nil fee", got, tokens(60))

	got, err = ApplyFee(tokens(60), &model.FeeRatio{Numerator: big.NewInt(1), Denominator: big.NewInt(100)})
	if err != nil {
		t.Fatalf("fee: %v", err)
	}
	expectEqual(t, "fee", got, milli(59_400))

	got, err = ApplyFee(big.NewInt(99), &model.FeeRatio{Numerator: big.NewInt(1), Denominator: big.NewInt(100)})
	if err != nil {
		t.Fatalf("small fee: %v", err)
	}
	expectEqual(t, "floored fee", got, big.NewInt(99))

	_, err = ApplyFee(tokens(1), &model.FeeRatio{Numerator: big.NewInt(1), Denominator: big.NewInt(0)})
	if !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
	_, err = ApplyFee(tokens(1), &model.FeeRatio{Numerator: big.NewInt(2), Denominator: big.NewInt(1)})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func balancedLeg() model.CoverageLeg {
	return model.CoverageLeg{
		Pools:         standardPair(),
		ClaimShares:   tokens(3),
		NoclaimShares: tokens(3),
	}
}

func TestPlanSwap(t *testing.T) {
	fee := &model.FeeRatio{Numerator: big.NewInt(1), Denominator: big.NewInt(100)}
	redeem, mint, err := Engine{}.PlanSwap(balancedLeg(), standardPair(), fee)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	expectEqual(t, "symmetric", redeem.SymmetricRedeemAmount, tokens(30))
	expectEqual(t, "recovered", redeem.PairedTokenRecovered, tokens(120))
	expectEqual(t, "mint", mint.MintAmount, milli(29_700))
	expectEqual(t, "claim paired", mint.ClaimPairedAmount, milli(59_400))
	if mint.Capped {
		t.Fatalf("swap into identical pools should not cap")
	}
	if mint.TotalPaired().Cmp(redeem.PairedTokenRecovered) > 0 {
		t.Fatalf("target mint spends %s of %s", mint.TotalPaired(), redeem.PairedTokenRecovered)
	}
}

func TestPlanSwapCapsToRecoveredPaired(t *testing.T) {
	target := model.PoolPair{
		Claim:   pool("0xc2", tokens(1000), tokens(4000), tokens(100)),
		Noclaim: pool("0xn2", tokens(1000), tokens(4000), tokens(100)),
	}
	redeem, mint, err := Engine{}.PlanSwap(balancedLeg(), target, nil)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	expectEqual(t, "recovered", redeem.PairedTokenRecovered, tokens(120))
	if !mint.Capped {
		t.Fatalf("expected capped target mint")
	}
	expectEqual(t, "mint", mint.MintAmount, tokens(15))
	expectEqual(t, "total paired", mint.TotalPaired(), tokens(120))
}

func TestPlanSwapPropagatesSourceErrors(t *testing.T) {
	leg := balancedLeg()
	leg.NoclaimShares = tokens(1000)
	_, _, err := Engine{}.PlanSwap(leg, standardPair(), nil)
	if !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
}

func TestNewFillsDefaults(t *testing.T) {
	params := New(Params{}).Params()
	expectEqual(t, "tolerance", params.RedeemTolerance, bmath.One)
	expectEqual(t, "unit cost", params.MintCollateralPerUnit, bmath.One)
}

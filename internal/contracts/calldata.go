package contracts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"coverSwap/internal/model"
)

// Options are the executor flags appended to mint and swap calls.
type Options struct {
	AddBuffer        bool
	ProvideLiquidity bool
}

// DefaultOptions matches how the executor is normally driven.
func DefaultOptions() Options {
	return Options{AddBuffer: true, ProvideLiquidity: true}
}

// Pack encodes a mint, swap or redeem instruction as CoverSwap calldata.
func Pack(instruction interface{}, opts Options) ([]byte, error) {
	switch inst := instruction.(type) {
	case model.MintInstruction:
		return PackMint(inst, opts)
	case *model.MintInstruction:
		return PackMint(*inst, opts)
	case model.SwapInstruction:
		return PackSwap(inst, opts)
	case *model.SwapInstruction:
		return PackSwap(*inst, opts)
	case model.RedeemInstruction:
		return PackRedeem(inst)
	case *model.RedeemInstruction:
		return PackRedeem(*inst)
	default:
		return nil, fmt.Errorf("unsupported instruction type %T", instruction)
	}
}

// PackMint encodes addCoverAndAddLiquidity.
func PackMint(inst model.MintInstruction, opts Options) ([]byte, error) {
	parsed, err := CoverSwapABI()
	if err != nil {
		return nil, fmt.Errorf("parse coverswap abi: %w", err)
	}
	cov := inst.Coverage
	addrs, err := addresses(map[string]string{
		"protocol":     cov.ProtocolAddr,
		"collateral":   cov.CollateralAddr,
		"paired token": cov.PairedToken,
	})
	if err != nil {
		return nil, err
	}
	amounts, err := uints(inst.MintAmount, inst.ClaimPairedAmount, inst.NoclaimPairedAmount)
	if err != nil {
		return nil, err
	}
	return parsed.Pack("addCoverAndAddLiquidity",
		addrs["protocol"],
		addrs["collateral"],
		new(big.Int).SetUint64(cov.Expiration),
		amounts[0],
		addrs["paired token"],
		amounts[1],
		amounts[2],
		opts.AddBuffer,
		opts.ProvideLiquidity,
	)
}

// PackSwap encodes swapCoverage.
func PackSwap(inst model.SwapInstruction, opts Options) ([]byte, error) {
	parsed, err := CoverSwapABI()
	if err != nil {
		return nil, fmt.Errorf("parse coverswap abi: %w", err)
	}
	addrs, err := addresses(map[string]string{
		"source cover":        inst.Source.CoverAddr,
		"source paired token": inst.Source.PairedToken,
		"target protocol":     inst.Target.ProtocolAddr,
		"target collateral":   inst.Target.CollateralAddr,
		"target paired token": inst.Target.PairedToken,
	})
	if err != nil {
		return nil, err
	}
	amounts, err := uints(
		inst.ClaimShareAmount,
		inst.NoclaimShareAmount,
		inst.TargetClaimPairedAmount,
		inst.TargetNoclaimPairedAmount,
		inst.TargetMintAmount,
	)
	if err != nil {
		return nil, err
	}
	return parsed.Pack("swapCoverage",
		addrs["source cover"],
		addrs["source paired token"],
		amounts[0],
		amounts[1],
		addrs["target protocol"],
		addrs["target collateral"],
		new(big.Int).SetUint64(inst.Target.Expiration),
		addrs["target paired token"],
		amounts[2],
		amounts[3],
		amounts[4],
		opts.AddBuffer,
	)
}

// PackRedeem encodes removeAndRedeem.
func PackRedeem(inst model.RedeemInstruction) ([]byte, error) {
	parsed, err := CoverSwapABI()
	if err != nil {
		return nil, fmt.Errorf("parse coverswap abi: %w", err)
	}
	addrs, err := addresses(map[string]string{
		"cover":        inst.Coverage.CoverAddr,
		"paired token": inst.Coverage.PairedToken,
	})
	if err != nil {
		return nil, err
	}
	amounts, err := uints(inst.ClaimShareAmount, inst.NoclaimShareAmount)
	if err != nil {
		return nil, err
	}
	return parsed.Pack("removeAndRedeem", addrs["cover"], addrs["paired token"], amounts[0], amounts[1])
}

func addresses(named map[string]string) (map[string]common.Address, error) {
	out := make(map[string]common.Address, len(named))
	for name, value := range named {
		if !common.IsHexAddress(value) {
			return nil, fmt.Errorf("invalid %s address %q", name, value)
		}
		out[name] = common.HexToAddress(value)
	}
	return out, nil
}

func uints(values ...*big.Int) ([]*big.Int, error) {
	out := make([]*big.Int, len(values))
	for i, v := range values {
		if v == nil {
			out[i] = new(big.Int)
			continue
		}
		if v.Sign() < 0 {
			return nil, fmt.Errorf("negative amount %s", v)
		}
		out[i] = v
	}
	return out, nil
}

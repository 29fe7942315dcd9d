// Package poolstate reads coverage and Balancer pool state from chain. All
// reads for one plan go through a Snapshot pinned to a single block.
package poolstate

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"coverSwap/internal/contracts"
	"coverSwap/internal/engine"
	"coverSwap/internal/model"
)

// Caller is the subset of the chain client used by ChainReader.
type Caller interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Reader opens block-pinned snapshots.
type Reader interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Snapshot reads state at one block.
type Snapshot interface {
	BlockNumber() uint64
	BlockTime(ctx context.Context) (uint64, error)
	Coverage(ctx context.Context, cfg model.Coverage) (model.Coverage, error)
	PoolInfo(ctx context.Context, pool, assetA, assetB string) (model.PoolInfo, error)
	ShareBalance(ctx context.Context, pool, holder string) (*big.Int, error)
	RedeemFeeRatio(ctx context.Context, factory string) (model.FeeRatio, error)
	PoolForPair(ctx context.Context, router, token, paired string) (string, error)
	TokenDecimals(ctx context.Context, token string) (uint8, error)
}

// ErrCallRejected marks a call that reverted or returned data that does not
// decode against the expected ABI. It is not retried.
var ErrCallRejected = errors.New("contract call rejected")

// ErrTransport marks a read that failed in the RPC layer rather than in the
// contract. It is the only read failure worth retrying.
var ErrTransport = errors.New("chain transport")

// ChainReader implements Reader over JSON-RPC.
type ChainReader struct {
	client Caller
	tokens *TokenCache
	logger *zap.Logger
}

// NewChainReader builds a reader. A nil token cache gets a fresh one.
func NewChainReader(client Caller, tokens *TokenCache, logger *zap.Logger) *ChainReader {
	if tokens == nil {
		tokens = NewTokenCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChainReader{client: client, tokens: tokens, logger: logger}
}

// Snapshot pins the latest block.
func (r *ChainReader) Snapshot(ctx context.Context) (Snapshot, error) {
	if r.client == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	number, err := r.client.LatestBlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest block: %w: %w", ErrTransport, err)
	}
	return r.SnapshotAt(number), nil
}

// SnapshotAt pins an explicit block.
func (r *ChainReader) SnapshotAt(number uint64) Snapshot {
	r.logger.Debug("snapshot pinned", zap.Uint64("block", number))
	return &chainSnapshot{reader: r, number: number, block: new(big.Int).SetUint64(number)}
}

type chainSnapshot struct {
	reader *ChainReader
	number uint64
	block  *big.Int
}

func (s *chainSnapshot) BlockNumber() uint64 { return s.number }

func (s *chainSnapshot) BlockTime(ctx context.Context) (uint64, error) {
	ts, err := s.reader.client.BlockTimestamp(ctx, s.number)
	if err != nil {
		return 0, fmt.Errorf("block %d timestamp: %w: %w", s.number, ErrTransport, err)
	}
	return ts, nil
}

func (s *chainSnapshot) call(ctx context.Context, parsed abi.ABI, target string, method string, args ...interface{}) ([]interface{}, error) {
	if !common.IsHexAddress(target) {
		return nil, fmt.Errorf("invalid address %q", target)
	}
	to := common.HexToAddress(target)
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	resp, err := s.reader.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, s.block)
	if err != nil {
		if isRevert(err) {
			return nil, fmt.Errorf("%w: %s on %s: %v", ErrCallRejected, method, to.Hex(), err)
		}
		return nil, fmt.Errorf("call %s on %s: %w: %w", method, to.Hex(), ErrTransport, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil || len(values) == 0 {
		return nil, fmt.Errorf("%w: %s on %s", ErrCallRejected, method, to.Hex())
	}
	return values, nil
}

func (s *chainSnapshot) callAddress(ctx context.Context, parsed abi.ABI, target, method string, args ...interface{}) (common.Address, error) {
	values, err := s.call(ctx, parsed, target, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	addr, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %s: %v", ErrCallRejected, method, err)
	}
	return addr, nil
}

func (s *chainSnapshot) callBig(ctx context.Context, parsed abi.ABI, target, method string, args ...interface{}) (*big.Int, error) {
	values, err := s.call(ctx, parsed, target, method, args...)
	if err != nil {
		return nil, err
	}
	v, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCallRejected, method, err)
	}
	return v, nil
}

// Coverage fills the token and collateral fields of cfg from its Cover contract.
func (s *chainSnapshot) Coverage(ctx context.Context, cfg model.Coverage) (model.Coverage, error) {
	coverABI, err := contracts.CoverABI()
	if err != nil {
		return model.Coverage{}, fmt.Errorf("parse cover abi: %w", err)
	}
	out := cfg

	claim, err := s.callAddress(ctx, coverABI, cfg.CoverAddr, "claimCovToken")
	if err != nil {
		return model.Coverage{}, fmt.Errorf("coverage %s: %w", cfg.Name, err)
	}
	noclaim, err := s.callAddress(ctx, coverABI, cfg.CoverAddr, "noclaimCovToken")
	if err != nil {
		return model.Coverage{}, fmt.Errorf("coverage %s: %w", cfg.Name, err)
	}
	collateral, err := s.callAddress(ctx, coverABI, cfg.CoverAddr, "collateral")
	if err != nil {
		return model.Coverage{}, fmt.Errorf("coverage %s: %w", cfg.Name, err)
	}
	expiration, err := s.callBig(ctx, coverABI, cfg.CoverAddr, "expirationTimestamp")
	if err != nil {
		return model.Coverage{}, fmt.Errorf("coverage %s: %w", cfg.Name, err)
	}

	out.Expiration, err = unixSeconds(expiration)
	if err != nil {
		return model.Coverage{}, fmt.Errorf("coverage %s: expirationTimestamp: %w", cfg.Name, err)
	}

	out.ClaimToken = claim.Hex()
	out.NoclaimToken = noclaim.Hex()
	out.CollateralAddr = collateral.Hex()
	return out, nil
}

// PoolInfo reads reserves, weights, fee and share supply of a pool holding
// assetA and assetB.
func (s *chainSnapshot) PoolInfo(ctx context.Context, pool, assetA, assetB string) (model.PoolInfo, error) {
	if !common.IsHexAddress(pool) {
		return model.PoolInfo{}, fmt.Errorf("%w: invalid pool address %q", engine.ErrPoolUnavailable, pool)
	}
	poolAddr := common.HexToAddress(pool)
	code, err := s.reader.client.CodeAt(ctx, poolAddr, s.block)
	if err != nil {
		return model.PoolInfo{}, fmt.Errorf("code at %s: %w: %w", poolAddr.Hex(), ErrTransport, err)
	}
	if len(code) == 0 {
		return model.PoolInfo{}, fmt.Errorf("%w: no contract at %s", engine.ErrPoolUnavailable, poolAddr.Hex())
	}

	poolABI, err := contracts.BPoolABI()
	if err != nil {
		return model.PoolInfo{}, fmt.Errorf("parse pool abi: %w", err)
	}

	tokens := make([]common.Address, 0, 2)
	for _, asset := range []string{assetA, assetB} {
		if !common.IsHexAddress(asset) {
			return model.PoolInfo{}, fmt.Errorf("invalid token address %q", asset)
		}
		token := common.HexToAddress(asset)
		values, err := s.call(ctx, poolABI, pool, "isBound", token)
		if err != nil {
			return model.PoolInfo{}, poolErr(poolAddr, err)
		}
		bound, ok := values[0].(bool)
		if !ok || !bound {
			return model.PoolInfo{}, fmt.Errorf("%w: token %s not bound to %s", engine.ErrPoolUnavailable, token.Hex(), poolAddr.Hex())
		}
		tokens = append(tokens, token)
	}

	read := func(method string, args ...interface{}) (*big.Int, error) {
		v, err := s.callBig(ctx, poolABI, pool, method, args...)
		if err != nil {
			return nil, poolErr(poolAddr, err)
		}
		return v, nil
	}

	info := model.PoolInfo{Address: poolAddr.Hex(), BlockNumber: s.number}
	if info.ReserveA, err = read("getBalance", tokens[0]); err != nil {
		return model.PoolInfo{}, err
	}
	if info.ReserveB, err = read("getBalance", tokens[1]); err != nil {
		return model.PoolInfo{}, err
	}
	if info.WeightA, err = read("getNormalizedWeight", tokens[0]); err != nil {
		return model.PoolInfo{}, err
	}
	if info.WeightB, err = read("getNormalizedWeight", tokens[1]); err != nil {
		return model.PoolInfo{}, err
	}
	if info.SwapFee, err = read("getSwapFee"); err != nil {
		return model.PoolInfo{}, err
	}
	if info.TotalShares, err = read("totalSupply"); err != nil {
		return model.PoolInfo{}, err
	}
	if err := info.Validate(); err != nil {
		return model.PoolInfo{}, fmt.Errorf("%w: pool %s: %v", engine.ErrInvalidPoolParameters, poolAddr.Hex(), err)
	}

	s.reader.logger.Debug("pool read",
		zap.String("pool", info.Address),
		zap.Uint64("block", s.number),
		zap.String("reserve_a", info.ReserveA.String()),
		zap.String("reserve_b", info.ReserveB.String()),
	)
	return info, nil
}

// isRevert reports whether the node executed the call and it reverted.
func isRevert(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == 3 {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}

// poolErr maps rejected pool calls to ErrPoolUnavailable and leaves
// transport errors as they are.
func poolErr(pool common.Address, err error) error {
	if errors.Is(err, ErrCallRejected) {
		return fmt.Errorf("%w: %s: %v", engine.ErrPoolUnavailable, pool.Hex(), err)
	}
	return err
}

// ShareBalance returns the pool shares held by holder.
func (s *chainSnapshot) ShareBalance(ctx context.Context, pool, holder string) (*big.Int, error) {
	if !common.IsHexAddress(holder) {
		return nil, fmt.Errorf("invalid holder address %q", holder)
	}
	poolABI, err := contracts.BPoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	balance, err := s.callBig(ctx, poolABI, pool, "balanceOf", common.HexToAddress(holder))
	if err != nil {
		return nil, poolErr(common.HexToAddress(pool), err)
	}
	return balance, nil
}

// RedeemFeeRatio reads the protocol factory redeem fee.
func (s *chainSnapshot) RedeemFeeRatio(ctx context.Context, factory string) (model.FeeRatio, error) {
	factoryABI, err := contracts.ProtocolFactoryABI()
	if err != nil {
		return model.FeeRatio{}, fmt.Errorf("parse factory abi: %w", err)
	}
	num, err := s.callBig(ctx, factoryABI, factory, "redeemFeeNumerator")
	if err != nil {
		return model.FeeRatio{}, fmt.Errorf("redeem fee: %w", err)
	}
	den, err := s.callBig(ctx, factoryABI, factory, "redeemFeeDenominator")
	if err != nil {
		return model.FeeRatio{}, fmt.Errorf("redeem fee: %w", err)
	}
	return model.FeeRatio{Numerator: num, Denominator: den}, nil
}

// PoolForPair asks the router for the pool trading token against paired.
func (s *chainSnapshot) PoolForPair(ctx context.Context, router, token, paired string) (string, error) {
	routerABI, err := contracts.RouterABI()
	if err != nil {
		return "", fmt.Errorf("parse router abi: %w", err)
	}
	if !common.IsHexAddress(token) || !common.IsHexAddress(paired) {
		return "", fmt.Errorf("invalid token pair %q/%q", token, paired)
	}
	pool, err := s.callAddress(ctx, routerABI, router, "poolForPair", common.HexToAddress(token), common.HexToAddress(paired))
	if err != nil {
		return "", err
	}
	if pool == (common.Address{}) {
		return "", fmt.Errorf("%w: no pool registered for %s/%s", engine.ErrPoolUnavailable, token, paired)
	}
	return pool.Hex(), nil
}

// TokenDecimals returns the token decimals through the shared cache.
func (s *chainSnapshot) TokenDecimals(ctx context.Context, token string) (uint8, error) {
	if !common.IsHexAddress(token) {
		return 0, fmt.Errorf("invalid token address %q", token)
	}
	return s.reader.tokens.Load(ctx, s.reader.client, common.HexToAddress(token))
}

// Package planner turns coverage names and amounts into executable plans:
// it reads pool state at one block, runs the engine, encodes CoverSwap
// calldata and records the result.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"coverSwap/internal/config"
	"coverSwap/internal/contracts"
	"coverSwap/internal/engine"
	"coverSwap/internal/model"
	"coverSwap/internal/poolstate"
	"coverSwap/internal/storage"
	"coverSwap/internal/units"
)

// Config holds the addresses and tunables the service needs.
type Config struct {
	ChainID         uint64
	Holder          string
	Router          string
	ProtocolFactory string
	Params          engine.Params
	Options         contracts.Options
	MaxRetries      int
	RetryBackoff    time.Duration
}

// Service computes plans for registered coverages.
type Service struct {
	cfg      Config
	reader   poolstate.Reader
	registry config.Registry
	engine   engine.Engine
	sink     storage.Storage
	metrics  *Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(cfg Config, reader poolstate.Reader, registry config.Registry, sink storage.Storage, metrics *Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:      cfg,
		reader:   reader,
		registry: registry,
		engine:   engine.New(cfg.Params),
		sink:     sink,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// coverageState is one coverage resolved at a snapshot.
type coverageState struct {
	coverage model.Coverage
	pools    model.PoolPair
	decimals uint8
}

// PlanMint plans minting coverage and providing both pools. When the
// collateral is the paired token, amount is the whole collateral budget and
// the mint is sized to fit it. Otherwise, or when exact is set, amount is
// the mint size and the paired token is funded separately.
func (s *Service) PlanMint(ctx context.Context, name string, amount *big.Int, exact bool) (model.PlanRecord, error) {
	record, err := s.planMint(ctx, name, amount, exact)
	return s.finish(ctx, model.ActionMint, record, err)
}

func (s *Service) planMint(ctx context.Context, name string, amount *big.Int, exact bool) (model.PlanRecord, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return model.PlanRecord{}, planErr(name, "snapshot", err)
	}
	state, err := s.resolve(ctx, snap, name)
	if err != nil {
		return model.PlanRecord{}, err
	}
	if err := s.checkLive(ctx, snap, state.coverage); err != nil {
		return model.PlanRecord{}, err
	}

	var plan model.MintPlan
	if exact || !state.coverage.CollateralIsPaired() {
		plan, err = s.engine.PlanMintExact(state.pools, amount)
	} else {
		plan, err = s.engine.PlanMintFromCollateral(state.pools, amount)
	}
	if err != nil {
		return model.PlanRecord{}, planErr(name, "plan mint", err)
	}

	inst := model.MintInstruction{
		Coverage:            state.coverage,
		MintAmount:          plan.MintAmount,
		ClaimPairedAmount:   plan.ClaimPairedAmount,
		NoclaimPairedAmount: plan.NoclaimPairedAmount,
	}

	s.logger.Info("mint planned",
		zap.String("coverage", state.coverage.Name),
		zap.Uint64("block", snap.BlockNumber()),
		zap.String("mint", units.Format(plan.MintAmount, state.decimals)),
		zap.String("claim_paired", units.Format(plan.ClaimPairedAmount, state.decimals)),
		zap.String("noclaim_paired", units.Format(plan.NoclaimPairedAmount, state.decimals)),
		zap.Bool("exact", exact || !state.coverage.CollateralIsPaired()),
	)

	return model.PlanRecord{
		BlockNumber: snap.BlockNumber(),
		Action:      model.ActionMint,
		Holder:      s.cfg.Holder,
		Source:      state.coverage.Name,
		Pools:       []model.PoolInfo{state.pools.Claim, state.pools.Noclaim},
		Mint:        &plan,
		Instruction: inst,
	}, nil
}

// PlanRedeem plans exiting both pools of a coverage with the holder's full
// share balances and redeeming the outcome tokens.
func (s *Service) PlanRedeem(ctx context.Context, name string) (model.PlanRecord, error) {
	record, err := s.planExit(ctx, name, model.ActionRedeem)
	return s.finish(ctx, model.ActionRedeem, record, err)
}

// Position values the holder's shares in a coverage without encoding a call.
func (s *Service) Position(ctx context.Context, name string) (model.PlanRecord, error) {
	record, err := s.planExit(ctx, name, model.ActionPosition)
	return s.finish(ctx, model.ActionPosition, record, err)
}

func (s *Service) planExit(ctx context.Context, name string, action model.Action) (model.PlanRecord, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return model.PlanRecord{}, planErr(name, "snapshot", err)
	}
	state, err := s.resolve(ctx, snap, name)
	if err != nil {
		return model.PlanRecord{}, err
	}
	leg, err := s.leg(ctx, snap, state)
	if err != nil {
		return model.PlanRecord{}, err
	}

	plan, err := s.engine.Reconcile(leg)
	if err != nil {
		return model.PlanRecord{}, planErr(name, "reconcile", err)
	}

	record := model.PlanRecord{
		BlockNumber: snap.BlockNumber(),
		Action:      action,
		Holder:      s.cfg.Holder,
		Source:      state.coverage.Name,
		Pools:       []model.PoolInfo{state.pools.Claim, state.pools.Noclaim},
		Redeem:      &plan,
	}
	if action == model.ActionRedeem {
		inst := model.RedeemInstruction{
			Coverage:           state.coverage,
			ClaimShareAmount:   leg.ClaimShares,
			NoclaimShareAmount: leg.NoclaimShares,
		}
		record.Instruction = inst
	}

	s.logger.Info("exit planned",
		zap.String("action", string(action)),
		zap.String("coverage", state.coverage.Name),
		zap.Uint64("block", snap.BlockNumber()),
		zap.String("redeem", units.Format(plan.SymmetricRedeemAmount, state.decimals)),
		zap.String("paired_recovered", units.Format(plan.PairedTokenRecovered, state.decimals)),
		zap.String("leftover_side", string(plan.LeftoverSide)),
		zap.String("leftover_swap", units.Format(plan.LeftoverSwapAmount, state.decimals)),
	)
	return record, nil
}

// PlanSwap plans moving the holder's full position from one coverage to
// another in a single executor call.
func (s *Service) PlanSwap(ctx context.Context, from, to string) (model.PlanRecord, error) {
	record, err := s.planSwap(ctx, from, to)
	return s.finish(ctx, model.ActionSwap, record, err)
}

func (s *Service) planSwap(ctx context.Context, from, to string) (model.PlanRecord, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return model.PlanRecord{}, planErr(from, "snapshot", err)
	}
	source, err := s.resolve(ctx, snap, from)
	if err != nil {
		return model.PlanRecord{}, err
	}
	target, err := s.resolve(ctx, snap, to)
	if err != nil {
		return model.PlanRecord{}, err
	}
	if err := compatible(source.coverage, target.coverage); err != nil {
		return model.PlanRecord{}, planErr(from, "match target", err)
	}
	if err := s.checkLive(ctx, snap, target.coverage); err != nil {
		return model.PlanRecord{}, err
	}
	leg, err := s.leg(ctx, snap, source)
	if err != nil {
		return model.PlanRecord{}, err
	}

	var fee *model.FeeRatio
	if s.cfg.ProtocolFactory != "" {
		var ratio model.FeeRatio
		err := s.read(ctx, "redeem_fee", func(ctx context.Context) error {
			var err error
			ratio, err = snap.RedeemFeeRatio(ctx, s.cfg.ProtocolFactory)
			return err
		})
		if err != nil {
			return model.PlanRecord{}, planErr(from, "redeem fee", err)
		}
		fee = &ratio
	}

	redeem, mint, err := s.engine.PlanSwap(leg, target.pools, fee)
	if err != nil {
		return model.PlanRecord{}, planErr(from, "plan swap", err)
	}

	inst := model.SwapInstruction{
		Source:                    source.coverage,
		ClaimShareAmount:          leg.ClaimShares,
		NoclaimShareAmount:        leg.NoclaimShares,
		Target:                    target.coverage,
		TargetClaimPairedAmount:   mint.ClaimPairedAmount,
		TargetNoclaimPairedAmount: mint.NoclaimPairedAmount,
		TargetMintAmount:          mint.MintAmount,
	}

	s.logger.Info("swap planned",
		zap.String("from", source.coverage.Name),
		zap.String("to", target.coverage.Name),
		zap.Uint64("block", snap.BlockNumber()),
		zap.String("redeem", units.Format(redeem.SymmetricRedeemAmount, source.decimals)),
		zap.String("paired_recovered", units.Format(redeem.PairedTokenRecovered, source.decimals)),
		zap.String("target_mint", units.Format(mint.MintAmount, target.decimals)),
		zap.Bool("capped", mint.Capped),
	)

	return model.PlanRecord{
		BlockNumber: snap.BlockNumber(),
		Action:      model.ActionSwap,
		Holder:      s.cfg.Holder,
		Source:      source.coverage.Name,
		Target:      target.coverage.Name,
		Pools:       []model.PoolInfo{source.pools.Claim, source.pools.Noclaim, target.pools.Claim, target.pools.Noclaim},
		Redeem:      &redeem,
		Mint:        &mint,
		Instruction: inst,
	}, nil
}

// finish encodes, stamps, persists and counts a plan. A failed plan yields no
// record.
func (s *Service) finish(ctx context.Context, action model.Action, record model.PlanRecord, err error) (model.PlanRecord, error) {
	if err == nil && record.Instruction != nil {
		err = s.encode(&record)
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.FailuresTotal.WithLabelValues(string(action), errorKind(err)).Inc()
		}
		s.logger.Warn("plan failed", zap.String("action", string(action)), zap.Error(err))
		return model.PlanRecord{}, err
	}

	record.ChainID = s.cfg.ChainID
	record.CreatedAt = s.now().UTC().Format(time.RFC3339Nano)
	id, err := recordID(record)
	if err != nil {
		return model.PlanRecord{}, err
	}
	record.ID = id

	if s.sink != nil {
		if err := s.sink.PutPlan(ctx, record); err != nil {
			if s.metrics != nil {
				s.metrics.FailuresTotal.WithLabelValues(string(action), "store").Inc()
			}
			return model.PlanRecord{}, planErr(record.Source, "store", err)
		}
	}
	if s.metrics != nil {
		s.metrics.PlansTotal.WithLabelValues(string(action)).Inc()
	}
	return record, nil
}

func (s *Service) encode(record *model.PlanRecord) error {
	calldata, err := contracts.Pack(record.Instruction, s.cfg.Options)
	if err != nil {
		return planErr(record.Source, "encode", err)
	}
	record.Calldata = hexutil.Encode(calldata)
	return nil
}

func recordID(record model.PlanRecord) (string, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("marshal plan: %w", err)
	}
	return crypto.Keccak256Hash(body).Hex(), nil
}

func (s *Service) read(ctx context.Context, call string, fn func(context.Context) error) error {
	start := time.Now()
	err := withRetry(ctx, s.cfg.MaxRetries, s.cfg.RetryBackoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && retryable(err) {
			s.logger.Warn("chain read failed", zap.String("call", call), zap.Error(err))
		}
		return err
	})
	if s.metrics != nil {
		s.metrics.ReadDuration.WithLabelValues(call).Observe(time.Since(start).Seconds())
	}
	return err
}

func (s *Service) snapshot(ctx context.Context) (poolstate.Snapshot, error) {
	if s.reader == nil {
		return nil, fmt.Errorf("pool reader is nil")
	}
	var snap poolstate.Snapshot
	err := s.read(ctx, "snapshot", func(ctx context.Context) error {
		var err error
		snap, err = s.reader.Snapshot(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.SnapshotBlock.Set(float64(snap.BlockNumber()))
	}
	return snap, nil
}

// resolve loads a registered coverage, its pool addresses and both pools.
func (s *Service) resolve(ctx context.Context, snap poolstate.Snapshot, name string) (coverageState, error) {
	cov, err := s.registry.Get(name)
	if err != nil {
		return coverageState{}, planErr(name, "registry", err)
	}

	err = s.read(ctx, "coverage", func(ctx context.Context) error {
		resolved, err := snap.Coverage(ctx, cov)
		if err == nil {
			cov = resolved
		}
		return err
	})
	if err != nil {
		return coverageState{}, planErr(name, "coverage", err)
	}

	for _, side := range []struct {
		pool  *string
		token string
	}{
		{&cov.ClaimPool, cov.ClaimToken},
		{&cov.NoclaimPool, cov.NoclaimToken},
	} {
		if *side.pool != "" {
			continue
		}
		if s.cfg.Router == "" {
			return coverageState{}, planErr(name, "pool lookup", fmt.Errorf("%w: no pool configured and no router set", engine.ErrPoolUnavailable))
		}
		err := s.read(ctx, "pool_for_pair", func(ctx context.Context) error {
			addr, err := snap.PoolForPair(ctx, s.cfg.Router, side.token, cov.PairedToken)
			if err == nil {
				*side.pool = addr
			}
			return err
		})
		if err != nil {
			return coverageState{}, planErr(name, "pool lookup", err)
		}
	}

	state := coverageState{coverage: cov, decimals: 18}
	err = s.read(ctx, "pool_info", func(ctx context.Context) error {
		var err error
		state.pools.Claim, err = snap.PoolInfo(ctx, cov.ClaimPool, cov.ClaimToken, cov.PairedToken)
		return err
	})
	if err != nil {
		return coverageState{}, planErr(name, "claim pool", err)
	}
	err = s.read(ctx, "pool_info", func(ctx context.Context) error {
		var err error
		state.pools.Noclaim, err = snap.PoolInfo(ctx, cov.NoclaimPool, cov.NoclaimToken, cov.PairedToken)
		return err
	})
	if err != nil {
		return coverageState{}, planErr(name, "noclaim pool", err)
	}

	if decimals, err := snap.TokenDecimals(ctx, cov.PairedToken); err == nil {
		state.decimals = decimals
	} else {
		s.logger.Debug("paired token decimals unavailable", zap.String("token", cov.PairedToken), zap.Error(err))
	}
	return state, nil
}

// leg reads the holder's share balances in both pools.
func (s *Service) leg(ctx context.Context, snap poolstate.Snapshot, state coverageState) (model.CoverageLeg, error) {
	if s.cfg.Holder == "" {
		return model.CoverageLeg{}, planErr(state.coverage.Name, "shares", fmt.Errorf("holder address is required"))
	}
	leg := model.CoverageLeg{Pools: state.pools}
	err := s.read(ctx, "share_balance", func(ctx context.Context) error {
		var err error
		leg.ClaimShares, err = snap.ShareBalance(ctx, state.pools.Claim.Address, s.cfg.Holder)
		return err
	})
	if err != nil {
		return model.CoverageLeg{}, planErr(state.coverage.Name, "claim shares", err)
	}
	err = s.read(ctx, "share_balance", func(ctx context.Context) error {
		var err error
		leg.NoclaimShares, err = snap.ShareBalance(ctx, state.pools.Noclaim.Address, s.cfg.Holder)
		return err
	})
	if err != nil {
		return model.CoverageLeg{}, planErr(state.coverage.Name, "noclaim shares", err)
	}
	return leg, nil
}

func compatible(source, target model.Coverage) error {
	if !strings.EqualFold(source.CollateralAddr, target.CollateralAddr) {
		return fmt.Errorf("%w: collateral %s vs %s", ErrIncompatibleCoverages, source.CollateralAddr, target.CollateralAddr)
	}
	if !strings.EqualFold(source.PairedToken, target.PairedToken) {
		return fmt.Errorf("%w: paired token %s vs %s", ErrIncompatibleCoverages, source.PairedToken, target.PairedToken)
	}
	return nil
}

func (s *Service) checkLive(ctx context.Context, snap poolstate.Snapshot, cov model.Coverage) error {
	if cov.Expiration == 0 {
		return nil
	}
	var blockTime uint64
	err := s.read(ctx, "block_time", func(ctx context.Context) error {
		var err error
		blockTime, err = snap.BlockTime(ctx)
		return err
	})
	if err != nil {
		return planErr(cov.Name, "block time", err)
	}
	if blockTime >= cov.Expiration {
		return planErr(cov.Name, "expiration", fmt.Errorf("%w: expired at %d, block time %d", ErrCoverageExpired, cov.Expiration, blockTime))
	}
	return nil
}

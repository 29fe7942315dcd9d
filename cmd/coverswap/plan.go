package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"coverSwap/internal/bmath"
	"coverSwap/internal/chain"
	"coverSwap/internal/config"
	"coverSwap/internal/contracts"
	"coverSwap/internal/engine"
	"coverSwap/internal/model"
	"coverSwap/internal/planner"
	"coverSwap/internal/poolstate"
	"coverSwap/internal/storage"
	"coverSwap/internal/storage/postgres"
	"coverSwap/internal/units"
)

// session holds everything one command run needs.
type session struct {
	ctx      context.Context
	service  *planner.Service
	logger   *zap.Logger
	registry *prometheus.Registry
	cfg      config.Config
	closers  []func()
}

func (s *session) close() {
	if s.cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(s.cfg.MetricsFile, s.registry); err != nil {
			s.logger.Warn("write metrics failed", zap.String("path", s.cfg.MetricsFile), zap.Error(err))
		}
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	s := &session{logger: logger, cfg: cfg, registry: prometheus.NewRegistry()}
	s.closers = append(s.closers, func() { _ = logger.Sync() })
	ok := false
	defer func() {
		if !ok {
			s.close()
		}
	}()

	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if len(cfg.Coverages) == 0 {
		return nil, fmt.Errorf("no coverages configured")
	}

	params, err := engineParams(cfg)
	if err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	s.ctx = ctx
	s.closers = append(s.closers, stop)

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	s.closers = append(s.closers, chainClient.Close)

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}

	sinks := storage.Multi{storage.NewJsonlStorage(cfg.Out)}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.closers = append(s.closers, store.Close)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		sinks = append(sinks, store)
	}

	opts := contracts.DefaultOptions()
	opts.AddBuffer = cfg.AddBuffer

	reader := poolstate.NewChainReader(chainClient, poolstate.NewTokenCache(), logger)
	s.service = planner.NewService(planner.Config{
		ChainID:         chainID.Uint64(),
		Holder:          cfg.Holder,
		Router:          cfg.Router,
		ProtocolFactory: cfg.ProtocolFactory,
		Params:          params,
		Options:         opts,
		MaxRetries:      cfg.MaxRetries,
		RetryBackoff:    cfg.RetryBackoff,
	}, reader, cfg.Coverages, sinks, planner.NewMetrics(s.registry), logger)

	logger.Info("session start",
		zap.Uint64("chain_id", chainID.Uint64()),
		zap.Strings("coverages", cfg.Coverages.Names()),
		zap.String("holder", cfg.Holder),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("redeem_tolerance", units.Format(params.RedeemTolerance, 18)),
	)

	ok = true
	return s, nil
}

func engineParams(cfg config.Config) (engine.Params, error) {
	params := engine.DefaultParams()
	if cfg.RedeemTolerance != "" {
		v, err := units.Parse(cfg.RedeemTolerance, 18)
		if err != nil {
			return engine.Params{}, fmt.Errorf("redeem-tolerance: %w", err)
		}
		params.RedeemTolerance = v
	}
	if cfg.MintCollateralPerUnit != "" {
		v, err := units.Parse(cfg.MintCollateralPerUnit, 18)
		if err != nil {
			return engine.Params{}, fmt.Errorf("mint-collateral-per-unit: %w", err)
		}
		if v.Cmp(bmath.One) < 0 {
			return engine.Params{}, fmt.Errorf("mint-collateral-per-unit must be at least 1")
		}
		params.MintCollateralPerUnit = v
	}
	return params, nil
}

func runMint(cmd *cobra.Command, args []string) error {
	amountText, _ := cmd.Flags().GetString("amount")
	decimals, _ := cmd.Flags().GetUint8("decimals")
	exact, _ := cmd.Flags().GetBool("exact")
	if amountText == "" {
		return fmt.Errorf("--amount is required")
	}
	amount, err := units.Parse(amountText, decimals)
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	record, err := s.service.PlanMint(s.ctx, args[0], amount, exact)
	if err != nil {
		return err
	}
	return printRecord(cmd, record)
}

func runSwap(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	record, err := s.service.PlanSwap(s.ctx, args[0], args[1])
	if err != nil {
		return err
	}
	return printRecord(cmd, record)
}

func runRedeem(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	record, err := s.service.PlanRedeem(s.ctx, args[0])
	if err != nil {
		return err
	}
	return printRecord(cmd, record)
}

func runPosition(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	record, err := s.service.Position(s.ctx, args[0])
	if err != nil {
		return err
	}
	return printRecord(cmd, record)
}

func printRecord(cmd *cobra.Command, record model.PlanRecord) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(record)
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}

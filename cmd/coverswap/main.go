package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "coverswap",
		Short:        "Plan coverage mints, swaps and redemptions across Balancer pool pairs",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	mintCmd := &cobra.Command{
		Use:   "mint <coverage>",
		Short: "Plan minting coverage and providing liquidity to both pools",
		Args:  cobra.ExactArgs(1),
		RunE:  runMint,
	}
	addCommonFlags(mintCmd.Flags())
	mintCmd.Flags().String("amount", "", "collateral budget, or mint size with --exact (decimal)")
	mintCmd.Flags().Uint8("decimals", 18, "decimals of --amount")
	mintCmd.Flags().Bool("exact", false, "mint exactly --amount and fund the paired token separately")
	root.AddCommand(mintCmd)

	swapCmd := &cobra.Command{
		Use:   "swap <from> <to>",
		Short: "Plan moving the holder's position from one coverage to another",
		Args:  cobra.ExactArgs(2),
		RunE:  runSwap,
	}
	addCommonFlags(swapCmd.Flags())
	root.AddCommand(swapCmd)

	redeemCmd := &cobra.Command{
		Use:   "redeem <coverage>",
		Short: "Plan exiting both pools and redeeming the outcome tokens",
		Args:  cobra.ExactArgs(1),
		RunE:  runRedeem,
	}
	addCommonFlags(redeemCmd.Flags())
	root.AddCommand(redeemCmd)

	positionCmd := &cobra.Command{
		Use:   "position <coverage>",
		Short: "Value the holder's position in a coverage",
		Args:  cobra.ExactArgs(1),
		RunE:  runPosition,
	}
	addCommonFlags(positionCmd.Flags())
	root.AddCommand(positionCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(flags *pflag.FlagSet) {
	flags.String("rpc", "", "Ethereum RPC URL")
	flags.String("holder", "", "address holding the pool shares")
	flags.String("router", "", "router used to look up pools not set in the config")
	flags.String("protocol-factory", "", "protocol factory holding the redeem fee")
	flags.String("redeem-tolerance", "1", "outcome token surplus left unswapped on exit (decimal tokens)")
	flags.String("mint-collateral-per-unit", "1", "collateral consumed per outcome token minted")
	flags.Bool("add-buffer", true, "set the executor buffer flag on mint and swap calls")
	flags.String("out", "./data/plans.jsonl", "output JSONL path")
	flags.String("pg-dsn", "", "optional Postgres DSN for plan history")
	flags.String("metrics-file", "", "optional Prometheus textfile to write after the run")
	flags.Int("max-retries", 5, "maximum retry attempts for chain reads")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL                string
	Holder                string
	Router                string
	ProtocolFactory       string
	Coverages             Registry
	RedeemTolerance       string
	MintCollateralPerUnit string
	AddBuffer             bool
	Out                   string
	PGDSN                 string
	MetricsFile           string
	MaxRetries            int
	RetryBackoff          time.Duration
	LogLevel              string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("COVERSWAP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("redeem-tolerance", "1")
	v.SetDefault("mint-collateral-per-unit", "1")
	v.SetDefault("add-buffer", true)
	v.SetDefault("out", "./data/plans.jsonl")
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	registry, err := loadRegistry(v)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:                v.GetString("rpc"),
		Holder:                strings.TrimSpace(v.GetString("holder")),
		Router:                strings.TrimSpace(v.GetString("router")),
		ProtocolFactory:       strings.TrimSpace(v.GetString("protocol-factory")),
		Coverages:             registry,
		RedeemTolerance:       v.GetString("redeem-tolerance"),
		MintCollateralPerUnit: v.GetString("mint-collateral-per-unit"),
		AddBuffer:             v.GetBool("add-buffer"),
		Out:                   v.GetString("out"),
		PGDSN:                 v.GetString("pg-dsn"),
		MetricsFile:           v.GetString("metrics-file"),
		MaxRetries:            v.GetInt("max-retries"),
		RetryBackoff:          v.GetDuration("retry-backoff"),
		LogLevel:              v.GetString("log-level"),
	}

	for name, addr := range map[string]string{
		"holder":           cfg.Holder,
		"router":           cfg.Router,
		"protocol-factory": cfg.ProtocolFactory,
	} {
		if addr == "" {
			continue
		}
		if _, err := ParseAddress(addr); err != nil {
			return Config{}, fmt.Errorf("%s: %w", name, err)
		}
	}

	return cfg, nil
}

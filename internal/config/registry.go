package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"coverSwap/internal/model"
)

// ErrUnknownCoverage is returned when a coverage name is not registered.
var ErrUnknownCoverage = errors.New("unknown coverage")

// Registry maps a coverage name to its static addresses. Token addresses,
// collateral and expiration are resolved from chain at plan time.
type Registry map[string]model.Coverage

type coverageEntry struct {
	Protocol    string `mapstructure:"protocol"`
	Cover       string `mapstructure:"cover"`
	PairedToken string `mapstructure:"paired-token"`
	ClaimPool   string `mapstructure:"claim-pool"`
	NoclaimPool string `mapstructure:"noclaim-pool"`
}

// Get returns the coverage registered under name, ignoring case.
func (r Registry) Get(name string) (model.Coverage, error) {
	cov, ok := r[normalizeName(name)]
	if !ok {
		return model.Coverage{}, fmt.Errorf("%w: %q", ErrUnknownCoverage, name)
	}
	return cov, nil
}

// Names returns the registered names in sorted order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func loadRegistry(v *viper.Viper) (Registry, error) {
	registry := Registry{}
	if !v.IsSet("coverages") {
		return registry, nil
	}

	var entries map[string]coverageEntry
	if err := v.UnmarshalKey("coverages", &entries); err != nil {
		return nil, fmt.Errorf("decode coverages: %w", err)
	}

	for rawName, entry := range entries {
		name := normalizeName(rawName)
		if name == "" {
			continue
		}
		required := map[string]string{
			"protocol":     entry.Protocol,
			"cover":        entry.Cover,
			"paired-token": entry.PairedToken,
		}
		optional := map[string]string{
			"claim-pool":   entry.ClaimPool,
			"noclaim-pool": entry.NoclaimPool,
		}
		parsed := make(map[string]string, len(required)+len(optional))
		for field, value := range required {
			addr, err := ParseAddress(value)
			if err != nil {
				return nil, fmt.Errorf("coverage %s %s: %w", name, field, err)
			}
			parsed[field] = addr.Hex()
		}
		for field, value := range optional {
			if strings.TrimSpace(value) == "" {
				continue
			}
			addr, err := ParseAddress(value)
			if err != nil {
				return nil, fmt.Errorf("coverage %s %s: %w", name, field, err)
			}
			parsed[field] = addr.Hex()
		}

		registry[name] = model.Coverage{
			Name:         name,
			ProtocolAddr: parsed["protocol"],
			CoverAddr:    parsed["cover"],
			PairedToken:  parsed["paired-token"],
			ClaimPool:    parsed["claim-pool"],
			NoclaimPool:  parsed["noclaim-pool"],
		}
	}
	return registry, nil
}

// ParseAddress validates a hex address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return common.Address{}, fmt.Errorf("address is required")
	}
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %s", input)
	}
	return common.HexToAddress(input), nil
}

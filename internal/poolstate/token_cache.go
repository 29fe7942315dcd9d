package poolstate

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"coverSwap/internal/contracts"
)

// TokenCache caches token decimals by address. Decimals never change, so they
// are read at the latest block and shared across snapshots.
type TokenCache struct {
	mu   sync.RWMutex
	data map[common.Address]uint8
}

func NewTokenCache() *TokenCache {
	return &TokenCache{data: make(map[common.Address]uint8)}
}

func (c *TokenCache) Get(address common.Address) (uint8, bool) {
	c.mu.RLock()
	decimals, ok := c.data[address]
	c.mu.RUnlock()
	return decimals, ok
}

func (c *TokenCache) Set(address common.Address, decimals uint8) {
	c.mu.Lock()
	c.data[address] = decimals
	c.mu.Unlock()
}

// Load returns cached decimals or fetches and caches them.
func (c *TokenCache) Load(ctx context.Context, client Caller, token common.Address) (uint8, error) {
	if decimals, ok := c.Get(token); ok {
		return decimals, nil
	}
	decimals, err := FetchTokenDecimals(ctx, client, token)
	if err != nil {
		return 0, err
	}
	c.Set(token, decimals)
	return decimals, nil
}

// FetchTokenDecimals loads token decimals via an ERC20 call.
func FetchTokenDecimals(ctx context.Context, client Caller, token common.Address) (uint8, error) {
	if client == nil {
		return 0, fmt.Errorf("chain client is nil")
	}
	erc20ABI, err := contracts.ERC20ABI()
	if err != nil {
		return 0, fmt.Errorf("parse erc20 abi: %w", err)
	}
	data, err := erc20ABI.Pack("decimals")
	if err != nil {
		return 0, fmt.Errorf("pack decimals: %w", err)
	}
	resp, err := client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		if isRevert(err) {
			return 0, fmt.Errorf("%w: decimals on %s: %v", ErrCallRejected, token.Hex(), err)
		}
		return 0, fmt.Errorf("call decimals on %s: %w: %w", token.Hex(), ErrTransport, err)
	}
	values, err := erc20ABI.Unpack("decimals", resp)
	if err != nil || len(values) == 0 {
		return 0, fmt.Errorf("%w: decimals on %s", ErrCallRejected, token.Hex())
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return 0, fmt.Errorf("%w: decimals on %s: %v", ErrCallRejected, token.Hex(), err)
	}
	return decimals, nil
}

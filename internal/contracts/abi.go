// Package contracts holds the ABIs of the Balancer pools, Cover protocol
// contracts and the CoverSwap executor, plus calldata packing for plan
// instructions.
package contracts

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const bPoolABIJSON = `[
  {"inputs": [{"name": "token", "type": "address"}], "name": "getBalance", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "token", "type": "address"}], "name": "getNormalizedWeight", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "token", "type": "address"}], "name": "isBound", "outputs": [{"type": "bool"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "getSwapFee", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalSupply", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "owner", "type": "address"}], "name": "balanceOf", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const erc20ABIJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "owner", "type": "address"}], "name": "balanceOf", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const coverABIJSON = `[
  {"inputs": [], "name": "claimCovToken", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "noclaimCovToken", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "collateral", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "expirationTimestamp", "outputs": [{"type": "uint48"}], "stateMutability": "view", "type": "function"}
]`

const protocolFactoryABIJSON = `[
  {"inputs": [], "name": "redeemFeeNumerator", "outputs": [{"type": "uint16"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "redeemFeeDenominator", "outputs": [{"type": "uint16"}], "stateMutability": "view", "type": "function"}
]`

const routerABIJSON = `[
  {"inputs": [{"name": "token", "type": "address"}, {"name": "pairedToken", "type": "address"}], "name": "poolForPair", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"}
]`

const coverSwapABIJSON = `[
  {
    "inputs": [
      {"name": "protocol", "type": "address"},
      {"name": "collateral", "type": "address"},
      {"name": "timestamp", "type": "uint48"},
      {"name": "amount", "type": "uint256"},
      {"name": "pairedToken", "type": "address"},
      {"name": "claimPTAmt", "type": "uint256"},
      {"name": "noclaimPTAmt", "type": "uint256"},
      {"name": "addBuffer", "type": "bool"},
      {"name": "provideLiquidity", "type": "bool"}
    ],
    "name": "addCoverAndAddLiquidity",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"name": "cover", "type": "address"},
      {"name": "pairedToken", "type": "address"},
      {"name": "claimBptAmt", "type": "uint256"},
      {"name": "noclaimBptAmt", "type": "uint256"},
      {"name": "protocol", "type": "address"},
      {"name": "collateral", "type": "address"},
      {"name": "timestamp", "type": "uint48"},
      {"name": "targetPairedToken", "type": "address"},
      {"name": "claimPTAmt", "type": "uint256"},
      {"name": "noclaimPTAmt", "type": "uint256"},
      {"name": "mintAmount", "type": "uint256"},
      {"name": "addBuffer", "type": "bool"}
    ],
    "name": "swapCoverage",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"name": "cover", "type": "address"},
      {"name": "pairedToken", "type": "address"},
      {"name": "claimBptAmt", "type": "uint256"},
      {"name": "noclaimBptAmt", "type": "uint256"}
    ],
    "name": "removeAndRedeem",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

type lazyABI struct {
	json   string
	once   sync.Once
	parsed abi.ABI
	err    error
}

func (l *lazyABI) get() (abi.ABI, error) {
	l.once.Do(func() {
		l.parsed, l.err = abi.JSON(strings.NewReader(l.json))
	})
	return l.parsed, l.err
}

var (
	bPoolABI           = &lazyABI{json: bPoolABIJSON}
	erc20ABI           = &lazyABI{json: erc20ABIJSON}
	coverABI           = &lazyABI{json: coverABIJSON}
	protocolFactoryABI = &lazyABI{json: protocolFactoryABIJSON}
	routerABI          = &lazyABI{json: routerABIJSON}
	coverSwapABI       = &lazyABI{json: coverSwapABIJSON}
)

// BPoolABI returns the parsed Balancer pool ABI.
func BPoolABI() (abi.ABI, error) { return bPoolABI.get() }

// ERC20ABI returns the parsed ERC20 ABI.
func ERC20ABI() (abi.ABI, error) { return erc20ABI.get() }

// CoverABI returns the parsed Cover ABI.
func CoverABI() (abi.ABI, error) { return coverABI.get() }

// ProtocolFactoryABI returns the parsed protocol factory ABI.
func ProtocolFactoryABI() (abi.ABI, error) { return protocolFactoryABI.get() }

// RouterABI returns the parsed router ABI.
func RouterABI() (abi.ABI, error) { return routerABI.get() }

// CoverSwapABI returns the parsed CoverSwap executor ABI.
func CoverSwapABI() (abi.ABI, error) { return coverSwapABI.get() }

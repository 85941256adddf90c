// Package cache implements the write-through token/factory/pool caches:
// DB-first with on-chain fallback for tokens and factories, on-chain first
// with a DB fallback on timeout for pools. The ERC20 string/bytes32 dual-ABI fallback is
// carried over from the teacher's internal/dex/erc20_abi.go verbatim
// (some ERC20 deployments return symbol/name as bytes32, not string); the
// factory/pool-discovery ABIs are new fragments for this domain's router
// and factory contracts, parsed with the same sync.Once idiom.
package cache

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const erc20ABIStringJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

const erc20ABIBytes32JSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

const v2RouterFactoryABIJSON = `[
  {"name":"factory","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"name":"WETH","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]}
]`

const v3RouterFactoryABIJSON = `[
  {"name":"factory","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"name":"WETH9","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]}
]`

const v2FactoryABIJSON = `[
  {"name":"getPair","type":"function","stateMutability":"view",
   "inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"}],
   "outputs":[{"name":"pair","type":"address"}]}
]`

const v3FactoryABIJSON = `[
  {"name":"getPool","type":"function","stateMutability":"view",
   "inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"},{"name":"fee","type":"uint24"}],
   "outputs":[{"name":"pool","type":"address"}]}
]`

type abiOnce struct {
	once sync.Once
	abi  abi.ABI
	err  error
	json string
}

func (o *abiOnce) get() (abi.ABI, error) {
	o.once.Do(func() {
		o.abi, o.err = abi.JSON(strings.NewReader(o.json))
	})
	return o.abi, o.err
}

var (
	erc20StringOnce    = abiOnce{json: erc20ABIStringJSON}
	erc20Bytes32Once   = abiOnce{json: erc20ABIBytes32JSON}
	v2RouterFactoryOnce = abiOnce{json: v2RouterFactoryABIJSON}
	v3RouterFactoryOnce = abiOnce{json: v3RouterFactoryABIJSON}
	v2FactoryOnce       = abiOnce{json: v2FactoryABIJSON}
	v3FactoryOnce       = abiOnce{json: v3FactoryABIJSON}
)

// Package poolstate reads live V2/V3 pool state and computes the
// constant-product and quoter-backed price-impact figures the evaluator
// needs. ABI handling follows the same sync.Once idiom internal/decode
// uses, generalized from the teacher's internal/dex/abi.go pattern.
package poolstate

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const v2PairABIJSON = `[
  {"name":"getReserves","type":"function","stateMutability":"view","inputs":[],
   "outputs":[{"name":"reserve0","type":"uint112"},{"name":"reserve1","type":"uint112"},{"name":"blockTimestampLast","type":"uint32"}]},
  {"name":"token0","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"name":"token1","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"name":"totalSupply","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

const v3PoolStateABIJSON = `[
  {"name":"slot0","type":"function","stateMutability":"view","inputs":[],
   "outputs":[{"name":"sqrtPriceX96","type":"uint160"},{"name":"tick","type":"int24"},
              {"name":"observationIndex","type":"uint16"},{"name":"observationCardinality","type":"uint16"},
              {"name":"observationCardinalityNext","type":"uint16"},{"name":"feeProtocol","type":"uint8"},
              {"name":"unlocked","type":"bool"}]},
  {"name":"liquidity","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint128"}]},
  {"name":"fee","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint24"}]},
  {"name":"token0","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"name":"token1","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]}
]`

const quoterV2ABIJSON = `[
  {"name":"quoteExactInputSingle","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},
             {"name":"amountIn","type":"uint256"},{"name":"fee","type":"uint24"},
             {"name":"sqrtPriceLimitX96","type":"uint160"}],
   "outputs":[{"name":"amountOut","type":"uint256"}]}
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
	v2PairOnce      = abiOnce{json: v2PairABIJSON}
	v3PoolStateOnce = abiOnce{json: v3PoolStateABIJSON}
	quoterOnce      = abiOnce{json: quoterV2ABIJSON}
)

func v2PairABI() (abi.ABI, error)  { return v2PairOnce.get() }
func v3PoolABI() (abi.ABI, error)  { return v3PoolStateOnce.get() }
func quoterABI() (abi.ABI, error)  { return quoterOnce.get() }

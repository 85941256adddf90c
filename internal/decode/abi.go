// Package decode implements the three pure, I/O-free router-calldata
// decoders (V2, V3, universal) that all emit model.DecodedSwap. ABI
// fragments are parsed once via sync.Once package-level globals, the same
// idiom the teacher uses for its pool/ERC20 ABIs in internal/dex/abi.go
// and internal/dex/erc20_abi.go — generalized here from event ABIs to
// router function ABIs, since this spec decodes pending calldata, not
// confirmed logs.
package decode

import (
	"reflect"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const v2RouterABIJSON = `[
  {"name":"swapExactTokensForTokens","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
   "outputs":[{"name":"amounts","type":"uint256[]"}]},
  {"name":"swapExactTokensForTokensSupportingFeeOnTransferTokens","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
   "outputs":[{"name":"amounts","type":"uint256[]"}]},
  {"name":"swapTokensForExactTokens","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"amountOut","type":"uint256"},{"name":"amountInMax","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
   "outputs":[{"name":"amounts","type":"uint256[]"}]},
  {"name":"swapExactETHForTokens","type":"function","stateMutability":"payable",
   "inputs":[{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
   "outputs":[{"name":"amounts","type":"uint256[]"}]},
  {"name":"swapExactETHForTokensSupportingFeeOnTransferTokens","type":"function","stateMutability":"payable",
   "inputs":[{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
   "outputs":[{"name":"amounts","type":"uint256[]"}]},
  {"name":"swapTokensForExactETH","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"amountOut","type":"uint256"},{"name":"amountInMax","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
   "outputs":[{"name":"amounts","type":"uint256[]"}]},
  {"name":"swapExactTokensForETH","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
   "outputs":[{"name":"amounts","type":"uint256[]"}]},
  {"name":"swapExactTokensForETHSupportingFeeOnTransferTokens","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
   "outputs":[{"name":"amounts","type":"uint256[]"}]},
  {"name":"swapETHForExactTokens","type":"function","stateMutability":"payable",
   "inputs":[{"name":"amountOut","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
   "outputs":[{"name":"amounts","type":"uint256[]"}]},
  {"name":"factory","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"name":"WETH","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]}
]`

const v3RouterABIJSON = `[
  {"name":"exactInputSingle","type":"function","stateMutability":"payable",
   "inputs":[{"name":"params","type":"tuple","components":[
     {"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"fee","type":"uint24"},
     {"name":"recipient","type":"address"},{"name":"deadline","type":"uint256"},
     {"name":"amountIn","type":"uint256"},{"name":"amountOutMinimum","type":"uint256"},{"name":"sqrtPriceLimitX96","type":"uint160"}]}],
   "outputs":[{"name":"amountOut","type":"uint256"}]},
  {"name":"exactInput","type":"function","stateMutability":"payable",
   "inputs":[{"name":"params","type":"tuple","components":[
     {"name":"path","type":"bytes"},{"name":"recipient","type":"address"},{"name":"deadline","type":"uint256"},
     {"name":"amountIn","type":"uint256"},{"name":"amountOutMinimum","type":"uint256"}]}],
   "outputs":[{"name":"amountOut","type":"uint256"}]},
  {"name":"exactOutputSingle","type":"function","stateMutability":"payable",
   "inputs":[{"name":"params","type":"tuple","components":[
     {"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"fee","type":"uint24"},
     {"name":"recipient","type":"address"},{"name":"deadline","type":"uint256"},
     {"name":"amountOut","type":"uint256"},{"name":"amountInMaximum","type":"uint256"},{"name":"sqrtPriceLimitX96","type":"uint160"}]}],
   "outputs":[{"name":"amountIn","type":"uint256"}]},
  {"name":"exactOutput","type":"function","stateMutability":"payable",
   "inputs":[{"name":"params","type":"tuple","components":[
     {"name":"path","type":"bytes"},{"name":"recipient","type":"address"},{"name":"deadline","type":"uint256"},
     {"name":"amountOut","type":"uint256"},{"name":"amountInMaximum","type":"uint256"}]}],
   "outputs":[{"name":"amountIn","type":"uint256"}]},
  {"name":"factory","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"name":"WETH9","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]}
]`

const universalRouterABIJSON = `[
  {"name":"execute","type":"function","stateMutability":"payable",
   "inputs":[{"name":"commands","type":"bytes"},{"name":"inputs","type":"bytes[]"},{"name":"deadline","type":"uint256"}],
   "outputs":[]}
]`

const v3ExactInTupleABIJSON = `[{"name":"_","type":"function","inputs":[
  {"name":"recipient","type":"address"},{"name":"amountIn","type":"uint256"},
  {"name":"amountOutMin","type":"uint256"},{"name":"path","type":"bytes"},{"name":"payerIsUser","type":"bool"}],"outputs":[]}]`

const v3ExactOutTupleABIJSON = `[{"name":"_","type":"function","inputs":[
  {"name":"recipient","type":"address"},{"name":"amountOut","type":"uint256"},
  {"name":"amountInMax","type":"uint256"},{"name":"path","type":"bytes"},{"name":"payerIsUser","type":"bool"}],"outputs":[]}]`

const v2ExactInTupleABIJSON = `[{"name":"_","type":"function","inputs":[
  {"name":"recipient","type":"address"},{"name":"amountIn","type":"uint256"},
  {"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"payerIsUser","type":"bool"}],"outputs":[]}]`

const v2ExactOutTupleABIJSON = `[{"name":"_","type":"function","inputs":[
  {"name":"recipient","type":"address"},{"name":"amountOut","type":"uint256"},
  {"name":"amountInMax","type":"uint256"},{"name":"path","type":"address[]"},{"name":"payerIsUser","type":"bool"}],"outputs":[]}]`

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
	v2RouterOnce   = abiOnce{json: v2RouterABIJSON}
	v3RouterOnce   = abiOnce{json: v3RouterABIJSON}
	universalOnce  = abiOnce{json: universalRouterABIJSON}
	v3ExactInOnce  = abiOnce{json: v3ExactInTupleABIJSON}
	v3ExactOutOnce = abiOnce{json: v3ExactOutTupleABIJSON}
	v2ExactInOnce  = abiOnce{json: v2ExactInTupleABIJSON}
	v2ExactOutOnce = abiOnce{json: v2ExactOutTupleABIJSON}
)

func v2RouterABI() (abi.ABI, error)  { return v2RouterOnce.get() }
func v3RouterABI() (abi.ABI, error)  { return v3RouterOnce.get() }
func universalRouterABI() (abi.ABI, error) { return universalOnce.get() }

// unpackSingleTuple unpacks calldata for a method whose sole input is a
// single ABI tuple (a Solidity `struct` parameter) into dst, a pointer to a
// Go struct whose fields line up positionally with the tuple's components.
// abi.Arguments.Copy treats a lone argument as atomic rather than a tuple,
// so it's wrapped in a single-field struct first to route through the
// struct-to-struct (positional) copy path.
func unpackSingleTuple(inputs abi.Arguments, data []byte, dst interface{}) error {
	values, err := inputs.UnpackValues(data)
	if err != nil {
		return err
	}
	dstVal := reflect.ValueOf(dst).Elem()
	wrapperType := reflect.StructOf([]reflect.StructField{{Name: "F", Type: dstVal.Type()}})
	wrapper := reflect.New(wrapperType)
	if err := inputs.Copy(wrapper.Interface(), values); err != nil {
		return err
	}
	dstVal.Set(wrapper.Elem().Field(0))
	return nil
}

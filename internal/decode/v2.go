package decode

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"sentryx/internal/addrnorm"
	"sentryx/internal/model"
)

const (
	methodSwapExactTokensForTokens                      = "swapExactTokensForTokens"
	methodSwapExactTokensForTokensFOT                    = "swapExactTokensForTokensSupportingFeeOnTransferTokens"
	methodSwapTokensForExactTokens                       = "swapTokensForExactTokens"
	methodSwapExactETHForTokens                          = "swapExactETHForTokens"
	methodSwapExactETHForTokensFOT                       = "swapExactETHForTokensSupportingFeeOnTransferTokens"
	methodSwapTokensForExactETH                          = "swapTokensForExactETH"
	methodSwapExactTokensForETH                          = "swapExactTokensForETH"
	methodSwapExactTokensForETHFOT                       = "swapExactTokensForETHSupportingFeeOnTransferTokens"
	methodSwapETHForExactTokens                          = "swapETHForExactTokens"
)

// V2 decodes calldata against the UniswapV2Router02-shaped method set
// (spec.md §4.3 V2 table). For the ETH-denominated methods the native-token
// leg is set to wrappedNative instead of being read from the corresponding
// end of the path. Returns nil, nil when
// the selector doesn't match a method this decoder trades on.
func V2(tx *types.Transaction, router common.Address, wrappedNative common.Address) (*model.DecodedSwap, error) {
	data := tx.Data()
	if len(data) < 4 {
		return nil, nil
	}

	routerABI, err := v2RouterABI()
	if err != nil {
		return nil, fmt.Errorf("decode: v2 abi: %w", err)
	}

	method, err := routerABI.MethodById(data[:4])
	if err != nil {
		return nil, nil
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil
	}

	swap := &model.DecodedSwap{
		Router:       addrnorm.Lower(router),
		Method:       method.Name,
		RouterFamily: model.FamilyV2,
		Fee:          "0",
		AmountOutMin: "0",
		AmountInMax:  "0",
	}

	switch method.Name {
	case methodSwapExactTokensForTokens, methodSwapExactTokensForTokensFOT:
		path := args[2].([]common.Address)
		if len(path) < 2 {
			return nil, nil
		}
		swap.TokenIn = addrnorm.Lower(path[0])
		swap.TokenOut = addrnorm.Lower(path[len(path)-1])
		swap.AmountIn = args[0].(*big.Int).String()
		swap.AmountOutMin = args[1].(*big.Int).String()
		swap.Recipient = addrnorm.Lower(args[3].(common.Address))
		swap.Deadline = args[4].(*big.Int).String()

	case methodSwapTokensForExactTokens:
		path := args[2].([]common.Address)
		if len(path) < 2 {
			return nil, nil
		}
		swap.TokenIn = addrnorm.Lower(path[0])
		swap.TokenOut = addrnorm.Lower(path[len(path)-1])
		swap.AmountIn = "0"
		swap.AmountInMax = args[1].(*big.Int).String()
		swap.AmountOut = args[0].(*big.Int).String()
		swap.Recipient = addrnorm.Lower(args[3].(common.Address))
		swap.Deadline = args[4].(*big.Int).String()

	case methodSwapExactETHForTokens, methodSwapExactETHForTokensFOT:
		path := args[1].([]common.Address)
		if len(path) < 2 {
			return nil, nil
		}
		swap.TokenIn = addrnorm.Lower(wrappedNative)
		swap.TokenOut = addrnorm.Lower(path[len(path)-1])
		swap.AmountIn = tx.Value().String()
		swap.AmountOutMin = args[0].(*big.Int).String()
		swap.Recipient = addrnorm.Lower(args[2].(common.Address))
		swap.Deadline = args[3].(*big.Int).String()

	case methodSwapExactTokensForETH, methodSwapExactTokensForETHFOT:
		path := args[2].([]common.Address)
		if len(path) < 2 {
			return nil, nil
		}
		swap.TokenIn = addrnorm.Lower(path[0])
		swap.TokenOut = addrnorm.Lower(wrappedNative)
		swap.AmountIn = args[0].(*big.Int).String()
		swap.AmountOutMin = args[1].(*big.Int).String()
		swap.Recipient = addrnorm.Lower(args[3].(common.Address))
		swap.Deadline = args[4].(*big.Int).String()

	case methodSwapETHForExactTokens:
		path := args[1].([]common.Address)
		if len(path) < 2 {
			return nil, nil
		}
		swap.TokenIn = addrnorm.Lower(wrappedNative)
		swap.TokenOut = addrnorm.Lower(path[len(path)-1])
		swap.AmountIn = tx.Value().String()
		swap.AmountOut = args[0].(*big.Int).String()
		swap.Recipient = addrnorm.Lower(args[2].(common.Address))
		swap.Deadline = args[3].(*big.Int).String()

	case methodSwapTokensForExactETH:
		path := args[2].([]common.Address)
		if len(path) < 2 {
			return nil, nil
		}
		swap.TokenIn = addrnorm.Lower(path[0])
		swap.TokenOut = addrnorm.Lower(wrappedNative)
		swap.AmountIn = args[1].(*big.Int).String()
		swap.AmountInMax = args[1].(*big.Int).String()
		swap.AmountOut = args[0].(*big.Int).String()
		swap.Recipient = addrnorm.Lower(args[3].(common.Address))
		swap.Deadline = args[4].(*big.Int).String()

	default:
		return nil, nil
	}

	if !strings.HasPrefix(swap.TokenIn, "0x") || !strings.HasPrefix(swap.TokenOut, "0x") {
		return nil, nil
	}
	return swap, nil
}

package decode

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"sentryx/internal/addrnorm"
	"sentryx/internal/model"
)

const (
	methodExactInputSingle  = "exactInputSingle"
	methodExactInput        = "exactInput"
	methodExactOutputSingle = "exactOutputSingle"
	methodExactOutput       = "exactOutput"
)

// pathStride is the packed-path window (20-byte token + 3-byte fee) used by
// exactInput/exactOutput's multi-hop path argument.
const pathStride = 23

type exactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

type exactOutputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountOut         *big.Int
	AmountInMaximum   *big.Int
	SqrtPriceLimitX96 *big.Int
}

type exactInputParams struct {
	Path             []byte
	Recipient        common.Address
	Deadline         *big.Int
	AmountIn         *big.Int
	AmountOutMinimum *big.Int
}

type exactOutputParams struct {
	Path            []byte
	Recipient       common.Address
	Deadline        *big.Int
	AmountOut       *big.Int
	AmountInMaximum *big.Int
}

// walkPackedPath extracts the first token, last token, and last fee
// observed across a packed (token ∥ fee ∥ token ∥ fee ∥ … ∥ token) path,
// per spec.md §4.3's 23-byte stride rule.
func walkPackedPath(path []byte) (first, last common.Address, lastFee *big.Int, ok bool) {
	if len(path) < 20+3+20 || (len(path)-20)%pathStride != 0 {
		return common.Address{}, common.Address{}, nil, false
	}
	first = common.BytesToAddress(path[0:20])

	offset := 20
	for offset+3+20 <= len(path) {
		lastFee = new(big.Int).SetBytes(path[offset : offset+3])
		last = common.BytesToAddress(path[offset+3 : offset+3+20])
		offset += pathStride
	}
	if lastFee == nil {
		return common.Address{}, common.Address{}, nil, false
	}
	return first, last, lastFee, true
}

// V3 decodes calldata against the ISwapRouter-shaped method set (spec.md
// §4.3 V3 section). Returns nil, nil when the selector isn't recognized.
func V3(tx *types.Transaction, router common.Address) (*model.DecodedSwap, error) {
	data := tx.Data()
	if len(data) < 4 {
		return nil, nil
	}

	routerABI, err := v3RouterABI()
	if err != nil {
		return nil, fmt.Errorf("decode: v3 abi: %w", err)
	}

	method, err := routerABI.MethodById(data[:4])
	if err != nil {
		return nil, nil
	}

	swap := &model.DecodedSwap{
		Router:       addrnorm.Lower(router),
		Method:       method.Name,
		RouterFamily: model.FamilyV3,
		AmountOutMin: "0",
		AmountInMax:  "0",
	}

	switch method.Name {
	case methodExactInputSingle:
		var params exactInputSingleParams
		if err := unpackSingleTuple(method.Inputs, data[4:], &params); err != nil {
			return nil, nil
		}
		swap.TokenIn = addrnorm.Lower(params.TokenIn)
		swap.TokenOut = addrnorm.Lower(params.TokenOut)
		swap.Fee = params.Fee.String()
		swap.Recipient = addrnorm.Lower(params.Recipient)
		swap.Deadline = params.Deadline.String()
		swap.AmountIn = params.AmountIn.String()
		swap.AmountOutMin = params.AmountOutMinimum.String()

	case methodExactOutputSingle:
		var params exactOutputSingleParams
		if err := unpackSingleTuple(method.Inputs, data[4:], &params); err != nil {
			return nil, nil
		}
		swap.TokenIn = addrnorm.Lower(params.TokenIn)
		swap.TokenOut = addrnorm.Lower(params.TokenOut)
		swap.Fee = params.Fee.String()
		swap.Recipient = addrnorm.Lower(params.Recipient)
		swap.Deadline = params.Deadline.String()
		swap.AmountOut = params.AmountOut.String()
		swap.AmountInMax = params.AmountInMaximum.String()
		swap.AmountIn = "0"

	case methodExactInput:
		var params exactInputParams
		if err := unpackSingleTuple(method.Inputs, data[4:], &params); err != nil {
			return nil, nil
		}
		first, last, fee, walked := walkPackedPath(params.Path)
		if !walked {
			return nil, nil
		}
		swap.TokenIn = addrnorm.Lower(first)
		swap.TokenOut = addrnorm.Lower(last)
		swap.Fee = fee.String()
		swap.Recipient = addrnorm.Lower(params.Recipient)
		swap.Deadline = params.Deadline.String()
		swap.AmountIn = params.AmountIn.String()
		swap.AmountOutMin = params.AmountOutMinimum.String()

	case methodExactOutput:
		var params exactOutputParams
		if err := unpackSingleTuple(method.Inputs, data[4:], &params); err != nil {
			return nil, nil
		}
		first, last, fee, walked := walkPackedPath(params.Path)
		if !walked {
			return nil, nil
		}
		// exactOutput's packed path is encoded tokenOut-first per the
		// router's own hop-reversal convention.
		swap.TokenIn = addrnorm.Lower(last)
		swap.TokenOut = addrnorm.Lower(first)
		swap.Fee = fee.String()
		swap.Recipient = addrnorm.Lower(params.Recipient)
		swap.Deadline = params.Deadline.String()
		swap.AmountOut = params.AmountOut.String()
		swap.AmountInMax = params.AmountInMaximum.String()
		swap.AmountIn = "0"

	default:
		return nil, nil
	}

	return swap, nil
}

package decode

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"sentryx/internal/addrnorm"
	"sentryx/internal/model"
)

// Command tags recognized out of the universal router's commands byte
// string (spec.md §4.3). Every other tag is a non-swap action (PERMIT2,
// WRAP_ETH, SWEEP, …) and is silently skipped.
const (
	tagV3ExactIn  byte = 0x00
	tagV3ExactOut byte = 0x01
	tagV2ExactIn  byte = 0x08
	tagV2ExactOut byte = 0x09
)

// commandTagMask strips the "allow revert" high bit universal router
// commands carry; only the low 6 bits identify the action.
const commandTagMask byte = 0x3f

type v3ExactInCommand struct {
	Recipient    common.Address
	AmountIn     *big.Int
	AmountOutMin *big.Int
	Path         []byte
	PayerIsUser  bool
}

type v3ExactOutCommand struct {
	Recipient   common.Address
	AmountOut   *big.Int
	AmountInMax *big.Int
	Path        []byte
	PayerIsUser bool
}

type v2ExactInCommand struct {
	Recipient    common.Address
	AmountIn     *big.Int
	AmountOutMin *big.Int
	Path         []common.Address
	PayerIsUser  bool
}

type v2ExactOutCommand struct {
	Recipient   common.Address
	AmountOut   *big.Int
	AmountInMax *big.Int
	Path        []common.Address
	PayerIsUser bool
}

// Universal decodes a universal-router execute(commands, inputs, deadline)
// call into zero or more DecodedSwap values, one per recognized sub-action.
// Unlike V2 and V3 it never returns (nil, nil) on a well-formed call with no
// recognized sub-actions: it returns an empty, non-nil slice, since "no
// swap here" and "not an execute call" are different outcomes the caller
// must be able to tell apart.
func Universal(tx *types.Transaction, router common.Address) ([]*model.DecodedSwap, error) {
	data := tx.Data()
	if len(data) < 4 {
		return nil, nil
	}

	routerABI, err := universalRouterABI()
	if err != nil {
		return nil, fmt.Errorf("decode: universal abi: %w", err)
	}

	method, err := routerABI.MethodById(data[:4])
	if err != nil || method.Name != "execute" {
		return nil, nil
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil || len(args) != 3 {
		return nil, nil
	}
	commands, ok := args[0].([]byte)
	if !ok {
		return nil, nil
	}
	inputs, ok := args[1].([][]byte)
	if !ok {
		return nil, nil
	}
	deadline, ok := args[2].(*big.Int)
	if !ok {
		return nil, nil
	}

	swaps := make([]*model.DecodedSwap, 0, len(commands))
	for i, rawTag := range commands {
		if i >= len(inputs) {
			break
		}
		tag := rawTag & commandTagMask
		input := inputs[i]

		swap, err := decodeUniversalCommand(tag, input, router, deadline)
		if err != nil || swap == nil {
			continue
		}
		swaps = append(swaps, swap)
	}
	return swaps, nil
}

func decodeUniversalCommand(tag byte, input []byte, router common.Address, deadline *big.Int) (*model.DecodedSwap, error) {
	switch tag {
	case tagV3ExactIn:
		tupleABI, err := v3ExactInOnce.get()
		if err != nil {
			return nil, err
		}
		var cmd v3ExactInCommand
		if err := func() error {
			values, err := tupleABI.Methods["_"].Inputs.UnpackValues(input)
			if err != nil {
				return err
			}
			return tupleABI.Methods["_"].Inputs.Copy(&cmd, values)
		}(); err != nil {
			return nil, nil
		}
		first, last, fee, walked := walkPackedPath(cmd.Path)
		if !walked {
			return nil, nil
		}
		return &model.DecodedSwap{
			Router:       addrnorm.Lower(router),
			Method:       "execute:V3_SWAP_EXACT_IN",
			RouterFamily: model.FamilyV3,
			TokenIn:      addrnorm.Lower(first),
			TokenOut:     addrnorm.Lower(last),
			AmountIn:     cmd.AmountIn.String(),
			AmountOutMin: cmd.AmountOutMin.String(),
			AmountInMax:  "0",
			Fee:          fee.String(),
			Recipient:    addrnorm.Lower(cmd.Recipient),
			Deadline:     deadline.String(),
			PayerIsUser:  cmd.PayerIsUser,
		}, nil

	case tagV3ExactOut:
		tupleABI, err := v3ExactOutOnce.get()
		if err != nil {
			return nil, err
		}
		var cmd v3ExactOutCommand
		if err := func() error {
			values, err := tupleABI.Methods["_"].Inputs.UnpackValues(input)
			if err != nil {
				return err
			}
			return tupleABI.Methods["_"].Inputs.Copy(&cmd, values)
		}(); err != nil {
			return nil, nil
		}
		// exactOutput-style commands encode their packed path tokenOut-first.
		last, first, fee, walked := walkPackedPath(cmd.Path)
		if !walked {
			return nil, nil
		}
		return &model.DecodedSwap{
			Router:       addrnorm.Lower(router),
			Method:       "execute:V3_SWAP_EXACT_OUT",
			RouterFamily: model.FamilyV3,
			TokenIn:      addrnorm.Lower(first),
			TokenOut:     addrnorm.Lower(last),
			AmountOut:    cmd.AmountOut.String(),
			AmountInMax:  cmd.AmountInMax.String(),
			AmountOutMin: "0",
			Fee:          fee.String(),
			Recipient:    addrnorm.Lower(cmd.Recipient),
			Deadline:     deadline.String(),
			PayerIsUser:  cmd.PayerIsUser,
		}, nil

	case tagV2ExactIn:
		tupleABI, err := v2ExactInOnce.get()
		if err != nil {
			return nil, err
		}
		var cmd v2ExactInCommand
		if err := func() error {
			values, err := tupleABI.Methods["_"].Inputs.UnpackValues(input)
			if err != nil {
				return err
			}
			return tupleABI.Methods["_"].Inputs.Copy(&cmd, values)
		}(); err != nil {
			return nil, nil
		}
		if len(cmd.Path) < 2 {
			return nil, nil
		}
		return &model.DecodedSwap{
			Router:       addrnorm.Lower(router),
			Method:       "execute:V2_SWAP_EXACT_IN",
			RouterFamily: model.FamilyV2,
			TokenIn:      addrnorm.Lower(cmd.Path[0]),
			TokenOut:     addrnorm.Lower(cmd.Path[len(cmd.Path)-1]),
			AmountIn:     cmd.AmountIn.String(),
			AmountOutMin: cmd.AmountOutMin.String(),
			AmountInMax:  "0",
			Fee:          "0",
			Recipient:    addrnorm.Lower(cmd.Recipient),
			Deadline:     deadline.String(),
			PayerIsUser:  cmd.PayerIsUser,
		}, nil

	case tagV2ExactOut:
		tupleABI, err := v2ExactOutOnce.get()
		if err != nil {
			return nil, err
		}
		var cmd v2ExactOutCommand
		if err := func() error {
			values, err := tupleABI.Methods["_"].Inputs.UnpackValues(input)
			if err != nil {
				return err
			}
			return tupleABI.Methods["_"].Inputs.Copy(&cmd, values)
		}(); err != nil {
			return nil, nil
		}
		if len(cmd.Path) < 2 {
			return nil, nil
		}
		return &model.DecodedSwap{
			Router:       addrnorm.Lower(router),
			Method:       "execute:V2_SWAP_EXACT_OUT",
			RouterFamily: model.FamilyV2,
			TokenIn:      addrnorm.Lower(cmd.Path[0]),
			TokenOut:     addrnorm.Lower(cmd.Path[len(cmd.Path)-1]),
			AmountOut:    cmd.AmountOut.String(),
			AmountInMax:  cmd.AmountInMax.String(),
			AmountOutMin: "0",
			Fee:          "0",
			Recipient:    addrnorm.Lower(cmd.Recipient),
			Deadline:     deadline.String(),
			PayerIsUser:  cmd.PayerIsUser,
		}, nil

	default:
		return nil, nil
	}
}

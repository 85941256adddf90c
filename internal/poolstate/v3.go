package poolstate

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"sentryx/internal/rpcpool"
)

// V3State is the raw state read off a Uniswap-V3-shaped pool contract.
type V3State struct {
	Token0       common.Address
	Token1       common.Address
	Fee          uint32
	SqrtPriceX96 *big.Int
	Tick         int32
	Liquidity    *big.Int
}

// ReadV3State pulls slot0/liquidity/fee/token0/token1 off a pool contract,
// as spec.md §4.4's V3 liquidity read.
func ReadV3State(ctx context.Context, pool *rpcpool.Pool, poolAddress common.Address, blockNumber *big.Int) (*V3State, error) {
	poolABI, err := v3PoolABI()
	if err != nil {
		return nil, fmt.Errorf("poolstate: v3 abi: %w", err)
	}

	call := func(method string) ([]interface{}, error) {
		data, err := poolABI.Pack(method)
		if err != nil {
			return nil, fmt.Errorf("poolstate: pack %s: %w", method, err)
		}
		resp, err := pool.CallContract(ctx, ethereum.CallMsg{To: &poolAddress, Data: data}, blockNumber)
		if err != nil {
			return nil, fmt.Errorf("poolstate: call %s: %w", method, err)
		}
		values, err := poolABI.Unpack(method, resp)
		if err != nil {
			return nil, fmt.Errorf("poolstate: unpack %s: %w", method, err)
		}
		return values, nil
	}

	slot0Out, err := call("slot0")
	if err != nil {
		return nil, err
	}
	liquidityOut, err := call("liquidity")
	if err != nil {
		return nil, err
	}
	feeOut, err := call("fee")
	if err != nil {
		return nil, err
	}
	token0Out, err := call("token0")
	if err != nil {
		return nil, err
	}
	token1Out, err := call("token1")
	if err != nil {
		return nil, err
	}

	tickBig := slot0Out[1].(*big.Int)

	return &V3State{
		Token0:       token0Out[0].(common.Address),
		Token1:       token1Out[0].(common.Address),
		Fee:          uint32(feeOut[0].(*big.Int).Uint64()),
		SqrtPriceX96: slot0Out[0].(*big.Int),
		Tick:         int32(tickBig.Int64()),
		Liquidity:    liquidityOut[0].(*big.Int),
	}, nil
}

// MidPrice computes price1Over0 = sqrtPriceX96^2 / 2^192 as spec.md §4.4
// directs, then orients it tokenOut/tokenIn.
func MidPrice(state *V3State, tokenIn common.Address, decimalsIn, decimalsOut uint8) (*big.Float, error) {
	if state == nil || state.SqrtPriceX96 == nil {
		return nil, fmt.Errorf("poolstate: nil v3 state")
	}
	sqrtSquared := new(big.Int).Mul(state.SqrtPriceX96, state.SqrtPriceX96)
	q192 := new(big.Int).Lsh(big.NewInt(1), 192)

	price1Over0 := new(big.Float).Quo(new(big.Float).SetInt(sqrtSquared), new(big.Float).SetInt(q192))

	// price1Over0 is token1-per-token0 in raw (undecimaled) units; adjust
	// for each token's decimals, then orient tokenOut-per-tokenIn.
	switch tokenIn {
	case state.Token0:
		return applyDecimalShift(price1Over0, decimalsIn, decimalsOut), nil
	case state.Token1:
		inverted := new(big.Float).Quo(big.NewFloat(1), price1Over0)
		return applyDecimalShift(inverted, decimalsIn, decimalsOut), nil
	default:
		return nil, fmt.Errorf("poolstate: tokenIn %s not in pool", tokenIn.Hex())
	}
}

// applyDecimalShift rescales a raw (18-decimals-implicit) price ratio by
// 10^(decimalsIn-decimalsOut), the shift needed when the two legs don't
// share the same decimals count.
func applyDecimalShift(price *big.Float, decimalsIn, decimalsOut uint8) *big.Float {
	shift := int64(decimalsIn) - int64(decimalsOut)
	if shift == 0 {
		return price
	}
	factor := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(absInt64(shift)), nil))
	if shift > 0 {
		return new(big.Float).Mul(price, factor)
	}
	return new(big.Float).Quo(price, factor)
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// V3Impact invokes the configured Quoter's quoteExactInputSingle as a
// staticCall-equivalent eth_call (no From, no value) per spec.md §4.4, and
// compares the quoted price against the pool's mid price.
func V3Impact(ctx context.Context, pool *rpcpool.Pool, quoter common.Address, state *V3State, tokenIn, tokenOut common.Address, amountIn *big.Int, decimalsIn, decimalsOut uint8, blockNumber *big.Int) (impactPercent float64, amountOut *big.Int, err error) {
	if state == nil || amountIn == nil || amountIn.Sign() <= 0 {
		return 0, nil, fmt.Errorf("poolstate: invalid v3 impact inputs")
	}

	quoterContract, err := quoterABI()
	if err != nil {
		return 0, nil, fmt.Errorf("poolstate: quoter abi: %w", err)
	}

	data, err := quoterContract.Pack("quoteExactInputSingle", tokenIn, tokenOut, amountIn, new(big.Int).SetUint64(uint64(state.Fee)), big.NewInt(0))
	if err != nil {
		return 0, nil, fmt.Errorf("poolstate: pack quoteExactInputSingle: %w", err)
	}

	resp, err := pool.CallContract(ctx, ethereum.CallMsg{To: &quoter, Data: data}, blockNumber)
	if err != nil {
		return 0, nil, fmt.Errorf("poolstate: quoter reverted: %w", err)
	}
	values, err := quoterContract.Unpack("quoteExactInputSingle", resp)
	if err != nil {
		return 0, nil, fmt.Errorf("poolstate: unpack quote response: %w", err)
	}
	amountOut = values[0].(*big.Int)

	midPrice, err := MidPrice(state, tokenIn, decimalsIn, decimalsOut)
	if err != nil {
		return 0, nil, err
	}

	amountInDec := decimalAdjust(amountIn, decimalsIn)
	amountOutDec := decimalAdjust(amountOut, decimalsOut)
	quotedPrice := new(big.Float).Quo(amountOutDec, amountInDec)

	impact := new(big.Float).Quo(new(big.Float).Sub(quotedPrice, midPrice), midPrice)
	impact.Mul(impact, big.NewFloat(100))
	impactPercent, _ = impact.Float64()
	return impactPercent, amountOut, nil
}

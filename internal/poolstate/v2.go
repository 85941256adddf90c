package poolstate

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"sentryx/internal/rpcpool"
)

// V2Reserves is the raw state read off a Uniswap-V2-shaped pair contract.
type V2Reserves struct {
	Token0      common.Address
	Token1      common.Address
	Reserve0    *big.Int
	Reserve1    *big.Int
	TotalSupply *big.Int
	K           *big.Int
}

// ReadV2Reserves pulls getReserves/token0/token1/totalSupply off a pair
// contract, as spec.md §4.4's V2 liquidity read.
func ReadV2Reserves(ctx context.Context, pool *rpcpool.Pool, pairAddress common.Address, blockNumber *big.Int) (*V2Reserves, error) {
	pairABI, err := v2PairABI()
	if err != nil {
		return nil, fmt.Errorf("poolstate: v2 abi: %w", err)
	}

	call := func(method string) ([]interface{}, error) {
		data, err := pairABI.Pack(method)
		if err != nil {
			return nil, fmt.Errorf("poolstate: pack %s: %w", method, err)
		}
		resp, err := pool.CallContract(ctx, ethereum.CallMsg{To: &pairAddress, Data: data}, blockNumber)
		if err != nil {
			return nil, fmt.Errorf("poolstate: call %s: %w", method, err)
		}
		values, err := pairABI.Unpack(method, resp)
		if err != nil {
			return nil, fmt.Errorf("poolstate: unpack %s: %w", method, err)
		}
		return values, nil
	}

	reservesOut, err := call("getReserves")
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
	supplyOut, err := call("totalSupply")
	if err != nil {
		return nil, err
	}

	reserve0 := reservesOut[0].(*big.Int)
	reserve1 := reservesOut[1].(*big.Int)

	state := &V2Reserves{
		Token0:      token0Out[0].(common.Address),
		Token1:      token1Out[0].(common.Address),
		Reserve0:    reserve0,
		Reserve1:    reserve1,
		TotalSupply: supplyOut[0].(*big.Int),
		K:           new(big.Int).Mul(reserve0, reserve1),
	}
	return state, nil
}

// V2Impact applies the canonical constant-product formula with the 0.3%
// swap fee (spec.md §4.4 V2 price impact) and returns the quoted amountOut
// plus the resulting price-impact percentage.
func V2Impact(reserves *V2Reserves, tokenIn common.Address, amountIn *big.Int, decimalsIn, decimalsOut uint8) (impactPercent float64, amountOut *big.Int, err error) {
	if reserves == nil || amountIn == nil || amountIn.Sign() < 0 {
		return 0, nil, fmt.Errorf("poolstate: invalid v2 impact inputs")
	}
	if amountIn.Sign() == 0 {
		return 0, big.NewInt(0), nil
	}

	var reserveIn, reserveOut *big.Int
	switch tokenIn {
	case reserves.Token0:
		reserveIn, reserveOut = reserves.Reserve0, reserves.Reserve1
	case reserves.Token1:
		reserveIn, reserveOut = reserves.Reserve1, reserves.Reserve0
	default:
		return 0, nil, fmt.Errorf("poolstate: tokenIn %s not in pool", tokenIn.Hex())
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return 0, nil, fmt.Errorf("poolstate: pool has zero reserves")
	}

	amountInWithFee := new(big.Int).Mul(amountIn, big.NewInt(997))
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Add(new(big.Int).Mul(reserveIn, big.NewInt(1000)), amountInWithFee)
	amountOut = new(big.Int).Div(numerator, denominator)

	reserveInDec := decimalAdjust(reserveIn, decimalsIn)
	reserveOutDec := decimalAdjust(reserveOut, decimalsOut)
	amountInDec := decimalAdjust(amountIn, decimalsIn)
	amountOutDec := decimalAdjust(amountOut, decimalsOut)

	priceBefore := new(big.Float).Quo(reserveOutDec, reserveInDec)
	newReserveIn := new(big.Float).Add(reserveInDec, amountInDec)
	newReserveOut := new(big.Float).Sub(reserveOutDec, amountOutDec)
	priceAfter := new(big.Float).Quo(newReserveOut, newReserveIn)

	impact := percentDelta(priceBefore, priceAfter)
	impactPercent, _ = impact.Float64()
	return impactPercent, amountOut, nil
}

// decimalAdjust divides raw by 10^decimals as a big.Float.
func decimalAdjust(raw *big.Int, decimals uint8) *big.Float {
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	return new(big.Float).Quo(new(big.Float).SetInt(raw), scale)
}

// percentDelta returns |before-after|/before * 100.
func percentDelta(before, after *big.Float) *big.Float {
	if before.Sign() == 0 {
		return big.NewFloat(0)
	}
	diff := new(big.Float).Sub(before, after)
	diff.Abs(diff)
	ratio := new(big.Float).Quo(diff, before)
	return new(big.Float).Mul(ratio, big.NewFloat(100))
}

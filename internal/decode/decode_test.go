package decode

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"sentryx/internal/addrnorm"
)

var (
	testRouter   = common.HexToAddress("0xd99d1c33f9fc3444f8101754abc46c52416550d")
	testWETH     = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	testTokenA   = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	testTokenB   = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	testTo       = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

func packCall(t *testing.T, routerABI abi.ABI, method string, args ...interface{}) []byte {
	t.Helper()
	data, err := routerABI.Pack(method, args...)
	if err != nil {
		t.Fatalf("pack %s: %v", method, err)
	}
	return data
}

func newLegacyTx(data []byte, value *big.Int) *types.Transaction {
	if value == nil {
		value = big.NewInt(0)
	}
	return types.NewTransaction(0, testRouter, value, 200000, big.NewInt(1), data)
}

func TestV2DecodeSwapExactTokensForTokens(t *testing.T) {
	routerABI, err := v2RouterABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	deadline := big.NewInt(1712000600)
	data := packCall(t, routerABI, methodSwapExactTokensForTokens,
		big.NewInt(1e18), big.NewInt(1), []common.Address{testTokenA, testTokenB}, testTo, deadline)

	swap, err := V2(newLegacyTx(data, nil), testRouter, testWETH)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if swap == nil {
		t.Fatal("expected decoded swap, got nil")
	}
	if swap.TokenIn != addrLower(testTokenA) || swap.TokenOut != addrLower(testTokenB) {
		t.Fatalf("unexpected token legs: %+v", swap)
	}
	if swap.AmountIn != "1000000000000000000" {
		t.Fatalf("unexpected amountIn: %s", swap.AmountIn)
	}
	if swap.RouterFamily != "v2" {
		t.Fatalf("unexpected family: %s", swap.RouterFamily)
	}
}

func TestV2DecodeSwapExactETHForTokensUsesTxValue(t *testing.T) {
	routerABI, err := v2RouterABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	deadline := big.NewInt(1712000600)
	data := packCall(t, routerABI, methodSwapExactETHForTokens,
		big.NewInt(1), []common.Address{testWETH, testTokenB}, testTo, deadline)

	swap, err := V2(newLegacyTx(data, big.NewInt(5e17)), testRouter, testWETH)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if swap == nil {
		t.Fatal("expected decoded swap, got nil")
	}
	if swap.AmountIn != "500000000000000000" {
		t.Fatalf("expected tx.value as amountIn, got %s", swap.AmountIn)
	}
	if swap.TokenIn != addrLower(testWETH) {
		t.Fatalf("expected wrapped native as tokenIn, got %s", swap.TokenIn)
	}
}

func TestV2DecodeUnrecognizedSelectorReturnsNil(t *testing.T) {
	swap, err := V2(newLegacyTx([]byte{0xde, 0xad, 0xbe, 0xef, 0x01}, nil), testRouter, testWETH)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if swap != nil {
		t.Fatalf("expected nil for unrecognized selector, got %+v", swap)
	}
}

func TestV3DecodeExactInputSingle(t *testing.T) {
	routerABI, err := v3RouterABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	data := packCall(t, routerABI, methodExactInputSingle, exactInputSingleParams{
		TokenIn:           testTokenA,
		TokenOut:          testTokenB,
		Fee:               big.NewInt(3000),
		Recipient:         testTo,
		Deadline:          big.NewInt(1712000600),
		AmountIn:          big.NewInt(1e18),
		AmountOutMinimum:  big.NewInt(1),
		SqrtPriceLimitX96: big.NewInt(0),
	})

	swap, err := V3(newLegacyTx(data, nil), testRouter)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if swap == nil {
		t.Fatal("expected decoded swap, got nil")
	}
	if swap.Fee != "3000" || swap.RouterFamily != "v3" {
		t.Fatalf("unexpected swap: %+v", swap)
	}
}

func TestV3DecodeExactInputWalksPackedPath(t *testing.T) {
	routerABI, err := v3RouterABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	mid := common.HexToAddress("0x2222222222222222222222222222222222222222")
	path := packV3Path(testTokenA, 500, mid, 3000, testTokenB)

	data := packCall(t, routerABI, methodExactInput, exactInputParams{
		Path:             path,
		Recipient:        testTo,
		Deadline:         big.NewInt(1712000600),
		AmountIn:         big.NewInt(1e18),
		AmountOutMinimum: big.NewInt(1),
	})

	swap, err := V3(newLegacyTx(data, nil), testRouter)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if swap == nil {
		t.Fatal("expected decoded swap, got nil")
	}
	if swap.TokenIn != addrLower(testTokenA) || swap.TokenOut != addrLower(testTokenB) {
		t.Fatalf("unexpected legs: %+v", swap)
	}
	if swap.Fee != "3000" {
		t.Fatalf("expected last-hop fee 3000, got %s", swap.Fee)
	}
}

func TestV3DecodeExactOutputSingleSetsAmountInZero(t *testing.T) {
	routerABI, err := v3RouterABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	data := packCall(t, routerABI, methodExactOutputSingle, exactOutputSingleParams{
		TokenIn:           testTokenA,
		TokenOut:          testTokenB,
		Fee:               big.NewInt(3000),
		Recipient:         testTo,
		Deadline:          big.NewInt(1712000600),
		AmountOut:         big.NewInt(1e18),
		AmountInMaximum:   big.NewInt(2e18),
		SqrtPriceLimitX96: big.NewInt(0),
	})

	swap, err := V3(newLegacyTx(data, nil), testRouter)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if swap == nil {
		t.Fatal("expected decoded swap, got nil")
	}
	if swap.AmountIn != "0" {
		t.Fatalf("expected amountIn \"0\" for exact-out, got %q", swap.AmountIn)
	}
	if swap.AmountInMax != "2000000000000000000" {
		t.Fatalf("unexpected amountInMax: %s", swap.AmountInMax)
	}
}

func TestV3DecodeExactOutputSetsAmountInZero(t *testing.T) {
	routerABI, err := v3RouterABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	mid := common.HexToAddress("0x2222222222222222222222222222222222222222")
	path := packV3Path(testTokenB, 500, mid, 3000, testTokenA)

	data := packCall(t, routerABI, methodExactOutput, exactOutputParams{
		Path:            path,
		Recipient:       testTo,
		Deadline:        big.NewInt(1712000600),
		AmountOut:       big.NewInt(1e18),
		AmountInMaximum: big.NewInt(2e18),
	})

	swap, err := V3(newLegacyTx(data, nil), testRouter)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if swap == nil {
		t.Fatal("expected decoded swap, got nil")
	}
	if swap.AmountIn != "0" {
		t.Fatalf("expected amountIn \"0\" for exact-out, got %q", swap.AmountIn)
	}
	// exactOutput's path is tokenOut-first, so tokenIn is the path's last leg.
	if swap.TokenIn != addrLower(testTokenA) || swap.TokenOut != addrLower(testTokenB) {
		t.Fatalf("unexpected legs: %+v", swap)
	}
}

func TestUniversalDecodeMixedCommands(t *testing.T) {
	routerABI, err := universalRouterABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	v2InABI, err := v2ExactInOnce.get()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}

	v2Input, err := v2InABI.Methods["_"].Inputs.Pack(testTo, big.NewInt(1e18), big.NewInt(1),
		[]common.Address{testTokenA, testTokenB}, true)
	if err != nil {
		t.Fatalf("pack v2 input: %v", err)
	}

	commands := []byte{tagV2ExactIn, 0x21} // 0x21 unrecognized, must be skipped
	inputs := [][]byte{v2Input, {}}
	data := packCall(t, routerABI, "execute", commands, inputs, big.NewInt(1712000600))

	swaps, err := Universal(newLegacyTx(data, nil), testRouter)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(swaps) != 1 {
		t.Fatalf("expected exactly one recognized swap, got %d", len(swaps))
	}
	if swaps[0].RouterFamily != "v2" || swaps[0].Method != "execute:V2_SWAP_EXACT_IN" {
		t.Fatalf("unexpected decoded swap: %+v", swaps[0])
	}
}

func TestUniversalDecodeAllUnrecognizedReturnsEmptyNotNil(t *testing.T) {
	routerABI, err := universalRouterABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	commands := []byte{0x21, 0x22}
	inputs := [][]byte{{}, {}}
	data := packCall(t, routerABI, "execute", commands, inputs, big.NewInt(1712000600))

	swaps, err := Universal(newLegacyTx(data, nil), testRouter)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if swaps == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(swaps) != 0 {
		t.Fatalf("expected no recognized swaps, got %d", len(swaps))
	}
}

func addrLower(a common.Address) string {
	return addrnorm.Lower(a)
}

func packV3Path(first common.Address, fee1 uint32, mid common.Address, fee2 uint32, last common.Address) []byte {
	path := append([]byte{}, first.Bytes()...)
	path = append(path, feeBytes(fee1)...)
	path = append(path, mid.Bytes()...)
	path = append(path, feeBytes(fee2)...)
	path = append(path, last.Bytes()...)
	return path
}

func feeBytes(fee uint32) []byte {
	return []byte{byte(fee >> 16), byte(fee >> 8), byte(fee)}
}

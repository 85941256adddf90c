package poolstate

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestV2ImpactOrientsByTokenIn(t *testing.T) {
	token0 := common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	token1 := common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	reserve1, ok := new(big.Int).SetString("500000000000000000000", 10) // 500e18
	if !ok {
		t.Fatal("bad reserve1 literal")
	}
	reserves := &V2Reserves{
		Token0:   token0,
		Token1:   token1,
		Reserve0: big.NewInt(1_000_000_000_000), // 1e6 units at 6 decimals
		Reserve1: reserve1,
	}

	impact, amountOut, err := V2Impact(reserves, token0, big.NewInt(1_000_000_000), 6, 18) // 1000 units at 6 decimals
	if err != nil {
		t.Fatalf("v2 impact: %v", err)
	}
	if amountOut.Sign() <= 0 {
		t.Fatalf("expected positive amountOut, got %s", amountOut.String())
	}
	// token0 in: reserveIn = reserve0, reserveOut = reserve1, so
	// 1e9*997*500e18 / (1e12*1000 + 1e9*997). The reversed orientation
	// would yield 1.
	if amountOut.String() != "498003490519951608" {
		t.Fatalf("expected amountOut 498003490519951608 from token0-oriented reserves, got %s", amountOut.String())
	}
	if impact <= 0 {
		t.Fatalf("expected positive price impact, got %f", impact)
	}
}

func TestV2ImpactRejectsUnrelatedToken(t *testing.T) {
	token0 := common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	token1 := common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	other := common.HexToAddress("0x3333333333333333333333333333333333333333")
	reserves := &V2Reserves{Token0: token0, Token1: token1, Reserve0: big.NewInt(1e6), Reserve1: big.NewInt(1e6)}

	_, _, err := V2Impact(reserves, other, big.NewInt(1), 18, 18)
	if err == nil {
		t.Fatal("expected error for token not in pool")
	}
}

func TestV2ImpactZeroAmountInYieldsZero(t *testing.T) {
	token0 := common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	token1 := common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	reserves := &V2Reserves{Token0: token0, Token1: token1, Reserve0: big.NewInt(1_000_000), Reserve1: big.NewInt(1_000_000)}

	impact, amountOut, err := V2Impact(reserves, token0, big.NewInt(0), 18, 18)
	if err != nil {
		t.Fatalf("v2 impact: %v", err)
	}
	if amountOut == nil || amountOut.Sign() != 0 {
		t.Fatalf("expected amountOut 0, got %v", amountOut)
	}
	if impact != 0 {
		t.Fatalf("expected impact 0, got %f", impact)
	}
}

func TestDecimalAdjustScalesDown(t *testing.T) {
	raw := big.NewInt(1_000_000) // 1 unit at 6 decimals
	f := decimalAdjust(raw, 6)
	got, _ := f.Float64()
	if got != 1.0 {
		t.Fatalf("expected 1.0, got %f", got)
	}
}

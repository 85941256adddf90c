package cache

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestSortAddressesIsOrderIndependent(t *testing.T) {
	a := common.HexToAddress("0xB000000000000000000000000000000000000001")
	b := common.HexToAddress("0xA000000000000000000000000000000000000002")

	t0, t1 := sortAddresses(a, b)
	u0, u1 := sortAddresses(b, a)

	if t0 != u0 || t1 != u1 {
		t.Fatalf("sortAddresses not order-independent: (%s,%s) vs (%s,%s)", t0.Hex(), t1.Hex(), u0.Hex(), u1.Hex())
	}
	if t0 != b {
		t.Fatalf("expected lexicographically smaller address first, got %s", t0.Hex())
	}
}

func TestFeeStringDefaultsWhenNil(t *testing.T) {
	if got := feeString(nil); got != defaultV3Fee {
		t.Fatalf("expected default fee %s, got %s", defaultV3Fee, got)
	}
	fee := uint32(500)
	if got := feeString(&fee); got != "500" {
		t.Fatalf("expected 500, got %s", got)
	}
}

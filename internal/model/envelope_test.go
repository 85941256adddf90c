package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestEnvelopeJSONRoundTrip(t *testing.T) {
	original := Envelope{
		TxHash: "0xdef456",
		DecodedTx: DecodedSwap{
			Router:       "0xd99d1c33f9fc3444f8101754abc46c52416550d1",
			Method:       "swapExactTokensForTokens",
			RouterFamily: FamilyV2,
			TokenIn:      "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2",
			TokenOut:     "0x8ac76a51cc950d9822d68b83fe1ad97b32cd580d",
			AmountIn:     "10000000000000000000",
			AmountOutMin: "1000000000000000000",
			Fee:          "0",
			Recipient:    "0x1111111111111111111111111111111111111111",
			Deadline:     "1712000600",
		},
		RouterAddress: "0xd99d1c33f9fc3444f8101754abc46c52416550d1",
		Timestamp:     1712000000000,
	}

	b, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded Envelope
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !reflect.DeepEqual(original, decoded) {
		t.Fatalf("round-trip mismatch: %+v != %+v", original, decoded)
	}
}

func TestDecodedSwapAmountsAreStrings(t *testing.T) {
	swap := DecodedSwap{AmountIn: "123456789012345678901234567890"}

	data, err := json.Marshal(swap)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var generic map[string]interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if _, ok := generic["amountIn"].(string); !ok {
		t.Fatalf("amountIn should be a JSON string, got %T", generic["amountIn"])
	}
}

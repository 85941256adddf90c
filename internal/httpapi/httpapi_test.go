package httpapi

import "testing"

func TestParseOpportunityPath(t *testing.T) {
	cases := []struct {
		path       string
		wantChain  uint64
		wantTxHash string
		wantOK     bool
	}{
		{"/opportunities/1/0xabc", 1, "0xabc", true},
		{"/opportunities/56/0xdeadbeef", 56, "0xdeadbeef", true},
		{"/opportunities/", 0, "", false},
		{"/opportunities/1/", 0, "", false},
		{"/opportunities/notanumber/0xabc", 0, "", false},
		{"/opportunities/1", 0, "", false},
	}

	for _, tc := range cases {
		chainID, txHash, ok := parseOpportunityPath(tc.path)
		if ok != tc.wantOK {
			t.Errorf("parseOpportunityPath(%q) ok = %v, want %v", tc.path, ok, tc.wantOK)
			continue
		}
		if !ok {
			continue
		}
		if chainID != tc.wantChain || txHash != tc.wantTxHash {
			t.Errorf("parseOpportunityPath(%q) = (%d, %q), want (%d, %q)", tc.path, chainID, txHash, tc.wantChain, tc.wantTxHash)
		}
	}
}

func TestParseIntDefault(t *testing.T) {
	if v := parseIntDefault("", 50); v != 50 {
		t.Errorf("empty input: got %d, want 50", v)
	}
	if v := parseIntDefault("not-a-number", 50); v != 50 {
		t.Errorf("invalid input: got %d, want 50", v)
	}
	if v := parseIntDefault("25", 50); v != 25 {
		t.Errorf("valid input: got %d, want 25", v)
	}
}

// Package addrnorm centralizes the lowercase-address convention every
// persisted row and wire record must follow (spec invariant: all on-chain
// addresses stored lowercase, all comparisons case-insensitive).
package addrnorm

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Lower returns the lowercase hex form of an address.
func Lower(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// LowerString lowercases an already-hex-encoded address string.
func LowerString(addr string) string {
	return strings.ToLower(addr)
}

// Equal reports whether two address strings are equal, ignoring case.
func Equal(a, b string) bool {
	return strings.EqualFold(a, b)
}

// InList reports whether addr (any case) matches any entry of list.
// list is expected to already be lowercased by the caller (configuration
// normalizes allow-lists once at load time); this still folds defensively.
func InList(addr string, list []string) bool {
	lower := strings.ToLower(addr)
	for _, candidate := range list {
		if strings.ToLower(candidate) == lower {
			return true
		}
	}
	return false
}

// IsZero reports whether addr is the zero address, the chain's universal
// "nothing here" sentinel used to mean "pool absent" / "factory absent".
func IsZero(addr common.Address) bool {
	return addr == (common.Address{})
}

// ToAddress parses a hex address string, case-insensitively.
func ToAddress(addr string) common.Address {
	return common.HexToAddress(addr)
}

package model

// RouterFamily identifies which pool/impact engine a decoded swap uses.
type RouterFamily string

const (
	FamilyV2 RouterFamily = "v2"
	FamilyV3 RouterFamily = "v3"
)

// DecodedSwap is the unified intermediate record produced by every decoder.
// Integers travel as decimal strings so 256-bit amounts round-trip exactly
// across the bus and through the database.
type DecodedSwap struct {
	Router        string       `json:"router"`
	Method        string       `json:"method"`
	RouterFamily  RouterFamily `json:"routerFamily"`
	TokenIn       string       `json:"tokenIn"`
	TokenOut      string       `json:"tokenOut"`
	AmountIn      string       `json:"amountIn"`
	AmountOut     string       `json:"amountOut"`
	AmountOutMin  string       `json:"amountOutMin"`
	AmountInMax   string       `json:"amountInMax"`
	Fee           string       `json:"fee"`
	Recipient     string       `json:"recipient"`
	Deadline      string       `json:"deadline"`
	PayerIsUser   bool         `json:"payerIsUser"`
}

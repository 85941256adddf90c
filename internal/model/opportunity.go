package model

import "encoding/json"

// OpportunityStatus is the lifecycle state of a persisted Opportunity.
type OpportunityStatus string

const (
	StatusPending  OpportunityStatus = "pending"
	StatusDetected OpportunityStatus = "detected"
	StatusExpired  OpportunityStatus = "expired"
)

// Opportunity is the unique-per-(chainId, txHash) verdict record written by
// the bus consumer and later swept by the cleanup loop.
type Opportunity struct {
	ID           int64             `json:"id,omitempty"`
	ChainID      uint64            `json:"chainId"`
	TxHash       string            `json:"txHash"`
	Router       string            `json:"router"`
	RouterFamily RouterFamily      `json:"routerFamily"`
	TokenIn      string            `json:"tokenIn"`
	TokenOut     string            `json:"tokenOut"`
	AmountIn     string            `json:"amountIn"`
	AmountOut    string            `json:"amountOut"`
	AmountOutMin string            `json:"amountOutMin"`
	Fee          string            `json:"fee"`
	PoolAddress  string            `json:"poolAddress"`
	Method       string            `json:"method"`
	Recipient    string            `json:"recipient"`
	Deadline     string            `json:"deadline"`
	BlockNumber  *uint64           `json:"blockNumber,omitempty"`
	Status       OpportunityStatus `json:"status"`
	Metadata     OpportunityMeta   `json:"metadata"`
	DetectedAt   string            `json:"detectedAt"`
	ProcessedAt  string            `json:"processedAt"`
}

// OpportunityMeta is the free-form metadata bag attached to every
// persisted opportunity, carrying the evaluator's verdict detail alongside
// the original decoded swap for downstream consumers that want it.
type OpportunityMeta struct {
	Decimals            TokenDecimals   `json:"decimals"`
	DecodedTx           DecodedSwap     `json:"decodedTx"`
	Reason              string          `json:"reason"`
	PriceImpact         float64         `json:"priceImpact"`
	ExpectedProfit      string          `json:"expectedProfit,omitempty"`
	TimeToSubmitSeconds int64           `json:"timeToSubmitSeconds"`
	DeadlineTimestamp   int64           `json:"deadlineTimestamp"`
	IsExpired           bool            `json:"isExpired"`
}

// TokenDecimals carries the decimals resolved for tokenIn/tokenOut, needed
// downstream to render amounts without re-querying the token cache.
type TokenDecimals struct {
	TokenIn  uint8 `json:"tokenIn"`
	TokenOut uint8 `json:"tokenOut"`
}

// MarshalJSON ensures Opportunity encodes with stable field ordering via
// its declared tags, matching the teacher's LogRecord round-trip idiom.
func (o Opportunity) MarshalJSON() ([]byte, error) {
	type alias Opportunity
	return json.Marshal(alias(o))
}

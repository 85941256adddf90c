package model

// TokenRecord is the content-addressed cache entry for (chainId, tokenAddress).
type TokenRecord struct {
	ChainID      uint64 `json:"chainId"`
	TokenAddress string `json:"tokenAddress"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	Decimals     uint8  `json:"decimals"`
}

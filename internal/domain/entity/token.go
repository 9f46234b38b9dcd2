package entity

import "math/big"

// TokenMetadata holds the read-only ERC-20 identity of a token contract.
// All three fields come from independent contract calls and are only ever
// populated together.
type TokenMetadata struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// TokenScanResult is the outcome of one stateless token scan. Balances stay
// raw base-unit integers; no decimal conversion happens anywhere in the report
// path to avoid precision loss.
type TokenScanResult struct {
	TokenAddress     string        `json:"tokenAddress"`
	OwnerAddress     string        `json:"ownerAddress"`
	Metadata         TokenMetadata `json:"metadata"`
	RawBalance       *big.Int      `json:"-"`
	RawBalanceString string        `json:"rawBalance"`
	TokenExplorerURL string        `json:"tokenExplorerUrl"`
	OwnerExplorerURL string        `json:"ownerExplorerUrl"`
	PriceUSD         float64       `json:"priceUsd,omitempty"`
	HasPrice         bool          `json:"-"`
}

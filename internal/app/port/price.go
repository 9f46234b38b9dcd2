package port

import "context"

// TokenPriceService resolves USD prices for token contracts. Price data is
// best-effort enrichment; callers must treat a missing price as a non-error.
type TokenPriceService interface {
	// GetPriceUSD returns the cached or freshly fetched USD price for a token
	// on the given DEXScreener chain id. The second return value reports
	// whether a price was available at all.
	GetPriceUSD(ctx context.Context, dexScreenerChainID string, tokenAddress string) (float64, bool)
}

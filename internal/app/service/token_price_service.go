package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wallet_scanner/internal/app/port"
	"wallet_scanner/internal/client"
	"wallet_scanner/internal/config"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// tokenPriceServiceImpl implements the TokenPriceService interface with a TTL
// cache in front of the DEX Screener client.
type tokenPriceServiceImpl struct {
	logger            *zap.Logger
	dexscreenerClient client.DEXScreenerClient
	pricesCache       *cache.Cache // key format "chainID_tokenAddress" -> price (float64)
	requestTimeout    time.Duration
}

// NewTokenPriceService creates a new instance of TokenPriceService.
func NewTokenPriceService(cfg *config.Config, dexscreenerClient client.DEXScreenerClient, logger *zap.Logger) port.TokenPriceService {
	return &tokenPriceServiceImpl{
		logger:            logger.Named("TokenPriceService"),
		dexscreenerClient: dexscreenerClient,
		pricesCache:       cache.New(time.Duration(cfg.PriceService.CacheTTLMinutes)*time.Minute, 10*time.Minute),
		requestTimeout:    time.Duration(cfg.DEXScreener.RequestTimeoutMillis) * time.Millisecond,
	}
}

// GetPriceUSD serves a token price from the cache, fetching and caching it on
// a miss. A failed lookup is reported as "no price", never as an error.
func (s *tokenPriceServiceImpl) GetPriceUSD(ctx context.Context, dexScreenerChainID string, tokenAddress string) (float64, bool) {
	if dexScreenerChainID == "" {
		return 0, false
	}

	key := priceCacheKey(dexScreenerChainID, tokenAddress)
	if cached, found := s.pricesCache.Get(key); found {
		if price, ok := cached.(float64); ok {
			return price, true
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	price, err := s.dexscreenerClient.GetTokenPriceUSD(fetchCtx, dexScreenerChainID, tokenAddress)
	if err != nil {
		s.logger.Warn("Token price lookup failed",
			zap.String("chain", dexScreenerChainID),
			zap.String("token", tokenAddress),
			zap.Error(err))
		return 0, false
	}

	s.pricesCache.Set(key, price, cache.DefaultExpiration)
	return price, true
}

func priceCacheKey(chainID, tokenAddress string) string {
	return fmt.Sprintf("%s_%s", chainID, strings.ToLower(tokenAddress))
}

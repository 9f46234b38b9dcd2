package client

import (
	"fmt"
	"sync"
	"time"

	"wallet_scanner/internal/app/port"
	"wallet_scanner/internal/config"
	"wallet_scanner/internal/domain/entity"

	"go.uber.org/zap"
)

// evmClientProvider implements port.ChainReaderProvider. It caches one client
// per chain id so toggling back and forth between the two targets does not
// re-dial; the session still rebinds to a fresh lookup on every connect.
type evmClientProvider struct {
	clients           map[uint64]port.ChainReader
	mu                sync.Mutex
	logger            *zap.Logger
	connectionTimeout time.Duration
	rpcCallTimeout    time.Duration
	rateLimit         int
	burstLimit        int
}

// NewEVMClientProvider creates a new chain reader provider.
func NewEVMClientProvider(cfg *config.Config, logger *zap.Logger) port.ChainReaderProvider {
	return &evmClientProvider{
		clients:           make(map[uint64]port.ChainReader),
		logger:            logger.Named("EVMClientProvider"),
		connectionTimeout: time.Duration(cfg.RpcClient.ConnectionTimeoutMs) * time.Millisecond,
		rpcCallTimeout:    time.Duration(cfg.RpcClient.CallTimeoutMs) * time.Millisecond,
		rateLimit:         cfg.RpcClient.RateLimit,
		burstLimit:        cfg.RpcClient.BurstLimit,
	}
}

// GetReader retrieves the chain reader bound to the given target.
func (p *evmClientProvider) GetReader(target entity.ChainTarget) (port.ChainReader, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if reader, exists := p.clients[target.ChainID]; exists {
		return reader, nil
	}

	p.logger.Info("Creating new EVM read client",
		zap.String("chain", target.Name),
		zap.String("rpc", target.RPCURL))

	reader, err := NewEVMClient(target, p.connectionTimeout, p.rpcCallTimeout, p.rateLimit, p.burstLimit)
	if err != nil {
		p.logger.Error("Failed to create EVM read client", zap.String("chain", target.Name), zap.Error(err))
		return nil, fmt.Errorf("failed to create EVM client for %s: %w", target.Name, err)
	}

	p.clients[target.ChainID] = reader
	return reader, nil
}

package provider

import (
	"fmt"
	"time"

	"wallet_scanner/internal/app/port"
	"wallet_scanner/internal/domain/entity"

	"go.uber.org/zap"
)

// AccountProvider is the account-oriented variant: it is created knowing both
// supported chains and leaves the choice of active chain to reconciliation.
type AccountProvider struct {
	*headlessWallet
}

// NewAccountProvider builds the account-oriented provider from application
// metadata and the set of supported chain targets. Construction performs no
// network activity.
func NewAccountProvider(meta entity.AppMetadata, accounts []string, chains []entity.ChainTarget, dialTimeout time.Duration, logger *zap.Logger) (*AccountProvider, error) {
	if len(chains) == 0 {
		return nil, fmt.Errorf("account provider requires at least one supported chain")
	}

	wallet := newHeadlessWallet(meta, accounts, dialTimeout, logger.Named("AccountProvider"))
	for _, chain := range chains {
		wallet.registerChain(chain.HexChainID(), chain.Name, chain.RPCURL)
	}
	// The active chain defaults to the first supported one; EnsureChain moves
	// it to the session's target before any read happens.
	wallet.activeHexID = chains[0].HexChainID()
	return &AccountProvider{headlessWallet: wallet}, nil
}

// WalletProvider is the wallet-oriented variant: it is created with one
// explicit RPC URL and chain id.
type WalletProvider struct {
	*headlessWallet
}

// NewWalletProvider builds the wallet-oriented provider from application
// metadata plus a single endpoint and chain id. Construction performs no
// network activity.
func NewWalletProvider(meta entity.AppMetadata, accounts []string, rpcURL string, chainID uint64, dialTimeout time.Duration, logger *zap.Logger) (*WalletProvider, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("wallet provider requires an RPC URL")
	}

	hexID := fmt.Sprintf("0x%x", chainID)
	wallet := newHeadlessWallet(meta, accounts, dialTimeout, logger.Named("WalletProvider"))
	wallet.registerChain(hexID, fmt.Sprintf("chain %d", chainID), rpcURL)
	wallet.activeHexID = hexID
	return &WalletProvider{headlessWallet: wallet}, nil
}

// Factory builds providers for the session service.
type Factory struct {
	meta        entity.AppMetadata
	accounts    []string
	dialTimeout time.Duration
	logger      *zap.Logger
}

// NewFactory creates a provider factory carrying the application metadata and
// the watch-only account set.
func NewFactory(meta entity.AppMetadata, accounts []string, dialTimeout time.Duration, logger *zap.Logger) *Factory {
	return &Factory{
		meta:        meta,
		accounts:    accounts,
		dialTimeout: dialTimeout,
		logger:      logger,
	}
}

// NewProvider constructs the requested provider variant. The account variant
// receives both supported targets; the wallet variant is bound to the active
// target's endpoint.
func (f *Factory) NewProvider(kind port.ProviderKind, active entity.ChainTarget) (port.EIP1193Provider, error) {
	switch kind {
	case port.ProviderKindAccount:
		return NewAccountProvider(f.meta, f.accounts, []entity.ChainTarget{active, active.Other()}, f.dialTimeout, f.logger)
	case port.ProviderKindWallet:
		return NewWalletProvider(f.meta, f.accounts, active.RPCURL, active.ChainID, f.dialTimeout, f.logger)
	default:
		return nil, fmt.Errorf("unknown provider kind %q", kind)
	}
}

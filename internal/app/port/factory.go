package port

import "wallet_scanner/internal/domain/entity"

// ProviderFactory constructs wallet provider handles for the session.
type ProviderFactory interface {
	// NewProvider builds the requested provider variant for the active target.
	NewProvider(kind ProviderKind, active entity.ChainTarget) (EIP1193Provider, error)
}

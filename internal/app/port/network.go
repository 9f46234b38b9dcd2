package port

import (
	"context"
	"math/big"

	"wallet_scanner/internal/domain/entity"
)

// ChainReader is a read-only JSON-RPC client bound to exactly one chain
// target at construction time. A reader must be rebuilt whenever the active
// target changes or a new connection is established.
type ChainReader interface {
	// GetNativeBalance fetches the native currency balance in wei.
	GetNativeBalance(ctx context.Context, address string) (*big.Int, error)

	// GetBlockNumber fetches the current block height.
	GetBlockNumber(ctx context.Context) (uint64, error)

	// GetTokenMetadata issues the name(), symbol() and decimals() contract
	// reads concurrently. Any one of them failing fails the whole call; no
	// partial result is ever returned.
	GetTokenMetadata(ctx context.Context, tokenAddress string) (entity.TokenMetadata, error)

	// GetTokenBalance reads balanceOf(owner) on the token contract.
	GetTokenBalance(ctx context.Context, tokenAddress string, ownerAddress string) (*big.Int, error)

	// Target returns the chain target this reader is bound to.
	Target() entity.ChainTarget
}

// ChainReaderProvider hands out chain readers for a target.
type ChainReaderProvider interface {
	GetReader(target entity.ChainTarget) (ChainReader, error)
}

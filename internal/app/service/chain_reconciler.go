package service

import (
	"context"
	"fmt"
	"strings"

	"wallet_scanner/internal/app/port"
	"wallet_scanner/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// ChainReconciler aligns a connected provider's active chain with a target.
type ChainReconciler struct {
	logger *zap.Logger
}

// NewChainReconciler creates a new ChainReconciler.
func NewChainReconciler(logger *zap.Logger) *ChainReconciler {
	return &ChainReconciler{logger: logger.Named("ChainReconciler")}
}

// EnsureChain makes the provider's active chain equal the target. If the
// current chain already matches (case-insensitively) nothing is issued. An
// unrecognized-chain failure (code 4902) on switch triggers a single
// add-then-retry fallback; every other failure propagates unchanged.
func (r *ChainReconciler) EnsureChain(ctx context.Context, prov port.EIP1193Provider, target entity.ChainTarget) error {
	raw, err := prov.Request(ctx, "eth_chainId")
	if err != nil {
		return fmt.Errorf("failed to query current chain id: %w", err)
	}
	var current string
	if err := codec.Unmarshal(raw, &current); err != nil {
		return fmt.Errorf("failed to decode chain id %q: %w", string(raw), err)
	}

	if strings.EqualFold(current, target.HexChainID()) {
		r.logger.Debug("Provider already on target chain", zap.String("chainId", current))
		return nil
	}

	switchParam := entity.SwitchEthereumChainParam{ChainID: target.HexChainID()}
	if _, err := prov.Request(ctx, "wallet_switchEthereumChain", switchParam); err == nil {
		r.logger.Info("Switched provider to target chain",
			zap.String("from", current),
			zap.String("to", target.HexChainID()))
		return nil
	} else if code, ok := entity.ProviderErrorCode(err); !ok || code != entity.ErrCodeUnrecognizedChain {
		return fmt.Errorf("failed to switch to chain %s: %w", target.HexChainID(), err)
	}

	// Wallets without the target chain registered answer 4902; the standard
	// recovery is register-then-switch, once.
	r.logger.Info("Target chain not registered with provider, adding it",
		zap.String("chainId", target.HexChainID()),
		zap.String("chain", target.Name))
	if _, err := prov.Request(ctx, "wallet_addEthereumChain", target.AddChainParam()); err != nil {
		return fmt.Errorf("failed to add chain %s: %w", target.HexChainID(), err)
	}
	if _, err := prov.Request(ctx, "wallet_switchEthereumChain", switchParam); err != nil {
		return fmt.Errorf("failed to switch to chain %s after adding it: %w", target.HexChainID(), err)
	}

	r.logger.Info("Switched provider to target chain after registration",
		zap.String("chainId", target.HexChainID()))
	return nil
}

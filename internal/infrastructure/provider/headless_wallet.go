package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"wallet_scanner/internal/app/port"
	"wallet_scanner/internal/domain/entity"
	"wallet_scanner/internal/pkg/metrics"

	"github.com/ethereum/go-ethereum/rpc"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// registeredChain is one chain known to a headless wallet, keyed by its
// lowercase hex chain id.
type registeredChain struct {
	hexChainID string
	name       string
	rpcURL     string
}

// headlessWallet is the shared core of both provider variants: a watch-only
// wallet that answers the standard injected-provider method set locally and
// passes every other eth_* method through to the active chain's RPC endpoint.
// No endpoint is dialed before the first passthrough request.
type headlessWallet struct {
	meta     entity.AppMetadata
	accounts []string
	logger   *zap.Logger

	dialTimeout time.Duration

	mu          sync.Mutex
	chains      map[string]registeredChain
	activeHexID string
	clients     map[string]*rpc.Client
}

func newHeadlessWallet(meta entity.AppMetadata, accounts []string, dialTimeout time.Duration, logger *zap.Logger) *headlessWallet {
	return &headlessWallet{
		meta:        meta,
		accounts:    append([]string(nil), accounts...),
		logger:      logger,
		dialTimeout: dialTimeout,
		chains:      make(map[string]registeredChain),
		clients:     make(map[string]*rpc.Client),
	}
}

func (w *headlessWallet) registerChain(hexChainID, name, rpcURL string) {
	key := strings.ToLower(hexChainID)
	w.chains[key] = registeredChain{hexChainID: key, name: name, rpcURL: rpcURL}
}

// Request implements port.EIP1193Provider.
func (w *headlessWallet) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	metrics.ProviderRequests.WithLabelValues(method).Inc()

	switch method {
	case "eth_requestAccounts", "eth_accounts":
		return w.requestAccounts()
	case "eth_chainId":
		return w.chainID()
	case "wallet_switchEthereumChain":
		return w.switchChain(params)
	case "wallet_addEthereumChain":
		return w.addChain(params)
	default:
		return w.passthrough(ctx, method, params)
	}
}

func (w *headlessWallet) requestAccounts() (json.RawMessage, error) {
	if len(w.accounts) == 0 {
		return nil, &entity.ProviderError{
			Code:    entity.ErrCodeUserRejected,
			Message: "no accounts available",
		}
	}
	return codec.Marshal(w.accounts)
}

func (w *headlessWallet) chainID() (json.RawMessage, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return codec.Marshal(w.activeHexID)
}

func (w *headlessWallet) switchChain(params []any) (json.RawMessage, error) {
	var req entity.SwitchEthereumChainParam
	if err := decodeParam(params, &req); err != nil {
		return nil, err
	}
	key := strings.ToLower(req.ChainID)

	w.mu.Lock()
	defer w.mu.Unlock()
	chain, ok := w.chains[key]
	if !ok {
		return nil, &entity.ProviderError{
			Code:    entity.ErrCodeUnrecognizedChain,
			Message: fmt.Sprintf("unrecognized chain id %s", req.ChainID),
		}
	}
	w.activeHexID = chain.hexChainID
	w.logger.Debug("Switched active chain", zap.String("chainId", chain.hexChainID), zap.String("chain", chain.name))
	return json.RawMessage("null"), nil
}

func (w *headlessWallet) addChain(params []any) (json.RawMessage, error) {
	var req entity.AddEthereumChainParam
	if err := decodeParam(params, &req); err != nil {
		return nil, err
	}
	if req.ChainID == "" || len(req.RPCURLs) == 0 {
		return nil, &entity.ProviderError{
			Code:    entity.ErrCodeUnsupportedMethod,
			Message: "wallet_addEthereumChain requires chainId and rpcUrls",
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.registerChain(req.ChainID, req.ChainName, req.RPCURLs[0])
	w.logger.Info("Registered chain", zap.String("chainId", req.ChainID), zap.String("chain", req.ChainName))
	return json.RawMessage("null"), nil
}

func (w *headlessWallet) passthrough(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	client, err := w.activeClient(ctx)
	if err != nil {
		return nil, err
	}

	var result json.RawMessage
	if err := client.CallContext(ctx, &result, method, params...); err != nil {
		return nil, fmt.Errorf("provider request %s failed: %w", method, err)
	}
	return result, nil
}

// activeClient returns the RPC client for the active chain, dialing it on
// first use.
func (w *headlessWallet) activeClient(ctx context.Context) (*rpc.Client, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.activeHexID == "" {
		return nil, &entity.ProviderError{
			Code:    entity.ErrCodeUnsupportedMethod,
			Message: "no active chain",
		}
	}
	if client, ok := w.clients[w.activeHexID]; ok {
		return client, nil
	}

	chain := w.chains[w.activeHexID]
	dialCtx, cancel := context.WithTimeout(ctx, w.dialTimeout)
	defer cancel()

	client, err := rpc.DialContext(dialCtx, chain.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC %s: %w", chain.rpcURL, err)
	}
	w.clients[w.activeHexID] = client
	return client, nil
}

// Close releases all dialed RPC connections.
func (w *headlessWallet) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for key, client := range w.clients {
		client.Close()
		delete(w.clients, key)
	}
}

// decodeParam reinterprets the first positional param as the given request
// struct, accepting maps, structs or raw JSON equally.
func decodeParam(params []any, out any) error {
	if len(params) == 0 {
		return &entity.ProviderError{
			Code:    entity.ErrCodeUnsupportedMethod,
			Message: "missing request param",
		}
	}
	raw, err := codec.Marshal(params[0])
	if err != nil {
		return fmt.Errorf("failed to encode request param: %w", err)
	}
	if err := codec.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode request param: %w", err)
	}
	return nil
}

var _ port.EIP1193Provider = (*headlessWallet)(nil)

package entity

import "errors"

// EIP-1193 provider error codes used by this application.
const (
	ErrCodeUserRejected      = 4001
	ErrCodeUnsupportedMethod = 4200
	ErrCodeUnrecognizedChain = 4902
)

// ProviderError is a wallet provider failure carrying an EIP-1193 error code.
// It satisfies go-ethereum's rpc.Error interface.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string { return e.Message }

// ErrorCode returns the EIP-1193 error code.
func (e *ProviderError) ErrorCode() int { return e.Code }

// ProviderErrorCode extracts an EIP-1193/JSON-RPC error code from any error in
// the chain, whether it comes from a headless provider or a real wallet.
func ProviderErrorCode(err error) (int, bool) {
	var coded interface{ ErrorCode() int }
	if errors.As(err, &coded) {
		return coded.ErrorCode(), true
	}
	return 0, false
}

// SwitchEthereumChainParam is the wallet_switchEthereumChain request object
// (EIP-3326).
type SwitchEthereumChainParam struct {
	ChainID string `json:"chainId"`
}

// NativeCurrency describes the native currency in an add-chain request.
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// AddEthereumChainParam is the wallet_addEthereumChain request object
// (EIP-3085).
type AddEthereumChainParam struct {
	ChainID           string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls"`
}

// AddChainParam builds the wallet_addEthereumChain payload for a target. Both
// supported targets use Ether as native currency.
func (t ChainTarget) AddChainParam() AddEthereumChainParam {
	return AddEthereumChainParam{
		ChainID:   t.HexChainID(),
		ChainName: t.Name,
		NativeCurrency: NativeCurrency{
			Name:     "Ether",
			Symbol:   "ETH",
			Decimals: 18,
		},
		RPCURLs:           []string{t.RPCURL},
		BlockExplorerURLs: []string{t.BlockExplorerURL},
	}
}

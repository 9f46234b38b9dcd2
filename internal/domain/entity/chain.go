package entity

import "fmt"

// ChainTarget holds the static description of one of the two supported networks.
// Targets are immutable; the session only ever points at one of the two
// predefined values below.
type ChainTarget struct {
	ChainID            uint64 `json:"chainId" yaml:"chainId"`
	Name               string `json:"name" yaml:"name"`
	RPCURL             string `json:"rpcUrl" yaml:"rpcUrl"`
	BlockExplorerURL   string `json:"blockExplorerUrl" yaml:"blockExplorerUrl"`
	DEXScreenerChainID string `json:"dexScreenerChainId,omitempty" yaml:"dexScreenerChainId,omitempty"`
}

// Predefined chain targets. Both use ETH (18 decimals) as native currency.
var (
	BaseSepolia = ChainTarget{
		ChainID:          84532,
		Name:             "Base Sepolia",
		RPCURL:           "https://sepolia.base.org",
		BlockExplorerURL: "https://sepolia.basescan.org",
		// DEXScreener does not index testnets; price lookups are skipped.
	}
	Base = ChainTarget{
		ChainID:            8453,
		Name:               "Base Mainnet",
		RPCURL:             "https://mainnet.base.org",
		BlockExplorerURL:   "https://basescan.org",
		DEXScreenerChainID: "base",
	}
)

// HexChainID returns the 0x-prefixed lowercase hex form of the chain id, the
// representation wallet_switchEthereumChain and eth_chainId use on the wire.
func (t ChainTarget) HexChainID() string {
	return fmt.Sprintf("0x%x", t.ChainID)
}

// AddressURL returns the block explorer page for an address on this chain.
func (t ChainTarget) AddressURL(address string) string {
	return fmt.Sprintf("%s/address/%s", t.BlockExplorerURL, address)
}

// Other returns the opposite target of the fixed pair. Toggling is
// deterministic: BaseSepolia -> Base -> BaseSepolia.
func (t ChainTarget) Other() ChainTarget {
	if t.ChainID == BaseSepolia.ChainID {
		return Base
	}
	return BaseSepolia
}

package entity

// Connection records the result of a successful connect sequence. It is
// invalidated (set back to nil) on network toggle or reconnection.
type Connection struct {
	Address    string `json:"address"`
	ChainID    uint64 `json:"chainId"`
	HexChainID string `json:"hexChainId"`
}

// AppMetadata is the display metadata handed to provider constructors.
type AppMetadata struct {
	Name    string `json:"name" yaml:"name"`
	LogoURL string `json:"logoUrl" yaml:"logoUrl"`
}

package port

import (
	"context"

	"wallet_scanner/internal/domain/entity"
)

// SessionState names the presentation states of the single scanning session.
type SessionState string

const (
	StateDisconnected SessionState = "disconnected"
	StateConnecting   SessionState = "connecting"
	StateConnected    SessionState = "connected"
	StateScanning     SessionState = "scanning"
)

// ProviderKind selects which provider variant a connect uses.
type ProviderKind string

const (
	// ProviderKindAccount is the account-oriented variant: constructed with
	// both supported chains, the active chain settled by reconciliation.
	ProviderKindAccount ProviderKind = "account"
	// ProviderKindWallet is the wallet-oriented variant: constructed with one
	// explicit RPC URL and chain id.
	ProviderKindWallet ProviderKind = "wallet"
)

// SessionSnapshot is a point-in-time copy of the session for rendering.
type SessionSnapshot struct {
	State        SessionState       `json:"state"`
	ActiveTarget entity.ChainTarget `json:"activeTarget"`
	Connection   *entity.Connection `json:"connection,omitempty"`
	CanScan      bool               `json:"canScan"`
	Report       []string           `json:"report"`
}

// SessionService is the presentation-facing session state machine. All methods
// are safe for concurrent use; at most one connect or scan runs at a time.
type SessionService interface {
	// Snapshot returns the current session state and the last report.
	Snapshot() SessionSnapshot

	// Connect runs the full connect sequence for the given provider kind and
	// returns the welcome report on success. On failure the session stays
	// disconnected.
	Connect(ctx context.Context, kind ProviderKind) ([]string, error)

	// Scan validates the addresses, reads token metadata and balance, and
	// returns the scan report. Requires an established connection.
	Scan(ctx context.Context, tokenAddress, ownerAddress string) ([]string, error)

	// ToggleNetwork flips the active target between the two fixed chains,
	// clears the connection and bound reader, and resets to disconnected.
	ToggleNetwork() SessionSnapshot

	// ExampleAddresses returns the example token for the active chain and the
	// connected address. Requires an established connection.
	ExampleAddresses() (tokenAddress, ownerAddress string, err error)
}

package port

import (
	"context"
	"encoding/json"
)

// EIP1193Provider is the single capability a connected wallet exposes to the
// application: an asynchronous request call carrying a JSON-RPC method name
// and its positional params. Implementations perform no network activity
// before the first Request.
type EIP1193Provider interface {
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

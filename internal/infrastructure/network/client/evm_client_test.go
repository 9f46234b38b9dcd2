package client

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wallet_scanner/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

type rpcRequest struct {
	ID     any    `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

// newFakeNode serves a minimal JSON-RPC node. eth_call is dispatched on the
// four-byte selector of the calldata; a nil response installs a revert.
func newFakeNode(t *testing.T, callResults map[string][]byte, balanceWei string, blockNumber string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		reply := func(result any) {
			_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
		}
		replyErr := func(message string) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0",
				"id":      req.ID,
				"error":   map[string]any{"code": -32000, "message": message},
			})
		}

		switch req.Method {
		case "eth_getBalance":
			reply(balanceWei)
		case "eth_blockNumber":
			reply(blockNumber)
		case "eth_call":
			callObj, ok := req.Params[0].(map[string]any)
			if !ok {
				replyErr("bad call object")
				return
			}
			data, _ := callObj["data"].(string)
			if data == "" {
				// go-ethereum's ethclient sends calldata as "input".
				data, _ = callObj["input"].(string)
			}
			for selector, output := range callResults {
				if strings.HasPrefix(strings.ToLower(data), selector) {
					if output == nil {
						replyErr("execution reverted")
						return
					}
					reply(hexutil.Encode(output))
					return
				}
			}
			replyErr("unexpected calldata " + data)
		default:
			replyErr("unexpected method " + req.Method)
		}
	}))
}

func packOutput(t *testing.T, method string, value any) []byte {
	t.Helper()
	initParsedERC20ABI()
	out, err := parsedERC20ABI.Methods[method].Outputs.Pack(value)
	if err != nil {
		t.Fatalf("pack %s output: %v", method, err)
	}
	return out
}

func selector(t *testing.T, method string) string {
	t.Helper()
	initParsedERC20ABI()
	return strings.ToLower(hexutil.Encode(parsedERC20ABI.Methods[method].ID))
}

func newTestClient(t *testing.T, url string) *EVMClient {
	t.Helper()
	target := entity.ChainTarget{
		ChainID:          84532,
		Name:             "Base Sepolia",
		RPCURL:           url,
		BlockExplorerURL: "https://sepolia.basescan.org",
	}
	reader, err := NewEVMClient(target, time.Second, time.Second, 100, 100)
	if err != nil {
		t.Fatalf("NewEVMClient: %v", err)
	}
	return reader.(*EVMClient)
}

func TestEVMClientGetNativeBalance(t *testing.T) {
	t.Parallel()

	srv := newFakeNode(t, nil, "0xde0b6b3a7640000", "0x10") // 1 ether
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	balance, err := c.GetNativeBalance(context.Background(), "0x000000000000000000000000000000000000dEaD")
	if err != nil {
		t.Fatalf("GetNativeBalance: %v", err)
	}
	if balance.String() != "1000000000000000000" {
		t.Fatalf("balance = %s, want 1000000000000000000", balance.String())
	}
}

func TestEVMClientGetBlockNumber(t *testing.T) {
	t.Parallel()

	srv := newFakeNode(t, nil, "0x0", "0x1a4")
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	blockNumber, err := c.GetBlockNumber(context.Background())
	if err != nil {
		t.Fatalf("GetBlockNumber: %v", err)
	}
	if blockNumber != 420 {
		t.Fatalf("blockNumber = %d, want 420", blockNumber)
	}
}

func TestEVMClientGetTokenMetadata(t *testing.T) {
	t.Parallel()

	results := map[string][]byte{
		selector(t, "name"):     packOutput(t, "name", "Wrapped Ether"),
		selector(t, "symbol"):   packOutput(t, "symbol", "WETH"),
		selector(t, "decimals"): packOutput(t, "decimals", uint8(18)),
	}
	srv := newFakeNode(t, results, "0x0", "0x1")
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	meta, err := c.GetTokenMetadata(context.Background(), "0x4200000000000000000000000000000000000006")
	if err != nil {
		t.Fatalf("GetTokenMetadata: %v", err)
	}
	want := entity.TokenMetadata{Name: "Wrapped Ether", Symbol: "WETH", Decimals: 18}
	if meta != want {
		t.Fatalf("metadata = %+v, want %+v", meta, want)
	}
}

func TestEVMClientGetTokenMetadataAllOrNothing(t *testing.T) {
	t.Parallel()

	// symbol() reverts; the whole metadata read must fail with no partial
	// result observable.
	results := map[string][]byte{
		selector(t, "name"):     packOutput(t, "name", "Wrapped Ether"),
		selector(t, "symbol"):   nil,
		selector(t, "decimals"): packOutput(t, "decimals", uint8(18)),
	}
	srv := newFakeNode(t, results, "0x0", "0x1")
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	meta, err := c.GetTokenMetadata(context.Background(), "0x4200000000000000000000000000000000000006")
	if err == nil {
		t.Fatal("GetTokenMetadata succeeded, want error")
	}
	if meta != (entity.TokenMetadata{}) {
		t.Fatalf("metadata = %+v, want zero value on failure", meta)
	}
}

func TestEVMClientGetTokenBalance(t *testing.T) {
	t.Parallel()

	wantBalance, _ := new(big.Int).SetString("12345678", 10)
	results := map[string][]byte{
		selector(t, "balanceOf"): packOutput(t, "balanceOf", wantBalance),
	}
	srv := newFakeNode(t, results, "0x0", "0x1")
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	balance, err := c.GetTokenBalance(context.Background(),
		"0x4200000000000000000000000000000000000006",
		"0x000000000000000000000000000000000000dEaD")
	if err != nil {
		t.Fatalf("GetTokenBalance: %v", err)
	}
	if balance.Cmp(wantBalance) != 0 {
		t.Fatalf("balance = %s, want %s", balance.String(), wantBalance.String())
	}
}

func TestEVMClientTargetBinding(t *testing.T) {
	t.Parallel()

	srv := newFakeNode(t, nil, "0x0", "0x1")
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if got := c.Target().ChainID; got != 84532 {
		t.Fatalf("Target().ChainID = %d, want 84532", got)
	}
}

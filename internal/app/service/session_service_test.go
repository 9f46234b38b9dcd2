package service

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"sync/atomic"
	"testing"

	"wallet_scanner/internal/app/port"
	"wallet_scanner/internal/config"
	"wallet_scanner/internal/domain/entity"

	"go.uber.org/zap"
)

const testAccount = "0x000000000000000000000000000000000000dEaD"
const testToken = "0x4200000000000000000000000000000000000006"

// fakeWalletProvider answers the wallet method set for a session already on
// the requested chain.
type fakeWalletProvider struct {
	chainHex string
	calls    []string
}

func (p *fakeWalletProvider) Request(_ context.Context, method string, _ ...any) (json.RawMessage, error) {
	p.calls = append(p.calls, method)
	switch method {
	case "eth_requestAccounts":
		return codec.Marshal([]string{testAccount})
	case "eth_chainId":
		return codec.Marshal(p.chainHex)
	case "wallet_switchEthereumChain", "wallet_addEthereumChain":
		return json.RawMessage("null"), nil
	default:
		return nil, errors.New("unexpected method " + method)
	}
}

func (p *fakeWalletProvider) count(method string) int {
	n := 0
	for _, m := range p.calls {
		if m == method {
			n++
		}
	}
	return n
}

type fakeFactory struct {
	provider *fakeWalletProvider
	err      error
}

func (f *fakeFactory) NewProvider(port.ProviderKind, entity.ChainTarget) (port.EIP1193Provider, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.provider, nil
}

// fakeReader counts reads so tests can assert that validation failures issue
// zero network calls.
type fakeReader struct {
	target        entity.ChainTarget
	nativeBalance *big.Int
	blockNumber   uint64
	metadata      entity.TokenMetadata
	tokenBalance  *big.Int
	metadataErr   error

	reads atomic.Int64

	// When set, GetTokenMetadata signals started and blocks until released.
	started  chan struct{}
	released chan struct{}
}

func (r *fakeReader) GetNativeBalance(context.Context, string) (*big.Int, error) {
	r.reads.Add(1)
	return r.nativeBalance, nil
}

func (r *fakeReader) GetBlockNumber(context.Context) (uint64, error) {
	r.reads.Add(1)
	return r.blockNumber, nil
}

func (r *fakeReader) GetTokenMetadata(context.Context, string) (entity.TokenMetadata, error) {
	r.reads.Add(1)
	if r.started != nil {
		close(r.started)
		<-r.released
	}
	if r.metadataErr != nil {
		return entity.TokenMetadata{}, r.metadataErr
	}
	return r.metadata, nil
}

func (r *fakeReader) GetTokenBalance(context.Context, string, string) (*big.Int, error) {
	r.reads.Add(1)
	return r.tokenBalance, nil
}

func (r *fakeReader) Target() entity.ChainTarget { return r.target }

type fakeReaderProvider struct {
	reader *fakeReader
}

func (p *fakeReaderProvider) GetReader(entity.ChainTarget) (port.ChainReader, error) {
	return p.reader, nil
}

type noPriceService struct{}

func (noPriceService) GetPriceUSD(context.Context, string, string) (float64, bool) { return 0, false }

func testConfig() *config.Config {
	return &config.Config{
		ExampleTokens: map[uint64]string{
			entity.BaseSepolia.ChainID: testToken,
		},
	}
}

func newTestSession(provider *fakeWalletProvider, reader *fakeReader) port.SessionService {
	return NewSessionService(
		testConfig(),
		&fakeFactory{provider: provider},
		&fakeReaderProvider{reader: reader},
		NewChainReconciler(zap.NewNop()),
		noPriceService{},
		entity.BaseSepolia,
		zap.NewNop(),
	)
}

func newConnectedSession(t *testing.T, reader *fakeReader) port.SessionService {
	t.Helper()
	session := newTestSession(&fakeWalletProvider{chainHex: "0x14a34"}, reader)
	if _, err := session.Connect(context.Background(), port.ProviderKindAccount); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return session
}

func defaultReader() *fakeReader {
	return &fakeReader{
		target:        entity.BaseSepolia,
		nativeBalance: big.NewInt(1500),
		blockNumber:   42,
		metadata:      entity.TokenMetadata{Name: "Wrapped Ether", Symbol: "WETH", Decimals: 18},
		tokenBalance:  big.NewInt(777),
	}
}

func TestConnectOnMatchingChainIssuesNoSwitch(t *testing.T) {
	t.Parallel()

	provider := &fakeWalletProvider{chainHex: "0x14a34"} // already on 84532
	session := newTestSession(provider, defaultReader())

	report, err := session.Connect(context.Background(), port.ProviderKindAccount)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if provider.count("wallet_switchEthereumChain") != 0 || provider.count("wallet_addEthereumChain") != 0 {
		t.Fatalf("switch/add issued on matching chain: %v", provider.calls)
	}

	joined := strings.Join(report, "\n")
	if !strings.Contains(joined, "chainId: 84532") {
		t.Errorf("report missing chainId line:\n%s", joined)
	}
	if !strings.Contains(joined, "blockNumber: 42") {
		t.Errorf("report missing block number:\n%s", joined)
	}
	if !strings.Contains(joined, "nativeBalanceWei: 1500") {
		t.Errorf("report missing native balance:\n%s", joined)
	}

	snapshot := session.Snapshot()
	if snapshot.State != port.StateConnected || !snapshot.CanScan {
		t.Fatalf("snapshot = %+v, want connected and scannable", snapshot)
	}
	if snapshot.Connection == nil || snapshot.Connection.ChainID != 84532 {
		t.Fatalf("connection = %+v, want chain 84532", snapshot.Connection)
	}
}

func TestConnectFailureLeavesSessionDisconnected(t *testing.T) {
	t.Parallel()

	session := NewSessionService(
		testConfig(),
		&fakeFactory{err: errors.New("no provider")},
		&fakeReaderProvider{reader: defaultReader()},
		NewChainReconciler(zap.NewNop()),
		noPriceService{},
		entity.BaseSepolia,
		zap.NewNop(),
	)

	if _, err := session.Connect(context.Background(), port.ProviderKindWallet); err == nil {
		t.Fatal("Connect succeeded, want error")
	}
	snapshot := session.Snapshot()
	if snapshot.State != port.StateDisconnected || snapshot.Connection != nil {
		t.Fatalf("snapshot = %+v, want disconnected without connection", snapshot)
	}
	if len(snapshot.Report) != 1 || !strings.HasPrefix(snapshot.Report[0], "connect failed:") {
		t.Fatalf("report = %v, want single prefixed failure line", snapshot.Report)
	}
}

func TestScanRendersRawBalanceAndExplorerLinks(t *testing.T) {
	t.Parallel()

	reader := defaultReader()
	session := newConnectedSession(t, reader)

	report, err := session.Scan(context.Background(), testToken, testAccount)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	joined := strings.Join(report, "\n")

	if !strings.Contains(joined, "rawBalance: 777") {
		t.Errorf("report missing raw balance:\n%s", joined)
	}
	if strings.Count(joined, "https://sepolia.basescan.org/address/") != 2 {
		t.Errorf("report must contain two explorer links rooted at the target explorer:\n%s", joined)
	}
	if !strings.Contains(joined, "symbol: WETH") || !strings.Contains(joined, "decimals: 18") {
		t.Errorf("report missing metadata:\n%s", joined)
	}
}

func TestScanRejectsMalformedAddressesBeforeAnyRead(t *testing.T) {
	t.Parallel()

	reader := defaultReader()
	session := newConnectedSession(t, reader)
	readsAfterConnect := reader.reads.Load()

	_, err := session.Scan(context.Background(), "not-an-address", testAccount)
	if !errors.Is(err, entity.ErrInvalidAddress) {
		t.Fatalf("error = %v, want ErrInvalidAddress", err)
	}
	if reader.reads.Load() != readsAfterConnect {
		t.Fatalf("reads = %d, want %d (zero network calls on validation failure)", reader.reads.Load(), readsAfterConnect)
	}

	// Owner address is validated too.
	if _, err := session.Scan(context.Background(), testToken, "0x123"); !errors.Is(err, entity.ErrInvalidAddress) {
		t.Fatalf("error = %v, want ErrInvalidAddress for owner", err)
	}

	// The session stays connected and interactive after a validation error.
	if snapshot := session.Snapshot(); snapshot.State != port.StateConnected {
		t.Fatalf("state = %s, want connected", snapshot.State)
	}
}

func TestScanRequiresConnection(t *testing.T) {
	t.Parallel()

	session := newTestSession(&fakeWalletProvider{chainHex: "0x14a34"}, defaultReader())
	if _, err := session.Scan(context.Background(), testToken, testAccount); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("error = %v, want ErrNotConnected", err)
	}
}

func TestScanFailureDiscardsPartialResults(t *testing.T) {
	t.Parallel()

	reader := defaultReader()
	reader.metadataErr = errors.New("metadata read failed")
	session := newConnectedSession(t, reader)

	if _, err := session.Scan(context.Background(), testToken, testAccount); err == nil {
		t.Fatal("Scan succeeded, want error")
	}
	snapshot := session.Snapshot()
	if snapshot.State != port.StateConnected {
		t.Fatalf("state = %s, want connected after failed scan", snapshot.State)
	}
	if len(snapshot.Report) != 1 || !strings.HasPrefix(snapshot.Report[0], "scan failed:") {
		t.Fatalf("report = %v, want single prefixed failure line", snapshot.Report)
	}
}

func TestToggleNetworkClearsConnectionAndFlipsTarget(t *testing.T) {
	t.Parallel()

	session := newConnectedSession(t, defaultReader())

	snapshot := session.ToggleNetwork()
	if snapshot.State != port.StateDisconnected || snapshot.Connection != nil || snapshot.CanScan {
		t.Fatalf("snapshot after toggle = %+v, want disconnected", snapshot)
	}
	if snapshot.ActiveTarget.ChainID != entity.Base.ChainID {
		t.Fatalf("target = %d, want %d", snapshot.ActiveTarget.ChainID, entity.Base.ChainID)
	}

	// Scan and example are disabled until reconnect.
	if _, err := session.Scan(context.Background(), testToken, testAccount); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("scan after toggle = %v, want ErrNotConnected", err)
	}
	if _, _, err := session.ExampleAddresses(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("example after toggle = %v, want ErrNotConnected", err)
	}

	// A -> B -> A.
	snapshot = session.ToggleNetwork()
	if snapshot.ActiveTarget.ChainID != entity.BaseSepolia.ChainID {
		t.Fatalf("target after second toggle = %d, want %d", snapshot.ActiveTarget.ChainID, entity.BaseSepolia.ChainID)
	}
}

func TestExampleAddresses(t *testing.T) {
	t.Parallel()

	session := newConnectedSession(t, defaultReader())
	token, owner, err := session.ExampleAddresses()
	if err != nil {
		t.Fatalf("ExampleAddresses: %v", err)
	}
	if token != testToken {
		t.Fatalf("token = %s, want %s", token, testToken)
	}
	if owner != testAccount {
		t.Fatalf("owner = %s, want connected address %s", owner, testAccount)
	}
}

func TestConcurrentScanFailsFast(t *testing.T) {
	t.Parallel()

	reader := defaultReader()
	reader.started = make(chan struct{})
	reader.released = make(chan struct{})
	session := newConnectedSession(t, reader)

	scanDone := make(chan error, 1)
	go func() {
		_, err := session.Scan(context.Background(), testToken, testAccount)
		scanDone <- err
	}()
	<-reader.started

	// Second scan and connect while the first scan is in flight.
	if _, err := session.Scan(context.Background(), testToken, testAccount); !errors.Is(err, ErrOperationInFlight) {
		t.Fatalf("second scan = %v, want ErrOperationInFlight", err)
	}
	if _, err := session.Connect(context.Background(), port.ProviderKindAccount); !errors.Is(err, ErrOperationInFlight) {
		t.Fatalf("connect during scan = %v, want ErrOperationInFlight", err)
	}

	close(reader.released)
	if err := <-scanDone; err != nil {
		t.Fatalf("first scan = %v, want success", err)
	}
}

func TestToggleDuringScanDiscardsResult(t *testing.T) {
	t.Parallel()

	reader := defaultReader()
	reader.started = make(chan struct{})
	reader.released = make(chan struct{})
	session := newConnectedSession(t, reader)

	scanDone := make(chan error, 1)
	go func() {
		_, err := session.Scan(context.Background(), testToken, testAccount)
		scanDone <- err
	}()
	<-reader.started

	session.ToggleNetwork()
	close(reader.released)

	if err := <-scanDone; !errors.Is(err, ErrSessionReset) {
		t.Fatalf("scan after mid-flight toggle = %v, want ErrSessionReset", err)
	}
	if snapshot := session.Snapshot(); snapshot.State != port.StateDisconnected {
		t.Fatalf("state = %s, want disconnected", snapshot.State)
	}
}

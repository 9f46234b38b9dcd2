package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"

	"wallet_scanner/internal/app/port"
	"wallet_scanner/internal/config"
	"wallet_scanner/internal/domain/entity"
	"wallet_scanner/internal/pkg/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrOperationInFlight is returned when a connect or scan is triggered
	// while another one is still running.
	ErrOperationInFlight = errors.New("another operation is already in flight")

	// ErrNotConnected is returned for actions that require a connection.
	ErrNotConnected = errors.New("not connected")

	// ErrSessionReset is returned when the network was toggled while an
	// operation was in flight; the operation's result is discarded.
	ErrSessionReset = errors.New("session was reset while the operation was in flight")
)

// sessionServiceImpl implements port.SessionService. It owns the single
// session's mutable state: the active chain target, the connection record and
// the bound read client. Handlers re-validate this state under the lock after
// every awaited RPC sequence instead of trusting what they captured before.
type sessionServiceImpl struct {
	cfg            *config.Config
	factory        port.ProviderFactory
	readerProvider port.ChainReaderProvider
	reconciler     *ChainReconciler
	priceService   port.TokenPriceService
	logger         *zap.Logger

	mu           sync.Mutex
	busy         bool
	epoch        uint64 // incremented on every toggle; stale operations abort
	state        port.SessionState
	activeTarget entity.ChainTarget
	connection   *entity.Connection
	provider     port.EIP1193Provider
	reader       port.ChainReader
	report       []string
}

// NewSessionService creates the session state machine resting at Disconnected
// on the given initial target.
func NewSessionService(
	cfg *config.Config,
	factory port.ProviderFactory,
	readerProvider port.ChainReaderProvider,
	reconciler *ChainReconciler,
	priceService port.TokenPriceService,
	initialTarget entity.ChainTarget,
	logger *zap.Logger,
) port.SessionService {
	return &sessionServiceImpl{
		cfg:            cfg,
		factory:        factory,
		readerProvider: readerProvider,
		reconciler:     reconciler,
		priceService:   priceService,
		logger:         logger.Named("SessionService"),
		state:          port.StateDisconnected,
		activeTarget:   initialTarget,
		report:         []string{"disconnected. connect a provider to begin."},
	}
}

// Snapshot returns a point-in-time copy of the session.
func (s *sessionServiceImpl) Snapshot() port.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *sessionServiceImpl) snapshotLocked() port.SessionSnapshot {
	snapshot := port.SessionSnapshot{
		State:        s.state,
		ActiveTarget: s.activeTarget,
		CanScan:      s.state == port.StateConnected && s.connection != nil,
		Report:       append([]string(nil), s.report...),
	}
	if s.connection != nil {
		connection := *s.connection
		snapshot.Connection = &connection
	}
	return snapshot
}

// Connect runs the full connect sequence: provider construction, account
// request, chain reconciliation, chain id read-back and the parallel baseline
// reads for the welcome report.
func (s *sessionServiceImpl) Connect(ctx context.Context, kind port.ProviderKind) ([]string, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrOperationInFlight
	}
	s.busy = true
	s.state = port.StateConnecting
	s.connection = nil
	s.reader = nil
	target := s.activeTarget
	epoch := s.epoch
	s.mu.Unlock()

	report, connection, provider, reader, err := s.connectSequence(ctx, kind, target)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false

	if err == nil && s.epoch != epoch {
		// The network was toggled while we were connecting; the result binds
		// to a target that is no longer active.
		closeProvider(provider)
		err = ErrSessionReset
	}
	if err != nil {
		metrics.ConnectAttempts.WithLabelValues(string(kind), "error").Inc()
		s.state = port.StateDisconnected
		s.connection = nil
		s.reader = nil
		s.report = []string{fmt.Sprintf("connect failed: %v", err)}
		s.logger.Warn("Connect failed", zap.String("provider", string(kind)), zap.Error(err))
		return nil, err
	}

	metrics.ConnectAttempts.WithLabelValues(string(kind), "ok").Inc()
	closeProvider(s.provider)
	s.state = port.StateConnected
	s.connection = connection
	s.provider = provider
	s.reader = reader
	s.report = report
	s.logger.Info("Connected",
		zap.String("provider", string(kind)),
		zap.String("address", connection.Address),
		zap.Uint64("chainId", connection.ChainID))
	return append([]string(nil), report...), nil
}

// connectSequence performs the network part of a connect without holding the
// session lock.
func (s *sessionServiceImpl) connectSequence(ctx context.Context, kind port.ProviderKind, target entity.ChainTarget) ([]string, *entity.Connection, port.EIP1193Provider, port.ChainReader, error) {
	prov, err := s.factory.NewProvider(kind, target)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to construct provider: %w", err)
	}

	fail := func(err error) ([]string, *entity.Connection, port.EIP1193Provider, port.ChainReader, error) {
		closeProvider(prov)
		return nil, nil, nil, nil, err
	}

	rawAccounts, err := prov.Request(ctx, "eth_requestAccounts")
	if err != nil {
		return fail(fmt.Errorf("eth_requestAccounts failed: %w", err))
	}
	var accounts []string
	if err := codec.Unmarshal(rawAccounts, &accounts); err != nil {
		return fail(fmt.Errorf("failed to decode accounts: %w", err))
	}
	if len(accounts) == 0 {
		return fail(fmt.Errorf("provider returned no accounts"))
	}
	address := accounts[0]

	if err := s.reconciler.EnsureChain(ctx, prov, target); err != nil {
		return fail(err)
	}

	rawChainID, err := prov.Request(ctx, "eth_chainId")
	if err != nil {
		return fail(fmt.Errorf("eth_chainId failed: %w", err))
	}
	var hexChainID string
	if err := codec.Unmarshal(rawChainID, &hexChainID); err != nil {
		return fail(fmt.Errorf("failed to decode chain id: %w", err))
	}
	chainID, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(hexChainID), "0x"), 16, 64)
	if err != nil {
		return fail(fmt.Errorf("failed to parse chain id %q: %w", hexChainID, err))
	}

	reader, err := s.readerProvider.GetReader(target)
	if err != nil {
		return fail(fmt.Errorf("failed to build read client: %w", err))
	}

	// Baseline reads for the welcome report. Independent, so issued together.
	var (
		nativeBalance *big.Int
		blockNumber   uint64
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		balance, err := reader.GetNativeBalance(egCtx, address)
		if err != nil {
			return err
		}
		nativeBalance = balance
		return nil
	})
	eg.Go(func() error {
		number, err := reader.GetBlockNumber(egCtx)
		if err != nil {
			return err
		}
		blockNumber = number
		return nil
	})
	if err := eg.Wait(); err != nil {
		return fail(fmt.Errorf("baseline reads failed: %w", err))
	}

	connection := &entity.Connection{
		Address:    address,
		ChainID:    chainID,
		HexChainID: strings.ToLower(hexChainID),
	}
	report := []string{
		fmt.Sprintf("connected via %s provider", kind),
		fmt.Sprintf("address: %s", address),
		fmt.Sprintf("chainId: %d", chainID),
		fmt.Sprintf("chain: %s", target.Name),
		fmt.Sprintf("blockNumber: %d", blockNumber),
		fmt.Sprintf("nativeBalanceWei: %s", nativeBalance.String()),
		fmt.Sprintf("explorer: %s", target.AddressURL(address)),
	}
	return report, connection, prov, reader, nil
}

// Scan validates the addresses and performs the metadata and balance reads
// against the bound read client.
func (s *sessionServiceImpl) Scan(ctx context.Context, tokenAddress, ownerAddress string) ([]string, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrOperationInFlight
	}
	if s.state != port.StateConnected || s.connection == nil || s.reader == nil {
		s.mu.Unlock()
		return nil, ErrNotConnected
	}
	// Validation precedes any network call.
	if err := entity.ValidateAddress(tokenAddress); err != nil {
		s.report = []string{fmt.Sprintf("scan failed: %v", err)}
		s.mu.Unlock()
		metrics.Scans.WithLabelValues("validation_error").Inc()
		return nil, err
	}
	if err := entity.ValidateAddress(ownerAddress); err != nil {
		s.report = []string{fmt.Sprintf("scan failed: %v", err)}
		s.mu.Unlock()
		metrics.Scans.WithLabelValues("validation_error").Inc()
		return nil, err
	}
	s.busy = true
	s.state = port.StateScanning
	reader := s.reader
	target := s.activeTarget
	epoch := s.epoch
	s.mu.Unlock()

	result, err := s.scanSequence(ctx, reader, target, tokenAddress, ownerAddress)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false

	if s.epoch != epoch {
		// Toggled mid-scan: the session is disconnected now and the result
		// belongs to the previous target.
		metrics.Scans.WithLabelValues("reset").Inc()
		return nil, ErrSessionReset
	}
	s.state = port.StateConnected
	if err != nil {
		metrics.Scans.WithLabelValues("error").Inc()
		s.report = []string{fmt.Sprintf("scan failed: %v", err)}
		s.logger.Warn("Scan failed", zap.String("token", tokenAddress), zap.Error(err))
		return nil, err
	}

	metrics.Scans.WithLabelValues("ok").Inc()
	report := renderScanReport(result)
	s.report = report
	return append([]string(nil), report...), nil
}

func (s *sessionServiceImpl) scanSequence(ctx context.Context, reader port.ChainReader, target entity.ChainTarget, tokenAddress, ownerAddress string) (*entity.TokenScanResult, error) {
	meta, err := reader.GetTokenMetadata(ctx, tokenAddress)
	if err != nil {
		return nil, err
	}
	balance, err := reader.GetTokenBalance(ctx, tokenAddress, ownerAddress)
	if err != nil {
		return nil, err
	}

	result := &entity.TokenScanResult{
		TokenAddress:     tokenAddress,
		OwnerAddress:     ownerAddress,
		Metadata:         meta,
		RawBalance:       balance,
		RawBalanceString: balance.String(),
		TokenExplorerURL: target.AddressURL(tokenAddress),
		OwnerExplorerURL: target.AddressURL(ownerAddress),
	}

	// Best-effort price enrichment; only mainnet targets carry a DEXScreener
	// id, and a missing price never fails the scan.
	if s.priceService != nil && target.DEXScreenerChainID != "" {
		if price, ok := s.priceService.GetPriceUSD(ctx, target.DEXScreenerChainID, tokenAddress); ok {
			result.PriceUSD = price
			result.HasPrice = true
		}
	}
	return result, nil
}

func renderScanReport(result *entity.TokenScanResult) []string {
	report := []string{
		fmt.Sprintf("token: %s", result.TokenAddress),
		fmt.Sprintf("name: %s", result.Metadata.Name),
		fmt.Sprintf("symbol: %s", result.Metadata.Symbol),
		fmt.Sprintf("decimals: %d", result.Metadata.Decimals),
		fmt.Sprintf("owner: %s", result.OwnerAddress),
		fmt.Sprintf("rawBalance: %s", result.RawBalanceString),
		fmt.Sprintf("token explorer: %s", result.TokenExplorerURL),
		fmt.Sprintf("owner explorer: %s", result.OwnerExplorerURL),
	}
	if result.HasPrice {
		report = append(report, fmt.Sprintf("priceUSD: %g", result.PriceUSD))
	}
	return report
}

// ToggleNetwork flips the active target, clears all target-bound records and
// resets the session to disconnected. Allowed from any state; an operation in
// flight notices the epoch change and discards its result.
func (s *sessionServiceImpl) ToggleNetwork() port.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.activeTarget = s.activeTarget.Other()
	s.state = port.StateDisconnected
	s.connection = nil
	s.reader = nil
	closeProvider(s.provider)
	s.provider = nil
	s.report = []string{fmt.Sprintf("network switched to %s (chainId %d). reconnect to continue.", s.activeTarget.Name, s.activeTarget.ChainID)}

	s.logger.Info("Network toggled",
		zap.String("target", s.activeTarget.Name),
		zap.Uint64("chainId", s.activeTarget.ChainID))
	return s.snapshotLocked()
}

// ExampleAddresses returns the example token configured for the active chain
// and the connected address as owner.
func (s *sessionServiceImpl) ExampleAddresses() (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != port.StateConnected || s.connection == nil {
		return "", "", ErrNotConnected
	}
	token, ok := s.cfg.ExampleToken(s.activeTarget.ChainID)
	if !ok {
		return "", "", fmt.Errorf("no example token configured for chain %d", s.activeTarget.ChainID)
	}
	return token, s.connection.Address, nil
}

func closeProvider(prov port.EIP1193Provider) {
	if closer, ok := prov.(interface{ Close() }); ok {
		closer.Close()
	}
}

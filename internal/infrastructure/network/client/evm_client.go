package client

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"wallet_scanner/internal/app/port"
	"wallet_scanner/internal/domain/entity"
	"wallet_scanner/internal/pkg/metrics"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// EVMClient implements port.ChainReader for EVM-compatible chains. A client is
// bound to exactly one chain target for its whole lifetime.
type EVMClient struct {
	ethClient      *ethclient.Client
	target         entity.ChainTarget
	rpcCallTimeout time.Duration
	limiter        *rate.Limiter
}

// Read-only subset of the ERC-20 interface. Selectors:
//
//	name()              -> 0x06fdde03
//	symbol()            -> 0x95d89b41
//	decimals()          -> 0x313ce567
//	balanceOf(address)  -> 0x70a08231
const erc20ReadABI = `[
	{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"payable":false,"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}
]`

var (
	parsedERC20ABI  abi.ABI
	parsedERC20Once sync.Once
)

func initParsedERC20ABI() {
	parsedERC20Once.Do(func() {
		var err error
		parsedERC20ABI, err = abi.JSON(strings.NewReader(erc20ReadABI))
		if err != nil {
			// This is a critical error during initialization, panic is appropriate
			panic(fmt.Sprintf("failed to parse ERC20 ABI: %v", err))
		}
	})
}

// NewEVMClient dials the target's RPC endpoint and returns a bound reader.
func NewEVMClient(target entity.ChainTarget, connectionTimeout, rpcCallTimeout time.Duration, rateLimit, burstLimit int) (port.ChainReader, error) {
	initParsedERC20ABI()

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	ethClient, err := ethclient.DialContext(ctx, target.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC %s: %w", target.RPCURL, err)
	}

	return &EVMClient{
		ethClient:      ethClient,
		target:         target,
		rpcCallTimeout: rpcCallTimeout,
		limiter:        rate.NewLimiter(rate.Limit(rateLimit), burstLimit),
	}, nil
}

// Target returns the chain target this client is bound to.
func (c *EVMClient) Target() entity.ChainTarget {
	return c.target
}

// GetNativeBalance fetches the native currency balance in wei.
func (c *EVMClient) GetNativeBalance(ctx context.Context, address string) (*big.Int, error) {
	callCtx, cancel, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	balance, err := c.ethClient.BalanceAt(callCtx, common.HexToAddress(address), nil)
	if err != nil {
		metrics.ReadErrors.WithLabelValues("native_balance").Inc()
		return nil, fmt.Errorf("failed to fetch native balance for %s: %w", address, err)
	}
	return balance, nil
}

// GetBlockNumber fetches the current block height.
func (c *EVMClient) GetBlockNumber(ctx context.Context) (uint64, error) {
	callCtx, cancel, err := c.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	blockNumber, err := c.ethClient.BlockNumber(callCtx)
	if err != nil {
		metrics.ReadErrors.WithLabelValues("block_number").Inc()
		return 0, fmt.Errorf("failed to fetch block number: %w", err)
	}
	return blockNumber, nil
}

// GetTokenMetadata issues the three metadata reads concurrently and waits for
// all of them. Any single failure fails the whole call.
func (c *EVMClient) GetTokenMetadata(ctx context.Context, tokenAddress string) (entity.TokenMetadata, error) {
	var meta entity.TokenMetadata

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		name, err := c.callString(egCtx, tokenAddress, "name")
		if err != nil {
			return err
		}
		meta.Name = name
		return nil
	})
	eg.Go(func() error {
		symbol, err := c.callString(egCtx, tokenAddress, "symbol")
		if err != nil {
			return err
		}
		meta.Symbol = symbol
		return nil
	})
	eg.Go(func() error {
		decimals, err := c.callDecimals(egCtx, tokenAddress)
		if err != nil {
			return err
		}
		meta.Decimals = decimals
		return nil
	})

	if err := eg.Wait(); err != nil {
		metrics.ReadErrors.WithLabelValues("token_metadata").Inc()
		return entity.TokenMetadata{}, fmt.Errorf("failed to read token metadata for %s: %w", tokenAddress, err)
	}
	return meta, nil
}

// GetTokenBalance reads balanceOf(owner) on the token contract.
func (c *EVMClient) GetTokenBalance(ctx context.Context, tokenAddress string, ownerAddress string) (*big.Int, error) {
	output, err := c.staticCall(ctx, tokenAddress, "balanceOf", common.HexToAddress(ownerAddress))
	if err != nil {
		metrics.ReadErrors.WithLabelValues("token_balance").Inc()
		return nil, fmt.Errorf("failed to fetch token balance of %s for %s: %w", tokenAddress, ownerAddress, err)
	}
	// An empty return from a non-contract address decodes as zero balance.
	if len(output) == 0 {
		return big.NewInt(0), nil
	}

	unpacked, err := parsedERC20ABI.Unpack("balanceOf", output)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack balanceOf result for %s: %w", tokenAddress, err)
	}
	balance, ok := unpacked[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("failed to assert unpacked balanceOf result to *big.Int for %s. Got: %T", tokenAddress, unpacked[0])
	}
	return balance, nil
}

func (c *EVMClient) callString(ctx context.Context, tokenAddress, method string) (string, error) {
	output, err := c.staticCall(ctx, tokenAddress, method)
	if err != nil {
		return "", err
	}
	unpacked, err := parsedERC20ABI.Unpack(method, output)
	if err != nil {
		return "", fmt.Errorf("failed to unpack %s result for %s: %w", method, tokenAddress, err)
	}
	value, ok := unpacked[0].(string)
	if !ok {
		return "", fmt.Errorf("failed to assert unpacked %s result to string for %s. Got: %T", method, tokenAddress, unpacked[0])
	}
	return value, nil
}

func (c *EVMClient) callDecimals(ctx context.Context, tokenAddress string) (uint8, error) {
	output, err := c.staticCall(ctx, tokenAddress, "decimals")
	if err != nil {
		return 0, err
	}
	unpacked, err := parsedERC20ABI.Unpack("decimals", output)
	if err != nil {
		return 0, fmt.Errorf("failed to unpack decimals result for %s: %w", tokenAddress, err)
	}
	value, ok := unpacked[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("failed to assert unpacked decimals result to uint8 for %s. Got: %T", tokenAddress, unpacked[0])
	}
	return value, nil
}

// staticCall performs an ABI-encoded eth_call against the token contract.
func (c *EVMClient) staticCall(ctx context.Context, tokenAddress, method string, args ...any) ([]byte, error) {
	callData, err := parsedERC20ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	callCtx, cancel, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	to := common.HexToAddress(tokenAddress)
	output, err := c.ethClient.CallContract(callCtx, ethereum.CallMsg{To: &to, Data: callData}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call to %s failed: %w", method, tokenAddress, err)
	}
	return output, nil
}

// acquire waits on the rate limiter and derives the per-call timeout context.
func (c *EVMClient) acquire(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}
	callCtx, cancel := context.WithTimeout(ctx, c.rpcCallTimeout)
	return callCtx, cancel, nil
}

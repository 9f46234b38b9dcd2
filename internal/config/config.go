package config

import (
	"fmt"
	"os"

	"wallet_scanner/internal/domain/entity"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds the overall configuration for the application.
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	App           entity.AppMetadata `yaml:"app"`
	Accounts      []string           `yaml:"accounts"`
	Chains        []entity.ChainTarget `yaml:"chains"`
	RpcClient     RpcClientConfig    `yaml:"rpcClient"`
	DEXScreener   DEXScreenerConfig  `yaml:"dexScreener"`
	PriceService  PriceServiceConfig `yaml:"priceService"`
	ExampleTokens map[uint64]string  `yaml:"exampleTokens"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
	IdleTimeout  int    `yaml:"idleTimeout"`
}

// RpcClientConfig holds configuration for the JSON-RPC read clients and the
// headless providers.
type RpcClientConfig struct {
	ConnectionTimeoutMs int64 `yaml:"connectionTimeoutMs"`
	CallTimeoutMs       int64 `yaml:"callTimeoutMs"`
	RateLimit           int   `yaml:"rateLimit"`
	BurstLimit          int   `yaml:"burstLimit"`
}

// DEXScreenerConfig holds the configuration for the DEX Screener client.
type DEXScreenerConfig struct {
	BaseURL              string `yaml:"baseURL"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
}

// PriceServiceConfig holds configuration for the token price cache.
type PriceServiceConfig struct {
	CacheTTLMinutes int `yaml:"cacheTTLMinutes"`
}

// LoggingConfig holds the configuration for logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // e.g., "debug", "info", "warn", "error"
}

// LoadConfig loads configuration from a YAML file and applies defaults.
func LoadConfig(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60
	}
	if c.App.Name == "" {
		c.App.Name = "Wallet Scanner"
		logrus.Infof("App name not set, defaulting to %q", c.App.Name)
	}
	if c.RpcClient.ConnectionTimeoutMs == 0 {
		c.RpcClient.ConnectionTimeoutMs = 10000
	}
	if c.RpcClient.CallTimeoutMs == 0 {
		c.RpcClient.CallTimeoutMs = 10000
	}
	if c.RpcClient.RateLimit == 0 {
		c.RpcClient.RateLimit = 10
	}
	if c.RpcClient.BurstLimit == 0 {
		c.RpcClient.BurstLimit = 5
	}
	if c.DEXScreener.BaseURL == "" {
		c.DEXScreener.BaseURL = "https://api.dexscreener.com"
		logrus.Infof("DEXScreener.BaseURL not set, defaulting to %s", c.DEXScreener.BaseURL)
	}
	if c.DEXScreener.RequestTimeoutMillis == 0 {
		c.DEXScreener.RequestTimeoutMillis = 10000
	}
	if c.PriceService.CacheTTLMinutes == 0 {
		c.PriceService.CacheTTLMinutes = 60
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.ExampleTokens == nil {
		c.ExampleTokens = map[uint64]string{}
	}
	// WETH is predeployed at the same address on Base and Base Sepolia.
	if _, ok := c.ExampleTokens[entity.BaseSepolia.ChainID]; !ok {
		c.ExampleTokens[entity.BaseSepolia.ChainID] = "0x4200000000000000000000000000000000000006"
	}
	if _, ok := c.ExampleTokens[entity.Base.ChainID]; !ok {
		c.ExampleTokens[entity.Base.ChainID] = "0x4200000000000000000000000000000000000006"
	}
	if len(c.Accounts) == 0 {
		logrus.Warn("No watch-only accounts configured; connect requests will be rejected")
	}
	for _, account := range c.Accounts {
		if err := entity.ValidateAddress(account); err != nil {
			logrus.Warnf("Configured account %q is not a valid address", account)
		}
	}
}

// Targets returns the two fixed chain targets, with RPC and explorer URLs
// optionally overridden from the chains section (matched by chain id).
func (c *Config) Targets() (entity.ChainTarget, entity.ChainTarget) {
	primary, secondary := entity.BaseSepolia, entity.Base
	for _, override := range c.Chains {
		switch override.ChainID {
		case primary.ChainID:
			primary = mergeTarget(primary, override)
		case secondary.ChainID:
			secondary = mergeTarget(secondary, override)
		default:
			logrus.Warnf("Ignoring chain override for unsupported chain id %d", override.ChainID)
		}
	}
	return primary, secondary
}

// ExampleToken returns the example token address configured for a chain.
func (c *Config) ExampleToken(chainID uint64) (string, bool) {
	token, ok := c.ExampleTokens[chainID]
	return token, ok
}

func mergeTarget(base, override entity.ChainTarget) entity.ChainTarget {
	if override.Name != "" {
		base.Name = override.Name
	}
	if override.RPCURL != "" {
		base.RPCURL = override.RPCURL
	}
	if override.BlockExplorerURL != "" {
		base.BlockExplorerURL = override.BlockExplorerURL
	}
	if override.DEXScreenerChainID != "" {
		base.DEXScreenerChainID = override.DEXScreenerChainID
	}
	return base
}

package arenakit

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// ChainConfig identifies the network and registry contract to read battles from.
type ChainConfig struct {
	Name     string `yaml:"name"`
	RPCURL   string `yaml:"rpcURL"`
	ChainID  int64  `yaml:"chainID"`
	Registry string `yaml:"registry"`
}

// PriceFeedConfig holds price source settings.
type PriceFeedConfig struct {
	BaseURL              string `yaml:"baseURL"`
	ChainID              string `yaml:"chainId"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
	CacheTTLMinutes      int    `yaml:"cacheTTLMinutes"`
	RequestsPerSecond    int    `yaml:"requestsPerSecond"`
}

// RedisConfig holds connection settings for the persistence stores.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// TokenConfig is one configured token of the metadata source.
type TokenConfig struct {
	Address  string `yaml:"address"`
	Symbol   string `yaml:"symbol"`
	Name     string `yaml:"name"`
	Decimals uint8  `yaml:"decimals"`
}

// Config is the top-level configuration structure. Contract addresses and
// token lists are configuration, never compiled-in constants.
type Config struct {
	Chain     ChainConfig     `yaml:"chain"`
	PriceFeed PriceFeedConfig `yaml:"priceFeed"`
	Redis     RedisConfig     `yaml:"redis"`
	Tokens    []TokenConfig   `yaml:"tokens"`
}

// LoadConfig reads and validates the YAML configuration file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
	}

	if cfg.Chain.RPCURL == "" {
		return nil, fmt.Errorf("config %s: chain.rpcURL is required", path)
	}
	if cfg.Chain.Registry != "" && !common.IsHexAddress(cfg.Chain.Registry) {
		return nil, fmt.Errorf("config %s: chain.registry %q is not a hex address", path, cfg.Chain.Registry)
	}
	for i, t := range cfg.Tokens {
		if !common.IsHexAddress(t.Address) {
			return nil, fmt.Errorf("config %s: tokens[%d].address %q is not a hex address", path, i, t.Address)
		}
	}

	if cfg.PriceFeed.RequestTimeoutMillis <= 0 {
		cfg.PriceFeed.RequestTimeoutMillis = 5000
	}
	if cfg.PriceFeed.CacheTTLMinutes <= 0 {
		cfg.PriceFeed.CacheTTLMinutes = 5
	}
	if cfg.PriceFeed.RequestsPerSecond <= 0 {
		cfg.PriceFeed.RequestsPerSecond = 5
	}
	return &cfg, nil
}

// RegistryAddress returns the configured registry contract address.
func (c *Config) RegistryAddress() common.Address {
	return common.HexToAddress(c.Chain.Registry)
}

// TokenList converts the configured tokens into Token values.
func (c *Config) TokenList() []Token {
	out := make([]Token, 0, len(c.Tokens))
	for _, t := range c.Tokens {
		out = append(out, Token{
			Address:  common.HexToAddress(t.Address),
			Symbol:   t.Symbol,
			Name:     t.Name,
			Decimals: t.Decimals,
		})
	}
	return out
}

// Package config loads the runner configuration: which node to talk to and
// which token to verify.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/meverselabs/erc20check/common/amount"
)

// EndpointEnv overrides the configured endpoint when set.
const EndpointEnv = "ERC20CHECK_ENDPOINT"

// Config is the runner configuration. TokenAddress references an already
// deployed, pre-funded token; when empty the harness deploys TokenArtifact.
type Config struct {
	Endpoint      string `toml:"endpoint"`
	TokenArtifact string `toml:"token_artifact"`
	TokenAddress  string `toml:"token_address"`
	MintAmount    string `toml:"mint_amount"`
}

// Load reads the TOML file at path (missing file keeps the defaults) and
// overlays the environment, including a .env file if present.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Endpoint:   "http://127.0.0.1:8545",
		MintAmount: "100",
	}

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			if !os.IsNotExist(errors.Cause(err)) {
				return nil, errors.Wrapf(err, "load config %s", path)
			}
		}
	}

	godotenv.Load()
	if ep := os.Getenv(EndpointEnv); ep != "" {
		cfg.Endpoint = ep
	}
	return cfg, nil
}

// Mint parses the configured mint amount.
func (c *Config) Mint() (*amount.Amount, error) {
	m, err := amount.ParseAmount(c.MintAmount)
	if err != nil {
		return nil, errors.Wrapf(err, "mint_amount %q", c.MintAmount)
	}
	if !m.IsPlus() {
		return nil, errors.Errorf("mint_amount %q must be positive", c.MintAmount)
	}
	return m, nil
}

// Token returns the referenced token address, or nil when a fresh contract
// should be deployed.
func (c *Config) Token() (*common.Address, error) {
	if c.TokenAddress == "" {
		return nil, nil
	}
	if !common.IsHexAddress(c.TokenAddress) {
		return nil, errors.Errorf("token_address %q is not a hex address", c.TokenAddress)
	}
	addr := common.HexToAddress(c.TokenAddress)
	return &addr, nil
}

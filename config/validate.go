package config

import (
	"fmt"
	"net/url"

	"github.com/Klingon-tech/xudt-tools/internal/keys"
)

// Validate checks the config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}

	if err := validateURL("rpc.url", cfg.RPC.URL); err != nil {
		return err
	}
	if cfg.RPC.IndexerURL != "" {
		if err := validateURL("indexer.url", cfg.RPC.IndexerURL); err != nil {
			return err
		}
	}
	if cfg.RPC.Timeout <= 0 {
		return fmt.Errorf("rpc.timeout must be positive")
	}
	if cfg.RPC.PageSize <= 0 {
		return fmt.Errorf("indexer.page_size must be positive")
	}

	if cfg.Fee.Rate == 0 {
		return fmt.Errorf("fee.rate must be positive")
	}
	if cfg.Fee.WitnessSize == 0 {
		return fmt.Errorf("fee.witness_size must be positive")
	}

	if cfg.Token.Args == "" {
		return fmt.Errorf("token.args is required")
	}
	if _, err := cfg.TokenScript(); err != nil {
		return err
	}
	if cfg.Token.Decimals > 38 {
		return fmt.Errorf("token.decimals must be at most 38")
	}

	if _, err := cfg.CellDeps(); err != nil {
		return err
	}

	if cfg.Key.Path != "" {
		if _, err := keys.ParsePath(cfg.Key.Path); err != nil {
			return fmt.Errorf("key.path: %w", err)
		}
	}
	return nil
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", field, raw)
	}
	return nil
}

// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Network constants: script code hashes and deployments, fixed per network
//   - Tool settings: endpoints, fees, token and key locations, can vary per run
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// =============================================================================
// Tool Configuration
// =============================================================================

// Config holds runtime configuration for the xudt tools.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Endpoints
	RPC RPCConfig

	// Fee and change policy
	Fee FeeConfig

	// Token being moved
	Token TokenConfig

	// Cell deps placed in every transfer
	Deps DepsConfig

	// Sender key
	Key KeyConfig

	// Logging
	Log LogConfig
}

// RPCConfig holds node and indexer endpoints.
type RPCConfig struct {
	URL        string `conf:"rpc.url"`
	IndexerURL string `conf:"indexer.url"` // Defaults to URL; CKB nodes serve the indexer on the same port.
	Timeout    int    `conf:"rpc.timeout"` // Seconds per request.
	PageSize   int    `conf:"indexer.page_size"`
}

// FeeConfig holds fee settings. All capacities are in shannons.
type FeeConfig struct {
	Rate        uint64 `conf:"fee.rate"`         // Shannons per 1000 bytes.
	Max         uint64 `conf:"fee.max"`          // Fee reserved when selecting capacity.
	MinChange   uint64 `conf:"fee.min_change"`   // Floor for the capacity change output.
	WitnessSize uint64 `conf:"fee.witness_size"` // Signature bytes added to witness 0.
}

// TokenConfig identifies the xUDT token.
type TokenConfig struct {
	CodeHash   string `conf:"token.code_hash"` // Empty means the network's xUDT code hash.
	HashType   string `conf:"token.hash_type"`
	Args       string `conf:"token.args"`
	Decimals   uint8  `conf:"token.decimals"`
	Symbol     string `conf:"token.symbol"`
	CellBuffer uint64 `conf:"token.cell_buffer"` // Spare CKB per token cell.
}

// CellDepConfig points at one deployed cell.
type CellDepConfig struct {
	TxHash  string `conf:"tx_hash"`
	Index   uint32 `conf:"index"`
	DepType string `conf:"dep_type"` // code or dep_group
}

// DepsConfig holds the lock and token cell deps.
type DepsConfig struct {
	Lock  CellDepConfig // deps.lock.*
	Token CellDepConfig // deps.token.*
}

// KeyConfig locates the sender key.
type KeyConfig struct {
	File         string `conf:"key.file"`          // Hex or encrypted key file.
	MnemonicFile string `conf:"key.mnemonic_file"` // BIP-39 mnemonic file.
	Path         string `conf:"key.path"`          // Derivation path for the mnemonic.
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.xudt-tools
//	macOS:   ~/Library/Application Support/XudtTools
//	Windows: %APPDATA%\XudtTools
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".xudt-tools"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "XudtTools")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "XudtTools")
		}
		return filepath.Join(home, "AppData", "Roaming", "XudtTools")
	default:
		return filepath.Join(home, ".xudt-tools")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// PendingDir returns the directory of the pending-input database.
func (c *Config) PendingDir() string {
	return filepath.Join(c.NetworkDataDir(), "pending")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "xudt.conf")
}

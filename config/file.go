package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadFile loads configuration values from a .conf file.
// Format: key = value (one per line, # for comments). A missing file yields
// no values.
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file values to cfg. The network key is applied
// first so that network defaults can be reset before the other keys.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	if v, ok := values["network"]; ok {
		if err := setConfigValue(cfg, "network", v); err != nil {
			return fmt.Errorf("config key %q: %w", "network", err)
		}
	}
	for key, value := range values {
		if key == "network" {
			continue
		}
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets one config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		if NetworkType(value) != cfg.Network {
			dataDir := cfg.DataDir
			*cfg = *Default(NetworkType(value))
			cfg.Network = NetworkType(value)
			cfg.DataDir = dataDir
		}
	case "datadir":
		cfg.DataDir = value

	// Endpoints
	case "rpc.url":
		cfg.RPC.URL = value
	case "indexer.url":
		cfg.RPC.IndexerURL = value
	case "rpc.timeout":
		return parseInt(value, &cfg.RPC.Timeout)
	case "indexer.page_size":
		return parseInt(value, &cfg.RPC.PageSize)

	// Fees
	case "fee.rate":
		return parseUint(value, &cfg.Fee.Rate)
	case "fee.max":
		return parseUint(value, &cfg.Fee.Max)
	case "fee.min_change":
		return parseUint(value, &cfg.Fee.MinChange)
	case "fee.witness_size":
		return parseUint(value, &cfg.Fee.WitnessSize)

	// Token
	case "token.code_hash":
		cfg.Token.CodeHash = value
	case "token.hash_type":
		cfg.Token.HashType = value
	case "token.args":
		cfg.Token.Args = value
	case "token.decimals":
		n, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return err
		}
		cfg.Token.Decimals = uint8(n)
	case "token.symbol":
		cfg.Token.Symbol = value
	case "token.cell_buffer":
		return parseUint(value, &cfg.Token.CellBuffer)

	// Cell deps
	case "deps.lock.tx_hash":
		cfg.Deps.Lock.TxHash = value
	case "deps.lock.index":
		return parseUint32(value, &cfg.Deps.Lock.Index)
	case "deps.lock.dep_type":
		cfg.Deps.Lock.DepType = value
	case "deps.token.tx_hash":
		cfg.Deps.Token.TxHash = value
	case "deps.token.index":
		return parseUint32(value, &cfg.Deps.Token.Index)
	case "deps.token.dep_type":
		cfg.Deps.Token.DepType = value

	// Key
	case "key.file":
		cfg.Key.File = value
	case "key.mnemonic_file":
		cfg.Key.MnemonicFile = value
	case "key.path":
		cfg.Key.Path = value

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

func parseInt(s string, dst *int) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func parseUint(s string, dst *uint64) error {
	n, err := strconv.ParseUint(strings.ReplaceAll(s, "_", ""), 10, 64)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func parseUint32(s string, dst *uint32) error {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return err
	}
	*dst = uint32(n)
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// WriteDefaultConfig writes a default configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	cfg := Default(network)
	content := `# xUDT tools configuration
#
# Values here override the built-in defaults for the selected network.
# Command-line flags override values here.

# Network: mainnet or testnet
network = ` + string(network) + `

# Data directory (default: ~/.xudt-tools)
# datadir = ~/.xudt-tools

# ============================================================================
# Endpoints
# ============================================================================

rpc.url = ` + cfg.RPC.URL + `
# Indexer endpoint (defaults to rpc.url)
# indexer.url =
rpc.timeout = ` + strconv.Itoa(cfg.RPC.Timeout) + `
indexer.page_size = ` + strconv.Itoa(cfg.RPC.PageSize) + `

# ============================================================================
# Fees (shannons; 1 CKB = 100000000 shannons)
# ============================================================================

# Fee rate per 1000 bytes
fee.rate = ` + strconv.FormatUint(cfg.Fee.Rate, 10) + `
# Fee reserved when selecting capacity cells
fee.max = ` + strconv.FormatUint(cfg.Fee.Max, 10) + `
# Smallest capacity change output allowed after the fee
fee.min_change = ` + strconv.FormatUint(cfg.Fee.MinChange, 10) + `
fee.witness_size = ` + strconv.FormatUint(cfg.Fee.WitnessSize, 10) + `

# ============================================================================
# Token
# ============================================================================

# token.code_hash defaults to the network's xUDT code hash
# token.code_hash =
token.hash_type = ` + cfg.Token.HashType + `
token.args = ` + cfg.Token.Args + `
token.decimals = ` + strconv.Itoa(int(cfg.Token.Decimals)) + `
# token.symbol = ` + cfg.Token.Symbol + `
# Spare CKB given to every token cell
token.cell_buffer = ` + strconv.FormatUint(cfg.Token.CellBuffer, 10) + `

# ============================================================================
# Cell deps
# ============================================================================

deps.lock.tx_hash = ` + cfg.Deps.Lock.TxHash + `
deps.lock.index = ` + strconv.FormatUint(uint64(cfg.Deps.Lock.Index), 10) + `
deps.lock.dep_type = ` + cfg.Deps.Lock.DepType + `
deps.token.tx_hash = ` + cfg.Deps.Token.TxHash + `
deps.token.index = ` + strconv.FormatUint(uint64(cfg.Deps.Token.Index), 10) + `
deps.token.dep_type = ` + cfg.Deps.Token.DepType + `

# ============================================================================
# Sender key
# ============================================================================

# Hex private key or encrypted key file
# key.file = ~/.xudt-tools/sender.key
# BIP-39 mnemonic file (takes precedence over key.file)
# key.mnemonic_file =
# key.path = m/44'/309'/0'/0/0

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}

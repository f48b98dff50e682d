package config

import (
	"fmt"

	"github.com/Klingon-tech/xudt-tools/pkg/address"
	"github.com/Klingon-tech/xudt-tools/pkg/tx"
	"github.com/Klingon-tech/xudt-tools/pkg/types"
)

// =============================================================================
// Network constants (fixed per chain, not tool settings)
// =============================================================================

// Secp256k1Blake160CodeHash is the type hash of the default lock script. It
// is the same on mainnet and testnet.
const Secp256k1Blake160CodeHash = "0x9bd7e06f3ecf4be0f2fcd2188b23f1b9fcc88e5d4b65a8637b17723bbda3cce8"

// xUDT type script code hashes (hash_type = type).
const (
	MainnetXUDTCodeHash = "0x50bd8d6680b8b9cf98b73f3c08faf8b2a21914311954118ad6609be6e78a1b95"
	TestnetXUDTCodeHash = "0x25c29dc317811a6f6f3985a7a9ebc4838bd388d19d0feeecf0bcd60f6c0975bb"
)

// Public endpoints. A CKB node serves the indexer RPC on the node port.
const (
	MainnetRPCURL = "https://mainnet.ckb.dev/rpc"
	TestnetRPCURL = "https://testnet.ckb.dev/rpc"
)

// Params holds the network constants used to build transfers.
type Params struct {
	Network      NetworkType
	HRP          string
	XUDTCodeHash string
	LockDep      CellDepConfig
	TokenDep     CellDepConfig
}

// MainnetParams returns the mainnet constants.
func MainnetParams() Params {
	return Params{
		Network:      Mainnet,
		HRP:          address.MainnetHRP,
		XUDTCodeHash: MainnetXUDTCodeHash,
		LockDep: CellDepConfig{
			TxHash:  "0x71a7ba8fc96349fea0ed3a5c47992e3b4084b031a42264a018e0072e8172e46c",
			DepType: "dep_group",
		},
		TokenDep: CellDepConfig{
			TxHash:  "0xc07844ce21b38e4b071dd0e1ee3b0e27afd8d7532491327f39b786343f558ab7",
			DepType: "code",
		},
	}
}

// TestnetParams returns the testnet constants.
func TestnetParams() Params {
	return Params{
		Network:      Testnet,
		HRP:          address.TestnetHRP,
		XUDTCodeHash: TestnetXUDTCodeHash,
		LockDep: CellDepConfig{
			TxHash:  "0xf8de3bb47d055cdf460d93a2a6e1b05f7432f9777c8c474abf4eec1d4aee5d37",
			DepType: "dep_group",
		},
		TokenDep: CellDepConfig{
			TxHash:  "0xbf6fb538763efec2a70a6a3dcb7242787087e1030c4e7d86585bc63a9d337f5f",
			DepType: "code",
		},
	}
}

// NetworkParams returns the constants for network.
func NetworkParams(network NetworkType) Params {
	if network == Testnet {
		return TestnetParams()
	}
	return MainnetParams()
}

// DefaultLock returns the secp256k1-blake160 lock for the given args.
func DefaultLock(args []byte) types.Script {
	h, _ := types.HexToHash(Secp256k1Blake160CodeHash)
	return types.Script{CodeHash: h, HashType: types.HashTypeType, Args: args}
}

// AddressCodec returns the address codec of the configured network.
func (c *Config) AddressCodec() *address.Codec {
	return address.NewCodec(NetworkParams(c.Network).HRP, DefaultLock(nil))
}

// TokenScript builds the xUDT type script from the token settings.
func (c *Config) TokenScript() (types.Script, error) {
	codeHash := c.Token.CodeHash
	if codeHash == "" {
		codeHash = NetworkParams(c.Network).XUDTCodeHash
	}
	h, err := types.HexToHash(codeHash)
	if err != nil {
		return types.Script{}, fmt.Errorf("token.code_hash: %w", err)
	}
	hashType := types.HashTypeType
	if c.Token.HashType != "" {
		if hashType, err = types.ParseHashType(c.Token.HashType); err != nil {
			return types.Script{}, fmt.Errorf("token.hash_type: %w", err)
		}
	}
	args, err := types.DecodeHex(c.Token.Args)
	if err != nil {
		return types.Script{}, fmt.Errorf("token.args: %w", err)
	}
	return types.Script{CodeHash: h, HashType: hashType, Args: args}, nil
}

// CellDep converts a dep setting into a transaction cell dep.
func (d CellDepConfig) CellDep() (tx.CellDep, error) {
	h, err := types.HexToHash(d.TxHash)
	if err != nil {
		return tx.CellDep{}, fmt.Errorf("tx_hash: %w", err)
	}
	depType, err := tx.ParseDepType(d.DepType)
	if err != nil {
		return tx.CellDep{}, err
	}
	return tx.CellDep{OutPoint: types.OutPoint{TxHash: h, Index: d.Index}, DepType: depType}, nil
}

// CellDeps returns the lock dep followed by the token dep.
func (c *Config) CellDeps() ([]tx.CellDep, error) {
	lock, err := c.Deps.Lock.CellDep()
	if err != nil {
		return nil, fmt.Errorf("deps.lock: %w", err)
	}
	token, err := c.Deps.Token.CellDep()
	if err != nil {
		return nil, fmt.Errorf("deps.token: %w", err)
	}
	return []tx.CellDep{lock, token}, nil
}

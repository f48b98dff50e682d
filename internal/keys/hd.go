package keys

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"

	"github.com/Klingon-tech/xudt-tools/pkg/crypto"
)

// BIP-44 path m/44'/309'/account'/change/index.
const (
	PurposeBIP44 = bip32.FirstHardenedChild + 44
	CoinTypeCKB  = bip32.FirstHardenedChild + 309

	mnemonicEntropyBits = 256
)

// Path selects one key below the CKB coin type.
type Path struct {
	Account uint32
	Change  uint32
	Index   uint32
}

// DefaultPath is the first external key of the first account.
var DefaultPath = Path{}

// String returns the path in m/44'/309'/a'/c/i notation.
func (p Path) String() string {
	return fmt.Sprintf("m/44'/309'/%d'/%d/%d", p.Account, p.Change, p.Index)
}

// ParsePath parses a path in the form produced by String.
func ParsePath(s string) (Path, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 6 || parts[0] != "m" || parts[1] != "44'" || parts[2] != "309'" {
		return Path{}, fmt.Errorf("invalid derivation path %q", s)
	}
	if !strings.HasSuffix(parts[3], "'") {
		return Path{}, fmt.Errorf("invalid derivation path %q: account must be hardened", s)
	}
	var vals [3]uint32
	for i, part := range []string{strings.TrimSuffix(parts[3], "'"), parts[4], parts[5]} {
		v, err := strconv.ParseUint(part, 10, 31)
		if err != nil {
			return Path{}, fmt.Errorf("invalid derivation path %q: %w", s, err)
		}
		vals[i] = uint32(v)
	}
	return Path{Account: vals[0], Change: vals[1], Index: vals[2]}, nil
}

func (p Path) indices() []uint32 {
	return []uint32{
		PurposeBIP44,
		CoinTypeCKB,
		bip32.FirstHardenedChild + p.Account,
		p.Change,
		p.Index,
	}
}

// GenerateMnemonic creates a new 24-word BIP-39 mnemonic.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropyBits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	return bip39.NewMnemonic(entropy)
}

// FromMnemonic derives the secp256k1 key at path from a BIP-39 mnemonic and
// optional passphrase.
func FromMnemonic(mnemonic, passphrase string, path Path) (*crypto.PrivateKey, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("derive seed: %w", err)
	}
	defer wipe(seed)

	k, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	for _, idx := range path.indices() {
		if k, err = k.NewChildKey(idx); err != nil {
			return nil, fmt.Errorf("derive %s: %w", path, err)
		}
	}

	// bip32 stores private keys with a leading zero byte.
	raw := k.Key
	if len(raw) == 33 && raw[0] == 0 {
		raw = raw[1:]
	}
	return crypto.PrivateKeyFromBytes(raw)
}

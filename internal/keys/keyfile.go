// Package keys loads the sender's signing key from a plain hex file, a
// password-protected key file or a BIP-39 mnemonic file.
package keys

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Klingon-tech/xudt-tools/pkg/crypto"
	"github.com/Klingon-tech/xudt-tools/pkg/types"
)

// keyFileVersion is the current encrypted key file format.
const keyFileVersion = 1

// ErrNoKeySource is returned when neither a key file nor a mnemonic file is set.
var ErrNoKeySource = errors.New("no key file or mnemonic file configured")

// keyFile is the on-disk JSON form of an encrypted private key. LockArgs is
// stored in clear so the owner can be identified without the password.
type keyFile struct {
	Version   int        `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	LockArgs  hexBytes   `json:"lock_args"`
	Crypto    *sealedBox `json:"crypto"`
}

// PasswordFunc supplies the password of an encrypted key file.
type PasswordFunc func() ([]byte, error)

// WriteEncrypted stores key at path, encrypted under password. An existing
// file is never overwritten.
func WriteEncrypted(path string, key *crypto.PrivateKey, password []byte, params KDFParams) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("key file %s already exists", path)
	}
	secret := key.Serialize()
	defer wipe(secret)

	box, err := seal(secret, password, params)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(keyFile{
		Version:   keyFileVersion,
		CreatedAt: time.Now().UTC(),
		LockArgs:  key.LockArgs(),
		Crypto:    box,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal key file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}

	// Write to a temp file first so a crash never leaves a truncated key.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadEncrypted decrypts the key file at path.
func LoadEncrypted(path string, password []byte) (*crypto.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return decodeEncrypted(data, password)
}

func decodeEncrypted(data, password []byte) (*crypto.PrivateKey, error) {
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse key file: %w", err)
	}
	if kf.Version != keyFileVersion {
		return nil, fmt.Errorf("unsupported key file version %d", kf.Version)
	}
	if kf.Crypto == nil {
		return nil, fmt.Errorf("key file has no crypto section")
	}
	secret, err := kf.Crypto.open(password)
	if err != nil {
		return nil, err
	}
	defer wipe(secret)

	key, err := crypto.PrivateKeyFromBytes(secret)
	if err != nil {
		return nil, err
	}
	if len(kf.LockArgs) > 0 && !bytes.Equal(kf.LockArgs, key.LockArgs()) {
		return nil, fmt.Errorf("key file lock args do not match the decrypted key")
	}
	return key, nil
}

// ParseHexKey parses a 32-byte private key written as hex, with or without
// a 0x prefix. Surrounding whitespace is ignored.
func ParseHexKey(s string) (*crypto.PrivateKey, error) {
	b, err := types.DecodeHex(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	defer wipe(b)
	return crypto.PrivateKeyFromBytes(b)
}

// Source describes where the sender key comes from. MnemonicFile wins over
// KeyFile when both are set.
type Source struct {
	KeyFile      string
	MnemonicFile string
	Passphrase   string // BIP-39 passphrase.
	Path         Path
	Password     PasswordFunc // Asked only for encrypted key files.
}

// Load reads the key described by s.
func (s Source) Load() (*crypto.PrivateKey, error) {
	switch {
	case s.MnemonicFile != "":
		data, err := os.ReadFile(s.MnemonicFile)
		if err != nil {
			return nil, fmt.Errorf("read mnemonic file: %w", err)
		}
		return FromMnemonic(string(data), s.Passphrase, s.Path)

	case s.KeyFile != "":
		data, err := os.ReadFile(s.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
			if s.Password == nil {
				return nil, fmt.Errorf("key file %s is encrypted and no password source is set", s.KeyFile)
			}
			password, err := s.Password()
			if err != nil {
				return nil, fmt.Errorf("read password: %w", err)
			}
			defer wipe(password)
			return decodeEncrypted(trimmed, password)
		}
		return ParseHexKey(string(data))

	default:
		return nil, ErrNoKeySource
	}
}

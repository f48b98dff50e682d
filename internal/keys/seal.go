package keys

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/Klingon-tech/xudt-tools/pkg/types"
)

// ErrWrongPassword is returned when a sealed key cannot be opened.
var ErrWrongPassword = errors.New("wrong password or corrupted key file")

const (
	kdfArgon2id    = "argon2id"
	cipherXChaCha  = "xchacha20-poly1305"
	saltSize       = 32
	minKDFMemoryKB = 8
)

// KDFParams holds the Argon2id cost parameters.
type KDFParams struct {
	Memory      uint32 `json:"memory"` // KiB
	Iterations  uint32 `json:"iterations"`
	Parallelism uint8  `json:"parallelism"`
}

// DefaultKDFParams returns the parameters used for new key files.
func DefaultKDFParams() KDFParams {
	return KDFParams{Memory: 64 * 1024, Iterations: 3, Parallelism: 4}
}

// sealedBox is the encrypted part of a key file.
type sealedBox struct {
	KDF        string    `json:"kdf"`
	Params     KDFParams `json:"kdf_params"`
	Salt       hexBytes  `json:"salt"`
	Cipher     string    `json:"cipher"`
	Nonce      hexBytes  `json:"nonce"`
	Ciphertext hexBytes  `json:"ciphertext"`
}

// hexBytes is a byte slice that travels as 0x-prefixed hex in JSON.
type hexBytes []byte

func (h hexBytes) MarshalText() ([]byte, error) {
	return []byte(types.EncodeHex(h)), nil
}

func (h *hexBytes) UnmarshalText(text []byte) error {
	b, err := types.DecodeHex(string(text))
	if err != nil {
		return err
	}
	*h = b
	return nil
}

func kdfKey(password, salt []byte, p KDFParams) []byte {
	return argon2.IDKey(password, salt, p.Iterations, p.Memory, p.Parallelism, chacha20poly1305.KeySize)
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// seal encrypts plaintext under a key stretched from password.
func seal(plaintext, password []byte, p KDFParams) (*sealedBox, error) {
	box := &sealedBox{KDF: kdfArgon2id, Params: p, Cipher: cipherXChaCha}

	box.Salt = make([]byte, saltSize)
	if _, err := rand.Read(box.Salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	key := kdfKey(password, box.Salt, p)
	defer wipe(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	box.Nonce = make([]byte, aead.NonceSize())
	if _, err := rand.Read(box.Nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	box.Ciphertext = aead.Seal(nil, box.Nonce, plaintext, nil)
	return box, nil
}

// open reverses seal.
func (box *sealedBox) open(password []byte) ([]byte, error) {
	if box.KDF != kdfArgon2id || box.Cipher != cipherXChaCha {
		return nil, fmt.Errorf("unsupported key file scheme %s/%s", box.KDF, box.Cipher)
	}
	if box.Params.Memory < minKDFMemoryKB || box.Params.Iterations == 0 || box.Params.Parallelism == 0 {
		return nil, fmt.Errorf("invalid kdf params %+v", box.Params)
	}
	if len(box.Nonce) != chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("nonce must be %d bytes, got %d", chacha20poly1305.NonceSizeX, len(box.Nonce))
	}

	key := kdfKey(password, box.Salt, box.Params)
	defer wipe(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, box.Nonce, box.Ciphertext, nil)
	if err != nil {
		return nil, ErrWrongPassword
	}
	return plaintext, nil
}

package crypto

import (
	"bytes"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// SignatureSize is the length of a recoverable signature: r(32) | s(32) | recid(1).
const SignatureSize = 65

// compactHeader is the recovery-code offset ecdsa.SignCompact applies for
// compressed keys (27 + 4).
const compactHeader = 27 + 4

// Signer signs 32-byte message hashes.
type Signer interface {
	// Sign produces a recoverable signature over a 32-byte hash.
	Sign(hash []byte) ([]byte, error)
	// PublicKey returns the compressed 33-byte public key.
	PublicKey() []byte
}

// PrivateKey wraps a secp256k1 private key.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes creates a PrivateKey from a 32-byte secret.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	key := secp256k1.PrivKeyFromBytes(b)
	return &PrivateKey{key: key}, nil
}

// Sign produces a 65-byte recoverable ECDSA signature over a 32-byte hash,
// laid out as r | s | recovery id.
func (pk *PrivateKey) Sign(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	compact := ecdsa.SignCompact(pk.key, hash, true)
	sig := make([]byte, SignatureSize)
	copy(sig, compact[1:])
	sig[64] = compact[0] - compactHeader
	return sig, nil
}

// PublicKey returns the compressed 33-byte public key.
func (pk *PrivateKey) PublicKey() []byte {
	return pk.key.PubKey().SerializeCompressed()
}

// LockArgs returns the lock args for this key: Blake160(compressed pubkey).
func (pk *PrivateKey) LockArgs() []byte {
	return Blake160(pk.PublicKey())
}

// Serialize returns the 32-byte private key scalar.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// Zero securely zeroes the private key memory.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}

// RecoverPublicKey returns the compressed public key that produced sig over hash.
func RecoverPublicKey(hash, sig []byte) ([]byte, error) {
	if len(sig) != SignatureSize {
		return nil, fmt.Errorf("signature must be %d bytes, got %d", SignatureSize, len(sig))
	}
	if sig[64] > 3 {
		return nil, fmt.Errorf("invalid recovery id %d", sig[64])
	}
	compact := make([]byte, SignatureSize)
	compact[0] = sig[64] + compactHeader
	copy(compact[1:], sig[:64])
	pub, _, err := ecdsa.RecoverCompact(compact, hash)
	if err != nil {
		return nil, fmt.Errorf("recover: %w", err)
	}
	return pub.SerializeCompressed(), nil
}

// VerifySignature reports whether sig over hash recovers to publicKey.
// Returns false on any error.
func VerifySignature(hash, sig, publicKey []byte) bool {
	pub, err := RecoverPublicKey(hash, sig)
	if err != nil {
		return false
	}
	return bytes.Equal(pub, publicKey)
}

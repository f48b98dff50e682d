// Package signer fills the lock witness of an assembled transaction with a
// recoverable secp256k1 signature.
package signer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/xudt-tools/pkg/crypto"
	"github.com/Klingon-tech/xudt-tools/pkg/tx"
	"github.com/Klingon-tech/xudt-tools/pkg/types"
)

var (
	ErrNoInputs         = errors.New("transaction has no inputs")
	ErrWitnessCount     = errors.New("witness count does not match inputs")
	ErrMalformedWitness = errors.New("malformed witness args")
	ErrLockMismatch     = errors.New("signature does not match lock args")
)

// Signer signs transactions whose inputs all share one lock.
type Signer struct {
	key    crypto.Signer
	logger zerolog.Logger
}

// New creates a signer for key.
func New(key crypto.Signer, logger zerolog.Logger) *Signer {
	return &Signer{key: key, logger: logger}
}

// LockArgs returns the lock args owned by the signing key.
func (s *Signer) LockArgs() []byte {
	return crypto.Blake160(s.key.PublicKey())
}

// Sign computes the signing message over the transaction hash and all
// witnesses, with witness[0]'s lock zeroed, and stores the signature as the
// lock of witness[0].
func (s *Signer) Sign(t *tx.Transaction) error {
	if len(t.Inputs) == 0 {
		return ErrNoInputs
	}
	if len(t.Witnesses) < len(t.Inputs) {
		return fmt.Errorf("%w: %d witnesses, %d inputs", ErrWitnessCount, len(t.Witnesses), len(t.Inputs))
	}

	msg := SigningMessage(t)
	sig, err := s.key.Sign(msg[:])
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	t.Witnesses[0] = tx.WitnessArgs{Lock: sig}.Bytes()

	s.logger.Debug().
		Str("tx", t.Hash().String()).
		Int("inputs", len(t.Inputs)).
		Msg("Signed transaction")
	return nil
}

// SigningMessage returns the hash a lock signature commits to.
func SigningMessage(t *tx.Transaction) types.Hash {
	txHash := t.Hash()
	first := tx.WitnessArgs{Lock: make([]byte, crypto.SignatureSize)}.Bytes()

	parts := [][]byte{txHash[:], lengthPrefix(first), first}
	for _, w := range t.Witnesses[1:] {
		parts = append(parts, lengthPrefix(w), w)
	}
	return crypto.HashParts(parts...)
}

func lengthPrefix(b []byte) []byte {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(b)))
	return n[:]
}

// Verify checks that witness[0] carries a signature by the owner of lockArgs.
func Verify(t *tx.Transaction, lockArgs []byte) error {
	if len(t.Witnesses) == 0 {
		return fmt.Errorf("%w: no witnesses", ErrWitnessCount)
	}
	sig, err := witnessLock(t.Witnesses[0])
	if err != nil {
		return err
	}
	msg := SigningMessage(t)
	pub, err := crypto.RecoverPublicKey(msg[:], sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLockMismatch, err)
	}
	if !bytes.Equal(crypto.Blake160(pub), lockArgs) {
		return ErrLockMismatch
	}
	return nil
}

// witnessLock extracts the lock field of serialized witness args.
func witnessLock(w []byte) ([]byte, error) {
	if len(w) < 16 {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedWitness, len(w))
	}
	total := binary.LittleEndian.Uint32(w[0:4])
	start := binary.LittleEndian.Uint32(w[4:8])
	end := binary.LittleEndian.Uint32(w[8:12])
	if int(total) != len(w) || start > end || int(end) > len(w) {
		return nil, fmt.Errorf("%w: bad offsets", ErrMalformedWitness)
	}
	field := w[start:end]
	if len(field) == 0 {
		return nil, fmt.Errorf("%w: lock is empty", ErrMalformedWitness)
	}
	if len(field) < 4 || int(binary.LittleEndian.Uint32(field[:4])) != len(field)-4 {
		return nil, fmt.Errorf("%w: bad lock length", ErrMalformedWitness)
	}
	return field[4:], nil
}

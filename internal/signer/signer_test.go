package signer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/xudt-tools/pkg/crypto"
	"github.com/Klingon-tech/xudt-tools/pkg/tx"
	"github.com/Klingon-tech/xudt-tools/pkg/types"
)

func testTx(lockArgs []byte, inputs int) *tx.Transaction {
	lock := types.Script{CodeHash: types.Hash{0x9b}, HashType: types.HashTypeType, Args: lockArgs}
	b := tx.NewBuilder()
	for i := 0; i < inputs; i++ {
		b.AddInput(types.OutPoint{TxHash: types.Hash{0xa0, byte(i)}})
	}
	return b.AddCapacityOutput(10_000_000_000, lock).SetPlaceholderWitnesses().Build()
}

func newSigner(t *testing.T) *Signer {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return New(key, zerolog.Nop())
}

func mustHash(t *testing.T, s string) types.Hash {
	t.Helper()
	h, err := types.HexToHash(s)
	if err != nil {
		t.Fatalf("HexToHash(%q): %v", s, err)
	}
	return h
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := types.DecodeHex(s)
	if err != nil {
		t.Fatalf("DecodeHex(%q): %v", s, err)
	}
	return b
}

func u128(v uint64) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// mainnetTransfer sends 250 tokens from the dev-chain key's lock to a
// second lock, with token and capacity change back to the sender.
func mainnetTransfer(t *testing.T) *tx.Transaction {
	lockCode := mustHash(t, "0x9bd7e06f3ecf4be0f2fcd2188b23f1b9fcc88e5d4b65a8637b17723bbda3cce8")
	lock := func(args string) types.Script {
		return types.Script{CodeHash: lockCode, HashType: types.HashTypeType, Args: mustHex(t, args)}
	}
	token := types.Script{
		CodeHash: mustHash(t, "0x50bd8d6680b8b9cf98b73f3c08faf8b2a21914311954118ad6609be6e78a1b95"),
		HashType: types.HashTypeType,
		Args:     mustHex(t, "0xbf3e92da4911fa5f620e7b1fd27c2d0ddd0de744ef6f9be3d8a3f0b1b3c9bdc3"),
	}
	sender := lock("0xc8328aabcd9b9e8e64fbc566c4385c3bdeb219d7")

	return tx.NewBuilder().
		AddCellDep(tx.CellDep{
			OutPoint: types.OutPoint{TxHash: mustHash(t, "0x71a7ba8fc96349fea0ed3a5c47992e3b4084b031a42264a018e0072e8172e46c")},
			DepType:  tx.DepTypeDepGroup,
		}).
		AddCellDep(tx.CellDep{
			OutPoint: types.OutPoint{TxHash: mustHash(t, "0xc07844ce21b38e4b071dd0e1ee3b0e27afd8d7532491327f39b786343f558ab7")},
			DepType:  tx.DepTypeCode,
		}).
		AddInput(types.OutPoint{TxHash: mustHash(t, "0x"+strings.Repeat("aa", 32)), Index: 1}).
		AddInput(types.OutPoint{TxHash: mustHash(t, "0x"+strings.Repeat("bb", 32)), Index: 0}).
		AddTokenOutput(143*tx.ShannonsPerCKB, lock("0x36c329ed630d6ce750712a477543672adab57f4c"), token, u128(250*tx.ShannonsPerCKB)).
		AddTokenOutput(143*tx.ShannonsPerCKB, sender, token, u128(750*tx.ShannonsPerCKB)).
		AddCapacityOutput(12345678900, sender).
		SetPlaceholderWitnesses().
		Build()
}

func TestSigningMessage_KnownVector(t *testing.T) {
	transaction := mainnetTransfer(t)
	want := mustHash(t, "0xbcec7941a84d90dcaae51c3bc38f13563f57c15ac6bf278763b1ad4a70d6fe7a")
	if got := SigningMessage(transaction); got != want {
		t.Errorf("SigningMessage() = %x, want %x", got, want)
	}
}

func TestSign_KnownKey(t *testing.T) {
	key, err := crypto.PrivateKeyFromBytes(mustHex(t, "0xd00c06bfd800d27397002dca6fb0993d5ba6399b4238b2f29ee9deb97593d2bc"))
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes: %v", err)
	}
	s := New(key, zerolog.Nop())
	owner := mustHex(t, "0xc8328aabcd9b9e8e64fbc566c4385c3bdeb219d7")
	if !bytes.Equal(s.LockArgs(), owner) {
		t.Fatalf("LockArgs() = %x, want %x", s.LockArgs(), owner)
	}

	transaction := mainnetTransfer(t)
	if err := s.Sign(transaction); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := Verify(transaction, owner); err != nil {
		t.Errorf("Verify: %v", err)
	}
	// header(16) + lock bytes(4+65)
	if got := len(transaction.Witnesses[0]); got != 85 {
		t.Errorf("witness 0 size = %d, want 85", got)
	}
}

func TestSign_Verify(t *testing.T) {
	s := newSigner(t)
	transaction := testTx(s.LockArgs(), 3)
	hashBefore := transaction.Hash()

	if err := s.Sign(transaction); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := Verify(transaction, s.LockArgs()); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	// Witnesses are not part of the transaction hash.
	if transaction.Hash() != hashBefore {
		t.Error("signing must not change the transaction hash")
	}

	sig, err := witnessLock(transaction.Witnesses[0])
	if err != nil {
		t.Fatalf("witnessLock: %v", err)
	}
	if len(sig) != crypto.SignatureSize {
		t.Errorf("signature length = %d, want %d", len(sig), crypto.SignatureSize)
	}
	if len(transaction.Witnesses[1]) != 0 {
		t.Errorf("witness 1 = %x, want empty", transaction.Witnesses[1])
	}
}

func TestSign_Deterministic(t *testing.T) {
	s := newSigner(t)
	transaction := testTx(s.LockArgs(), 2)

	if err := s.Sign(transaction); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	first := append([]byte(nil), transaction.Witnesses[0]...)

	// Re-signing ignores the existing lock in witness[0].
	if err := s.Sign(transaction); err != nil {
		t.Fatalf("Sign again: %v", err)
	}
	if !bytes.Equal(first, transaction.Witnesses[0]) {
		t.Error("re-signing produced a different witness")
	}
}

func TestVerify_Tampered(t *testing.T) {
	s := newSigner(t)
	transaction := testTx(s.LockArgs(), 2)
	if err := s.Sign(transaction); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	transaction.Outputs[0].Capacity--
	if err := Verify(transaction, s.LockArgs()); !errors.Is(err, ErrLockMismatch) {
		t.Errorf("Verify() = %v, want ErrLockMismatch", err)
	}
}

func TestVerify_TamperedWitness(t *testing.T) {
	s := newSigner(t)
	transaction := testTx(s.LockArgs(), 2)
	if err := s.Sign(transaction); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	transaction.Witnesses[1] = []byte{0x01}
	if err := Verify(transaction, s.LockArgs()); !errors.Is(err, ErrLockMismatch) {
		t.Errorf("Verify() = %v, want ErrLockMismatch", err)
	}
}

func TestVerify_WrongOwner(t *testing.T) {
	s := newSigner(t)
	transaction := testTx(s.LockArgs(), 1)
	if err := s.Sign(transaction); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if err := Verify(transaction, bytes.Repeat([]byte{0x11}, 20)); !errors.Is(err, ErrLockMismatch) {
		t.Errorf("Verify() = %v, want ErrLockMismatch", err)
	}
}

func TestVerify_Unsigned(t *testing.T) {
	transaction := testTx(bytes.Repeat([]byte{0x11}, 20), 1)
	if err := Verify(transaction, bytes.Repeat([]byte{0x11}, 20)); !errors.Is(err, ErrMalformedWitness) {
		t.Errorf("Verify() = %v, want ErrMalformedWitness", err)
	}
}

func TestSign_Errors(t *testing.T) {
	s := newSigner(t)

	empty := tx.NewBuilder().AddCapacityOutput(10_000_000_000, types.Script{}).Build()
	if err := s.Sign(empty); !errors.Is(err, ErrNoInputs) {
		t.Errorf("Sign(no inputs) = %v, want ErrNoInputs", err)
	}

	noWitness := tx.NewBuilder().
		AddInput(types.OutPoint{TxHash: types.Hash{0x01}}).
		AddCapacityOutput(10_000_000_000, types.Script{}).
		Build()
	if err := s.Sign(noWitness); !errors.Is(err, ErrWitnessCount) {
		t.Errorf("Sign(no witnesses) = %v, want ErrWitnessCount", err)
	}
}

func TestWitnessLock_Malformed(t *testing.T) {
	for name, w := range map[string][]byte{
		"short":       {0x01, 0x02},
		"bad total":   append([]byte{0xff, 0, 0, 0}, make([]byte, 12)...),
		"bad offsets": {16, 0, 0, 0, 16, 0, 0, 0, 32, 0, 0, 0, 16, 0, 0, 0},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := witnessLock(w); !errors.Is(err, ErrMalformedWitness) {
				t.Errorf("witnessLock() = %v, want ErrMalformedWitness", err)
			}
		})
	}
}

// Package crypto provides the hashing and signing primitives used to derive
// lock args and to sign transfer transactions.
package crypto

import (
	"hash"

	"github.com/Klingon-tech/xudt-tools/pkg/types"
	"github.com/dchest/blake2b"
)

// Blake160Size is the length of a truncated public key hash.
const Blake160Size = 20

// personalization is the blake2b personal string of the chain's default hash.
var personalization = []byte("ckb-default-hash")

func newHasher() hash.Hash {
	h, err := blake2b.New(&blake2b.Config{Size: types.HashSize, Person: personalization})
	if err != nil {
		// Only reachable with an invalid static config.
		panic(err)
	}
	return h
}

// Hash computes the personalized BLAKE2b-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return HashParts(data)
}

// HashParts hashes the concatenation of parts without building it first.
func HashParts(parts ...[]byte) types.Hash {
	h := newHasher()
	for _, p := range parts {
		_, _ = h.Write(p)
	}
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Blake160 returns the first 20 bytes of Hash(data). Lock args of the
// default single-signature lock are Blake160(compressed pubkey).
func Blake160(data []byte) []byte {
	h := Hash(data)
	out := make([]byte, Blake160Size)
	copy(out, h[:Blake160Size])
	return out
}

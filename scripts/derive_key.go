// derive_key.go prints the pubkey, lock args and addresses for a hex-encoded
// private key file.
// Usage: go run scripts/derive_key.go <keyfile>
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/Klingon-tech/xudt-tools/config"
	"github.com/Klingon-tech/xudt-tools/internal/keys"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: derive_key <keyfile>")
		os.Exit(1)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	key, err := keys.ParseHexKey(string(data))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer key.Zero()

	lock := config.DefaultLock(key.LockArgs())
	fmt.Printf("pubkey=%s\n", hex.EncodeToString(key.PublicKey()))
	fmt.Printf("lock_args=%s\n", hex.EncodeToString(lock.Args))
	for _, network := range []config.NetworkType{config.Mainnet, config.Testnet} {
		addr, err := config.Default(network).AddressCodec().Encode(lock)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("%s=%s\n", network, addr)
	}
}

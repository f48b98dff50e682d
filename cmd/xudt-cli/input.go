package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/Klingon-tech/xudt-tools/internal/wallet"
	"github.com/Klingon-tech/xudt-tools/pkg/xudt"
)

// readAddressFile reads one address per line. Blank lines and lines starting
// with # are skipped.
func readAddressFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open address file: %w", err)
	}
	defer f.Close()
	return readAddresses(f)
}

func readAddresses(r io.Reader) ([]string, error) {
	var addrs []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		addrs = append(addrs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read addresses: %w", err)
	}
	return addrs, nil
}

// gatherAddresses collects addresses from --address, --addresses and the
// positional arguments, in that order.
func gatherAddresses(c *cli.Context) ([]string, error) {
	addrs := append([]string{}, c.StringSlice("address")...)
	if path := c.String("addresses"); path != "" {
		fromFile, err := readAddressFile(path)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, fromFile...)
	}
	addrs = append(addrs, c.Args().Slice()...)
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no addresses given")
	}
	return addrs, nil
}

// checkUnique rejects lists that name the same address twice.
func checkUnique(addrs []string) error {
	seen := make(map[string]int, len(addrs))
	for i, a := range addrs {
		if j, ok := seen[a]; ok {
			return fmt.Errorf("address %s listed twice (entries %d and %d)", a, j+1, i+1)
		}
		seen[a] = i
	}
	return nil
}

// parseReceivers parses "address=amount" arguments. Amounts are decimal
// token units with at most decimals fractional digits.
func parseReceivers(args []string, decimals uint8, resolver wallet.AddressResolver) ([]wallet.Receiver, error) {
	receivers := make([]wallet.Receiver, 0, len(args))
	for i, arg := range args {
		addr, amountStr, ok := strings.Cut(arg, "=")
		addr, amountStr = strings.TrimSpace(addr), strings.TrimSpace(amountStr)
		if !ok || addr == "" || amountStr == "" {
			return nil, fmt.Errorf("receiver %d: expected <address>=<amount>, got %q", i+1, arg)
		}
		lock, err := resolver.ScriptFromAddress(addr)
		if err != nil {
			return nil, fmt.Errorf("receiver %d: %w", i+1, err)
		}
		amount, err := xudt.ParseUnits(amountStr, decimals)
		if err != nil {
			return nil, fmt.Errorf("receiver %d: %w", i+1, err)
		}
		receivers = append(receivers, wallet.Receiver{To: addr, Lock: lock, Amount: amount})
	}
	return receivers, nil
}

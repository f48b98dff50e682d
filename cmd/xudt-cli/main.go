// xudt-cli reports xUDT token balances and assembles, signs and submits
// batch token transfers on CKB.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "xudt-cli",
		Usage: "xUDT balance reports and batch transfers",
		Description: "Configuration is read from <datadir>/xudt.conf (see `xudt-cli init`).\n" +
			"Global flags override file values.",
		Flags: globalFlags(),
		Commands: []*cli.Command{
			balanceCommand(),
			transferCommand(),
			topupCommand(),
			statusCommand(),
			pendingCommand(),
			keyCommand(),
			initCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "network", Usage: "mainnet or testnet", EnvVars: []string{"XUDT_NETWORK"}},
		&cli.StringFlag{Name: "datadir", Usage: "data directory (default: ~/.xudt-tools)"},
		&cli.StringFlag{Name: "config", Usage: "config file (default: <datadir>/xudt.conf)"},
		&cli.StringFlag{Name: "rpc", Usage: "node RPC endpoint", EnvVars: []string{"XUDT_RPC"}},
		&cli.StringFlag{Name: "indexer", Usage: "indexer RPC endpoint (default: --rpc)"},
		&cli.Uint64Flag{Name: "fee-rate", Usage: "fee rate in shannons per 1000 bytes"},
		&cli.StringFlag{Name: "token-args", Usage: "xUDT type script args (hex)"},
		&cli.UintFlag{Name: "decimals", Usage: "token decimals"},
		&cli.StringFlag{Name: "key-file", Usage: "hex or encrypted private key file"},
		&cli.StringFlag{Name: "mnemonic-file", Usage: "BIP-39 mnemonic file"},
		&cli.StringFlag{Name: "key-path", Usage: "derivation path for --mnemonic-file"},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
		&cli.StringFlag{Name: "log-file", Usage: "also write JSON logs to this file"},
		&cli.BoolFlag{Name: "log-json", Usage: "log JSON to stderr"},
	}
}

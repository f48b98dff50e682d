package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Klingon-tech/xudt-tools/config"
	"github.com/Klingon-tech/xudt-tools/internal/indexer"
	"github.com/Klingon-tech/xudt-tools/internal/keys"
	"github.com/Klingon-tech/xudt-tools/internal/log"
	"github.com/Klingon-tech/xudt-tools/internal/rpcclient"
	"github.com/Klingon-tech/xudt-tools/internal/signer"
	"github.com/Klingon-tech/xudt-tools/internal/wallet"
	"github.com/Klingon-tech/xudt-tools/pkg/crypto"
	"github.com/Klingon-tech/xudt-tools/pkg/tx"
	"github.com/Klingon-tech/xudt-tools/pkg/types"
	"github.com/Klingon-tech/xudt-tools/pkg/xudt"
)

func addressesFlag() cli.Flag {
	return &cli.StringFlag{Name: "addresses", Usage: "file with one address per line"}
}

func cellsFileFlag() cli.Flag {
	return &cli.StringFlag{Name: "cells-file", Usage: "read live cells from a JSON file instead of the indexer"}
}

func dryRunFlag() cli.Flag {
	return &cli.BoolFlag{Name: "dry-run", Usage: "print the unsigned transaction instead of signing and submitting"}
}

func fromFlag() cli.Flag {
	return &cli.StringFlag{Name: "from", Usage: "sender address (default: address of the configured key)"}
}

func concurrencyFlag() cli.Flag {
	return &cli.IntFlag{Name: "concurrency", Value: wallet.DefaultBalanceConcurrency, Usage: "parallel balance queries"}
}

// ── balance ─────────────────────────────────────────────────────────────

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "balance",
		Usage:     "Show token balances",
		ArgsUsage: "[address...]",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "address", Usage: "address to query (repeatable)"},
			addressesFlag(),
			cellsFileFlag(),
			concurrencyFlag(),
		},
		Action: func(c *cli.Context) error {
			e, err := loadEnv(c)
			if err != nil {
				return err
			}
			addrs, err := gatherAddresses(c)
			if err != nil {
				return err
			}
			source, err := e.cellSource(c.String("cells-file"))
			if err != nil {
				return err
			}

			fetcher := wallet.NewBalanceFetcher(source, e.codec, e.token)
			fetcher.SetConcurrency(c.Int("concurrency"))
			balances, err := fetcher.Balances(c.Context, addrs)
			if err != nil {
				return err
			}

			total := xudt.Amount{}
			for _, b := range balances {
				fmt.Fprintf(c.App.Writer, "%s  %s%s  (%d cells)\n",
					b.Address, xudt.FormatUnits(b.Amount, e.cfg.Token.Decimals), e.symbol(), b.Cells)
				if total, err = total.Add(b.Amount); err != nil {
					return err
				}
			}
			if len(balances) > 1 {
				fmt.Fprintf(c.App.Writer, "Total: %s%s across %d addresses\n",
					xudt.FormatUnits(total, e.cfg.Token.Decimals), e.symbol(), len(balances))
			}
			return nil
		},
	}
}

func (e *env) symbol() string {
	if e.cfg.Token.Symbol == "" {
		return ""
	}
	return " " + e.cfg.Token.Symbol
}

// ── transfer ────────────────────────────────────────────────────────────

func transferCommand() *cli.Command {
	return &cli.Command{
		Name:      "transfer",
		Usage:     "Send tokens to one or more receivers in one transaction",
		ArgsUsage: "<address>=<amount>...",
		Flags:     []cli.Flag{cellsFileFlag(), dryRunFlag(), fromFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("usage: xudt-cli transfer <address>=<amount>...")
			}
			e, err := loadEnv(c)
			if err != nil {
				return err
			}
			receivers, err := parseReceivers(c.Args().Slice(), e.cfg.Token.Decimals, e.codec)
			if err != nil {
				return err
			}
			return submitTransfer(c, e, receivers)
		},
	}
}

// ── topup ───────────────────────────────────────────────────────────────

func topupCommand() *cli.Command {
	return &cli.Command{
		Name:      "topup",
		Usage:     "Bring every listed address up to a target balance",
		ArgsUsage: "[address...]",
		Flags: []cli.Flag{
			addressesFlag(),
			&cli.StringFlag{Name: "target", Required: true, Usage: "target balance in token units (e.g. 100)"},
			cellsFileFlag(),
			dryRunFlag(),
			fromFlag(),
			concurrencyFlag(),
		},
		Action: func(c *cli.Context) error {
			e, err := loadEnv(c)
			if err != nil {
				return err
			}
			addrs, err := gatherAddresses(c)
			if err != nil {
				return err
			}
			if err := checkUnique(addrs); err != nil {
				return err
			}
			source, err := e.cellSource(c.String("cells-file"))
			if err != nil {
				return err
			}

			fetcher := wallet.NewBalanceFetcher(source, e.codec, e.token)
			fetcher.SetConcurrency(c.Int("concurrency"))
			planner := wallet.NewPlanner(fetcher, e.cfg.Token.Decimals, log.Wallet)
			plan, err := planner.PlanUnits(c.Context, addrs, c.String("target"))
			if err != nil {
				return err
			}

			w := summaryWriter(c)
			dec := e.cfg.Token.Decimals
			for _, entry := range plan.Entries {
				fmt.Fprintf(w, "%s  balance %s  top-up %s\n",
					entry.Address, xudt.FormatUnits(entry.Balance, dec), xudt.FormatUnits(entry.TopUp, dec))
			}
			if plan.Empty() {
				fmt.Fprintln(w, "All addresses are at or above the target")
				return nil
			}
			total, err := plan.Total()
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "Receivers: %d, total %s%s\n", len(plan.Receivers), xudt.FormatUnits(total, dec), e.symbol())

			return submitTransfer(c, e, plan.Receivers)
		},
	}
}

// ── transfer pipeline ───────────────────────────────────────────────────

// summaryWriter keeps stdout for the transaction JSON during dry runs.
func summaryWriter(c *cli.Context) io.Writer {
	if c.Bool("dry-run") {
		return c.App.ErrWriter
	}
	return c.App.Writer
}

// submitTransfer assembles a transfer from the sender to receivers, then
// either prints it (dry run) or signs, submits and records its inputs as
// pending.
func submitTransfer(c *cli.Context, e *env, receivers []wallet.Receiver) error {
	dryRun := c.Bool("dry-run")

	var (
		sender types.Script
		key    *crypto.PrivateKey
		err    error
	)
	from := c.String("from")
	if from != "" {
		if sender, err = e.codec.ScriptFromAddress(from); err != nil {
			return fmt.Errorf("--from: %w", err)
		}
	}
	if from == "" || !dryRun {
		if key, err = e.loadKey(); err != nil {
			return fmt.Errorf("load key: %w", err)
		}
		defer key.Zero()
		own := config.DefaultLock(key.LockArgs())
		if from != "" && !sender.Equal(own) {
			return fmt.Errorf("--from %s is not controlled by the configured key", from)
		}
		sender = own
	}

	source, err := e.cellSource(c.String("cells-file"))
	if err != nil {
		return err
	}
	pending, closePending, err := e.openPending()
	if err != nil {
		return err
	}
	defer closePending()

	asm, err := e.assembler(indexer.NewFilteringCollector(source, pending, log.Indexer))
	if err != nil {
		return err
	}
	res, err := asm.Assemble(c.Context, wallet.TransferRequest{Sender: sender, Receivers: receivers})
	if err != nil {
		return err
	}
	printResult(summaryWriter(c), e, res)

	if dryRun {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(rpcclient.EncodeTransaction(res.Tx))
	}

	if err := signer.New(key, log.Signer).Sign(res.Tx); err != nil {
		return err
	}
	hash, err := e.nodeClient().SendTransaction(c.Context, res.Tx, rpcclient.ValidatorPassthrough)
	if err != nil {
		return err
	}
	if err := pending.MarkSpent(hash, inputOutPoints(res.Tx), time.Now()); err != nil {
		// The transaction is already in the pool; only reselection protection is lost.
		log.CLI.Warn().Err(err).Str("tx", hash.String()).Msg("Record pending inputs")
	}

	log.CLI.Info().
		Str("tx", hash.String()).
		Int("receivers", len(receivers)).
		Uint64("fee", res.Fee).
		Msg("Transfer submitted")
	fmt.Fprintf(c.App.Writer, "Submitted: %s\n", hash)
	return nil
}

func inputOutPoints(t *tx.Transaction) []types.OutPoint {
	ops := make([]types.OutPoint, len(t.Inputs))
	for i, in := range t.Inputs {
		ops[i] = in.PreviousOutput
	}
	return ops
}

func printResult(w io.Writer, e *env, res *wallet.Result) {
	dec := e.cfg.Token.Decimals
	fmt.Fprintf(w, "Inputs:       %d (%s CKB)\n", len(res.Inputs), formatCKB(res.InputCapacity))
	fmt.Fprintf(w, "Outputs:      %d (%s CKB)\n", len(res.Tx.Outputs), formatCKB(res.OutputCapacity))
	fmt.Fprintf(w, "Transfer:     %s%s\n", xudt.FormatUnits(res.Transfer, dec), e.symbol())
	if !res.TokenChange.IsZero() {
		fmt.Fprintf(w, "Token change: %s%s\n", xudt.FormatUnits(res.TokenChange, dec), e.symbol())
	}
	fmt.Fprintf(w, "CKB change:   %s CKB\n", formatCKB(res.CapacityChange))
	fmt.Fprintf(w, "Fee:          %s CKB\n", formatCKB(res.Fee))
}

// formatCKB formats shannons as CKB with 8 decimal places.
func formatCKB(shannons uint64) string {
	return fmt.Sprintf("%d.%08d", shannons/tx.ShannonsPerCKB, shannons%tx.ShannonsPerCKB)
}

// ── status ──────────────────────────────────────────────────────────────

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show the status of a submitted transaction",
		ArgsUsage: "<tx-hash>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("usage: xudt-cli status <tx-hash>")
			}
			hash, err := types.HexToHash(c.Args().First())
			if err != nil {
				return fmt.Errorf("invalid tx hash: %w", err)
			}
			e, err := loadEnv(c)
			if err != nil {
				return err
			}

			st, err := e.nodeClient().GetTransactionStatus(c.Context, hash)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Status: %s\n", st.Status)
			if st.BlockHash != nil {
				fmt.Fprintf(c.App.Writer, "Block:  %s\n", st.BlockHash)
			}
			if st.Reason != nil {
				fmt.Fprintf(c.App.Writer, "Reason: %s\n", *st.Reason)
			}

			// Once settled, the inputs are either gone from the indexer or free again.
			if st.Status != rpcclient.StatusCommitted && st.Status != rpcclient.StatusRejected {
				return nil
			}
			pending, closePending, err := e.openPending()
			if err != nil {
				return err
			}
			defer closePending()
			n, err := pending.Release(hash)
			if err != nil {
				return err
			}
			if n > 0 {
				fmt.Fprintf(c.App.Writer, "Released %d pending inputs\n", n)
			}
			return nil
		},
	}
}

// ── pending ─────────────────────────────────────────────────────────────

func pendingCommand() *cli.Command {
	return &cli.Command{
		Name:  "pending",
		Usage: "Inspect inputs held back by submitted transactions",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List pending inputs",
				Action: withPending(func(c *cli.Context, store *indexer.PendingStore) error {
					entries, err := store.List()
					if err != nil {
						return err
					}
					if len(entries) == 0 {
						fmt.Fprintln(c.App.Writer, "No pending inputs")
						return nil
					}
					now := time.Now()
					for _, pe := range entries {
						fmt.Fprintf(c.App.Writer, "%s  spent by %s  %s ago\n",
							pe.OutPoint, pe.SpentBy, now.Sub(pe.CreatedAt).Truncate(time.Second))
					}
					return nil
				}),
			},
			{
				Name:      "release",
				Usage:     "Release the inputs of a transaction",
				ArgsUsage: "<tx-hash>",
				Action: withPending(func(c *cli.Context, store *indexer.PendingStore) error {
					if c.NArg() != 1 {
						return fmt.Errorf("usage: xudt-cli pending release <tx-hash>")
					}
					hash, err := types.HexToHash(c.Args().First())
					if err != nil {
						return fmt.Errorf("invalid tx hash: %w", err)
					}
					n, err := store.Release(hash)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Released %d pending inputs\n", n)
					return nil
				}),
			},
			{
				Name:  "prune",
				Usage: "Release inputs recorded before a cutoff",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "older-than", Value: 24 * time.Hour, Usage: "minimum entry age"},
				},
				Action: withPending(func(c *cli.Context, store *indexer.PendingStore) error {
					n, err := store.Prune(time.Now().Add(-c.Duration("older-than")))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Pruned %d pending inputs\n", n)
					return nil
				}),
			},
		},
	}
}

func withPending(fn func(*cli.Context, *indexer.PendingStore) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, err := loadEnv(c)
		if err != nil {
			return err
		}
		store, closeStore, err := e.openPending()
		if err != nil {
			return err
		}
		defer closeStore()
		return fn(c, store)
	}
}

// ── key ─────────────────────────────────────────────────────────────────

func keyCommand() *cli.Command {
	return &cli.Command{
		Name:  "key",
		Usage: "Manage the sender key",
		Subcommands: []*cli.Command{
			{
				Name:  "mnemonic",
				Usage: "Print a new 24-word mnemonic",
				Action: func(c *cli.Context) error {
					mnemonic, err := keys.GenerateMnemonic()
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, mnemonic)
					return nil
				},
			},
			{
				Name:  "new",
				Usage: "Generate a key and write it to an encrypted key file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Required: true, Usage: "key file to create"},
				},
				Action: func(c *cli.Context) error {
					e, err := loadEnv(c)
					if err != nil {
						return err
					}
					password, err := readPassword("New password: ")
					if err != nil {
						return fmt.Errorf("read password: %w", err)
					}
					confirm, err := readPassword("Confirm password: ")
					if err != nil {
						return fmt.Errorf("read password: %w", err)
					}
					if string(password) != string(confirm) {
						return fmt.Errorf("passwords do not match")
					}

					key, err := crypto.GenerateKey()
					if err != nil {
						return err
					}
					defer key.Zero()
					if err := keys.WriteEncrypted(c.String("out"), key, password, keys.DefaultKDFParams()); err != nil {
						return err
					}
					addr, err := e.codec.Encode(config.DefaultLock(key.LockArgs()))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Key file: %s\nAddress:  %s\n", c.String("out"), addr)
					return nil
				},
			},
			{
				Name:  "address",
				Usage: "Print the address of the configured key",
				Action: func(c *cli.Context) error {
					e, err := loadEnv(c)
					if err != nil {
						return err
					}
					key, err := e.loadKey()
					if err != nil {
						return err
					}
					defer key.Zero()
					lock := config.DefaultLock(key.LockArgs())
					addr, err := e.codec.Encode(lock)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Address:   %s\nLock args: %s\n", addr, types.EncodeHex(lock.Args))
					return nil
				},
			},
		},
	}
}

// ── init ────────────────────────────────────────────────────────────────

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write a default config file",
		Action: func(c *cli.Context) error {
			f, err := flagsFromContext(c)
			if err != nil {
				return err
			}
			network := config.NetworkType(f.Network)
			if network == "" {
				network = config.Mainnet
			}
			cfg := config.Default(network)
			if f.DataDir != "" {
				cfg.DataDir = f.DataDir
			}
			path := f.Config
			if path == "" {
				path = cfg.ConfigFile()
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config file %s already exists", path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
				return err
			}
			if err := config.WriteDefaultConfig(path, network); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Wrote %s\n", path)
			return nil
		},
	}
}

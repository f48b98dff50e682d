package main

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/Klingon-tech/xudt-tools/config"
	"github.com/Klingon-tech/xudt-tools/internal/indexer"
	"github.com/Klingon-tech/xudt-tools/internal/keys"
	"github.com/Klingon-tech/xudt-tools/internal/log"
	"github.com/Klingon-tech/xudt-tools/internal/rpcclient"
	"github.com/Klingon-tech/xudt-tools/internal/storage"
	"github.com/Klingon-tech/xudt-tools/internal/wallet"
	"github.com/Klingon-tech/xudt-tools/pkg/address"
	"github.com/Klingon-tech/xudt-tools/pkg/crypto"
	"github.com/Klingon-tech/xudt-tools/pkg/types"
)

// flagsFromContext maps global CLI flags onto config overrides.
func flagsFromContext(c *cli.Context) (*config.Flags, error) {
	f := &config.Flags{
		Network:      c.String("network"),
		DataDir:      c.String("datadir"),
		Config:       c.String("config"),
		RPCURL:       c.String("rpc"),
		IndexerURL:   c.String("indexer"),
		FeeRate:      c.Uint64("fee-rate"),
		TokenArgs:    c.String("token-args"),
		KeyFile:      c.String("key-file"),
		MnemonicFile: c.String("mnemonic-file"),
		KeyPath:      c.String("key-path"),
		LogLevel:     c.String("log-level"),
		LogFile:      c.String("log-file"),
		LogJSON:      c.Bool("log-json"),
		SetLogJSON:   c.IsSet("log-json"),
	}
	if c.IsSet("decimals") {
		d := c.Uint("decimals")
		if d > 255 {
			return nil, fmt.Errorf("--decimals %d out of range", d)
		}
		f.Decimals = uint8(d)
		f.SetDecimals = true
	}
	return f, nil
}

// env is the resolved runtime shared by all commands.
type env struct {
	cfg   *config.Config
	codec *address.Codec
	token types.Script
}

func loadEnv(c *cli.Context) (*env, error) {
	f, err := flagsFromContext(c)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(f)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		return nil, err
	}
	token, err := cfg.TokenScript()
	if err != nil {
		return nil, err
	}

	log.CLI.Debug().
		Str("network", string(cfg.Network)).
		Str("rpc", cfg.RPC.URL).
		Str("token", token.String()).
		Msg("Configuration loaded")

	return &env{cfg: cfg, codec: cfg.AddressCodec(), token: token}, nil
}

func (e *env) rpcTimeout() time.Duration {
	return time.Duration(e.cfg.RPC.Timeout) * time.Second
}

// nodeClient returns the client used for submission.
func (e *env) nodeClient() *rpcclient.Node {
	return rpcclient.NewNode(rpcclient.NewWithTimeout(e.cfg.RPC.URL, e.rpcTimeout()))
}

// cellSource returns the live-cell source: a cells file when given, the
// indexer otherwise.
func (e *env) cellSource(cellsFile string) (indexer.CellSource, error) {
	if cellsFile != "" {
		return indexer.LoadCellsFile(cellsFile)
	}
	url := e.cfg.RPC.IndexerURL
	if url == "" {
		url = e.cfg.RPC.URL
	}
	return rpcclient.NewIndexer(rpcclient.NewWithTimeout(url, e.rpcTimeout()), e.cfg.RPC.PageSize, log.Indexer), nil
}

// openPending opens the pending-input store under the data directory.
func (e *env) openPending() (*indexer.PendingStore, func(), error) {
	dir := e.cfg.PendingDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, nil, fmt.Errorf("create pending dir: %w", err)
	}
	db, err := storage.NewBadger(dir)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := db.Close(); err != nil {
			log.Storage.Warn().Err(err).Msg("Close pending store")
		}
	}
	return indexer.NewPendingStore(db), closeFn, nil
}

func (e *env) assembler(collector wallet.CellCollector) (*wallet.Assembler, error) {
	deps, err := e.cfg.CellDeps()
	if err != nil {
		return nil, err
	}
	return wallet.NewAssembler(wallet.AssemblerConfig{
		Token:            e.token,
		CellDeps:         deps,
		UDTCellBufferCKB: e.cfg.Token.CellBuffer,
		Fee: wallet.FeeConfig{
			FeeRate:              e.cfg.Fee.Rate,
			MaxFee:               e.cfg.Fee.Max,
			MinChangeCapacity:    e.cfg.Fee.MinChange,
			SignatureWitnessSize: e.cfg.Fee.WitnessSize,
		},
	}, collector, log.Wallet), nil
}

// loadKey reads the sender key from the configured source.
func (e *env) loadKey() (*crypto.PrivateKey, error) {
	path := keys.DefaultPath
	if e.cfg.Key.Path != "" {
		var err error
		if path, err = keys.ParsePath(e.cfg.Key.Path); err != nil {
			return nil, err
		}
	}
	src := keys.Source{
		KeyFile:      e.cfg.Key.File,
		MnemonicFile: e.cfg.Key.MnemonicFile,
		Passphrase:   os.Getenv("XUDT_PASSPHRASE"),
		Path:         path,
		Password: func() ([]byte, error) {
			return readPassword("Enter password: ")
		},
	}
	return src.Load()
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

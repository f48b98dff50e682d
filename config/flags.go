package config

// Flags holds command-line overrides. Zero values mean "not set"; the Set*
// fields record bool flags given explicitly so that false can override a
// file value.
type Flags struct {
	// Core
	Network string
	DataDir string
	Config  string

	// Endpoints
	RPCURL     string
	IndexerURL string

	// Fees
	FeeRate uint64

	// Token
	TokenArgs string
	Decimals  uint8

	// Key
	KeyFile      string
	MnemonicFile string
	KeyPath      string

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	SetDecimals bool
	SetLogJSON  bool
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	// Core
	if f.Network != "" && NetworkType(f.Network) != cfg.Network {
		dataDir := cfg.DataDir
		*cfg = *Default(NetworkType(f.Network))
		cfg.Network = NetworkType(f.Network)
		cfg.DataDir = dataDir
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	// Endpoints
	if f.RPCURL != "" {
		cfg.RPC.URL = f.RPCURL
	}
	if f.IndexerURL != "" {
		cfg.RPC.IndexerURL = f.IndexerURL
	}

	// Fees
	if f.FeeRate != 0 {
		cfg.Fee.Rate = f.FeeRate
	}

	// Token
	if f.TokenArgs != "" {
		cfg.Token.Args = f.TokenArgs
	}
	if f.SetDecimals {
		cfg.Token.Decimals = f.Decimals
	}

	// Key
	if f.KeyFile != "" {
		cfg.Key.File = f.KeyFile
	}
	if f.MnemonicFile != "" {
		cfg.Key.MnemonicFile = f.MnemonicFile
	}
	if f.KeyPath != "" {
		cfg.Key.Path = f.KeyPath
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// Load builds the effective configuration: network defaults, then the
// config file, then flags.
func Load(f *Flags) (*Config, error) {
	network := NetworkType(f.Network)
	if network == "" {
		network = Mainnet
	}
	cfg := Default(network)
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	path := f.Config
	if path == "" {
		path = cfg.ConfigFile()
	}
	values, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := ApplyFileConfig(cfg, values); err != nil {
		return nil, err
	}
	ApplyFlags(cfg, f)
	return cfg, nil
}

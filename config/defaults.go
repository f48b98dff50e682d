package config

// Default fee and change settings, in shannons.
const (
	DefaultFeeRate     = 1100
	DefaultMaxFee      = 20_000_000    // 0.2 CKB
	DefaultMinChange   = 6_100_000_000 // 61 CKB
	DefaultWitnessSize = 65
	DefaultCellBuffer  = 1 // CKB
	DefaultPageSize    = 100
	DefaultRPCTimeout  = 30 // seconds
)

// DefaultTestToken is the xUDT args of the testnet token the tools were
// first used with.
const DefaultTestToken = "0xd2caac2a880649aa0a3c81c382cce795f962188cd9efa8c0194e4dae07120eef"

// DefaultMainnet returns the default configuration for mainnet.
func DefaultMainnet() *Config {
	params := MainnetParams()
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		RPC: RPCConfig{
			URL:      MainnetRPCURL,
			Timeout:  DefaultRPCTimeout,
			PageSize: DefaultPageSize,
		},
		Fee: FeeConfig{
			Rate:        DefaultFeeRate,
			Max:         DefaultMaxFee,
			MinChange:   DefaultMinChange,
			WitnessSize: DefaultWitnessSize,
		},
		Token: TokenConfig{
			HashType:   "type",
			Decimals:   8,
			CellBuffer: DefaultCellBuffer,
		},
		Deps: DepsConfig{
			Lock:  params.LockDep,
			Token: params.TokenDep,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	params := TestnetParams()
	cfg.Network = Testnet
	cfg.RPC.URL = TestnetRPCURL
	cfg.Token.Args = DefaultTestToken
	cfg.Token.Symbol = "XTT"
	cfg.Deps = DepsConfig{Lock: params.LockDep, Token: params.TokenDep}
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	default:
		return DefaultMainnet()
	}
}

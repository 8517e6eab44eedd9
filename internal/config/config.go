package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for givechain.
type Config struct {
	BaseDir     string            `toml:"base_dir"`
	LogDir      string            `toml:"log_dir"`
	Wallet      WalletConfig      `toml:"wallet"`
	Ledger      LedgerConfig      `toml:"ledger"`
	Aggregation AggregationConfig `toml:"aggregation"`
	Server      ServerConfig      `toml:"server"`
}

// WalletConfig identifies the account the CLI acts as. The address is only
// an identity hint for the static wallet provider; keys never appear here.
type WalletConfig struct {
	Address string `toml:"address,omitempty"`
}

// LedgerConfig represents configuration for the ledger gateway.
// This uses a tagged union pattern - the Type field determines which other
// fields are relevant.
type LedgerConfig struct {
	Type string `toml:"type"` // "eth" or "memory"

	// Ethereum-specific fields (only used when Type == "eth")
	RPCURL          string `toml:"rpc_url,omitempty"`
	ContractAddress string `toml:"contract_address,omitempty"`

	// Memory-specific fields (only used when Type == "memory")
	Owner string `toml:"owner,omitempty"`

	CallTimeoutSeconds int  `toml:"call_timeout_seconds"` // defaults to 15
	MaxRetries         uint `toml:"max_retries"`          // per read call; defaults to 3
}

// AggregationConfig tunes snapshot computation.
type AggregationConfig struct {
	Concurrency     int `toml:"concurrency"`      // concurrent gateway fetches; defaults to 8
	TopCampaigns    int `toml:"top_campaigns"`    // defaults to 5
	RecentCampaigns int `toml:"recent_campaigns"` // defaults to 3
}

// ServerConfig configures the read-only JSON API.
type ServerConfig struct {
	Listen         string   `toml:"listen"` // defaults to ":8547"
	AllowedOrigins []string `toml:"allowed_origins"`
}

// NewConfig creates a new Config with the provided base directory and an
// in-memory ledger, which works out of the box for local exploration.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Ledger: LedgerConfig{
			Type: "memory",
		},
		Server: ServerConfig{
			Listen: ":8547",
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

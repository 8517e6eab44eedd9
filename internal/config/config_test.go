package config

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir: "/home/user/.local/share/givechain",
		LogDir:  "/home/user/.local/share/givechain/log",
		Wallet:  WalletConfig{Address: "0x4444444444444444444444444444444444444444"},
		Ledger: LedgerConfig{
			Type:               "eth",
			RPCURL:             "https://rpc.example.org",
			ContractAddress:    "0x2222222222222222222222222222222222222222",
			CallTimeoutSeconds: 20,
			MaxRetries:         5,
		},
		Aggregation: AggregationConfig{
			Concurrency:     4,
			TopCampaigns:    10,
			RecentCampaigns: 2,
		},
		Server: ServerConfig{
			Listen:         ":9000",
			AllowedOrigins: []string{"https://app.example.org", "http://localhost:3000"},
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.Wallet.Address != original.Wallet.Address {
		t.Errorf("Wallet.Address = %q, want %q", got.Wallet.Address, original.Wallet.Address)
	}
	if got.Ledger.Type != "eth" {
		t.Errorf("Ledger.Type = %q, want %q", got.Ledger.Type, "eth")
	}
	if got.Ledger.RPCURL != original.Ledger.RPCURL {
		t.Errorf("Ledger.RPCURL = %q, want %q", got.Ledger.RPCURL, original.Ledger.RPCURL)
	}
	if got.Ledger.ContractAddress != original.Ledger.ContractAddress {
		t.Errorf("Ledger.ContractAddress = %q, want %q", got.Ledger.ContractAddress, original.Ledger.ContractAddress)
	}
	if got.Ledger.CallTimeoutSeconds != 20 {
		t.Errorf("Ledger.CallTimeoutSeconds = %d, want 20", got.Ledger.CallTimeoutSeconds)
	}
	if got.Ledger.MaxRetries != 5 {
		t.Errorf("Ledger.MaxRetries = %d, want 5", got.Ledger.MaxRetries)
	}
	if got.Aggregation.Concurrency != 4 {
		t.Errorf("Aggregation.Concurrency = %d, want 4", got.Aggregation.Concurrency)
	}
	if got.Server.Listen != ":9000" {
		t.Errorf("Server.Listen = %q, want %q", got.Server.Listen, ":9000")
	}
	if len(got.Server.AllowedOrigins) != 2 {
		t.Fatalf("len(Server.AllowedOrigins) = %d, want 2", len(got.Server.AllowedOrigins))
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/givechain")

	if cfg.BaseDir != "/data/givechain" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/givechain")
	}
	if cfg.LogDir != filepath.Join("/data/givechain", "log") {
		t.Errorf("LogDir = %q, want under base dir", cfg.LogDir)
	}
	if cfg.Ledger.Type != "memory" {
		t.Errorf("Ledger.Type = %q, want %q", cfg.Ledger.Type, "memory")
	}
	if cfg.Server.Listen != ":8547" {
		t.Errorf("Server.Listen = %q, want %q", cfg.Server.Listen, ":8547")
	}
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "givechain.toml")
	cfg := NewConfig(dir)

	if err := Init(path, cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	got, err := ReadFromFile(path)
	if err != nil {
		t.Fatalf("ReadFromFile() error = %v", err)
	}
	if got.BaseDir != dir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, dir)
	}

	// A second Init against the same path must refuse to clobber it.
	if err := Init(path, cfg); err == nil {
		t.Errorf("Init() on existing file succeeded, want error")
	}
}

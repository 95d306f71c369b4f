package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWithEnv(t *testing.T) {
	t.Setenv("BOND_ETH_HTTP_URL", "http://localhost:8545")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ethereum.HTTPURL != "http://localhost:8545" {
		t.Errorf("http_url = %q", cfg.Ethereum.HTTPURL)
	}
	if cfg.Ethereum.NetworkID != NetworkMainnet {
		t.Errorf("network_id = %d", cfg.Ethereum.NetworkID)
	}
	if cfg.Bonding.Debounce != time.Second {
		t.Errorf("debounce = %v", cfg.Bonding.Debounce)
	}
	if cfg.Bonding.CardInterval != 60*time.Second || cfg.Bonding.TableInterval != 5*time.Second {
		t.Errorf("intervals = %v / %v", cfg.Bonding.CardInterval, cfg.Bonding.TableInterval)
	}
	if got := cfg.Bonding.SlippageDecimal().String(); got != "0.2" {
		t.Errorf("slippage = %s", got)
	}
	if cfg.Oracle.IDs["shib"] != "shiba-inu" {
		t.Errorf("oracle ids = %v", cfg.Oracle.IDs)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
ethereum:
  http_url: http://rinkeby:8545
  network_id: 4
contracts:
  testnet:
    treasury: "0x0000000000000000000000000000000000000001"
bonding:
  slippage: 0.1
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ethereum.NetworkID != NetworkTestnet {
		t.Errorf("network_id = %d", cfg.Ethereum.NetworkID)
	}
	nc, ok := cfg.Contracts.ForNetwork(NetworkTestnet)
	if !ok || Address(nc.Treasury).Hex() != "0x0000000000000000000000000000000000000001" {
		t.Errorf("testnet treasury = %q", nc.Treasury)
	}
	if cfg.Bonding.Slippage != 0.1 {
		t.Errorf("slippage = %v", cfg.Bonding.Slippage)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Ethereum: EthereumConfig{HTTPURL: "http://x", NetworkID: NetworkMainnet},
			Oracle:   OracleConfig{BaseURL: "http://o"},
			Market:   MarketConfig{Symbol: "3DOG"},
			Bonding:  BondingConfig{CardInterval: time.Minute, TableInterval: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing url", mutate: func(c *Config) { c.Ethereum.HTTPURL = "" }, wantErr: true},
		{name: "unknown network", mutate: func(c *Config) { c.Ethereum.NetworkID = 137 }, wantErr: true},
		{name: "bad address", mutate: func(c *Config) { c.Contracts.Mainnet.Treasury = "0xnope" }, wantErr: true},
		{name: "negative slippage", mutate: func(c *Config) { c.Bonding.Slippage = -0.1 }, wantErr: true},
		{name: "zero interval", mutate: func(c *Config) { c.Bonding.TableInterval = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

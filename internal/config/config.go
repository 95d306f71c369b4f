// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Supported network IDs.
const (
	NetworkMainnet uint64 = 1
	NetworkTestnet uint64 = 4
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	Contracts ContractsConfig `mapstructure:"contracts"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	Market    MarketConfig    `mapstructure:"market"`
	Bonding   BondingConfig   `mapstructure:"bonding"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Health    HealthConfig    `mapstructure:"health"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// EthereumConfig holds Ethereum node configuration.
type EthereumConfig struct {
	HTTPURL     string        `mapstructure:"http_url"`
	NetworkID   uint64        `mapstructure:"network_id"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// WalletConfig holds the optional signing key. Without a key the client is read-only.
type WalletConfig struct {
	PrivateKey string `mapstructure:"private_key"`
}

// NetworkContracts holds the protocol addresses of one network.
type NetworkContracts struct {
	Treasury              string `mapstructure:"treasury"`
	BondCalculator        string `mapstructure:"bond_calculator"`
	SpecialBondCalculator string `mapstructure:"special_bond_calculator"`
	RedeemHelper          string `mapstructure:"redeem_helper"`
}

// ContractsConfig holds per-network protocol addresses.
type ContractsConfig struct {
	Mainnet NetworkContracts `mapstructure:"mainnet"`
	Testnet NetworkContracts `mapstructure:"testnet"`
}

// ForNetwork returns the addresses for networkID.
func (c ContractsConfig) ForNetwork(networkID uint64) (NetworkContracts, bool) {
	switch networkID {
	case NetworkMainnet:
		return c.Mainnet, true
	case NetworkTestnet:
		return c.Testnet, true
	default:
		return NetworkContracts{}, false
	}
}

// Address parses a configured address, returning the zero address when unset.
func Address(hex string) common.Address {
	if hex == "" {
		return common.Address{}
	}
	return common.HexToAddress(hex)
}

// OracleConfig holds the CoinGecko spot price oracle settings.
type OracleConfig struct {
	BaseURL           string            `mapstructure:"base_url"`
	APIKey            string            `mapstructure:"api_key"`
	IDs               map[string]string `mapstructure:"ids"`
	RequestsPerMinute int               `mapstructure:"requests_per_minute"`
	Timeout           time.Duration     `mapstructure:"timeout"`
	CacheTTL          time.Duration     `mapstructure:"cache_ttl"`
}

// MarketConfig configures the protocol token market price lookup.
type MarketConfig struct {
	Symbol   string        `mapstructure:"symbol"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// BondingConfig holds valuation and refresh settings.
type BondingConfig struct {
	Slippage         float64       `mapstructure:"slippage"`
	Debounce         time.Duration `mapstructure:"debounce"`
	CardInterval     time.Duration `mapstructure:"card_interval"`
	TableInterval    time.Duration `mapstructure:"table_interval"`
	TableRetryBudget int           `mapstructure:"table_retry_budget"`
	LPTolerance      float64       `mapstructure:"lp_tolerance"`
	PayoutSymbol     string        `mapstructure:"payout_symbol"`
}

// SlippageDecimal returns the deposit slippage tolerance as decimal.Decimal.
func (c *BondingConfig) SlippageDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.Slippage)
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// HealthConfig configures the health endpoint server.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("BOND")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.name", "BOND_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "BOND_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "BOND_LOG_LEVEL", "LOG_LEVEL")

	v.BindEnv("ethereum.http_url", "BOND_ETH_HTTP_URL", "ETH_HTTP_URL")
	v.BindEnv("ethereum.network_id", "BOND_NETWORK_ID")

	v.BindEnv("wallet.private_key", "BOND_WALLET_PRIVATE_KEY")

	v.BindEnv("contracts.mainnet.treasury", "BOND_MAINNET_TREASURY")
	v.BindEnv("contracts.mainnet.bond_calculator", "BOND_MAINNET_BOND_CALCULATOR")
	v.BindEnv("contracts.mainnet.special_bond_calculator", "BOND_MAINNET_SPECIAL_BOND_CALCULATOR")
	v.BindEnv("contracts.mainnet.redeem_helper", "BOND_MAINNET_REDEEM_HELPER")
	v.BindEnv("contracts.testnet.treasury", "BOND_TESTNET_TREASURY")
	v.BindEnv("contracts.testnet.bond_calculator", "BOND_TESTNET_BOND_CALCULATOR")
	v.BindEnv("contracts.testnet.special_bond_calculator", "BOND_TESTNET_SPECIAL_BOND_CALCULATOR")
	v.BindEnv("contracts.testnet.redeem_helper", "BOND_TESTNET_REDEEM_HELPER")

	v.BindEnv("oracle.base_url", "BOND_ORACLE_URL")
	v.BindEnv("oracle.api_key", "BOND_ORACLE_API_KEY", "COINGECKO_API_KEY")

	v.BindEnv("telemetry.enabled", "BOND_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "BOND_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "BOND_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_headers", "BOND_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "bondd")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("ethereum.network_id", NetworkMainnet)
	v.SetDefault("ethereum.call_timeout", "15s")

	v.SetDefault("contracts.mainnet.treasury", "0x56D595ea5591D264bc1Ef9E073aF66685F0bFD31")

	v.SetDefault("oracle.base_url", "https://api.coingecko.com/api/v3")
	// Keys are lowercased by viper; lookups must lowercase the symbol.
	v.SetDefault("oracle.ids", map[string]string{
		"shib": "shiba-inu",
		"weth": "weth",
		"eth":  "ethereum",
		"3dog": "cerberus-2",
		"dai":  "dai",
		"lusd": "liquity-usd",
	})
	v.SetDefault("oracle.requests_per_minute", 30)
	v.SetDefault("oracle.timeout", "10s")
	v.SetDefault("oracle.cache_ttl", "30s")

	v.SetDefault("market.symbol", "3DOG")
	v.SetDefault("market.cache_ttl", "30s")

	v.SetDefault("bonding.slippage", 0.2)
	v.SetDefault("bonding.debounce", "1s")
	v.SetDefault("bonding.card_interval", "60s")
	v.SetDefault("bonding.table_interval", "5s")
	v.SetDefault("bonding.table_retry_budget", 2)
	v.SetDefault("bonding.lp_tolerance", 0.05)
	v.SetDefault("bonding.payout_symbol", "3DOG")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "bondd")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)

	v.SetDefault("health.enabled", true)
	v.SetDefault("health.port", 8081)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ethereum.HTTPURL == "" {
		return fmt.Errorf("ethereum.http_url is required")
	}
	if _, ok := c.Contracts.ForNetwork(c.Ethereum.NetworkID); !ok {
		return fmt.Errorf("unsupported ethereum.network_id: %d", c.Ethereum.NetworkID)
	}
	for name, addr := range map[string]string{
		"contracts.mainnet.treasury":                c.Contracts.Mainnet.Treasury,
		"contracts.mainnet.bond_calculator":         c.Contracts.Mainnet.BondCalculator,
		"contracts.mainnet.special_bond_calculator": c.Contracts.Mainnet.SpecialBondCalculator,
		"contracts.mainnet.redeem_helper":           c.Contracts.Mainnet.RedeemHelper,
		"contracts.testnet.treasury":                c.Contracts.Testnet.Treasury,
		"contracts.testnet.bond_calculator":         c.Contracts.Testnet.BondCalculator,
		"contracts.testnet.special_bond_calculator": c.Contracts.Testnet.SpecialBondCalculator,
		"contracts.testnet.redeem_helper":           c.Contracts.Testnet.RedeemHelper,
	} {
		if addr != "" && !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid %s: %s", name, addr)
		}
	}
	if c.Oracle.BaseURL == "" {
		return fmt.Errorf("oracle.base_url is required")
	}
	if c.Market.Symbol == "" {
		return fmt.Errorf("market.symbol is required")
	}
	if c.Bonding.Slippage < 0 {
		return fmt.Errorf("bonding.slippage cannot be negative")
	}
	if c.Bonding.CardInterval <= 0 || c.Bonding.TableInterval <= 0 {
		return fmt.Errorf("bonding refresh intervals must be positive")
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	xerrors "safe-swap/pkg/errors"
)

// Config holds the application configuration
type Config struct {
	RPCURL             string
	ENSRPCURL          string
	SmartAccount       string
	AgentPrivateKey    string
	ExecutorPrivateKey string
	Mode               string
	TxServiceURL       string

	QuoteSource     string
	LiFiAPIKey      string
	LiFiBaseURL     string
	JWTToken        string
	OneClickBaseURL string

	Slippage           float64
	GasPriceMultiplier float64
	RequireApproval    bool

	LogLevel     string
	LogFormat    string
	MetricsFile  string
	NetworksFile string

	AddressBook map[string]string
}

var globalConfig *Config

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetConfigName(".safe-swap")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	// Set default values
	viper.SetDefault("mode", "direct")
	viper.SetDefault("quote_source", "lifi")
	viper.SetDefault("lifi_base_url", "https://li.quest/v1")
	viper.SetDefault("oneclick_base_url", "https://1click.chaindefuser.com")
	viper.SetDefault("slippage", 0.05)
	viper.SetDefault("gas_price_multiplier", 1.1)
	viper.SetDefault("require_approval", true)
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("log_format", "text")

	// Read from environment variables
	viper.SetEnvPrefix("SAFE_SWAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		RPCURL:             viper.GetString("rpc_url"),
		ENSRPCURL:          viper.GetString("ens_rpc_url"),
		SmartAccount:       viper.GetString("smart_account"),
		AgentPrivateKey:    viper.GetString("agent_private_key"),
		ExecutorPrivateKey: viper.GetString("executor_private_key"),
		Mode:               viper.GetString("mode"),
		TxServiceURL:       viper.GetString("tx_service_url"),
		QuoteSource:        viper.GetString("quote_source"),
		LiFiAPIKey:         viper.GetString("lifi_api_key"),
		LiFiBaseURL:        viper.GetString("lifi_base_url"),
		JWTToken:           viper.GetString("jwt_token"),
		OneClickBaseURL:    viper.GetString("oneclick_base_url"),
		Slippage:           viper.GetFloat64("slippage"),
		GasPriceMultiplier: viper.GetFloat64("gas_price_multiplier"),
		RequireApproval:    viper.GetBool("require_approval"),
		LogLevel:           viper.GetString("log_level"),
		LogFormat:          viper.GetString("log_format"),
		MetricsFile:        viper.GetString("metrics_file"),
		NetworksFile:       viper.GetString("networks_file"),
		AddressBook:        viper.GetStringMapString("address_book"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

// Validate checks required keys and value ranges.
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return xerrors.New(xerrors.CodeConfiguration, "RPC URL not found. Please set SAFE_SWAP_RPC_URL or add rpc_url to .safe-swap.yaml")
	}
	if c.SmartAccount == "" {
		return xerrors.New(xerrors.CodeConfiguration, "smart account not found. Please set SAFE_SWAP_SMART_ACCOUNT or add smart_account to .safe-swap.yaml")
	}
	if c.AgentPrivateKey == "" {
		return xerrors.New(xerrors.CodeConfiguration, "agent key not found. Please set SAFE_SWAP_AGENT_PRIVATE_KEY")
	}
	switch c.QuoteSource {
	case "lifi", "uniswap", "oneclick":
	default:
		return xerrors.Newf(xerrors.CodeConfiguration, "unknown quote source %q", c.QuoteSource)
	}
	if c.QuoteSource == "oneclick" && c.JWTToken == "" {
		return xerrors.New(xerrors.CodeConfiguration, "JWT token not found. Please set SAFE_SWAP_JWT_TOKEN to quote through 1Click")
	}
	if c.Slippage <= 0 || c.Slippage >= 1 {
		return xerrors.Newf(xerrors.CodeConfiguration, "slippage must be between 0 and 1, got %v", c.Slippage)
	}
	if c.GasPriceMultiplier < 1 {
		return xerrors.Newf(xerrors.CodeConfiguration, "gas price multiplier must be at least 1, got %v", c.GasPriceMultiplier)
	}
	return nil
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}

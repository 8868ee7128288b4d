package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

var (
	ServiceName    = "lighter-backend"
	ServiceVersion = ""
)

var (
	Env *EnvConfig
)

type EnvConfig struct {
	Env                     string        `mapstructure:"env"`
	Log                     LogConfig     `mapstructure:"log"`
	GracefulShutdownTimeout time.Duration `mapstructure:"graceful_shutdown_timeout"`
	Server                  ServerConfig  `mapstructure:"server"`
	Lighter                 LighterConfig `mapstructure:"lighter"`
	Redis                   RedisConfig   `mapstructure:"redis"`
	Stream                  StreamConfig  `mapstructure:"stream"`
}

type LogConfig struct {
	ShowCaller bool   `mapstructure:"show_caller"`
	LogLevel   string `mapstructure:"log_level"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	// Optional shared secret. When set, every /api endpoint requires a
	// matching X-API-Secret header.
	APISecret string `mapstructure:"api_secret"`
}

type LighterConfig struct {
	APIPrivateKey string `mapstructure:"api_private_key"`
	AccountIndex  int64  `mapstructure:"account_index"`
	APIKeyIndex   uint8  `mapstructure:"api_key_index"`
	// mainnet or testnet, selects the REST/websocket base URLs and chain id.
	Environment     string          `mapstructure:"environment"`
	DefaultSlippage decimal.Decimal `mapstructure:"default_slippage"` // in percentage, e.g. 0.5 for 0.5%
	RequestTimeout  time.Duration   `mapstructure:"request_timeout"`
}

type RedisConfig struct {
	CacheDSN string `mapstructure:"cache_dsn"`
}

type StreamConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Market indexes whose order book tops are kept warm over the websocket
	// stream. Markets not listed here fall back to REST lookups.
	Markets   []int64       `mapstructure:"markets"`
	Freshness time.Duration `mapstructure:"freshness"`
}

func LoadConfig(configPath string) error {
	viper.Reset()

	configPath = strings.TrimSpace(configPath)
	if configPath == "" {
		viper.SetConfigName("config")
		viper.SetConfigType("yml")
		viper.AddConfigPath(".")
	} else {
		ext := strings.ToLower(filepath.Ext(configPath))
		if ext == ".yml" || ext == ".yaml" {
			viper.SetConfigFile(configPath)
		} else {
			viper.SetConfigName(filepath.Base(configPath))
			viper.SetConfigType("yml")
			configDir := filepath.Dir(configPath)
			if configDir == "." || configDir == "" {
				viper.AddConfigPath(".")
			} else {
				viper.AddConfigPath(configDir)
			}
		}
	}

	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	err = viper.Unmarshal(&Env)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config file: %w", err)
	}

	applyDefaults(Env)

	return nil
}

func applyDefaults(cfg *EnvConfig) {
	if cfg == nil {
		return
	}

	if cfg.Server.Port == "" {
		cfg.Server.Port = "3001"
	}
	if cfg.Lighter.Environment == "" {
		cfg.Lighter.Environment = "mainnet"
	}
	if cfg.Lighter.APIKeyIndex == 0 {
		cfg.Lighter.APIKeyIndex = 3
	}
	if cfg.Lighter.DefaultSlippage.IsZero() {
		cfg.Lighter.DefaultSlippage = decimal.RequireFromString("0.5")
	}
	if cfg.Lighter.RequestTimeout <= 0 {
		cfg.Lighter.RequestTimeout = 15 * time.Second
	}
	if cfg.GracefulShutdownTimeout <= 0 {
		cfg.GracefulShutdownTimeout = 10 * time.Second
	}
	if cfg.Stream.Freshness <= 0 {
		cfg.Stream.Freshness = 5 * time.Second
	}
	if cfg.Log.LogLevel == "" {
		cfg.Log.LogLevel = "info"
	}
}

package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/lugondev/go-anvil/pkg/alloc"
	"github.com/lugondev/go-anvil/pkg/entrypoint"
)

// EnvPrefix prefixes environment overrides, e.g. ANVIL_RUNTIME_HEAP_SIZE.
const EnvPrefix = "ANVIL"

// Config holds all configuration for the application
type Config struct {
	Runtime RuntimeConfig `mapstructure:"runtime"`
	Log     LogConfig     `mapstructure:"log"`
}

// RuntimeConfig holds the simulated host limits
type RuntimeConfig struct {
	MaxAccounts   int    `mapstructure:"max_accounts"`
	HeapSize      int    `mapstructure:"heap_size"`      // in bytes
	ComputeBudget uint64 `mapstructure:"compute_budget"` // in compute units
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			MaxAccounts:   entrypoint.MaxTxAccounts,
			HeapSize:      alloc.DefaultHeapLength,
			ComputeBudget: 200_000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()
	cfg := DefaultConfig()
	setDefaults(v, cfg)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(".anvil")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	// Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults registers every key so environment overrides apply even
// without a config file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("runtime.max_accounts", cfg.Runtime.MaxAccounts)
	v.SetDefault("runtime.heap_size", cfg.Runtime.HeapSize)
	v.SetDefault("runtime.compute_budget", cfg.Runtime.ComputeBudget)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
}

// Validate checks the runtime limits against what the account layer supports
func (c *Config) Validate() error {
	if c.Runtime.MaxAccounts < 0 || c.Runtime.MaxAccounts > entrypoint.MaxTxAccounts {
		return fmt.Errorf("runtime.max_accounts must be between 0 and %d, got %d", entrypoint.MaxTxAccounts, c.Runtime.MaxAccounts)
	}
	if c.Runtime.HeapSize < 8 || c.Runtime.HeapSize > alloc.MaxHeapLength {
		return fmt.Errorf("runtime.heap_size must be between 8 and %d, got %d", alloc.MaxHeapLength, c.Runtime.HeapSize)
	}
	if c.Runtime.HeapSize%1024 != 0 {
		return fmt.Errorf("runtime.heap_size must be a multiple of 1024, got %d", c.Runtime.HeapSize)
	}
	if c.Runtime.ComputeBudget == 0 {
		return fmt.Errorf("runtime.compute_budget must be positive")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

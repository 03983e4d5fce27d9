package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from the given path, or from the default
// locations (~/.memgate, .) when path is empty. Environment variables
// with the MEMGATE_ prefix override file values.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		configDir := filepath.Join(home, ".memgate")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("json")
	}

	v.SetEnvPrefix("MEMGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file: defaults plus environment variables.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("gateway.host", "localhost")
	v.SetDefault("gateway.port", 28090)
	v.SetDefault("gateway.read_timeout", 0)
	v.SetDefault("gateway.write_timeout", 0)
	v.SetDefault("gateway.allow_origin", "*")

	v.SetDefault("session.backend", "sqlite")
	v.SetDefault("session.data_dir", defaultDataDir())

	v.SetDefault("memory.backend", "sqlite")
	v.SetDefault("memory.path", filepath.Join(defaultDataDir(), "memory.db"))
	v.SetDefault("memory.quota_max", 2000)
	v.SetDefault("memory.search_limit", 10)

	v.SetDefault("log.level", "info")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".memgate", "data")
}

// Validate checks the configuration for invalid combinations.
func Validate(cfg *Config) error {
	switch cfg.Session.Backend {
	case "", "sqlite", "json":
	default:
		return fmt.Errorf("invalid session backend %q (want sqlite or json)", cfg.Session.Backend)
	}

	switch cfg.Memory.Backend {
	case "", "sqlite":
	case "remote":
		if cfg.Memory.RemoteURL == "" {
			return fmt.Errorf("memory backend %q requires memory.remote_url", cfg.Memory.Backend)
		}
	default:
		return fmt.Errorf("invalid memory backend %q (want sqlite or remote)", cfg.Memory.Backend)
	}

	if cfg.Memory.QuotaMax <= 0 {
		return fmt.Errorf("memory.quota_max must be positive, got %d", cfg.Memory.QuotaMax)
	}
	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		return fmt.Errorf("invalid gateway port %d", cfg.Gateway.Port)
	}

	return nil
}

func hostPort(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}

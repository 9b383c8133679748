// Package config loads clashd settings from a JSON file with CLASH_*
// environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendLevelDB = "leveldb"
	BackendSQLite  = "sqlite"
)

// Oracle providers.
const (
	ProviderStatic     = "static"
	ProviderOpenRouter = "openrouter"
)

// EnvPrefix prefixes every environment override, e.g. CLASH_RPC_PORT.
const EnvPrefix = "CLASH"

// TLSConfig holds PEM paths for the RPC listener. ClientCA is optional and
// turns on mutual TLS.
type TLSConfig struct {
	Cert     string `json:"cert" mapstructure:"cert"`
	Key      string `json:"key" mapstructure:"key"`
	ClientCA string `json:"client_ca" mapstructure:"client_ca"`
}

// RPCConfig configures the JSON-RPC listener.
type RPCConfig struct {
	Port          int       `json:"port" mapstructure:"port"`
	AuthTokenHash string    `json:"auth_token_hash" mapstructure:"auth_token_hash"` // bcrypt; empty disables auth
	TLS           TLSConfig `json:"tls" mapstructure:"tls"`
}

// OracleConfig selects and configures the scoring and topic oracles.
type OracleConfig struct {
	Provider       string   `json:"provider" mapstructure:"provider"`
	APIKey         string   `json:"api_key" mapstructure:"api_key"`
	BaseURL        string   `json:"base_url" mapstructure:"base_url"`
	Models         []string `json:"models" mapstructure:"models"` // one validator per model
	TopicModel     string   `json:"topic_model" mapstructure:"topic_model"`
	Threshold      float64  `json:"threshold" mapstructure:"threshold"`
	TimeoutSeconds int      `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"` // text|json
}

// Config holds all daemon configuration.
type Config struct {
	DataDir string       `json:"data_dir" mapstructure:"data_dir"`
	Backend string       `json:"backend" mapstructure:"backend"`
	Owner   string       `json:"owner" mapstructure:"owner"`
	RPC     RPCConfig    `json:"rpc" mapstructure:"rpc"`
	Oracle  OracleConfig `json:"oracle" mapstructure:"oracle"`
	Log     LogConfig    `json:"log" mapstructure:"log"`
}

// DefaultConfig returns a single-node development configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Backend: BackendLevelDB,
		Owner:   "owner",
		RPC:     RPCConfig{Port: 8545},
		Oracle: OracleConfig{
			Provider:       ProviderStatic,
			Models:         []string{"openai/gpt-4o-mini"},
			TopicModel:     "openai/gpt-4o-mini",
			Threshold:      0.85,
			TimeoutSeconds: 60,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("backend", d.Backend)
	v.SetDefault("owner", d.Owner)
	v.SetDefault("rpc.port", d.RPC.Port)
	v.SetDefault("rpc.auth_token_hash", d.RPC.AuthTokenHash)
	v.SetDefault("rpc.tls.cert", d.RPC.TLS.Cert)
	v.SetDefault("rpc.tls.key", d.RPC.TLS.Key)
	v.SetDefault("rpc.tls.client_ca", d.RPC.TLS.ClientCA)
	v.SetDefault("oracle.provider", d.Oracle.Provider)
	v.SetDefault("oracle.api_key", d.Oracle.APIKey)
	v.SetDefault("oracle.base_url", d.Oracle.BaseURL)
	v.SetDefault("oracle.models", d.Oracle.Models)
	v.SetDefault("oracle.topic_model", d.Oracle.TopicModel)
	v.SetDefault("oracle.threshold", d.Oracle.Threshold)
	v.SetDefault("oracle.timeout_seconds", d.Oracle.TimeoutSeconds)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load reads the JSON config at path, or defaults only when path is empty,
// then applies CLASH_* environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if c.Backend != BackendLevelDB && c.Backend != BackendSQLite {
		errs = append(errs, fmt.Errorf("backend must be %q or %q, got %q", BackendLevelDB, BackendSQLite, c.Backend))
	}
	if c.Owner == "" {
		errs = append(errs, errors.New("owner is required"))
	}
	if c.RPC.Port <= 0 || c.RPC.Port > 65535 {
		errs = append(errs, fmt.Errorf("rpc.port out of range: %d", c.RPC.Port))
	}
	if (c.RPC.TLS.Cert == "") != (c.RPC.TLS.Key == "") {
		errs = append(errs, errors.New("rpc.tls.cert and rpc.tls.key must be set together"))
	}
	switch c.Oracle.Provider {
	case ProviderStatic:
	case ProviderOpenRouter:
		if c.Oracle.APIKey == "" {
			errs = append(errs, errors.New("oracle.api_key is required for openrouter"))
		}
		if len(c.Oracle.Models) == 0 {
			errs = append(errs, errors.New("oracle.models must list at least one model"))
		}
	default:
		errs = append(errs, fmt.Errorf("oracle.provider must be %q or %q, got %q", ProviderStatic, ProviderOpenRouter, c.Oracle.Provider))
	}
	if c.Oracle.Threshold <= 0 || c.Oracle.Threshold > 1 {
		errs = append(errs, fmt.Errorf("oracle.threshold must be in (0,1], got %v", c.Oracle.Threshold))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Save writes the config to path as formatted JSON.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ProviderConfig selects and configures the mail provider.
type ProviderConfig struct {
	// Kind is "gmail" or "imap".
	Kind string `mapstructure:"kind" yaml:"kind"`

	// PageSize is how many messages one listing page holds.
	PageSize int `mapstructure:"page_size" yaml:"page_size"`

	// PollIntervalSec is how often (in seconds) to check for new mail.
	// Zero disables polling.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`

	IMAP  IMAPConfig  `mapstructure:"imap" yaml:"imap"`
	Gmail GmailConfig `mapstructure:"gmail" yaml:"gmail"`
}

// IMAPConfig holds IMAP connection settings. The password lives in the keyring.
type IMAPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Mailbox  string `mapstructure:"mailbox" yaml:"mailbox"`
	TLS      bool   `mapstructure:"tls" yaml:"tls"`
}

// GmailConfig points at the OAuth client secret downloaded from Google Cloud.
type GmailConfig struct {
	ClientSecretPath string `mapstructure:"client_secret_path" yaml:"client_secret_path"`
	Concurrency      int    `mapstructure:"concurrency" yaml:"concurrency"`
	RequestsPerSec   int    `mapstructure:"requests_per_sec" yaml:"requests_per_sec"`
}

// AIConfig holds settings for the classification and assistant services.
type AIConfig struct {
	Model     string `mapstructure:"model" yaml:"model"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`
	BaseURL   string `mapstructure:"base_url" yaml:"base_url"`
}

// ClassifyConfig tunes the background classification pipeline.
type ClassifyConfig struct {
	DebounceMS int `mapstructure:"debounce_ms" yaml:"debounce_ms"`
	BatchSize  int `mapstructure:"batch_size" yaml:"batch_size"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Provider ProviderConfig `mapstructure:"provider" yaml:"provider"`
	AI       AIConfig       `mapstructure:"ai" yaml:"ai"`
	Classify ClassifyConfig `mapstructure:"classify" yaml:"classify"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// ConfigDir returns ~/.config/mailboard.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "mailboard")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/mailboard/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultDBPath returns the default path of the local SQLite database.
func DefaultDBPath() string {
	return filepath.Join(ConfigDir(), "mailboard.db")
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Provider: ProviderConfig{
			Kind:            "gmail",
			PageSize:        50,
			PollIntervalSec: 120,
			IMAP: IMAPConfig{
				Port:    993,
				Mailbox: "INBOX",
				TLS:     true,
			},
			Gmail: GmailConfig{
				ClientSecretPath: filepath.Join(ConfigDir(), "client_secret.json"),
				Concurrency:      8,
				RequestsPerSec:   10,
			},
		},
		AI: AIConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 4096,
			BaseURL:   "https://api.anthropic.com",
		},
		Classify: ClassifyConfig{
			DebounceMS: 1000,
			BatchSize:  50,
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(ConfigDir(), "mailboard.log"),
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	def := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("MAILBOARD")
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("provider.kind", def.Provider.Kind)
	v.SetDefault("provider.page_size", def.Provider.PageSize)
	v.SetDefault("provider.poll_interval_sec", def.Provider.PollIntervalSec)
	v.SetDefault("provider.imap.port", def.Provider.IMAP.Port)
	v.SetDefault("provider.imap.mailbox", def.Provider.IMAP.Mailbox)
	v.SetDefault("provider.imap.tls", def.Provider.IMAP.TLS)
	v.SetDefault("provider.gmail.client_secret_path", def.Provider.Gmail.ClientSecretPath)
	v.SetDefault("provider.gmail.concurrency", def.Provider.Gmail.Concurrency)
	v.SetDefault("provider.gmail.requests_per_sec", def.Provider.Gmail.RequestsPerSec)
	v.SetDefault("ai.model", def.AI.Model)
	v.SetDefault("ai.max_tokens", def.AI.MaxTokens)
	v.SetDefault("ai.base_url", def.AI.BaseURL)
	v.SetDefault("classify.debounce_ms", def.Classify.DebounceMS)
	v.SetDefault("classify.batch_size", def.Classify.BatchSize)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.file", def.Log.File)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return def, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return def, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Provider.PageSize <= 0 {
		cfg.Provider.PageSize = def.Provider.PageSize
	}
	if cfg.Classify.BatchSize <= 0 || cfg.Classify.BatchSize > 50 {
		cfg.Classify.BatchSize = def.Classify.BatchSize
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("provider", cfg.Provider)
	v.Set("ai", cfg.AI)
	v.Set("classify", cfg.Classify)
	v.Set("log", cfg.Log)
	v.Set("metrics", cfg.Metrics)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Provider names accepted in ai.provider.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// AIConfig holds settings for the provider gateway.
type AIConfig struct {
	// Provider selects the completion backend ("gemini" or "openai").
	Provider string `mapstructure:"provider" yaml:"provider"`

	// Models is parallel to CredentialKeys; the active model is
	// Models[index mod len(Models)].
	Models []string `mapstructure:"models" yaml:"models"`

	// CredentialKeys names the API keys to load, in rotation order.
	CredentialKeys []string `mapstructure:"credential_keys" yaml:"credential_keys"`

	// BaseURL overrides the provider endpoint (OpenAI-compatible servers).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// RequestTimeoutSec bounds a single completion attempt.
	RequestTimeoutSec int `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec"`

	// HistoryWindow caps how many prior messages are sent in a prompt.
	HistoryWindow int `mapstructure:"history_window" yaml:"history_window"`
}

// ChatConfig holds conversation behaviour settings.
type ChatConfig struct {
	StreamDelayMs int    `mapstructure:"stream_delay_ms" yaml:"stream_delay_ms"`
	Greeting      string `mapstructure:"greeting" yaml:"greeting"`
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig controls the structured log output.
type LogConfig struct {
	Path  string `mapstructure:"path" yaml:"path"`
	Level string `mapstructure:"level" yaml:"level"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	AI      AIConfig      `mapstructure:"ai" yaml:"ai"`
	Chat    ChatConfig    `mapstructure:"chat" yaml:"chat"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
}

// Defaults used when a key is absent from the config file.
const (
	DefaultRequestTimeoutSec = 30
	DefaultHistoryWindow     = 20
	DefaultStreamDelayMs     = 5
	DefaultGreeting          = "Hello! I am your Task Assistant. How can I help you today?"
)

// DefaultModels alternates models across the configured keys.
var DefaultModels = []string{"gemini-2.5-flash", "gemini-2.5-flash-lite", "gemini-2.5-flash"}

// DefaultCredentialKeys are the key names looked up in the environment and
// keyring.
var DefaultCredentialKeys = []string{"gemini-api-key", "gemini-api-key-2", "gemini-api-key-3"}

// ConfigDir returns ~/.config/taskchat, or the working directory when the
// home directory cannot be resolved.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "taskchat")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskchat/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	dir := ConfigDir()
	return &AppConfig{
		AI: AIConfig{
			Provider:          ProviderGemini,
			Models:            append([]string(nil), DefaultModels...),
			CredentialKeys:    append([]string(nil), DefaultCredentialKeys...),
			RequestTimeoutSec: DefaultRequestTimeoutSec,
			HistoryWindow:     DefaultHistoryWindow,
		},
		Chat: ChatConfig{
			StreamDelayMs: DefaultStreamDelayMs,
			Greeting:      DefaultGreeting,
		},
		Storage: StorageConfig{
			Path: filepath.Join(dir, "taskchat.db"),
		},
		Log: LogConfig{
			Path:  filepath.Join(dir, "taskchat.log"),
			Level: "info",
		},
		Display: DisplayConfig{
			Theme: "default",
		},
	}
}

// DefaultAppConfig returns the configuration used on first run.
func DefaultAppConfig() *AppConfig {
	return defaultAppConfig()
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	def := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("ai.provider", def.AI.Provider)
	v.SetDefault("ai.models", def.AI.Models)
	v.SetDefault("ai.credential_keys", def.AI.CredentialKeys)
	v.SetDefault("ai.request_timeout_sec", def.AI.RequestTimeoutSec)
	v.SetDefault("ai.history_window", def.AI.HistoryWindow)
	v.SetDefault("chat.stream_delay_ms", def.Chat.StreamDelayMs)
	v.SetDefault("chat.greeting", def.Chat.Greeting)
	v.SetDefault("storage.path", def.Storage.Path)
	v.SetDefault("log.path", def.Log.Path)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("display.theme", def.Display.Theme)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return def, nil
		}
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return def, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.AI.RequestTimeoutSec <= 0 {
		cfg.AI.RequestTimeoutSec = DefaultRequestTimeoutSec
	}
	if cfg.AI.HistoryWindow <= 0 {
		cfg.AI.HistoryWindow = DefaultHistoryWindow
	}
	if cfg.Chat.StreamDelayMs < 0 {
		cfg.Chat.StreamDelayMs = 0
	}
	if len(cfg.AI.Models) == 0 {
		cfg.AI.Models = append([]string(nil), DefaultModels...)
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

	v.Set("ai", cfg.AI)
	v.Set("chat", cfg.Chat)
	v.Set("storage", cfg.Storage)
	v.Set("log", cfg.Log)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

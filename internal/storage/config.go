package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// Storage backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Generation providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Config holds application configuration.
type Config struct {
	Storage            string   `json:"storage"`            // "json" or "sqlite"
	JSONPath           string   `json:"jsonPath,omitempty"` // empty = ~/.config/vb/videos.json
	SQLitePath         string   `json:"sqlitePath,omitempty"`
	Provider           string   `json:"provider"` // "anthropic" or "openai"
	Model              string   `json:"model"`    // empty = provider default
	Locale             string   `json:"locale"`
	RequestTimeout     Duration `json:"requestTimeout"`
	Debug              bool     `json:"debug"`
	CullExcludeDomains []string `json:"cullExcludeDomains"`
}

// Duration is a time.Duration that reads and writes as a string like "30s".
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Storage:            BackendJSON,
		Provider:           ProviderAnthropic,
		Locale:             "en",
		RequestTimeout:     Duration(30 * time.Second),
		CullExcludeDomains: []string{"vimeo.com"},
	}
}

// LoadConfig reads config from the JSON file.
// Creates the file with defaults if it doesn't exist.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			config := DefaultConfig()
			// Non-fatal: return defaults even if save fails
			_ = SaveConfig(path, &config)
			return &config, nil
		}
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	// Apply defaults for missing fields
	defaults := DefaultConfig()
	if config.Storage == "" {
		config.Storage = defaults.Storage
	}
	if config.Provider == "" {
		config.Provider = defaults.Provider
	}
	if config.Locale == "" {
		config.Locale = defaults.Locale
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaults.RequestTimeout
	}
	if config.CullExcludeDomains == nil {
		config.CullExcludeDomains = defaults.CullExcludeDomains
	}

	return &config, nil
}

// SaveConfig writes config to the JSON file.
// Creates the directory if it doesn't exist.
func SaveConfig(path string, config *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfigFilePath returns the default config path: ~/.config/vb/config.json
func DefaultConfigFilePath() (string, error) {
	dir, err := DefaultDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

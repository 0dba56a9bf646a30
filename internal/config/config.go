/*
Package config handles loading and saving tool-recommender configuration.

Configuration is stored in ~/.tool-recommender.json using camelCase keys.

Schema:

	{
	  "weights": {
	    "collaborative": 0.3,
	    "contentBased": 0.25,
	    "contextual": 0.25,
	    "temporal": 0.1,
	    "behavioral": 0.1
	  },
	  "settings": {
	    "maxResults": 5,
	    "cacheTtlSeconds": 600,
	    "cacheSize": 1000,
	    "registryTimeoutSeconds": 2,
	    "journalEnabled": true
	  },
	  "catalogPath": "/path/to/catalog.json",
	  "experimentsPath": "/path/to/experiments.yaml"
	}
*/
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// WeightsConfig is the algorithm weight vector as stored on disk.
type WeightsConfig struct {
	Collaborative float64 `json:"collaborative"`
	ContentBased  float64 `json:"contentBased"`
	Contextual    float64 `json:"contextual"`
	Temporal      float64 `json:"temporal"`
	Behavioral    float64 `json:"behavioral"`
}

// Sum returns the total of all five weights.
func (w WeightsConfig) Sum() float64 {
	return w.Collaborative + w.ContentBased + w.Contextual + w.Temporal + w.Behavioral
}

// Settings contains engine tuning options.
type Settings struct {
	// MaxResults caps the recommendation list.
	MaxResults int `json:"maxResults,omitempty"`

	// CacheTTLSeconds is how long cached results stay valid.
	CacheTTLSeconds int `json:"cacheTtlSeconds,omitempty"`

	// CacheSize bounds the result cache entry count.
	CacheSize int `json:"cacheSize,omitempty"`

	// RegistryTimeoutSeconds bounds candidate lookups.
	RegistryTimeoutSeconds int `json:"registryTimeoutSeconds,omitempty"`

	// JournalEnabled toggles the SQLite event journal.
	JournalEnabled bool `json:"journalEnabled,omitempty"`

	// FeedbackPromptRate is the fraction of requests carrying a
	// feedback prompt.
	FeedbackPromptRate float64 `json:"feedbackPromptRate,omitempty"`
}

// Config is the root configuration structure.
type Config struct {
	// Weights are the default algorithm weights.
	Weights *WeightsConfig `json:"weights,omitempty"`

	// Settings contains engine tuning options.
	Settings *Settings `json:"settings,omitempty"`

	// CatalogPath points to the JSON tool catalog to load at startup.
	CatalogPath string `json:"catalogPath,omitempty"`

	// ExperimentsPath points to the YAML experiment definitions.
	ExperimentsPath string `json:"experimentsPath,omitempty"`
}

// NewConfig creates a configuration with default values.
func NewConfig() *Config {
	return &Config{
		Weights: &WeightsConfig{
			Collaborative: 0.3,
			ContentBased:  0.25,
			Contextual:    0.25,
			Temporal:      0.1,
			Behavioral:    0.1,
		},
		Settings: &Settings{
			MaxResults:             5,
			CacheTTLSeconds:        600,
			CacheSize:              1000,
			RegistryTimeoutSeconds: 2,
			JournalEnabled:         true,
			FeedbackPromptRate:     0.1,
		},
	}
}

// GetDefaultConfigPath returns the path to ~/.tool-recommender.json.
func GetDefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".tool-recommender.json"), nil
}

// Load reads the configuration from the default path.
func Load() (*Config, error) {
	configPath, err := GetDefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom reads the configuration from a specific path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault reads the default config, falling back to defaults when
// no config file exists.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return NewConfig()
	}
	return cfg
}

// Save writes the configuration to the specified path.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate checks configured values for contradictions. Weights are
// normalized at engine construction, so they only need to be positive.
func (c *Config) Validate() error {
	if c.Weights != nil {
		if c.Weights.Collaborative < 0 || c.Weights.ContentBased < 0 ||
			c.Weights.Contextual < 0 || c.Weights.Temporal < 0 || c.Weights.Behavioral < 0 {
			return fmt.Errorf("config: algorithm weights must not be negative")
		}
		if sum := c.Weights.Sum(); sum > 0 && math.Abs(sum-1.0) > 0.1 {
			return fmt.Errorf("config: algorithm weights sum to %.2f, expected ~1.0", sum)
		}
	}

	if c.Settings != nil {
		if c.Settings.MaxResults < 0 {
			return fmt.Errorf("config: maxResults must not be negative")
		}
		if c.Settings.FeedbackPromptRate < 0 || c.Settings.FeedbackPromptRate > 1 {
			return fmt.Errorf("config: feedbackPromptRate must be in [0,1]")
		}
	}

	return nil
}

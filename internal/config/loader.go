// Package config provides configuration loading for mediarec.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// Load loads configuration from the given YAML file (if it exists), then
// overrides with environment variables, then applies defaults and validates.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (MEDIAREC_QDRANT_HOST, MEDIAREC_SERVER_PORT, ...)
//  2. YAML config file
//  3. Hardcoded defaults
//
// Environment variables carry the MEDIAREC_ prefix; the remainder maps to a
// dotted path by splitting on the first underscore:
//
//	MEDIAREC_SERVER_PORT            -> server.port
//	MEDIAREC_EMBEDDINGS_BATCH_SIZE  -> embeddings.batch_size
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			f, err := os.Open(configPath)
			if err != nil {
				return nil, fmt.Errorf("failed to open config file: %w", err)
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return nil, fmt.Errorf("failed to stat config file: %w", err)
			}
			if info.Size() > maxConfigFileSize {
				return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
			}

			content, err := io.ReadAll(f)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider("MEDIAREC_", ".", func(s string) string {
		// MEDIAREC_SERVER_PORT -> server.port
		// MEDIAREC_EMBEDDINGS_BATCH_SIZE -> embeddings.batch_size
		lower := strings.ToLower(strings.TrimPrefix(s, "MEDIAREC_"))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = "mediarec"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	if cfg.Qdrant.Host == "" {
		cfg.Qdrant.Host = "localhost"
	}
	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = 6334
	}
	if cfg.Qdrant.MediaCollection == "" {
		cfg.Qdrant.MediaCollection = "media"
	}
	if cfg.Qdrant.DescriptorCollection == "" {
		cfg.Qdrant.DescriptorCollection = "content_descriptors"
	}

	if cfg.Embeddings.BaseURL == "" {
		cfg.Embeddings.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "text-embedding-3-small"
	}
	if cfg.Embeddings.Dimensions == 0 {
		cfg.Embeddings.Dimensions = 1536
	}
	if cfg.Embeddings.BatchSize == 0 {
		cfg.Embeddings.BatchSize = 100
	}
	if cfg.Embeddings.RequestsPerMinute == 0 {
		cfg.Embeddings.RequestsPerMinute = 300
	}
	if cfg.Embeddings.MaxRetries == 0 {
		cfg.Embeddings.MaxRetries = 5
	}
	if cfg.Embeddings.RecoveryFile == "" {
		cfg.Embeddings.RecoveryFile = "embedded_ids.recovery"
	}

	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}

	if cfg.Recommender.TopK == 0 {
		cfg.Recommender.TopK = 50
	}
	if cfg.Recommender.NSelected == 0 {
		cfg.Recommender.NSelected = 5
	}

	if cfg.Fetch.DataDir == "" {
		cfg.Fetch.DataDir = "data"
	}
	if cfg.Fetch.MaxInFlight == 0 {
		cfg.Fetch.MaxInFlight = 2
	}
	if cfg.Fetch.Delay == 0 {
		cfg.Fetch.Delay = 500 * time.Millisecond
	}
	if cfg.Fetch.MaxRetries == 0 {
		cfg.Fetch.MaxRetries = 5
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for mediarec.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Qdrant      QdrantConfig      `koanf:"qdrant"`
	Embeddings  EmbeddingsConfig  `koanf:"embeddings"`
	LLM         LLMConfig         `koanf:"llm"`
	Recommender RecommenderConfig `koanf:"recommender"`
	Fetch       FetchConfig       `koanf:"fetch"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig configures the relational store connection.
type DatabaseConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Name     string `koanf:"name"`
	SSLMode  string `koanf:"ssl_mode"`
}

// DSN renders the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// QdrantConfig configures the vector store client and collections.
type QdrantConfig struct {
	Host                 string `koanf:"host"`
	Port                 int    `koanf:"port"`
	UseTLS               bool   `koanf:"use_tls"`
	APIKey               string `koanf:"api_key"`
	MediaCollection      string `koanf:"media_collection"`
	DescriptorCollection string `koanf:"descriptor_collection"`
}

// EmbeddingsConfig configures the embedding provider and the bulk-indexing
// throughput envelope.
type EmbeddingsConfig struct {
	BaseURL           string `koanf:"base_url"`
	Model             string `koanf:"model"`
	APIKey            string `koanf:"api_key"`
	Dimensions        int    `koanf:"dimensions"`
	BatchSize         int    `koanf:"batch_size"`
	RequestsPerMinute int    `koanf:"requests_per_minute"`
	MaxRetries        int    `koanf:"max_retries"`
	RecoveryFile      string `koanf:"recovery_file"`
}

// LLMConfig configures the query-understanding model.
type LLMConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  string `koanf:"api_key"`
}

// RecommenderConfig configures retrieval sizing.
type RecommenderConfig struct {
	TopK      int `koanf:"top_k"`
	NSelected int `koanf:"n_selected"`
}

// FetchConfig configures the acquisition pipeline.
type FetchConfig struct {
	DataDir     string        `koanf:"data_dir"`
	MaxInFlight int           `koanf:"max_in_flight"`
	Delay       time.Duration `koanf:"delay"`
	MaxRetries  int           `koanf:"max_retries"`
	APIToken    string        `koanf:"api_token"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Qdrant.Port <= 0 || c.Qdrant.Port > 65535 {
		return fmt.Errorf("invalid qdrant port: %d", c.Qdrant.Port)
	}
	if c.Qdrant.MediaCollection == "" {
		return fmt.Errorf("qdrant media collection name is required")
	}
	if c.Embeddings.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be > 0, got %d", c.Embeddings.Dimensions)
	}
	if c.Embeddings.BatchSize <= 0 {
		return fmt.Errorf("embedding batch size must be > 0, got %d", c.Embeddings.BatchSize)
	}
	if c.Embeddings.RequestsPerMinute <= 0 {
		return fmt.Errorf("embedding requests per minute must be > 0, got %d", c.Embeddings.RequestsPerMinute)
	}
	if c.Recommender.TopK <= 0 {
		return fmt.Errorf("recommender top_k must be > 0, got %d", c.Recommender.TopK)
	}
	if c.Recommender.NSelected <= 0 || c.Recommender.NSelected > c.Recommender.TopK {
		return fmt.Errorf("recommender n_selected must be in 1..top_k, got %d", c.Recommender.NSelected)
	}
	if c.Fetch.MaxInFlight <= 0 {
		return fmt.Errorf("fetch max_in_flight must be > 0, got %d", c.Fetch.MaxInFlight)
	}
	return nil
}

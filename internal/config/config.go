package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the vulnerability knowledge tool.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Batch     BatchConfig     `yaml:"batch"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StoreConfig selects and configures the vector store backend.
type StoreConfig struct {
	Backend        string `yaml:"backend"`          // "sqlite" or "postgres"
	Path           string `yaml:"path"`             // SQLite database file
	DatabaseURLEnv string `yaml:"database_url_env"` // Environment variable holding the Postgres URL
	Dimension      int    `yaml:"dimension"`        // Vector dimension (Postgres schema)
}

// EmbeddingConfig holds embedding provider configuration. Secrets stay in
// the environment; the config names the variable, never the value.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "openai", "ollama", "local"
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	HostEnv   string `yaml:"host_env"` // Ollama only
	CacheSize int    `yaml:"cache_size"`
}

// ChunkingConfig holds token budgets for document chunking.
type ChunkingConfig struct {
	MaxTokens     int `yaml:"max_tokens"`
	MinTokens     int `yaml:"min_tokens"`
	OverlapTokens int `yaml:"overlap_tokens"`
}

// RetrievalConfig holds hybrid retrieval configuration.
type RetrievalConfig struct {
	TopK                int     `yaml:"top_k"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	CacheTTLMinutes     int     `yaml:"cache_ttl_minutes"`
}

// BatchConfig holds batch analysis configuration.
type BatchConfig struct {
	MaxConcurrent  int `yaml:"max_concurrent"`
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:        "sqlite",
			Path:           "", // empty resolves to ~/.vulncontext/vulncontext.db
			DatabaseURLEnv: "DATABASE_URL",
			Dimension:      1536,
		},
		Embedding: EmbeddingConfig{
			Provider:  "", // empty defers to environment detection
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			HostEnv:   "OLLAMA_HOST",
			CacheSize: 10000,
		},
		Chunking: ChunkingConfig{
			MaxTokens:     512,
			MinTokens:     50,
			OverlapTokens: 50,
		},
		Retrieval: RetrievalConfig{
			TopK:                5,
			SimilarityThreshold: 0.7,
			CacheTTLMinutes:     60,
		},
		Batch: BatchConfig{
			MaxConcurrent:  5,
			TimeoutSeconds: 30,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory, trying
// vulncontext.yaml, then .vulncontext/config.yaml, then defaults.
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "vulncontext.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".vulncontext", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// DatabaseURL resolves the Postgres connection URL from the environment.
func (c *Config) DatabaseURL() string {
	env := c.Store.DatabaseURLEnv
	if env == "" {
		env = "DATABASE_URL"
	}
	return os.Getenv(env)
}

// APIKey resolves the embedding provider API key from the environment.
func (c *Config) APIKey() string {
	if c.Embedding.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Embedding.APIKeyEnv)
}

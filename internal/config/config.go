// Package config loads the TOML configuration file and applies defaults
// and environment overrides. Secrets (API keys) can live in the
// environment instead of on disk.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Environment variables that override file values.
const (
	EnvEntrezAPIKey    = "NCBI_API_KEY"
	EnvEmbeddingAPIKey = "OPENAI_API_KEY"
	EnvQdrantAPIKey    = "QDRANT_API_KEY"
)

// Config is the full application configuration.
type Config struct {
	// DataDir roots the on-disk state: records database, artifacts and
	// checkpoint. Defaults to ~/.biblio.
	DataDir string `toml:"data_dir"`

	Entrez    Entrez    `toml:"entrez"`
	Process   Process   `toml:"process"`
	Embedding Embedding `toml:"embedding"`
	Qdrant    Qdrant    `toml:"qdrant"`
	Rerank    Rerank    `toml:"rerank"`
	Retrieval Retrieval `toml:"retrieval"`
}

// Entrez configures the bibliographic source connector.
type Entrez struct {
	// Email identifies the caller to NCBI. Required for bulk fetching.
	Email string `toml:"email"`

	// APIKey raises the request quota from 3 to 10 per second.
	APIKey string `toml:"api_key"`

	// Queries are the topic queries a plain `fetch` runs.
	Queries []string `toml:"queries"`

	// PageSize is the ID-listing page size.
	PageSize int `toml:"page_size"`

	// BatchSize is the record count per full-text fetch.
	BatchSize int `toml:"batch_size"`

	// MaxPerQuery caps IDs per query per run. Zero means unlimited.
	MaxPerQuery int `toml:"max_per_query"`
}

// Process configures the filter/parse/chunk pipeline.
type Process struct {
	// Workers is the parse worker count. Zero means one per CPU.
	Workers int `toml:"workers"`

	// MaxChunkChars is the narrative chunk size limit.
	MaxChunkChars int `toml:"max_chunk_chars"`
}

// Embedding configures the embedding service.
type Embedding struct {
	// Provider selects the adapter: "ollama" (default) or "openai".
	Provider string `toml:"provider"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `toml:"base_url"`

	// Model is the embedding model name.
	Model string `toml:"model"`

	// APIKey authenticates against the provider (openai).
	APIKey string `toml:"api_key"`

	// Dimensions overrides the model's default vector size.
	Dimensions int `toml:"dimensions"`
}

// Qdrant configures the vector index.
type Qdrant struct {
	// URL is the Qdrant base URL.
	URL string `toml:"url"`

	// APIKey is the optional Qdrant API key.
	APIKey string `toml:"api_key"`

	// Collection is the collection name.
	Collection string `toml:"collection"`
}

// Rerank configures the optional stage-2 cross-encoder.
type Rerank struct {
	// Enabled turns stage-2 re-ranking on.
	Enabled bool `toml:"enabled"`

	// BaseURL is the rerank service base URL.
	BaseURL string `toml:"base_url"`

	// Model names the cross-encoder model, for reporting.
	Model string `toml:"model"`
}

// Retrieval tunes query answering.
type Retrieval struct {
	// TopK is the stage-1 candidate count.
	TopK int `toml:"top_k"`

	// TopN is the final result count.
	TopN int `toml:"top_n"`

	// TimeoutSeconds bounds one retrieval call.
	TimeoutSeconds int `toml:"timeout_seconds"`

	// ExpandQuery enables domain-synonym query expansion.
	ExpandQuery bool `toml:"expand_query"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return Config{
		DataDir: filepath.Join(home, ".biblio"),
		Entrez: Entrez{
			Queries: []string{
				"magnesium supplementation humans",
				"calcium intake clinical",
				"potassium deficiency adults",
				"electrolyte balance exercise",
			},
		},
		Embedding: Embedding{
			Provider: "ollama",
		},
		Qdrant: Qdrant{
			URL: "http://localhost:6333",
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".biblio", "config.toml")
}

// Load reads the config file at path. A missing file yields the defaults;
// a malformed file is an error. Environment overrides apply either way.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv lets the environment supply secrets missing from the file.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvEntrezAPIKey); v != "" && c.Entrez.APIKey == "" {
		c.Entrez.APIKey = v
	}
	if v := os.Getenv(EnvEmbeddingAPIKey); v != "" && c.Embedding.APIKey == "" {
		c.Embedding.APIKey = v
	}
	if v := os.Getenv(EnvQdrantAPIKey); v != "" && c.Qdrant.APIKey == "" {
		c.Qdrant.APIKey = v
	}
}

// RecordsDBPath is the SQLite record database location.
func (c *Config) RecordsDBPath() string {
	return filepath.Join(c.DataDir, "records.db")
}

// ArtifactsDir is the chunk artifact directory.
func (c *Config) ArtifactsDir() string {
	return filepath.Join(c.DataDir, "artifacts")
}

// CheckpointPath is the fetch checkpoint location.
func (c *Config) CheckpointPath() string {
	return filepath.Join(c.DataDir, "checkpoint.json")
}

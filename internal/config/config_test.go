package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "http://localhost:6333", cfg.Qdrant.URL)
	assert.NotEmpty(t, cfg.Entrez.Queries)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir = "/var/lib/biblio"

[entrez]
email = "someone@example.org"
queries = ["magnesium cramps"]
page_size = 50

[embedding]
provider = "openai"
model = "text-embedding-3-small"

[rerank]
enabled = true

[retrieval]
top_k = 30
timeout_seconds = 10
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/biblio", cfg.DataDir)
	assert.Equal(t, "someone@example.org", cfg.Entrez.Email)
	assert.Equal(t, []string{"magnesium cramps"}, cfg.Entrez.Queries)
	assert.Equal(t, 50, cfg.Entrez.PageSize)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.True(t, cfg.Rerank.Enabled)
	assert.Equal(t, 30, cfg.Retrieval.TopK)
	assert.Equal(t, 10, cfg.Retrieval.TimeoutSeconds)

	// File values not set keep their defaults.
	assert.Equal(t, "http://localhost:6333", cfg.Qdrant.URL)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir = [broken"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvEntrezAPIKey, "env-ncbi-key")
	t.Setenv(EnvQdrantAPIKey, "env-qdrant-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, "env-ncbi-key", cfg.Entrez.APIKey)
	assert.Equal(t, "env-qdrant-key", cfg.Qdrant.APIKey)
}

func TestLoad_FileKeyWinsOverEnv(t *testing.T) {
	t.Setenv(EnvEntrezAPIKey, "env-key")

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[entrez]\napi_key = \"file-key\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-key", cfg.Entrez.APIKey)
}

func TestDerivedPaths(t *testing.T) {
	cfg := Config{DataDir: "/data"}

	assert.Equal(t, filepath.Join("/data", "records.db"), cfg.RecordsDBPath())
	assert.Equal(t, filepath.Join("/data", "artifacts"), cfg.ArtifactsDir())
	assert.Equal(t, filepath.Join("/data", "checkpoint.json"), cfg.CheckpointPath())
}

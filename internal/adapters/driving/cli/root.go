// Package cli provides the cobra command tree. Commands depend on the
// driving ports only; the concrete service graph is wired once per
// invocation from the configuration file.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	artifactfile "github.com/marrow-labs/biblio-cli/internal/adapters/driven/artifacts/file"
	checkpointfile "github.com/marrow-labs/biblio-cli/internal/adapters/driven/checkpoint/file"
	"github.com/marrow-labs/biblio-cli/internal/adapters/driven/embedding/ollama"
	"github.com/marrow-labs/biblio-cli/internal/adapters/driven/embedding/openai"
	"github.com/marrow-labs/biblio-cli/internal/adapters/driven/rerank/tei"
	"github.com/marrow-labs/biblio-cli/internal/adapters/driven/storage/sqlite"
	"github.com/marrow-labs/biblio-cli/internal/adapters/driven/vector/qdrant"
	"github.com/marrow-labs/biblio-cli/internal/config"
	"github.com/marrow-labs/biblio-cli/internal/connectors/entrez"
	"github.com/marrow-labs/biblio-cli/internal/core/domain"
	"github.com/marrow-labs/biblio-cli/internal/core/ports/driven"
	"github.com/marrow-labs/biblio-cli/internal/core/ports/driving"
	"github.com/marrow-labs/biblio-cli/internal/core/services"
	"github.com/marrow-labs/biblio-cli/internal/logger"
	"github.com/marrow-labs/biblio-cli/internal/normalisers/jats"
	"github.com/marrow-labs/biblio-cli/internal/postprocessors/chunker"
	"github.com/marrow-labs/biblio-cli/internal/relevance"
)

// version is set at build time via -ldflags.
var version = "dev"

// Wired services, available to commands after PersistentPreRunE.
var (
	cfg              config.Config
	recordStore      driven.RecordStore
	fetchService     driving.FetchService
	processService   driving.ProcessService
	indexService     driving.IndexService
	retrievalService driving.RetrievalService
)

var (
	flagConfig  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "biblio",
	Short: "Scientific literature ingestion and retrieval",
	Long: `biblio maintains a retrievable corpus of scientific articles:
it bulk-fetches open-access papers, filters them for relevance, parses
and chunks them, indexes the chunks in a vector store, and answers
free-text queries with two-stage retrieval.`,
	SilenceUsage:      true,
	PersistentPreRunE: initApp,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.biblio/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose output")
}

// Execute runs the command tree. Interrupts cancel the command context
// so long-running commands (fetch, watch, mcp serve) shut down cleanly.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer closeApp()

	return rootCmd.ExecuteContext(ctx)
}

// initApp loads configuration and wires the service graph. Commands that
// need no services skip wiring entirely.
func initApp(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(flagVerbose)

	switch cmd.Name() {
	case "version", "help", "completion":
		return nil
	}

	var err error
	cfg, err = config.Load(flagConfig)
	if err != nil {
		return err
	}

	return wire()
}

// wire builds the full adapter and service graph from cfg.
func wire() error {
	store, err := sqlite.NewStore(cfg.RecordsDBPath())
	if err != nil {
		return err
	}
	recordStore = store

	checkpoints, err := checkpointfile.NewStore(cfg.CheckpointPath())
	if err != nil {
		return err
	}
	artifacts, err := artifactfile.NewStore(cfg.ArtifactsDir())
	if err != nil {
		return err
	}

	source := entrez.NewClient(entrez.Config{
		Email:  cfg.Entrez.Email,
		APIKey: cfg.Entrez.APIKey,
	})

	embedder, err := newEmbedder()
	if err != nil {
		return err
	}

	index, err := qdrant.NewIndex(qdrant.Config{
		URL:        cfg.Qdrant.URL,
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
	})
	if err != nil {
		return err
	}

	var reranker driven.Reranker
	if cfg.Rerank.Enabled {
		reranker = tei.NewReranker(tei.Config{
			BaseURL: cfg.Rerank.BaseURL,
			Model:   cfg.Rerank.Model,
		})
	}

	var chunkOpts []chunker.Option
	if cfg.Process.MaxChunkChars > 0 {
		chunkOpts = append(chunkOpts, chunker.WithMaxChars(cfg.Process.MaxChunkChars))
	}

	fetchService = services.NewFetchService(source, recordStore, checkpoints, services.FetchOptions{
		PageSize:    cfg.Entrez.PageSize,
		BatchSize:   cfg.Entrez.BatchSize,
		MaxPerQuery: cfg.Entrez.MaxPerQuery,
	})
	processService = services.NewProcessService(
		recordStore,
		artifacts,
		relevance.New(relevance.DefaultRules()),
		jats.New(),
		chunker.New(chunkOpts...),
		cfg.Process.Workers,
	)
	indexService = services.NewIndexService(artifacts, embedder, index, recordStore, 0)
	retrievalService = services.NewRetrievalService(embedder, index, reranker, domain.RetrievalOptions{
		Stage1TopK:  cfg.Retrieval.TopK,
		Stage2TopN:  cfg.Retrieval.TopN,
		Budget:      time.Duration(cfg.Retrieval.TimeoutSeconds) * time.Second,
		ExpandQuery: cfg.Retrieval.ExpandQuery,
	})
	return nil
}

// newEmbedder builds the configured embedding adapter.
func newEmbedder() (driven.EmbeddingService, error) {
	switch cfg.Embedding.Provider {
	case "", "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		}), nil
	case "openai":
		return openai.NewEmbeddingService(openai.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

// closeApp releases wired resources.
func closeApp() {
	if recordStore != nil {
		recordStore.Close() //nolint:errcheck
	}
}

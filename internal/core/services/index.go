package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
	"github.com/marrow-labs/biblio-cli/internal/core/ports/driven"
	"github.com/marrow-labs/biblio-cli/internal/core/ports/driving"
	"github.com/marrow-labs/biblio-cli/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// DefaultEmbedBatchSize is the number of chunk texts per embedding request.
const DefaultEmbedBatchSize = 32

// IndexService embeds chunk artifacts and writes them to the vector
// index. The index has exactly one logical writer: this service.
type IndexService struct {
	artifacts driven.ArtifactStore
	embedder  driven.EmbeddingService
	index     driven.VectorIndex
	records   driven.RecordStore
	batchSize int

	rebuilding atomic.Bool
}

// NewIndexService creates an index service. batchSize <= 0 uses the
// default embedding batch size.
func NewIndexService(
	artifacts driven.ArtifactStore,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	records driven.RecordStore,
	batchSize int,
) *IndexService {
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}
	return &IndexService{
		artifacts: artifacts,
		embedder:  embedder,
		index:     index,
		records:   records,
		batchSize: batchSize,
	}
}

// Rebuild drops the collection, recreates it with the embedder's
// dimension, and inserts every artifact. Exclusive: a second Rebuild or
// Append on the same service is refused while one runs.
func (s *IndexService) Rebuild(ctx context.Context) (domain.IndexReport, error) {
	if !s.rebuilding.CompareAndSwap(false, true) {
		return domain.IndexReport{}, domain.ErrRebuildInProgress
	}
	defer s.rebuilding.Store(false)

	// Fail fast before dropping anything: a rebuild against an
	// unreachable embedder would destroy the collection for nothing.
	if err := s.embedder.Ping(ctx); err != nil {
		return domain.IndexReport{}, fmt.Errorf("index: embedding service: %w", err)
	}

	if err := s.index.Recreate(ctx, s.embedder.Dimensions()); err != nil {
		return domain.IndexReport{}, fmt.Errorf("index: recreate collection: %w", err)
	}
	logger.Section("Rebuilding index with %s (%d dimensions)",
		s.embedder.ModelName(), s.embedder.Dimensions())

	return s.indexAll(ctx, false)
}

// Append inserts only chunks not already present in the collection.
func (s *IndexService) Append(ctx context.Context) (domain.IndexReport, error) {
	if !s.rebuilding.CompareAndSwap(false, true) {
		return domain.IndexReport{}, domain.ErrRebuildInProgress
	}
	defer s.rebuilding.Store(false)

	if err := s.embedder.Ping(ctx); err != nil {
		return domain.IndexReport{}, fmt.Errorf("index: embedding service: %w", err)
	}

	if err := s.index.EnsureCollection(ctx, s.embedder.Dimensions()); err != nil {
		return domain.IndexReport{}, fmt.Errorf("index: ensure collection: %w", err)
	}

	return s.indexAll(ctx, true)
}

// indexAll walks every artifact and indexes it. Embedding failures
// isolate the document: it is counted and skipped, the walk continues.
func (s *IndexService) indexAll(ctx context.Context, skipExisting bool) (domain.IndexReport, error) {
	var report domain.IndexReport
	started := time.Now()

	err := s.artifacts.Walk(ctx, func(dc domain.DocumentChunks) error {
		report.Documents++

		indexed, skipped, err := s.indexDocument(ctx, dc, skipExisting)
		if err != nil {
			var embErr *domain.EmbeddingError
			if errors.As(err, &embErr) {
				report.EmbedFailed++
				logger.Warn("Skipping document: %v", embErr)
				return nil
			}
			return err
		}

		report.Indexed += indexed
		report.Skipped += skipped
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("index: walk artifacts: %w", err)
	}

	saveRun(ctx, s.records, "index", started, map[string]int{
		"documents":    report.Documents,
		"indexed":      report.Indexed,
		"skipped":      report.Skipped,
		"embed_failed": report.EmbedFailed,
	})

	logger.Info("Index complete: %d documents, %d chunks indexed, %d skipped, %d embed failures",
		report.Documents, report.Indexed, report.Skipped, report.EmbedFailed)
	if total, err := s.index.Count(ctx); err == nil {
		logger.Info("Collection holds %d points", total)
	}
	return report, nil
}

// indexDocument embeds and upserts one document's chunks.
func (s *IndexService) indexDocument(ctx context.Context, dc domain.DocumentChunks, skipExisting bool) (indexed, skipped int, err error) {
	chunks := dc.Chunks
	if skipExisting {
		chunks, skipped, err = s.filterExisting(ctx, chunks)
		if err != nil {
			return 0, 0, err
		}
	}
	if len(chunks) == 0 {
		return 0, skipped, nil
	}

	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return indexed, skipped, &domain.EmbeddingError{DocumentID: dc.DocumentID, Err: err}
		}
		if len(vectors) != len(batch) {
			return indexed, skipped, &domain.EmbeddingError{
				DocumentID: dc.DocumentID,
				Err:        fmt.Errorf("got %d vectors for %d texts", len(vectors), len(batch)),
			}
		}

		embedded := make([]domain.EmbeddedChunk, len(batch))
		for i, c := range batch {
			embedded[i] = domain.EmbeddedChunk{Chunk: c, Vector: vectors[i]}
		}
		if err := s.index.Upsert(ctx, embedded); err != nil {
			return indexed, skipped, fmt.Errorf("index: upsert %s: %w", dc.DocumentID, err)
		}
		indexed += len(embedded)
	}

	logger.Debug("Indexed %s: %d chunks", dc.DocumentID, indexed)
	return indexed, skipped, nil
}

// filterExisting drops chunks whose points are already in the collection.
func (s *IndexService) filterExisting(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, int, error) {
	keys := make([]driven.ChunkKey, len(chunks))
	for i, c := range chunks {
		keys[i] = driven.ChunkKey{DocumentID: c.DocumentID, ChunkIndex: c.Index}
	}

	present, err := s.index.HasPoints(ctx, keys)
	if err != nil {
		return nil, 0, fmt.Errorf("index: check existing points: %w", err)
	}

	var (
		missing []domain.Chunk
		skipped int
	)
	for i, c := range chunks {
		if present[keys[i]] {
			skipped++
			continue
		}
		missing = append(missing, c)
	}
	return missing, skipped, nil
}

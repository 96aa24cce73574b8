// Package services implements the driving ports: the fetch, process,
// index and retrieval use cases, wired together from driven ports.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
	"github.com/marrow-labs/biblio-cli/internal/core/ports/driven"
	"github.com/marrow-labs/biblio-cli/internal/core/ports/driving"
	"github.com/marrow-labs/biblio-cli/internal/logger"
)

// Ensure FetchService implements the interface.
var _ driving.FetchService = (*FetchService)(nil)

// Default fetch tuning.
const (
	// DefaultSearchPageSize is the ID-listing page size.
	DefaultSearchPageSize = 100

	// DefaultFetchBatchSize is the number of records per full-text request.
	DefaultFetchBatchSize = 100
)

// FetchOptions tunes a fetch service. Zero values use the defaults.
type FetchOptions struct {
	// PageSize is the ID-listing page size.
	PageSize int

	// BatchSize is the record count per full-text fetch.
	BatchSize int

	// MaxPerQuery caps how many IDs one query may contribute per run.
	// Zero means unlimited.
	MaxPerQuery int
}

// FetchService bulk-fetches records from the bibliographic source with
// checkpointed resume. The checkpoint has exactly one writer: this service.
type FetchService struct {
	source      driven.BibliographicSource
	records     driven.RecordStore
	checkpoints driven.CheckpointStore
	pageSize    int
	batchSize   int
	maxPerQuery int
}

// NewFetchService creates a fetch service.
func NewFetchService(
	source driven.BibliographicSource,
	records driven.RecordStore,
	checkpoints driven.CheckpointStore,
	opts FetchOptions,
) *FetchService {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultSearchPageSize
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultFetchBatchSize
	}

	return &FetchService{
		source:      source,
		records:     records,
		checkpoints: checkpoints,
		pageSize:    opts.PageSize,
		batchSize:   opts.BatchSize,
		maxPerQuery: opts.MaxPerQuery,
	}
}

// Fetch runs the topic queries and commits new records. Progress is
// committed after every stored batch, so an interrupted run resumes with
// strictly the not-yet-seen IDs. Batch-level failures are logged and
// skipped; only context cancellation aborts the run.
func (s *FetchService) Fetch(ctx context.Context, queries []string) (domain.FetchReport, error) {
	var report domain.FetchReport

	if len(queries) == 0 {
		return report, fmt.Errorf("fetch: no queries: %w", domain.ErrInvalidInput)
	}

	cp, err := s.checkpoints.Load(ctx)
	if err != nil {
		return report, fmt.Errorf("fetch: load checkpoint: %w", err)
	}

	started := time.Now()
	for _, query := range queries {
		if err := s.fetchQuery(ctx, query, cp, &report); err != nil {
			return report, err
		}
	}

	saveRun(ctx, s.records, "fetch", started, map[string]int{
		"new":       report.New,
		"duplicate": report.Duplicate,
		"failed":    report.Failed,
	})

	logger.Info("Fetch complete: %d new, %d duplicate, %d failed",
		report.New, report.Duplicate, report.Failed)
	return report, nil
}

// fetchQuery pages through one query's ID listing and fetches the unseen
// IDs batch by batch.
func (s *FetchService) fetchQuery(ctx context.Context, query string, cp *domain.Checkpoint, report *domain.FetchReport) error {
	logger.Section("Query: %s", query)

	fetched := 0
	offset := cp.Cursor(query)

	// A failed batch keeps the persisted cursor at its page so the next
	// run re-lists it and retries the failed IDs. Pagination still
	// continues within this run.
	holdCursor := false

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.maxPerQuery > 0 && fetched >= s.maxPerQuery {
			logger.Debug("Query cap %d reached", s.maxPerQuery)
			return nil
		}

		ids, total, err := s.source.SearchIDs(ctx, query, offset, s.pageSize)
		if err != nil {
			return fmt.Errorf("fetch: list ids for %q: %w", query, err)
		}
		if len(ids) == 0 {
			return nil
		}
		logger.Debug("Page at offset %d: %d of %d ids", offset, len(ids), total)

		var unseen []string
		for _, id := range ids {
			if cp.Seen(id) {
				report.Duplicate++
				continue
			}
			unseen = append(unseen, id)
		}

		for start := 0; start < len(unseen); start += s.batchSize {
			if err := ctx.Err(); err != nil {
				return err
			}

			end := min(start+s.batchSize, len(unseen))
			batch := unseen[start:end]

			committed, err := s.fetchBatch(ctx, batch, cp, report)
			if err != nil {
				return err
			}
			if !committed {
				holdCursor = true
			}
			fetched += len(batch)
		}

		offset += len(ids)
		if !holdCursor {
			cp.SetCursor(query, offset)
			if err := s.checkpoints.Save(ctx, cp); err != nil {
				return fmt.Errorf("fetch: save checkpoint: %w", err)
			}
		}

		if offset >= total {
			return nil
		}
	}
}

// fetchBatch retrieves and commits one batch, reporting whether it was
// committed. The checkpoint is saved only after every record of the batch
// is stored, so a crash between the two re-fetches the batch instead of
// losing it. Failed batches are recorded in the checkpoint's failed set
// and stay unprocessed, so a later run retries them.
func (s *FetchService) fetchBatch(ctx context.Context, batch []string, cp *domain.Checkpoint, report *domain.FetchReport) (bool, error) {
	recs, err := s.source.FetchRecords(ctx, batch)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		logger.Warn("Batch of %d failed, will retry next run: %v", len(batch), err)
		report.Failed += len(batch)
		cp.MarkFailed(batch...)
		if err := s.checkpoints.Save(ctx, cp); err != nil {
			return false, fmt.Errorf("fetch: save checkpoint: %w", err)
		}
		return false, nil
	}

	for _, rec := range recs {
		if err := s.records.Put(ctx, rec); err != nil {
			return false, fmt.Errorf("fetch: store record %s: %w", rec.ID, err)
		}
	}

	// IDs the archive no longer serves are marked processed too, so the
	// next run does not request them again.
	cp.MarkProcessed(batch...)
	cp.ClearFailed(batch...)
	if err := s.checkpoints.Save(ctx, cp); err != nil {
		return false, fmt.Errorf("fetch: save checkpoint: %w", err)
	}

	report.New += len(recs)
	if missing := len(batch) - len(recs); missing > 0 {
		logger.Debug("%d ids in batch had no record", missing)
		report.Failed += missing
	}
	return true, nil
}

// saveRun appends a run summary, logging instead of failing when the
// audit write itself errors.
func saveRun(ctx context.Context, records driven.RecordStore, kind string, started time.Time, counts map[string]int) {
	run := domain.RunSummary{
		Kind:       kind,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Counts:     counts,
	}
	if err := records.SaveRun(ctx, run); err != nil {
		logger.Warn("Could not record %s run summary: %v", kind, err)
	}
}

package services

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
	"github.com/marrow-labs/biblio-cli/internal/core/ports/driven"
	"github.com/marrow-labs/biblio-cli/internal/core/ports/driving"
	"github.com/marrow-labs/biblio-cli/internal/logger"
	"github.com/marrow-labs/biblio-cli/internal/normalisers/jats"
	"github.com/marrow-labs/biblio-cli/internal/postprocessors/chunker"
	"github.com/marrow-labs/biblio-cli/internal/relevance"
)

// Ensure ProcessService implements the interface.
var _ driving.ProcessService = (*ProcessService)(nil)

// ProcessService runs stored records through the relevance filter, the
// parser and the chunker, writing one artifact per accepted document.
type ProcessService struct {
	records    driven.RecordStore
	artifacts  driven.ArtifactStore
	classifier *relevance.Classifier
	parser     *jats.Normaliser
	chunker    *chunker.Processor
	workers    int
}

// NewProcessService creates a process service. workers <= 0 uses one
// worker per CPU.
func NewProcessService(
	records driven.RecordStore,
	artifacts driven.ArtifactStore,
	classifier *relevance.Classifier,
	parser *jats.Normaliser,
	chunks *chunker.Processor,
	workers int,
) *ProcessService {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &ProcessService{
		records:    records,
		artifacts:  artifacts,
		classifier: classifier,
		parser:     parser,
		chunker:    chunks,
		workers:    workers,
	}
}

// processResult carries one record's outcome from a worker to the
// accumulator.
type processResult struct {
	decision domain.FilterDecision
	artifact *domain.DocumentChunks
	parseErr error
}

// Process walks every stored record through the pipeline stages using a
// worker pool, with a single accumulator serialising artifact writes and
// report counting. Parse failures skip the record, never abort the run.
func (s *ProcessService) Process(ctx context.Context) (domain.ProcessReport, error) {
	report := domain.ProcessReport{Rejected: make(map[string]int)}
	started := time.Now()

	recordCh := make(chan domain.SourceRecord, s.workers)
	resultCh := make(chan processResult, s.workers)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range recordCh {
				resultCh <- s.runStages(rec)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// The accumulator is the only goroutine touching the artifact store
	// and the report.
	var (
		accWg  sync.WaitGroup
		accErr error
	)
	accWg.Add(1)
	go func() {
		defer accWg.Done()
		for res := range resultCh {
			if accErr != nil {
				continue
			}
			accErr = s.accumulate(ctx, res, &report)
		}
	}()

	walkErr := s.records.Walk(ctx, func(rec domain.SourceRecord) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case recordCh <- rec:
			report.Records++
			return nil
		}
	})
	close(recordCh)
	accWg.Wait()

	if walkErr != nil {
		return report, fmt.Errorf("process: walk records: %w", walkErr)
	}
	if accErr != nil {
		return report, accErr
	}

	saveRun(ctx, s.records, "process", started, map[string]int{
		"records":      report.Records,
		"accepted":     report.Accepted,
		"parse_failed": report.ParseFailed,
		"chunks":       report.Chunks,
	})

	logger.Info("Process complete: %d records, %d accepted, %d parse failures, %d chunks",
		report.Records, report.Accepted, report.ParseFailed, report.Chunks)
	return report, nil
}

// runStages filters, parses and chunks one record. Pure with respect to
// stores; persistence happens in the accumulator.
func (s *ProcessService) runStages(rec domain.SourceRecord) processResult {
	title, abstract := jats.Preview(rec)
	decision := s.classifier.Classify(rec.ID, title, abstract)
	if !decision.Accepted {
		return processResult{decision: decision}
	}

	doc, err := s.parser.Parse(rec)
	if err != nil {
		return processResult{decision: decision, parseErr: err}
	}

	chunks := s.chunker.Process(doc)
	return processResult{
		decision: decision,
		artifact: &domain.DocumentChunks{
			DocumentID: doc.ID,
			Title:      doc.Title,
			Authors:    doc.Authors,
			Year:       doc.Year,
			Journal:    doc.Journal,
			Chunks:     chunks,
		},
	}
}

// accumulate folds one result into the report and persists its artifact.
func (s *ProcessService) accumulate(ctx context.Context, res processResult, report *domain.ProcessReport) error {
	if !res.decision.Accepted {
		report.Rejected[res.decision.Reason]++
		logger.Debug("Rejected %s: %s", res.decision.RecordID, res.decision.Reason)
		return nil
	}
	report.Accepted++

	if res.parseErr != nil {
		report.ParseFailed++
		logger.Warn("Skipping %s: %v", res.decision.RecordID, res.parseErr)
		return nil
	}

	if err := s.artifacts.Save(ctx, *res.artifact); err != nil {
		return fmt.Errorf("process: save artifact %s: %w", res.artifact.DocumentID, err)
	}
	report.Chunks += len(res.artifact.Chunks)
	return nil
}

// ProcessRecord runs one record through the same stages synchronously,
// for directory-watch ingestion and ad-hoc reprocessing.
func (s *ProcessService) ProcessRecord(ctx context.Context, rec domain.SourceRecord) (domain.FilterDecision, error) {
	res := s.runStages(rec)
	if !res.decision.Accepted {
		return res.decision, nil
	}
	if res.parseErr != nil {
		return res.decision, res.parseErr
	}
	if err := s.artifacts.Save(ctx, *res.artifact); err != nil {
		return res.decision, fmt.Errorf("process: save artifact %s: %w", res.artifact.DocumentID, err)
	}
	return res.decision, nil
}

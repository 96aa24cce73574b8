package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
	"github.com/marrow-labs/biblio-cli/internal/core/ports/driven"
)

// fakeSource serves a fixed ID list and synthesises records on demand.
type fakeSource struct {
	mu          sync.Mutex
	ids         []string
	searchCalls int
	fetchCalls  int
	fetched     [][]string
	onFetch     func(call int, batch []string)
	failOn      map[int]error
	missing     map[string]bool
}

func (s *fakeSource) SearchIDs(_ context.Context, _ string, offset, limit int) ([]string, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchCalls++

	if offset >= len(s.ids) {
		return nil, len(s.ids), nil
	}
	end := min(offset+limit, len(s.ids))
	return s.ids[offset:end], len(s.ids), nil
}

func (s *fakeSource) FetchRecords(_ context.Context, ids []string) ([]domain.SourceRecord, error) {
	s.mu.Lock()
	s.fetchCalls++
	call := s.fetchCalls
	s.fetched = append(s.fetched, append([]string(nil), ids...))
	s.mu.Unlock()

	if s.onFetch != nil {
		s.onFetch(call, ids)
	}
	if err := s.failOn[call]; err != nil {
		return nil, err
	}

	var recs []domain.SourceRecord
	for _, id := range ids {
		if s.missing[id] {
			continue
		}
		recs = append(recs, domain.SourceRecord{
			ID:        id,
			XML:       []byte(fmt.Sprintf("<article><front><article-title>t%s</article-title></front></article>", id)),
			FetchedAt: time.Now(),
		})
	}
	return recs, nil
}

func (s *fakeSource) Close() error { return nil }

// fakeCheckpointStore keeps the checkpoint in memory with copy semantics,
// the way a file store round-trips through JSON.
type fakeCheckpointStore struct {
	mu    sync.Mutex
	cp    *domain.Checkpoint
	saves int
}

func copyCheckpoint(cp *domain.Checkpoint) *domain.Checkpoint {
	out := domain.NewCheckpoint()
	out.Version = cp.Version
	for id := range cp.ProcessedIDs {
		out.ProcessedIDs[id] = true
	}
	for q, off := range cp.QueryCursors {
		out.QueryCursors[q] = off
	}
	for id := range cp.FailedIDs {
		out.FailedIDs[id] = true
	}
	return out
}

func (s *fakeCheckpointStore) Load(context.Context) (*domain.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cp == nil {
		return domain.NewCheckpoint(), nil
	}
	return copyCheckpoint(s.cp), nil
}

func (s *fakeCheckpointStore) Save(_ context.Context, cp *domain.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cp = copyCheckpoint(cp)
	s.saves++
	return nil
}

// fakeRecordStore is an in-memory RecordStore.
type fakeRecordStore struct {
	mu      sync.Mutex
	records map[string]domain.SourceRecord
	runs    []domain.RunSummary
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: make(map[string]domain.SourceRecord)}
}

func (s *fakeRecordStore) Put(_ context.Context, rec domain.SourceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; !ok {
		s.records[rec.ID] = rec
	}
	return nil
}

func (s *fakeRecordStore) Get(_ context.Context, id string) (*domain.SourceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (s *fakeRecordStore) Walk(ctx context.Context, fn func(domain.SourceRecord) error) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	recs := make([]domain.SourceRecord, len(ids))
	for i, id := range ids {
		recs[i] = s.records[id]
	}
	s.mu.Unlock()

	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeRecordStore) Count(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records), nil
}

func (s *fakeRecordStore) SaveRun(_ context.Context, run domain.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

func (s *fakeRecordStore) ListRuns(_ context.Context, limit int) ([]domain.RunSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.RunSummary
	for i := len(s.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.runs[i])
	}
	return out, nil
}

func (s *fakeRecordStore) Close() error { return nil }

// fakeArtifactStore is an in-memory ArtifactStore.
type fakeArtifactStore struct {
	mu        sync.Mutex
	artifacts map[string]domain.DocumentChunks
}

func newFakeArtifactStore() *fakeArtifactStore {
	return &fakeArtifactStore{artifacts: make(map[string]domain.DocumentChunks)}
}

func (s *fakeArtifactStore) Save(_ context.Context, dc domain.DocumentChunks) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[dc.DocumentID] = dc
	return nil
}

func (s *fakeArtifactStore) Has(_ context.Context, documentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.artifacts[documentID]
	return ok, nil
}

func (s *fakeArtifactStore) Walk(ctx context.Context, fn func(domain.DocumentChunks) error) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.artifacts))
	for id := range s.artifacts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	docs := make([]domain.DocumentChunks, len(ids))
	for i, id := range ids {
		docs[i] = s.artifacts[id]
	}
	s.mu.Unlock()

	for _, dc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(dc); err != nil {
			return err
		}
	}
	return nil
}

// fakeEmbedder returns fixed-size vectors and can fail per text marker.
type fakeEmbedder struct {
	mu         sync.Mutex
	dims       int
	calls      int
	batchSizes []int
	texts      []string
	failMarker string
	pingErr    error
}

func newFakeEmbedder() *fakeEmbedder { return &fakeEmbedder{dims: 3} }

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.batchSizes = append(e.batchSizes, len(texts))
	e.texts = append(e.texts, texts...)
	e.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if e.failMarker != "" && len(text) >= len(e.failMarker) &&
			containsString(text, e.failMarker) {
			return nil, fmt.Errorf("embedding rejected")
		}
		out[i] = []float32{float32(len(text)), 0, 1}
	}
	return out, nil
}

func (e *fakeEmbedder) Dimensions() int            { return e.dims }
func (e *fakeEmbedder) ModelName() string          { return "fake-embed" }
func (e *fakeEmbedder) Ping(context.Context) error { return e.pingErr }
func (e *fakeEmbedder) Close() error               { return nil }

func containsString(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

// fakeIndex is an in-memory VectorIndex. Search returns preset hits.
type fakeIndex struct {
	mu        sync.Mutex
	points    map[driven.ChunkKey]domain.EmbeddedChunk
	recreates int
	ensures   int
	hits      []driven.VectorHit
	searchErr error
	searchK   int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{points: make(map[driven.ChunkKey]domain.EmbeddedChunk)}
}

func (x *fakeIndex) EnsureCollection(context.Context, int) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.ensures++
	return nil
}

func (x *fakeIndex) Recreate(context.Context, int) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.recreates++
	x.points = make(map[driven.ChunkKey]domain.EmbeddedChunk)
	return nil
}

func (x *fakeIndex) Upsert(_ context.Context, chunks []domain.EmbeddedChunk) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, ec := range chunks {
		x.points[driven.ChunkKey{DocumentID: ec.DocumentID, ChunkIndex: ec.Index}] = ec
	}
	return nil
}

func (x *fakeIndex) HasPoints(_ context.Context, keys []driven.ChunkKey) (map[driven.ChunkKey]bool, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	present := make(map[driven.ChunkKey]bool)
	for _, key := range keys {
		if _, ok := x.points[key]; ok {
			present[key] = true
		}
	}
	return present, nil
}

func (x *fakeIndex) Search(_ context.Context, _ []float32, k int) ([]driven.VectorHit, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.searchK = k
	if x.searchErr != nil {
		return nil, x.searchErr
	}
	if len(x.hits) > k {
		return x.hits[:k], nil
	}
	return x.hits, nil
}

func (x *fakeIndex) Count(context.Context) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.points), nil
}

func (x *fakeIndex) Close() error { return nil }

// fakeReranker scores candidates from a lookup table, optionally
// blocking until the context expires.
type fakeReranker struct {
	scores map[string]float64
	err    error
	block  bool
}

func (r *fakeReranker) Score(ctx context.Context, _ string, texts []string) ([]float64, error) {
	if r.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if r.err != nil {
		return nil, r.err
	}
	out := make([]float64, len(texts))
	for i, text := range texts {
		out[i] = r.scores[text]
	}
	return out, nil
}

func (r *fakeReranker) ModelName() string { return "fake-rerank" }
func (r *fakeReranker) Close() error      { return nil }

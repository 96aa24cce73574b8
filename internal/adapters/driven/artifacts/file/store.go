// Package file provides a directory-backed artifact store: one JSON file
// per processed document, named <document-id>_chunks.json. Artifacts are
// the hand-off from the processing pipeline to the indexer.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
	"github.com/marrow-labs/biblio-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ArtifactStore = (*Store)(nil)

// suffix is appended to the document ID to build the file name.
const suffix = "_chunks.json"

// Store persists chunk artifacts as JSON files in one directory.
type Store struct {
	dir string
}

// NewStore creates an artifact store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("artifacts: empty directory: %w", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("artifacts: create directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the artifact for a document, replacing any previous one.
// The write goes through a temp file and rename so a partially written
// artifact is never visible to the indexer.
func (s *Store) Save(_ context.Context, dc domain.DocumentChunks) error {
	if dc.DocumentID == "" {
		return fmt.Errorf("artifacts: empty document ID: %w", domain.ErrInvalidInput)
	}

	data, err := json.MarshalIndent(dc, "", "  ")
	if err != nil {
		return fmt.Errorf("artifacts: encode %s: %w", dc.DocumentID, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".artifact-*")
	if err != nil {
		return fmt.Errorf("artifacts: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("artifacts: write %s: %w", dc.DocumentID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("artifacts: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path(dc.DocumentID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("artifacts: rename %s: %w", dc.DocumentID, err)
	}
	return nil
}

// Has reports whether an artifact exists for the document.
func (s *Store) Has(_ context.Context, documentID string) (bool, error) {
	_, err := os.Stat(s.path(documentID))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("artifacts: stat %s: %w", documentID, err)
	}
	return true, nil
}

// Walk calls fn for every stored artifact in file-name order.
func (s *Store) Walk(ctx context.Context, fn func(domain.DocumentChunks) error) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("artifacts: read directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return fmt.Errorf("artifacts: read %s: %w", name, err)
		}

		var dc domain.DocumentChunks
		if err := json.Unmarshal(data, &dc); err != nil {
			return fmt.Errorf("artifacts: decode %s: %w", name, err)
		}

		if err := fn(dc); err != nil {
			return err
		}
	}
	return nil
}

// path builds the artifact file path for a document.
func (s *Store) path(documentID string) string {
	return filepath.Join(s.dir, documentID+suffix)
}

// Package file provides a JSON file-backed checkpoint store.
//
// Saves are atomic: the checkpoint is written to a temporary file in the
// same directory and renamed over the previous one, so a crash mid-write
// can never corrupt committed progress.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
	"github.com/marrow-labs/biblio-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.CheckpointStore = (*Store)(nil)

// Store persists the checkpoint as a JSON file.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a checkpoint store at the given path. The parent
// directory is created if missing.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("checkpoint: empty path: %w", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("checkpoint: create directory: %w", err)
	}
	return &Store{path: path}, nil
}

// Load reads the checkpoint. A missing file yields an empty checkpoint.
func (s *Store) Load(_ context.Context) (*domain.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return domain.NewCheckpoint(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("checkpoint: read: %w", err)
	}

	var cp domain.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("checkpoint: decode: %w", err)
	}
	cp.Normalise()
	return &cp, nil
}

// Save atomically replaces the checkpoint file.
func (s *Store) Save(_ context.Context, cp *domain.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("checkpoint: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("checkpoint: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("checkpoint: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("checkpoint: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("checkpoint: rename: %w", err)
	}
	return nil
}

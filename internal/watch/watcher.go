// Package watch ingests article XML dropped into a directory. Each new
// file runs through the same filter/parse/chunk pipeline as stored
// records, so manually obtained articles join the corpus without a fetch.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
	"github.com/marrow-labs/biblio-cli/internal/core/ports/driving"
	"github.com/marrow-labs/biblio-cli/internal/logger"
)

// settleDelay is how long a file must stay quiet before it is read.
// Editors and downloaders write in bursts; reading mid-write yields a
// truncated document.
const settleDelay = 500 * time.Millisecond

// Watcher processes XML files appearing in one directory.
type Watcher struct {
	dir       string
	processor driving.ProcessService

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New creates a watcher for the given directory.
func New(dir string, processor driving.ProcessService) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory: %w", dir, domain.ErrInvalidInput)
	}

	return &Watcher{
		dir:       dir,
		processor: processor,
		timers:    make(map[string]*time.Timer),
	}, nil
}

// Run watches until the context is cancelled. Files already present when
// the watch starts are processed first.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch: add %s: %w", w.dir, err)
	}

	if err := w.processExisting(ctx); err != nil {
		return err
	}

	logger.Info("Watching %s", w.dir)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !isArticleFile(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watch error: %v", err)
		}
	}
}

// processExisting handles files already in the directory at startup.
func (w *Watcher) processExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("watch: read %s: %w", w.dir, err)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.IsDir() || !isArticleFile(e.Name()) {
			continue
		}
		w.process(ctx, filepath.Join(w.dir, e.Name()))
	}
	return nil
}

// schedule arms (or re-arms) the settle timer for a path. The file is
// processed once it has been quiet for settleDelay.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Reset(settleDelay)
		return
	}
	w.timers[path] = time.AfterFunc(settleDelay, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		if ctx.Err() == nil {
			w.process(ctx, path)
		}
	})
}

// process runs one file through the pipeline. Failures are logged, never
// fatal: one bad file must not stop the watch.
func (w *Watcher) process(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Could not read %s: %v", path, err)
		return
	}

	rec := domain.SourceRecord{
		ID:        recordID(path),
		XML:       data,
		FetchedAt: time.Now(),
	}

	decision, err := w.processor.ProcessRecord(ctx, rec)
	if err != nil {
		logger.Warn("Could not process %s: %v", path, err)
		return
	}
	if decision.Accepted {
		logger.Info("Ingested %s: %s", rec.ID, decision.Reason)
	} else {
		logger.Info("Rejected %s: %s", rec.ID, decision.Reason)
	}
}

// isArticleFile reports whether the path looks like an article document.
func isArticleFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".xml" || ext == ".nxml"
}

// recordID derives the record ID from the file name.
func recordID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Package usecases contains application business rules.
// Clean Architecture: Usecases orchestrate entities and depend on port interfaces.
// They contain NO framework code - just business logic.
package usecases

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
	"github.com/0xcro3dile/starbot/internal/domain/ports"
)

// minChunkChars is the shortest chunk text ingestion keeps.
const minChunkChars = 10

// SnapshotBuilder rebuilds the live chunk snapshot from its sources.
type SnapshotBuilder interface {
	Rebuild(ctx context.Context) []entities.Chunk
}

// IngestConfig sizes chunks in characters.
type IngestConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Debounce     time.Duration // Quiet period before a watched change triggers ingestion

	// OnRefresh, if set, runs after every snapshot swap with the new size.
	OnRefresh func(chunks int)
}

// IngestUseCase turns documents into chunks, persists them and swaps
// the live snapshot. Runs are serialized.
type IngestUseCase struct {
	loader   ports.DocumentLoader
	sinks    []ports.ChunkSink
	snapshot SnapshotBuilder
	indexers []ports.ChunkIndexer
	cfg      IngestConfig
	log      zerolog.Logger
	newID    func() string

	runMu sync.Mutex
}

// NewIngestUseCase creates an IngestUseCase with injected dependencies.
// Dependency Injection: Adapters are passed in, not created here.
func NewIngestUseCase(
	loader ports.DocumentLoader,
	sinks []ports.ChunkSink,
	snapshot SnapshotBuilder,
	indexers []ports.ChunkIndexer,
	cfg IngestConfig,
	log zerolog.Logger,
) *IngestUseCase {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 512
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = 50
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	return &IngestUseCase{
		loader:   loader,
		sinks:    sinks,
		snapshot: snapshot,
		indexers: indexers,
		cfg:      cfg,
		log:      log.With().Str("component", "ingest").Logger(),
		newID:    uuid.NewString,
	}
}

// IngestDirectory loads every supported file under dir, chunks it and
// hands the batch to every sink. Unreadable files are logged and skipped.
func (uc *IngestUseCase) IngestDirectory(ctx context.Context, dir string) ([]entities.Chunk, error) {
	uc.runMu.Lock()
	defer uc.runMu.Unlock()

	paths, err := uc.listFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var chunks []entities.Chunk
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := uc.loader.Load(ctx, path)
		if err != nil {
			uc.log.Warn().Err(err).Str("path", path).Msg("skipping unreadable document")
			continue
		}
		docChunks := uc.ChunkDocument(doc)
		uc.log.Debug().Str("path", path).Int("chunks", len(docChunks)).Msg("chunked document")
		chunks = append(chunks, docChunks...)
	}

	var sinkErrs []error
	for _, sink := range uc.sinks {
		if err := sink.SaveChunks(ctx, chunks); err != nil {
			uc.log.Error().Err(err).Str("sink", sink.Name()).Msg("saving chunks failed")
			sinkErrs = append(sinkErrs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	uc.log.Info().Str("dir", dir).Int("files", len(paths)).Int("chunks", len(chunks)).Msg("ingested directory")
	return chunks, errors.Join(sinkErrs...)
}

// Refresh rebuilds the live snapshot and pushes it to every indexer.
func (uc *IngestUseCase) Refresh(ctx context.Context) int {
	uc.runMu.Lock()
	defer uc.runMu.Unlock()

	chunks := uc.snapshot.Rebuild(ctx)
	for _, idx := range uc.indexers {
		if err := idx.Index(ctx, chunks); err != nil {
			uc.log.Error().Err(err).Msg("indexing snapshot failed")
		}
	}
	uc.log.Info().Int("chunks", len(chunks)).Msg("snapshot refreshed")
	if uc.cfg.OnRefresh != nil {
		uc.cfg.OnRefresh(len(chunks))
	}
	return len(chunks)
}

// Sync re-ingests dir and refreshes the snapshot. A sink failure is
// returned but the refresh still runs so readers see whatever persisted.
func (uc *IngestUseCase) Sync(ctx context.Context, dir string) (int, error) {
	_, err := uc.IngestDirectory(ctx, dir)
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	return uc.Refresh(ctx), err
}

// Watch re-ingests dir and refreshes the snapshot whenever the watcher
// reports a change, coalescing bursts of events. Blocks until ctx ends.
func (uc *IngestUseCase) Watch(ctx context.Context, watcher ports.FileWatcher, dir string) error {
	events, err := watcher.Watch(ctx, dir)
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	timer := time.NewTimer(uc.cfg.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			uc.log.Debug().Str("path", ev.Path).Stringer("op", ev.Operation).Msg("document change")
			timer.Reset(uc.cfg.Debounce)
		case <-timer.C:
			if _, err := uc.Sync(ctx, dir); err != nil {
				uc.log.Error().Err(err).Msg("re-ingestion failed")
			}
		}
	}
}

// ChunkDocument splits document content into overlapping chunks, breaking
// at word boundaries. Chunks shorter than minChunkChars are dropped.
func (uc *IngestUseCase) ChunkDocument(doc *entities.Document) []entities.Chunk {
	content := []rune(strings.TrimSpace(doc.Content))
	if len(content) == 0 {
		return nil
	}

	var chunks []entities.Chunk
	start := 0
	for start < len(content) {
		end := min(start+uc.cfg.ChunkSize, len(content))
		if end < len(content) {
			if cut := lastSpace(content[start:end]); cut > 0 {
				end = start + cut
			}
		}

		text := strings.TrimSpace(string(content[start:end]))
		if len([]rune(text)) >= minChunkChars {
			meta := doc.Metadata
			if meta.SourceType == "" {
				meta.SourceType = entities.SourceFile
			}
			if meta.Filename == "" {
				meta.Filename = doc.Name
			}
			chunks = append(chunks, entities.Chunk{ID: uc.newID(), Text: text, Metadata: meta})
		}

		if end >= len(content) {
			break
		}
		next := end - uc.cfg.ChunkOverlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

func (uc *IngestUseCase) listFiles(dir string) ([]string, error) {
	supported := make(map[string]struct{})
	for _, ext := range uc.loader.SupportedExtensions() {
		supported[strings.ToLower(ext)] = struct{}{}
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := supported[strings.ToLower(filepath.Ext(path))]; ok {
			paths = append(paths, path)
		}
		return nil
	})
	sort.Strings(paths)
	return paths, err
}

func lastSpace(rs []rune) int {
	for i := len(rs) - 1; i > 0; i-- {
		if rs[i] == ' ' || rs[i] == '\n' || rs[i] == '\t' {
			return i
		}
	}
	return -1
}

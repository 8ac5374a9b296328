// Package chunkstore provides the in-memory chunk snapshot.
// Clean Architecture: Adapter implementing ports.ChunkReader on top of ports.ChunkSource.
package chunkstore

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
	"github.com/0xcro3dile/starbot/internal/domain/ports"
)

// MinChunkChars is the shortest text accepted into a snapshot.
const MinChunkChars = 10

// Store holds an immutable snapshot of chunks. Readers never lock; a rebuild
// assembles the next snapshot off to the side and publishes it in one swap.
// Returned slices are shared and must not be modified.
type Store struct {
	sources  []ports.ChunkSource
	fallback []entities.Chunk

	mu   sync.Mutex // serializes loads and rebuilds
	snap atomic.Pointer[[]entities.Chunk]
	log  zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithoutFallback disables the built-in seed chunks.
func WithoutFallback() Option {
	return func(s *Store) { s.fallback = nil }
}

// WithFallback replaces the built-in seed chunks.
func WithFallback(chunks []entities.Chunk) Option {
	return func(s *Store) { s.fallback = chunks }
}

// New creates a store over sources, read in the given order.
func New(log zerolog.Logger, sources []ports.ChunkSource, opts ...Option) *Store {
	s := &Store{
		sources:  sources,
		fallback: SeedChunks(),
		log:      log.With().Str("component", "chunkstore").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the current snapshot, reading the sources on first use.
// It never fails: broken or missing sources are logged and skipped, and
// the seed chunks stand in when nothing usable was found.
func (s *Store) Load(ctx context.Context) []entities.Chunk {
	if p := s.snap.Load(); p != nil {
		return *p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.snap.Load(); p != nil {
		return *p
	}
	chunks := s.build(ctx)
	s.snap.Store(&chunks)
	return chunks
}

// Chunks implements ports.ChunkReader.
func (s *Store) Chunks() []entities.Chunk {
	return s.Load(context.Background())
}

// Reset drops the snapshot so the next Load re-reads the sources.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Store(nil)
}

// Rebuild re-reads every source and swaps the result in. Readers keep
// using the previous snapshot until the swap.
func (s *Store) Rebuild(ctx context.Context) []entities.Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	chunks := s.build(ctx)
	s.snap.Store(&chunks)
	return chunks
}

// Replace publishes a snapshot built elsewhere.
func (s *Store) Replace(chunks []entities.Chunk) {
	valid := filterValid(chunks)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Store(&valid)
}

// Len returns the size of the current snapshot, zero before the first load.
func (s *Store) Len() int {
	if p := s.snap.Load(); p != nil {
		return len(*p)
	}
	return 0
}

func (s *Store) build(ctx context.Context) []entities.Chunk {
	var all []entities.Chunk
	for _, src := range s.sources {
		chunks, err := src.Load(ctx)
		if err != nil {
			s.log.Warn().Err(err).Str("source", src.Name()).Msg("chunk source unavailable")
			continue
		}
		valid := filterValid(chunks)
		s.log.Info().Str("source", src.Name()).Int("chunks", len(valid)).Int("skipped", len(chunks)-len(valid)).Msg("loaded chunk source")
		all = append(all, valid...)
	}

	if len(all) == 0 && len(s.fallback) > 0 {
		s.log.Warn().Int("chunks", len(s.fallback)).Msg("no chunk sources available, using built-in seed chunks")
		out := make([]entities.Chunk, len(s.fallback))
		copy(out, s.fallback)
		return out
	}
	if all == nil {
		all = []entities.Chunk{}
	}
	return all
}

func filterValid(chunks []entities.Chunk) []entities.Chunk {
	out := make([]entities.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if len([]rune(strings.TrimSpace(c.Text))) < MinChunkChars {
			continue
		}
		out = append(out, c)
	}
	return out
}

package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
)

// Processed file names inside the processed folder.
const (
	UploadsFile = "uploads_data.json"
	WebFile     = "web_data.json"
)

// ProcessedFile is a JSON array of {id, text, metadata} records. It is a
// ChunkSource for the store and a ChunkSink for ingestion.
type ProcessedFile struct {
	name string
	path string
}

// NewProcessedFile wraps the JSON file at path.
func NewProcessedFile(name, path string) *ProcessedFile {
	return &ProcessedFile{name: name, path: path}
}

// Name implements ports.ChunkSource.
func (p *ProcessedFile) Name() string { return p.name }

// Path returns the backing file path.
func (p *ProcessedFile) Path() string { return p.path }

// Load reads every record. Records without an id get a fresh one; a
// missing file is an error so the store can log it and move on.
func (p *ProcessedFile) Load(ctx context.Context) ([]entities.Chunk, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, err
	}

	var chunks []entities.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(p.path), err)
	}
	for i := range chunks {
		if chunks[i].ID == "" {
			chunks[i].ID = uuid.NewString()
		}
	}
	return chunks, nil
}

// SaveChunks writes chunks atomically via a temp file and rename.
func (p *ProcessedFile) SaveChunks(ctx context.Context, chunks []entities.Chunk) error {
	if chunks == nil {
		chunks = []entities.Chunk{}
	}
	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding chunks: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p.path), ".processed-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", filepath.Base(p.path), err)
	}
	return os.Rename(tmp.Name(), p.path)
}

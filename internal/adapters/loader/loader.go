// Package loader provides document loading adapters.
package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"code.sajari.com/docconv/v2"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
	"github.com/0xcro3dile/starbot/internal/domain/ports"
)

// TextLoader loads plain text documents (.txt, .md).
type TextLoader struct{}

// NewTextLoader creates a new text document loader.
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Load reads a text document from the given path.
func (l *TextLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	return newDocument(path, string(content), info.ModTime()), nil
}

// SupportedExtensions returns file extensions this loader handles.
func (l *TextLoader) SupportedExtensions() []string {
	return []string{".txt", ".md", ".markdown"}
}

// DocconvLoader extracts text from office and web documents with docconv.
type DocconvLoader struct{}

// NewDocconvLoader creates a loader for PDF, Word and HTML files.
func NewDocconvLoader() *DocconvLoader {
	return &DocconvLoader{}
}

// Load converts the document at path to plain text.
func (l *DocconvLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return nil, fmt.Errorf("converting %s: %w", filepath.Base(path), err)
	}

	text := cleanContent(res.Body)
	if text == "" {
		return nil, fmt.Errorf("no text extracted from %s", filepath.Base(path))
	}

	modTime := time.Now()
	if info, err := os.Stat(path); err == nil {
		modTime = info.ModTime()
	}
	return newDocument(path, text, modTime), nil
}

// SupportedExtensions returns file extensions.
func (l *DocconvLoader) SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".doc", ".html", ".htm", ".odt", ".rtf"}
}

// MultiLoader combines multiple loaders.
type MultiLoader struct {
	loaders map[string]ports.DocumentLoader
}

// NewMultiLoader creates a loader that handles every supported file type.
func NewMultiLoader(loaders ...ports.DocumentLoader) *MultiLoader {
	if len(loaders) == 0 {
		loaders = []ports.DocumentLoader{NewTextLoader(), NewDocconvLoader()}
	}
	m := &MultiLoader{loaders: make(map[string]ports.DocumentLoader)}
	for _, l := range loaders {
		for _, ext := range l.SupportedExtensions() {
			m.loaders[strings.ToLower(ext)] = l
		}
	}
	return m
}

// Load dispatches to the appropriate loader based on extension.
func (m *MultiLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	loader, ok := m.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
	return loader.Load(ctx, path)
}

// SupportedExtensions returns all supported extensions, sorted.
func (m *MultiLoader) SupportedExtensions() []string {
	exts := make([]string, 0, len(m.loaders))
	for ext := range m.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func newDocument(path, content string, modTime time.Time) *entities.Document {
	name := filepath.Base(path)
	return &entities.Document{
		ID:      generateDocID(path),
		Name:    name,
		Path:    path,
		Content: content,
		Metadata: entities.Metadata{
			SourceType: entities.SourceFile,
			SourceFile: name,
			Filename:   name,
			FileType:   strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		},
		CreatedAt: modTime,
		UpdatedAt: time.Now(),
	}
}

// generateDocID creates a deterministic ID for a document.
func generateDocID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}

// cleanContent drops control characters left behind by converters and
// collapses runs of blank lines.
func cleanContent(content string) string {
	var cleaned strings.Builder
	newlines := 0
	for _, r := range content {
		switch {
		case r == '\n':
			newlines++
			if newlines > 2 {
				continue
			}
		case r == '\t' || unicode.IsPrint(r):
			newlines = 0
		default:
			continue
		}
		cleaned.WriteRune(r)
	}
	return strings.TrimSpace(cleaned.String())
}

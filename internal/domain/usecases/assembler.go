// Package usecases - assembler.go builds the bounded prompt context.
package usecases

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
)

// TruncationMarker joins the kept head and tail of an over-long chunk.
const TruncationMarker = "\n[...]\n"

const (
	sectionSeparator = "\n\n"
	// minUsefulChars is the smallest truncated body worth including.
	minUsefulChars = 80
)

// UsedChunk describes one chunk that made it into the context.
type UsedChunk struct {
	Index       int // 1-based label in the context
	Chunk       entities.ScoredChunk
	SourceKey   string
	Attribution string
	Truncated   bool
}

// AssembledContext is the context string plus citation data.
type AssembledContext struct {
	Text string
	Used []UsedChunk
}

// Assemble concatenates ranked chunks into labeled sections without
// exceeding maxChars runes. A chunk that would overflow keeps a prefix and
// a suffix joined by TruncationMarker, and assembly stops after it.
func Assemble(chunks []entities.ScoredChunk, maxChars int) AssembledContext {
	var out AssembledContext
	if maxChars <= 0 {
		return out
	}

	var sb strings.Builder
	used := 0
	for _, c := range chunks {
		idx := len(out.Used) + 1
		attribution := c.Chunk.Metadata.Attribution()
		header := fmt.Sprintf("[%d] (relevance %.3f) Source: %s\n", idx, c.Score, attribution)
		if idx > 1 {
			header = sectionSeparator + header
		}

		remaining := maxChars - used
		avail := remaining - utf8.RuneCountInString(header)
		if avail <= 0 {
			break
		}

		body := strings.TrimSpace(c.Chunk.Text)
		truncated := false
		if utf8.RuneCountInString(body) > avail {
			if avail < minUsefulChars {
				break
			}
			body = truncateMiddle(body, avail)
			truncated = true
		}

		sb.WriteString(header)
		sb.WriteString(body)
		used += utf8.RuneCountInString(header) + utf8.RuneCountInString(body)
		out.Used = append(out.Used, UsedChunk{
			Index:       idx,
			Chunk:       c,
			SourceKey:   c.Chunk.Metadata.SourceKey(),
			Attribution: attribution,
			Truncated:   truncated,
		})
		if truncated {
			break
		}
	}
	out.Text = sb.String()
	return out
}

// truncateMiddle keeps roughly equal head and tail so that the result,
// marker included, is at most limit runes.
func truncateMiddle(s string, limit int) string {
	runes := []rune(s)
	markerLen := utf8.RuneCountInString(TruncationMarker)
	keep := limit - markerLen
	if keep <= 0 {
		return string(runes[:limit])
	}
	head := keep / 2
	tail := keep - head
	return strings.TrimSpace(string(runes[:head])) + TruncationMarker + strings.TrimSpace(string(runes[len(runes)-tail:]))
}

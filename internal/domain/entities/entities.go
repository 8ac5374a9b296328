// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import (
	"fmt"
	"time"
)

// SourceType tags where a chunk came from.
type SourceType string

const (
	SourceFile     SourceType = "file"
	SourceWeb      SourceType = "web"
	SourceFallback SourceType = "fallback"
	SourceSample   SourceType = "sample"
)

// Valid reports whether t is one of the known source types.
func (t SourceType) Valid() bool {
	switch t {
	case SourceFile, SourceWeb, SourceFallback, SourceSample:
		return true
	}
	return false
}

// Document represents a source document (PDF, TXT, MD, DOCX) before chunking.
// This is a core entity - no knowledge of storage or external systems.
type Document struct {
	ID        string
	Name      string
	Path      string
	Content   string
	Metadata  Metadata // Copied onto every chunk cut from this document
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Chunk is an atomic unit of retrievable knowledge.
// Clean Architecture: Entity knows nothing about how it's stored or scored.
type Chunk struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// ScoredChunk is a Chunk annotated with its relevance for one query.
// Never shared across requests.
type ScoredChunk struct {
	Chunk    Chunk
	Score    float64 // Relevance after source/length adjustments
	RawScore float64 // Scorer output before adjustments
	Position int     // Position in the store snapshot (or backend rank)
}

// Role is the speaker of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole maps caller-supplied role names onto Role. The legacy
// widget sends "bot" for assistant turns.
func ParseRole(s string) Role {
	switch s {
	case "assistant", "bot", "Bot":
		return RoleAssistant
	default:
		return RoleUser
	}
}

// ConversationTurn represents one message of the caller-owned history.
type ConversationTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a question with its scope and conversation context.
type ChatRequest struct {
	Query   string
	Scope   string
	History []ConversationTurn
}

// SourceRef is one citation in a response.
type SourceRef struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// Outcome is the terminal state of a chat request.
type Outcome string

const (
	OutcomeAnswered      Outcome = "answered"
	OutcomeFailed        Outcome = "failed"
	OutcomeQuickAnswer   Outcome = "quick_answer"
	OutcomeEmptyQuery    Outcome = "empty_query"
	OutcomeNoInformation Outcome = "no_information"
)

// ResponseMetadata is the metadata block of a ResponseObject.
type ResponseMetadata struct {
	Outcome    Outcome  `json:"outcome"`
	Cached     bool     `json:"cached"`
	Error      string   `json:"error,omitempty"`
	StatusCode int      `json:"status_code,omitempty"`
	Scope      string   `json:"scope,omitempty"`
	Retrieved  int      `json:"chunks_retrieved"`
	Used       int      `json:"chunks_used"`
	Threshold  float64  `json:"threshold,omitempty"`
	Topics     []string `json:"topics,omitempty"`
}

// ResponseObject is the answer returned to every caller.
// Immutable once constructed; use Clone before handing out shared copies.
type ResponseObject struct {
	Answer   string           `json:"answer"`
	Sources  []SourceRef      `json:"sources"`
	Metadata ResponseMetadata `json:"metadata"`
}

// Clone returns a deep copy so cached values can't be mutated by callers.
func (r ResponseObject) Clone() ResponseObject {
	out := r
	if r.Sources != nil {
		out.Sources = make([]SourceRef, len(r.Sources))
		for i, s := range r.Sources {
			meta := make(map[string]any, len(s.Metadata))
			for k, v := range s.Metadata {
				meta[k] = v
			}
			out.Sources[i] = SourceRef{Content: s.Content, Metadata: meta}
		}
	}
	if r.Metadata.Topics != nil {
		out.Metadata.Topics = append([]string(nil), r.Metadata.Topics...)
	}
	return out
}

// Verdict is the user's rating of an answer.
type Verdict string

const (
	VerdictHelpful    Verdict = "helpful"
	VerdictNotHelpful Verdict = "not-helpful"
)

// Feedback is a user rating of one answer.
type Feedback struct {
	Question  string
	Answer    string
	Verdict   Verdict
	Sources   []SourceRef
	CreatedAt time.Time
}

// Validate checks the fields a feedback record needs.
func (f Feedback) Validate() error {
	if f.Question == "" {
		return fmt.Errorf("feedback: question is required")
	}
	switch f.Verdict {
	case VerdictHelpful, VerdictNotHelpful:
		return nil
	default:
		return fmt.Errorf("feedback: unknown verdict %q", f.Verdict)
	}
}

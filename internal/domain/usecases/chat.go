// Package usecases - chat.go wires retrieval, assembly, caching and
// generation into a single request/response cycle.
package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
	"github.com/0xcro3dile/starbot/internal/domain/ports"
)

// Canned answers.
const (
	EmptyQueryAnswer = "Please enter a message so I can help you."
	FailureAnswer    = "I'm sorry, there was an error processing your request. Please try again later."
)

// ChatConfig holds the orchestration knobs.
type ChatConfig struct {
	School           string
	MaxResults       int
	PrimaryMinScore  float64
	FallbackMinScore float64
	MaxContextChars  int
	MaxHistory       int
	QuickAnswers     []QuickAnswer
}

// DefaultChatConfig returns the production defaults.
func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		School:           "Star College",
		MaxResults:       5,
		PrimaryMinScore:  0.3,
		FallbackMinScore: 0.1,
		MaxContextChars:  4000,
		MaxHistory:       6,
		QuickAnswers:     DefaultQuickAnswers(),
	}
}

// ChatUseCase answers questions about the school.
// Single Responsibility: request state machine only; every collaborator is injected.
type ChatUseCase struct {
	retriever *Retriever
	cache     ports.ResponseCache
	generator ports.Generator
	telemetry ports.Telemetry
	prompt    PromptBuilder
	cfg       ChatConfig
	log       zerolog.Logger
}

// NewChatUseCase creates a ChatUseCase with injected dependencies.
// telemetry may be nil.
func NewChatUseCase(
	retriever *Retriever,
	cache ports.ResponseCache,
	generator ports.Generator,
	telemetry ports.Telemetry,
	cfg ChatConfig,
	log zerolog.Logger,
) *ChatUseCase {
	def := DefaultChatConfig()
	if cfg.School == "" {
		cfg.School = def.School
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = def.MaxResults
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = def.MaxContextChars
	}
	if cfg.MaxHistory == 0 {
		cfg.MaxHistory = def.MaxHistory
	}
	if cfg.FallbackMinScore > cfg.PrimaryMinScore {
		cfg.FallbackMinScore = cfg.PrimaryMinScore
	}
	if telemetry == nil {
		telemetry = ports.NopTelemetry{}
	}
	return &ChatUseCase{
		retriever: retriever,
		cache:     cache,
		generator: generator,
		telemetry: telemetry,
		prompt:    PromptBuilder{School: cfg.School, MaxHistory: cfg.MaxHistory},
		cfg:       cfg,
		log:       log.With().Str("component", "chat").Logger(),
	}
}

// CacheKey derives the cache key for a query within a scope.
func CacheKey(query, scope string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query)) + "\x00" + scope))
	return hex.EncodeToString(sum[:])
}

// Answer runs one chat request to a terminal state. It never fails: every
// error is folded into the returned ResponseObject.
func (uc *ChatUseCase) Answer(ctx context.Context, req entities.ChatRequest) entities.ResponseObject {
	start := time.Now()
	resp := uc.answer(ctx, req)
	uc.telemetry.ObserveChat(resp.Metadata.Outcome, resp.Metadata.Cached, time.Since(start))
	uc.log.Info().
		Str("outcome", string(resp.Metadata.Outcome)).
		Bool("cached", resp.Metadata.Cached).
		Int("sources", len(resp.Sources)).
		Dur("duration", time.Since(start)).
		Msg("chat request completed")
	return resp
}

func (uc *ChatUseCase) answer(ctx context.Context, req entities.ChatRequest) entities.ResponseObject {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return terminal(EmptyQueryAnswer, entities.OutcomeEmptyQuery, req.Scope)
	}

	if qa, ok := matchQuickAnswer(uc.cfg.QuickAnswers, query); ok {
		uc.log.Debug().Str("phrase", qa.Phrase).Msg("quick answer")
		return terminal(qa.Answer, entities.OutcomeQuickAnswer, req.Scope)
	}

	key := CacheKey(query, req.Scope)
	if cached, ok := uc.cache.Get(key); ok {
		cached.Metadata.Cached = true
		return cached
	}

	chunks, threshold, err := uc.retrieve(ctx, query, req.Scope)
	if err != nil {
		uc.log.Error().Err(err).Msg("retrieval failed")
		resp := terminal(FailureAnswer, entities.OutcomeFailed, req.Scope)
		resp.Metadata.Error = "retrieval_failed"
		return resp
	}
	if len(chunks) == 0 {
		return uc.noInformation(req.Scope)
	}

	assembled := Assemble(chunks, uc.cfg.MaxContextChars)
	if len(assembled.Used) == 0 {
		return uc.noInformation(req.Scope)
	}

	system := uc.prompt.SystemPrompt(assembled.Text)
	turns := uc.prompt.Turns(req.History, query)

	genStart := time.Now()
	text, err := uc.generator.Generate(ctx, system, turns)
	if err != nil {
		kind, code := entities.ClassifyFailure(err)
		uc.telemetry.ObserveGeneration(time.Since(genStart), kind)
		uc.log.Warn().Err(err).Str("failure", string(kind)).Msg("generation failed")
		resp := terminal(FailureAnswer, entities.OutcomeFailed, req.Scope)
		resp.Metadata.Error = string(kind)
		resp.Metadata.StatusCode = code
		resp.Metadata.Retrieved = len(chunks)
		return resp
	}
	uc.telemetry.ObserveGeneration(time.Since(genStart), "")

	resp := entities.ResponseObject{
		Answer:  strings.TrimSpace(text),
		Sources: buildSources(assembled.Used),
		Metadata: entities.ResponseMetadata{
			Outcome:   entities.OutcomeAnswered,
			Scope:     req.Scope,
			Retrieved: len(chunks),
			Used:      len(assembled.Used),
			Threshold: threshold,
		},
	}
	uc.cache.Put(key, resp)
	return resp
}

// retrieve runs the two-tier retrieval: the primary threshold first, then
// once more with the fallback threshold and the topic-expanded query.
func (uc *ChatUseCase) retrieve(ctx context.Context, query, scope string) ([]entities.ScoredChunk, float64, error) {
	chunks, err := uc.retriever.RetrieveScoped(ctx, query, scope, uc.cfg.MaxResults, uc.cfg.PrimaryMinScore)
	if err != nil {
		return nil, 0, err
	}
	if len(chunks) > 0 {
		uc.telemetry.ObserveRetrieval(len(chunks), false)
		return chunks, uc.cfg.PrimaryMinScore, nil
	}

	expanded := ExpandQuery(query)
	uc.log.Debug().Str("expanded", expanded).Float64("threshold", uc.cfg.FallbackMinScore).Msg("retrying retrieval")
	chunks, err = uc.retriever.RetrieveScoped(ctx, expanded, scope, uc.cfg.MaxResults, uc.cfg.FallbackMinScore)
	if err != nil {
		return nil, 0, err
	}
	uc.telemetry.ObserveRetrieval(len(chunks), true)
	return chunks, uc.cfg.FallbackMinScore, nil
}

func (uc *ChatUseCase) noInformation(scope string) entities.ResponseObject {
	topics := SupportedTopics()
	answer := fmt.Sprintf(
		"I don't have enough information to answer that question about %s. I can help with questions about %s.",
		uc.prompt.School, strings.Join(topics, ", "))
	resp := terminal(answer, entities.OutcomeNoInformation, scope)
	resp.Metadata.Topics = topics
	return resp
}

func terminal(answer string, outcome entities.Outcome, scope string) entities.ResponseObject {
	return entities.ResponseObject{
		Answer:   answer,
		Sources:  []entities.SourceRef{},
		Metadata: entities.ResponseMetadata{Outcome: outcome, Scope: scope},
	}
}

// buildSources cites only the chunks that made it into the context.
func buildSources(used []UsedChunk) []entities.SourceRef {
	out := make([]entities.SourceRef, 0, len(used))
	for _, u := range used {
		meta := u.Chunk.Chunk.Metadata.Map()
		meta["chunk_id"] = u.Chunk.Chunk.ID
		meta["relevance_score"] = u.Chunk.Score
		meta["source"] = u.Attribution
		if u.Truncated {
			meta["truncated"] = true
		}
		out = append(out, entities.SourceRef{Content: u.Chunk.Chunk.Text, Metadata: meta})
	}
	return out
}

// Package mcp exposes starbot as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
)

type answerer interface {
	Answer(ctx context.Context, req entities.ChatRequest) entities.ResponseObject
}

type searcher interface {
	Search(ctx context.Context, query, scope string, limit int) ([]entities.SourceRef, error)
}

// Tools holds the tool handlers; search may be nil.
type Tools struct {
	chat   answerer
	search searcher
	log    zerolog.Logger
}

// NewTools creates the tool handlers.
func NewTools(chat answerer, search searcher, log zerolog.Logger) *Tools {
	return &Tools{chat: chat, search: search, log: log.With().Str("component", "mcp").Logger()}
}

// NewServer registers the starbot tools on a fresh MCP server.
func NewServer(tools *Tools, version string) *server.MCPServer {
	srv := server.NewMCPServer("starbot", version, server.WithToolCapabilities(false))

	ask := mcp.NewTool("ask_starbot",
		mcp.WithDescription("Answer a question about the school from its knowledge base. Returns the answer, cited sources and metadata as JSON."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to answer"),
		),
		mcp.WithString("scope",
			mcp.Description("Optional school or campus to restrict the answer to"),
		))
	srv.AddTool(ask, tools.Ask)

	if tools.search != nil {
		search := mcp.NewTool("search_knowledge",
			mcp.WithDescription("Search the school knowledge base and return ranked passages without generating an answer"),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Search query"),
			),
			mcp.WithString("scope",
				mcp.Description("Optional school or campus filter"),
			),
			mcp.WithNumber("top_k",
				mcp.Description("Maximum number of passages"),
			))
		srv.AddTool(search, tools.Search)
	}

	return srv
}

// Ask handles the ask_starbot tool.
func (t *Tools) Ask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp := t.chat.Answer(ctx, entities.ChatRequest{
		Query: q,
		Scope: strings.TrimSpace(request.GetString("scope", "")),
	})
	raw, err := json.Marshal(resp)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if resp.Metadata.Outcome == entities.OutcomeFailed {
		t.log.Warn().Str("error", resp.Metadata.Error).Msg("ask_starbot failed")
		return mcp.NewToolResultError(string(raw)), nil
	}
	return mcp.NewToolResultText(string(raw)), nil
}

// Search handles the search_knowledge tool. One JSON object per line.
func (t *Tools) Search(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.search == nil {
		return mcp.NewToolResultError("search is not configured"), nil
	}
	q, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := t.search.Search(ctx, q, strings.TrimSpace(request.GetString("scope", "")), request.GetInt("top_k", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	for _, r := range res {
		raw, err := json.Marshal(struct {
			Score  any    `json:"score"`
			Source any    `json:"source"`
			Text   string `json:"text"`
		}{
			Score:  r.Metadata["relevance_score"],
			Source: r.Metadata["source"],
			Text:   r.Content,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		sb.Write(raw)
		sb.WriteByte('\n')
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// Serve runs srv over SSE on addr until ctx is cancelled.
func Serve(ctx context.Context, srv *server.MCPServer, addr, baseURL string, log zerolog.Logger) error {
	sse := server.NewSSEServer(srv, server.WithBaseURL(baseURL))

	go func() {
		<-ctx.Done()
		if err := sse.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("mcp shutdown failed")
		}
	}()

	log.Info().Str("addr", addr).Msg("starbot MCP server starting")
	if err := sse.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Package usecases - prompt.go renders the generation request.
package usecases

import (
	"fmt"
	"strings"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
)

// PromptBuilder renders the system instruction and the trimmed turn list.
type PromptBuilder struct {
	School     string
	MaxHistory int
}

// SystemPrompt embeds the instructions and the assembled context.
func (b PromptBuilder) SystemPrompt(context string) string {
	school := b.School
	if school == "" {
		school = "the school"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a helpful assistant for %s. Answer the user's question based ONLY on the provided context.\n", school)
	fmt.Fprintf(&sb, "If you don't know the answer based on the context, say \"I don't have enough information to answer that question about %s.\"\n", school)
	sb.WriteString("Do not make up information or use knowledge outside of the provided context.\n\n")
	sb.WriteString("Be concise and clear. Only provide the most relevant information in your answer. ")
	sb.WriteString("Do not include everything from the context unless the user specifically asks for more details.\n\n")
	sb.WriteString("Context:\n")
	sb.WriteString(context)
	return sb.String()
}

// Turns returns the last MaxHistory history turns followed by the query.
// Empty turns are dropped; MaxHistory <= 0 keeps no history.
func (b PromptBuilder) Turns(history []entities.ConversationTurn, query string) []entities.ConversationTurn {
	kept := make([]entities.ConversationTurn, 0, len(history)+1)
	for _, t := range history {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		kept = append(kept, t)
	}
	if limit := max(b.MaxHistory, 0); len(kept) > limit {
		kept = kept[len(kept)-limit:]
	}
	return append(kept, entities.ConversationTurn{Role: entities.RoleUser, Content: query})
}

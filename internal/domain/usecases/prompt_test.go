package usecases

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
)

func TestPromptBuilder_SystemPrompt(t *testing.T) {
	b := PromptBuilder{School: "Star College"}

	got := b.SystemPrompt("[1] Source: FILE: a\nfounded in 2002")

	assert.Contains(t, got, "assistant for Star College")
	assert.Contains(t, got, "ONLY on the provided context")
	assert.Contains(t, got, "Context:\n[1] Source: FILE: a\nfounded in 2002")
}

func TestPromptBuilder_TurnsKeepsRecentHistory(t *testing.T) {
	b := PromptBuilder{MaxHistory: 2}
	history := []entities.ConversationTurn{
		{Role: entities.RoleUser, Content: "first"},
		{Role: entities.RoleAssistant, Content: "second"},
		{Role: entities.RoleUser, Content: "   "},
		{Role: entities.RoleUser, Content: "third"},
	}

	got := b.Turns(history, "latest question")

	require.Len(t, got, 3)
	assert.Equal(t, "second", got[0].Content)
	assert.Equal(t, "third", got[1].Content)
	assert.Equal(t, entities.ConversationTurn{Role: entities.RoleUser, Content: "latest question"}, got[2])
}

func TestPromptBuilder_NoHistory(t *testing.T) {
	got := PromptBuilder{MaxHistory: -1}.Turns([]entities.ConversationTurn{{Role: entities.RoleUser, Content: "old"}}, "q")

	assert.Equal(t, []entities.ConversationTurn{{Role: entities.RoleUser, Content: "q"}}, got)
}

func TestQuickAnswers(t *testing.T) {
	qa, ok := matchQuickAnswer(DefaultQuickAnswers(), "How do I apply for grade 8?")
	require.True(t, ok)
	assert.Contains(t, qa.Answer, "onlineapplication.cfm")

	_, ok = matchQuickAnswer(DefaultQuickAnswers(), "when was the school founded")
	assert.False(t, ok)
}

func TestDetectTopics(t *testing.T) {
	assert.Equal(t, []string{"history"}, DetectTopics("When was the school founded?"))
	assert.Equal(t, []string{"contact", "fees"}, DetectTopics("email about tuition"))
	assert.Empty(t, DetectTopics("can I recall this"), "call must match on word boundaries")
}

func TestExpandQuery(t *testing.T) {
	got := ExpandQuery("when was it founded")

	assert.Equal(t, "when was it founded history established began start", got)
	assert.Equal(t, "hello there", ExpandQuery("hello there"))
}

func TestSupportedTopics(t *testing.T) {
	assert.Equal(t, []string{"results", "history", "location", "contact", "admissions", "fees", "curriculum", "facilities"}, SupportedTopics())
}

// Package tui is the interactive terminal chat client.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/0xcro3dile/starbot/internal/domain/entities"
)

// ChatPort is the TUI-facing subset of the chat use case.
type ChatPort interface {
	Answer(ctx context.Context, req entities.ChatRequest) entities.ResponseObject
}

// answerMsg carries a finished response back into Update.
type answerMsg struct {
	question string
	resp     entities.ResponseObject
}

// Model is the Bubble Tea model for the chat client.
type Model struct {
	chat     ChatPort
	scope    string
	timeout  time.Duration
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	history  []entities.ConversationTurn
	sources  []entities.SourceRef
	status   string
	waiting  bool
	ready    bool
}

// New creates a new chat model. scope may be empty.
func New(chat ChatPort, scope string, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter (Ctrl+C to quit)"
	ti.Focus()
	ti.CharLimit = 500

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return Model{
		chat:     chat,
		scope:    scope,
		timeout:  timeout,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		status:   "Ready.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := transcriptStyle.GetFrameSize()
		_, qh := inputStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header, status, input box, spacer
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-bh)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.waiting {
				return m, nil
			}
			if q == "exit" || q == "quit" {
				return m, tea.Quit
			}
			m.input.SetValue("")
			m.waiting = true
			m.status = "Thinking..."
			m.history = append(m.history, entities.ConversationTurn{Role: entities.RoleUser, Content: q})
			m.refresh()
			return m, tea.Batch(m.spinner.Tick, m.ask(q, m.history[:len(m.history)-1]))
		}

	case answerMsg:
		m.waiting = false
		m.history = append(m.history, entities.ConversationTurn{Role: entities.RoleAssistant, Content: msg.resp.Answer})
		m.sources = msg.resp.Sources
		m.status = statusLine(msg.resp)
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// ask runs the request off the UI goroutine. history excludes the question.
func (m Model) ask(question string, history []entities.ConversationTurn) tea.Cmd {
	turns := append([]entities.ConversationTurn(nil), history...)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		resp := m.chat.Answer(ctx, entities.ChatRequest{Query: question, Scope: m.scope, History: turns})
		return answerMsg{question: question, resp: resp}
	}
}

// View renders the transcript, input box and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("Starbot")
	if m.scope != "" {
		header += dimStyle.Render("  " + m.scope)
	}
	status := statusStyle.Render(m.status)
	if m.waiting {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" +
		transcriptStyle.Render(m.viewport.View()) + "\n" +
		inputStyle.Render(m.input.View()) + "\n" +
		status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	if len(m.history) == 0 {
		return dimStyle.Render("Ask about admissions, fees, facilities, activities and more.")
	}
	var sb strings.Builder
	for i, turn := range m.history {
		if turn.Role == entities.RoleUser {
			sb.WriteString(userStyle.Render("You: "))
		} else {
			sb.WriteString(botStyle.Render("Starbot: "))
		}
		sb.WriteString(turn.Content)
		sb.WriteString("\n")
		if i == len(m.history)-1 && turn.Role == entities.RoleAssistant {
			for _, src := range m.sources {
				if s, ok := src.Metadata["source"].(string); ok && s != "" {
					sb.WriteString(dimStyle.Render("  - " + s))
					sb.WriteString("\n")
				}
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func statusLine(resp entities.ResponseObject) string {
	md := resp.Metadata
	switch {
	case md.Outcome == entities.OutcomeFailed:
		return fmt.Sprintf("Request failed (%s).", md.Error)
	case md.Cached:
		return "Answered from cache."
	case md.Outcome == entities.OutcomeAnswered:
		return fmt.Sprintf("Answered from %d of %d passages.", md.Used, md.Retrieved)
	}
	return "Ready."
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

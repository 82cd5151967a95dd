package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docassist/internal/app"
	"docassist/internal/model"
)

// ChatPort is the TUI-facing subset of the chat service.
type ChatPort interface {
	SendMessage(ctx context.Context, sessionID, text string) (*app.SendMessageResult, error)
	ResetConversation(ctx context.Context, sessionID string) (*model.Session, error)
	SuggestedQuestions() []string
}

type replyMsg struct {
	result *app.SendMessageResult
	err    error
}

type resetMsg struct {
	err error
}

// Model is the Bubble Tea model for the terminal chat client.
type Model struct {
	ctx         context.Context
	chat        ChatPort
	sessionID   string
	summary     string
	input       textinput.Model
	viewport    viewport.Model
	turns       []model.Turn
	suggestions []string
	nextHint    int
	pending     int
	status      string
	waiting     bool
	ready       bool
}

func New(ctx context.Context, chat ChatPort, sessionID, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the indexed documents (tab: suggestion)"
	ti.Focus()
	ti.CharLimit = 0
	return Model{
		ctx:         ctx,
		chat:        chat,
		sessionID:   sessionID,
		summary:     summary,
		input:       ti,
		viewport:    viewport.New(0, 0),
		suggestions: chat.SuggestedQuestions(),
		status:      "Ready. Enter sends, ctrl+r clears the conversation, ctrl+c quits.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, fh := historyBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header+summary, status, input box
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-fh)
		m.refresh()
		return m, nil

	case replyMsg:
		m.waiting = false
		if msg.result != nil {
			m.turns = append(m.turns[:m.pending], msg.result.Turns...)
		} else {
			m.turns = m.turns[:m.pending]
		}
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("%d questions asked", countQuestions(m.turns))
		}
		m.refresh()
		return m, nil

	case resetMsg:
		m.waiting = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}
		m.turns = nil
		m.status = "Conversation cleared."
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			question := strings.TrimSpace(m.input.Value())
			if question == "" || m.waiting {
				return m, nil
			}
			m.input.Reset()
			m.waiting = true
			// shown right away, then replaced by the turns the service recorded
			m.pending = len(m.turns)
			m.turns = append(m.turns, model.Turn{Role: model.RoleUser, Content: question})
			m.status = "Waiting for the assistant..."
			m.refresh()
			return m, m.send(question)
		case "ctrl+r":
			if m.waiting {
				return m, nil
			}
			m.waiting = true
			return m, m.reset()
		case "tab":
			if len(m.suggestions) > 0 && m.input.Value() == "" {
				m.input.SetValue(m.suggestions[m.nextHint%len(m.suggestions)])
				m.input.CursorEnd()
				m.nextHint++
				return m, nil
			}
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render("Document Assistant")
	summary := mutedStyle.Render(m.summary)
	history := historyBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + summary + "\n" + history + "\n" + input + "\n" + status
}

func (m Model) send(question string) tea.Cmd {
	ctx, chat, sessionID := m.ctx, m.chat, m.sessionID
	return func() tea.Msg {
		result, err := chat.SendMessage(ctx, sessionID, question)
		return replyMsg{result: result, err: err}
	}
}

func (m Model) reset() tea.Cmd {
	ctx, chat, sessionID := m.ctx, m.chat, m.sessionID
	return func() tea.Msg {
		_, err := chat.ResetConversation(ctx, sessionID)
		return resetMsg{err: err}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(renderTurns(m.turns, m.viewport.Width))
	m.viewport.GotoBottom()
}

func renderTurns(turns []model.Turn, width int) string {
	if len(turns) == 0 {
		return mutedStyle.Render("No messages yet.")
	}
	body := lipgloss.NewStyle().Width(max(10, width-2))
	parts := make([]string, 0, len(turns))
	for _, turn := range turns {
		label := userStyle.Render("You")
		if turn.Role == model.RoleAssistant {
			label = assistantStyle.Render("Assistant")
		}
		parts = append(parts, label+"\n"+body.Render(turn.Content))
	}
	return strings.Join(parts, "\n\n")
}

func countQuestions(turns []model.Turn) int {
	n := 0
	for _, turn := range turns {
		if turn.Role == model.RoleUser {
			n++
		}
	}
	return n
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true)
	mutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	historyBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

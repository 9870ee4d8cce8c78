package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"nexusrag/internal/apiclient"
)

// Model is the Bubble Tea model for the chat client. It talks to the
// session API only; no retrieval happens in-process.
type Model struct {
	client    *apiclient.Client
	sessionID string

	input      textinput.Model
	viewport   viewport.Model
	transcript []string
	status     string
	ready      bool
	busy       bool
}

type sessionStartedMsg string

type uploadDoneMsg struct {
	result *apiclient.UploadResult
}

type answerMsg struct {
	result *apiclient.QueryResult
}

type errMsg struct {
	err error
}

// New creates the chat model. The session is started asynchronously on Init.
func New(client *apiclient.Client) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question, or :upload file.pdf ..."
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		client:   client,
		input:    ti,
		viewport: vp,
		status:   "Connecting...",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.startSession())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, fh := chatBoxStyle.GetFrameSize()
		_, qh := inputBoxStyle.GetFrameSize()
		vh := msg.Height - fh - qh - 3
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = vh
		m.viewport.SetContent(strings.Join(m.transcript, "\n"))
		return m, nil

	case sessionStartedMsg:
		m.sessionID = string(msg)
		m.status = "Session ready. Upload documents with :upload, then ask away."
		return m, nil

	case uploadDoneMsg:
		m.busy = false
		m.status = fmt.Sprintf("Indexed %d documents (%d chunks).", msg.result.Documents, msg.result.Chunks)
		m.appendLine(systemStyle.Render(msg.result.Message))
		if msg.result.Summary != "" {
			m.appendLine(systemStyle.Render("Summary: " + msg.result.Summary))
		}
		for _, sk := range msg.result.Skipped {
			m.appendLine(warnStyle.Render("Skipped " + sk.File + ": " + sk.Reason))
		}
		return m, nil

	case answerMsg:
		m.busy = false
		m.status = "Ready."
		m.appendLine(answerStyle.Render("Nexus: ") + msg.result.Answer)
		if msg.result.DecisionRationale != "" {
			m.appendLine(faintStyle.Render("Rationale: " + msg.result.DecisionRationale))
		}
		for i, clause := range msg.result.SourceClauses {
			m.appendLine(faintStyle.Render(fmt.Sprintf("[source %d] %s", i+1, truncate(clause, 200))))
		}
		return m, nil

	case errMsg:
		m.busy = false
		m.status = "Error: " + msg.err.Error()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.String() == "enter" && !m.busy {
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				return m, nil
			}
			m.input.SetValue("")
			if rest, ok := strings.CutPrefix(line, ":upload "); ok {
				paths := strings.Fields(rest)
				if len(paths) == 0 {
					m.status = "Usage: :upload file1 [file2 ...]"
					return m, nil
				}
				m.busy = true
				m.status = "Uploading and indexing..."
				m.appendLine(systemStyle.Render("Uploading " + strings.Join(paths, ", ")))
				return m, m.upload(paths)
			}
			m.busy = true
			m.status = "Thinking..."
			m.appendLine(userStyle.Render("You: ") + line)
			return m, m.ask(line)
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
	header := lipgloss.NewStyle().Bold(true).Render("Nexus RAG Chat")
	chat := chatBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + chat + "\n" + input + "\n" + status
}

func (m *Model) appendLine(line string) {
	m.transcript = append(m.transcript, line)
	m.viewport.SetContent(strings.Join(m.transcript, "\n"))
	m.viewport.GotoBottom()
}

func (m Model) startSession() tea.Cmd {
	return func() tea.Msg {
		id, err := m.client.StartSession()
		if err != nil {
			return errMsg{err}
		}
		return sessionStartedMsg(id)
	}
}

func (m Model) upload(paths []string) tea.Cmd {
	sessionID := m.sessionID
	return func() tea.Msg {
		res, err := m.client.UploadDocs(sessionID, paths)
		if err != nil {
			return errMsg{err}
		}
		return uploadDoneMsg{res}
	}
}

func (m Model) ask(question string) tea.Cmd {
	sessionID := m.sessionID
	return func() tea.Msg {
		res, err := m.client.Query(sessionID, question)
		if err != nil {
			return errMsg{err}
		}
		return answerMsg{res}
	}
}

var (
	chatBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	answerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	systemStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	faintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Package tui is the terminal front end of the chat session client.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/xiaot623/embedchat/internal/session"
)

// Changes carries session observer callbacks into the bubbletea program.
type Changes chan struct{}

// NewChanges creates a Changes channel. Pass Notify to session.WithObserver.
func NewChanges() Changes {
	return make(Changes, 1)
}

// Notify records a pending change without blocking.
func (ch Changes) Notify() {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (ch Changes) wait() tea.Cmd {
	return func() tea.Msg {
		<-ch
		return changedMsg{}
	}
}

type changedMsg struct{}

type turnDoneMsg struct {
	outcome session.Outcome
}

// chrome is the number of lines outside the viewport: title, input box and help.
const chrome = 6

type Model struct {
	ctx      context.Context
	client   *session.Client
	changes  Changes
	input    textinput.Model
	viewport viewport.Model
	cursor   int  // selected embedded message, -1 for none
	sending  bool // a submitted turn has not reported back yet
	width    int
	height   int
	quitting bool
}

func NewModel(ctx context.Context, client *session.Client, changes Changes) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 4000
	ti.Focus()

	m := Model{
		ctx:      ctx,
		client:   client,
		changes:  changes,
		input:    ti,
		viewport: viewport.New(80, 24-chrome),
		cursor:   -1,
		width:    80,
		height:   24,
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	if m.changes == nil {
		return textinput.Blink
	}
	return tea.Batch(textinput.Blink, m.changes.wait())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(1, msg.Height-chrome)
		m.input.Width = max(10, msg.Width-6)
		m.refresh()
		return m, nil

	case changedMsg:
		m.refresh()
		m.viewport.GotoBottom()
		return m, m.changes.wait()

	case turnDoneMsg:
		m.sending = false
		m.refresh()
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "enter":
		text := m.input.Value()
		if m.sending || m.client.Busy() || strings.TrimSpace(text) == "" {
			return m, nil
		}
		m.sending = true
		m.input.Reset()
		return m, m.submit(text)

	case "ctrl+p":
		m.moveCursor(-1)
		m.refresh()
		return m, nil

	case "ctrl+n":
		m.moveCursor(1)
		m.refresh()
		return m, nil

	case "ctrl+e":
		if m.cursor < 0 {
			m.moveCursor(-1)
		}
		if m.cursor >= 0 {
			m.client.SelectEmbedding(m.cursor)
		}
		m.refresh()
		return m, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends text as a turn. The text is captured here so a later
// keystroke cannot change what goes out.
func (m Model) submit(text string) tea.Cmd {
	ctx, client := m.ctx, m.client
	return func() tea.Msg {
		return turnDoneMsg{outcome: client.SendTurn(ctx, text)}
	}
}

// moveCursor selects the previous (dir < 0) or next embedded message.
// From no selection, both directions start at the newest one.
func (m *Model) moveCursor(dir int) {
	msgs := m.client.Messages()
	start := m.cursor + dir
	if m.cursor < 0 {
		start, dir = len(msgs)-1, -1
	}
	for i := start; i >= 0 && i < len(msgs); i += dir {
		if msgs[i].HasEmbedding() {
			m.cursor = i
			return
		}
	}
}

func (m *Model) refresh() {
	expanded, ok := m.client.ExpandedEmbedding()
	if !ok {
		expanded = -1
	}
	m.viewport.SetContent(RenderMessages(m.client.Messages(), expanded, m.cursor, m.width))
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("EmbedChat") + dimStyle.Render("  "+m.client.SessionID()) + "\n")
	b.WriteString(m.viewport.View() + "\n")

	status := ""
	if m.client.Busy() {
		status = thinkingStyle.Render(thinkingText)
	}
	b.WriteString(status + "\n")
	b.WriteString(inputStyle.Render(m.input.View()) + "\n")
	b.WriteString(helpStyle.Render("  Enter: send  Ctrl+P/N: select vector  Ctrl+E: show vector  Esc: quit"))
	return b.String()
}

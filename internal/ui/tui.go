package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"portfolio-chat/internal/domain"
)

const (
	busyStatus = "Still waiting for the previous answer..."
	typingText = "..."
)

// Widget is the controller surface the terminal front-ends drive.
type Widget interface {
	Toggle()
	Close()
	Submit(ctx context.Context, text string) error
	Pending() bool
}

type screenChangedMsg struct{}

type submitDoneMsg struct {
	err error
}

// Model renders the chat pane and turns key presses into widget calls.
type Model struct {
	ctx      context.Context
	widget   Widget
	screen   *Screen
	styles   Styles
	title    string
	input    textinput.Model
	viewport viewport.Model

	state      screenState
	lastClear  int
	lastScroll int
	status     string
	width      int
}

func NewModel(ctx context.Context, w Widget, s *Screen, title string) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about projects, skills, experience..."
	ti.CharLimit = 500
	ti.Width = 60

	m := Model{
		ctx:      ctx,
		widget:   w,
		screen:   s,
		styles:   DefaultStyles(),
		title:    title,
		input:    ti,
		viewport: viewport.New(64, 12),
		width:    68,
	}
	m.sync()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForChange(m.ctx, m.screen), textinput.Blink)
}

// waitForChange turns the next screen mutation into a message.
func waitForChange(ctx context.Context, s *Screen) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case <-s.Changed():
			return screenChangedMsg{}
		}
	}
}

func (m Model) submit(text string) tea.Cmd {
	ctx, w := m.ctx, m.widget
	return func() tea.Msg {
		return submitDoneMsg{err: w.Submit(ctx, text)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(24, msg.Width)
		m.viewport.Width = m.width - 4
		m.viewport.Height = max(3, msg.Height-9)
		m.input.Width = m.width - 8
		m.sync()
		return m, nil

	case screenChangedMsg:
		cmd := m.sync()
		return m, tea.Batch(cmd, waitForChange(m.ctx, m.screen))

	case submitDoneMsg:
		m.status = ""
		if msg.err != nil {
			m.status = busyStatus
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyCtrlO:
		m.widget.Toggle()
		cmd := m.sync()
		return m, cmd
	case tea.KeyEsc:
		if m.state.open {
			m.widget.Close()
		}
		cmd := m.sync()
		return m, cmd
	}

	if !m.state.open || m.state.focus != FocusInput {
		switch {
		case msg.Type == tea.KeyEnter, msg.Type == tea.KeySpace:
			m.widget.Toggle()
			cmd := m.sync()
			return m, cmd
		case msg.String() == "q":
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEnter:
		if m.widget.Pending() {
			m.status = busyStatus
			return m, nil
		}
		return m, m.submit(m.input.Value())
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// sync copies the screen into the model's bubbles.
func (m *Model) sync() tea.Cmd {
	st := m.screen.snapshot()

	var cmd tea.Cmd
	if st.open && st.focus == FocusInput {
		if !m.input.Focused() {
			cmd = m.input.Focus()
		}
	} else {
		m.input.Blur()
	}
	if st.clearSeq != m.lastClear {
		m.input.SetValue("")
		m.lastClear = st.clearSeq
	}

	m.state = st
	m.viewport.SetContent(m.renderMessages())
	if st.scrollSeq != m.lastScroll {
		m.viewport.GotoBottom()
		m.lastScroll = st.scrollSeq
	}
	return cmd
}

func (m Model) renderMessages() string {
	bubbleWidth := max(10, m.viewport.Width*3/4)
	lines := make([]string, 0, len(m.state.messages)+1)
	for _, msg := range m.state.messages {
		lines = append(lines, m.renderBubble(msg, bubbleWidth))
	}
	if m.state.typing {
		lines = append(lines, m.styles.Typing.Render(typingText))
	}
	return strings.Join(lines, "\n\n")
}

// renderBubble lets lipgloss wrap the text to at most width cells. Short
// messages shrink the bubble to fit.
func (m Model) renderBubble(msg domain.Message, width int) string {
	style := m.styles.BotBubble
	if msg.Role == domain.RoleUser {
		style = m.styles.UserBubble
	}
	w := min(width, lipgloss.Width(msg.Text)+style.GetHorizontalFrameSize())
	bubble := style.Width(w).Render(msg.Text)
	if msg.Role == domain.RoleUser {
		return lipgloss.PlaceHorizontal(m.viewport.Width, lipgloss.Right, bubble)
	}
	return bubble
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Header.Render(m.title))
	b.WriteString("\n\n")

	if m.state.open {
		panel := m.viewport.View() + "\n\n" + m.input.View()
		b.WriteString(m.styles.Panel.Width(m.width - 2).Render(panel))
		b.WriteString("\n")
	}

	label := "💬 Open chat"
	if m.state.open {
		label = "✕ Close chat"
	}
	toggle := m.styles.Toggle
	if m.state.focus == FocusToggle {
		toggle = m.styles.ToggleActive
	}
	b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Right, toggle.Render(label)))
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(m.styles.Status.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.Help.Render("ctrl+o toggle · enter send · esc close · pgup/pgdn scroll · ctrl+c quit"))
	return b.String()
}

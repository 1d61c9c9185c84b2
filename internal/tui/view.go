package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"Agent311/internal/dialog"
	"Agent311/internal/render"
	"Agent311/internal/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	agentStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	toolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	cardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("213"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("205")).
			Bold(true).
			Padding(0, 3)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 4)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(lipgloss.Color("238"))

	inputBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(0, 1)

	focusedInputStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("205")).
				Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)

	dropStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("226")).
			Bold(true).
			Padding(0, 1)
)

const (
	headerHeight = 1
	statusHeight = 1
	inputHeight  = 3
)

// layout holds the column widths of the main screen.
type layout struct {
	sidebar, chat, pane, body int
}

func (m Model) layout() layout {
	var l layout
	l.body = m.height - headerHeight - statusHeight - inputHeight
	if l.body < 3 {
		l.body = 3
	}
	if m.state.SidebarOpen {
		l.sidebar = m.state.SidebarWidth / pxPerCol
	}
	rest := m.width - l.sidebar
	if rest < 20 {
		l.sidebar = 0
		rest = m.width
	}
	if m.state.Artifact != nil {
		l.pane = rest * m.state.PanePct / 100
	}
	l.chat = rest - l.pane
	return l
}

// sync sizes the viewports and refreshes their content from the snapshot.
func (m *Model) sync() {
	if !m.ready {
		return
	}
	l := m.layout()

	m.viewport.Width = max(l.chat-1, 1)
	m.viewport.Height = l.body
	m.viewport.SetContent(m.renderMessages(m.viewport.Width))

	count := len(m.state.Messages)
	size := 0
	if count > 0 {
		size = len(m.state.Messages[count-1].Content)
	}
	if count != m.lastMsgCount || size != m.lastMsgLen {
		m.viewport.GotoBottom()
		m.lastMsgCount, m.lastMsgLen = count, size
	}

	m.pane.Width = max(l.pane-1, 1)
	m.pane.Height = max(l.body-2, 1)
	if m.state.Artifact != nil {
		m.pane.SetContent(m.renderPaneBody(m.pane.Width))
	}
	m.input.Width = max(m.width-8, 10)
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if !m.ready {
		return fmt.Sprintf("\n  %s Initializing...", m.spinner.View())
	}

	switch m.screen {
	case screenBoot:
		return fmt.Sprintf("\n  %s Loading...", m.spinner.View())
	case screenLogin:
		return m.renderLogin()
	}

	l := m.layout()
	header := titleStyle.Render("Agent Austin 311") + "  " + infoStyle.Render(m.state.CurrentTitle)

	var columns []string
	if l.sidebar > 0 {
		columns = append(columns, panelStyle.Width(l.sidebar-1).Height(l.body).Render(m.renderSidebar(l.sidebar-2, l.body)))
	}
	columns = append(columns, lipgloss.NewStyle().Width(l.chat).Height(l.body).Render(m.viewport.View()))
	if l.pane > 0 {
		columns = append(columns, m.renderPane(l.pane, l.body))
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, columns...)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		body,
		m.renderStatus(),
		m.renderInput(),
	)
}

func (m Model) renderLogin() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Agent Austin") + "\n\n")
	b.WriteString(infoStyle.Render("Austin 311 Data Science Agent") + "\n\n")
	if m.loggingIn {
		b.WriteString(m.spinner.View() + " Logging in...")
	} else {
		b.WriteString(buttonStyle.Render("Log In"))
	}
	if m.loginErr != "" {
		b.WriteString("\n\n" + errorStyle.Render(m.loginErr))
	}
	b.WriteString("\n\n" + infoStyle.Render("Enter: log in │ q: quit"))

	box := boxStyle.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) renderSidebar(width, height int) string {
	var lines []string
	row := func(i int, text string) string {
		text = truncate(text, width-2)
		if m.focus == focusSidebar && i == m.cursor {
			return selectedStyle.Render("▸ " + text)
		}
		return "  " + text
	}

	if m.state.SidebarMode == dialog.SidebarFiles {
		lines = append(lines, titleStyle.Render("Reports"))
		if len(m.state.Reports) == 0 {
			lines = append(lines, infoStyle.Render("  (empty)"))
		}
		for i, f := range m.state.Reports {
			lines = append(lines, row(i, "└ "+f.Name))
		}
	} else {
		i := 0
		section := func(name string, sessions []session.Session) {
			if len(sessions) == 0 {
				return
			}
			lines = append(lines, titleStyle.Render(name))
			for _, s := range sessions {
				title := s.Title
				if s.ID == m.state.CurrentSessionID {
					title = "● " + title
				}
				lines = append(lines, row(i, title))
				i++
			}
		}
		section("Favorites", m.state.Favorites())
		section("Recent", m.state.Recent())
	}

	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

// renderMessages renders the message list: user text verbatim, the streaming
// reply raw, and finalized replies from their render plan.
func (m Model) renderMessages(width int) string {
	wrap := lipgloss.NewStyle().Width(width)
	if len(m.state.Messages) == 0 {
		return wrap.Render(infoStyle.Render(dialog.EmptyStateText))
	}

	streaming := m.state.StreamingMessageID()
	var b strings.Builder
	for _, msg := range m.state.Messages {
		if msg.Role == session.RoleUser {
			b.WriteString(userStyle.Render("You") + "\n")
			b.WriteString(wrap.Render(msg.Content) + "\n\n")
			continue
		}

		b.WriteString(agentStyle.Render("Agent") + "\n")
		if msg.ID == streaming {
			if msg.Content == "" {
				b.WriteString(m.spinner.View() + "\n\n")
			} else {
				b.WriteString(wrap.Render(msg.Content) + "\n\n")
			}
			continue
		}

		plan := m.shared.plans.Plan(msg.Content)
		if g := plan.ToolGroup(); g != nil {
			b.WriteString(m.renderTools(g) + "\n")
		}
		if prose := plan.Prose(); prose != "" {
			b.WriteString(wrap.Render(prose) + "\n")
		}
		for i, a := range plan.Artifacts() {
			b.WriteString(cardStyle.Render(fmt.Sprintf("[%d] %s · %s", i+1, a.Language, a.Title)) + "\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderTools(g *render.ToolGroup) string {
	if !m.showTools {
		noun := "tool calls"
		if len(g.Tools) == 1 {
			noun = "tool call"
		}
		return toolStyle.Render(fmt.Sprintf("▸ %d %s", len(g.Tools), noun))
	}
	lines := make([]string, 0, len(g.Tools))
	for _, tc := range g.Tools {
		lines = append(lines, toolStyle.Render("• "+tc.Title))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderPane(width, height int) string {
	artifact := m.state.Artifact
	mode := render.Classify(artifact.Code)

	title := titleStyle.Render(mode.Title())
	if artifact.Report != nil {
		title += " " + infoStyle.Render(artifact.Report.Name)
	}

	actions := []string{"o: open"}
	if mode.HasSource() {
		actions = append(actions, "y: copy")
	}
	if artifact.Report != nil {
		actions = append(actions, "d: download")
	}
	actions = append(actions, "c: close")

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		infoStyle.Render(strings.Join(actions, " │ ")),
		m.pane.View(),
	)
	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(lipgloss.Color("238")).
		Width(width - 1).
		Height(height).
		Render(content)
}

func (m Model) renderPaneBody(width int) string {
	code := m.state.Artifact.Code
	mode := render.Classify(code)
	if !mode.HasSource() {
		return infoStyle.Render(fmt.Sprintf("%d bytes of image data. Press o to view.", len(code)))
	}
	return infoStyle.Render(mode.SourceName()) + "\n" +
		lipgloss.NewStyle().Width(width).Render(code)
}

func (m Model) renderStatus() string {
	var parts []string
	parts = append(parts, m.state.SidebarMode.String())

	if m.shared.ctrl.DropZone().Active() {
		parts = append(parts, dropStyle.Render("Uploading dropped files..."))
	}
	if m.status != "" {
		if m.statusErr {
			parts = append(parts, errorStyle.Render(m.status))
		} else {
			parts = append(parts, m.status)
		}
	}

	switch m.focus {
	case focusSidebar:
		if m.state.SidebarMode == dialog.SidebarFiles {
			parts = append(parts, "Enter: open │ d: download │ x: delete │ ctrl+o: chats")
		} else {
			parts = append(parts, "Enter: open │ r: rename │ f: favorite │ x: delete │ ctrl+o: files")
		}
	case focusContent:
		parts = append(parts, "t: tools │ 1-9: preview │ o/y/d/c: pane │ alt+←/→: resize")
	default:
		if m.state.IsStreaming {
			parts = append(parts, "Esc: stop")
		} else {
			parts = append(parts, "Enter: send │ Tab: focus │ ctrl+n: new │ ctrl+b: sidebar │ ctrl+c: quit")
		}
	}

	return statusBarStyle.Width(m.width).Render(strings.Join(parts, " │ "))
}

func (m Model) renderInput() string {
	if m.state.IsStreaming && m.mode == modeChat {
		return inputBorderStyle.Width(m.width - 4).Render(m.spinner.View() + " Agent is replying... Esc to stop")
	}
	view := m.input.View()
	if m.mode == modeRename {
		view = infoStyle.Render("Rename: ") + view
	}
	if m.focus == focusInput {
		return focusedInputStyle.Width(m.width - 4).Render(view)
	}
	return inputBorderStyle.Width(m.width - 4).Render(view)
}

func truncate(s string, n int) string {
	if n <= 1 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

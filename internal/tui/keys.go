package tui

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"Agent311/internal/dialog"
	"Agent311/internal/preview"
	"Agent311/internal/render"
	"Agent311/internal/session"
)

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		if m.state.IsStreaming {
			m.shared.ctrl.Stop()
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit
	}

	switch m.screen {
	case screenBoot:
		return m, nil
	case screenLogin:
		return m.handleLoginKey(msg)
	}

	if msg.Paste && m.focus == focusInput && m.mode == modeChat {
		if paths := droppedPaths(string(msg.Runes)); len(paths) > 0 {
			return m, m.dropCmd(paths)
		}
	}

	switch msg.String() {
	case "esc", "ctrl+s":
		if m.state.IsStreaming {
			m.shared.ctrl.Stop()
			return m, nil
		}
		if msg.String() == "esc" {
			switch {
			case m.mode == modeRename:
				m.mode = modeChat
				m.input.Reset()
			case m.focus == focusContent && m.state.Artifact != nil:
				m.shared.ctrl.ClosePreview()
			default:
				m.focus = focusInput
				m.input.Focus()
			}
		}
		return m, nil

	case "tab":
		m.cycleFocus()
		return m, nil

	case "ctrl+b":
		m.shared.ctrl.ToggleSidebar()
		return m, nil

	case "ctrl+o":
		if m.state.SidebarMode == dialog.SidebarChats {
			m.shared.ctrl.SetSidebarMode(dialog.SidebarFiles)
			m.cursor = 0
			ctrl, ctx := m.shared.ctrl, m.ctx
			return m, actionCmd(func() (string, error) {
				return "", ctrl.RefreshReports(ctx)
			})
		}
		m.shared.ctrl.SetSidebarMode(dialog.SidebarChats)
		m.cursor = 0
		return m, nil

	case "ctrl+n":
		ctrl, ctx := m.shared.ctrl, m.ctx
		return m, actionCmd(func() (string, error) {
			return "Started new chat", ctrl.NewChat(ctx)
		})

	case "ctrl+left":
		m.shared.ctrl.ResizeSidebar(m.state.SidebarWidth - sidebarStep)
		return m, nil
	case "ctrl+right":
		m.shared.ctrl.ResizeSidebar(m.state.SidebarWidth + sidebarStep)
		return m, nil

	// The pane sits on the right, so moving its edge left widens it.
	case "alt+left":
		m.shared.ctrl.ResizePane(m.state.PanePct + paneStep)
		return m, nil
	case "alt+right":
		m.shared.ctrl.ResizePane(m.state.PanePct - paneStep)
		return m, nil
	}

	switch m.focus {
	case focusSidebar:
		return m.handleSidebarKey(msg)
	case focusContent:
		return m.handleContentKey(msg)
	}
	return m.handleInputKey(msg)
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if m.loggingIn {
			return m, nil
		}
		m.loggingIn = true
		m.loginErr = ""
		return m, m.loginCmd()
	case "q", "esc":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) cycleFocus() {
	m.focus = (m.focus + 1) % 3
	if m.focus == focusSidebar && !m.state.SidebarOpen {
		m.focus = focusContent
	}
	if m.focus == focusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func (m Model) handleInputKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "enter" {
		if m.mode == modeRename {
			return m.commitRename()
		}
		if m.state.IsStreaming {
			return m, nil
		}
		text := m.input.Value()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		m.input.Reset()
		m.shared.ctrl.SetInput("")
		m.setStatus("", nil)
		return m, m.submitCmd(text)
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before && m.mode == modeChat {
		m.shared.ctrl.SetInput(after)
	}
	return m, cmd
}

func (m Model) commitRename() (Model, tea.Cmd) {
	id, title := m.renameID, m.input.Value()
	m.mode = modeChat
	m.input.Reset()
	ctrl, ctx := m.shared.ctrl, m.ctx
	return m, actionCmd(func() (string, error) {
		if err := ctrl.Rename(ctx, id, title); err != nil {
			return "", err
		}
		return "Renamed", nil
	})
}

// sidebarSessions lists chats in sidebar order: favorites, then recent.
func sidebarSessions(state dialog.State) []session.Session {
	return append(state.Favorites(), state.Recent()...)
}

func (m Model) sidebarLen() int {
	if m.state.SidebarMode == dialog.SidebarFiles {
		return len(m.state.Reports)
	}
	return len(m.state.Sessions)
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	n := m.sidebarLen()
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < n-1 {
			m.cursor++
		}
		return m, nil
	}
	if n == 0 {
		return m, nil
	}
	if m.cursor >= n {
		m.cursor = n - 1
	}

	ctrl, ctx := m.shared.ctrl, m.ctx
	if m.state.SidebarMode == dialog.SidebarFiles {
		file := m.state.Reports[m.cursor]
		switch msg.String() {
		case "enter":
			return m, actionCmd(func() (string, error) {
				dest, err := ctrl.OpenReport(ctx, file)
				if err != nil || dest == "" {
					return "", err
				}
				return "Downloaded " + dest, nil
			})
		case "d":
			return m, actionCmd(func() (string, error) {
				dest, err := ctrl.Download(ctx, dialog.ReportRef{Name: file.Name, Path: file.Path})
				if err != nil {
					return "", err
				}
				return "Downloaded " + dest, nil
			})
		case "x", "delete":
			return m, actionCmd(func() (string, error) {
				return "Deleted " + file.Name, ctrl.DeleteReport(ctx, file)
			})
		}
		return m, nil
	}

	sess := sidebarSessions(m.state)[m.cursor]
	switch msg.String() {
	case "enter":
		m.focus = focusInput
		m.input.Focus()
		return m, actionCmd(func() (string, error) {
			return "", ctrl.Select(ctx, sess.ID)
		})
	case "r":
		m.mode = modeRename
		m.renameID = sess.ID
		m.focus = focusInput
		m.input.SetValue(sess.Title)
		m.input.CursorEnd()
		m.input.Focus()
	case "f":
		return m, actionCmd(func() (string, error) {
			return "", ctrl.ToggleFavorite(ctx, sess.ID)
		})
	case "x", "delete":
		return m, actionCmd(func() (string, error) {
			return "Deleted " + sess.Title, ctrl.Delete(ctx, sess.ID)
		})
	}
	return m, nil
}

func (m Model) handleContentKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "t":
		m.showTools = !m.showTools
		return m, nil
	case "o":
		return m, m.openPreviewCmd()
	case "y":
		return m, m.copyCmd()
	case "d":
		return m, m.downloadCmd()
	case "c":
		m.shared.ctrl.ClosePreview()
		return m, nil
	}

	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		artifacts := m.lastArtifacts()
		if i := int(key[0] - '1'); i < len(artifacts) {
			m.shared.ctrl.OpenPreview(artifacts[i].Code)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// lastArtifacts returns the artifacts of the most recent finalized assistant message.
func (m Model) lastArtifacts() []*render.Artifact {
	streaming := m.state.StreamingMessageID()
	for i := len(m.state.Messages) - 1; i >= 0; i-- {
		msg := m.state.Messages[i]
		if msg.Role == session.RoleAssistant && msg.ID != streaming {
			return m.shared.plans.Plan(msg.Content).Artifacts()
		}
	}
	return nil
}

func (m Model) openPreviewCmd() tea.Cmd {
	artifact := m.state.Artifact
	if artifact == nil {
		return nil
	}
	code, dir, open := artifact.Code, m.shared.opts.PreviewDir, m.shared.opts.Open
	return actionCmd(func() (string, error) {
		path, err := preview.Materialize(dir, code)
		if err != nil {
			return "", err
		}
		if err := open(path); err != nil {
			return "", fmt.Errorf("failed to open preview: %w", err)
		}
		return "Opened " + path, nil
	})
}

func (m Model) copyCmd() tea.Cmd {
	artifact := m.state.Artifact
	if artifact == nil || render.Classify(artifact.Code) == render.ModeImage {
		return nil
	}
	code := artifact.Code
	return actionCmd(func() (string, error) {
		if err := preview.Copy(code); err != nil {
			return "", err
		}
		return "Copied source", nil
	})
}

func (m Model) downloadCmd() tea.Cmd {
	artifact := m.state.Artifact
	if artifact == nil || artifact.Report == nil {
		return nil
	}
	ref, ctrl, ctx := *artifact.Report, m.shared.ctrl, m.ctx
	return actionCmd(func() (string, error) {
		dest, err := ctrl.Download(ctx, ref)
		if err != nil {
			return "", err
		}
		return "Downloaded " + dest, nil
	})
}

// dropCmd uploads pasted files. The drop zone is entered here and reset by
// Drop once the upload returns, so the overlay covers the whole upload.
func (m Model) dropCmd(paths []string) tea.Cmd {
	ctrl, ctx := m.shared.ctrl, m.ctx
	ctrl.DropZone().Enter()
	return actionCmd(func() (string, error) {
		uploaded, skipped, err := ctrl.Drop(ctx, paths)
		var parts []string
		for _, f := range uploaded {
			parts = append(parts, "Uploaded "+f.Name)
		}
		for _, s := range skipped {
			parts = append(parts, "Skipped "+s)
		}
		if err != nil && len(parts) > 0 {
			return "", fmt.Errorf("%s: %w", strings.Join(parts, ", "), err)
		}
		if err != nil {
			return "", err
		}
		return strings.Join(parts, ", "), nil
	})
}

// droppedPaths returns the pasted text as file paths when every entry names
// an existing regular file, and nil otherwise.
func droppedPaths(text string) []string {
	var fields []string
	if strings.Contains(text, "\n") {
		fields = strings.Split(strings.TrimSpace(text), "\n")
	} else {
		fields = strings.Fields(text)
	}

	var paths []string
	for _, f := range fields {
		p := render.NormalizePath(strings.TrimSpace(f))
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		paths = append(paths, p)
	}
	return paths
}

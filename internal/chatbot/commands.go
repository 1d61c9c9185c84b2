package chatbot

import (
	"context"
	"fmt"
	"strings"

	"Agent311/internal/dialog"
	"Agent311/internal/preview"
	"Agent311/internal/session"
)

// handleCommand executes a slash command and reports whether to quit
func (cb *ChatBot) handleCommand(ctx context.Context, cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return false, nil
	}
	args := parts[1:]

	switch parts[0] {
	case "/quit", "/exit":
		return true, nil

	case "/new":
		if err := cb.ctrl.NewChat(ctx); err != nil {
			return false, fmt.Errorf("failed to create session: %w", err)
		}
		cb.prunePlans()
		cb.printf("Started new chat\n\n")
		return false, nil

	case "/sessions":
		cb.listSessions()
		return false, nil

	case "/switch":
		s, err := cb.pickSession(args)
		if err != nil {
			return false, fmt.Errorf("usage: /switch <n> (%w)", err)
		}
		if err := cb.ctrl.Select(ctx, s.ID); err != nil {
			return false, err
		}
		cb.prunePlans()
		state := cb.ctrl.Snapshot()
		cb.printf("%s\n\n", headerStyle.Render(state.CurrentTitle))
		cb.printTranscript(state)
		return false, nil

	case "/rename":
		if len(args) == 0 {
			return false, fmt.Errorf("usage: /rename <title>")
		}
		state := cb.ctrl.Snapshot()
		if err := cb.ctrl.Rename(ctx, state.CurrentSessionID, strings.Join(args, " ")); err != nil {
			return false, err
		}
		cb.printf("Renamed to %s\n", cb.ctrl.Snapshot().CurrentTitle)
		return false, nil

	case "/fav":
		id := cb.ctrl.Snapshot().CurrentSessionID
		if len(args) > 0 {
			s, err := cb.pickSession(args)
			if err != nil {
				return false, fmt.Errorf("usage: /fav [n] (%w)", err)
			}
			id = s.ID
		}
		return false, cb.ctrl.ToggleFavorite(ctx, id)

	case "/delete":
		id := cb.ctrl.Snapshot().CurrentSessionID
		if len(args) > 0 {
			s, err := cb.pickSession(args)
			if err != nil {
				return false, fmt.Errorf("usage: /delete [n] (%w)", err)
			}
			id = s.ID
		}
		if err := cb.ctrl.Delete(ctx, id); err != nil {
			return false, err
		}
		cb.printf("Deleted. Current chat: %s\n", cb.ctrl.Snapshot().CurrentTitle)
		return false, nil

	case "/tools":
		cb.mu.Lock()
		cb.showTools = !cb.showTools
		cb.mu.Unlock()
		state := cb.ctrl.Snapshot()
		if n := len(state.Messages); n > 0 && state.Messages[n-1].Role == session.RoleAssistant {
			cb.printf("%s", cb.renderMessage(state.Messages[n-1]))
		}
		return false, nil

	case "/preview":
		artifacts := cb.lastArtifacts()
		if len(artifacts) == 0 {
			return false, fmt.Errorf("no artifacts in the last reply")
		}
		i, err := pickIndex(args, len(artifacts))
		if err != nil {
			return false, fmt.Errorf("usage: /preview <n> (%w)", err)
		}
		cb.ctrl.OpenPreview(artifacts[i].Code)
		return false, cb.openArtifact()

	case "/copy":
		artifacts := cb.lastArtifacts()
		if len(artifacts) == 0 {
			return false, fmt.Errorf("no artifacts in the last reply")
		}
		i, err := pickIndex(args, len(artifacts))
		if err != nil {
			return false, fmt.Errorf("usage: /copy <n> (%w)", err)
		}
		if err := preview.Copy(artifacts[i].Code); err != nil {
			return false, err
		}
		cb.printf("Copied %s\n", artifacts[i].Title)
		return false, nil

	case "/reports":
		if err := cb.ctrl.RefreshReports(ctx); err != nil {
			return false, err
		}
		cb.ctrl.SetSidebarMode(dialog.SidebarFiles)
		cb.listReports()
		return false, nil

	case "/open":
		file, err := cb.pickReport(args)
		if err != nil {
			return false, fmt.Errorf("usage: /open <n> (%w)", err)
		}
		dest, err := cb.ctrl.OpenReport(ctx, file)
		if err != nil {
			return false, err
		}
		if dest != "" {
			cb.printf("Downloaded %s\n", dest)
			return false, nil
		}
		return false, cb.openArtifact()

	case "/download":
		artifact := cb.ctrl.Snapshot().Artifact
		if artifact == nil || artifact.Report == nil {
			return false, fmt.Errorf("no report is open")
		}
		dest, err := cb.ctrl.Download(ctx, *artifact.Report)
		if err != nil {
			return false, err
		}
		cb.printf("Downloaded %s\n", dest)
		return false, nil

	case "/upload":
		if len(args) == 0 {
			return false, fmt.Errorf("usage: /upload <file.pdf|file.html>...")
		}
		uploaded, skipped, err := cb.ctrl.Drop(ctx, args)
		for _, s := range skipped {
			cb.printf("Skipped %s (only .pdf and .html)\n", s)
		}
		for _, f := range uploaded {
			cb.printf("Uploaded %s\n", f.Name)
		}
		return false, err

	case "/delete-report":
		file, err := cb.pickReport(args)
		if err != nil {
			return false, fmt.Errorf("usage: /delete-report <n> (%w)", err)
		}
		if err := cb.ctrl.DeleteReport(ctx, file); err != nil {
			return false, err
		}
		cb.printf("Deleted %s\n", file.Name)
		return false, nil

	case "/close":
		cb.ctrl.ClosePreview()
		return false, nil

	case "/logout":
		return false, cb.auth.Logout()

	case "/help":
		cb.printf("Available commands:\n")
		cb.printf("  /quit, /exit          - Exit\n")
		cb.printf("  /new                  - Start a new chat\n")
		cb.printf("  /sessions             - List chats (favorites first)\n")
		cb.printf("  /switch <n>           - Open chat n\n")
		cb.printf("  /rename <title>       - Rename the current chat\n")
		cb.printf("  /fav [n]              - Toggle favorite\n")
		cb.printf("  /delete [n]           - Delete a chat\n")
		cb.printf("  /tools                - Expand or collapse tool calls\n")
		cb.printf("  /preview <n>          - Open artifact n of the last reply\n")
		cb.printf("  /copy <n>             - Copy artifact n to the clipboard\n")
		cb.printf("  /reports              - List reports\n")
		cb.printf("  /open <n>             - Open report n\n")
		cb.printf("  /download             - Download the open report\n")
		cb.printf("  /upload <files>       - Upload .pdf or .html files\n")
		cb.printf("  /delete-report <n>    - Delete report n\n")
		cb.printf("  /close                - Close the preview\n")
		cb.printf("  /logout               - Log out\n")
		cb.printf("  /help                 - Show this help message\n")
		return false, nil

	default:
		return false, fmt.Errorf("unknown command: %s", parts[0])
	}
}

func (cb *ChatBot) listSessions() {
	state := cb.ctrl.Snapshot()
	cb.mu.Lock()
	cb.lastListed = state.Sessions
	cb.mu.Unlock()

	n := 0
	section := func(name string, sessions []session.Session) {
		if len(sessions) == 0 {
			return
		}
		cb.printf("\n%s\n", headerStyle.Render(name))
		for _, s := range sessions {
			n++
			marker := " "
			if s.ID == state.CurrentSessionID {
				marker = "*"
			}
			cb.printf("%s %d. %s\n", marker, n, s.Title)
		}
	}
	section("Favorites", state.Favorites())
	section("Recent", state.Recent())
	cb.printf("\n")
}

func (cb *ChatBot) listReports() {
	state := cb.ctrl.Snapshot()
	cb.printf("\n%s\n", headerStyle.Render("Reports"))
	if len(state.Reports) == 0 {
		cb.printf("  (empty)\n\n")
		return
	}
	for i, f := range state.Reports {
		cb.printf("  %d. %s  %s  %d bytes\n", i+1, f.Name, f.Type, f.SizeBytes)
	}
	cb.printf("\n")
}

// pickSession resolves an index from the last /sessions listing, which
// numbers favorites then recent in sidebar order.
func (cb *ChatBot) pickSession(args []string) (session.Session, error) {
	cb.mu.Lock()
	listed := cb.lastListed
	cb.mu.Unlock()
	if listed == nil {
		listed = cb.ctrl.Snapshot().Sessions
	}
	if len(listed) == 0 {
		return session.Session{}, fmt.Errorf("no chats")
	}
	i, err := pickIndex(args, len(listed))
	if err != nil {
		return session.Session{}, err
	}
	return listed[i], nil
}

func (cb *ChatBot) pickReport(args []string) (session.ReportFile, error) {
	reports := cb.ctrl.Snapshot().Reports
	if len(reports) == 0 {
		return session.ReportFile{}, fmt.Errorf("no reports")
	}
	i, err := pickIndex(args, len(reports))
	if err != nil {
		return session.ReportFile{}, err
	}
	return reports[i], nil
}

// openArtifact materialises the pane content and hands it to the opener.
func (cb *ChatBot) openArtifact() error {
	artifact := cb.ctrl.Snapshot().Artifact
	if artifact == nil {
		return nil
	}
	path, err := preview.Materialize(cb.previewDir, artifact.Code)
	if err != nil {
		return err
	}
	if err := cb.open(path); err != nil {
		return err
	}
	cb.printf("Opened %s\n", path)
	return nil
}

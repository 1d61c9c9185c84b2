package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"Agent311/internal/session"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	favStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))
)

func sessionsCmd(current func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"ls"},
		Short:   "List and manage chat sessions",
		Long: `List chat sessions (favorites first, then most recently updated) and
rename, favorite or delete them.

Examples:
  agent311 sessions
  agent311 sessions rename <id> Pothole trends by district
  agent311 sessions fav <id>
  agent311 sessions delete <id>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			if _, err := a.ctrl.RefreshSessions(cmd.Context()); err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			state := a.ctrl.Snapshot()
			printSessions(cmd.OutOrStdout(), "Favorites", state.Favorites())
			printSessions(cmd.OutOrStdout(), "Recent", state.Recent())
			if len(state.Sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions")
			}
			return nil
		},
	}

	cmd.AddCommand(
		sessionsRenameCmd(current),
		sessionsFavCmd(current),
		sessionsDeleteCmd(current),
	)
	return cmd
}

func printSessions(out io.Writer, header string, sessions []session.Session) {
	if len(sessions) == 0 {
		return
	}
	fmt.Fprintln(out, headerStyle.Render(header))

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	for _, s := range sessions {
		mark := " "
		if s.IsFavorite {
			mark = favStyle.Render("★")
		}
		updated := ""
		if !s.UpdatedAt.IsZero() {
			updated = s.UpdatedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(w, "%s %s\t%s\t%s\n", mark, s.Title, idStyle.Render(s.ID), updated)
	}
	w.Flush()
	fmt.Fprintln(out)
}

func sessionsRenameCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Rename a session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args[1:], " ")
			if err := current().ctrl.Rename(cmd.Context(), args[0], title); err != nil {
				return fmt.Errorf("failed to rename session: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", args[0], strings.TrimSpace(title))
			return nil
		},
	}
}

func sessionsFavCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:     "fav <id>",
		Aliases: []string{"favorite"},
		Short:   "Toggle a session's favorite flag",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			// the toggle reads the current flag from the list
			if _, err := a.ctrl.RefreshSessions(cmd.Context()); err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			if err := a.ctrl.ToggleFavorite(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to update session: %w", err)
			}
			for _, s := range a.ctrl.Snapshot().Sessions {
				if s.ID == args[0] {
					fmt.Fprintf(cmd.OutOrStdout(), "%s favorite: %t\n", s.Title, s.IsFavorite)
				}
			}
			return nil
		},
	}
}

func sessionsDeleteCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a session",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := current().api.DeleteSession(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete session: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

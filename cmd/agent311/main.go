// Package main provides the agent311 CLI entrypoint.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"Agent311/internal/chatbot"
	"Agent311/internal/robots"
	"Agent311/internal/tui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	root, closeApp := newRootCmd()
	err := root.ExecuteContext(ctx)
	closeApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are the persistent flags shared by every command
type globalFlags struct {
	apiURL  string
	dataDir string
	debug   bool
}

// newRootCmd builds the command tree. The returned func releases whatever
// the executed command opened.
func newRootCmd() (*cobra.Command, func()) {
	var (
		flags globalFlags
		a     *app
	)

	root := &cobra.Command{
		Use:   "agent311",
		Short: "Terminal client for the Austin 311 data science agent",
		Long: `agent311 talks to the Agent Austin backend: streaming chat sessions,
tool-call summaries, HTML/JSX/image artifacts and a report library.

Usage modes:
  agent311             Full-screen chat (same as agent311 chat)
  agent311 console     Line-oriented chat with slash commands
  agent311 <command>   Manage login, sessions and reports`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = newApp(cmd.Context(), cmd, flags)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, a)
		},
	}

	root.PersistentFlags().StringVar(&flags.apiURL, "api-url", "", "Agent backend base URL (default http://localhost:8000)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "Directory for the token database, logs and downloads (default ~/.agent311)")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging")

	current := func() *app { return a }
	root.AddCommand(
		chatCmd(current),
		consoleCmd(current),
		loginCmd(current),
		logoutCmd(current),
		sessionsCmd(current),
		reportsCmd(current),
		robotsCmd(),
	)
	return root, func() {
		if a != nil {
			a.Close()
		}
	}
}

func previewDir(a *app) string {
	return filepath.Join(a.cfg.DataDir, "previews")
}

func runTUI(cmd *cobra.Command, a *app) error {
	return tui.Run(cmd.Context(), a.ctrl, a.auth, tui.Options{
		Email:      a.cfg.Email,
		Password:   a.cfg.Password,
		PreviewDir: previewDir(a),
		Logger:     a.logger,
	})
}

func chatCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Full-screen chat with sidebar and artifact pane",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, current())
		},
	}
}

func consoleCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Line-oriented chat with slash commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			bot := chatbot.New(a.ctrl, a.auth, chatbot.Options{
				Email:      a.cfg.Email,
				Password:   a.cfg.Password,
				PreviewDir: previewDir(a),
				In:         cmd.InOrStdin(),
				Out:        cmd.OutOrStdout(),
				Logger:     a.logger,
			})
			return bot.Run(cmd.Context())
		},
	}
}

func loginCmd(current func() *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			if email == "" {
				email = a.cfg.Email
			}
			if password == "" {
				password = a.cfg.Password
			}
			if err := a.auth.Login(cmd.Context(), email, password); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Login failed. Please try again.")
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Login email (default from config)")
	cmd.Flags().StringVar(&password, "password", "", "Login password (default from config)")
	return cmd
}

func logoutCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := current().auth.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func robotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "robots",
		Short: "Print the robots.txt crawler policy",
		Args:  cobra.NoArgs,
		// needs no backend, database or logs
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), robots.Text())
			return nil
		},
	}
}

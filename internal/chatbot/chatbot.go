package chatbot

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"Agent311/internal/auth"
	"Agent311/internal/cache"
	"Agent311/internal/dialog"
	"Agent311/internal/preview"
	"Agent311/internal/render"
	"Agent311/internal/session"
)

var (
	userStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	botStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	toolStyle   = lipgloss.NewStyle().Faint(true)
	cardStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	headerStyle = lipgloss.NewStyle().Bold(true)
)

// Options configures the console
type Options struct {
	Email      string
	Password   string
	PreviewDir string
	In         io.Reader
	Out        io.Writer
	Logger     *slog.Logger
	// Open launches previews. Defaults to preview.SystemOpener.
	Open preview.Opener
}

// ChatBot is the line-oriented console over the dialog controller
type ChatBot struct {
	ctrl       *dialog.Controller
	auth       *auth.Client
	plans      *cache.PlanCache
	logger     *slog.Logger
	in         *bufio.Scanner
	out        io.Writer
	email      string
	password   string
	previewDir string
	open       preview.Opener

	mu         sync.Mutex
	streamID   string
	shown      string
	needLogin  bool
	showTools  bool
	lastListed []session.Session
}

// New creates a console. It registers itself as the login navigator.
func New(ctrl *dialog.Controller, authClient *auth.Client, opts Options) *ChatBot {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Open == nil {
		opts.Open = preview.SystemOpener
	}

	scanner := bufio.NewScanner(opts.In)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	cb := &ChatBot{
		ctrl:       ctrl,
		auth:       authClient,
		plans:      cache.NewPlanCache(),
		logger:     opts.Logger,
		in:         scanner,
		out:        opts.Out,
		email:      opts.Email,
		password:   opts.Password,
		previewDir: opts.PreviewDir,
		open:       opts.Open,
	}

	authClient.SetNavigator(auth.NavigatorFunc(func() {
		cb.mu.Lock()
		cb.needLogin = true
		cb.mu.Unlock()
	}))
	ctrl.OnChange(cb.echoStream)
	return cb
}

func (cb *ChatBot) printf(format string, args ...interface{}) {
	fmt.Fprintf(cb.out, format, args...)
}

// echoStream prints the unseen suffix of the streaming message. Content that
// no longer extends what was shown (an error replacing a partial reply) is
// printed in full on a new line.
func (cb *ChatBot) echoStream() {
	state := cb.ctrl.Snapshot()
	id := state.StreamingMessageID()
	if id == "" {
		return
	}
	content := state.Messages[len(state.Messages)-1].Content

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if id != cb.streamID {
		cb.streamID = id
		cb.shown = ""
	}
	switch {
	case content == cb.shown:
	case strings.HasPrefix(content, cb.shown):
		fmt.Fprint(cb.out, content[len(cb.shown):])
	default:
		fmt.Fprint(cb.out, "\n"+content)
	}
	cb.shown = content
}

func (cb *ChatBot) loginPending() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.needLogin
}

// login runs the login gate until it succeeds. It returns false on end of input.
func (cb *ChatBot) login(ctx context.Context) bool {
	for {
		cb.printf("%s\nPress Enter to log in (or type /quit): ", headerStyle.Render("Agent Austin"))
		if !cb.in.Scan() {
			return false
		}
		if t := strings.TrimSpace(cb.in.Text()); t == "/quit" || t == "/exit" {
			return false
		}

		if err := cb.auth.Login(ctx, cb.email, cb.password); err != nil {
			cb.logger.Error("login failed", "error", err)
			cb.printf("%s\n", errorStyle.Render("Login failed. Please try again."))
			continue
		}
		cb.mu.Lock()
		cb.needLogin = false
		cb.mu.Unlock()
		return true
	}
}

func (cb *ChatBot) boot(ctx context.Context) bool {
	for {
		err := cb.ctrl.Boot(ctx)
		if err == nil {
			return true
		}
		if !errors.Is(err, auth.ErrNotLoggedIn) && !errors.Is(err, auth.ErrUnauthorized) {
			cb.printf("%s\n", errorStyle.Render("Error: "+err.Error()))
			return false
		}
		if !cb.login(ctx) {
			return false
		}
	}
}

// Run starts the read-eval-print loop
func (cb *ChatBot) Run(ctx context.Context) error {
	if !cb.boot(ctx) {
		return nil
	}

	cb.printBanner()

	for {
		if cb.loginPending() {
			if !cb.boot(ctx) {
				break
			}
			cb.printBanner()
		}

		cb.printf("%s ", userStyle.Render("You:"))
		if !cb.in.Scan() {
			break
		}

		input := strings.TrimSpace(cb.in.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			shouldQuit, err := cb.handleCommand(ctx, input)
			if err != nil {
				cb.printf("%s\n", errorStyle.Render("Error: "+err.Error()))
				cb.logger.Error("command error", "error", err)
			}
			if shouldQuit {
				break
			}
			continue
		}

		cb.send(ctx, input)
	}

	cb.printf("Goodbye!\n")
	return cb.in.Err()
}

// send submits input and streams the reply; an interrupt stops the stream.
func (cb *ChatBot) send(ctx context.Context, input string) {
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-interrupts:
			cb.ctrl.Stop()
		case <-finished:
		}
	}()

	cb.printf("%s ", botStyle.Render("Agent:"))
	err := cb.ctrl.Submit(ctx, input)
	cb.printf("\n")
	if err != nil {
		if !errors.Is(err, auth.ErrUnauthorized) {
			cb.printf("%s\n", errorStyle.Render("Error: "+err.Error()))
		}
		cb.logger.Error("failed to send message", "error", err)
		return
	}

	state := cb.ctrl.Snapshot()
	if n := len(state.Messages); n > 0 {
		cb.printf("%s", cb.renderExtras(state.Messages[n-1]))
	}
	cb.printf("\n")
}

// prunePlans drops render plans left idle by the previous session.
func (cb *ChatBot) prunePlans() {
	removed := cb.plans.Prune(cache.MaxIdle)
	cb.logger.Debug("pruned render plans", "removed", removed, "hits", cb.plans.Hits())
}

func (cb *ChatBot) printBanner() {
	state := cb.ctrl.Snapshot()
	cb.printf("%s\n", headerStyle.Render("=== Agent Austin 311 ==="))
	cb.printf("Session: %s\n", state.CurrentTitle)
	cb.printf("Type /help for commands, /quit to exit\n\n")
	cb.printTranscript(state)
}

func (cb *ChatBot) printTranscript(state dialog.State) {
	if len(state.Messages) == 0 {
		cb.printf("%s\n\n", toolStyle.Render(dialog.EmptyStateText))
		return
	}
	for _, msg := range state.Messages {
		cb.printf("%s\n", cb.renderMessage(msg))
	}
}

// renderMessage formats a finalized message: user text verbatim, assistant
// text as tool summary, prose and numbered artifact cards.
func (cb *ChatBot) renderMessage(msg session.Message) string {
	if msg.Role == session.RoleUser {
		return userStyle.Render("You:") + " " + msg.Content + "\n"
	}

	var b strings.Builder
	plan := cb.plans.Plan(msg.Content)
	b.WriteString(botStyle.Render("Agent:"))
	if prose := plan.Prose(); prose != "" {
		b.WriteString(" " + prose)
	}
	b.WriteString("\n")
	if g := plan.ToolGroup(); g != nil {
		b.WriteString(cb.renderTools(g))
	}
	for i, a := range plan.Artifacts() {
		b.WriteString(cardStyle.Render(fmt.Sprintf("  [%d] %s · %s", i+1, a.Language, a.Title)) + "\n")
	}
	return b.String()
}

// renderExtras is the part of renderMessage not already shown while streaming.
func (cb *ChatBot) renderExtras(msg session.Message) string {
	var b strings.Builder
	plan := cb.plans.Plan(msg.Content)
	if g := plan.ToolGroup(); g != nil {
		b.WriteString(cb.renderTools(g))
	}
	for i, a := range plan.Artifacts() {
		b.WriteString(cardStyle.Render(fmt.Sprintf("  [%d] %s · %s", i+1, a.Language, a.Title)) + "\n")
	}
	if b.Len() > 0 {
		b.WriteString(toolStyle.Render("  /preview <n> opens an artifact, /copy <n> copies it") + "\n")
	}
	return b.String()
}

func (cb *ChatBot) renderTools(g *render.ToolGroup) string {
	cb.mu.Lock()
	expanded := cb.showTools
	cb.mu.Unlock()

	if !expanded {
		noun := "tool calls"
		if len(g.Tools) == 1 {
			noun = "tool call"
		}
		return toolStyle.Render(fmt.Sprintf("  ▸ %d %s (/tools to expand)", len(g.Tools), noun)) + "\n"
	}
	var b strings.Builder
	for _, tc := range g.Tools {
		b.WriteString(toolStyle.Render("  • "+tc.Title) + "\n")
	}
	return b.String()
}

// lastArtifacts returns the artifacts of the most recent assistant message.
func (cb *ChatBot) lastArtifacts() []*render.Artifact {
	state := cb.ctrl.Snapshot()
	for i := len(state.Messages) - 1; i >= 0; i-- {
		if state.Messages[i].Role == session.RoleAssistant {
			return cb.plans.Plan(state.Messages[i].Content).Artifacts()
		}
	}
	return nil
}

func pickIndex(args []string, n int) (int, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("missing index")
	}
	i, err := strconv.Atoi(args[0])
	if err != nil || i < 1 || i > n {
		return 0, fmt.Errorf("index must be between 1 and %d", n)
	}
	return i - 1, nil
}

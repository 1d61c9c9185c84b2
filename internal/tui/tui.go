// Package tui provides the full-screen Bubble Tea front end: login gate,
// sidebar, message list, input box and artifact pane.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"Agent311/internal/auth"
	"Agent311/internal/cache"
	"Agent311/internal/dialog"
	"Agent311/internal/preview"
)

// pxPerCol converts the sidebar's pixel width to terminal columns.
const pxPerCol = 8

const (
	sidebarStep = 5 * pxPerCol
	paneStep    = 5
)

type screen int

const (
	screenBoot screen = iota
	screenLogin
	screenMain
)

type focus int

const (
	focusInput focus = iota
	focusSidebar
	focusContent
)

type inputMode int

const (
	modeChat inputMode = iota
	modeRename
)

// Options configures the TUI
type Options struct {
	Email      string
	Password   string
	PreviewDir string
	Logger     *slog.Logger
	// Open launches previews. Defaults to preview.SystemOpener.
	Open preview.Opener
	// PlanMaxIdle bounds how long unused render plans are kept once the
	// shown session changes. Defaults to cache.MaxIdle.
	PlanMaxIdle time.Duration
}

// sharedState survives model copies
type sharedState struct {
	program   *tea.Program
	ctrl      *dialog.Controller
	auth      *auth.Client
	plans     *cache.PlanCache
	logger    *slog.Logger
	opts      Options
	needLogin atomic.Bool
}

// send delivers msg to the running program. It never blocks the caller,
// which may itself be inside Update.
func (s *sharedState) send(msg tea.Msg) {
	if p := s.program; p != nil {
		go p.Send(msg)
	}
}

// Model is the Bubble Tea model over a dialog controller
type Model struct {
	shared *sharedState
	ctx    context.Context

	screen    screen
	focus     focus
	mode      inputMode
	state     dialog.State
	cursor    int
	showTools bool
	loggingIn bool
	loginErr  string
	status    string
	statusErr bool
	renameID  string
	quitting  bool

	// scroll tracking for auto-scroll
	lastMsgCount int
	lastMsgLen   int

	ready    bool
	width    int
	height   int
	viewport viewport.Model
	pane     viewport.Model
	input    textinput.Model
	spinner  spinner.Model
}

// Messages
type (
	stateMsg         struct{}
	loginRequiredMsg struct{}
	bootDoneMsg      struct{ err error }
	loginDoneMsg     struct{ err error }
	submitDoneMsg    struct{ err error }
	actionMsg        struct {
		status string
		err    error
	}
)

// New creates the model. It registers itself as the login navigator and as
// a state listener on ctrl.
func New(ctx context.Context, ctrl *dialog.Controller, authClient *auth.Client, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Open == nil {
		opts.Open = preview.SystemOpener
	}
	if opts.PlanMaxIdle <= 0 {
		opts.PlanMaxIdle = cache.MaxIdle
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textinput.New()
	ti.Placeholder = "Ask about service requests, trends, or data..."
	ti.CharLimit = 4000
	ti.Width = 60
	ti.Focus()

	shared := &sharedState{
		ctrl:   ctrl,
		auth:   authClient,
		plans:  cache.NewPlanCache(),
		logger: opts.Logger,
		opts:   opts,
	}
	authClient.SetNavigator(auth.NavigatorFunc(func() {
		shared.needLogin.Store(true)
		shared.send(loginRequiredMsg{})
	}))
	ctrl.OnChange(func() { shared.send(stateMsg{}) })

	return Model{
		shared:  shared,
		ctx:     ctx,
		screen:  screenBoot,
		state:   ctrl.Snapshot(),
		input:   ti,
		spinner: s,
	}
}

// Init boots the controller
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.bootCmd())
}

func (m Model) bootCmd() tea.Cmd {
	ctrl, ctx := m.shared.ctrl, m.ctx
	return func() tea.Msg {
		return bootDoneMsg{err: ctrl.Boot(ctx)}
	}
}

func (m Model) loginCmd() tea.Cmd {
	a, ctx, opts := m.shared.auth, m.ctx, m.shared.opts
	return func() tea.Msg {
		return loginDoneMsg{err: a.Login(ctx, opts.Email, opts.Password)}
	}
}

func (m Model) submitCmd(text string) tea.Cmd {
	ctrl, ctx := m.shared.ctrl, m.ctx
	return func() tea.Msg {
		return submitDoneMsg{err: ctrl.Submit(ctx, text)}
	}
}

// actionCmd runs fn off the event loop and reports its outcome in the status bar.
func actionCmd(fn func() (string, error)) tea.Cmd {
	return func() tea.Msg {
		status, err := fn()
		return actionMsg{status: status, err: err}
	}
}

func isAuthError(err error) bool {
	return errors.Is(err, auth.ErrNotLoggedIn) || errors.Is(err, auth.ErrUnauthorized)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	shownSession := m.state.CurrentSessionID
	m.state = m.shared.ctrl.Snapshot()

	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(0, 0)
			m.pane = viewport.New(0, 0)
			m.ready = true
		}

	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKey(msg)
		cmds = append(cmds, cmd)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case bootDoneMsg:
		switch {
		case msg.err == nil:
			m.screen = screenMain
			m.shared.needLogin.Store(false)
		case isAuthError(msg.err):
			m.screen = screenLogin
		default:
			m.screen = screenMain
			m.setStatus("", msg.err)
		}

	case loginDoneMsg:
		m.loggingIn = false
		if msg.err != nil {
			m.shared.logger.Error("login failed", "error", msg.err)
			m.loginErr = "Login failed. Please try again."
			break
		}
		m.loginErr = ""
		cmds = append(cmds, m.bootCmd())

	case submitDoneMsg:
		if msg.err != nil && !isAuthError(msg.err) {
			m.shared.logger.Error("failed to send message", "error", msg.err)
			m.setStatus("", msg.err)
		}

	case actionMsg:
		if msg.err != nil {
			m.shared.logger.Error("action failed", "error", msg.err)
		}
		m.setStatus(msg.status, msg.err)
	}

	if m.shared.needLogin.Load() && m.screen != screenLogin {
		m.screen = screenLogin
		m.mode = modeChat
		m.input.Reset()
	}

	m.state = m.shared.ctrl.Snapshot()
	if shownSession != "" && m.state.CurrentSessionID != shownSession {
		m.prunePlans()
	}
	m.sync()
	return m, tea.Batch(cmds...)
}

func (m Model) prunePlans() {
	removed := m.shared.plans.Prune(m.shared.opts.PlanMaxIdle)
	m.shared.logger.Debug("pruned render plans", "removed", removed, "hits", m.shared.plans.Hits())
}

func (m *Model) setStatus(status string, err error) {
	if err != nil {
		m.status = "Error: " + err.Error()
		m.statusErr = true
		return
	}
	m.status = status
	m.statusErr = false
}

// Run starts the TUI on the terminal and blocks until it exits.
func Run(ctx context.Context, ctrl *dialog.Controller, authClient *auth.Client, opts Options) error {
	model := New(ctx, ctrl, authClient, opts)
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	model.shared.program = p

	_, err := p.Run()
	ctrl.Stop()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Package dialog owns the chat client's state: sessions, the active
// transcript, the streaming engine, the report library and the artifact pane.
package dialog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"Agent311/internal/auth"
	"Agent311/internal/backend"
	"Agent311/internal/session"
	"Agent311/internal/telemetry"
)

var (
	ErrBusy              = errors.New("a response is still streaming")
	ErrEmptyInput        = errors.New("message is empty")
	ErrNoSession         = errors.New("no active session")
	ErrUnsupportedUpload = errors.New("only .pdf and .html files can be uploaded")
)

// Backend is the subset of the API client the controller drives. *api.Client implements it.
type Backend interface {
	ListSessions(ctx context.Context) ([]session.Session, error)
	GetSession(ctx context.Context, id string) (session.Session, error)
	CreateSession(ctx context.Context, id, title string) (session.Session, error)
	UpdateSession(ctx context.Context, id string, patch backend.SessionPatch) error
	DeleteSession(ctx context.Context, id string) error
	UpdateMessage(ctx context.Context, id, content string) error
	Chat(ctx context.Context, req backend.ChatRequest) (io.ReadCloser, error)
	ListReports(ctx context.Context) ([]session.ReportFile, error)
	FetchFile(ctx context.Context, path string) (session.FetchedFile, error)
	DownloadReport(ctx context.Context, path string, w io.Writer) (int64, error)
	UploadReport(ctx context.Context, name string, r io.Reader) (session.ReportFile, error)
	DeleteReport(ctx context.Context, name string) error
}

// TokenChecker reports whether a credential is present. *auth.TokenStore implements it.
type TokenChecker interface {
	LoggedIn() bool
}

// Options configures a Controller
type Options struct {
	DownloadDir string
	Telemetry   telemetry.Telemetry
	Logger      *slog.Logger
	// NewID mints message and session IDs. Defaults to uuid.NewString.
	NewID func() string
}

// Controller binds the API and streaming engine to the observable State.
// All methods are safe for concurrent use; listeners run outside the lock.
type Controller struct {
	api         Backend
	tokens      TokenChecker
	downloadDir string
	logger      *slog.Logger
	tracer      trace.Tracer
	deltas      metric.Int64Counter
	duration    metric.Float64Histogram
	newID       func() string
	drop        DropZone

	mu        sync.Mutex
	state     State
	inflight  InFlight
	cancel    context.CancelFunc
	listeners []func()
}

// New creates a controller. Call Boot before use.
func New(b Backend, tokens TokenChecker, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tel := opts.Telemetry
	if tel.Tracer == nil || tel.Meter == nil {
		tel = telemetry.Noop()
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	deltas, err := tel.Meter.Int64Counter(
		"chat.stream.deltas",
		metric.WithDescription("Text deltas received from the chat stream"),
	)
	if err != nil {
		logger.Warn("failed to create delta counter", "error", err)
	}
	duration, err := tel.Meter.Float64Histogram(
		"chat.stream.duration",
		metric.WithDescription("Chat stream duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		logger.Warn("failed to create stream duration histogram", "error", err)
	}

	c := &Controller{
		api:         b,
		tokens:      tokens,
		downloadDir: opts.DownloadDir,
		logger:      logger,
		tracer:      tel.Tracer,
		deltas:      deltas,
		duration:    duration,
		newID:       newID,
		state:       newState(),
	}
	c.drop.notify = func() { c.update(func(*State) {}) }
	return c
}

// OnChange registers fn to be called after every state change.
func (c *Controller) OnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// update mutates state under the lock and then notifies listeners.
func (c *Controller) update(fn func(s *State)) {
	c.mu.Lock()
	fn(&c.state)
	listeners := append([]func(){}, c.listeners...)
	c.mu.Unlock()

	for _, l := range listeners {
		l()
	}
}

// Boot loads the session list, selects the most recently updated session (or
// creates one when there are none) and loads the report library.
func (c *Controller) Boot(ctx context.Context) error {
	if c.tokens != nil && !c.tokens.LoggedIn() {
		return auth.ErrNotLoggedIn
	}

	sessions, err := c.api.ListSessions(ctx)
	if err != nil {
		return err
	}

	if idx := session.MostRecent(sessions); idx >= 0 {
		c.setSessions(sessions)
		if err := c.Select(ctx, sessions[idx].ID); err != nil {
			return err
		}
	} else if err := c.NewChat(ctx); err != nil {
		return err
	}

	if err := c.RefreshReports(ctx); err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			return err
		}
		c.logger.Warn("failed to load reports", "error", err)
	}
	c.logger.Info("dialog booted", "sessions", len(sessions))
	return nil
}

func (c *Controller) setSessions(sessions []session.Session) {
	sorted := append([]session.Session(nil), sessions...)
	session.SortSessions(sorted)
	c.update(func(s *State) {
		s.Sessions = sorted
	})
}

// RefreshSessions reloads the session list. The last completed refresh wins.
func (c *Controller) RefreshSessions(ctx context.Context) ([]session.Session, error) {
	sessions, err := c.api.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	c.setSessions(sessions)
	return c.Snapshot().Sessions, nil
}

// NewChat creates a session on the server and makes it current.
func (c *Controller) NewChat(ctx context.Context) error {
	created, err := c.api.CreateSession(ctx, c.newID(), session.DefaultTitle)
	if err != nil {
		return err
	}

	c.update(func(s *State) {
		s.CurrentSessionID = created.ID
		s.CurrentTitle = created.Title
		s.Messages = nil
		s.Input = ""
		s.Artifact = nil
		s.SidebarMode = SidebarChats
	})
	c.logger.Info("session created", "session_id", created.ID)

	if _, err := c.RefreshSessions(ctx); err != nil {
		c.logger.Warn("failed to refresh sessions", "error", err)
	}
	return nil
}

// Select loads a session's messages and makes it current.
func (c *Controller) Select(ctx context.Context, id string) error {
	loaded, err := c.api.GetSession(ctx, id)
	if err != nil {
		return err
	}

	c.update(func(s *State) {
		s.CurrentSessionID = loaded.ID
		s.CurrentTitle = loaded.Title
		s.Messages = loaded.Messages
		s.Input = ""
		s.Artifact = nil
	})
	c.logger.Debug("session selected", "session_id", loaded.ID, "messages", len(loaded.Messages))
	return nil
}

// Delete removes a session. When it was current, the new list head is
// selected, or a fresh session created when none remain.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if err := c.api.DeleteSession(ctx, id); err != nil {
		return err
	}
	c.logger.Info("session deleted", "session_id", id)

	sessions, err := c.RefreshSessions(ctx)
	if err != nil {
		return err
	}

	if c.Snapshot().CurrentSessionID != id {
		return nil
	}
	if len(sessions) > 0 {
		return c.Select(ctx, sessions[0].ID)
	}
	return c.NewChat(ctx)
}

// Rename sets a session title. The current title changes before the request.
func (c *Controller) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyInput
	}

	c.update(func(s *State) {
		if s.CurrentSessionID == id {
			s.CurrentTitle = title
		}
	})

	if err := c.api.UpdateSession(ctx, id, backend.SessionPatch{Title: &title}); err != nil {
		return err
	}
	_, err := c.RefreshSessions(ctx)
	return err
}

// ToggleFavorite flips the favorite flag of a session.
func (c *Controller) ToggleFavorite(ctx context.Context, id string) error {
	favorite := true
	for _, s := range c.Snapshot().Sessions {
		if s.ID == id {
			favorite = !s.IsFavorite
			break
		}
	}

	if err := c.api.UpdateSession(ctx, id, backend.SessionPatch{IsFavorite: &favorite}); err != nil {
		return err
	}
	_, err := c.RefreshSessions(ctx)
	return err
}

// SetInput replaces the input buffer.
func (c *Controller) SetInput(text string) {
	c.update(func(s *State) {
		s.Input = text
	})
}

func (c *Controller) ToggleSidebar() {
	c.update(func(s *State) {
		s.SidebarOpen = !s.SidebarOpen
	})
}

func (c *Controller) SetSidebarMode(mode SidebarMode) {
	c.update(func(s *State) {
		s.SidebarMode = mode
	})
}

// ResizeSidebar sets the sidebar width in px, clamped to 200..480.
func (c *Controller) ResizeSidebar(px int) {
	c.update(func(s *State) {
		s.SidebarWidth = clamp(px, MinSidebarWidth, MaxSidebarWidth)
	})
}

// ResizePane sets the artifact pane width in percent of the screen, clamped to 20..80.
func (c *Controller) ResizePane(pct int) {
	c.update(func(s *State) {
		s.PanePct = clamp(pct, MinPanePct, MaxPanePct)
	})
}

package dialog

import (
	"Agent311/internal/session"
)

// SidebarMode selects what the sidebar lists
type SidebarMode int

const (
	SidebarChats SidebarMode = iota
	SidebarFiles
)

func (m SidebarMode) String() string {
	if m == SidebarFiles {
		return "files"
	}
	return "chats"
}

const (
	MinSidebarWidth     = 200
	MaxSidebarWidth     = 480
	DefaultSidebarWidth = 260

	MinPanePct     = 20
	MaxPanePct     = 80
	DefaultPanePct = 50

	// EmptyStateText is shown for a session with no messages
	EmptyStateText = "Austin 311 Data Science Agent. Ask me about service requests, trends, or data analysis."
)

// ReportRef identifies the report an artifact was opened from
type ReportRef struct {
	Name string
	Path string
}

// Artifact is the content of the artifact pane
type Artifact struct {
	Code   string
	Report *ReportRef
}

// State is the observable dialog state the front ends render from.
type State struct {
	Sessions         []session.Session
	CurrentSessionID string
	CurrentTitle     string
	Messages         []session.Message
	Input            string
	IsStreaming      bool
	Artifact         *Artifact
	SidebarOpen      bool
	SidebarMode      SidebarMode
	SidebarWidth     int
	PanePct          int
	Reports          []session.ReportFile
}

func newState() State {
	return State{
		SidebarOpen:  true,
		SidebarMode:  SidebarChats,
		SidebarWidth: DefaultSidebarWidth,
		PanePct:      DefaultPanePct,
	}
}

// clone copies the slices so a snapshot can be read without the lock.
func (s State) clone() State {
	out := s
	out.Sessions = append([]session.Session(nil), s.Sessions...)
	out.Messages = append([]session.Message(nil), s.Messages...)
	out.Reports = append([]session.ReportFile(nil), s.Reports...)
	if s.Artifact != nil {
		a := *s.Artifact
		if a.Report != nil {
			r := *a.Report
			a.Report = &r
		}
		out.Artifact = &a
	}
	return out
}

// StreamingMessageID returns the ID of the assistant message being streamed, or "".
func (s State) StreamingMessageID() string {
	if !s.IsStreaming || len(s.Messages) == 0 {
		return ""
	}
	last := s.Messages[len(s.Messages)-1]
	if last.Role != session.RoleAssistant {
		return ""
	}
	return last.ID
}

// Favorites and Recent split the session list for the chats sidebar.
func (s State) Favorites() []session.Session {
	var out []session.Session
	for _, sess := range s.Sessions {
		if sess.IsFavorite {
			out = append(out, sess)
		}
	}
	return out
}

func (s State) Recent() []session.Session {
	var out []session.Session
	for _, sess := range s.Sessions {
		if !sess.IsFavorite {
			out = append(out, sess)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

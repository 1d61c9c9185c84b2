package session

import (
	"sort"
	"strings"
)

// Role identifies the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

const (
	// DefaultTitle is given to sessions before their first message
	DefaultTitle = "New Chat"

	maxTitleRunes = 60
)

// Message represents a single chat message
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt Timestamp `json:"createdAt"`
}

// Session represents a persisted conversation. Messages are only present
// when the session was fetched individually.
type Session struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	CreatedAt  Timestamp `json:"createdAt"`
	UpdatedAt  Timestamp `json:"updatedAt"`
	IsFavorite bool      `json:"isFavorite"`
	Messages   []Message `json:"messages,omitempty"`
}

// ReportFile is an entry in the user's report library
type ReportFile struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Type       string    `json:"type"`
	SizeBytes  int64     `json:"sizeBytes"`
	ModifiedAt Timestamp `json:"modifiedAt"`
}

// FetchedFile is the body of a previewable file returned by fetch_file
type FetchedFile struct {
	Path      string `json:"path"`
	Language  string `json:"language"`
	SizeBytes int64  `json:"sizeBytes"`
	Content   string `json:"content"`
	Encoding  string `json:"encoding,omitempty"`
}

// IsBase64 reports whether Content carries base64-encoded binary data.
func (f FetchedFile) IsBase64() bool {
	return f.Encoding == "base64"
}

// TitleFromFirstMessage derives a session title from the first user message:
// the trimmed text cut to 60 characters, with "..." appended only when cut.
func TitleFromFirstMessage(text string) string {
	trimmed := []rune(strings.TrimSpace(text))
	if len(trimmed) <= maxTitleRunes {
		return string(trimmed)
	}
	return string(trimmed[:maxTitleRunes]) + "..."
}

// SortSessions orders sessions favorites first, then by most recent update.
func SortSessions(sessions []Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].IsFavorite != sessions[j].IsFavorite {
			return sessions[i].IsFavorite
		}
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt.Time)
	})
}

// MostRecent returns the index of the session with the latest UpdatedAt, or -1.
func MostRecent(sessions []Session) int {
	idx := -1
	for i, s := range sessions {
		if idx < 0 || s.UpdatedAt.After(sessions[idx].UpdatedAt.Time) {
			idx = i
		}
	}
	return idx
}

// SortReports orders reports newest first.
func SortReports(files []ReportFile) {
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].ModifiedAt.After(files[j].ModifiedAt.Time)
	})
}

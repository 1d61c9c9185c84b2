package api

import (
	"context"
	"net/http"
	"net/url"

	"Agent311/internal/backend"
	"Agent311/internal/session"
)

// ListSessions returns the session summaries (no messages).
func (c *Client) ListSessions(ctx context.Context) ([]session.Session, error) {
	var sessions []session.Session
	if err := c.doJSON(ctx, "list_sessions", http.MethodGet, "/api/sessions", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetSession returns one session with its messages.
func (c *Client) GetSession(ctx context.Context, id string) (session.Session, error) {
	var s session.Session
	err := c.doJSON(ctx, "get_session", http.MethodGet, "/api/sessions/"+url.PathEscape(id), nil, &s)
	return s, err
}

func (c *Client) CreateSession(ctx context.Context, id, title string) (session.Session, error) {
	var s session.Session
	err := c.doJSON(ctx, "create_session", http.MethodPost, "/api/sessions",
		backend.CreateSessionRequest{ID: id, Title: title}, &s)
	if err != nil {
		return session.Session{}, err
	}
	// Older servers answer with an empty object
	if s.ID == "" {
		s.ID, s.Title = id, title
	}
	return s, nil
}

// UpdateSession patches the title and/or favorite flag. The response body is ignored.
func (c *Client) UpdateSession(ctx context.Context, id string, patch backend.SessionPatch) error {
	return c.doJSON(ctx, "update_session", http.MethodPatch, "/api/sessions/"+url.PathEscape(id), patch, nil)
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.doJSON(ctx, "delete_session", http.MethodDelete, "/api/sessions/"+url.PathEscape(id), nil, nil)
}

// UpdateMessage replaces the stored content of a message.
func (c *Client) UpdateMessage(ctx context.Context, id, content string) error {
	return c.doJSON(ctx, "update_message", http.MethodPatch, "/api/messages/"+url.PathEscape(id),
		backend.MessagePatch{Content: content}, nil)
}

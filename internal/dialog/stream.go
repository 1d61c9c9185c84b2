package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"Agent311/internal/api"
	"Agent311/internal/auth"
	"Agent311/internal/backend"
	"Agent311/internal/render"
	"Agent311/internal/session"
	"Agent311/internal/sse"
)

// Submit sends text to the agent and streams the reply into a new assistant
// message. It returns once the stream has completed, been stopped, or failed.
// Chat failures are written into the assistant message and return nil;
// ErrBusy, ErrEmptyInput, ErrNoSession and auth.ErrUnauthorized are returned.
func (c *Controller) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)

	var (
		req         backend.ChatRequest
		sessionID   string
		title       string
		first       bool
		assistantID string
		streamCtx   context.Context
		cancel      context.CancelFunc
		rejected    error
	)

	c.update(func(s *State) {
		switch {
		case s.IsStreaming:
			rejected = ErrBusy
			return
		case s.CurrentSessionID == "":
			rejected = ErrNoSession
			return
		case text == "":
			rejected = ErrEmptyInput
			return
		}

		sessionID = s.CurrentSessionID
		first = len(s.Messages) == 0

		userMsg := session.Message{ID: c.newID(), Role: session.RoleUser, Content: text}
		s.Messages = append(s.Messages, userMsg)
		s.Input = ""

		if first {
			title = session.TitleFromFirstMessage(text)
			s.CurrentTitle = title
		}

		transcript := make([]backend.ChatMessage, len(s.Messages))
		for i, m := range s.Messages {
			transcript[i] = backend.ChatMessage{Role: string(m.Role), Content: m.Content}
		}

		assistantID = c.newID()
		s.Messages = append(s.Messages, session.Message{ID: assistantID, Role: session.RoleAssistant})
		s.IsStreaming = true

		streamCtx, cancel = context.WithCancel(ctx)
		c.cancel = cancel
		c.inflight = Reduce(InFlight{}, StreamEvent{Kind: EventStart, MessageID: assistantID})

		req = backend.ChatRequest{
			Messages:       transcript,
			SessionID:      sessionID,
			UserMsgID:      userMsg.ID,
			AssistantMsgID: assistantID,
		}
	})
	if rejected != nil {
		return rejected
	}

	ctx, span := c.tracer.Start(ctx, "chat.submit")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", sessionID))

	start := time.Now()
	defer func() {
		cancel()
		c.update(func(s *State) {
			s.IsStreaming = false
			c.cancel = nil
		})
		if c.duration != nil {
			c.duration.Record(ctx, float64(time.Since(start).Milliseconds()))
		}
	}()

	titleDone := make(chan struct{})
	if first {
		go func() {
			defer close(titleDone)
			if err := c.api.UpdateSession(ctx, sessionID, backend.SessionPatch{Title: &title}); err != nil {
				c.logger.Warn("failed to set session title", "session_id", sessionID, "error", err)
			}
		}()
	} else {
		close(titleDone)
	}

	c.logger.Info("chat submitted", "session_id", sessionID, "assistant_msg_id", assistantID)

	body, err := c.api.Chat(streamCtx, req)
	if err != nil {
		return c.finishWithError(streamCtx, err)
	}
	defer body.Close()

	var full strings.Builder
	deltaCount := 0
	err = sse.Read(streamCtx, body, func(delta string) {
		full.WriteString(delta)
		deltaCount++
		c.apply(StreamEvent{Kind: EventDelta, Text: delta})
	})
	if c.deltas != nil {
		c.deltas.Add(ctx, int64(deltaCount), metric.WithAttributes(attribute.String("session_id", sessionID)))
	}
	if err != nil {
		return c.finishWithError(streamCtx, err)
	}

	fullText := full.String()
	final, resolveErr := ResolveViewContent(streamCtx, c.api, fullText)
	if resolveErr != nil {
		// Keep what the user already saw; nothing is persisted on abort or 401
		c.apply(StreamEvent{Kind: EventAbort})
		if errors.Is(resolveErr, auth.ErrUnauthorized) {
			return resolveErr
		}
		return nil
	}
	c.apply(StreamEvent{Kind: EventDone, Text: final})

	if final != fullText {
		if err := c.api.UpdateMessage(ctx, assistantID, final); err != nil {
			c.logger.Warn("failed to persist resolved message", "assistant_msg_id", assistantID, "error", err)
		}
	}

	// the refreshed list should carry the new title unless the user stops
	select {
	case <-titleDone:
	case <-streamCtx.Done():
	}
	if _, err := c.RefreshSessions(ctx); err != nil {
		c.logger.Warn("failed to refresh sessions", "error", err)
	}

	if render.HasSaveReport(final) {
		if err := c.RefreshReports(ctx); err != nil {
			c.logger.Warn("failed to refresh reports", "error", err)
		}
		c.SetSidebarMode(SidebarFiles)
	}

	c.logger.Info("chat completed", "session_id", sessionID, "deltas", deltaCount, "chars", len(final))
	return nil
}

// finishWithError classifies a failure of the chat request or stream read.
func (c *Controller) finishWithError(streamCtx context.Context, err error) error {
	if streamCtx.Err() != nil {
		c.apply(StreamEvent{Kind: EventAbort})
		c.logger.Info("chat stopped")
		return nil
	}
	if errors.Is(err, auth.ErrUnauthorized) {
		c.apply(StreamEvent{Kind: EventAbort})
		return err
	}

	msg := err.Error()
	if status := api.StatusOf(err); status > 0 {
		msg = fmt.Sprintf("HTTP %d", status)
	}
	c.apply(StreamEvent{Kind: EventError, Text: msg})
	c.logger.Error("chat failed", "error", err)
	return nil
}

// apply reduces ev into the in-flight message and mirrors it into the
// transcript. After a session switch the message is no longer present and
// only the in-flight record changes.
func (c *Controller) apply(ev StreamEvent) {
	c.update(func(s *State) {
		c.inflight = Reduce(c.inflight, ev)
		for i := len(s.Messages) - 1; i >= 0; i-- {
			if s.Messages[i].ID == c.inflight.MessageID {
				s.Messages[i].Content = c.inflight.Content
				break
			}
		}
	})
}

// Stop aborts the current stream, if any.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

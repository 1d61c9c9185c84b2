package dialog

import (
	"context"
	"errors"
	"fmt"

	"Agent311/internal/api"
	"Agent311/internal/auth"
	"Agent311/internal/render"
	"Agent311/internal/session"
)

// FileFetcher fetches previewable file bodies
type FileFetcher interface {
	FetchFile(ctx context.Context, path string) (session.FetchedFile, error)
}

// ResolveViewContent fetches every view_content path referenced by text, one
// at a time in marker order, and appends each body as a fenced block or a
// failure note. It stops early and returns ctx's error when ctx is cancelled,
// or auth.ErrUnauthorized when the session expired, with the text so far.
func ResolveViewContent(ctx context.Context, fetcher FileFetcher, text string) (string, error) {
	for _, path := range render.ViewContentPaths(text) {
		if err := ctx.Err(); err != nil {
			return text, err
		}

		f, err := fetcher.FetchFile(ctx, path)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return text, ctxErr
			}
			if errors.Is(err, auth.ErrUnauthorized) {
				return text, err
			}
			if status := api.StatusOf(err); status > 0 {
				text += fmt.Sprintf("\n\nFailed to fetch preview content for %s (HTTP %d).", path, status)
			} else {
				text += fmt.Sprintf("\n\nFailed to fetch preview content for %s.", path)
			}
			continue
		}

		if f.Content != "" {
			text += render.CodeFence(f.Language, f.Content)
		}
	}
	return text, nil
}

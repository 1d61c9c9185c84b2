package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"Agent311/internal/backend"
)

// Chat posts the transcript and returns the SSE response body. The caller
// owns the body and must close it; cancelling ctx aborts the stream.
func (c *Client) Chat(ctx context.Context, req backend.ChatRequest) (io.ReadCloser, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.send(ctx, "chat", http.MethodPost, "/api/chat", bytes.NewReader(jsonData), "application/json")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// decodeOptional decodes a JSON body into out, accepting an empty body.
func decodeOptional(r io.Reader, out interface{}) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

package backend

// Stream event types emitted by the agent on /api/chat
const (
	EventStart     = "start"
	EventTextStart = "text-start"
	EventTextDelta = "text-delta"
	EventTextEnd   = "text-end"
	EventFinish    = "finish"
)

// StreamDone is the optional sentinel payload; the stream really ends when the body closes
const StreamDone = "[DONE]"

// StreamEvent represents one JSON payload of a "data: " line. Only the fields
// the client consumes are decoded, so extra fields of any shape are tolerated.
// Delta is a pointer so a missing delta can be told apart from "".
type StreamEvent struct {
	Type  string  `json:"type"`
	Delta *string `json:"delta,omitempty"`
}

package backend

// LoginRequest represents the request body for /api/auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the response from /api/auth/login
type LoginResponse struct {
	Token string `json:"token"`
}

// ChatMessage is the transcript entry sent with a chat request
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents the request body for /api/chat.
// The server persists the exchange under the two client-minted message IDs.
type ChatRequest struct {
	Messages       []ChatMessage `json:"messages"`
	SessionID      string        `json:"session_id"`
	UserMsgID      string        `json:"user_msg_id"`
	AssistantMsgID string        `json:"assistant_msg_id"`
}

// CreateSessionRequest represents the request body for POST /api/sessions
type CreateSessionRequest struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// SessionPatch represents the request body for PATCH /api/sessions/{id}.
// Nil fields are left untouched by the server.
type SessionPatch struct {
	Title      *string `json:"title,omitempty"`
	IsFavorite *bool   `json:"is_favorite,omitempty"`
}

// MessagePatch represents the request body for PATCH /api/messages/{id}
type MessagePatch struct {
	Content string `json:"content"`
}

// ErrorResponse is the FastAPI error body ({"detail": ...})
type ErrorResponse struct {
	Detail interface{} `json:"detail"`
}

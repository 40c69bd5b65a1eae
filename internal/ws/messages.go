package ws

import "encoding/json"

// Envelope wraps every WS frame.
type Envelope struct {
	Event string          `json:"event"`          // e.g. "chat/send"
	Body  json.RawMessage `json:"body,omitempty"` // arbitrary JSON object
}

// ──────────────────────────── Request / Response DTOs ─────────────────────────

// JoinRequest is the body for "chat/join".
type JoinRequest struct {
	Room string `json:"room" validate:"required"`
}

// SendRequest is the body for "chat/send".
type SendRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

// Empty ACK body (useful for many handlers).
type AckBody struct{}

// ErrorBody is returned for failures.
type ErrorBody struct {
	Error string `json:"error"`
}

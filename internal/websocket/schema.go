package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave  Action = "autosave"
	ActionViolation Action = "violation"
	ActionSubmit    Action = "submit"
	ActionPing      Action = "ping"
)

// RequestPayload is the single inbound message shape. Fields beyond
// Action are read per action type.
type RequestPayload struct {
	Action Action `json:"action"`
	// Autosave fields
	QID    string `json:"q_id,omitempty"`
	Answer string `json:"ans,omitempty"`
	Marked bool   `json:"marked,omitempty"`
	// Violation fields
	Event string `json:"event,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSuccess   Event = "success"
	EventSubmitted Event = "submitted"
	EventPong      Event = "pong"
)

// SuccessResponse acknowledges an autosave or violation report.
type SuccessResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

// SubmittedResponse confirms a finalized attempt. The score stays
// hidden until the exam's results are announced.
type SubmittedResponse struct {
	Event     Event  `json:"event"`
	AttemptID string `json:"attempt_id"`
	Status    string `json:"status"`
}

package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestPayload carries any client message; unused fields stay zero.
type RequestPayload struct {
	Action Action `json:"action"`
	// Autosave fields. Position indexes the session's question order;
	// an empty choice clears the position.
	Position int    `json:"position"`
	Choice   string `json:"choice"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSaved     Event = "saved"
	EventSubmitted Event = "submitted"
	EventPong      Event = "pong"
)

// SavedResponse acknowledges one autosaved answer.
type SavedResponse struct {
	Event    Event `json:"event"`
	Position int   `json:"position"`
}

// SubmittedResponse confirms the session closed and is queued for scoring.
type SubmittedResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

// PongResponse answers a ping with the server-side countdown, so the
// client can resync its timer against wall-clock truth.
type PongResponse struct {
	Event            Event   `json:"event"`
	RemainingSeconds float64 `json:"remaining_seconds"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

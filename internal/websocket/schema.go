package websocket

import (
	"encoding/json"

	"github.com/hlmaths/practice-backend/internal/progress"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestPayload is the only message the progress stream accepts from
// clients; everything else flows server → client.
type RequestPayload struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError  Event = "error"
	EventPong   Event = "pong"
	EventTotals Event = "totals"
)

// TotalsResponse pushes updated progress counters after a submission.
type TotalsResponse struct {
	Event      Event           `json:"event"`
	QuestionID string          `json:"question_id,omitempty"`
	Totals     progress.Totals `json:"totals"`
}

// PongResponse answers a client ping.
type PongResponse struct {
	Event Event `json:"event"`
}

// ErrorResponse reports a stream-level failure before closing.
type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

// ProgressEvent is the pubsub payload published by the progress worker.
type ProgressEvent struct {
	UserID     int             `json:"user_id"`
	QuestionID string          `json:"question_id"`
	Totals     progress.Totals `json:"totals"`
}

// DecodeProgressEvent parses a pubsub payload.
func DecodeProgressEvent(data string) (*ProgressEvent, error) {
	var ev ProgressEvent
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef names the branch, and the cashier when known, that completed the
// session behind an event.
type ActorRef struct {
	UserID   *uuid.UUID `json:"user_id,omitempty"`
	BranchID uuid.UUID  `json:"branch_id"`
}

// PayloadEnvelope wraps every outbox payload. Version tracks the shape of
// Data and is checked by the publisher before anything reaches a stream.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    uuid.UUID       `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

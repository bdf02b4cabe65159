package trader

import (
	"context"
	"encoding/json"
	"time"

	"aurora/internal/gateway"
)

// EvtCall runs a closure on the actor goroutine. It is never persisted.
const EvtCall gateway.EventType = "call"

// EventEnvelope is the message the actor consumes.
type EventEnvelope struct {
	ID        string            `json:"id"`
	Type      gateway.EventType `json:"type"`
	Payload   json.RawMessage   `json:"payload,omitempty"`
	CreatedAt time.Time         `json:"created_at"`

	// ReplyCh receives the handler result when set (SendSync).
	ReplyCh chan error `json:"-"`

	call func(ctx context.Context)
}

// FromGateway wraps a decoded gateway envelope.
func FromGateway(env gateway.Envelope) EventEnvelope {
	return EventEnvelope{
		ID:        newEventID(string(env.Type)),
		Type:      env.Type,
		Payload:   env.Payload,
		CreatedAt: time.Now(),
	}
}

// Stats is a read-only view of actor progress, safe to share across
// goroutines.
type Stats struct {
	Processed uint64            `json:"processed"`
	Failed    uint64            `json:"failed"`
	LastType  gateway.EventType `json:"last_type,omitempty"`
	LastAt    time.Time         `json:"last_at,omitempty"`
	Running   bool              `json:"running"`
}

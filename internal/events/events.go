package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Task lifecycle event types.
const (
	TypeTaskSubmitted  = "task.submitted"
	TypeTaskDispatched = "task.dispatched"
	TypeTaskCompleted  = "task.completed"
	TypeTaskFailed     = "task.failed"
	TypeTaskCancelled  = "task.cancelled"
)

// Event is an immutable notification with a JSON payload.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Subject   string          `json:"subject,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent serializes payload and stamps a fresh id and creation time.
// Subject identifies the entity the event is about, such as a task id.
func NewEvent(eventType, subject string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Subject:   subject,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler processes events delivered by an emitter.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a plain function to EventHandler.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// EventEmitter publishes events to whatever handlers it knows about.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *Event) error
}

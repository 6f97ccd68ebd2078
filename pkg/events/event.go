package events

import "time"

// Event type codes emitted by the kernel.
const (
	CommandStaged        = "COMMAND_STAGED"
	CommandExecuted      = "COMMAND_EXECUTED"
	CodeExecuted         = "CODE_EXECUTED"
	DocumentIndexed      = "DOCUMENT_INDEXED"
	MemoryCommitted      = "MEMORY_COMMITTED"
	MemoryCleared        = "MEMORY_CLEARED"
	InteractionPersisted = "INTERACTION_PERSISTED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "COMMAND_EXECUTED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

// New builds an event stamped with the current time.
func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now()}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Envelope is the serialized form of an event on every bus.
type Envelope struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func ToEnvelope(e Event) Envelope {
	return Envelope{Type: e.EventType(), Data: e.Payload(), OccurredAt: e.Timestamp()}
}

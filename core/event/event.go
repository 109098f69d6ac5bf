package event

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a pipeline event with metadata and payload.
type Event struct {
	ID        string    `json:"id"`         // Unique identifier for the event
	Name      string    `json:"name"`       // Event type name (e.g., "http.request.completed")
	Payload   any       `json:"payload"`    // Event data
	CreatedAt time.Time `json:"created_at"` // When the event was created
}

// New creates an Event with an auto-generated ID and timestamp.
func New(name string, payload any) Event {
	return Event{
		ID:        uuid.New().String(),
		Name:      name,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}

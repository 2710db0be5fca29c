// Package notify publishes domain events (due reminders, materialized
// recurring transactions) to whoever is listening: a RabbitMQ exchange in
// deployments, the log otherwise.
package notify

import (
	"encoding/json"
	"time"
)

// EventType names what happened.
type EventType string

const (
	EventReminderDue             EventType = "reminder.due"
	EventTransactionMaterialized EventType = "transaction.materialized"
	EventRecurringEnded          EventType = "recurring.ended"
)

// Event is the message body sent to consumers. It carries ids and a small
// payload; consumers fetch anything else they need.
type Event struct {
	Type       EventType         `json:"type"`
	UserID     string            `json:"userId"`
	ResourceID string            `json:"resourceId"`
	Payload    map[string]string `json:"payload,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// NewEvent stamps a new event with the current time.
func NewEvent(eventType EventType, userID, resourceID string, payload map[string]string) *Event {
	return &Event{
		Type:       eventType,
		UserID:     userID,
		ResourceID: resourceID,
		Payload:    payload,
		Timestamp:  time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes an event produced by ToJSON.
func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

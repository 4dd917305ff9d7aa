package domain

import (
	"encoding/json"
	"time"
)

// EventID is a unique identifier for an event.
type EventID string

// String returns the string representation of the EventID.
func (id EventID) String() string {
	return string(id)
}

// EventType names a push notification.
type EventType string

const (
	EventVideoAdded     EventType = "video:added"
	EventVideoUpdated   EventType = "video:updated"
	EventVideoDeleted   EventType = "video:deleted"
	EventDrivesChanged  EventType = "usb:changed"
	EventExportProgress EventType = "export:progress"
	EventExportComplete EventType = "export:complete"
	EventServerStarted  EventType = "server:started"
	EventServerStopped  EventType = "server:stopped"
)

// EventSeverity represents the severity level of an event.
type EventSeverity string

const (
	EventSeverityInfo    EventSeverity = "info"
	EventSeverityWarning EventSeverity = "warning"
	EventSeverityError   EventSeverity = "error"
	EventSeveritySuccess EventSeverity = "success"
)

// Event is a notification delivered to subscribers and kept in the
// recent-activity buffer.
type Event struct {
	ID        EventID         `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Severity  EventSeverity   `json:"severity"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// EventEmitter is implemented by components that publish events.
type EventEmitter interface {
	// Emit records and broadcasts an event.
	Emit(event Event)

	// Publish marshals payload as the event data and emits it.
	Publish(eventType EventType, severity EventSeverity, message string, payload any)
}

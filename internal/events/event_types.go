package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTrackerCreated EventType = "tracker.created"
	EventDraftSaved     EventType = "draft.saved"
	EventSessionExpired EventType = "session.expired"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	AgentID   string    `json:"agent_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, agentID string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		AgentID:   agentID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TrackerCreatedPayload describes a tracker that was just created.
type TrackerCreatedPayload struct {
	TemplateKey string `json:"template_key"`
	TrackerID   int64  `json:"tracker_id"`
	OriginID    *int64 `json:"origin_id,omitempty"`
	Subject     string `json:"subject"`
	URL         string `json:"url"`
	VIP         bool   `json:"vip"`
}

// DraftSavedPayload payload.
type DraftSavedPayload struct {
	DraftID     string `json:"draft_id"`
	TemplateKey string `json:"template_key"`
	Created     bool   `json:"created"`
}

// SessionExpiredPayload payload.
type SessionExpiredPayload struct {
	SessionID   string    `json:"session_id"`
	TemplateKey string    `json:"template_key"`
	TicketID    int64     `json:"ticket_id,omitempty"`
	LastActive  time.Time `json:"last_active"`
}

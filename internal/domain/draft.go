package domain

import "time"

// Draft is a partially filled tracker form saved by an agent.
type Draft struct {
	ID          string      `json:"id"`
	AgentID     string      `json:"agentId"`
	TemplateKey string      `json:"templateKey"`
	TicketID    *int64      `json:"ticketId,omitempty"`
	Title       string      `json:"title"`
	Values      FieldValues `json:"values"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// TrackerLink records a tracker created from an originating ticket.
type TrackerLink struct {
	ID          string    `json:"id"`
	TrackerID   int64     `json:"trackerId"`
	OriginID    *int64    `json:"originId,omitempty"`
	TemplateKey string    `json:"templateKey"`
	Subject     string    `json:"subject"`
	AgentID     string    `json:"agentId"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Agent is the authenticated support agent behind a request.
type Agent struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

package freshdesk

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/spec-kit/tracker-central/internal/domain"
)

// TicketPayload is the body of a ticket creation request.
type TicketPayload struct {
	Email            string         `json:"email"`
	Subject          string         `json:"subject"`
	Description      string         `json:"description"`
	Status           int            `json:"status"`
	Priority         int            `json:"priority"`
	Source           int            `json:"source"`
	Type             string         `json:"type,omitempty"`
	RelatedTicketIDs []int64        `json:"related_ticket_ids,omitempty"`
	GroupID          *int64         `json:"group_id,omitempty"`
	ResponderID      *int64         `json:"responder_id,omitempty"`
	Tags             []string       `json:"tags,omitempty"`
	CustomFields     map[string]any `json:"custom_fields,omitempty"`
}

// Note is a conversation entry on a ticket.
type Note struct {
	ID       int64  `json:"id"`
	TicketID int64  `json:"ticket_id"`
	Body     string `json:"body"`
	Private  bool   `json:"private"`
}

type associatedTickets struct {
	Tickets []domain.Ticket `json:"tickets"`
}

// GetTicket fetches a ticket with its requester embedded.
func (c *Client) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	var t domain.Ticket
	err := c.do(ctx, request{
		op:     "get_ticket",
		method: http.MethodGet,
		path:   fmt.Sprintf("/api/v2/tickets/%d", id),
		query:  "include=requester",
	}, &t)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetAssociatedTickets lists the tickets associated with a tracker.
func (c *Client) GetAssociatedTickets(ctx context.Context, id int64) ([]domain.Ticket, error) {
	var out associatedTickets
	err := c.do(ctx, request{
		op:     "associated_tickets",
		method: http.MethodGet,
		path:   fmt.Sprintf("/api/v2/tickets/%d/associated_tickets", id),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Tickets, nil
}

// GetPrimeAssociation returns the tracker a related ticket belongs to.
func (c *Client) GetPrimeAssociation(ctx context.Context, id int64) (*domain.Ticket, error) {
	var t domain.Ticket
	err := c.do(ctx, request{
		op:     "prime_association",
		method: http.MethodGet,
		path:   fmt.Sprintf("/api/v2/tickets/%d/prime_association", id),
	}, &t)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetCompany fetches a company.
func (c *Client) GetCompany(ctx context.Context, id int64) (*domain.Company, error) {
	var co domain.Company
	err := c.do(ctx, request{
		op:     "get_company",
		method: http.MethodGet,
		path:   fmt.Sprintf("/api/v2/companies/%d", id),
	}, &co)
	if err != nil {
		return nil, err
	}
	return &co, nil
}

// CreateTicket creates a ticket and returns it.
func (c *Client) CreateTicket(ctx context.Context, payload TicketPayload) (*domain.Ticket, error) {
	var t domain.Ticket
	err := c.do(ctx, request{
		op:     "create_ticket",
		method: http.MethodPost,
		path:   "/api/v2/tickets",
		body:   payload,
	}, &t)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTicketTags replaces the tag list of a ticket.
func (c *Client) UpdateTicketTags(ctx context.Context, id int64, tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	return c.do(ctx, request{
		op:     "update_tags",
		method: http.MethodPut,
		path:   fmt.Sprintf("/api/v2/tickets/%d", id),
		body:   map[string]any{"tags": tags},
	}, nil)
}

// AddNote adds a note to a ticket. body is HTML.
func (c *Client) AddNote(ctx context.Context, id int64, body string, private bool) (*Note, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("freshdesk: note body is empty")
	}
	var n Note
	err := c.do(ctx, request{
		op:     "add_note",
		method: http.MethodPost,
		path:   fmt.Sprintf("/api/v2/tickets/%d/notes", id),
		body:   map[string]any{"body": body, "private": private},
	}, &n)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

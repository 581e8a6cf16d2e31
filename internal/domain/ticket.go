package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AssociationType mirrors the helpdesk association_type field.
type AssociationType int

const (
	AssociationNone    AssociationType = 0
	AssociationParent  AssociationType = 1
	AssociationChild   AssociationType = 2
	AssociationTracker AssociationType = 3
	AssociationRelated AssociationType = 4
)

// Requester is the contact embedded when a ticket is fetched with include=requester.
type Requester struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Ticket is the subset of a helpdesk ticket the service reads.
type Ticket struct {
	ID              int64            `json:"id"`
	Subject         string           `json:"subject"`
	Description     string           `json:"description,omitempty"`
	Status          int              `json:"status"`
	Priority        int              `json:"priority"`
	Type            string           `json:"type,omitempty"`
	CompanyID       *int64           `json:"company_id"`
	RequesterID     int64            `json:"requester_id"`
	Requester       *Requester       `json:"requester,omitempty"`
	GroupID         *int64           `json:"group_id"`
	ResponderID     *int64           `json:"responder_id"`
	AssociationType *AssociationType `json:"association_type"`
	Tags            []string         `json:"tags"`
	CustomFields    map[string]any   `json:"custom_fields"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Association returns the association type, treating a missing value as none.
func (t *Ticket) Association() AssociationType {
	if t == nil || t.AssociationType == nil {
		return AssociationNone
	}
	return *t.AssociationType
}

// Company returns the company id or 0.
func (t *Ticket) Company() int64 {
	if t == nil || t.CompanyID == nil {
		return 0
	}
	return *t.CompanyID
}

// HasTag reports whether tag is already on the ticket, ignoring case.
func (t *Ticket) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if strings.EqualFold(existing, tag) {
			return true
		}
	}
	return false
}

// CustomField returns a custom field rendered as a string. Null and missing
// values are "".
func (t *Ticket) CustomField(key string) string {
	if t == nil {
		return ""
	}
	return stringify(t.CustomFields[key])
}

// Company is the subset of a helpdesk company the service reads.
type Company struct {
	ID           int64          `json:"id"`
	Name         string         `json:"name"`
	CustomFields map[string]any `json:"custom_fields"`
}

// CustomField returns a company custom field as a string.
func (c *Company) CustomField(key string) string {
	if c == nil {
		return ""
	}
	return stringify(c.CustomFields[key])
}

// TicketContext is the originating ticket information used to prefill forms.
type TicketContext struct {
	TicketID          int64  `json:"ticketId"`
	RequesterEmail    string `json:"requesterEmail,omitempty"`
	ProductType       string `json:"productType,omitempty"`
	Product           string `json:"product,omitempty"`
	ProductSubsection string `json:"productSubsection,omitempty"`
	IsVIP             bool   `json:"isVip"`
	CompanyID         int64  `json:"companyId,omitempty"`
	DistrictName      string `json:"districtName,omitempty"`
	CompanyState      string `json:"companyState,omitempty"`
	DistrictState     string `json:"districtState,omitempty"`
	GroupID           *int64 `json:"groupId,omitempty"`
	ResponderID       *int64 `json:"responderId,omitempty"`
}

// NewTicketContext flattens a ticket and its optional company.
func NewTicketContext(t *Ticket, c *Company) TicketContext {
	ctx := TicketContext{}
	if t != nil {
		ctx.TicketID = t.ID
		if t.Requester != nil {
			ctx.RequesterEmail = t.Requester.Email
		}
		ctx.ProductType = t.CustomField("cf_product_type")
		ctx.Product = t.CustomField("cf_product")
		ctx.ProductSubsection = t.CustomField("cf_product_subsection")
		ctx.IsVIP = truthy(t.CustomField("cf_vip"))
		ctx.CompanyID = t.Company()
		ctx.DistrictState = t.CustomField("cf_state")
		ctx.GroupID = t.GroupID
		ctx.ResponderID = t.ResponderID
	}
	if c != nil {
		ctx.DistrictName = c.Name
		ctx.CompanyState = c.CustomField("state")
	}
	return ctx
}

// TicketRef is a compact ticket reference returned to the front end.
type TicketRef struct {
	ID          int64     `json:"id"`
	Subject     string    `json:"subject"`
	URL         string    `json:"url"`
	CompanyID   int64     `json:"companyId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	FirstReport bool      `json:"firstReport,omitempty"`
}

// CompanyGroup collects associated tickets that belong to one district.
type CompanyGroup struct {
	CompanyID   int64       `json:"companyId"`
	CompanyName string      `json:"companyName,omitempty"`
	Error       string      `json:"error,omitempty"`
	Tickets     []TicketRef `json:"tickets"`
}

// AssociationSummary describes how a ticket relates to trackers.
type AssociationSummary struct {
	TicketID    int64           `json:"ticketId"`
	Type        AssociationType `json:"associationType"`
	Message     string          `json:"message"`
	Tracker     *TicketRef      `json:"tracker,omitempty"`
	FirstReport *TicketRef      `json:"firstReport,omitempty"`
	Districts   int             `json:"districts"`
	Groups      []CompanyGroup  `json:"groups,omitempty"`
}

// TicketURL builds the agent-portal link for a ticket.
func TicketURL(subdomain string, id int64) string {
	return fmt.Sprintf("https://%s.freshdesk.com/a/tickets/%d", subdomain, id)
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		if val == "null" {
			return ""
		}
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprint(val)
	}
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		return true
	}
	return false
}

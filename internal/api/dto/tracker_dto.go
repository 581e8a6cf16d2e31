package dto

import "time"

// TemplateSummary is one catalogue entry.
type TemplateSummary struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// OptionResponse is one select or checkbox choice.
type OptionResponse struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ConditionResponse shows a field while another field holds value.
type ConditionResponse struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// FieldResponse declares one form input.
type FieldResponse struct {
	ID                  string             `json:"id"`
	Type                string             `json:"type"`
	Label               string             `json:"label"`
	Required            bool               `json:"required"`
	Options             []OptionResponse   `json:"options,omitempty"`
	OptionsFrom         string             `json:"options_from,omitempty"`
	Placeholder         string             `json:"placeholder,omitempty"`
	Hint                string             `json:"hint,omitempty"`
	ReadOnly            bool               `json:"read_only"`
	Default             string             `json:"default,omitempty"`
	DefaultToday        bool               `json:"default_today,omitempty"`
	Condition           *ConditionResponse `json:"condition,omitempty"`
	RequiredWhenVisible bool               `json:"required_when_visible,omitempty"`
	ClearWhenHidden     bool               `json:"clear_when_hidden,omitempty"`
}

// SectionResponse groups fields under one heading.
type SectionResponse struct {
	ID     string          `json:"id"`
	Title  string          `json:"title"`
	Icon   string          `json:"icon"`
	Fields []FieldResponse `json:"fields"`
}

// SubjectRulesResponse are the soft subject checks.
type SubjectRulesResponse struct {
	MinLength     int      `json:"min_length,omitempty"`
	MaxLength     int      `json:"max_length,omitempty"`
	Separator     string   `json:"separator,omitempty"`
	RequiredParts []string `json:"required_parts,omitempty"`
}

// SubjectResponse binds a template to its subject format.
type SubjectResponse struct {
	Format string               `json:"format"`
	Target string               `json:"target"`
	Rules  SubjectRulesResponse `json:"rules"`
}

// SyncRuleResponse keeps target derived from other fields.
type SyncRuleResponse struct {
	Kind   string `json:"kind"`
	Target string `json:"target"`
	Source string `json:"source,omitempty"`
}

// XcodeUnknownResponse wires the xcode-unknown checkbox.
type XcodeUnknownResponse struct {
	Checkbox string `json:"checkbox"`
	Field    string `json:"field"`
	Confirm  string `json:"confirm"`
}

// ConditionalRequirementResponse drops field's requirement while
// unless_field equals equals.
type ConditionalRequirementResponse struct {
	Field       string `json:"field"`
	UnlessField string `json:"unless_field"`
	Equals      string `json:"equals"`
}

// OriginTagResponse describes the follow-up on the originating ticket.
type OriginTagResponse struct {
	Tag          string `json:"tag"`
	Note         string `json:"note"`
	FallbackNote string `json:"fallback_note"`
}

// TemplateResponse is a full template definition with resource options
// applied.
type TemplateResponse struct {
	TemplateSummary
	Sections            []SectionResponse                `json:"sections"`
	Subject             SubjectResponse                  `json:"subject"`
	Sync                []SyncRuleResponse               `json:"sync"`
	Populate            []string                         `json:"populate"`
	XcodeUnknown        *XcodeUnknownResponse            `json:"xcode_unknown,omitempty"`
	ConditionalRequired []ConditionalRequirementResponse `json:"conditional_required"`
	OriginTag           *OriginTagResponse               `json:"origin_tag,omitempty"`
	PriorityWhenVIP     int                              `json:"priority_when_vip,omitempty"`
}

// PreviewRequest payload.
type PreviewRequest struct {
	Values map[string]string `json:"values"`
}

// PreviewResponse renders a form without submitting it. Errors lists the
// blocking validation messages, SubjectWarnings the soft subject rules.
type PreviewResponse struct {
	Subject         string   `json:"subject"`
	Description     string   `json:"description"`
	Errors          []string `json:"errors"`
	SubjectWarnings []string `json:"subject_warnings"`
}

// OpenSessionRequest payload.
type OpenSessionRequest struct {
	Template string            `json:"template"`
	TicketID *int64            `json:"ticket_id"`
	DraftID  string            `json:"draft_id"`
	Values   map[string]string `json:"values"`
}

// SetFieldRequest payload. Confirm answers the xcode-unknown prompt.
type SetFieldRequest struct {
	Value   string `json:"value"`
	Confirm bool   `json:"confirm"`
}

// FieldChange is one value changed by a write.
type FieldChange struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// TicketContextResponse describes the ticket a form was opened from.
type TicketContextResponse struct {
	TicketID       int64  `json:"ticket_id"`
	RequesterEmail string `json:"requester_email,omitempty"`
	DistrictName   string `json:"district_name,omitempty"`
	DistrictState  string `json:"district_state,omitempty"`
	IsVIP          bool   `json:"is_vip"`
}

// SessionResponse is a session snapshot.
type SessionResponse struct {
	ID        string                 `json:"id"`
	Template  string                 `json:"template"`
	Ticket    *TicketContextResponse `json:"ticket,omitempty"`
	Values    map[string]string      `json:"values"`
	Subject   string                 `json:"subject"`
	Hidden    []string               `json:"hidden"`
	Required  []string               `json:"required"`
	Mounted   []string               `json:"mounted"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// SetFieldResponse returns the changes and the resulting state.
type SetFieldResponse struct {
	Changes []FieldChange   `json:"changes"`
	Session SessionResponse `json:"session"`
}

// CreateTrackerRequest payload. RelatedTickets accepts the comma separated
// form used by the ticket sidebar; RelatedTicketIDs wins when both are set.
type CreateTrackerRequest struct {
	Template         string            `json:"template"`
	SessionID        string            `json:"session_id"`
	Values           map[string]string `json:"values"`
	RelatedTicketIDs []int64           `json:"related_ticket_ids"`
	RelatedTickets   string            `json:"related_tickets"`
	Email            string            `json:"email"`
	GroupID          *int64            `json:"group_id"`
	ResponderID      *int64            `json:"responder_id"`
}

// TrackerResponse describes a created tracker.
type TrackerResponse struct {
	TrackerID int64  `json:"tracker_id"`
	Subject   string `json:"subject"`
	URL       string `json:"url"`
}

// TicketRefResponse is a linked ticket.
type TicketRefResponse struct {
	ID          int64     `json:"id"`
	Subject     string    `json:"subject"`
	URL         string    `json:"url"`
	CompanyID   int64     `json:"company_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	FirstReport bool      `json:"first_report"`
}

// CompanyGroupResponse lists the tickets of one district.
type CompanyGroupResponse struct {
	CompanyID   int64               `json:"company_id"`
	CompanyName string              `json:"company_name,omitempty"`
	Error       string              `json:"error,omitempty"`
	Tickets     []TicketRefResponse `json:"tickets"`
}

// AssociationResponse summarises a ticket's associations.
type AssociationResponse struct {
	TicketID        int64                  `json:"ticket_id"`
	AssociationType int                    `json:"association_type"`
	Message         string                 `json:"message"`
	Tracker         *TicketRefResponse     `json:"tracker,omitempty"`
	FirstReport     *TicketRefResponse     `json:"first_report,omitempty"`
	Districts       int                    `json:"districts"`
	Groups          []CompanyGroupResponse `json:"groups"`
}

// SaveDraftRequest payload.
type SaveDraftRequest struct {
	Template  string            `json:"template"`
	SessionID string            `json:"session_id"`
	TicketID  *int64            `json:"ticket_id"`
	Title     string            `json:"title"`
	Values    map[string]string `json:"values"`
}

// DraftResponse describes a saved draft.
type DraftResponse struct {
	ID        string            `json:"id"`
	Template  string            `json:"template"`
	TicketID  *int64            `json:"ticket_id"`
	Title     string            `json:"title"`
	Values    map[string]string `json:"values"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

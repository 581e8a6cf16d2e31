package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tracker-central/internal/api/dto"
	"github.com/spec-kit/tracker-central/internal/auth"
	"github.com/spec-kit/tracker-central/internal/domain"
	"github.com/spec-kit/tracker-central/internal/form"
	apperrors "github.com/spec-kit/tracker-central/pkg/util"
)

func requireAgent(c *fiber.Ctx) (*domain.Agent, error) {
	agent, ok := auth.AgentFromCtx(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	return agent, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func parseTicketID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("ticket id must be a positive integer", map[string]any{"id": c.Params("id")})
	}
	return id, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

// parseRelated reads the comma separated ticket list of the sidebar form.
func parseRelated(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, apperrors.NewValidationError("related tickets must be ticket numbers", map[string]any{"value": part})
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func sessionResponse(sess *form.Session) dto.SessionResponse {
	snap := sess.Snapshot()
	resp := dto.SessionResponse{
		ID:        snap.ID,
		Template:  snap.TemplateKey,
		Values:    snap.Values,
		Subject:   snap.Subject,
		Hidden:    snap.Hidden,
		Required:  snap.Required,
		Mounted:   snap.Mounted,
		UpdatedAt: snap.UpdatedAt,
	}
	if tc := sess.TicketContext(); tc != nil {
		resp.Ticket = &dto.TicketContextResponse{
			TicketID:       tc.TicketID,
			RequesterEmail: tc.RequesterEmail,
			DistrictName:   tc.DistrictName,
			DistrictState:  tc.DistrictState,
			IsVIP:          tc.IsVIP,
		}
	}
	return resp
}

func fieldChanges(changes []form.Change) []dto.FieldChange {
	out := make([]dto.FieldChange, 0, len(changes))
	for _, ch := range changes {
		out = append(out, dto.FieldChange{Field: ch.Field, Value: ch.Value})
	}
	return out
}

func ticketRef(r *domain.TicketRef) *dto.TicketRefResponse {
	if r == nil {
		return nil
	}
	return &dto.TicketRefResponse{
		ID:          r.ID,
		Subject:     r.Subject,
		URL:         r.URL,
		CompanyID:   r.CompanyID,
		CreatedAt:   r.CreatedAt,
		FirstReport: r.FirstReport,
	}
}

func associationResponse(s *domain.AssociationSummary) dto.AssociationResponse {
	resp := dto.AssociationResponse{
		TicketID:        s.TicketID,
		AssociationType: int(s.Type),
		Message:         s.Message,
		Tracker:         ticketRef(s.Tracker),
		FirstReport:     ticketRef(s.FirstReport),
		Districts:       s.Districts,
		Groups:          make([]dto.CompanyGroupResponse, 0, len(s.Groups)),
	}
	for _, g := range s.Groups {
		group := dto.CompanyGroupResponse{
			CompanyID:   g.CompanyID,
			CompanyName: g.CompanyName,
			Error:       g.Error,
			Tickets:     make([]dto.TicketRefResponse, 0, len(g.Tickets)),
		}
		for i := range g.Tickets {
			group.Tickets = append(group.Tickets, *ticketRef(&g.Tickets[i]))
		}
		resp.Groups = append(resp.Groups, group)
	}
	return resp
}

func draftResponse(d *domain.Draft) dto.DraftResponse {
	values := d.Values
	if values == nil {
		values = domain.FieldValues{}
	}
	return dto.DraftResponse{
		ID:        d.ID,
		Template:  d.TemplateKey,
		TicketID:  d.TicketID,
		Title:     d.Title,
		Values:    values,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func templateSummary(tpl *domain.Template) dto.TemplateSummary {
	return dto.TemplateSummary{
		Key:         tpl.Key,
		Title:       tpl.Title,
		Icon:        tpl.Icon,
		Description: tpl.Description,
		Type:        tpl.Type,
	}
}

func templateResponse(tpl *domain.Template) dto.TemplateResponse {
	resp := dto.TemplateResponse{
		TemplateSummary: templateSummary(tpl),
		Sections:        make([]dto.SectionResponse, 0, len(tpl.Sections)),
		Subject: dto.SubjectResponse{
			Format: string(tpl.Subject.Format),
			Target: tpl.SubjectTarget(),
			Rules: dto.SubjectRulesResponse{
				MinLength:     tpl.Subject.Rules.MinLength,
				MaxLength:     tpl.Subject.Rules.MaxLength,
				Separator:     tpl.Subject.Rules.Separator,
				RequiredParts: tpl.Subject.Rules.RequiredParts,
			},
		},
		Sync:                make([]dto.SyncRuleResponse, 0, len(tpl.Sync)),
		Populate:            make([]string, 0, len(tpl.Populate)),
		ConditionalRequired: make([]dto.ConditionalRequirementResponse, 0, len(tpl.ConditionalRequired)),
		PriorityWhenVIP:     tpl.PriorityWhenVIP,
	}
	for _, s := range tpl.Sections {
		section := dto.SectionResponse{ID: s.ID, Title: s.Title, Icon: s.Icon, Fields: make([]dto.FieldResponse, 0, len(s.Fields))}
		for _, f := range s.Fields {
			section.Fields = append(section.Fields, fieldResponse(f))
		}
		resp.Sections = append(resp.Sections, section)
	}
	for _, r := range tpl.Sync {
		resp.Sync = append(resp.Sync, dto.SyncRuleResponse{Kind: string(r.Kind), Target: r.Target, Source: r.Source})
	}
	for _, p := range tpl.Populate {
		resp.Populate = append(resp.Populate, string(p))
	}
	for _, cr := range tpl.ConditionalRequired {
		resp.ConditionalRequired = append(resp.ConditionalRequired, dto.ConditionalRequirementResponse{
			Field:       cr.Field,
			UnlessField: cr.UnlessField,
			Equals:      cr.Equals,
		})
	}
	if xu := tpl.XcodeUnknown; xu != nil {
		resp.XcodeUnknown = &dto.XcodeUnknownResponse{Checkbox: xu.Checkbox, Field: xu.Field, Confirm: xu.Confirm}
	}
	if ot := tpl.OriginTag; ot != nil {
		resp.OriginTag = &dto.OriginTagResponse{Tag: ot.Tag, Note: ot.Note, FallbackNote: ot.FallbackNote}
	}
	return resp
}

func fieldResponse(f domain.FieldDescriptor) dto.FieldResponse {
	out := dto.FieldResponse{
		ID:                  f.ID,
		Type:                string(f.Type),
		Label:               f.Label,
		Required:            f.Required,
		OptionsFrom:         f.OptionsFrom,
		Placeholder:         f.Placeholder,
		Hint:                f.Hint,
		ReadOnly:            f.ReadOnly,
		Default:             f.Default,
		DefaultToday:        f.DefaultToday,
		RequiredWhenVisible: f.RequiredWhenVisible,
		ClearWhenHidden:     f.ClearWhenHidden,
	}
	for _, o := range f.Options {
		out.Options = append(out.Options, dto.OptionResponse{ID: o.ID, Label: o.Label})
	}
	if f.Condition != nil {
		out.Condition = &dto.ConditionResponse{Field: f.Condition.Field, Value: f.Condition.Value}
	}
	return out
}

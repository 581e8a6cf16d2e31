package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tracker-central/internal/api/dto"
	"github.com/spec-kit/tracker-central/internal/domain"
	"github.com/spec-kit/tracker-central/internal/form"
	"github.com/spec-kit/tracker-central/internal/render"
	"github.com/spec-kit/tracker-central/internal/templates"
	apperrors "github.com/spec-kit/tracker-central/pkg/util"
)

// TemplatesHandler serves the template catalogue and previews.
type TemplatesHandler struct {
	registry *templates.Registry
}

// NewTemplatesHandler constructs handler.
func NewTemplatesHandler(registry *templates.Registry) *TemplatesHandler {
	return &TemplatesHandler{registry: registry}
}

// List GET /templates.
func (h *TemplatesHandler) List(c *fiber.Ctx) error {
	list := h.registry.List()
	items := make([]dto.TemplateSummary, 0, len(list))
	for _, tpl := range list {
		items = append(items, templateSummary(tpl))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /templates/:key.
func (h *TemplatesHandler) Get(c *fiber.Ctx) error {
	tpl, err := h.resolve(c.Params("key"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": templateResponse(tpl)})
}

// Preview POST /templates/:key/preview renders the subject and description
// for a set of values without creating anything. Derived fields are
// computed as an open session would.
func (h *TemplatesHandler) Preview(c *fiber.Ctx) error {
	tpl, err := h.resolve(c.Params("key"))
	if err != nil {
		return err
	}
	var req dto.PreviewRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	values := domain.FieldValues(req.Values).Clone()
	if values == nil {
		values = domain.FieldValues{}
	}

	form.Prepare(tpl, values, nil)
	subject := values.Trimmed(tpl.SubjectTarget())

	resp := dto.PreviewResponse{
		Subject:         subject,
		Description:     render.GenerateDescription(tpl, values),
		Errors:          form.Validate(tpl, values),
		SubjectWarnings: render.ValidateSubject(subject, tpl.Subject.Rules),
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	if resp.SubjectWarnings == nil {
		resp.SubjectWarnings = []string{}
	}
	return c.JSON(fiber.Map{"data": resp})
}

func (h *TemplatesHandler) resolve(key string) (*domain.Template, error) {
	tpl, err := h.registry.Resolved(key)
	if errors.Is(err, templates.ErrTemplateNotFound) {
		return nil, apperrors.NewNotFound("template", map[string]any{"key": key})
	}
	return tpl, err
}

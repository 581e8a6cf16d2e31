package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tracker-central/internal/api/dto"
	"github.com/spec-kit/tracker-central/internal/service"
)

// DraftsHandler manages an agent's saved drafts.
type DraftsHandler struct {
	service *service.DraftService
}

// NewDraftsHandler constructs handler.
func NewDraftsHandler(draftService *service.DraftService) *DraftsHandler {
	return &DraftsHandler{service: draftService}
}

// List GET /drafts.
func (h *DraftsHandler) List(c *fiber.Ctx) error {
	agent, err := requireAgent(c)
	if err != nil {
		return err
	}
	filter := service.DraftListFilter{
		Limit:  parseInt(c.Query("page_size"), 20),
		Offset: 0,
	}
	if page := parseInt(c.Query("page"), 1); page > 1 {
		filter.Offset = (page - 1) * filter.Limit
	}
	if key := c.Query("template"); key != "" {
		filter.TemplateKey = &key
	}
	if raw := c.Query("ticket_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.TicketID = &id
		}
	}

	drafts, err := h.service.List(c.UserContext(), agent, filter)
	if err != nil {
		return err
	}
	items := make([]dto.DraftResponse, 0, len(drafts))
	for i := range drafts {
		items = append(items, draftResponse(&drafts[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Create POST /drafts.
func (h *DraftsHandler) Create(c *fiber.Ctx) error {
	agent, err := requireAgent(c)
	if err != nil {
		return err
	}
	var req dto.SaveDraftRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	draft, err := h.service.Create(c.UserContext(), agent, saveDraftInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": draftResponse(draft)})
}

// Get GET /drafts/:id.
func (h *DraftsHandler) Get(c *fiber.Ctx) error {
	agent, err := requireAgent(c)
	if err != nil {
		return err
	}
	draft, err := h.service.Get(c.UserContext(), agent, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": draftResponse(draft)})
}

// Update PUT /drafts/:id.
func (h *DraftsHandler) Update(c *fiber.Ctx) error {
	agent, err := requireAgent(c)
	if err != nil {
		return err
	}
	var req dto.SaveDraftRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	draft, err := h.service.Update(c.UserContext(), agent, c.Params("id"), saveDraftInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": draftResponse(draft)})
}

// Delete DELETE /drafts/:id.
func (h *DraftsHandler) Delete(c *fiber.Ctx) error {
	agent, err := requireAgent(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), agent, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func saveDraftInput(req dto.SaveDraftRequest) service.SaveDraftInput {
	return service.SaveDraftInput{
		TemplateKey: req.Template,
		SessionID:   req.SessionID,
		TicketID:    req.TicketID,
		Title:       req.Title,
		Values:      req.Values,
	}
}

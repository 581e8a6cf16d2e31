package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tracker-central/internal/api/dto"
	"github.com/spec-kit/tracker-central/internal/service"
)

// SessionsHandler manages live form sessions.
type SessionsHandler struct {
	service *service.SessionService
}

// NewSessionsHandler constructs handler.
func NewSessionsHandler(sessionService *service.SessionService) *SessionsHandler {
	return &SessionsHandler{service: sessionService}
}

// Open POST /sessions.
func (h *SessionsHandler) Open(c *fiber.Ctx) error {
	agent, err := requireAgent(c)
	if err != nil {
		return err
	}
	var req dto.OpenSessionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	sess, err := h.service.Open(c.UserContext(), agent, service.OpenSessionInput{
		TemplateKey: req.Template,
		TicketID:    req.TicketID,
		DraftID:     req.DraftID,
		Values:      req.Values,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": sessionResponse(sess)})
}

// Get GET /sessions/:id.
func (h *SessionsHandler) Get(c *fiber.Ctx) error {
	sess, err := h.service.Get(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sessionResponse(sess)})
}

// SetField PATCH /sessions/:id/fields/:field.
func (h *SessionsHandler) SetField(c *fiber.Ctx) error {
	var req dto.SetFieldRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	id := c.Params("id")
	changes, err := h.service.SetField(c.UserContext(), id, c.Params("field"), req.Value, req.Confirm)
	if err != nil {
		return err
	}
	sess, err := h.service.Get(id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SetFieldResponse{
		Changes: fieldChanges(changes),
		Session: sessionResponse(sess),
	}})
}

// Mount POST /sessions/:id/mount/:field.
func (h *SessionsHandler) Mount(c *fiber.Ctx) error {
	if err := h.service.Mount(c.Params("id"), c.Params("field")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Close DELETE /sessions/:id.
func (h *SessionsHandler) Close(c *fiber.Ctx) error {
	if err := h.service.Close(c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

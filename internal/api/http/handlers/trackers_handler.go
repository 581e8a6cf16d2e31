package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tracker-central/internal/api/dto"
	"github.com/spec-kit/tracker-central/internal/service"
)

// TrackersHandler submits tracker forms and reads ticket associations.
type TrackersHandler struct {
	trackers     *service.TrackerService
	associations *service.AssociationService
}

// NewTrackersHandler constructs handler.
func NewTrackersHandler(trackers *service.TrackerService, associations *service.AssociationService) *TrackersHandler {
	return &TrackersHandler{trackers: trackers, associations: associations}
}

// Create POST /trackers.
func (h *TrackersHandler) Create(c *fiber.Ctx) error {
	agent, err := requireAgent(c)
	if err != nil {
		return err
	}
	var req dto.CreateTrackerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	related := req.RelatedTicketIDs
	if len(related) == 0 && req.RelatedTickets != "" {
		if related, err = parseRelated(req.RelatedTickets); err != nil {
			return err
		}
	}

	res, err := h.trackers.Create(c.UserContext(), agent, service.CreateTrackerInput{
		TemplateKey:      req.Template,
		SessionID:        req.SessionID,
		Values:           req.Values,
		RelatedTicketIDs: related,
		Email:            req.Email,
		GroupID:          req.GroupID,
		ResponderID:      req.ResponderID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.TrackerResponse{
		TrackerID: res.TrackerID,
		Subject:   res.Subject,
		URL:       res.URL,
	}})
}

// Associations GET /tickets/:id/associations.
func (h *TrackersHandler) Associations(c *fiber.Ctx) error {
	id, err := parseTicketID(c)
	if err != nil {
		return err
	}
	summary, err := h.associations.Summary(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": associationResponse(summary)})
}

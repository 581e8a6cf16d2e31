package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/spec-kit/tracker-central/internal/events"
	"github.com/spec-kit/tracker-central/internal/templates"
)

// NotificationService reacts to tracker events by annotating the
// originating ticket.
type NotificationService struct {
	dispatcher events.Dispatcher
	helpdesk   Helpdesk
	registry   *templates.Registry
	markdown   goldmark.Markdown
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, helpdesk Helpdesk, registry *templates.Registry, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		helpdesk:   helpdesk,
		registry:   registry,
		markdown:   goldmark.New(),
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTrackerCreated, n.handleTrackerCreated)
	n.dispatcher.Subscribe(events.EventDraftSaved, n.handleDraftSaved)
	n.dispatcher.Subscribe(events.EventSessionExpired, n.handleSessionExpired)
}

// handleTrackerCreated tags the originating ticket and leaves a private
// note. Failures are logged and never reach the submitter.
func (n *NotificationService) handleTrackerCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TrackerCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	n.logger.Info("TrackerCreated",
		zap.String("template", payload.TemplateKey),
		zap.Int64("tracker_id", payload.TrackerID),
		zap.String("agent_id", event.AgentID),
	)
	if payload.OriginID == nil || n.helpdesk == nil || n.registry == nil {
		return nil
	}
	tpl, err := n.registry.Get(payload.TemplateKey)
	if err != nil || tpl.OriginTag == nil {
		return nil
	}
	origin := *payload.OriginID
	rule := tpl.OriginTag

	ticket, err := n.helpdesk.GetTicket(ctx, origin)
	if err != nil {
		n.logger.Warn("origin ticket lookup failed", zap.Int64("ticket_id", origin), zap.Error(err))
		return nil
	}
	if ticket.HasTag(rule.Tag) {
		n.logger.Debug("origin ticket already tagged", zap.Int64("ticket_id", origin), zap.String("tag", rule.Tag))
		return nil
	}

	note := rule.Note
	tags := append(append([]string{}, ticket.Tags...), rule.Tag)
	if err := n.helpdesk.UpdateTicketTags(ctx, origin, tags); err != nil {
		n.logger.Warn("origin ticket tagging failed",
			zap.Int64("ticket_id", origin),
			zap.String("tag", rule.Tag),
			zap.Error(err),
		)
		note = rule.FallbackNote
	}
	if note == "" {
		return nil
	}

	body, err := n.noteBody(note, payload)
	if err != nil {
		n.logger.Warn("render origin note failed", zap.Error(err))
		return nil
	}
	if _, err := n.helpdesk.AddNote(ctx, origin, body, true); err != nil {
		n.logger.Warn("origin note failed", zap.Int64("ticket_id", origin), zap.Error(err))
	}
	return nil
}

func (n *NotificationService) handleDraftSaved(_ context.Context, event events.Event) error {
	n.logger.Debug("DraftSaved", zap.String("agent_id", event.AgentID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleSessionExpired(_ context.Context, event events.Event) error {
	n.logger.Debug("SessionExpired", zap.Any("payload", event.Payload))
	return nil
}

// noteBody renders the note text and a link to the tracker as HTML.
func (n *NotificationService) noteBody(note string, payload events.TrackerCreatedPayload) (string, error) {
	src := note
	if payload.URL != "" {
		src += fmt.Sprintf("\n\nTracker: [#%d](%s)", payload.TrackerID, payload.URL)
	}
	var buf bytes.Buffer
	if err := n.markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

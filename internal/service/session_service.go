package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/tracker-central/internal/domain"
	"github.com/spec-kit/tracker-central/internal/events"
	"github.com/spec-kit/tracker-central/internal/form"
	"github.com/spec-kit/tracker-central/internal/observability"
	"github.com/spec-kit/tracker-central/internal/repository"
	"github.com/spec-kit/tracker-central/internal/templates"
	apperrors "github.com/spec-kit/tracker-central/pkg/util"
)

// SessionService opens and edits form sessions.
type SessionService struct {
	registry   *templates.Registry
	store      *form.Store
	loader     *TicketContextLoader
	drafts     repository.DraftRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// SessionDependencies bundles collaborators of the session service.
type SessionDependencies struct {
	Registry   *templates.Registry
	Store      *form.Store
	Loader     *TicketContextLoader
	Drafts     repository.DraftRepository
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// OpenSessionInput describes a form to open. DraftID seeds the values and
// template of a saved draft; TemplateKey is then optional.
type OpenSessionInput struct {
	TemplateKey string
	TicketID    *int64
	DraftID     string
	Values      domain.FieldValues
}

// NewSessionService constructs the service.
func NewSessionService(deps SessionDependencies) *SessionService {
	return &SessionService{
		registry:   deps.Registry,
		store:      deps.Store,
		loader:     deps.Loader,
		drafts:     deps.Drafts,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

// Open resolves the template, loads the ticket context when a ticket is
// given and registers a new session.
func (s *SessionService) Open(ctx context.Context, agent *domain.Agent, in OpenSessionInput) (*form.Session, error) {
	values := domain.FieldValues{}
	key := in.TemplateKey
	ticketID := in.TicketID

	if in.DraftID != "" {
		draft, err := s.ownedDraft(ctx, agent, in.DraftID)
		if err != nil {
			return nil, err
		}
		if key == "" {
			key = draft.TemplateKey
		}
		if key != draft.TemplateKey {
			return nil, apperrors.NewBadRequest("draft belongs to template " + draft.TemplateKey)
		}
		if ticketID == nil {
			ticketID = draft.TicketID
		}
		for k, v := range draft.Values {
			values[k] = v
		}
	}
	for k, v := range in.Values {
		values[k] = v
	}

	tpl, err := resolveTemplate(s.registry, key)
	if err != nil {
		return nil, err
	}

	var tc *domain.TicketContext
	if ticketID != nil {
		if tc, _, err = s.loader.Load(ctx, *ticketID); err != nil {
			return nil, err
		}
	}

	sess := form.NewSession(tpl, tc, form.WithValues(values))
	s.store.Put(sess)
	s.metrics.SetOpenSessions(s.store.Len())
	s.logger.Debug("session opened",
		zap.String("session_id", sess.ID()),
		zap.String("template", tpl.Key),
		zap.Bool("ticket_context", tc != nil),
	)
	return sess, nil
}

// Get returns a live session.
func (s *SessionService) Get(id string) (*form.Session, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, apperrors.NewNotFound("session", map[string]any{"id": id})
	}
	return sess, nil
}

// SetField writes one value. confirm answers the xcode-unknown prompt; a
// missing confirmation yields CONFIRMATION_REQUIRED carrying the prompt.
func (s *SessionService) SetField(ctx context.Context, id, field, value string, confirm bool) ([]form.Change, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	changes, err := sess.SetWith(ctx, field, value, form.Answer(confirm))
	switch {
	case err == nil:
		return changes, nil
	case errors.Is(err, form.ErrUnknownField):
		return nil, apperrors.NewNotFound("field", map[string]any{"field": field})
	case errors.Is(err, form.ErrReadOnlyField):
		return nil, apperrors.NewBadRequest("field " + field + " is read-only")
	case errors.Is(err, form.ErrConfirmationDeclined):
		prompt := "Confirmation required"
		if xu := sess.Template().XcodeUnknown; xu != nil {
			prompt = xu.Confirm
		}
		return nil, apperrors.NewConfirmationRequired(prompt)
	default:
		return nil, err
	}
}

// Mount marks a field as rendered.
func (s *SessionService) Mount(id, field string) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := sess.Mount(field); err != nil {
		return apperrors.NewNotFound("field", map[string]any{"field": field})
	}
	return nil
}

// Close drops a session.
func (s *SessionService) Close(id string) error {
	if !s.store.Delete(id) {
		return apperrors.NewNotFound("session", map[string]any{"id": id})
	}
	s.metrics.SetOpenSessions(s.store.Len())
	return nil
}

// Sweep evicts expired sessions and publishes session.expired for each.
func (s *SessionService) Sweep(ctx context.Context) int {
	evicted := s.store.Sweep()
	for _, sess := range evicted {
		payload := events.SessionExpiredPayload{
			SessionID:   sess.ID(),
			TemplateKey: sess.Template().Key,
			LastActive:  sess.UpdatedAt(),
		}
		if tc := sess.TicketContext(); tc != nil {
			payload.TicketID = tc.TicketID
		}
		if s.dispatcher != nil {
			_ = s.dispatcher.Publish(ctx, events.New(events.EventSessionExpired, "", payload))
		}
	}
	s.metrics.SetOpenSessions(s.store.Len())
	return len(evicted)
}

func (s *SessionService) ownedDraft(ctx context.Context, agent *domain.Agent, id string) (*domain.Draft, error) {
	if s.drafts == nil {
		return nil, apperrors.NewNotFound("draft", map[string]any{"id": id})
	}
	draft, err := s.drafts.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if agent == nil || draft.AgentID != agent.ID {
		return nil, apperrors.NewNotFound("draft", map[string]any{"id": id})
	}
	return draft, nil
}

func resolveTemplate(registry *templates.Registry, key string) (*domain.Template, error) {
	if key == "" {
		return nil, apperrors.NewValidationError("template is required", nil)
	}
	tpl, err := registry.Resolved(key)
	if err != nil {
		if errors.Is(err, templates.ErrTemplateNotFound) {
			return nil, apperrors.NewNotFound("template", map[string]any{"key": key})
		}
		return nil, err
	}
	return tpl, nil
}

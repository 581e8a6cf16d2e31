package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/tracker-central/internal/domain"
	"github.com/spec-kit/tracker-central/internal/events"
	"github.com/spec-kit/tracker-central/internal/repository"
	"github.com/spec-kit/tracker-central/internal/templates"
	apperrors "github.com/spec-kit/tracker-central/pkg/util"
)

// DraftService stores partially filled forms per agent.
type DraftService struct {
	drafts     repository.DraftRepository
	registry   *templates.Registry
	sessions   *SessionService
	dispatcher events.Dispatcher
	limit      int
	logger     *zap.Logger
}

// DraftDependencies bundles collaborators of the draft service.
type DraftDependencies struct {
	Drafts     repository.DraftRepository
	Registry   *templates.Registry
	Sessions   *SessionService
	Dispatcher events.Dispatcher
	Limit      int
	Logger     *zap.Logger
}

// SaveDraftInput describes a draft. When SessionID is set the values and
// template come from the live session.
type SaveDraftInput struct {
	TemplateKey string
	SessionID   string
	TicketID    *int64
	Title       string
	Values      domain.FieldValues
}

// DraftListFilter narrows an agent's drafts.
type DraftListFilter struct {
	TemplateKey *string
	TicketID    *int64
	Limit       int
	Offset      int
}

// NewDraftService constructs the service.
func NewDraftService(deps DraftDependencies) *DraftService {
	return &DraftService{
		drafts:     deps.Drafts,
		registry:   deps.Registry,
		sessions:   deps.Sessions,
		dispatcher: deps.Dispatcher,
		limit:      deps.Limit,
		logger:     deps.Logger,
	}
}

// Create saves a new draft for agent.
func (s *DraftService) Create(ctx context.Context, agent *domain.Agent, in SaveDraftInput) (*domain.Draft, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	draft := &domain.Draft{ID: uuid.NewString(), AgentID: agent.ID}
	if err := s.fill(draft, in); err != nil {
		return nil, err
	}
	if err := s.drafts.Create(ctx, draft); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, agent, draft, true)
	return draft, nil
}

// Update replaces the content of one of agent's drafts.
func (s *DraftService) Update(ctx context.Context, agent *domain.Agent, id string, in SaveDraftInput) (*domain.Draft, error) {
	draft, err := s.Get(ctx, agent, id)
	if err != nil {
		return nil, err
	}
	if in.TemplateKey == "" && in.SessionID == "" {
		in.TemplateKey = draft.TemplateKey
	}
	if err := s.fill(draft, in); err != nil {
		return nil, err
	}
	if err := s.drafts.Update(ctx, draft); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, agent, draft, false)
	return draft, nil
}

// Get returns one of agent's drafts. Drafts of other agents are reported
// as missing.
func (s *DraftService) Get(ctx context.Context, agent *domain.Agent, id string) (*domain.Draft, error) {
	draft, err := s.drafts.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if agent == nil || draft.AgentID != agent.ID {
		return nil, apperrors.NewNotFound("draft", map[string]any{"id": id})
	}
	return draft, nil
}

// Delete removes one of agent's drafts.
func (s *DraftService) Delete(ctx context.Context, agent *domain.Agent, id string) error {
	if _, err := s.Get(ctx, agent, id); err != nil {
		return err
	}
	return apperrors.MapError(s.drafts.Delete(ctx, id))
}

// List returns agent's drafts, most recently updated first.
func (s *DraftService) List(ctx context.Context, agent *domain.Agent, filter DraftListFilter) ([]domain.Draft, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	drafts, err := s.drafts.List(ctx, repository.DraftFilter{
		AgentID:     agent.ID,
		TemplateKey: filter.TemplateKey,
		TicketID:    filter.TicketID,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return drafts, nil
}

// Cleanup keeps the newest drafts of every agent up to the configured limit.
func (s *DraftService) Cleanup(ctx context.Context) (int64, error) {
	if s.limit <= 0 {
		return 0, nil
	}
	removed, err := s.drafts.Prune(ctx, s.limit)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("drafts pruned", zap.Int64("removed", removed), zap.Int("keep", s.limit))
	}
	return removed, nil
}

func (s *DraftService) fill(draft *domain.Draft, in SaveDraftInput) error {
	var (
		tpl    *domain.Template
		values domain.FieldValues
	)
	if in.SessionID != "" && s.sessions != nil {
		sess, err := s.sessions.Get(in.SessionID)
		if err != nil {
			return err
		}
		tpl, values = sess.Template(), sess.Values()
		if tc := sess.TicketContext(); tc != nil && in.TicketID == nil {
			id := tc.TicketID
			in.TicketID = &id
		}
	} else {
		var err error
		if tpl, err = resolveTemplate(s.registry, in.TemplateKey); err != nil {
			return err
		}
		values = in.Values.Clone()
	}
	if values == nil {
		values = domain.FieldValues{}
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = values.Trimmed(tpl.SubjectTarget())
	}
	if title == "" {
		title = tpl.Title
	}

	draft.TemplateKey = tpl.Key
	draft.Title = title
	draft.Values = values
	if in.TicketID != nil {
		draft.TicketID = in.TicketID
	}
	return nil
}

func (s *DraftService) publish(ctx context.Context, agent *domain.Agent, draft *domain.Draft, created bool) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.New(events.EventDraftSaved, agent.ID, events.DraftSavedPayload{
		DraftID:     draft.ID,
		TemplateKey: draft.TemplateKey,
		Created:     created,
	}))
}

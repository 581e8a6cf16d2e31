package service

import (
	"context"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/spec-kit/tracker-central/internal/cache"
	"github.com/spec-kit/tracker-central/internal/domain"
	"github.com/spec-kit/tracker-central/internal/events"
	"github.com/spec-kit/tracker-central/internal/form"
	"github.com/spec-kit/tracker-central/internal/observability"
	"github.com/spec-kit/tracker-central/internal/render"
	"github.com/spec-kit/tracker-central/internal/repository"
	"github.com/spec-kit/tracker-central/internal/templates"
	apperrors "github.com/spec-kit/tracker-central/pkg/util"
)

// CreateTrackerInput is a tracker submission. Either SessionID or
// TemplateKey with Values identifies the form.
type CreateTrackerInput struct {
	TemplateKey      string
	SessionID        string
	Values           domain.FieldValues
	RelatedTicketIDs []int64
	Email            string
	GroupID          *int64
	ResponderID      *int64
}

// CreateTrackerResult describes the created tracker.
type CreateTrackerResult struct {
	TrackerID int64  `json:"trackerId"`
	Subject   string `json:"subject"`
	URL       string `json:"url"`
}

// TrackerService submits tracker forms to Freshdesk.
type TrackerService struct {
	registry   *templates.Registry
	sessions   *SessionService
	helpdesk   Helpdesk
	links      repository.TrackerLinkRepository
	deduper    *cache.Deduper
	window     time.Duration
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// TrackerDependencies bundles collaborators of the tracker service.
type TrackerDependencies struct {
	Registry     *templates.Registry
	Sessions     *SessionService
	Helpdesk     Helpdesk
	Links        repository.TrackerLinkRepository
	Deduper      *cache.Deduper
	DedupeWindow time.Duration
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
}

// NewTrackerService constructs the service.
func NewTrackerService(deps TrackerDependencies) *TrackerService {
	return &TrackerService{
		registry:   deps.Registry,
		sessions:   deps.Sessions,
		helpdesk:   deps.Helpdesk,
		links:      deps.Links,
		deduper:    deps.Deduper,
		window:     deps.DedupeWindow,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

type submission struct {
	tpl     *domain.Template
	values  domain.FieldValues
	tc      *domain.TicketContext
	session *form.Session
}

// Create validates the form, creates the tracker ticket and records a link
// to its originating ticket.
func (s *TrackerService) Create(ctx context.Context, agent *domain.Agent, in CreateTrackerInput) (*CreateTrackerResult, error) {
	if s.helpdesk == nil {
		return nil, apperrors.NewConfigurationError(HelpdeskNotConfigured)
	}
	sub, err := s.resolve(in)
	if err != nil {
		return nil, err
	}
	subject := s.subject(sub)
	if msgs := form.Validate(sub.tpl, sub.values); len(msgs) > 0 {
		return nil, apperrors.NewFieldErrors(msgs)
	}
	description := render.GenerateDescription(sub.tpl, sub.values)
	related := relatedIDs(in.RelatedTicketIDs, sub.tc)

	var source *domain.Ticket
	if len(related) > 0 {
		source, err = s.helpdesk.GetTicket(ctx, related[0])
		if err != nil {
			s.logger.Warn("source ticket lookup failed", zap.Int64("ticket_id", related[0]), zap.Error(err))
			source = nil
		}
	}
	tc := sub.tc
	if tc == nil && source != nil {
		derived := domain.NewTicketContext(source, nil)
		tc = &derived
	}

	email := firstNonEmpty(in.Email, contextEmail(tc), agentEmail(agent))
	if err := requireSubmission(email, subject, description); err != nil {
		return nil, err
	}

	vip := tc != nil && tc.IsVIP
	fp := Fingerprint(sub.tpl.Key, subject, description, related)
	if err := s.claim(ctx, fp); err != nil {
		return nil, err
	}

	payload := BuildTicketPayload(PayloadInput{
		Template:    sub.tpl,
		Values:      sub.values,
		Email:       email,
		Subject:     subject,
		Description: description,
		RelatedIDs:  related,
		GroupID:     firstID(in.GroupID, sub.values.Trimmed("groupField"), contextGroup(tc)),
		ResponderID: firstID(in.ResponderID, sub.values.Trimmed("agentField"), contextResponder(tc)),
		Source:      source,
		VIP:         vip,
	})

	created, err := s.helpdesk.CreateTicket(ctx, payload)
	if err != nil {
		s.release(ctx, fp)
		s.logger.Error("tracker creation failed", zap.String("template", sub.tpl.Key), zap.Error(err))
		return nil, helpdeskError("Failed to create ticket", err)
	}

	var origin *int64
	if len(related) > 0 {
		origin = &related[0]
	}
	s.record(ctx, agent, sub.tpl, created.ID, origin, subject, fp)

	url := s.helpdesk.TicketURL(created.ID)
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.New(events.EventTrackerCreated, agentID(agent), events.TrackerCreatedPayload{
			TemplateKey: sub.tpl.Key,
			TrackerID:   created.ID,
			OriginID:    origin,
			Subject:     subject,
			URL:         url,
			VIP:         vip,
		}))
	}
	if sub.session != nil {
		_ = s.sessions.Close(sub.session.ID())
	}

	s.logger.Info("tracker created",
		zap.String("template", sub.tpl.Key),
		zap.Int64("tracker_id", created.ID),
		zap.Int64s("related", related),
	)
	return &CreateTrackerResult{TrackerID: created.ID, Subject: subject, URL: url}, nil
}

func (s *TrackerService) resolve(in CreateTrackerInput) (*submission, error) {
	if in.SessionID != "" {
		if s.sessions == nil {
			return nil, apperrors.NewNotFound("session", map[string]any{"id": in.SessionID})
		}
		sess, err := s.sessions.Get(in.SessionID)
		if err != nil {
			return nil, err
		}
		if in.TemplateKey != "" && in.TemplateKey != sess.Template().Key {
			return nil, apperrors.NewBadRequest("session belongs to template " + sess.Template().Key)
		}
		return &submission{tpl: sess.Template(), values: sess.Values(), tc: sess.TicketContext(), session: sess}, nil
	}

	tpl, err := resolveTemplate(s.registry, in.TemplateKey)
	if err != nil {
		return nil, err
	}
	values := in.Values.Clone()
	if values == nil {
		values = domain.FieldValues{}
	}
	form.Prepare(tpl, values, nil)
	return &submission{tpl: tpl, values: values}, nil
}

// subject returns the subject target value, formatting it when the form
// never produced one.
func (s *TrackerService) subject(sub *submission) string {
	target := sub.tpl.SubjectTarget()
	if v := sub.values.Trimmed(target); v != "" {
		return v
	}
	v := strings.TrimSpace(render.SubjectFor(sub.tpl, sub.values, sub.tc))
	if v == "" {
		v = sub.tpl.Title + " - " + s.now().Format("2006-01-02")
	}
	sub.values[target] = v
	return v
}

func (s *TrackerService) claim(ctx context.Context, fp string) error {
	if s.deduper != nil {
		ok, err := s.deduper.Claim(ctx, fp)
		switch {
		case err != nil:
			s.logger.Warn("submission dedupe unavailable", zap.Error(err))
		case !ok:
			return duplicateSubmission(fp)
		}
	}
	if s.links == nil || s.window <= 0 {
		return nil
	}
	link, err := s.links.FindByFingerprint(ctx, fp, s.now().Add(-s.window))
	switch {
	case err == nil:
		s.release(ctx, fp)
		return apperrors.NewConflict("An identical tracker was just created", map[string]any{
			"fingerprint": fp,
			"trackerId":   link.TrackerID,
		})
	case !errors.Is(err, pgx.ErrNoRows):
		s.logger.Warn("tracker link lookup failed", zap.Error(err))
	}
	return nil
}

func (s *TrackerService) release(ctx context.Context, fp string) {
	if s.deduper == nil {
		return
	}
	if err := s.deduper.Release(ctx, fp); err != nil {
		s.logger.Warn("release submission fingerprint failed", zap.Error(err))
	}
}

func (s *TrackerService) record(ctx context.Context, agent *domain.Agent, tpl *domain.Template, trackerID int64, origin *int64, subject, fp string) {
	s.metrics.RecordTracker(tpl.Key)
	if s.links == nil {
		return
	}
	link := &domain.TrackerLink{
		ID:          uuid.NewString(),
		TrackerID:   trackerID,
		OriginID:    origin,
		TemplateKey: tpl.Key,
		Subject:     subject,
		AgentID:     agentID(agent),
		Fingerprint: fp,
	}
	if err := s.links.Create(ctx, link); err != nil {
		s.logger.Warn("persist tracker link failed", zap.Int64("tracker_id", trackerID), zap.Error(err))
	}
}

// Fingerprint identifies a submission by its template, subject,
// description and related tickets.
func Fingerprint(templateKey, subject, description string, related []int64) string {
	h, _ := blake2b.New256(nil)
	for _, part := range []string{templateKey, subject, description} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	for _, id := range related {
		h.Write([]byte(strconv.FormatInt(id, 10)))
		h.Write([]byte{','})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func duplicateSubmission(fp string) error {
	return apperrors.NewConflict("An identical tracker was just submitted", map[string]any{"fingerprint": fp})
}

func requireSubmission(email, subject, description string) error {
	switch {
	case email == "":
		return apperrors.NewValidationError("Requester email is required to create a ticket", nil)
	case strings.TrimSpace(subject) == "":
		return apperrors.NewValidationError("Subject is required to create a ticket", nil)
	case strings.TrimSpace(description) == "":
		return apperrors.NewValidationError("Description is required to create a ticket", nil)
	}
	return nil
}

// relatedIDs keeps the submitted order and falls back to the ticket the
// form was opened from.
func relatedIDs(ids []int64, tc *domain.TicketContext) []int64 {
	out := make([]int64, 0, len(ids)+1)
	seen := map[int64]bool{}
	for _, id := range ids {
		if id > 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	if len(out) == 0 && tc != nil && tc.TicketID > 0 {
		out = append(out, tc.TicketID)
	}
	return out
}

func firstID(explicit *int64, field string, fallback *int64) *int64 {
	if explicit != nil {
		return explicit
	}
	if id, err := strconv.ParseInt(field, 10, 64); err == nil && id > 0 {
		return &id
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func contextEmail(tc *domain.TicketContext) string {
	if tc == nil {
		return ""
	}
	return tc.RequesterEmail
}

func contextGroup(tc *domain.TicketContext) *int64 {
	if tc == nil {
		return nil
	}
	return tc.GroupID
}

func contextResponder(tc *domain.TicketContext) *int64 {
	if tc == nil {
		return nil
	}
	return tc.ResponderID
}

func agentEmail(agent *domain.Agent) string {
	if agent == nil {
		return ""
	}
	return agent.Email
}

func agentID(agent *domain.Agent) string {
	if agent == nil {
		return ""
	}
	return agent.ID
}

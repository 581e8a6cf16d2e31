package form

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/tracker-central/internal/domain"
)

var (
	// ErrUnknownField is returned when a field id is not declared by the template.
	ErrUnknownField = errors.New("unknown field")
	// ErrReadOnlyField is returned when a derived field is written directly.
	ErrReadOnlyField = errors.New("field is read-only")
	// ErrConfirmationDeclined is returned when the agent declines a confirmation.
	ErrConfirmationDeclined = errors.New("confirmation declined")
)

// Confirmer asks the agent a yes/no question on behalf of the form.
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, message string) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, message string) (bool, error) {
	return f(ctx, message)
}

// Answer returns a Confirmer that always replies ok.
func Answer(ok bool) Confirmer {
	return ConfirmFunc(func(context.Context, string) (bool, error) { return ok, nil })
}

// Change reports a field whose value changed.
type Change struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	ID          string             `json:"id"`
	TemplateKey string             `json:"template"`
	TicketID    int64              `json:"ticketId,omitempty"`
	Values      domain.FieldValues `json:"values"`
	Subject     string             `json:"subject"`
	Hidden      []string           `json:"hidden"`
	Required    []string           `json:"required"`
	Mounted     []string           `json:"mounted"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// Session owns the values of one opened tracker form. All mutations go through
// Set so derived fields and the subject line stay consistent. Subscribers are
// called after the session lock is released.
type Session struct {
	id        string
	tpl       *domain.Template
	tc        *domain.TicketContext
	confirmer Confirmer
	now       func() time.Time

	// confirmMu serializes writes to the xcode-unknown checkbox from the
	// prompt through apply so only one of two concurrent checks asks.
	confirmMu sync.Mutex

	mu        sync.Mutex
	values    domain.FieldValues
	mounted   map[string]bool
	onMount   map[string][]func()
	listeners []func(Change)
	updatedAt time.Time
}

// Option customizes a new Session.
type Option func(*Session)

// WithConfirmer sets the default confirmer used by Set.
func WithConfirmer(c Confirmer) Option {
	return func(s *Session) { s.confirmer = c }
}

// WithClock overrides the session clock.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithValues seeds the session before defaults and populators run, e.g. from
// a saved draft.
func WithValues(values domain.FieldValues) Option {
	return func(s *Session) {
		for k, v := range values {
			s.values[k] = v
		}
	}
}

// NewSession opens tpl for the ticket described by tc, which may be nil.
// Defaults and ticket populators fill empty fields, then every sync rule and
// the subject line run once.
func NewSession(tpl *domain.Template, tc *domain.TicketContext, opts ...Option) *Session {
	s := &Session{
		id:        uuid.NewString(),
		tpl:       tpl,
		tc:        tc,
		confirmer: Answer(false),
		now:       time.Now,
		values:    domain.FieldValues{},
		mounted:   map[string]bool{},
		onMount:   map[string][]func(){},
	}
	for _, opt := range opts {
		opt(s)
	}
	ApplyDefaults(tpl, s.values, s.now())
	Populate(tpl, s.values, tc)
	ClearHidden(tpl, s.values)
	Sync(tpl, s.values, nil)
	UpdateSubject(tpl, s.values, tc)
	s.updatedAt = s.now()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Template returns the template the session was opened with.
func (s *Session) Template() *domain.Template { return s.tpl }

// TicketContext returns the originating ticket context, or nil.
func (s *Session) TicketContext() *domain.TicketContext { return s.tc }

// Values returns a copy of the current values.
func (s *Session) Values() domain.FieldValues {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values.Clone()
}

// UpdatedAt returns the time of the last mutation.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Subscribe registers fn for every future change.
func (s *Session) Subscribe(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Set writes value to field using the session's confirmer.
func (s *Session) Set(ctx context.Context, field, value string) ([]Change, error) {
	return s.SetWith(ctx, field, value, s.confirmer)
}

// SetWith writes value to field, then clears hidden fields, runs the sync
// rules and updates the subject. It returns every change in application
// order. Checking the xcode-unknown box asks confirm first; a decline leaves
// the session untouched and returns ErrConfirmationDeclined. Concurrent
// checks of the box prompt once.
func (s *Session) SetWith(ctx context.Context, field, value string, confirm Confirmer) ([]Change, error) {
	f, ok := s.tpl.Field(field)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if f.ReadOnly {
		return nil, fmt.Errorf("%w: %s", ErrReadOnlyField, field)
	}

	if xu := s.tpl.XcodeUnknown; xu != nil && xu.Checkbox == field {
		s.confirmMu.Lock()
		defer s.confirmMu.Unlock()

		checked := domain.IsPresent(value) && (domain.FieldValues{field: value}).Checked(field)
		s.mu.Lock()
		wasChecked := s.values.Checked(field)
		s.mu.Unlock()
		if checked && !wasChecked {
			if confirm == nil {
				confirm = Answer(false)
			}
			yes, err := confirm.Confirm(ctx, xu.Confirm)
			if err != nil {
				return nil, fmt.Errorf("confirm %s: %w", field, err)
			}
			if !yes {
				return nil, ErrConfirmationDeclined
			}
		}
	}

	s.mu.Lock()
	changes := s.apply(field, value)
	listeners := append([]func(Change){}, s.listeners...)
	s.mu.Unlock()

	for _, c := range changes {
		for _, fn := range listeners {
			fn(c)
		}
	}
	return changes, nil
}

// apply must be called with mu held.
func (s *Session) apply(field, value string) []Change {
	if s.values.Get(field) == value {
		return nil
	}
	before := s.values.Clone()
	s.values[field] = value

	order := []string{field}
	order = append(order, ClearHidden(s.tpl, s.values)...)
	order = append(order, Sync(s.tpl, s.values, order)...)
	if UpdateSubject(s.tpl, s.values, s.tc) {
		order = append(order, s.tpl.SubjectTarget())
	}
	s.updatedAt = s.now()

	var changes []Change
	seen := map[string]bool{}
	for _, id := range order {
		if seen[id] || before.Get(id) == s.values.Get(id) {
			continue
		}
		seen[id] = true
		changes = append(changes, Change{Field: id, Value: s.values.Get(id)})
	}
	return changes
}

// Mount marks field as rendered and runs the callbacks waiting for it.
func (s *Session) Mount(field string) error {
	if !s.tpl.HasField(field) {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	s.mu.Lock()
	s.mounted[field] = true
	pending := s.onMount[field]
	delete(s.onMount, field)
	s.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
	return nil
}

// OnMount runs fn once field is mounted, immediately if it already is.
func (s *Session) OnMount(field string, fn func()) {
	s.mu.Lock()
	if !s.mounted[field] {
		s.onMount[field] = append(s.onMount[field], fn)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	fn()
}

// Validate checks the current values.
func (s *Session) Validate() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Validate(s.tpl, s.values)
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:          s.id,
		TemplateKey: s.tpl.Key,
		Values:      s.values.Clone(),
		Subject:     s.values.Get(s.tpl.SubjectTarget()),
		Hidden:      []string{},
		Required:    []string{},
		Mounted:     []string{},
		UpdatedAt:   s.updatedAt,
	}
	if s.tc != nil {
		snap.TicketID = s.tc.TicketID
	}
	seen := map[string]bool{}
	for _, f := range s.tpl.Fields() {
		if seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		if !IsVisible(f, s.values) {
			snap.Hidden = append(snap.Hidden, f.ID)
		}
		if IsRequired(s.tpl, f, s.values) {
			snap.Required = append(snap.Required, f.ID)
		}
		if s.mounted[f.ID] {
			snap.Mounted = append(snap.Mounted, f.ID)
		}
	}
	return snap
}

package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/tracker-central/internal/domain"
	"github.com/spec-kit/tracker-central/internal/freshdesk"
	"github.com/spec-kit/tracker-central/internal/templates"
)

const issueTemplate = `
key: issue
title: Issue
sections:
  - id: s
    title: S
    fields:
      - {id: districtName, type: text, label: District}
      - {id: issue, type: text, label: Issue, required: true}
      - {id: formattedSubject, type: text, label: Subject, readOnly: true}
subject:
  format: default
body:
  blocks:
    - {kind: line, label: Issue, field: issue}
`

const escalationTemplate = `
key: escalation
title: Escalation
sections:
  - id: s
    title: S
    fields:
      - {id: districtName, type: text, label: District}
      - {id: issue, type: text, label: Issue, required: true}
      - {id: formattedSubject, type: text, label: Subject, readOnly: true}
subject:
  format: default
originTag:
  tag: ESCALATED
  note: "Escalated to **engineering**."
  fallbackNote: "Escalated to engineering. (Tag could not be added)"
priorityWhenVIP: 4
body:
  blocks:
    - {kind: line, label: Issue, field: issue}
`

func testRegistry(t *testing.T) *templates.Registry {
	t.Helper()
	reg, err := templates.LoadFS(fstest.MapFS{
		"defs/issue.yaml":      {Data: []byte(issueTemplate)},
		"defs/escalation.yaml": {Data: []byte(escalationTemplate)},
	}, "defs")
	require.NoError(t, err)
	return reg
}

type noteCall struct {
	TicketID int64
	Body     string
	Private  bool
}

// fakeHelpdesk is an in-memory Helpdesk.
type fakeHelpdesk struct {
	mu         sync.Mutex
	tickets    map[int64]*domain.Ticket
	associated map[int64][]domain.Ticket
	prime      map[int64]*domain.Ticket
	created    []freshdesk.TicketPayload
	tagUpdates map[int64][]string
	notes      []noteCall
	nextID     int64

	createErr error
	tagErr    error
	primeErr  error
}

func newFakeHelpdesk() *fakeHelpdesk {
	return &fakeHelpdesk{
		tickets:    map[int64]*domain.Ticket{},
		associated: map[int64][]domain.Ticket{},
		prime:      map[int64]*domain.Ticket{},
		tagUpdates: map[int64][]string{},
		nextID:     1000,
	}
}

func notFound() error {
	return &freshdesk.APIError{Status: 404}
}

func (f *fakeHelpdesk) GetTicket(_ context.Context, id int64) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return nil, notFound()
	}
	cp := *t
	return &cp, nil
}

func (f *fakeHelpdesk) GetAssociatedTickets(_ context.Context, id int64) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Ticket{}, f.associated[id]...), nil
}

func (f *fakeHelpdesk) GetPrimeAssociation(_ context.Context, id int64) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.primeErr != nil {
		return nil, f.primeErr
	}
	t, ok := f.prime[id]
	if !ok {
		return nil, notFound()
	}
	return t, nil
}

func (f *fakeHelpdesk) CreateTicket(_ context.Context, payload freshdesk.TicketPayload) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, payload)
	f.nextID++
	return &domain.Ticket{ID: f.nextID, Subject: payload.Subject}, nil
}

func (f *fakeHelpdesk) UpdateTicketTags(_ context.Context, id int64, tags []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tagErr != nil {
		return f.tagErr
	}
	f.tagUpdates[id] = tags
	return nil
}

func (f *fakeHelpdesk) AddNote(_ context.Context, id int64, body string, private bool) (*freshdesk.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, noteCall{TicketID: id, Body: body, Private: private})
	return &freshdesk.Note{ID: int64(len(f.notes)), TicketID: id, Body: body, Private: private}, nil
}

func (f *fakeHelpdesk) TicketURL(id int64) string {
	return fmt.Sprintf("https://acme.freshdesk.com/a/tickets/%d", id)
}

// fakeCompanies resolves companies from a map; ids in fail return an error.
type fakeCompanies struct {
	mu    sync.Mutex
	names map[int64]string
	fail  map[int64]bool
	calls int
}

func (f *fakeCompanies) Get(_ context.Context, id int64) (*domain.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail[id] {
		return nil, fmt.Errorf("company %d unavailable", id)
	}
	name, ok := f.names[id]
	if !ok {
		return nil, notFound()
	}
	return &domain.Company{ID: id, Name: name}, nil
}

func ptr[T any](v T) *T { return &v }

func nopLogger() *zap.Logger { return zap.NewNop() }

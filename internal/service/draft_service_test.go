package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/tracker-central/internal/domain"
	"github.com/spec-kit/tracker-central/internal/events"
	"github.com/spec-kit/tracker-central/internal/form"
	"github.com/spec-kit/tracker-central/internal/repository"
)

type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newDraftFixture(t *testing.T, limit int) (*DraftService, *SessionService, *[]events.Event) {
	t.Helper()
	clk := &stepClock{t: time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)}
	repo := repository.NewMemoryDraftRepository().WithClock(clk.now)
	dispatcher := events.NewInMemoryDispatcher(nil)
	var saved []events.Event
	dispatcher.Subscribe(events.EventDraftSaved, func(_ context.Context, e events.Event) error {
		saved = append(saved, e)
		return nil
	})
	reg := testRegistry(t)
	sessions := NewSessionService(SessionDependencies{
		Registry: reg,
		Store:    form.NewStore(time.Hour),
		Drafts:   repo,
		Logger:   nopLogger(),
	})
	svc := NewDraftService(DraftDependencies{
		Drafts:     repo,
		Registry:   reg,
		Sessions:   sessions,
		Dispatcher: dispatcher,
		Limit:      limit,
		Logger:     nopLogger(),
	})
	return svc, sessions, &saved
}

func TestDraftLifecycle(t *testing.T) {
	svc, _, saved := newDraftFixture(t, 10)
	ctx := context.Background()
	alice := &domain.Agent{ID: "alice"}
	bob := &domain.Agent{ID: "bob"}

	d, err := svc.Create(ctx, alice, SaveDraftInput{
		TemplateKey: "issue",
		Values:      domain.FieldValues{"issue": "Typo", "formattedSubject": "Typo"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Typo", d.Title, "title defaults to the subject")

	_, err = svc.Get(ctx, bob, d.ID)
	assert.Equal(t, http.StatusNotFound, domainErr(t, err).HTTPStatus)

	updated, err := svc.Update(ctx, alice, d.ID, SaveDraftInput{Title: "Renamed", Values: domain.FieldValues{"issue": "Typo 2"}})
	require.NoError(t, err)
	assert.Equal(t, "issue", updated.TemplateKey)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "Typo 2", updated.Values.Get("issue"))

	assert.Equal(t, http.StatusNotFound, domainErr(t, svc.Delete(ctx, bob, d.ID)).HTTPStatus)
	require.NoError(t, svc.Delete(ctx, alice, d.ID))
	_, err = svc.Get(ctx, alice, d.ID)
	assert.Equal(t, http.StatusNotFound, domainErr(t, err).HTTPStatus)

	require.Len(t, *saved, 2)
	assert.True(t, (*saved)[0].Payload.(events.DraftSavedPayload).Created)
	assert.False(t, (*saved)[1].Payload.(events.DraftSavedPayload).Created)
}

func TestDraftListOrderAndCleanup(t *testing.T) {
	svc, _, _ := newDraftFixture(t, 2)
	ctx := context.Background()
	alice := &domain.Agent{ID: "alice"}

	var ids []string
	for _, title := range []string{"one", "two", "three"} {
		d, err := svc.Create(ctx, alice, SaveDraftInput{TemplateKey: "issue", Title: title})
		require.NoError(t, err)
		ids = append(ids, d.ID)
	}
	_, err := svc.Update(ctx, alice, ids[0], SaveDraftInput{Title: "one again"})
	require.NoError(t, err)

	list, err := svc.List(ctx, alice, DraftListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"one again", "three", "two"}, []string{list[0].Title, list[1].Title, list[2].Title})

	removed, err := svc.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	list, err = svc.List(ctx, alice, DraftListFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, "one again", list[0].Title)
}

func TestDraftFromSessionAndReopen(t *testing.T) {
	svc, sessions, _ := newDraftFixture(t, 10)
	ctx := context.Background()
	alice := &domain.Agent{ID: "alice"}

	sess, err := sessions.Open(ctx, alice, OpenSessionInput{TemplateKey: "issue"})
	require.NoError(t, err)
	_, err = sessions.SetField(ctx, sess.ID(), "issue", "Saved from session", false)
	require.NoError(t, err)

	d, err := svc.Create(ctx, alice, SaveDraftInput{SessionID: sess.ID()})
	require.NoError(t, err)
	assert.Equal(t, "issue", d.TemplateKey)
	assert.Equal(t, "Saved from session", d.Values.Get("issue"))

	reopened, err := sessions.Open(ctx, alice, OpenSessionInput{DraftID: d.ID})
	require.NoError(t, err)
	assert.Equal(t, "Saved from session", reopened.Values().Get("issue"))

	_, err = sessions.Open(ctx, &domain.Agent{ID: "bob"}, OpenSessionInput{DraftID: d.ID})
	assert.Equal(t, http.StatusNotFound, domainErr(t, err).HTTPStatus)
}

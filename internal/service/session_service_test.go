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
	"github.com/spec-kit/tracker-central/internal/templates"
)

func TestSessionOpenWithTicketContext(t *testing.T) {
	hd := newFakeHelpdesk()
	hd.tickets[42] = &domain.Ticket{
		ID:           42,
		CompanyID:    ptr(int64(7)),
		Requester:    &domain.Requester{Email: "teacher@district.org"},
		CustomFields: map[string]any{"cf_vip": "true"},
	}
	companies := &fakeCompanies{names: map[int64]string{7: "FAIRFAX"}}
	svc := NewSessionService(SessionDependencies{
		Registry: testRegistry(t),
		Store:    form.NewStore(time.Hour),
		Loader:   NewTicketContextLoader(hd, companies, nopLogger()),
		Logger:   nopLogger(),
	})
	ctx := context.Background()

	sess, err := svc.Open(ctx, nil, OpenSessionInput{TemplateKey: "issue", TicketID: ptr(int64(42))})
	require.NoError(t, err)
	tc := sess.TicketContext()
	require.NotNil(t, tc)
	assert.Equal(t, "FAIRFAX", tc.DistrictName)
	assert.True(t, tc.IsVIP)

	changes, err := svc.SetField(ctx, sess.ID(), "issue", "Broken", false)
	require.NoError(t, err)
	assert.Contains(t, changes, form.Change{Field: "issue", Value: "Broken"})

	_, err = svc.SetField(ctx, sess.ID(), "formattedSubject", "x", false)
	assert.Equal(t, http.StatusBadRequest, domainErr(t, err).HTTPStatus)
	_, err = svc.SetField(ctx, sess.ID(), "ghost", "x", false)
	assert.Equal(t, http.StatusNotFound, domainErr(t, err).HTTPStatus)
	assert.Equal(t, http.StatusNotFound, domainErr(t, svc.Mount(sess.ID(), "ghost")).HTTPStatus)
	require.NoError(t, svc.Mount(sess.ID(), "issue"))

	_, err = svc.Open(ctx, nil, OpenSessionInput{TemplateKey: "issue", TicketID: ptr(int64(404))})
	assert.Equal(t, http.StatusNotFound, domainErr(t, err).HTTPStatus)

	require.NoError(t, svc.Close(sess.ID()))
	assert.Equal(t, http.StatusNotFound, domainErr(t, svc.Close(sess.ID())).HTTPStatus)
}

func TestSessionOpenWithoutHelpdesk(t *testing.T) {
	svc := NewSessionService(SessionDependencies{
		Registry: testRegistry(t),
		Store:    form.NewStore(time.Hour),
		Loader:   NewTicketContextLoader(nil, nil, nopLogger()),
		Logger:   nopLogger(),
	})
	_, err := svc.Open(context.Background(), nil, OpenSessionInput{TemplateKey: "issue", TicketID: ptr(int64(1))})
	de := domainErr(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, de.HTTPStatus)

	sess, err := svc.Open(context.Background(), nil, OpenSessionInput{TemplateKey: "issue"})
	require.NoError(t, err, "forms without a ticket still open")
	assert.Nil(t, sess.TicketContext())
}

func TestSessionXcodeUnknownConfirmation(t *testing.T) {
	reg, err := templates.Load()
	require.NoError(t, err)
	svc := NewSessionService(SessionDependencies{Registry: reg, Store: form.NewStore(time.Hour), Logger: nopLogger()})
	ctx := context.Background()

	sess, err := svc.Open(ctx, nil, OpenSessionInput{TemplateKey: "sedcust"})
	require.NoError(t, err)
	box := sess.Template().XcodeUnknown.Checkbox

	_, err = svc.SetField(ctx, sess.ID(), box, "true", false)
	de := domainErr(t, err)
	assert.Equal(t, "CONFIRMATION_REQUIRED", de.Code)
	assert.Equal(t, "Are you sure the Xcode is unknown?", de.Details["prompt"])
	assert.False(t, sess.Values().Checked(box))

	_, err = svc.SetField(ctx, sess.ID(), box, "true", true)
	require.NoError(t, err)
	assert.True(t, sess.Values().Checked(box))
}

func TestSessionSweepPublishesExpiry(t *testing.T) {
	now := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)
	store := form.NewStore(time.Minute).WithClock(func() time.Time { return now })
	dispatcher := events.NewInMemoryDispatcher(nil)
	var expired []events.SessionExpiredPayload
	dispatcher.Subscribe(events.EventSessionExpired, func(_ context.Context, e events.Event) error {
		expired = append(expired, e.Payload.(events.SessionExpiredPayload))
		return nil
	})
	svc := NewSessionService(SessionDependencies{
		Registry:   testRegistry(t),
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     nopLogger(),
	})

	sess, err := svc.Open(context.Background(), nil, OpenSessionInput{TemplateKey: "issue"})
	require.NoError(t, err)
	assert.Zero(t, svc.Sweep(context.Background()))

	now = sess.UpdatedAt().Add(2 * time.Minute)
	assert.Equal(t, 1, svc.Sweep(context.Background()))
	require.Len(t, expired, 1)
	assert.Equal(t, sess.ID(), expired[0].SessionID)
	assert.Equal(t, "issue", expired[0].TemplateKey)
}

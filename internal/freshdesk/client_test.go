package freshdesk

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{Subdomain: "acme", APIKey: "secret", Timeout: 2 * time.Second, BaseURL: srv.URL}, nil)
}

func TestGetTicketSendsAuthAndInclude(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "secret", user)
		assert.Equal(t, "X", pass)
		assert.Equal(t, "/api/v2/tickets/42", r.URL.Path)
		assert.Equal(t, "requester", r.URL.Query().Get("include"))
		_, _ = io.WriteString(w, `{"id":42,"subject":"Broken","company_id":7,"requester":{"email":"a@b.c"},
			"custom_fields":{"cf_product":"Advance -c2022","cf_vip":true},"created_at":"2025-06-05T10:00:00Z"}`)
	})

	tk, err := c.GetTicket(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), tk.ID)
	assert.Equal(t, int64(7), tk.Company())
	assert.Equal(t, "a@b.c", tk.Requester.Email)
	assert.Equal(t, "Advance -c2022", tk.CustomField("cf_product"))
	assert.Equal(t, "true", tk.CustomField("cf_vip"))
}

func TestGetAssociatedTicketsUnwrapsList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/tickets/9/associated_tickets", r.URL.Path)
		_, _ = io.WriteString(w, `{"tickets":[{"id":1},{"id":2}]}`)
	})

	got, err := c.GetAssociatedTickets(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[1].ID)
}

func TestCreateTicketPostsJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v2/tickets", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Subject", body["subject"])
		assert.EqualValues(t, 101, body["source"])
		assert.Equal(t, []any{"tracker-sedcust"}, body["tags"])
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":1001,"subject":"Subject"}`)
	})

	tk, err := c.CreateTicket(context.Background(), TicketPayload{
		Email: "a@b.c", Subject: "Subject", Description: "<div></div>",
		Status: 2, Priority: 2, Source: 101, Tags: []string{"tracker-sedcust"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1001), tk.ID)
}

func TestUpdateTagsAndAddNote(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []string
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch r.Method {
		case http.MethodPut:
			assert.Equal(t, []any{"a", "DPT"}, body["tags"])
			_, _ = io.WriteString(w, `{"id":5}`)
		case http.MethodPost:
			assert.Equal(t, true, body["private"])
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"id":77,"ticket_id":5,"body":"<p>hi</p>","private":true}`)
		}
	})

	require.NoError(t, c.UpdateTicketTags(context.Background(), 5, []string{"a", "DPT"}))
	n, err := c.AddNote(context.Background(), 5, "<p>hi</p>", true)
	require.NoError(t, err)
	assert.Equal(t, int64(77), n.ID)
	mu.Lock()
	assert.Equal(t, []string{"PUT /api/v2/tickets/5", "POST /api/v2/tickets/5/notes"}, calls)
	mu.Unlock()

	_, err = c.AddNote(context.Background(), 5, "  ", true)
	assert.Error(t, err)
}

func TestAPIErrorInvalidField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"description":"Validation failed","errors":[{"field":"cf_jira_version","message":"Unexpected/invalid field in request","code":"invalid_field"}]}`)
	})

	_, err := c.CreateTicket(context.Background(), TicketPayload{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Invalid field: cf_jira_version", apiErr.Message())
}

func TestNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.GetCompany(context.Background(), 3)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "Freshdesk request failed with status 404", err.(*APIError).Message())
}

func TestMalformedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":`)
	})

	_, err := c.GetPrimeAssociation(context.Background(), 3)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestObserverAndCancelledContext(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, `{"id":1}`)
	})
	var ops []string
	c.WithObserver(func(op string, status int, _ time.Duration) {
		ops = append(ops, op)
		assert.Equal(t, http.StatusOK, status)
	})

	_, err := c.GetCompany(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"get_company"}, ops)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.GetCompany(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), hits.Load())
}

func TestAPIErrorMessageFallbacks(t *testing.T) {
	assert.Equal(t, "email: It should be a valid email address",
		(&APIError{Status: 400, Errors: []FieldError{{Field: "email", Message: "It should be a valid email address"}}}).Message())
	assert.Equal(t, "Access denied", (&APIError{Status: 403, Description: "Access denied"}).Message())
	assert.Contains(t, (&APIError{Status: 400, Description: "bad", Errors: []FieldError{{Field: "f", Code: "missing_field"}}}).Error(),
		"HTTP 400: bad; f: missing_field")
}

func TestTicketURL(t *testing.T) {
	c := NewClient(Config{Subdomain: "acme"}, nil)
	assert.Equal(t, "https://acme.freshdesk.com/a/tickets/12", c.TicketURL(12))
}

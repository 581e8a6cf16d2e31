package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeSubdomain(t *testing.T) {
	tests := map[string]string{
		"":                                       "",
		"acme":                                   "acme",
		"  Acme ":                                "acme",
		"acme.freshdesk.com":                     "acme",
		"https://acme.freshdesk.com":             "acme",
		"https://acme.freshdesk.com/a/tickets/1": "acme",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeSubdomain(in), "input %q", in)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FRESHDESK_SUBDOMAIN", "https://bec.freshdesk.com")
	t.Setenv("FRESHDESK_RESOURCE_OPTIONS", "Bookshelves, TRS ,,Assignments")
	t.Setenv("DRAFT_LIMIT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "bec", cfg.Freshdesk.Subdomain)
	assert.True(t, cfg.Freshdesk.Configured())
	assert.Equal(t, []string{"Bookshelves", "TRS", "Assignments"}, cfg.Freshdesk.ResourceOptions)
	assert.Equal(t, 20, cfg.Tracker.DraftLimit)
	assert.Equal(t, 2*time.Hour, cfg.Tracker.SessionTTL())
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "x")
	_, err := Load()
	require.Error(t, err)
}

func TestUnconfiguredSubdomain(t *testing.T) {
	var f FreshdeskConfig
	assert.False(t, f.Configured())
	assert.Equal(t, 15*time.Second, f.Timeout())
}

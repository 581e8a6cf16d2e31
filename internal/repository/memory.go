package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"

	"github.com/spec-kit/tracker-central/internal/domain"
)

// MemoryDraftRepository keeps drafts in process. It is used when no
// database is configured and in tests. Missing rows are pgx.ErrNoRows so
// callers handle both implementations alike.
type MemoryDraftRepository struct {
	mu     sync.RWMutex
	now    func() time.Time
	drafts map[string]domain.Draft
}

// NewMemoryDraftRepository builds an empty repository.
func NewMemoryDraftRepository() *MemoryDraftRepository {
	return &MemoryDraftRepository{now: time.Now, drafts: map[string]domain.Draft{}}
}

// WithClock overrides the timestamp source.
func (r *MemoryDraftRepository) WithClock(now func() time.Time) *MemoryDraftRepository {
	r.now = now
	return r
}

func (r *MemoryDraftRepository) Create(_ context.Context, draft *domain.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	draft.CreatedAt, draft.UpdatedAt = now, now
	r.drafts[draft.ID] = copyDraft(*draft)
	return nil
}

func (r *MemoryDraftRepository) Update(_ context.Context, draft *domain.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.drafts[draft.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	draft.AgentID = existing.AgentID
	draft.CreatedAt = existing.CreatedAt
	draft.UpdatedAt = r.now()
	r.drafts[draft.ID] = copyDraft(*draft)
	return nil
}

func (r *MemoryDraftRepository) GetByID(_ context.Context, id string) (*domain.Draft, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	draft, ok := r.drafts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := copyDraft(draft)
	return &out, nil
}

func (r *MemoryDraftRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.drafts[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.drafts, id)
	return nil
}

func (r *MemoryDraftRepository) List(_ context.Context, filter DraftFilter) ([]domain.Draft, error) {
	r.mu.RLock()
	matched := lo.Filter(lo.Values(r.drafts), func(d domain.Draft, _ int) bool {
		if d.AgentID != filter.AgentID {
			return false
		}
		if filter.TemplateKey != nil && d.TemplateKey != *filter.TemplateKey {
			return false
		}
		if filter.TicketID != nil && (d.TicketID == nil || *d.TicketID != *filter.TicketID) {
			return false
		}
		return true
	})
	r.mu.RUnlock()

	sortNewestFirst(matched)
	limit, offset := pageBounds(filter.Limit, filter.Offset)
	page := lo.Subset(matched, offset, uint(limit))
	return lo.Map(page, func(d domain.Draft, _ int) domain.Draft { return copyDraft(d) }), nil
}

func (r *MemoryDraftRepository) Prune(_ context.Context, keep int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	byAgent := lo.GroupBy(lo.Values(r.drafts), func(d domain.Draft) string { return d.AgentID })
	for _, drafts := range byAgent {
		if len(drafts) <= keep {
			continue
		}
		sortNewestFirst(drafts)
		for _, d := range drafts[keep:] {
			delete(r.drafts, d.ID)
			removed++
		}
	}
	return removed, nil
}

func sortNewestFirst(drafts []domain.Draft) {
	sort.SliceStable(drafts, func(i, j int) bool {
		if !drafts[i].UpdatedAt.Equal(drafts[j].UpdatedAt) {
			return drafts[i].UpdatedAt.After(drafts[j].UpdatedAt)
		}
		return drafts[i].ID < drafts[j].ID
	})
}

func copyDraft(d domain.Draft) domain.Draft {
	d.Values = d.Values.Clone()
	if d.TicketID != nil {
		id := *d.TicketID
		d.TicketID = &id
	}
	return d
}

// MemoryTrackerLinkRepository keeps tracker links in process.
type MemoryTrackerLinkRepository struct {
	mu    sync.RWMutex
	now   func() time.Time
	links []domain.TrackerLink
}

// NewMemoryTrackerLinkRepository builds an empty repository.
func NewMemoryTrackerLinkRepository() *MemoryTrackerLinkRepository {
	return &MemoryTrackerLinkRepository{now: time.Now}
}

// WithClock overrides the timestamp source.
func (r *MemoryTrackerLinkRepository) WithClock(now func() time.Time) *MemoryTrackerLinkRepository {
	r.now = now
	return r
}

func (r *MemoryTrackerLinkRepository) Create(_ context.Context, link *domain.TrackerLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	link.CreatedAt = r.now()
	r.links = append(r.links, *link)
	return nil
}

func (r *MemoryTrackerLinkRepository) FindByFingerprint(_ context.Context, fingerprint string, since time.Time) (*domain.TrackerLink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.links) - 1; i >= 0; i-- {
		l := r.links[i]
		if l.Fingerprint == fingerprint && !l.CreatedAt.Before(since) {
			return &l, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *MemoryTrackerLinkRepository) ListByOrigin(_ context.Context, originID int64) ([]domain.TrackerLink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.TrackerLink
	for i := len(r.links) - 1; i >= 0; i-- {
		if l := r.links[i]; l.OriginID != nil && *l.OriginID == originID {
			out = append(out, l)
		}
	}
	return out, nil
}

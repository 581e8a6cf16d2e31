package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/tracker-central/internal/domain"
)

// TrackerLinkRepository records created trackers.
type TrackerLinkRepository interface {
	Create(ctx context.Context, link *domain.TrackerLink) error
	// FindByFingerprint returns the newest link with fingerprint created at or
	// after since, or pgx.ErrNoRows.
	FindByFingerprint(ctx context.Context, fingerprint string, since time.Time) (*domain.TrackerLink, error)
	ListByOrigin(ctx context.Context, originID int64) ([]domain.TrackerLink, error)
}

type trackerLinkRepository struct {
	pool *pgxpool.Pool
}

// NewTrackerLinkRepository instantiates the Postgres repository.
func NewTrackerLinkRepository(pool *pgxpool.Pool) TrackerLinkRepository {
	return &trackerLinkRepository{pool: pool}
}

const linkColumns = `id, tracker_id, origin_id, template_key, subject, agent_id, fingerprint, created_at`

func (r *trackerLinkRepository) Create(ctx context.Context, link *domain.TrackerLink) error {
	const query = `
        INSERT INTO tracker_links (id, tracker_id, origin_id, template_key, subject, agent_id, fingerprint)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		link.ID,
		link.TrackerID,
		link.OriginID,
		link.TemplateKey,
		link.Subject,
		link.AgentID,
		link.Fingerprint,
	).Scan(&link.CreatedAt)
}

func (r *trackerLinkRepository) FindByFingerprint(ctx context.Context, fingerprint string, since time.Time) (*domain.TrackerLink, error) {
	query := `SELECT ` + linkColumns + ` FROM tracker_links
        WHERE fingerprint=$1 AND created_at >= $2
        ORDER BY created_at DESC LIMIT 1`
	rows, err := r.pool.Query(ctx, query, fingerprint, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	links, err := scanLinks(rows)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &links[0], nil
}

func (r *trackerLinkRepository) ListByOrigin(ctx context.Context, originID int64) ([]domain.TrackerLink, error) {
	query := `SELECT ` + linkColumns + ` FROM tracker_links WHERE origin_id=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, originID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLinks(rows)
}

func scanLinks(rows pgx.Rows) ([]domain.TrackerLink, error) {
	var result []domain.TrackerLink
	for rows.Next() {
		var link domain.TrackerLink
		if err := rows.Scan(
			&link.ID,
			&link.TrackerID,
			&link.OriginID,
			&link.TemplateKey,
			&link.Subject,
			&link.AgentID,
			&link.Fingerprint,
			&link.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, link)
	}
	return result, rows.Err()
}

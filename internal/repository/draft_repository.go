package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/tracker-central/internal/domain"
)

// DraftFilter narrows an agent's draft list.
type DraftFilter struct {
	AgentID     string
	TemplateKey *string
	TicketID    *int64
	Limit       int
	Offset      int
}

// DraftRepository persists saved tracker forms.
type DraftRepository interface {
	Create(ctx context.Context, draft *domain.Draft) error
	Update(ctx context.Context, draft *domain.Draft) error
	GetByID(ctx context.Context, id string) (*domain.Draft, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter DraftFilter) ([]domain.Draft, error)
	// Prune keeps the newest keep drafts of every agent and returns how many
	// were removed.
	Prune(ctx context.Context, keep int) (int64, error)
}

type draftRepository struct {
	pool *pgxpool.Pool
}

// NewDraftRepository instantiates the Postgres repository.
func NewDraftRepository(pool *pgxpool.Pool) DraftRepository {
	return &draftRepository{pool: pool}
}

const draftColumns = `id, agent_id, template_key, ticket_id, title, field_values, created_at, updated_at`

func (r *draftRepository) Create(ctx context.Context, draft *domain.Draft) error {
	const query = `
        INSERT INTO drafts (id, agent_id, template_key, ticket_id, title, field_values)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		draft.ID,
		draft.AgentID,
		draft.TemplateKey,
		draft.TicketID,
		draft.Title,
		draft.Values,
	).Scan(&draft.CreatedAt, &draft.UpdatedAt)
}

func (r *draftRepository) Update(ctx context.Context, draft *domain.Draft) error {
	const query = `
        UPDATE drafts SET template_key=$1, ticket_id=$2, title=$3, field_values=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		draft.TemplateKey,
		draft.TicketID,
		draft.Title,
		draft.Values,
		draft.ID,
	).Scan(&draft.UpdatedAt)
}

func (r *draftRepository) GetByID(ctx context.Context, id string) (*domain.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts WHERE id=$1`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	drafts, err := scanDrafts(rows)
	if err != nil {
		return nil, err
	}
	if len(drafts) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &drafts[0], nil
}

func (r *draftRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM drafts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *draftRepository) List(ctx context.Context, filter DraftFilter) ([]domain.Draft, error) {
	clauses := []string{"agent_id=$1"}
	args := []any{filter.AgentID}

	if filter.TemplateKey != nil {
		args = append(args, *filter.TemplateKey)
		clauses = append(clauses, fmt.Sprintf("template_key=$%d", len(args)))
	}
	if filter.TicketID != nil {
		args = append(args, *filter.TicketID)
		clauses = append(clauses, fmt.Sprintf("ticket_id=$%d", len(args)))
	}

	limit, offset := pageBounds(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM drafts WHERE %s ORDER BY updated_at DESC, id LIMIT %d OFFSET %d`,
		draftColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDrafts(rows)
}

func (r *draftRepository) Prune(ctx context.Context, keep int) (int64, error) {
	const query = `
        DELETE FROM drafts d
        USING (
            SELECT id, ROW_NUMBER() OVER (PARTITION BY agent_id ORDER BY updated_at DESC, id) AS rn
            FROM drafts
        ) ranked
        WHERE d.id = ranked.id AND ranked.rn > $1`
	cmd, err := r.pool.Exec(ctx, query, keep)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanDrafts(rows pgx.Rows) ([]domain.Draft, error) {
	var result []domain.Draft
	for rows.Next() {
		var draft domain.Draft
		if err := rows.Scan(
			&draft.ID,
			&draft.AgentID,
			&draft.TemplateKey,
			&draft.TicketID,
			&draft.Title,
			&draft.Values,
			&draft.CreatedAt,
			&draft.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, draft)
	}
	return result, rows.Err()
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

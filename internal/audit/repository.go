package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads audit_logs rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Repository over the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const timelineQuery = `
SELECT actor_id, action, collection, document_id, meta, occurred_at
FROM audit_logs
WHERE ($1 = '' OR collection = $1)
  AND ($2 = '' OR actor_id = $2)
  AND ($3 = '' OR action = $3)
ORDER BY occurred_at DESC, id DESC
LIMIT $4 OFFSET $5`

// Timeline returns up to limit entries matching the filters, newest first.
func (r *Repository) Timeline(ctx context.Context, filters TimelineFilters, limit, offset int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, timelineQuery,
		filters.Collection, filters.Actor, filters.Action, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("audit: timeline query: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var meta []byte
		if err := rows.Scan(&entry.Actor, &entry.Action, &entry.Collection, &entry.DocumentID, &meta, &entry.At); err != nil {
			return nil, fmt.Errorf("audit: scan timeline row: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &entry.Meta); err != nil {
				return nil, fmt.Errorf("audit: decode meta: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

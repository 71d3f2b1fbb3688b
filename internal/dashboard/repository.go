package dashboard

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/backstage-events/backstage/internal/registry"
)

// RepositoryPort defines the aggregate queries used by the service.
type RepositoryPort interface {
	CollectionCounts(ctx context.Context) (map[string]int, error)
	EventTaskProgress(ctx context.Context) ([]EventProgress, error)
}

// Repository implements RepositoryPort over the documents table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CollectionCounts returns the document count per collection, with an
// explicit zero for every supported kind.
func (r *Repository) CollectionCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(registry.Kinds()))
	for _, kind := range registry.Kinds() {
		counts[kind.Collection()] = 0
	}

	rows, err := r.pool.Query(ctx, `SELECT collection, COUNT(*) FROM documents GROUP BY collection`)
	if err != nil {
		return nil, fmt.Errorf("dashboard: counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			collection string
			n          int
		)
		if err := rows.Scan(&collection, &n); err != nil {
			return nil, fmt.Errorf("dashboard: counts: %w", err)
		}
		counts[collection] = n
	}
	return counts, rows.Err()
}

// EventTaskProgress returns raw task totals per event in creation order.
func (r *Repository) EventTaskProgress(ctx context.Context) ([]EventProgress, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT e.id::text,
		       COALESCE(e.body ->> 'name', ''),
		       COUNT(t.id),
		       COUNT(t.id) FILTER (WHERE COALESCE((t.body ->> 'is_done')::boolean, false))
		FROM documents e
		LEFT JOIN documents t
		  ON t.collection = 'event-tasks' AND t.body ->> 'event' = e.id::text
		WHERE e.collection = 'events'
		GROUP BY e.id, e.body, e.created_at
		ORDER BY e.created_at`)
	if err != nil {
		return nil, fmt.Errorf("dashboard: event progress: %w", err)
	}
	defer rows.Close()

	var out []EventProgress
	for rows.Next() {
		var p EventProgress
		if err := rows.Scan(&p.EventID, &p.EventName, &p.TotalTasks, &p.DoneTasks); err != nil {
			return nil, fmt.Errorf("dashboard: event progress: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

var _ RepositoryPort = (*Repository)(nil)

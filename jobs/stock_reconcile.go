package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StockReconcileJob recomputes each material's reserved quantity from its
// event-material line items and repairs drift in the stored value. Reserve
// and Release keep the counter current transactionally, so drift points at
// an out-of-band write; the nightly run repairs it and logs every
// discrepancy it finds.
type StockReconcileJob struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStockReconcileJob builds a StockReconcileJob.
func NewStockReconcileJob(pool *pgxpool.Pool, logger *slog.Logger) *StockReconcileJob {
	return &StockReconcileJob{pool: pool, logger: logger}
}

// Handle processes TaskTypeStockReconcile tasks.
func (j *StockReconcileJob) Handle(ctx context.Context, _ *asynq.Task) error {
	rows, err := j.pool.Query(ctx, `
		SELECT m.id::text,
		       COALESCE((m.body ->> 'reserved')::numeric, 0),
		       COALESCE(SUM((li.body ->> 'quantity')::numeric), 0)
		FROM documents m
		LEFT JOIN documents li
		  ON li.collection = 'event-materials' AND li.body ->> 'material' = m.id::text
		WHERE m.collection = 'materials'
		GROUP BY m.id, m.body`)
	if err != nil {
		return fmt.Errorf("jobs: reconcile query: %w", err)
	}
	defer rows.Close()

	type drift struct {
		id       string
		stored   float64
		computed float64
	}
	var drifts []drift
	for rows.Next() {
		var d drift
		if err := rows.Scan(&d.id, &d.stored, &d.computed); err != nil {
			return fmt.Errorf("jobs: reconcile scan: %w", err)
		}
		if d.stored != d.computed {
			drifts = append(drifts, d)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("jobs: reconcile rows: %w", err)
	}

	for _, d := range drifts {
		if j.logger != nil {
			j.logger.Warn("material reservation drift",
				slog.String("material", d.id),
				slog.Float64("stored", d.stored),
				slog.Float64("computed", d.computed))
		}
		_, err := j.pool.Exec(ctx, `
			UPDATE documents
			SET body = jsonb_set(body, '{reserved}', to_jsonb($1::numeric)), updated_at = now()
			WHERE collection = 'materials' AND id = $2::uuid`,
			d.computed, d.id)
		if err != nil {
			return fmt.Errorf("jobs: reconcile update: %w", err)
		}
	}

	if j.logger != nil {
		j.logger.Info("stock reconciliation finished", slog.Int("repaired", len(drifts)))
	}
	return nil
}

package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/signcraft-erp/signcraft-erp/internal/jobs"
)

// RunNumberingIntegrityScan looks for confirmed invoice numbers appearing more
// than once. The partial unique index makes duplicates impossible under normal
// operation; a hit here means the index was dropped or data was imported
// around it, so the scan only reports.
func RunNumberingIntegrityScan(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) error {
	if pool == nil {
		return nil
	}
	rows, err := pool.Query(ctx,
		`SELECT number, COUNT(*) FROM invoices
		 WHERE status = 'CONFIRMED' AND number IS NOT NULL
		 GROUP BY number HAVING COUNT(*) > 1`)
	if err != nil {
		if logger != nil {
			logger.Error("numbering integrity scan", slog.Any("error", err))
		}
		return err
	}
	defer rows.Close()

	duplicates := 0
	for rows.Next() {
		var number, count int64
		if err := rows.Scan(&number, &count); err != nil {
			return err
		}
		duplicates++
		if logger != nil {
			logger.Warn("duplicate invoice number",
				slog.Int64("number", number), slog.Int64("count", count))
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	metrics.AddDuplicates(duplicates)
	if logger != nil {
		logger.Info("numbering integrity scan finished",
			slog.String("job", "numbering_integrity"), slog.Int("duplicates", duplicates))
	}
	return nil
}

// NewNumberingIntegrityHandler adapts the scan into an Asynq handler.
func NewNumberingIntegrityHandler(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload NumberingIntegrityPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		tracker := metrics.Track("numbering_integrity")
		return tracker.End(RunNumberingIntegrityScan(ctx, pool, logger, metrics))
	}
}

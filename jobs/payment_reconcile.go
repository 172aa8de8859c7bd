package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/signcraft-erp/signcraft-erp/internal/jobs"
)

// BillingReconciler re-derives one order's compensating payment from stored
// state. Implemented by the orders service.
type BillingReconciler interface {
	ReconcileBilling(ctx context.Context, orderID int64) error
}

// RunPaymentReconcileSweep re-syncs the compensating payment for every order
// billed below 100%. It repairs drift left by a crash between the billing
// write and the payment write; fully billed orders are covered by the
// synchronizer's own delete path and skipped here.
func RunPaymentReconcileSweep(ctx context.Context, pool *pgxpool.Pool, reconciler BillingReconciler, logger *slog.Logger) error {
	if pool == nil || reconciler == nil {
		return nil
	}
	rows, err := pool.Query(ctx, `SELECT id FROM orders WHERE billing_scale <> 1 ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	failed := 0
	for _, id := range ids {
		if err := reconciler.ReconcileBilling(ctx, id); err != nil {
			failed++
			if logger != nil {
				logger.Error("payment reconcile",
					slog.Int64("order_id", id), slog.Any("error", err))
			}
		}
	}
	if logger != nil {
		logger.Info("payment reconcile sweep finished",
			slog.String("job", "payment_reconcile"),
			slog.Int("orders", len(ids)), slog.Int("failed", failed))
	}
	return nil
}

// NewPaymentReconcileHandler adapts the sweep into an Asynq handler.
func NewPaymentReconcileHandler(pool *pgxpool.Pool, reconciler BillingReconciler, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload PaymentReconcilePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		tracker := metrics.Track("payment_reconcile")
		return tracker.End(RunPaymentReconcileSweep(ctx, pool, reconciler, logger))
	}
}

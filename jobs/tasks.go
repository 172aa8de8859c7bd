package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskNumberingIntegrity scans confirmed invoices for duplicate numbers.
	TaskNumberingIntegrity = "invoices:numbering_integrity"
	// TaskPaymentReconcile re-syncs compensating payments for partially billed orders.
	TaskPaymentReconcile = "payments:reconcile"
)

// NumberingIntegrityPayload carries scheduling metadata.
type NumberingIntegrityPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewNumberingIntegrityTask constructs an Asynq task for the nightly scan.
func NewNumberingIntegrityTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(NumberingIntegrityPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNumberingIntegrity, body, asynq.Queue(QueueDefault)), nil
}

// PaymentReconcilePayload contains options for the reconcile sweep.
type PaymentReconcilePayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewPaymentReconcileTask builds a reconcile sweep task.
func NewPaymentReconcileTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(PaymentReconcilePayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentReconcile, body, asynq.Queue(QueueDefault)), nil
}

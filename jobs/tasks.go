package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOrdersOverdueScan sweeps active orders for overdue work.
	TaskOrdersOverdueScan = "orders:overdue_scan"
	// TaskMailPickupReminder nudges a client whose finished order sits
	// uncollected past its date.
	TaskMailPickupReminder = "mail:pickup_reminder"
)

// OverdueScanPayload tunes a single scan run. Zero values mean the
// defaults: reminders enabled, thirty days of idempotency key retention.
type OverdueScanPayload struct {
	DryRun        bool `json:"dry_run,omitempty"`
	RetentionDays int  `json:"retention_days,omitempty"`
}

// NewOverdueScanTask constructs an overdue scan task.
func NewOverdueScanTask(payload OverdueScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrdersOverdueScan, data), nil
}

// PickupReminderPayload carries what the reminder mail needs to say.
type PickupReminderPayload struct {
	OrderID        int64  `json:"order_id"`
	Number         string `json:"number"`
	To             string `json:"to"`
	ClientName     string `json:"client_name"`
	AmountDueCents int64  `json:"amount_due_cents"`
}

// NewPickupReminderTask constructs a pickup reminder task.
func NewPickupReminderTask(payload PickupReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMailPickupReminder, data), nil
}

// HandlePickupReminderTask processes TaskMailPickupReminder tasks.
func HandlePickupReminderTask(ctx context.Context, t *asynq.Task) error {
	var payload PickupReminderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Placeholder until SMTP delivery is wired up.
	fmt.Printf("[jobs] pickup reminder to %s for order %s (due %d cents)\n",
		payload.To, payload.Number, payload.AmountDueCents)
	return nil
}

package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueCritical carries customer-facing notifications.
	QueueCritical = "critical"

	// TaskOrderNotify emails the customer after checkout.
	TaskOrderNotify = "order:notify"
	// TaskShipmentSummary emails the daily dispatch summary.
	TaskShipmentSummary = "shipment:daily_summary"
	// TaskReportsWarmup precomputes cached reports.
	TaskReportsWarmup = "reports:warmup"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// OrderNotifyPayload identifies the order to announce.
type OrderNotifyPayload struct {
	OrderID int64 `json:"order_id"`
}

// ShipmentSummaryPayload selects the shipped date; empty means yesterday.
type ShipmentSummaryPayload struct {
	Date string `json:"date,omitempty"`
}

// ReportsWarmupPayload selects the reference day; empty means today.
type ReportsWarmupPayload struct {
	Date string `json:"date,omitempty"`
}

// IdempotencyCleanupPayload sets the retention window.
type IdempotencyCleanupPayload struct {
	OlderThan time.Duration `json:"older_than"`
}

// NewOrderNotifyTask builds the notification task for an order.
func NewOrderNotifyTask(orderID int64) (*asynq.Task, error) {
	return newTask(TaskOrderNotify, OrderNotifyPayload{OrderID: orderID}, asynq.Queue(QueueCritical), asynq.MaxRetry(5))
}

// NewShipmentSummaryTask builds the daily summary task.
func NewShipmentSummaryTask(date string) (*asynq.Task, error) {
	return newTask(TaskShipmentSummary, ShipmentSummaryPayload{Date: date}, asynq.Queue(QueueDefault))
}

// NewReportsWarmupTask builds the warmup task.
func NewReportsWarmupTask(date string) (*asynq.Task, error) {
	return newTask(TaskReportsWarmup, ReportsWarmupPayload{Date: date}, asynq.Queue(QueueDefault))
}

// NewIdempotencyCleanupTask builds the cleanup task.
func NewIdempotencyCleanupTask(olderThan time.Duration) (*asynq.Task, error) {
	return newTask(TaskIdempotencyCleanup, IdempotencyCleanupPayload{OlderThan: olderThan}, asynq.Queue(QueueDefault))
}

func newTask(typ string, payload any, opts ...asynq.Option) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typ, body, opts...), nil
}

func parseDay(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	return time.Parse(time.DateOnly, raw)
}

package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/orderflow/internal/jobs"
	"github.com/odyssey-erp/orderflow/internal/warehouse"
)

// DailySummarySource aggregates shipments for one day.
type DailySummarySource interface {
	DailySummary(ctx context.Context, day time.Time) (warehouse.DailySummary, error)
}

// ReportWarmer precomputes cached reports.
type ReportWarmer interface {
	Warm(ctx context.Context, day time.Time) error
}

// IdempotencyCleaner purges stale idempotency keys.
type IdempotencyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

var shipmentSummaryTemplate = template.Must(template.New("shipment_summary").Parse(`<html><body>
<h3>Dispatch summary for {{.Date}}</h3>
<table>
<tr><td>Boxes</td><td>{{.Boxes}}</td></tr>
<tr><td>Weight</td><td>{{.Weight}}</td></tr>
<tr><td>Volume weight</td><td>{{.VolumeWeight}}</td></tr>
<tr><td>Actual weight</td><td>{{.ActualWeight}}</td></tr>
<tr><td>Shipping charge</td><td>{{.ShippingCharge}}</td></tr>
<tr><td>Parcel amount</td><td>{{.ParcelAmount}}</td></tr>
</table>
</body></html>`))

// ShipmentSummaryJob emails yesterday's dispatch totals to the warehouse team.
type ShipmentSummaryJob struct {
	Source     DailySummarySource
	Mailer     Mailer
	Recipients []string
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
	clock      func() time.Time
}

// NewShipmentSummaryJob wires dependencies for the summary handler.
func NewShipmentSummaryJob(source DailySummarySource, mailer Mailer, recipients []string, logger *slog.Logger, metrics *jobmetrics.Metrics) *ShipmentSummaryJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ShipmentSummaryJob{
		Source:     source,
		Mailer:     mailer,
		Recipients: recipients,
		Logger:     logger,
		Metrics:    metrics,
		clock:      func() time.Time { return time.Now().UTC() },
	}
}

// Handle processes TaskShipmentSummary tasks.
func (j *ShipmentSummaryJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	var payload ShipmentSummaryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("shipment summary payload: %w", asynq.SkipRetry)
	}
	day, err := parseDay(payload.Date, warehouse.DateOnly(j.clock()).AddDate(0, 0, -1))
	if err != nil {
		return fmt.Errorf("shipment summary date: %w", asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskShipmentSummary)
	defer func() { err = tracker.End(err) }()

	summary, err := j.Source.DailySummary(ctx, day)
	if err != nil {
		return err
	}
	logger := j.Logger.With(slog.String("date", summary.Date), slog.Int("boxes", summary.Boxes))
	if len(j.Recipients) == 0 {
		logger.Info("shipment summary computed, no recipients configured")
		return nil
	}
	var buf bytes.Buffer
	if err := shipmentSummaryTemplate.Execute(&buf, summary); err != nil {
		return err
	}
	if err := j.Mailer.Send(ctx, Email{To: j.Recipients, Subject: "Dispatch summary " + summary.Date, HTML: buf.String()}); err != nil {
		return fmt.Errorf("send shipment summary: %w", err)
	}
	j.Metrics.EmailSent("shipment_summary")
	logger.Info("shipment summary sent")
	return nil
}

// ReportsWarmupJob refreshes the cached report dashboards.
type ReportsWarmupJob struct {
	Reports ReportWarmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewReportsWarmupJob wires dependencies for the warmup handler.
func NewReportsWarmupJob(reports ReportWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportsWarmupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportsWarmupJob{Reports: reports, Logger: logger, Metrics: metrics, clock: func() time.Time { return time.Now().UTC() }}
}

// Handle processes TaskReportsWarmup tasks.
func (j *ReportsWarmupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	var payload ReportsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("reports warmup payload: %w", asynq.SkipRetry)
	}
	day, err := parseDay(payload.Date, j.clock())
	if err != nil {
		return fmt.Errorf("reports warmup date: %w", asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskReportsWarmup)
	defer func() { err = tracker.End(err) }()

	start := time.Now()
	if err := j.Reports.Warm(ctx, day); err != nil {
		return err
	}
	j.Logger.Info("reports warmed", slog.String("date", day.Format(time.DateOnly)), slog.Duration("took", time.Since(start)))
	return nil
}

// IdempotencyCleanupJob deletes idempotency keys past retention.
type IdempotencyCleanupJob struct {
	Store   IdempotencyCleaner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// DefaultIdempotencyRetention keeps keys long enough to absorb client retries.
const DefaultIdempotencyRetention = 7 * 24 * time.Hour

// NewIdempotencyCleanupJob wires dependencies for the cleanup handler.
func NewIdempotencyCleanupJob(store IdempotencyCleaner, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdempotencyCleanupJob{Store: store, Logger: logger, Metrics: metrics}
}

// Handle processes TaskIdempotencyCleanup tasks.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("idempotency cleanup payload: %w", asynq.SkipRetry)
	}
	if payload.OlderThan <= 0 {
		payload.OlderThan = DefaultIdempotencyRetention
	}
	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	defer func() { err = tracker.End(err) }()

	removed, err := j.Store.Cleanup(ctx, payload.OlderThan)
	if err != nil {
		return err
	}
	j.Logger.Info("idempotency keys purged", slog.Int64("removed", removed))
	return nil
}

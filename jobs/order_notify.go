package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/orderflow/internal/customers"
	jobmetrics "github.com/odyssey-erp/orderflow/internal/jobs"
	"github.com/odyssey-erp/orderflow/internal/orders"
	"github.com/odyssey-erp/orderflow/internal/shared"
)

// OrderReader loads orders with their items.
type OrderReader interface {
	Get(ctx context.Context, id int64) (orders.Order, error)
}

// CustomerReader loads customers.
type CustomerReader interface {
	Get(ctx context.Context, id int64) (customers.Customer, error)
}

var orderCreatedTemplate = template.Must(template.New("order_created").Parse(`<html><body>
<h3>Order {{.Invoice}} received</h3>
<p>Dear {{.Customer}},</p>
<p>We have received your order dated {{.Date}}.</p>
<table>
<tr><th>Item</th><th>Qty</th><th>Amount</th></tr>
{{range .Lines}}<tr><td>{{.Description}}</td><td>{{.Quantity}}</td><td>{{.Amount}}</td></tr>
{{end}}</table>
<p>Total: <strong>{{.Total}}</strong></p>
<p>This is an auto-generated email. Please do not reply.</p>
</body></html>`))

type notifyLine struct {
	Description string
	Quantity    int
	Amount      string
}

type notifyView struct {
	Invoice  string
	Customer string
	Date     string
	Lines    []notifyLine
	Total    string
}

// OrderNotifyJob emails the customer the confirmation of a new order.
type OrderNotifyJob struct {
	Orders    OrderReader
	Customers CustomerReader
	Mailer    Mailer
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	printer   *message.Printer
}

// NewOrderNotifyJob wires dependencies for the notification handler.
func NewOrderNotifyJob(orders OrderReader, customers CustomerReader, mailer Mailer, logger *slog.Logger, metrics *jobmetrics.Metrics) *OrderNotifyJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderNotifyJob{
		Orders:    orders,
		Customers: customers,
		Mailer:    mailer,
		Logger:    logger,
		Metrics:   metrics,
		printer:   message.NewPrinter(language.English),
	}
}

// FormatAmount renders money with thousands separators and two decimals.
func (j *OrderNotifyJob) FormatAmount(d decimal.Decimal) string {
	return j.printer.Sprintf("%.2f", d.Round(2).InexactFloat64())
}

// Handle processes TaskOrderNotify tasks.
func (j *OrderNotifyJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	var payload OrderNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.OrderID <= 0 {
		return fmt.Errorf("order notify payload: %w", asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskOrderNotify)
	defer func() { err = tracker.End(err) }()

	order, err := j.Orders.Get(ctx, payload.OrderID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			j.Logger.Warn("order notify skipped", slog.Int64("order_id", payload.OrderID))
			return nil
		}
		return err
	}
	customer, err := j.Customers.Get(ctx, order.CustomerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			j.Logger.Warn("order notify without customer", slog.Int64("order_id", order.ID), slog.Int64("customer_id", order.CustomerID))
			return nil
		}
		return err
	}

	html, err := j.render(order, customer)
	if err != nil {
		return fmt.Errorf("render order email: %w", err)
	}
	if err := j.Mailer.Send(ctx, Email{
		To:      []string{customer.Email},
		Subject: "Order " + order.Invoice + " received",
		HTML:    html,
	}); err != nil {
		return fmt.Errorf("send order email: %w", err)
	}
	j.Metrics.EmailSent("order_created")
	j.Logger.Info("order notification sent", slog.Int64("order_id", order.ID), slog.String("invoice", order.Invoice))
	return nil
}

func (j *OrderNotifyJob) render(order orders.Order, customer customers.Customer) (string, error) {
	view := notifyView{
		Invoice:  order.Invoice,
		Customer: customer.Name,
		Date:     order.CreatedAt.Format("02 Jan 2006"),
		Total:    j.FormatAmount(order.TotalAmount),
	}
	for _, it := range order.Items {
		view.Lines = append(view.Lines, notifyLine{Description: it.Description, Quantity: it.Quantity, Amount: j.FormatAmount(it.LineTotal())})
	}
	var buf bytes.Buffer
	if err := orderCreatedTemplate.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

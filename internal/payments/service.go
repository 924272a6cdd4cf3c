package payments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/orderflow/internal/numbering"
	"github.com/odyssey-erp/orderflow/internal/orders"
	"github.com/odyssey-erp/orderflow/internal/shared"
)

const idempotencyModule = "payments"

// RepositoryPort abstracts receipt persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOrder(ctx context.Context, id int64) (orders.Order, error)
	ReceiptsByOrder(ctx context.Context, orderID int64) ([]Receipt, error)
	OrdersByCustomer(ctx context.Context, customerID int64) ([]orders.Order, error)
	ReceiptsByCustomer(ctx context.Context, customerID int64) ([]Receipt, error)
}

// TxRepository exposes writes performed while recording a payment.
type TxRepository interface {
	numbering.SequenceStore
	GetOrderForUpdate(ctx context.Context, id int64) (orders.Order, error)
	ReceiptsByOrder(ctx context.Context, orderID int64) ([]Receipt, error)
	InsertReceipt(ctx context.Context, r Receipt) (int64, error)
	SetPaymentStatus(ctx context.Context, orderID int64, status orders.PaymentStatus) error
}

// IdempotencyPort guards against replayed submissions.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheInvalidator drops cached report results after writes.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// MetricsRecorder counts recorded receipts.
type MetricsRecorder interface {
	ReceiptRecorded()
}

// Service coordinates the receipt ledger.
type Service struct {
	repo    RepositoryPort
	idem    IdempotencyPort
	audit   AuditPort
	cache   CacheInvalidator
	metrics MetricsRecorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds Service; every collaborator except repo may be nil.
func NewService(repo RepositoryPort, idem IdempotencyPort, audit AuditPort, cache CacheInvalidator, metrics MetricsRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, idem: idem, audit: audit, cache: cache, metrics: metrics, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// RecordPayment stores a receipt under the next receipt code and refreshes the order payment status.
func (s *Service) RecordPayment(ctx context.Context, principal shared.Principal, input RecordInput) (Recorded, error) {
	if err := input.Validate(); err != nil {
		return Recorded{}, err
	}
	if input.IdempotencyKey != "" && s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, input.IdempotencyKey, idempotencyModule); err != nil {
			return Recorded{}, err
		}
	}
	var out Recorded
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			return err
		}
		seq, code, err := numbering.NextReceipt(ctx, tx)
		if err != nil {
			return err
		}
		receipt := Receipt{
			OrderID:       order.ID,
			CustomerID:    order.CustomerID,
			Code:          code,
			Sequence:      seq,
			Amount:        input.Amount,
			Bank:          input.Bank,
			TransactionID: input.TransactionID,
			ReceivedAt:    input.ReceivedAt,
			CreatedBy:     principal.ID,
			Remark:        input.Remark,
			Purpose:       input.Purpose,
			CreatedAt:     s.now(),
		}
		if receipt.ID, err = tx.InsertReceipt(ctx, receipt); err != nil {
			return err
		}
		receipts, err := tx.ReceiptsByOrder(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("payments: load receipts: %w", err)
		}
		balance := BalanceOf(order, receipts)
		if balance.PaymentStatus != order.PaymentStatus {
			if err := tx.SetPaymentStatus(ctx, order.ID, balance.PaymentStatus); err != nil {
				return fmt.Errorf("payments: set payment status: %w", err)
			}
		}
		out = Recorded{Receipt: receipt, Balance: balance}
		return nil
	})
	if err != nil {
		if input.IdempotencyKey != "" && s.idem != nil {
			if derr := s.idem.Delete(context.WithoutCancel(ctx), input.IdempotencyKey, idempotencyModule); derr != nil {
				s.logger.Warn("payments release idempotency key", slog.Any("error", derr))
			}
		}
		return Recorded{}, err
	}
	if s.metrics != nil {
		s.metrics.ReceiptRecorded()
	}
	if s.audit != nil {
		log := shared.NewAuditLog(principal.ID, "payment.record", "receipt", out.Receipt.ID, map[string]any{
			"code":     out.Receipt.Code,
			"order_id": out.Receipt.OrderID,
			"amount":   out.Receipt.Amount.String(),
		})
		if err := s.audit.Record(ctx, log); err != nil {
			s.logger.Warn("payments audit", slog.Any("error", err))
		}
	}
	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil {
			s.logger.Warn("payments bump report cache", slog.Any("error", err))
		}
	}
	return out, nil
}

// OrderBalance returns total minus received for one order.
func (s *Service) OrderBalance(ctx context.Context, orderID int64) (Balance, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return Balance{}, err
	}
	receipts, err := s.repo.ReceiptsByOrder(ctx, orderID)
	if err != nil {
		return Balance{}, fmt.Errorf("payments: load receipts: %w", err)
	}
	return BalanceOf(order, receipts), nil
}

// Ledger lists a customer's orders with nested receipts and balances.
func (s *Service) Ledger(ctx context.Context, customerID int64) ([]LedgerEntry, error) {
	list, err := s.repo.OrdersByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("payments: ledger orders: %w", err)
	}
	receipts, err := s.repo.ReceiptsByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("payments: ledger receipts: %w", err)
	}
	byOrder := make(map[int64][]Receipt, len(list))
	for _, r := range receipts {
		byOrder[r.OrderID] = append(byOrder[r.OrderID], r)
	}
	entries := make([]LedgerEntry, 0, len(list))
	for _, o := range list {
		rs := byOrder[o.ID]
		if rs == nil {
			rs = []Receipt{}
		}
		entries = append(entries, LedgerEntry{Order: o, Receipts: rs, Balance: BalanceOf(o, rs)})
	}
	return entries, nil
}

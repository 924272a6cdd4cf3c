package numbering

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/orderflow/internal/platform/db"
)

// Table names whose invoice column seeds a fresh counter row.
const (
	OrdersTable   = "orders"
	ProformaTable = "proforma_orders"
)

// PGStore implements CounterStore and SequenceStore on an open transaction.
type PGStore struct {
	q            db.Querier
	invoiceTable string
}

// NewPGStore binds the counters to q; invoiceTable is OrdersTable or ProformaTable.
func NewPGStore(q db.Querier, invoiceTable string) *PGStore {
	return &PGStore{q: q, invoiceTable: invoiceTable}
}

// LockCounter implements CounterStore.
func (s *PGStore) LockCounter(ctx context.Context, prefix string) (int64, bool, error) {
	var last int64
	err := s.q.QueryRow(ctx, `SELECT last_number FROM invoice_counters WHERE prefix=$1 FOR UPDATE`, prefix).Scan(&last)
	if err == nil {
		return last, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, err
	}
	// concurrent first use: only one insert wins, the loser locks the winner's row
	tag, err := s.q.Exec(ctx, `INSERT INTO invoice_counters (prefix, last_number, updated_at) VALUES ($1, 0, NOW()) ON CONFLICT (prefix) DO NOTHING`, prefix)
	if err != nil {
		return 0, false, err
	}
	if tag.RowsAffected() == 1 {
		return 0, false, nil
	}
	err = s.q.QueryRow(ctx, `SELECT last_number FROM invoice_counters WHERE prefix=$1 FOR UPDATE`, prefix).Scan(&last)
	if err != nil {
		return 0, false, err
	}
	return last, true, nil
}

// LastIssued implements CounterStore.
func (s *PGStore) LastIssued(ctx context.Context, prefix string) (string, bool, error) {
	if s.invoiceTable != OrdersTable && s.invoiceTable != ProformaTable {
		return "", false, fmt.Errorf("numbering: unknown invoice table %q", s.invoiceTable)
	}
	var invoice string
	err := s.q.QueryRow(ctx, `SELECT invoice FROM `+s.invoiceTable+` WHERE invoice LIKE $1 || '%' ORDER BY invoice DESC LIMIT 1`, prefix).Scan(&invoice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return invoice, true, nil
}

// SaveCounter implements CounterStore.
func (s *PGStore) SaveCounter(ctx context.Context, prefix string, last int64) error {
	_, err := s.q.Exec(ctx, `UPDATE invoice_counters SET last_number=$2, updated_at=NOW() WHERE prefix=$1`, prefix, last)
	return err
}

// NextReceiptSequence implements SequenceStore; the row update holds its lock until commit.
func (s *PGStore) NextReceiptSequence(ctx context.Context) (int64, error) {
	var seq int64
	err := s.q.QueryRow(ctx, `UPDATE receipt_sequence SET last_value = last_value + 1 WHERE id = 1 RETURNING last_value`).Scan(&seq)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, errors.New("numbering: receipt_sequence row missing")
		}
		return 0, err
	}
	return seq, nil
}

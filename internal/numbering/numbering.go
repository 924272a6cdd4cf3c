// Package numbering issues invoice numbers and receipt codes from locked counter rows.
package numbering

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/odyssey-erp/orderflow/internal/shared"
)

// SuffixDigits is the zero padded width of invoice suffixes.
const SuffixDigits = 6

// ErrMissingPrefix indicates the issuing company has no invoice prefix configured.
var ErrMissingPrefix = fmt.Errorf("%w: invoice prefix not configured", shared.ErrValidation)

// CounterStore is the transactional view of the per-prefix counters.
type CounterStore interface {
	// LockCounter locks the counter row for prefix; found is false when no row exists yet.
	LockCounter(ctx context.Context, prefix string) (last int64, found bool, err error)
	// LastIssued returns the lexicographically greatest invoice already issued with prefix.
	LastIssued(ctx context.Context, prefix string) (invoice string, found bool, err error)
	SaveCounter(ctx context.Context, prefix string, last int64) error
}

// Format renders prefix followed by the zero padded suffix.
func Format(prefix string, n int64) string {
	return fmt.Sprintf("%s%0*d", prefix, SuffixDigits, n)
}

// ParseSuffix extracts the numeric suffix of invoice issued under prefix.
func ParseSuffix(prefix, invoice string) (int64, bool) {
	if !strings.HasPrefix(invoice, prefix) {
		return 0, false
	}
	digits := strings.TrimPrefix(invoice, prefix)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Next issues the next invoice number for prefix. It must run inside the transaction
// that persists the invoice so the counter row lock covers the insert.
func Next(ctx context.Context, store CounterStore, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", ErrMissingPrefix
	}
	last, found, err := store.LockCounter(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("numbering: lock counter %s: %w", prefix, err)
	}
	if !found {
		last, err = seed(ctx, store, prefix)
		if err != nil {
			return "", err
		}
	}
	next := last + 1
	if err := store.SaveCounter(ctx, prefix, next); err != nil {
		return "", fmt.Errorf("numbering: save counter %s: %w", prefix, err)
	}
	return Format(prefix, next), nil
}

// seed continues from invoices issued before the counter row existed.
func seed(ctx context.Context, store CounterStore, prefix string) (int64, error) {
	invoice, found, err := store.LastIssued(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("numbering: last issued %s: %w", prefix, err)
	}
	if !found {
		return 0, nil
	}
	n, ok := ParseSuffix(prefix, invoice)
	if !ok {
		return 0, nil
	}
	return n, nil
}

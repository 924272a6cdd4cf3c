package numbering

import (
	"context"
	"fmt"
)

// SequenceStore hands out values of a dedicated monotonically increasing sequence.
type SequenceStore interface {
	NextReceiptSequence(ctx context.Context) (int64, error)
}

// ReceiptCode renders REC-<seq padded to 4><letter>, the letter cycling A..Z with seq.
func ReceiptCode(seq int64) string {
	letter := rune('A' + seq%26)
	return fmt.Sprintf("REC-%04d%c", seq, letter)
}

// NextReceipt draws a sequence value and returns it with its receipt code.
func NextReceipt(ctx context.Context, store SequenceStore) (int64, string, error) {
	seq, err := store.NextReceiptSequence(ctx)
	if err != nil {
		return 0, "", fmt.Errorf("numbering: receipt sequence: %w", err)
	}
	if seq <= 0 {
		return 0, "", fmt.Errorf("numbering: receipt sequence returned %d", seq)
	}
	return seq, ReceiptCode(seq), nil
}

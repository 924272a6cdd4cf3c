package catalog

import (
	"context"
	"errors"
	"fmt"
)

// StockTx is the transactional stock view used by order and proforma engines.
type StockTx interface {
	GetProduct(ctx context.Context, id int64) (Product, error)
	// TryDecrementStock applies stock = stock - qty only when stock >= qty.
	TryDecrementStock(ctx context.Context, id int64, qty int) (bool, error)
	IncrementStock(ctx context.Context, id int64, qty int) error
}

// DecrementStock atomically reduces stock or fails with InsufficientStockError.
// It must run inside the transaction that writes the order rows.
func DecrementStock(ctx context.Context, tx StockTx, productID int64, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	applied, err := tx.TryDecrementStock(ctx, productID, qty)
	if err != nil {
		return fmt.Errorf("catalog: decrement stock: %w", err)
	}
	if applied {
		return nil
	}
	p, err := tx.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return err
		}
		return fmt.Errorf("catalog: load product %d: %w", productID, err)
	}
	return &InsufficientStockError{ProductID: p.ID, Name: p.Name, Requested: qty, Available: p.Stock}
}

// RestockItems returns quantities to stock, used when an order is cancelled.
func RestockItems(ctx context.Context, tx StockTx, quantities map[int64]int) error {
	for productID, qty := range quantities {
		if qty <= 0 {
			continue
		}
		if err := tx.IncrementStock(ctx, productID, qty); err != nil {
			return fmt.Errorf("catalog: restock product %d: %w", productID, err)
		}
	}
	return nil
}

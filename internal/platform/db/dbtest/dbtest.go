// Package dbtest opens a schema-initialised Postgres pool for repository tests.
// Tests are skipped unless ORDERFLOW_TEST_PG_DSN points at a disposable database.
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/orderflow/migrations"
)

const dsnEnv = "ORDERFLOW_TEST_PG_DSN"

// Pool connects to the test database, applies the schema, and closes the pool on cleanup.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	schema, err := migrations.Schema()
	require.NoError(t, err)
	_, err = pool.Exec(ctx, schema)
	require.NoError(t, err)
	return pool
}

// Fixture holds the rows an order needs to reference.
type Fixture struct {
	UserID     int64
	CustomerID int64
	ProductID  int64
	CompanyID  int64
}

// SeedFixture inserts a user, customer and product with unique keys and removes
// them, plus anything referencing them, on cleanup.
func SeedFixture(t *testing.T, pool *pgxpool.Pool) Fixture {
	t.Helper()
	ctx := context.Background()
	suffix := time.Now().Format("150405.000000000")
	var f Fixture

	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO users (email, password_hash, designation, approval_status)
VALUES ($1, 'x', 'Sales', 'approved') RETURNING id`, "repo-"+suffix+"@orderflow.test").Scan(&f.UserID))
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO customers (name, email, phone, created_by)
VALUES ('Repo Customer', $1, $2, $3) RETURNING id`, "c-"+suffix+"@orderflow.test", "+91"+suffix, f.UserID).Scan(&f.CustomerID))
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO products (name, stock, selling_price, tax, approval_status)
VALUES ($1, 10, 100, 18, 'approved') RETURNING id`, "Repo Product "+suffix).Scan(&f.ProductID))
	require.NoError(t, pool.QueryRow(ctx, `SELECT id FROM companies WHERE name = 'Head Office'`).Scan(&f.CompanyID))

	t.Cleanup(func() {
		ctx := context.Background()
		_, _ = pool.Exec(ctx, `DELETE FROM order_items WHERE product_id = $1`, f.ProductID)
		_, _ = pool.Exec(ctx, `DELETE FROM proforma_items WHERE product_id = $1`, f.ProductID)
		_, _ = pool.Exec(ctx, `DELETE FROM orders WHERE customer_id = $1`, f.CustomerID)
		_, _ = pool.Exec(ctx, `DELETE FROM proforma_orders WHERE customer_id = $1`, f.CustomerID)
		_, _ = pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, f.ProductID)
		_, _ = pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, f.CustomerID)
		_, _ = pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, f.UserID)
	})
	return f
}

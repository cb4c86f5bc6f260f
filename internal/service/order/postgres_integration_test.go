package order

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront-api/internal/db"
	"storefront-api/internal/domain"
	"storefront-api/internal/migrate"
	orderrepo "storefront-api/internal/repository/order"
)

func TestPlaceConcurrent_Integration(t *testing.T) {
	ctx := context.Background()
	pool := integrationPool(ctx, t)
	defer pool.Close()

	require.NoError(t, migrate.Apply(ctx, pool))
	resetTables(ctx, t, pool)

	var productID int64
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO products (name, price_cents, stock) VALUES ('Lamp', 250, 10) RETURNING id`).Scan(&productID))

	svc := New(orderrepo.NewPostgres(pool, db.NewTransactor(pool, 5), zap.NewNop()), nil)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		placed   int
		rejected int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Place(ctx, nil, guest(line(productID, nil, 6)))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrInsufficientStock)
				rejected++
				return
			}
			placed++
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, placed)
	assert.Equal(t, 1, rejected)

	var stock int
	require.NoError(t, pool.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock))
	assert.Equal(t, 4, stock)
}

func TestPlaceRollback_Integration(t *testing.T) {
	ctx := context.Background()
	pool := integrationPool(ctx, t)
	defer pool.Close()

	require.NoError(t, migrate.Apply(ctx, pool))
	resetTables(ctx, t, pool)

	var mug, shirt, small int64
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO products (name, price_cents, stock) VALUES ('Mug', 500, 10) RETURNING id`).Scan(&mug))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO products (name, has_variants) VALUES ('Shirt', TRUE) RETURNING id`).Scan(&shirt))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO variants (product_id, name, price_cents, stock) VALUES ($1, 'Small', 2000, 1) RETURNING id`, shirt).Scan(&small))

	svc := New(orderrepo.NewPostgres(pool, db.NewTransactor(pool, 0), zap.NewNop()), nil)

	_, err := svc.Place(ctx, nil, guest(line(mug, nil, 3), line(shirt, ptr(small), 2)))
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	var mugStock, orders int
	require.NoError(t, pool.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, mug).Scan(&mugStock))
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&orders))
	assert.Equal(t, 10, mugStock)
	assert.Zero(t, orders)

	o, err := svc.Place(ctx, nil, guest(line(mug, nil, 3), line(shirt, ptr(small), 1)))
	require.NoError(t, err)
	assert.Equal(t, int64(3*500+2000), o.TotalCents)

	got, err := svc.Get(ctx, nil, o.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)

	_, err = svc.UpdateStatus(ctx, nil, o.ID, string(domain.StatusCanceled))
	require.NoError(t, err)
	require.NoError(t, pool.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, mug).Scan(&mugStock))
	assert.Equal(t, 10, mugStock)
}

func TestDeleteCustomerReleasesStock_Integration(t *testing.T) {
	ctx := context.Background()
	pool := integrationPool(ctx, t)
	defer pool.Close()

	require.NoError(t, migrate.Apply(ctx, pool))
	resetTables(ctx, t, pool)

	var productID int64
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO products (name, price_cents, stock) VALUES ('Kettle', 3000, 10) RETURNING id`).Scan(&productID))
	var owner domain.Customer
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO customers (email, name) VALUES ('owner@example.com', 'Owner') RETURNING id, email`).Scan(&owner.ID, &owner.Email))

	svc := New(orderrepo.NewPostgres(pool, db.NewTransactor(pool, 0), zap.NewNop()), nil)
	_, err := svc.Place(ctx, &owner, PlaceInput{Items: []LineInput{line(productID, nil, 3)}})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCustomer(ctx, owner.ID))

	var stock, orders int
	require.NoError(t, pool.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock))
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&orders))
	assert.Equal(t, 10, stock)
	assert.Zero(t, orders)
	assert.ErrorIs(t, svc.DeleteCustomer(ctx, owner.ID), domain.ErrNotFound)
}

func integrationPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("ping db: %v", err)
	}
	return pool
}

func resetTables(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(ctx, `TRUNCATE order_items, orders, variants, products, addresses, customers RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

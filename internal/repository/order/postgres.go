package order

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront-api/internal/db"
	"storefront-api/internal/domain"
	"storefront-api/internal/logger"
	customerrepo "storefront-api/internal/repository/customer"
	productrepo "storefront-api/internal/repository/product"
)

const (
	orderColumns = `id, customer_id, customer_email, order_date, status, total_cents, currency`
	itemColumns  = `id, order_id, product_id, variant_id, quantity, price_per_unit`
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	tx     *db.Transactor
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, tx *db.Transactor, log *zap.Logger) Repository {
	return &postgresRepo{pool: pool, tx: tx, logger: logger.OrNop(log)}
}

func (r *postgresRepo) Transact(ctx context.Context, fn func(tx Tx) error) error {
	return r.tx.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := attachItems(ctx, r.pool, []*domain.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) List(ctx context.Context, skip, limit int) ([]domain.Order, error) {
	return r.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY id ASC OFFSET $1 LIMIT $2`, skip, limit)
}

// ListByCustomer returns the customer's orders and, when guestEmail is set,
// guest orders placed with that email.
func (r *postgresRepo) ListByCustomer(ctx context.Context, customerID int64, guestEmail string) ([]domain.Order, error) {
	if guestEmail == "" {
		return r.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE customer_id = $1 ORDER BY id ASC`, customerID)
	}
	return r.queryOrders(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE customer_id = $1 OR (customer_id IS NULL AND lower(customer_email) = lower($2))
ORDER BY id ASC
`, customerID, guestEmail)
}

func (r *postgresRepo) GetItem(ctx context.Context, id int64) (*domain.OrderItem, error) {
	return scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM order_items WHERE id = $1`, id))
}

func (r *postgresRepo) queryOrders(ctx context.Context, q string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Error("order repo: query", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var ptrs []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		ptrs = append(ptrs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := attachItems(ctx, r.pool, ptrs); err != nil {
		return nil, err
	}
	result := make([]domain.Order, 0, len(ptrs))
	for _, o := range ptrs {
		result = append(result, *o)
	}
	return result, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return productrepo.LockProduct(ctx, t.tx, id)
}

func (t *pgTx) LockVariant(ctx context.Context, id int64) (*domain.Variant, error) {
	return productrepo.LockVariant(ctx, t.tx, id)
}

func (t *pgTx) SaveStock(ctx context.Context, src domain.StockSource) error {
	return productrepo.SetStock(ctx, t.tx, src)
}

func (t *pgTx) EnsureCustomer(ctx context.Context, email, name string) (*domain.Customer, error) {
	return customerrepo.Ensure(ctx, t.tx, email, name)
}

func (t *pgTx) LockCustomerOrders(ctx context.Context, customerID int64) ([]domain.Order, error) {
	var id int64
	if err := t.tx.QueryRow(ctx, `SELECT id FROM customers WHERE id = $1 FOR UPDATE`, customerID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	rows, err := t.tx.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE customer_id = $1 ORDER BY id ASC FOR UPDATE`, customerID)
	if err != nil {
		return nil, err
	}
	var ptrs []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		ptrs = append(ptrs, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := attachItems(ctx, t.tx, ptrs); err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(ptrs))
	for _, o := range ptrs {
		out = append(out, *o)
	}
	return out, nil
}

// DeleteCustomer removes the customer; addresses, orders and items go with it.
func (t *pgTx) DeleteCustomer(ctx context.Context, id int64) error {
	return execOne(ctx, t.tx, `DELETE FROM customers WHERE id = $1`, id)
}

func (t *pgTx) CreateOrder(ctx context.Context, o domain.Order) (*domain.Order, error) {
	return scanOrder(t.tx.QueryRow(ctx, `
INSERT INTO orders (customer_id, customer_email, order_date, status, total_cents, currency)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+orderColumns, o.CustomerID, o.CustomerEmail, o.OrderDate, string(o.Status), o.TotalCents, o.Currency))
}

func (t *pgTx) LockOrder(ctx context.Context, id int64) (*domain.Order, error) {
	o, err := scanOrder(t.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if err := attachItems(ctx, t.tx, []*domain.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (t *pgTx) UpdateOrder(ctx context.Context, id int64, status domain.OrderStatus, totalCents int64) error {
	return execOne(ctx, t.tx, `UPDATE orders SET status = $2, total_cents = $3 WHERE id = $1`, id, string(status), totalCents)
}

func (t *pgTx) DeleteOrder(ctx context.Context, id int64) error {
	return execOne(ctx, t.tx, `DELETE FROM orders WHERE id = $1`, id)
}

func (t *pgTx) CreateItem(ctx context.Context, it domain.OrderItem) (*domain.OrderItem, error) {
	return scanItem(t.tx.QueryRow(ctx, `
INSERT INTO order_items (order_id, product_id, variant_id, quantity, price_per_unit)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+itemColumns, it.OrderID, it.ProductID, it.VariantID, it.Quantity, it.UnitCents))
}

func (t *pgTx) LockItem(ctx context.Context, id int64) (*domain.OrderItem, error) {
	return scanItem(t.tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM order_items WHERE id = $1 FOR UPDATE`, id))
}

func (t *pgTx) UpdateItemQuantity(ctx context.Context, id int64, quantity int) error {
	return execOne(ctx, t.tx, `UPDATE order_items SET quantity = $2 WHERE id = $1`, id, quantity)
}

func (t *pgTx) DeleteItem(ctx context.Context, id int64) error {
	return execOne(ctx, t.tx, `DELETE FROM order_items WHERE id = $1`, id)
}

func execOne(ctx context.Context, q db.DBTX, stmt string, args ...any) error {
	cmd, err := q.Exec(ctx, stmt, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func attachItems(ctx context.Context, q db.DBTX, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(orders))
	byID := make(map[int64]*domain.Order, len(orders))
	for _, o := range orders {
		o.Items = []domain.OrderItem{}
		ids = append(ids, o.ID)
		byID[o.ID] = o
	}
	rows, err := q.Query(ctx, `SELECT `+itemColumns+` FROM order_items WHERE order_id = ANY($1) ORDER BY id ASC`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return err
		}
		if o, ok := byID[it.OrderID]; ok {
			o.Items = append(o.Items, *it)
		}
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o      domain.Order
		status string
	)
	if err := row.Scan(&o.ID, &o.CustomerID, &o.CustomerEmail, &o.OrderDate, &status, &o.TotalCents, &o.Currency); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	return &o, nil
}

func scanItem(row pgx.Row) (*domain.OrderItem, error) {
	var it domain.OrderItem
	if err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.VariantID, &it.Quantity, &it.UnitCents); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

package address

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront-api/internal/db"
	"storefront-api/internal/domain"
	"storefront-api/internal/logger"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	tx     *db.Transactor
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, tx *db.Transactor, log *zap.Logger) Repository {
	return &postgresRepo{pool: pool, tx: tx, logger: logger.OrNop(log)}
}

func (r *postgresRepo) Create(ctx context.Context, a domain.Address) (*domain.Address, error) {
	var out *domain.Address
	err := r.tx.WithTx(ctx, func(tx pgx.Tx) error {
		if err := lockCustomer(ctx, tx, a.CustomerID); err != nil {
			return err
		}
		if a.IsDefault {
			if err := clearDefault(ctx, tx, a.CustomerID, 0); err != nil {
				return err
			}
		}
		var err error
		out, err = scanAddress(tx.QueryRow(ctx, `
INSERT INTO addresses (customer_id, address, is_default)
VALUES ($1, $2, $3)
RETURNING id, customer_id, address, is_default
`, a.CustomerID, a.Address, a.IsDefault))
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		r.logger.Error("address repo: create", zap.Int64("customer_id", a.CustomerID), zap.Error(err))
		return nil, err
	}
	return out, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Address, error) {
	return scanAddress(r.pool.QueryRow(ctx, `
SELECT id, customer_id, address, is_default
FROM addresses
WHERE id = $1
`, id))
}

func (r *postgresRepo) ListByCustomer(ctx context.Context, customerID int64) ([]domain.Address, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, customer_id, address, is_default
FROM addresses
WHERE customer_id = $1
ORDER BY id ASC
`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Address, 0)
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *postgresRepo) Update(ctx context.Context, a domain.Address) (*domain.Address, error) {
	var out *domain.Address
	err := r.tx.WithTx(ctx, func(tx pgx.Tx) error {
		var customerID int64
		if err := tx.QueryRow(ctx, `SELECT customer_id FROM addresses WHERE id = $1`, a.ID).Scan(&customerID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return err
		}
		if err := lockCustomer(ctx, tx, customerID); err != nil {
			return err
		}
		if a.IsDefault {
			if err := clearDefault(ctx, tx, customerID, a.ID); err != nil {
				return err
			}
		}
		var err error
		out, err = scanAddress(tx.QueryRow(ctx, `
UPDATE addresses
SET address = $2, is_default = $3
WHERE id = $1
RETURNING id, customer_id, address, is_default
`, a.ID, a.Address, a.IsDefault))
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *postgresRepo) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM addresses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// lockCustomer serializes default-flag changes for one customer.
func lockCustomer(ctx context.Context, tx pgx.Tx, customerID int64) error {
	var id int64
	err := tx.QueryRow(ctx, `SELECT id FROM customers WHERE id = $1 FOR UPDATE`, customerID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFound("customer", customerID)
	}
	return err
}

func clearDefault(ctx context.Context, tx pgx.Tx, customerID, keepID int64) error {
	_, err := tx.Exec(ctx, `
UPDATE addresses
SET is_default = FALSE
WHERE customer_id = $1 AND id <> $2 AND is_default
`, customerID, keepID)
	return err
}

func scanAddress(row pgx.Row) (*domain.Address, error) {
	var a domain.Address
	if err := row.Scan(&a.ID, &a.CustomerID, &a.Address, &a.IsDefault); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

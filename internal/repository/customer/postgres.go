package customer

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront-api/internal/db"
	"storefront-api/internal/domain"
	"storefront-api/internal/logger"
)

const selectColumns = `id, email, name, COALESCE(password_hash, ''), is_active`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, log *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.OrNop(log)}
}

func (r *postgresRepo) Create(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	out, err := Insert(ctx, r.pool, c)
	if err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		r.logger.Error("customer repo: create", zap.String("email", c.Email), zap.Error(err))
	}
	return out, err
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	return FindByEmail(ctx, r.pool, email)
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	const q = `SELECT ` + selectColumns + ` FROM customers WHERE id = $1`
	return scanCustomer(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) List(ctx context.Context, skip, limit int) ([]domain.Customer, error) {
	const q = `SELECT ` + selectColumns + ` FROM customers ORDER BY id ASC OFFSET $1 LIMIT $2`
	rows, err := r.pool.Query(ctx, q, skip, limit)
	if err != nil {
		r.logger.Error("customer repo: list", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

func (r *postgresRepo) Update(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	const q = `
UPDATE customers
SET email = $2, name = $3
WHERE id = $1
RETURNING ` + selectColumns
	out, err := scanCustomer(r.pool.QueryRow(ctx, q, c.ID, normalizeEmail(c.Email), c.Name))
	if err != nil && db.IsUniqueViolation(err) {
		return nil, domain.ErrAlreadyExists
	}
	return out, err
}

func (r *postgresRepo) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("customer repo: delete", zap.Int64("id", id), zap.Error(err))
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Insert creates a customer using q, which may be a pool or a transaction.
func Insert(ctx context.Context, q db.DBTX, c domain.Customer) (*domain.Customer, error) {
	const stmt = `
INSERT INTO customers (email, name, password_hash, is_active)
VALUES ($1, $2, NULLIF($3, ''), $4)
RETURNING ` + selectColumns
	out, err := scanCustomer(q.QueryRow(ctx, stmt, normalizeEmail(c.Email), c.Name, c.PasswordHash, c.IsActive))
	if err != nil && db.IsUniqueViolation(err) {
		return nil, domain.ErrAlreadyExists
	}
	return out, err
}

// Ensure returns the customer with the given email, creating it without a
// password when missing. Concurrent callers converge on the same row.
func Ensure(ctx context.Context, q db.DBTX, email, name string) (*domain.Customer, error) {
	const stmt = `
INSERT INTO customers (email, name, is_active)
VALUES ($1, $2, TRUE)
ON CONFLICT (email) DO UPDATE SET email = customers.email
RETURNING ` + selectColumns
	return scanCustomer(q.QueryRow(ctx, stmt, normalizeEmail(email), name))
}

// FindByEmail looks a customer up case-insensitively.
func FindByEmail(ctx context.Context, q db.DBTX, email string) (*domain.Customer, error) {
	const stmt = `SELECT ` + selectColumns + ` FROM customers WHERE email = $1 LIMIT 1`
	return scanCustomer(q.QueryRow(ctx, stmt, normalizeEmail(email)))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	if err := row.Scan(&c.ID, &c.Email, &c.Name, &c.PasswordHash, &c.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

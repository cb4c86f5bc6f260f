package product

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

const (
	productColumns = `id, name, description, price_cents, stock, has_variants, currency`
	variantColumns = `id, product_id, name, price_cents, stock, currency`
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, log *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.OrNop(log)}
}

func (r *postgresRepo) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (name, description, price_cents, stock, has_variants, currency)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + productColumns
	out, err := scanProduct(r.pool.QueryRow(ctx, q, p.Name, p.Description, p.PriceCents, p.StockCount, p.HasVariants, p.Currency))
	if err != nil {
		return nil, r.mapWriteErr("create", err)
	}
	out.Variants = []domain.Variant{}
	return out, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, err
	}
	if err := r.attachVariants(ctx, []*domain.Product{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) List(ctx context.Context, skip, limit int) ([]domain.Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products ORDER BY id ASC OFFSET $1 LIMIT $2`
	rows, err := r.pool.Query(ctx, q, skip, limit)
	if err != nil {
		r.logger.Error("product repo: list", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var ptrs []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		ptrs = append(ptrs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachVariants(ctx, ptrs); err != nil {
		return nil, err
	}

	result := make([]domain.Product, 0, len(ptrs))
	for _, p := range ptrs {
		result = append(result, *p)
	}
	r.logger.Debug("product repo: list", zap.Int("count", len(result)))
	return result, nil
}

func (r *postgresRepo) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
UPDATE products
SET name = $2, description = $3, price_cents = $4, stock = $5, has_variants = $6, currency = $7
WHERE id = $1
RETURNING ` + productColumns
	out, err := scanProduct(r.pool.QueryRow(ctx, q, p.ID, p.Name, p.Description, p.PriceCents, p.StockCount, p.HasVariants, p.Currency))
	if err != nil {
		return nil, r.mapWriteErr("update", err)
	}
	if err := r.attachVariants(ctx, []*domain.Product{out}); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the product and, through the schema, its variants. Products
// still referenced by order items cannot be deleted.
func (r *postgresRepo) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return r.mapWriteErr("delete", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) UpsertByName(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (name, description, price_cents, stock, has_variants, currency)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (name) DO UPDATE SET
    description = EXCLUDED.description,
    price_cents = EXCLUDED.price_cents,
    stock = EXCLUDED.stock,
    has_variants = EXCLUDED.has_variants,
    currency = EXCLUDED.currency
WHERE products.has_variants = EXCLUDED.has_variants
RETURNING ` + productColumns
	out, err := scanProduct(r.pool.QueryRow(ctx, q, p.Name, p.Description, p.PriceCents, p.StockCount, p.HasVariants, p.Currency))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, variantsMismatch(p)
	}
	if err != nil {
		r.logger.Error("product repo: upsert", zap.String("name", p.Name), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("product repo: upserted", zap.String("name", out.Name), zap.Int64("id", out.ID))
	return out, nil
}

func variantsMismatch(p domain.Product) error {
	if p.HasVariants {
		return domain.InvalidRequest("product %q is a simple product and cannot take variants", p.Name)
	}
	return domain.InvalidRequest("product %q has variants; import its rows with a variant name", p.Name)
}

func (r *postgresRepo) CreateVariant(ctx context.Context, v domain.Variant) (*domain.Variant, error) {
	const q = `
INSERT INTO variants (product_id, name, price_cents, stock, currency)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + variantColumns
	out, err := scanVariant(r.pool.QueryRow(ctx, q, v.ProductID, v.Name, v.PriceCents, v.StockCount, v.Currency))
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return nil, domain.NotFound("product", v.ProductID)
		}
		return nil, r.mapWriteErr("create variant", err)
	}
	return out, nil
}

func (r *postgresRepo) GetVariant(ctx context.Context, id int64) (*domain.Variant, error) {
	const q = `SELECT ` + variantColumns + ` FROM variants WHERE id = $1`
	return scanVariant(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) ListVariants(ctx context.Context, skip, limit int) ([]domain.Variant, error) {
	const q = `SELECT ` + variantColumns + ` FROM variants ORDER BY id ASC OFFSET $1 LIMIT $2`
	return r.queryVariants(ctx, q, skip, limit)
}

func (r *postgresRepo) UpdateVariant(ctx context.Context, v domain.Variant) (*domain.Variant, error) {
	const q = `
UPDATE variants
SET name = $2, price_cents = $3, stock = $4, currency = $5
WHERE id = $1
RETURNING ` + variantColumns
	out, err := scanVariant(r.pool.QueryRow(ctx, q, v.ID, v.Name, v.PriceCents, v.StockCount, v.Currency))
	if err != nil {
		return nil, r.mapWriteErr("update variant", err)
	}
	return out, nil
}

func (r *postgresRepo) DeleteVariant(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM variants WHERE id = $1`, id)
	if err != nil {
		return r.mapWriteErr("delete variant", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) UpsertVariantByName(ctx context.Context, v domain.Variant) (*domain.Variant, error) {
	const q = `
INSERT INTO variants (product_id, name, price_cents, stock, currency)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (product_id, name) DO UPDATE SET
    price_cents = EXCLUDED.price_cents,
    stock = EXCLUDED.stock,
    currency = EXCLUDED.currency
RETURNING ` + variantColumns
	return scanVariant(r.pool.QueryRow(ctx, q, v.ProductID, v.Name, v.PriceCents, v.StockCount, v.Currency))
}

func (r *postgresRepo) attachVariants(ctx context.Context, products []*domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(products))
	byID := make(map[int64]*domain.Product, len(products))
	for _, p := range products {
		p.Variants = []domain.Variant{}
		ids = append(ids, p.ID)
		byID[p.ID] = p
	}
	variants, err := r.queryVariants(ctx, `SELECT `+variantColumns+` FROM variants WHERE product_id = ANY($1) ORDER BY id ASC`, ids)
	if err != nil {
		return err
	}
	for _, v := range variants {
		if p, ok := byID[v.ProductID]; ok {
			p.Variants = append(p.Variants, v)
		}
	}
	return nil
}

func (r *postgresRepo) queryVariants(ctx context.Context, q string, args ...any) ([]domain.Variant, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Variant, 0)
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *v)
	}
	return result, rows.Err()
}

func (r *postgresRepo) mapWriteErr(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return err
	case db.IsUniqueViolation(err):
		return domain.ErrAlreadyExists
	case db.IsForeignKeyViolation(err):
		return domain.ErrAlreadyExists
	}
	r.logger.Error("product repo: "+op, zap.Error(err))
	return err
}

// LockProduct reads a product row FOR UPDATE within tx.
func LockProduct(ctx context.Context, q db.DBTX, id int64) (*domain.Product, error) {
	return scanProduct(q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
}

// LockVariant reads a variant row FOR UPDATE within tx.
func LockVariant(ctx context.Context, q db.DBTX, id int64) (*domain.Variant, error) {
	return scanVariant(q.QueryRow(ctx, `SELECT `+variantColumns+` FROM variants WHERE id = $1 FOR UPDATE`, id))
}

// SetStock writes the staged stock of a product or variant.
func SetStock(ctx context.Context, q db.DBTX, src domain.StockSource) error {
	var (
		cmdErr error
		rows   int64
	)
	switch s := src.(type) {
	case *domain.Product:
		cmd, err := q.Exec(ctx, `UPDATE products SET stock = $2 WHERE id = $1`, s.ID, s.StockCount)
		cmdErr, rows = err, cmd.RowsAffected()
	case *domain.Variant:
		cmd, err := q.Exec(ctx, `UPDATE variants SET stock = $2 WHERE id = $1`, s.ID, s.StockCount)
		cmdErr, rows = err, cmd.RowsAffected()
	default:
		return errors.New("product repo: unknown stock source")
	}
	if cmdErr != nil {
		return cmdErr
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.StockCount, &p.HasVariants, &p.Currency); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanVariant(row pgx.Row) (*domain.Variant, error) {
	var v domain.Variant
	if err := row.Scan(&v.ID, &v.ProductID, &v.Name, &v.PriceCents, &v.StockCount, &v.Currency); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

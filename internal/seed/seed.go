package seed

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"storefront-api/internal/domain"
	"storefront-api/internal/logger"
)

// DemoEmail and DemoPassword are the credentials of the seeded customer.
const (
	DemoEmail    = "demo@example.com"
	DemoPassword = "demo-password"
)

// Catalog imports catalog rows by name.
type Catalog interface {
	ImportRow(ctx context.Context, product, description, currency, variant string, price int64, stock int) (*domain.Product, error)
}

// Customers creates customers.
type Customers interface {
	Create(ctx context.Context, c domain.Customer) (*domain.Customer, error)
}

// Hasher hashes the demo password.
type Hasher interface {
	Hash(password string) (string, error)
}

type productSeed struct {
	Name        string
	Description string
	Variant     string
	PriceCents  int64
	Stock       int
}

var products = []productSeed{
	{Name: "Demo Mug", Description: "Ceramic mug with demo logo", PriceCents: 1299, Stock: 50},
	{Name: "Demo T-Shirt", Description: "Soft cotton tee for demo purposes", Variant: "Small", PriceCents: 1999, Stock: 20},
	{Name: "Demo T-Shirt", Description: "Soft cotton tee for demo purposes", Variant: "Medium", PriceCents: 1999, Stock: 20},
	{Name: "Demo T-Shirt", Description: "Soft cotton tee for demo purposes", Variant: "Large", PriceCents: 2199, Stock: 10},
}

// Apply inserts demo data for manual testing. Running it again refreshes the
// catalog and leaves an existing demo customer untouched.
func Apply(ctx context.Context, catalog Catalog, customers Customers, hasher Hasher) error {
	log := logger.FromContext(ctx)
	for _, p := range products {
		if _, err := catalog.ImportRow(ctx, p.Name, p.Description, domain.DefaultCurrency, p.Variant, p.PriceCents, p.Stock); err != nil {
			return fmt.Errorf("seed product %s: %w", p.Name, err)
		}
	}
	log.Info("seeded catalog", zap.Int("rows", len(products)))

	hash, err := hasher.Hash(DemoPassword)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}
	_, err = customers.Create(ctx, domain.Customer{Email: DemoEmail, Name: "Demo Customer", PasswordHash: hash, IsActive: true})
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		log.Info("demo customer already present", zap.String("email", DemoEmail))
	case err != nil:
		return fmt.Errorf("seed customer: %w", err)
	default:
		log.Info("seeded demo customer", zap.String("email", DemoEmail))
	}
	return nil
}

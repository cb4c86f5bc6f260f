package product

import (
	"context"

	"storefront-api/internal/domain"
)

// Repository persists products and their variants.
type Repository interface {
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context, skip, limit int) ([]domain.Product, error)
	Update(ctx context.Context, p domain.Product) (*domain.Product, error)
	Delete(ctx context.Context, id int64) error
	// UpsertByName creates or updates the product with p's name. An existing
	// product whose has_variants differs from p is left alone and
	// ErrInvalidRequest is returned.
	UpsertByName(ctx context.Context, p domain.Product) (*domain.Product, error)

	CreateVariant(ctx context.Context, v domain.Variant) (*domain.Variant, error)
	GetVariant(ctx context.Context, id int64) (*domain.Variant, error)
	ListVariants(ctx context.Context, skip, limit int) ([]domain.Variant, error)
	UpdateVariant(ctx context.Context, v domain.Variant) (*domain.Variant, error)
	DeleteVariant(ctx context.Context, id int64) error
	UpsertVariantByName(ctx context.Context, v domain.Variant) (*domain.Variant, error)
}

package address

import (
	"context"

	"storefront-api/internal/domain"
)

// Repository persists customer addresses. Create and Update keep at most one
// default address per customer.
type Repository interface {
	Create(ctx context.Context, a domain.Address) (*domain.Address, error)
	GetByID(ctx context.Context, id int64) (*domain.Address, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]domain.Address, error)
	Update(ctx context.Context, a domain.Address) (*domain.Address, error)
	Delete(ctx context.Context, id int64) error
}

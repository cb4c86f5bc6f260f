package order

import (
	"context"

	"storefront-api/internal/domain"
)

// Repository reads orders and runs order-changing units of work atomically.
type Repository interface {
	// Transact runs fn in one transaction. Every write made through tx is
	// discarded when fn returns an error.
	Transact(ctx context.Context, fn func(tx Tx) error) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context, skip, limit int) ([]domain.Order, error)
	ListByCustomer(ctx context.Context, customerID int64, guestEmail string) ([]domain.Order, error)
	GetItem(ctx context.Context, id int64) (*domain.OrderItem, error)
}

// Tx is the set of operations available inside Transact. Lock* methods hold
// row locks until the transaction ends.
type Tx interface {
	LockProduct(ctx context.Context, id int64) (*domain.Product, error)
	LockVariant(ctx context.Context, id int64) (*domain.Variant, error)
	SaveStock(ctx context.Context, src domain.StockSource) error

	EnsureCustomer(ctx context.Context, email, name string) (*domain.Customer, error)
	// LockCustomerOrders locks the customer row, so no new order can reference
	// it, then every order of that customer.
	LockCustomerOrders(ctx context.Context, customerID int64) ([]domain.Order, error)
	DeleteCustomer(ctx context.Context, id int64) error

	CreateOrder(ctx context.Context, o domain.Order) (*domain.Order, error)
	LockOrder(ctx context.Context, id int64) (*domain.Order, error)
	UpdateOrder(ctx context.Context, id int64, status domain.OrderStatus, totalCents int64) error
	DeleteOrder(ctx context.Context, id int64) error

	CreateItem(ctx context.Context, it domain.OrderItem) (*domain.OrderItem, error)
	LockItem(ctx context.Context, id int64) (*domain.OrderItem, error)
	UpdateItemQuantity(ctx context.Context, id int64, quantity int) error
	DeleteItem(ctx context.Context, id int64) error
}

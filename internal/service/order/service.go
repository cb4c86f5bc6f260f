package order

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"storefront-api/internal/domain"
	"storefront-api/internal/logger"
	orderrepo "storefront-api/internal/repository/order"
)

// UnknownCustomerName names customers created implicitly by guest checkout.
const UnknownCustomerName = "Unknown"

// Observer receives order placement outcomes.
type Observer interface {
	OrderPlaced(totalCents int64, items int)
	OrderRejected(reason string)
}

type nopObserver struct{}

func (nopObserver) OrderPlaced(int64, int) {}
func (nopObserver) OrderRejected(string)   {}

// Service implements order placement, status changes and order item edits.
type Service struct {
	repo     orderrepo.Repository
	now      func() time.Time
	observer Observer
}

func New(repo orderrepo.Repository, observer Observer) *Service {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Service{repo: repo, now: time.Now, observer: observer}
}

// LineInput is one requested line of an order.
type LineInput struct {
	ProductID int64  `json:"product_id" binding:"required"`
	VariantID *int64 `json:"variant_id"`
	Quantity  int    `json:"quantity" binding:"required"`
}

// PlaceInput describes an order to place. CustomerEmail is required unless
// the caller is authenticated.
type PlaceInput struct {
	CustomerEmail string
	CustomerName  string
	CreateAccount bool
	Currency      string
	Items         []LineInput
}

func (in PlaceInput) validate(authenticated bool) error {
	if len(in.Items) == 0 {
		return domain.InvalidRequest("an order needs at least one item")
	}
	for i, line := range in.Items {
		if line.Quantity <= 0 {
			return domain.InvalidRequest("item %d: quantity must be greater than zero", i+1)
		}
	}
	if authenticated {
		return nil
	}
	email := strings.TrimSpace(in.CustomerEmail)
	if email == "" {
		return domain.InvalidRequest("customer_email required for guest orders")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.InvalidRequest("invalid customer_email %q", in.CustomerEmail)
	}
	return nil
}

// Place reserves stock for every line and records the order with its items
// in one transaction. Nothing is persisted when any line fails.
func (s *Service) Place(ctx context.Context, principal *domain.Customer, in PlaceInput) (*domain.Order, error) {
	log := logger.FromContext(ctx)
	if err := in.validate(principal != nil); err != nil {
		s.reject(ctx, err)
		return nil, err
	}

	var placed *domain.Order
	err := s.repo.Transact(ctx, func(tx orderrepo.Tx) error {
		sources := newSourceSet(tx)
		items := make([]domain.OrderItem, 0, len(in.Items))
		var total int64
		for i, line := range in.Items {
			src, err := sources.resolve(ctx, line)
			if err != nil {
				return fmt.Errorf("item %d: %w", i+1, err)
			}
			unit := src.UnitPrice()
			if err := src.DecrementStock(line.Quantity); err != nil {
				return fmt.Errorf("item %d: %w", i+1, err)
			}
			total += unit * int64(line.Quantity)
			items = append(items, domain.OrderItem{
				ProductID: line.ProductID,
				VariantID: line.VariantID,
				Quantity:  line.Quantity,
				UnitCents: unit,
			})
		}
		if err := sources.flush(ctx); err != nil {
			return err
		}

		o := domain.Order{
			OrderDate:  s.now().UTC(),
			Status:     domain.StatusPending,
			TotalCents: total,
			Currency:   currencyOrDefault(in.Currency),
		}
		if err := s.attachPurchaser(ctx, tx, principal, in, &o); err != nil {
			return err
		}
		created, err := tx.CreateOrder(ctx, o)
		if err != nil {
			return err
		}
		created.Items = make([]domain.OrderItem, 0, len(items))
		for _, it := range items {
			it.OrderID = created.ID
			saved, err := tx.CreateItem(ctx, it)
			if err != nil {
				return err
			}
			created.Items = append(created.Items, *saved)
		}
		placed = created
		return nil
	})
	if err != nil {
		s.reject(ctx, err)
		return nil, err
	}

	s.observer.OrderPlaced(placed.TotalCents, len(placed.Items))
	log.Info("order placed",
		zap.Int64("order_id", placed.ID),
		zap.Int64("total_cents", placed.TotalCents),
		zap.Int("items", len(placed.Items)),
	)
	return placed, nil
}

func (s *Service) attachPurchaser(ctx context.Context, tx orderrepo.Tx, principal *domain.Customer, in PlaceInput, o *domain.Order) error {
	switch {
	case principal != nil:
		id, email := principal.ID, principal.Email
		o.CustomerID, o.CustomerEmail = &id, &email
	case in.CreateAccount:
		name := strings.TrimSpace(in.CustomerName)
		if name == "" {
			name = UnknownCustomerName
		}
		c, err := tx.EnsureCustomer(ctx, strings.ToLower(strings.TrimSpace(in.CustomerEmail)), name)
		if err != nil {
			return err
		}
		id, email := c.ID, c.Email
		o.CustomerID, o.CustomerEmail = &id, &email
	default:
		email := strings.ToLower(strings.TrimSpace(in.CustomerEmail))
		o.CustomerEmail = &email
	}
	return nil
}

func (s *Service) reject(ctx context.Context, err error) {
	reason := failureReason(err)
	s.observer.OrderRejected(reason)
	if reason == "error" {
		logger.FromContext(ctx).Error("order placement failed", zap.Error(err))
		return
	}
	logger.FromContext(ctx).Warn("order rejected", zap.String("reason", reason), zap.Error(err))
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidRequest):
		return "invalid_request"
	default:
		return "error"
	}
}

// Get returns an order. Orders attributed to a customer are visible only to
// that customer; guest orders are open.
func (s *Service) Get(ctx context.Context, principal *domain.Customer, id int64) (*domain.Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "order", id)
	}
	if err := accessible(principal, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, skip, limit int) ([]domain.Order, error) {
	return s.repo.List(ctx, skip, limit)
}

// ListByCustomer returns the orders attributed to the customer plus, when
// guestEmail is set, guest orders placed with that email.
func (s *Service) ListByCustomer(ctx context.Context, customerID int64, guestEmail string) ([]domain.Order, error) {
	return s.repo.ListByCustomer(ctx, customerID, strings.TrimSpace(guestEmail))
}

// UpdateStatus moves the order along the status machine. Canceling releases
// the reserved stock.
func (s *Service) UpdateStatus(ctx context.Context, principal *domain.Customer, id int64, status string) (*domain.Order, error) {
	to, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	var updated *domain.Order
	err = s.repo.Transact(ctx, func(tx orderrepo.Tx) error {
		o, err := lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := accessible(principal, o); err != nil {
			return err
		}
		next, err := o.Status.Transition(to)
		if err != nil {
			return err
		}
		if next == domain.StatusCanceled {
			if err := release(ctx, tx, o.Items); err != nil {
				return err
			}
		}
		if err := tx.UpdateOrder(ctx, o.ID, next, o.TotalCents); err != nil {
			return err
		}
		o.Status = next
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("order status changed", zap.Int64("order_id", id), zap.String("status", string(updated.Status)))
	return updated, nil
}

// Delete removes the order and its items. Stock still held by the order is
// released; canceled orders have already given theirs back.
func (s *Service) Delete(ctx context.Context, principal *domain.Customer, id int64) error {
	return s.repo.Transact(ctx, func(tx orderrepo.Tx) error {
		o, err := lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := accessible(principal, o); err != nil {
			return err
		}
		if o.Status.HoldsStock() {
			if err := release(ctx, tx, o.Items); err != nil {
				return err
			}
		}
		return tx.DeleteOrder(ctx, o.ID)
	})
}

// DeleteCustomer removes a customer with all of their orders, giving back the
// stock those orders still hold.
func (s *Service) DeleteCustomer(ctx context.Context, customerID int64) error {
	released := 0
	err := s.repo.Transact(ctx, func(tx orderrepo.Tx) error {
		released = 0
		orders, err := tx.LockCustomerOrders(ctx, customerID)
		if err != nil {
			return notFound(err, "customer", customerID)
		}
		var held []domain.OrderItem
		for _, o := range orders {
			if o.Status.HoldsStock() {
				held = append(held, o.Items...)
				released++
			}
		}
		if err := release(ctx, tx, held); err != nil {
			return err
		}
		return notFound(tx.DeleteCustomer(ctx, customerID), "customer", customerID)
	})
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Info("customer deleted",
		zap.Int64("customer_id", customerID),
		zap.Int("orders_released", released),
	)
	return nil
}

func lockOrder(ctx context.Context, tx orderrepo.Tx, id int64) (*domain.Order, error) {
	o, err := tx.LockOrder(ctx, id)
	if err != nil {
		return nil, notFound(err, "order", id)
	}
	return o, nil
}

func release(ctx context.Context, tx orderrepo.Tx, items []domain.OrderItem) error {
	sources := newSourceSet(tx)
	for _, it := range items {
		src, err := sources.forItem(ctx, it)
		if err != nil {
			return err
		}
		src.RestoreStock(it.Quantity)
	}
	return sources.flush(ctx)
}

func currencyOrDefault(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return domain.DefaultCurrency
	}
	return c
}

func notFound(err error, entity string, id int64) error {
	if err != nil && errors.Is(err, domain.ErrNotFound) {
		return domain.NotFound(entity, id)
	}
	return err
}

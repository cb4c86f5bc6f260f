package customer

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"storefront-api/internal/domain"
	"storefront-api/internal/logger"
	addrrepo "storefront-api/internal/repository/address"
	custrepo "storefront-api/internal/repository/customer"
)

// Hasher turns a plaintext password into a stored hash.
type Hasher interface {
	Hash(password string) (string, error)
}

// OrderRemover deletes a customer together with their orders, returning the
// stock those orders hold.
type OrderRemover interface {
	DeleteCustomer(ctx context.Context, customerID int64) error
}

// Service handles customer and address use cases.
type Service struct {
	repo        custrepo.Repository
	addresses   addrrepo.Repository
	hasher      Hasher
	orders      OrderRemover
	passwordMin int
}

// New creates a Service with sane defaults. With a nil orders, Delete removes
// the customer row directly.
func New(repo custrepo.Repository, addresses addrrepo.Repository, hasher Hasher, orders OrderRemover) *Service {
	return &Service{
		repo:        repo,
		addresses:   addresses,
		hasher:      hasher,
		orders:      orders,
		passwordMin: 6,
	}
}

// CreateInput captures fields accepted when registering a customer.
type CreateInput struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password"`
}

// UpdateInput captures the mutable customer fields.
type UpdateInput struct {
	Email string `json:"email" binding:"required"`
	Name  string `json:"name" binding:"required"`
}

// AddressInput mirrors incoming address payloads.
type AddressInput struct {
	Address   string `json:"address" binding:"required"`
	IsDefault bool   `json:"is_default"`
}

// Create registers a customer. The password is optional; customers created
// without one cannot log in.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Customer, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.InvalidRequest("name required")
	}
	c := domain.Customer{Email: email, Name: name, IsActive: true}
	if in.Password != "" {
		if len(strings.TrimSpace(in.Password)) < s.passwordMin {
			return nil, domain.InvalidRequest("password must be at least %d characters", s.passwordMin)
		}
		hashed, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, err
		}
		c.PasswordHash = hashed
	}

	created, err := s.repo.Create(ctx, c)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.Conflict("email already registered")
		}
		return nil, err
	}
	created.Addresses = []domain.Address{}
	logger.FromContext(ctx).Info("customer created", zap.Int64("customer_id", created.ID))
	return created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Customer, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "customer", id)
	}
	addresses, err := s.addresses.ListByCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Addresses = addresses
	return c, nil
}

func (s *Service) List(ctx context.Context, skip, limit int) ([]domain.Customer, error) {
	return s.repo.List(ctx, skip, limit)
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*domain.Customer, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.InvalidRequest("name required")
	}
	updated, err := s.repo.Update(ctx, domain.Customer{ID: id, Email: email, Name: name})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.Conflict("email already registered")
		}
		return nil, notFound(err, "customer", id)
	}
	return updated, nil
}

// Delete removes the customer together with its addresses and orders.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if s.orders != nil {
		return notFound(s.orders.DeleteCustomer(ctx, id), "customer", id)
	}
	return notFound(s.repo.Delete(ctx, id), "customer", id)
}

func (s *Service) AddAddress(ctx context.Context, customerID int64, in AddressInput) (*domain.Address, error) {
	line := strings.TrimSpace(in.Address)
	if line == "" {
		return nil, domain.InvalidRequest("address required")
	}
	a, err := s.addresses.Create(ctx, domain.Address{CustomerID: customerID, Address: line, IsDefault: in.IsDefault})
	if err != nil {
		return nil, notFound(err, "customer", customerID)
	}
	return a, nil
}

func (s *Service) ListAddresses(ctx context.Context, customerID int64) ([]domain.Address, error) {
	if _, err := s.repo.GetByID(ctx, customerID); err != nil {
		return nil, notFound(err, "customer", customerID)
	}
	return s.addresses.ListByCustomer(ctx, customerID)
}

func (s *Service) GetAddress(ctx context.Context, id int64) (*domain.Address, error) {
	a, err := s.addresses.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "address", id)
	}
	return a, nil
}

func (s *Service) UpdateAddress(ctx context.Context, id int64, in AddressInput) (*domain.Address, error) {
	line := strings.TrimSpace(in.Address)
	if line == "" {
		return nil, domain.InvalidRequest("address required")
	}
	current, err := s.addresses.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "address", id)
	}
	current.Address = line
	current.IsDefault = in.IsDefault
	updated, err := s.addresses.Update(ctx, *current)
	if err != nil {
		return nil, notFound(err, "address", id)
	}
	return updated, nil
}

func (s *Service) DeleteAddress(ctx context.Context, id int64) error {
	return notFound(s.addresses.Delete(ctx, id), "address", id)
}

func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(strings.ToLower(raw))
	if email == "" {
		return "", domain.InvalidRequest("email required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", domain.InvalidRequest("invalid email %q", raw)
	}
	return email, nil
}

// notFound replaces a bare ErrNotFound with one naming the entity.
func notFound(err error, entity string, id int64) error {
	if err != nil && errors.Is(err, domain.ErrNotFound) {
		return domain.NotFound(entity, id)
	}
	return err
}

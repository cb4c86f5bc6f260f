package httpserver

import (
	"context"

	"go.uber.org/zap"

	"storefront-api/internal/domain"
	"storefront-api/internal/service/auth"
	customersvc "storefront-api/internal/service/customer"
	ordersvc "storefront-api/internal/service/order"
	productsvc "storefront-api/internal/service/product"
)

type stubAuthSvc struct {
	tokens   map[string]*domain.Customer
	loginErr error
}

func (s *stubAuthSvc) Login(_ context.Context, email, password string) (string, error) {
	if s.loginErr != nil {
		return "", s.loginErr
	}
	if password != "s3cret" {
		return "", auth.ErrInvalidCredentials
	}
	return "token-for-" + email, nil
}

func (s *stubAuthSvc) Authenticate(_ context.Context, token string) (*domain.Customer, error) {
	if c, ok := s.tokens[token]; ok {
		return c, nil
	}
	return nil, auth.ErrInvalidToken
}

type stubCustomerSvc struct {
	customer  *domain.Customer
	err       error
	lastInput customersvc.CreateInput
	lastAddr  customersvc.AddressInput
	lastCust  int64
}

func (s *stubCustomerSvc) Create(_ context.Context, in customersvc.CreateInput) (*domain.Customer, error) {
	s.lastInput = in
	return s.customer, s.err
}

func (s *stubCustomerSvc) Get(_ context.Context, id int64) (*domain.Customer, error) {
	if s.customer == nil || s.customer.ID != id {
		return nil, domain.NotFound("customer", id)
	}
	return s.customer, nil
}

func (s *stubCustomerSvc) List(context.Context, int, int) ([]domain.Customer, error) {
	return []domain.Customer{}, s.err
}

func (s *stubCustomerSvc) Update(context.Context, int64, customersvc.UpdateInput) (*domain.Customer, error) {
	return s.customer, s.err
}

func (s *stubCustomerSvc) Delete(context.Context, int64) error { return s.err }

func (s *stubCustomerSvc) AddAddress(_ context.Context, customerID int64, in customersvc.AddressInput) (*domain.Address, error) {
	s.lastCust, s.lastAddr = customerID, in
	return &domain.Address{ID: 1, CustomerID: customerID, Address: in.Address, IsDefault: in.IsDefault}, s.err
}

func (s *stubCustomerSvc) ListAddresses(context.Context, int64) ([]domain.Address, error) {
	return []domain.Address{}, s.err
}

func (s *stubCustomerSvc) GetAddress(_ context.Context, id int64) (*domain.Address, error) {
	return nil, domain.NotFound("address", id)
}

func (s *stubCustomerSvc) UpdateAddress(context.Context, int64, customersvc.AddressInput) (*domain.Address, error) {
	return nil, s.err
}

func (s *stubCustomerSvc) DeleteAddress(context.Context, int64) error { return s.err }

type stubProductSvc struct {
	lastSkip, lastLimit int
	err                 error
}

func (s *stubProductSvc) Create(_ context.Context, in productsvc.ProductInput) (*domain.Product, error) {
	return &domain.Product{ID: 1, Name: in.Name, Variants: []domain.Variant{}}, s.err
}

func (s *stubProductSvc) List(_ context.Context, skip, limit int) ([]domain.Product, error) {
	s.lastSkip, s.lastLimit = skip, limit
	return []domain.Product{}, s.err
}

func (s *stubProductSvc) Get(_ context.Context, id int64) (*domain.Product, error) {
	return nil, domain.NotFound("product", id)
}

func (s *stubProductSvc) Update(context.Context, int64, productsvc.ProductInput) (*domain.Product, error) {
	return nil, s.err
}

func (s *stubProductSvc) Delete(context.Context, int64) error { return s.err }

func (s *stubProductSvc) CreateVariant(context.Context, productsvc.VariantInput) (*domain.Variant, error) {
	return nil, s.err
}

func (s *stubProductSvc) ListVariants(context.Context, int, int) ([]domain.Variant, error) {
	return []domain.Variant{}, s.err
}

func (s *stubProductSvc) GetVariant(_ context.Context, id int64) (*domain.Variant, error) {
	return nil, domain.NotFound("variant", id)
}

func (s *stubProductSvc) UpdateVariant(context.Context, int64, productsvc.VariantInput) (*domain.Variant, error) {
	return nil, s.err
}

func (s *stubProductSvc) DeleteVariant(context.Context, int64) error { return s.err }

type stubOrderSvc struct {
	placeErr      error
	lastPrincipal *domain.Customer
	lastPlace     ordersvc.PlaceInput
	lastStatus    string
	lastListID    int64
	lastListEmail string
	itemErr       error
}

func (s *stubOrderSvc) Place(_ context.Context, principal *domain.Customer, in ordersvc.PlaceInput) (*domain.Order, error) {
	s.lastPrincipal, s.lastPlace = principal, in
	if s.placeErr != nil {
		return nil, s.placeErr
	}
	return &domain.Order{ID: 10, Status: domain.StatusPending, TotalCents: 15, Currency: "USD", Items: []domain.OrderItem{}}, nil
}

// ownedOrderID is an order of customer 7, the "good" token's customer.
const ownedOrderID = 42

func ownedOrderAccess(principal *domain.Customer, id int64) error {
	switch {
	case id != ownedOrderID:
		return domain.NotFound("order", id)
	case principal == nil:
		return domain.ErrUnauthorized
	case principal.ID != 7:
		return domain.ErrForbidden
	}
	return nil
}

func (s *stubOrderSvc) Get(_ context.Context, principal *domain.Customer, id int64) (*domain.Order, error) {
	s.lastPrincipal = principal
	if err := ownedOrderAccess(principal, id); err != nil {
		return nil, err
	}
	customerID := int64(7)
	return &domain.Order{ID: id, CustomerID: &customerID, Status: domain.StatusPending, Items: []domain.OrderItem{}}, nil
}

func (s *stubOrderSvc) List(context.Context, int, int) ([]domain.Order, error) {
	return []domain.Order{}, nil
}

func (s *stubOrderSvc) ListByCustomer(_ context.Context, customerID int64, guestEmail string) ([]domain.Order, error) {
	s.lastListID, s.lastListEmail = customerID, guestEmail
	return []domain.Order{}, nil
}

func (s *stubOrderSvc) UpdateStatus(_ context.Context, principal *domain.Customer, id int64, status string) (*domain.Order, error) {
	s.lastPrincipal, s.lastStatus = principal, status
	if _, err := domain.ParseOrderStatus(status); err != nil {
		return nil, err
	}
	return nil, domain.ErrInvalidTransition
}

func (s *stubOrderSvc) Delete(_ context.Context, principal *domain.Customer, id int64) error {
	s.lastPrincipal = principal
	return ownedOrderAccess(principal, id)
}

func (s *stubOrderSvc) GetItem(_ context.Context, principal *domain.Customer, id int64) (*domain.OrderItem, error) {
	s.lastPrincipal = principal
	return &domain.OrderItem{ID: id}, s.itemErr
}

func (s *stubOrderSvc) AddItem(context.Context, *domain.Customer, ordersvc.AddItemInput) (*domain.OrderItem, error) {
	return nil, s.itemErr
}

func (s *stubOrderSvc) UpdateItem(context.Context, *domain.Customer, int64, int) (*domain.OrderItem, error) {
	return nil, s.itemErr
}

func (s *stubOrderSvc) DeleteItem(context.Context, *domain.Customer, int64) error { return s.itemErr }

type testDeps struct {
	auth      *stubAuthSvc
	customers *stubCustomerSvc
	products  *stubProductSvc
	orders    *stubOrderSvc
}

func newTestDeps() testDeps {
	return testDeps{
		auth: &stubAuthSvc{tokens: map[string]*domain.Customer{
			"good": {ID: 7, Email: "member@example.com", Name: "Member", IsActive: true},
		}},
		customers: &stubCustomerSvc{},
		products:  &stubProductSvc{},
		orders:    &stubOrderSvc{},
	}
}

func (d testDeps) deps() Deps {
	return Deps{AuthSvc: d.auth, CustomerSvc: d.customers, ProductSvc: d.products, OrderSvc: d.orders}
}

func logDiscard() *zap.Logger {
	return zap.NewNop()
}

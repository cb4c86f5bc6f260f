package product

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"storefront-api/internal/domain"
	"storefront-api/internal/logger"
	productrepo "storefront-api/internal/repository/product"
)

type Service struct {
	repo productrepo.Repository
}

func New(repo productrepo.Repository) *Service {
	return &Service{repo: repo}
}

// ProductInput is the create/replace payload of a product. Price and stock
// are required for products without variants.
type ProductInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	HasVariants bool   `json:"has_variants"`
	Price       *int64 `json:"price"`
	Stock       *int   `json:"stock"`
	Currency    string `json:"currency"`
}

// VariantInput is the create/replace payload of a variant.
type VariantInput struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name" binding:"required"`
	Price     int64  `json:"price"`
	Stock     int    `json:"stock"`
	Currency  string `json:"currency"`
}

func (in ProductInput) toDomain() (domain.Product, error) {
	p := domain.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		HasVariants: in.HasVariants,
		Currency:    currencyOrDefault(in.Currency),
	}
	if p.Name == "" {
		return p, domain.InvalidRequest("name required")
	}
	if !in.HasVariants && (in.Price == nil || in.Stock == nil) {
		return p, domain.InvalidRequest("price and stock are required for products without variants")
	}
	if in.Price != nil {
		p.PriceCents = *in.Price
	}
	if in.Stock != nil {
		p.StockCount = *in.Stock
	}
	return p, domain.ValidateStockFields(p.PriceCents, p.StockCount)
}

func (in VariantInput) toDomain() (domain.Variant, error) {
	v := domain.Variant{
		ProductID:  in.ProductID,
		Name:       strings.TrimSpace(in.Name),
		PriceCents: in.Price,
		StockCount: in.Stock,
		Currency:   currencyOrDefault(in.Currency),
	}
	if v.Name == "" {
		return v, domain.InvalidRequest("name required")
	}
	return v, domain.ValidateStockFields(v.PriceCents, v.StockCount)
}

func (s *Service) Create(ctx context.Context, in ProductInput) (*domain.Product, error) {
	p, err := in.toDomain()
	if err != nil {
		return nil, err
	}
	out, err := s.repo.Create(ctx, p)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.Conflict("product name already exists")
		}
		return nil, err
	}
	logger.FromContext(ctx).Info("product created", zap.Int64("product_id", out.ID), zap.String("name", out.Name))
	return out, nil
}

func (s *Service) List(ctx context.Context, skip, limit int) ([]domain.Product, error) {
	return s.repo.List(ctx, skip, limit)
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "product", id)
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, id int64, in ProductInput) (*domain.Product, error) {
	p, err := in.toDomain()
	if err != nil {
		return nil, err
	}
	p.ID = id
	out, err := s.repo.Update(ctx, p)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.Conflict("product name already exists")
		}
		return nil, notFound(err, "product", id)
	}
	return out, nil
}

// Delete removes the product and its variants. Products referenced by order
// items are kept and a conflict is reported.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, domain.ErrAlreadyExists) {
		return domain.Conflict("product is referenced by order items")
	}
	return notFound(err, "product", id)
}

func (s *Service) CreateVariant(ctx context.Context, in VariantInput) (*domain.Variant, error) {
	v, err := in.toDomain()
	if err != nil {
		return nil, err
	}
	if err := s.requireVariantParent(ctx, v.ProductID); err != nil {
		return nil, err
	}
	out, err := s.repo.CreateVariant(ctx, v)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.Conflict("variant name already exists for product")
		}
		return nil, notFound(err, "product", v.ProductID)
	}
	return out, nil
}

func (s *Service) ListVariants(ctx context.Context, skip, limit int) ([]domain.Variant, error) {
	return s.repo.ListVariants(ctx, skip, limit)
}

func (s *Service) GetVariant(ctx context.Context, id int64) (*domain.Variant, error) {
	v, err := s.repo.GetVariant(ctx, id)
	if err != nil {
		return nil, notFound(err, "variant", id)
	}
	return v, nil
}

// UpdateVariant replaces name, price, stock and currency. The owning product
// cannot change.
func (s *Service) UpdateVariant(ctx context.Context, id int64, in VariantInput) (*domain.Variant, error) {
	current, err := s.repo.GetVariant(ctx, id)
	if err != nil {
		return nil, notFound(err, "variant", id)
	}
	in.ProductID = current.ProductID
	v, err := in.toDomain()
	if err != nil {
		return nil, err
	}
	v.ID = id
	out, err := s.repo.UpdateVariant(ctx, v)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.Conflict("variant name already exists for product")
		}
		return nil, notFound(err, "variant", id)
	}
	return out, nil
}

func (s *Service) DeleteVariant(ctx context.Context, id int64) error {
	err := s.repo.DeleteVariant(ctx, id)
	if errors.Is(err, domain.ErrAlreadyExists) {
		return domain.Conflict("variant is referenced by order items")
	}
	return notFound(err, "variant", id)
}

// ImportRow creates or refreshes a catalog entry by name. An empty variant
// name imports a simple product; otherwise the product is marked as having
// variants and the variant is upserted under it. A row never changes whether an
// existing product has variants.
func (s *Service) ImportRow(ctx context.Context, productName, description, currency, variantName string, price int64, stock int) (*domain.Product, error) {
	if err := domain.ValidateStockFields(price, stock); err != nil {
		return nil, err
	}
	productName = strings.TrimSpace(productName)
	if productName == "" {
		return nil, domain.InvalidRequest("product name required")
	}
	p := domain.Product{
		Name:        productName,
		Description: strings.TrimSpace(description),
		Currency:    currencyOrDefault(currency),
	}
	variantName = strings.TrimSpace(variantName)
	if variantName == "" {
		p.PriceCents, p.StockCount = price, stock
	} else {
		p.HasVariants = true
	}
	out, err := s.repo.UpsertByName(ctx, p)
	if err != nil {
		return nil, err
	}
	if variantName == "" {
		return out, nil
	}
	if _, err := s.repo.UpsertVariantByName(ctx, domain.Variant{
		ProductID:  out.ID,
		Name:       variantName,
		PriceCents: price,
		StockCount: stock,
		Currency:   p.Currency,
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) requireVariantParent(ctx context.Context, productID int64) error {
	if productID <= 0 {
		return domain.InvalidRequest("product_id required")
	}
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return notFound(err, "product", productID)
	}
	if !p.HasVariants {
		return domain.InvalidRequest("product %d does not have variants", productID)
	}
	return nil
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

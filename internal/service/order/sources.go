package order

import (
	"context"
	"errors"

	"storefront-api/internal/domain"
	orderrepo "storefront-api/internal/repository/order"
)

// sourceSet caches the locked stock rows of one unit of work so that repeated
// lines against the same product or variant see earlier decrements.
type sourceSet struct {
	tx       orderrepo.Tx
	products map[int64]*domain.Product
	variants map[int64]*domain.Variant
	touched  []domain.StockSource
	seen     map[string]bool
}

func newSourceSet(tx orderrepo.Tx) *sourceSet {
	return &sourceSet{
		tx:       tx,
		products: make(map[int64]*domain.Product),
		variants: make(map[int64]*domain.Variant),
		seen:     make(map[string]bool),
	}
}

func (s *sourceSet) product(ctx context.Context, id int64) (*domain.Product, error) {
	if p, ok := s.products[id]; ok {
		return p, nil
	}
	p, err := s.tx.LockProduct(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("product", id)
		}
		return nil, err
	}
	s.products[id] = p
	return p, nil
}

func (s *sourceSet) variant(ctx context.Context, id int64) (*domain.Variant, error) {
	if v, ok := s.variants[id]; ok {
		return v, nil
	}
	v, err := s.tx.LockVariant(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("variant", id)
		}
		return nil, err
	}
	s.variants[id] = v
	return v, nil
}

// resolve applies the variant rules of a line and returns the row that
// carries its price and stock.
func (s *sourceSet) resolve(ctx context.Context, line LineInput) (domain.StockSource, error) {
	p, err := s.product(ctx, line.ProductID)
	if err != nil {
		return nil, err
	}
	if !p.HasVariants {
		if line.VariantID != nil {
			return nil, domain.InvalidRequest("product %d has no variants; variant_id must be omitted", p.ID)
		}
		return s.mark(domain.SourceKey(p.ID, nil), p), nil
	}
	if line.VariantID == nil {
		return nil, domain.InvalidRequest("product %d has variants; variant_id is required", p.ID)
	}
	v, err := s.variant(ctx, *line.VariantID)
	if err != nil {
		return nil, err
	}
	if v.ProductID != p.ID {
		return nil, domain.NotFound("variant", *line.VariantID)
	}
	return s.mark(domain.SourceKey(p.ID, line.VariantID), v), nil
}

// forItem returns the stock row an existing order item was reserved from.
func (s *sourceSet) forItem(ctx context.Context, it domain.OrderItem) (domain.StockSource, error) {
	if it.VariantID != nil {
		v, err := s.variant(ctx, *it.VariantID)
		if err != nil {
			return nil, err
		}
		return s.mark(domain.SourceKey(it.ProductID, it.VariantID), v), nil
	}
	p, err := s.product(ctx, it.ProductID)
	if err != nil {
		return nil, err
	}
	return s.mark(domain.SourceKey(it.ProductID, nil), p), nil
}

func (s *sourceSet) mark(key string, src domain.StockSource) domain.StockSource {
	if !s.seen[key] {
		s.seen[key] = true
		s.touched = append(s.touched, src)
	}
	return src
}

// flush writes the staged stock of every touched row.
func (s *sourceSet) flush(ctx context.Context) error {
	for _, src := range s.touched {
		if err := s.tx.SaveStock(ctx, src); err != nil {
			return err
		}
	}
	return nil
}

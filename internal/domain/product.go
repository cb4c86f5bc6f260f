package domain

import "fmt"

// DefaultCurrency is applied when a product, variant or order omits one.
const DefaultCurrency = "USD"

// StockSource is whatever carries the price and stock of a line item: the
// product itself, or one of its variants when the product has variants.
type StockSource interface {
	Stock() int
	UnitPrice() int64
	DecrementStock(n int) error
	RestoreStock(n int)
}

type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price"`
	StockCount  int       `json:"stock"`
	HasVariants bool      `json:"has_variants"`
	Currency    string    `json:"currency"`
	Variants    []Variant `json:"variants"`
}

type Variant struct {
	ID         int64  `json:"id"`
	ProductID  int64  `json:"product_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price"`
	StockCount int    `json:"stock"`
	Currency   string `json:"currency"`
}

func (p *Product) Stock() int       { return p.StockCount }
func (p *Product) UnitPrice() int64 { return p.PriceCents }

func (p *Product) DecrementStock(n int) error {
	if n > p.StockCount {
		return &InsufficientStockError{ProductID: p.ID, Name: p.Name, Requested: n, Available: p.StockCount}
	}
	p.StockCount -= n
	return nil
}

func (p *Product) RestoreStock(n int) { p.StockCount += n }

func (v *Variant) Stock() int       { return v.StockCount }
func (v *Variant) UnitPrice() int64 { return v.PriceCents }

func (v *Variant) DecrementStock(n int) error {
	if n > v.StockCount {
		id := v.ID
		return &InsufficientStockError{ProductID: v.ProductID, VariantID: &id, Name: v.Name, Requested: n, Available: v.StockCount}
	}
	v.StockCount -= n
	return nil
}

func (v *Variant) RestoreStock(n int) { v.StockCount += n }

// ValidateStockFields rejects negative price or stock values.
func ValidateStockFields(price int64, stock int) error {
	if price < 0 {
		return InvalidRequest("price must not be negative")
	}
	if stock < 0 {
		return InvalidRequest("stock must not be negative")
	}
	return nil
}

// SourceKey identifies a stock source within one unit of work.
func SourceKey(productID int64, variantID *int64) string {
	if variantID == nil {
		return fmt.Sprintf("p:%d", productID)
	}
	return fmt.Sprintf("v:%d", *variantID)
}

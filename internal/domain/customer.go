package domain

// Address is a free-text address line owned by one customer.
type Address struct {
	ID         int64  `json:"id"`
	CustomerID int64  `json:"customer_id"`
	Address    string `json:"address"`
	IsDefault  bool   `json:"is_default"`
}

// Customer is a registered or guest-derived buyer. PasswordHash is empty for
// customers created through guest checkout.
type Customer struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	Addresses    []Address `json:"addresses"`
}

// HasPassword reports whether the customer can log in.
func (c Customer) HasPassword() bool {
	return c.PasswordHash != ""
}

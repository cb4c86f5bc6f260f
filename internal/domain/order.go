package domain

import (
	"fmt"
	"strings"
	"time"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCanceled  OrderStatus = "canceled"
)

var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusConfirmed, StatusCanceled},
	StatusConfirmed: {StatusShipped, StatusCanceled},
	StatusShipped:   {StatusDelivered},
}

// ParseOrderStatus accepts only the closed set of statuses.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCanceled:
		return st, nil
	default:
		return "", InvalidRequest("invalid status %q", s)
	}
}

// CanTransition reports whether from -> to is an allowed move.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition returns to when allowed, ErrInvalidTransition otherwise.
func (s OrderStatus) Transition(to OrderStatus) (OrderStatus, error) {
	if !s.CanTransition(to) {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, to)
	}
	return to, nil
}

// HoldsStock reports whether items of an order in this state still reserve stock.
func (s OrderStatus) HoldsStock() bool {
	return s != StatusCanceled
}

// Order is owned by a customer, or by a guest email when CustomerID is nil.
type Order struct {
	ID            int64       `json:"id"`
	CustomerID    *int64      `json:"customer_id"`
	CustomerEmail *string     `json:"customer_email"`
	OrderDate     time.Time   `json:"order_date"`
	Status        OrderStatus `json:"status"`
	TotalCents    int64       `json:"total_price"`
	Currency      string      `json:"currency"`
	Items         []OrderItem `json:"order_items"`
}

// OwnedBy reports whether the order is attributed to the given customer.
func (o Order) OwnedBy(customerID int64) bool {
	return o.CustomerID != nil && *o.CustomerID == customerID
}

// OrderItem snapshots the unit price at the time the line was reserved.
type OrderItem struct {
	ID        int64  `json:"id"`
	OrderID   int64  `json:"order_id"`
	ProductID int64  `json:"product_id"`
	VariantID *int64 `json:"variant_id"`
	Quantity  int    `json:"quantity"`
	UnitCents int64  `json:"price_per_unit"`
}

// LineTotal is quantity times the snapshotted unit price.
func (i OrderItem) LineTotal() int64 {
	return int64(i.Quantity) * i.UnitCents
}

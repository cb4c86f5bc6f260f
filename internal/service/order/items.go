package order

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"storefront-api/internal/domain"
	"storefront-api/internal/logger"
	orderrepo "storefront-api/internal/repository/order"
)

// AddItemInput adds a line to an existing order.
type AddItemInput struct {
	OrderID int64 `json:"order_id" binding:"required"`
	LineInput
}

// editable checks that principal owns o and that o still accepts item changes.
func editable(principal *domain.Customer, o *domain.Order) error {
	if err := owns(principal, o); err != nil {
		return err
	}
	if o.Status != domain.StatusPending {
		return fmt.Errorf("%w: items of a %s order cannot change", domain.ErrInvalidTransition, o.Status)
	}
	return nil
}

func owns(principal *domain.Customer, o *domain.Order) error {
	if principal == nil {
		return domain.ErrUnauthorized
	}
	if !o.OwnedBy(principal.ID) {
		return fmt.Errorf("%w: order %d belongs to another customer", domain.ErrForbidden, o.ID)
	}
	return nil
}

// accessible lets anyone reach a guest order and only the owner reach a
// customer's order.
func accessible(principal *domain.Customer, o *domain.Order) error {
	if o.CustomerID == nil {
		return nil
	}
	return owns(principal, o)
}

func orderTotal(items []domain.OrderItem) int64 {
	var total int64
	for _, it := range items {
		total += it.LineTotal()
	}
	return total
}

// GetItem returns an item of an order owned by principal.
func (s *Service) GetItem(ctx context.Context, principal *domain.Customer, id int64) (*domain.OrderItem, error) {
	it, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return nil, notFound(err, "order item", id)
	}
	o, err := s.repo.GetByID(ctx, it.OrderID)
	if err != nil {
		return nil, notFound(err, "order", it.OrderID)
	}
	if err := owns(principal, o); err != nil {
		return nil, err
	}
	return it, nil
}

// AddItem reserves stock for one more line on a pending order and updates
// the order total.
func (s *Service) AddItem(ctx context.Context, principal *domain.Customer, in AddItemInput) (*domain.OrderItem, error) {
	if in.Quantity <= 0 {
		return nil, domain.InvalidRequest("quantity must be greater than zero")
	}
	var added *domain.OrderItem
	err := s.repo.Transact(ctx, func(tx orderrepo.Tx) error {
		o, err := lockOrder(ctx, tx, in.OrderID)
		if err != nil {
			return err
		}
		if err := editable(principal, o); err != nil {
			return err
		}
		sources := newSourceSet(tx)
		src, err := sources.resolve(ctx, in.LineInput)
		if err != nil {
			return err
		}
		unit := src.UnitPrice()
		if err := src.DecrementStock(in.Quantity); err != nil {
			return err
		}
		if err := sources.flush(ctx); err != nil {
			return err
		}
		it, err := tx.CreateItem(ctx, domain.OrderItem{
			OrderID:   o.ID,
			ProductID: in.ProductID,
			VariantID: in.VariantID,
			Quantity:  in.Quantity,
			UnitCents: unit,
		})
		if err != nil {
			return err
		}
		if err := tx.UpdateOrder(ctx, o.ID, o.Status, orderTotal(append(o.Items, *it))); err != nil {
			return err
		}
		added = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("order item added", zap.Int64("order_id", in.OrderID), zap.Int64("item_id", added.ID))
	return added, nil
}

// UpdateItem changes the quantity of an item on a pending order. Stock moves
// by the difference; the unit price recorded at placement is kept.
func (s *Service) UpdateItem(ctx context.Context, principal *domain.Customer, id int64, quantity int) (*domain.OrderItem, error) {
	if quantity <= 0 {
		return nil, domain.InvalidRequest("quantity must be greater than zero")
	}
	current, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return nil, notFound(err, "order item", id)
	}
	var updated *domain.OrderItem
	err = s.repo.Transact(ctx, func(tx orderrepo.Tx) error {
		o, err := lockOrder(ctx, tx, current.OrderID)
		if err != nil {
			return err
		}
		if err := editable(principal, o); err != nil {
			return err
		}
		it, err := tx.LockItem(ctx, id)
		if err != nil {
			return notFound(err, "order item", id)
		}
		sources := newSourceSet(tx)
		src, err := sources.forItem(ctx, *it)
		if err != nil {
			return err
		}
		if delta := quantity - it.Quantity; delta > 0 {
			if err := src.DecrementStock(delta); err != nil {
				return err
			}
		} else {
			src.RestoreStock(-delta)
		}
		if err := sources.flush(ctx); err != nil {
			return err
		}
		if err := tx.UpdateItemQuantity(ctx, it.ID, quantity); err != nil {
			return err
		}
		it.Quantity = quantity
		for i := range o.Items {
			if o.Items[i].ID == it.ID {
				o.Items[i].Quantity = quantity
			}
		}
		if err := tx.UpdateOrder(ctx, o.ID, o.Status, orderTotal(o.Items)); err != nil {
			return err
		}
		updated = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteItem removes an item from a pending order and returns its stock. The
// last item of an order cannot be removed; delete the order instead.
func (s *Service) DeleteItem(ctx context.Context, principal *domain.Customer, id int64) error {
	current, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return notFound(err, "order item", id)
	}
	return s.repo.Transact(ctx, func(tx orderrepo.Tx) error {
		o, err := lockOrder(ctx, tx, current.OrderID)
		if err != nil {
			return err
		}
		if err := editable(principal, o); err != nil {
			return err
		}
		it, err := tx.LockItem(ctx, id)
		if err != nil {
			return notFound(err, "order item", id)
		}
		if len(o.Items) <= 1 {
			return domain.InvalidRequest("cannot remove the last item of order %d", o.ID)
		}
		if err := release(ctx, tx, []domain.OrderItem{*it}); err != nil {
			return err
		}
		if err := tx.DeleteItem(ctx, it.ID); err != nil {
			return err
		}
		remaining := make([]domain.OrderItem, 0, len(o.Items)-1)
		for _, other := range o.Items {
			if other.ID != it.ID {
				remaining = append(remaining, other)
			}
		}
		return tx.UpdateOrder(ctx, o.ID, o.Status, orderTotal(remaining))
	})
}

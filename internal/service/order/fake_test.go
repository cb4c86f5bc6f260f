package order

import (
	"context"
	"sort"
	"strings"
	"sync"

	"storefront-api/internal/domain"
	orderrepo "storefront-api/internal/repository/order"
)

// memoryStore is an in-memory Repository. Transact runs one unit of work at a
// time against a copy of the state and keeps the copy only on success.
type memoryStore struct {
	mu sync.Mutex
	st storeState
}

type storeState struct {
	nextID    int64
	products  map[int64]domain.Product
	variants  map[int64]domain.Variant
	customers map[int64]domain.Customer
	orders    map[int64]domain.Order
	items     map[int64]domain.OrderItem
}

func newMemoryStore() *memoryStore {
	return &memoryStore{st: storeState{
		products:  map[int64]domain.Product{},
		variants:  map[int64]domain.Variant{},
		customers: map[int64]domain.Customer{},
		orders:    map[int64]domain.Order{},
		items:     map[int64]domain.OrderItem{},
	}}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s storeState) clone() storeState {
	return storeState{
		nextID:    s.nextID,
		products:  cloneMap(s.products),
		variants:  cloneMap(s.variants),
		customers: cloneMap(s.customers),
		orders:    cloneMap(s.orders),
		items:     cloneMap(s.items),
	}
}

func (s *storeState) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *storeState) withItems(o domain.Order) domain.Order {
	o.Items = []domain.OrderItem{}
	for _, it := range s.items {
		if it.OrderID == o.ID {
			o.Items = append(o.Items, it)
		}
	}
	sort.Slice(o.Items, func(i, j int) bool { return o.Items[i].ID < o.Items[j].ID })
	return o
}

// seeding helpers

func (m *memoryStore) addProduct(p domain.Product) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.st.id()
	m.st.products[p.ID] = p
	return p.ID
}

func (m *memoryStore) addVariant(v domain.Variant) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	v.ID = m.st.id()
	m.st.variants[v.ID] = v
	return v.ID
}

func (m *memoryStore) addCustomer(c domain.Customer) domain.Customer {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.st.id()
	m.st.customers[c.ID] = c
	return c
}

func (m *memoryStore) productStock(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.products[id].StockCount
}

func (m *memoryStore) variantStock(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.variants[id].StockCount
}

func (m *memoryStore) counts() (orders, items, customers int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.orders), len(m.st.items), len(m.st.customers)
}

// Repository

func (m *memoryStore) Transact(_ context.Context, fn func(tx orderrepo.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	work := m.st.clone()
	if err := fn(&memoryTx{st: &work}); err != nil {
		return err
	}
	m.st = work
	return nil
}

func (m *memoryStore) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.st.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	o = m.st.withItems(o)
	return &o, nil
}

func (m *memoryStore) List(_ context.Context, skip, limit int) ([]domain.Order, error) {
	return m.filter(func(domain.Order) bool { return true }, skip, limit), nil
}

func (m *memoryStore) ListByCustomer(_ context.Context, customerID int64, guestEmail string) ([]domain.Order, error) {
	return m.filter(func(o domain.Order) bool {
		if o.CustomerID != nil {
			return *o.CustomerID == customerID
		}
		return guestEmail != "" && o.CustomerEmail != nil && strings.EqualFold(*o.CustomerEmail, guestEmail)
	}, 0, 1<<30), nil
}

func (m *memoryStore) filter(keep func(domain.Order) bool, skip, limit int) []domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Order{}
	for _, o := range m.st.orders {
		if keep(o) {
			out = append(out, m.st.withItems(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if skip >= len(out) {
		return []domain.Order{}
	}
	out = out[skip:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (m *memoryStore) GetItem(_ context.Context, id int64) (*domain.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.st.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &it, nil
}

type memoryTx struct {
	st *storeState
}

func (t *memoryTx) LockProduct(_ context.Context, id int64) (*domain.Product, error) {
	p, ok := t.st.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (t *memoryTx) LockVariant(_ context.Context, id int64) (*domain.Variant, error) {
	v, ok := t.st.variants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &v, nil
}

func (t *memoryTx) SaveStock(_ context.Context, src domain.StockSource) error {
	switch s := src.(type) {
	case *domain.Product:
		p := t.st.products[s.ID]
		p.StockCount = s.StockCount
		t.st.products[s.ID] = p
	case *domain.Variant:
		v := t.st.variants[s.ID]
		v.StockCount = s.StockCount
		t.st.variants[s.ID] = v
	}
	return nil
}

func (t *memoryTx) EnsureCustomer(_ context.Context, email, name string) (*domain.Customer, error) {
	for _, c := range t.st.customers {
		if c.Email == email {
			return &c, nil
		}
	}
	c := domain.Customer{ID: t.st.id(), Email: email, Name: name, IsActive: true}
	t.st.customers[c.ID] = c
	return &c, nil
}

func (t *memoryTx) LockCustomerOrders(_ context.Context, customerID int64) ([]domain.Order, error) {
	if _, ok := t.st.customers[customerID]; !ok {
		return nil, domain.ErrNotFound
	}
	out := []domain.Order{}
	for _, o := range t.st.orders {
		if o.CustomerID != nil && *o.CustomerID == customerID {
			out = append(out, t.st.withItems(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteCustomer mirrors the ON DELETE CASCADE of the schema.
func (t *memoryTx) DeleteCustomer(_ context.Context, id int64) error {
	if _, ok := t.st.customers[id]; !ok {
		return domain.ErrNotFound
	}
	delete(t.st.customers, id)
	for orderID, o := range t.st.orders {
		if o.CustomerID != nil && *o.CustomerID == id {
			delete(t.st.orders, orderID)
			for itemID, it := range t.st.items {
				if it.OrderID == orderID {
					delete(t.st.items, itemID)
				}
			}
		}
	}
	return nil
}

func (t *memoryTx) CreateOrder(_ context.Context, o domain.Order) (*domain.Order, error) {
	o.ID = t.st.id()
	o.Items = nil
	t.st.orders[o.ID] = o
	return &o, nil
}

func (t *memoryTx) LockOrder(_ context.Context, id int64) (*domain.Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	o = t.st.withItems(o)
	return &o, nil
}

func (t *memoryTx) UpdateOrder(_ context.Context, id int64, status domain.OrderStatus, total int64) error {
	o, ok := t.st.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.Status, o.TotalCents = status, total
	t.st.orders[id] = o
	return nil
}

func (t *memoryTx) DeleteOrder(_ context.Context, id int64) error {
	if _, ok := t.st.orders[id]; !ok {
		return domain.ErrNotFound
	}
	delete(t.st.orders, id)
	for itemID, it := range t.st.items {
		if it.OrderID == id {
			delete(t.st.items, itemID)
		}
	}
	return nil
}

func (t *memoryTx) CreateItem(_ context.Context, it domain.OrderItem) (*domain.OrderItem, error) {
	it.ID = t.st.id()
	t.st.items[it.ID] = it
	return &it, nil
}

func (t *memoryTx) LockItem(_ context.Context, id int64) (*domain.OrderItem, error) {
	it, ok := t.st.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &it, nil
}

func (t *memoryTx) UpdateItemQuantity(_ context.Context, id int64, quantity int) error {
	it, ok := t.st.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	it.Quantity = quantity
	t.st.items[id] = it
	return nil
}

func (t *memoryTx) DeleteItem(_ context.Context, id int64) error {
	if _, ok := t.st.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(t.st.items, id)
	return nil
}

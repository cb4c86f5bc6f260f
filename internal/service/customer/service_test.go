package customer

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-api/internal/domain"
)

// memoryRepo is a lightweight in-memory customer repository for tests.
type memoryRepo struct {
	nextID int64
	byID   map[int64]domain.Customer
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byID: make(map[int64]domain.Customer)}
}

func (r *memoryRepo) emailTaken(email string, except int64) bool {
	for id, c := range r.byID {
		if id != except && c.Email == email {
			return true
		}
	}
	return false
}

func (r *memoryRepo) Create(_ context.Context, c domain.Customer) (*domain.Customer, error) {
	if r.emailTaken(c.Email, 0) {
		return nil, domain.ErrAlreadyExists
	}
	r.nextID++
	c.ID = r.nextID
	r.byID[c.ID] = c
	return &c, nil
}

func (r *memoryRepo) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	for _, c := range r.byID {
		if c.Email == email {
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memoryRepo) GetByID(_ context.Context, id int64) (*domain.Customer, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r *memoryRepo) List(_ context.Context, skip, limit int) ([]domain.Customer, error) {
	out := make([]domain.Customer, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if skip > len(out) {
		return []domain.Customer{}, nil
	}
	out = out[skip:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepo) Update(_ context.Context, c domain.Customer) (*domain.Customer, error) {
	cur, ok := r.byID[c.ID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if r.emailTaken(c.Email, c.ID) {
		return nil, domain.ErrAlreadyExists
	}
	cur.Email, cur.Name = c.Email, c.Name
	r.byID[c.ID] = cur
	return &cur, nil
}

func (r *memoryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

// memoryAddresses mimics the default-flag handling of the Postgres repository.
type memoryAddresses struct {
	customers *memoryRepo
	nextID    int64
	byID      map[int64]domain.Address
}

func newMemoryAddresses(customers *memoryRepo) *memoryAddresses {
	return &memoryAddresses{customers: customers, byID: make(map[int64]domain.Address)}
}

func (r *memoryAddresses) clearDefault(customerID, keep int64) {
	for id, a := range r.byID {
		if a.CustomerID == customerID && id != keep {
			a.IsDefault = false
			r.byID[id] = a
		}
	}
}

func (r *memoryAddresses) Create(_ context.Context, a domain.Address) (*domain.Address, error) {
	if _, ok := r.customers.byID[a.CustomerID]; !ok {
		return nil, domain.ErrNotFound
	}
	r.nextID++
	a.ID = r.nextID
	if a.IsDefault {
		r.clearDefault(a.CustomerID, a.ID)
	}
	r.byID[a.ID] = a
	return &a, nil
}

func (r *memoryAddresses) GetByID(_ context.Context, id int64) (*domain.Address, error) {
	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (r *memoryAddresses) ListByCustomer(_ context.Context, customerID int64) ([]domain.Address, error) {
	out := []domain.Address{}
	for _, a := range r.byID {
		if a.CustomerID == customerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryAddresses) Update(_ context.Context, a domain.Address) (*domain.Address, error) {
	if _, ok := r.byID[a.ID]; !ok {
		return nil, domain.ErrNotFound
	}
	if a.IsDefault {
		r.clearDefault(a.CustomerID, a.ID)
	}
	r.byID[a.ID] = a
	return &a, nil
}

func (r *memoryAddresses) Delete(_ context.Context, id int64) error {
	if _, ok := r.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

type prefixHasher struct{}

func (prefixHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }

func newTestService() *Service {
	customers := newMemoryRepo()
	return New(customers, newMemoryAddresses(customers), prefixHasher{}, nil)
}

type recordingRemover struct {
	deleted []int64
	err     error
}

func (r *recordingRemover) DeleteCustomer(_ context.Context, id int64) error {
	if r.err != nil {
		return r.err
	}
	r.deleted = append(r.deleted, id)
	return nil
}

func TestCreateNormalizesAndHashes(t *testing.T) {
	svc := newTestService()
	c, err := svc.Create(context.Background(), CreateInput{Email: " Jane@Example.com ", Name: "Jane", Password: "s3cret!"})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", c.Email)
	assert.Equal(t, "hashed:s3cret!", c.PasswordHash)
	assert.True(t, c.IsActive)
	assert.True(t, c.HasPassword())
}

func TestCreateWithoutPassword(t *testing.T) {
	svc := newTestService()
	c, err := svc.Create(context.Background(), CreateInput{Email: "guest@example.com", Name: "Guest"})
	require.NoError(t, err)
	assert.False(t, c.HasPassword())
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	cases := []CreateInput{
		{Email: "", Name: "x"},
		{Email: "not-an-email", Name: "x"},
		{Email: "a@example.com", Name: "  "},
		{Email: "a@example.com", Name: "x", Password: "abc"},
	}
	for _, in := range cases {
		_, err := svc.Create(ctx, in)
		assert.ErrorIs(t, err, domain.ErrInvalidRequest, in.Email)
	}
}

func TestCreateDuplicateEmailConflicts(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	_, err := svc.Create(ctx, CreateInput{Email: "dup@example.com", Name: "A"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Email: "DUP@example.com", Name: "B"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestGetAttachesAddressesAndNamesMissingEntity(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	c, err := svc.Create(ctx, CreateInput{Email: "a@example.com", Name: "A"})
	require.NoError(t, err)
	_, err = svc.AddAddress(ctx, c.ID, AddressInput{Address: "1 Main St"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Addresses, 1)

	_, err = svc.Get(ctx, 99)
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.True(t, strings.Contains(err.Error(), "customer 99"))
}

func TestAtMostOneDefaultAddress(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	c, err := svc.Create(ctx, CreateInput{Email: "a@example.com", Name: "A"})
	require.NoError(t, err)

	first, err := svc.AddAddress(ctx, c.ID, AddressInput{Address: "1 Main St", IsDefault: true})
	require.NoError(t, err)
	second, err := svc.AddAddress(ctx, c.ID, AddressInput{Address: "2 Side St", IsDefault: true})
	require.NoError(t, err)
	_, err = svc.AddAddress(ctx, c.ID, AddressInput{Address: "3 Back St"})
	require.NoError(t, err)

	countDefaults := func() (int, int64) {
		list, err := svc.ListAddresses(ctx, c.ID)
		require.NoError(t, err)
		n, id := 0, int64(0)
		for _, a := range list {
			if a.IsDefault {
				n++
				id = a.ID
			}
		}
		return n, id
	}

	n, id := countDefaults()
	assert.Equal(t, 1, n)
	assert.Equal(t, second.ID, id)

	_, err = svc.UpdateAddress(ctx, first.ID, AddressInput{Address: "1 Main St", IsDefault: true})
	require.NoError(t, err)
	n, id = countDefaults()
	assert.Equal(t, 1, n)
	assert.Equal(t, first.ID, id)
}

func TestAddressForUnknownCustomer(t *testing.T) {
	svc := newTestService()
	_, err := svc.AddAddress(context.Background(), 42, AddressInput{Address: "1 Main St"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.ListAddresses(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateAndDelete(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	a, err := svc.Create(ctx, CreateInput{Email: "a@example.com", Name: "A"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Email: "b@example.com", Name: "B"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, a.ID, UpdateInput{Email: "A2@example.com", Name: "A2"})
	require.NoError(t, err)
	assert.Equal(t, "a2@example.com", updated.Email)

	_, err = svc.Update(ctx, a.ID, UpdateInput{Email: "b@example.com", Name: "A"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	require.NoError(t, svc.Delete(ctx, a.ID))
	assert.ErrorIs(t, svc.Delete(ctx, a.ID), domain.ErrNotFound)
}

func TestDeleteGoesThroughOrderRemover(t *testing.T) {
	customers := newMemoryRepo()
	remover := &recordingRemover{}
	svc := New(customers, newMemoryAddresses(customers), prefixHasher{}, remover)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, 5))
	assert.Equal(t, []int64{5}, remover.deleted)

	remover.err = domain.ErrNotFound
	err := svc.Delete(ctx, 6)
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "customer 6")
}

package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-api/internal/domain"
)

type memoryCustomers map[string]domain.Customer

func (m memoryCustomers) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	c, ok := m[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func newTestService(t *testing.T, customers memoryCustomers) *Service {
	t.Helper()
	tokens, err := NewTokenService(TokenConfig{Secret: []byte("test-secret")})
	require.NoError(t, err)
	return New(customers, NewPasswordHasher(4), tokens)
}

func TestLoginAndAuthenticate(t *testing.T) {
	hash, err := NewPasswordHasher(4).Hash("s3cret")
	require.NoError(t, err)
	customers := memoryCustomers{
		"user@example.com": {ID: 7, Email: "user@example.com", Name: "User", PasswordHash: hash, IsActive: true},
	}
	svc := newTestService(t, customers)
	ctx := context.Background()

	token, err := svc.Login(ctx, " USER@example.com ", "s3cret")
	require.NoError(t, err)

	c, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), c.ID)

	deactivated := customers["user@example.com"]
	deactivated.IsActive = false
	customers["user@example.com"] = deactivated
	_, err = svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrInactiveCustomer)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	delete(customers, "user@example.com")
	_, err = svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrUnknownSubject)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	hash, err := NewPasswordHasher(4).Hash("s3cret")
	require.NoError(t, err)
	svc := newTestService(t, memoryCustomers{
		"user@example.com":  {ID: 1, Email: "user@example.com", PasswordHash: hash, IsActive: true},
		"guest@example.com": {ID: 2, Email: "guest@example.com", IsActive: true},
		"off@example.com":   {ID: 3, Email: "off@example.com", PasswordHash: hash},
	})
	ctx := context.Background()

	cases := []struct{ email, password string }{
		{"user@example.com", "wrong"},
		{"missing@example.com", "s3cret"},
		{"guest@example.com", ""},
		{"guest@example.com", "anything"},
		{"off@example.com", "s3cret"},
	}
	for _, tc := range cases {
		_, err := svc.Login(ctx, tc.email, tc.password)
		assert.ErrorIs(t, err, ErrInvalidCredentials, tc.email)
		assert.ErrorIs(t, err, domain.ErrUnauthorized, tc.email)
	}
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"storefront-api/internal/domain"
	"storefront-api/internal/logger"
	custrepo "storefront-api/internal/repository/customer"
)

var (
	ErrMissingToken       = fmt.Errorf("%w: missing bearer token", domain.ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	ErrExpiredToken       = fmt.Errorf("%w: token expired", domain.ErrUnauthorized)
	ErrUnknownSubject     = fmt.Errorf("%w: unknown token subject", domain.ErrUnauthorized)
	ErrInactiveCustomer   = fmt.Errorf("%w: customer is inactive", domain.ErrUnauthorized)
	ErrInvalidCredentials = fmt.Errorf("%w: incorrect username or password", domain.ErrUnauthorized)
)

// CustomerLookup is the slice of the customer repository auth depends on.
type CustomerLookup interface {
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
}

var _ CustomerLookup = (custrepo.Repository)(nil)

// Service logs customers in and resolves bearer tokens to customers.
type Service struct {
	customers CustomerLookup
	hasher    PasswordHasher
	tokens    *TokenService
}

func New(customers CustomerLookup, hasher PasswordHasher, tokens *TokenService) *Service {
	return &Service{customers: customers, hasher: hasher, tokens: tokens}
}

// Login verifies credentials and returns a signed access token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", ErrInvalidCredentials
	}
	c, err := s.customers.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if !c.IsActive || !s.hasher.Verify(password, c.PasswordHash) {
		return "", ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(c.Email, 0)
	if err != nil {
		return "", err
	}
	logger.FromContext(ctx).Info("customer logged in", zap.Int64("customer_id", c.ID))
	return token, nil
}

// Authenticate resolves token to the customer named by its subject. Inactive
// customers are refused the same way Login refuses them.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.Customer, error) {
	subject, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	c, err := s.customers.GetByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrUnknownSubject
		}
		return nil, err
	}
	if !c.IsActive {
		return nil, ErrInactiveCustomer
	}
	return c, nil
}

func (s *Service) Hasher() PasswordHasher { return s.hasher }

func (s *Service) Tokens() *TokenService { return s.tokens }

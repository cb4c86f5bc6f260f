package httpserver

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront-api/internal/domain"
	"storefront-api/internal/logger"
	"storefront-api/internal/service/auth"
)

const requestIDHeader = "X-Request-ID"

type ctxKey string

const customerCtxKey ctxKey = "customer"

// requestContext tags the request with an id and stores a logger carrying it
// in the request context.
func requestContext(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		log := base.With(zap.String("request_id", id))
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), log))
		c.Next()
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		log := logger.FromContext(c.Request.Context())
		if status >= 500 {
			log.Error("http request", fields...)
			return
		}
		log.Info("http request", fields...)
	}
}

func recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.FromContext(c.Request.Context()).Error("panic recovered", zap.Any("panic", recovered), zap.Stack("stack"))
		writeError(c, errInternal)
	})
}

// authMiddleware resolves the bearer token to a customer. When required is
// false a request without Authorization passes through anonymously, but a
// token that is present must still be valid.
func authMiddleware(svc AuthService, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" && !required {
			c.Next()
			return
		}
		token, err := bearerToken(header)
		if err != nil {
			writeError(c, err)
			return
		}
		customer, err := svc.Authenticate(c.Request.Context(), token)
		if err != nil {
			writeError(c, err)
			return
		}
		ctx := context.WithValue(c.Request.Context(), customerCtxKey, customer)
		ctx = logger.WithContext(ctx, logger.FromContext(ctx).With(zap.Int64("customer_id", customer.ID)))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", auth.ErrMissingToken
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", auth.ErrInvalidToken
	}
	return strings.TrimSpace(token), nil
}

// customerFromContext returns the authenticated customer, or nil for
// anonymous requests.
func customerFromContext(ctx context.Context) *domain.Customer {
	c, _ := ctx.Value(customerCtxKey).(*domain.Customer)
	return c
}

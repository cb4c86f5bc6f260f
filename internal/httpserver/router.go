package httpserver

import (
	"context"
	"errors"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront-api/internal/domain"
	"storefront-api/internal/metrics"
	customersvc "storefront-api/internal/service/customer"
	ordersvc "storefront-api/internal/service/order"
	productsvc "storefront-api/internal/service/product"
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
	Authenticate(ctx context.Context, token string) (*domain.Customer, error)
}

type CustomerService interface {
	Create(ctx context.Context, in customersvc.CreateInput) (*domain.Customer, error)
	Get(ctx context.Context, id int64) (*domain.Customer, error)
	List(ctx context.Context, skip, limit int) ([]domain.Customer, error)
	Update(ctx context.Context, id int64, in customersvc.UpdateInput) (*domain.Customer, error)
	Delete(ctx context.Context, id int64) error
	AddAddress(ctx context.Context, customerID int64, in customersvc.AddressInput) (*domain.Address, error)
	ListAddresses(ctx context.Context, customerID int64) ([]domain.Address, error)
	GetAddress(ctx context.Context, id int64) (*domain.Address, error)
	UpdateAddress(ctx context.Context, id int64, in customersvc.AddressInput) (*domain.Address, error)
	DeleteAddress(ctx context.Context, id int64) error
}

type ProductService interface {
	Create(ctx context.Context, in productsvc.ProductInput) (*domain.Product, error)
	List(ctx context.Context, skip, limit int) ([]domain.Product, error)
	Get(ctx context.Context, id int64) (*domain.Product, error)
	Update(ctx context.Context, id int64, in productsvc.ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id int64) error
	CreateVariant(ctx context.Context, in productsvc.VariantInput) (*domain.Variant, error)
	ListVariants(ctx context.Context, skip, limit int) ([]domain.Variant, error)
	GetVariant(ctx context.Context, id int64) (*domain.Variant, error)
	UpdateVariant(ctx context.Context, id int64, in productsvc.VariantInput) (*domain.Variant, error)
	DeleteVariant(ctx context.Context, id int64) error
}

type OrderService interface {
	Place(ctx context.Context, principal *domain.Customer, in ordersvc.PlaceInput) (*domain.Order, error)
	Get(ctx context.Context, principal *domain.Customer, id int64) (*domain.Order, error)
	List(ctx context.Context, skip, limit int) ([]domain.Order, error)
	ListByCustomer(ctx context.Context, customerID int64, guestEmail string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, principal *domain.Customer, id int64, status string) (*domain.Order, error)
	Delete(ctx context.Context, principal *domain.Customer, id int64) error
	GetItem(ctx context.Context, principal *domain.Customer, id int64) (*domain.OrderItem, error)
	AddItem(ctx context.Context, principal *domain.Customer, in ordersvc.AddItemInput) (*domain.OrderItem, error)
	UpdateItem(ctx context.Context, principal *domain.Customer, id int64, quantity int) (*domain.OrderItem, error)
	DeleteItem(ctx context.Context, principal *domain.Customer, id int64) error
}

// Deps carries the services the router dispatches to.
type Deps struct {
	AuthSvc     AuthService
	CustomerSvc CustomerService
	ProductSvc  ProductService
	OrderSvc    OrderService
	Metrics     *metrics.Metrics
}

// Options tunes router behaviour that is not a service dependency.
type Options struct {
	CORSOrigins []string
}

func (d Deps) validate() error {
	switch {
	case d.AuthSvc == nil:
		return errors.New("auth service required")
	case d.CustomerSvc == nil:
		return errors.New("customer service required")
	case d.ProductSvc == nil:
		return errors.New("product service required")
	case d.OrderSvc == nil:
		return errors.New("order service required")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(log *zap.Logger, db *pgxpool.Pool, deps Deps, opts Options) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(requestContext(log), accessLog(), recovery())
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	router.Use(cors.New(corsConfig(opts.CORSOrigins)))
	router.NoRoute(func(c *gin.Context) {
		writeError(c, domain.ErrNotFound)
	})

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{
		auth:      deps.AuthSvc,
		customers: deps.CustomerSvc,
		products:  deps.ProductSvc,
		orders:    deps.OrderSvc,
	}
	requireCustomer := authMiddleware(deps.AuthSvc, true)
	optionalCustomer := authMiddleware(deps.AuthSvc, false)

	router.POST("/token", h.issueToken)
	router.GET("/users/me", requireCustomer, h.currentUser)

	customers := router.Group("/customers")
	customers.POST("/", h.createCustomer)
	customers.GET("/", h.listCustomers)
	customers.GET("/:id", h.getCustomer)
	customers.PUT("/:id", h.updateCustomer)
	customers.DELETE("/:id", h.deleteCustomer)
	customers.POST("/:id/addresses", h.createCustomerAddress)
	customers.GET("/:id/addresses", h.listCustomerAddresses)
	customers.GET("/:id/orders", h.listCustomerOrders)
	router.GET("/customers-and-guests/:id/orders", h.listCustomerAndGuestOrders)

	addresses := router.Group("/addresses")
	addresses.POST("/", h.createAddress)
	addresses.GET("/:id", h.getAddress)
	addresses.PUT("/:id", h.updateAddress)
	addresses.DELETE("/:id", h.deleteAddress)

	products := router.Group("/products")
	products.POST("/", h.createProduct)
	products.GET("/", h.listProducts)
	products.GET("/:id", h.getProduct)
	products.PUT("/:id", h.updateProduct)
	products.DELETE("/:id", h.deleteProduct)

	variants := router.Group("/variants")
	variants.POST("/", h.createVariant)
	variants.GET("/", h.listVariants)
	variants.GET("/:id", h.getVariant)
	variants.PUT("/:id", h.updateVariant)
	variants.DELETE("/:id", h.deleteVariant)

	orders := router.Group("/api/orders")
	orders.POST("/", optionalCustomer, h.placeOrder)
	orders.GET("/", h.listOrders)
	orders.GET("/:id", optionalCustomer, h.getOrder)
	orders.PUT("/:id/status", optionalCustomer, h.updateOrderStatus)
	orders.DELETE("/:id", optionalCustomer, h.deleteOrder)
	router.GET("/me/orders", requireCustomer, h.myOrders)

	items := router.Group("/order_items", requireCustomer)
	items.POST("/", h.addOrderItem)
	items.GET("/:id", h.getOrderItem)
	items.PUT("/:id", h.updateOrderItem)
	items.DELETE("/:id", h.deleteOrderItem)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

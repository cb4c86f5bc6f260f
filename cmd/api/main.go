package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"storefront-api/internal/config"
	"storefront-api/internal/db"
	"storefront-api/internal/httpserver"
	"storefront-api/internal/logger"
	"storefront-api/internal/metrics"
	addressrepo "storefront-api/internal/repository/address"
	customerrepo "storefront-api/internal/repository/customer"
	orderrepo "storefront-api/internal/repository/order"
	productrepo "storefront-api/internal/repository/product"
	authsvc "storefront-api/internal/service/auth"
	customersvc "storefront-api/internal/service/customer"
	ordersvc "storefront-api/internal/service/order"
	productsvc "storefront-api/internal/service/product"
)

func main() {
	cfg := config.FromEnv()
	log, err := logger.New("api", cfg.LogLevel, cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if cfg.UsesDevSecret() {
		if cfg.IsProduction() {
			log.Fatal("JWT_SECRET must be set in production")
		}
		log.Warn("using built-in development JWT secret")
	}

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		log.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	tx := db.NewTransactor(dbpool, cfg.TxRetries)
	customerRepo := customerrepo.NewPostgres(dbpool, log)
	addressRepo := addressrepo.NewPostgres(dbpool, tx, log)
	productRepo := productrepo.NewPostgres(dbpool, log)
	orderRepo := orderrepo.NewPostgres(dbpool, tx, log)

	tokens, err := authsvc.NewTokenService(authsvc.TokenConfig{
		Secret: []byte(cfg.JWTSecret),
		TTL:    cfg.AccessTokenTTL,
	})
	if err != nil {
		log.Fatal("init token service", zap.Error(err))
	}
	hasher := authsvc.NewPasswordHasher(cfg.BcryptCost)
	m := metrics.New()
	orders := ordersvc.New(orderRepo, m)

	srv, err := httpserver.New(cfg.HTTPAddr, log, dbpool, httpserver.Deps{
		AuthSvc:     authsvc.New(customerRepo, hasher, tokens),
		CustomerSvc: customersvc.New(customerRepo, addressRepo, hasher, orders),
		ProductSvc:  productsvc.New(productRepo),
		OrderSvc:    orders,
		Metrics:     m,
	}, httpserver.Options{CORSOrigins: cfg.CORSOrigins})
	if err != nil {
		log.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		log.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	} else {
		log.Info("server stopped")
	}
}

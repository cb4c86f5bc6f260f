package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"storefront-api/internal/config"
	"storefront-api/internal/db"
	"storefront-api/internal/logger"
	customerrepo "storefront-api/internal/repository/customer"
	productrepo "storefront-api/internal/repository/product"
	"storefront-api/internal/seed"
	authsvc "storefront-api/internal/service/auth"
	productsvc "storefront-api/internal/service/product"
)

func main() {
	cfg := config.FromEnv()
	log, err := logger.New("seed", cfg.LogLevel, cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		log.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	catalog := productsvc.New(productrepo.NewPostgres(pool, log))
	customers := customerrepo.NewPostgres(pool, log)
	if err := seed.Apply(logger.WithContext(ctx, log), catalog, customers, authsvc.NewPasswordHasher(cfg.BcryptCost)); err != nil {
		log.Fatal("seed apply", zap.Error(err))
	}

	log.Info("seed applied")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"storefront-api/internal/config"
	"storefront-api/internal/db"
	"storefront-api/internal/logger"
	"storefront-api/internal/migrate"
)

func main() {
	down := flag.Bool("down", false, "revert all migrations instead of applying them")
	flag.Parse()

	cfg := config.FromEnv()
	log, err := logger.New("migrate", cfg.LogLevel, cfg.Env)
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

	if *down {
		if err := migrate.Rollback(ctx, pool); err != nil {
			log.Fatal("rollback migrations", zap.Error(err))
		}
		log.Info("migrations rolled back")
		return
	}

	if err := migrate.Apply(ctx, pool); err != nil {
		log.Fatal("apply migrations", zap.Error(err))
	}
	version, dirty, err := migrate.Version(ctx, pool)
	if err != nil {
		log.Fatal("read schema version", zap.Error(err))
	}
	log.Info("migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
}

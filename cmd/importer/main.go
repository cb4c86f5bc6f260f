package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"storefront-api/internal/config"
	"storefront-api/internal/db"
	"storefront-api/internal/importer"
	"storefront-api/internal/logger"
	productrepo "storefront-api/internal/repository/product"
	productsvc "storefront-api/internal/service/product"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to catalog CSV (product,description,currency,variant,price,stock)")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.FromEnv()
	log, err := logger.New("importer", cfg.LogLevel, cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := logger.WithContext(context.Background(), log)
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		log.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		log.Fatal("open file", zap.String("file", filePath), zap.Error(err))
	}
	defer f.Close()

	catalog := productsvc.New(productrepo.NewPostgres(pool, log))
	start := time.Now()
	count, err := importer.NewCSVImporter(f, catalog).Run(ctx)
	if err != nil {
		log.Fatal("import failed", zap.Int("imported", count), zap.Error(err))
	}

	log.Info("catalog imported",
		zap.Int("rows", count),
		zap.String("file", filePath),
		zap.Duration("elapsed", time.Since(start).Truncate(time.Millisecond)),
	)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/guestcart"
	"storefront/internal/importer"
	"storefront/internal/logging"
	guestcartrepo "storefront/internal/repository/guestcart"
)

func main() {
	var (
		filePath string
		guestID  string
	)
	flag.StringVar(&filePath, "file", "", "Path to quick order CSV")
	flag.StringVar(&guestID, "guest", "", "Guest id whose cart receives the lines")
	flag.Parse()

	if filePath == "" || guestID == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck
	logger = logger.Named("importer")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatal("open file", zap.Error(err))
	}
	defer f.Close()

	store := guestcart.Open(ctx, guestcartrepo.NewPostgres(pool, logger), guestcart.KeyFor(guestID), guestcart.WithLogger(logger))
	imp := importer.NewCSVImporter(f, store)

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		logger.Fatal("import failed", zap.Int("imported", count), zap.Error(err))
	}

	fmt.Printf("Imported %d lines into guest cart %s in %s\n", count, guestID, time.Since(start).Truncate(time.Millisecond))
}

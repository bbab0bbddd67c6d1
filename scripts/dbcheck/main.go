package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"homestay-promo/internal/config"
	"homestay-promo/internal/database"
)

// Connects with the server's configuration, applies the schema and prints
// what the store currently holds.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Schema setup failed: %v\n", err)
		os.Exit(1)
	}

	var (
		dbName   string
		vouchers int
		claimed  int
		live     int
	)
	err = pool.QueryRow(ctx, `
		SELECT current_database(),
		       (SELECT count(*) FROM vouchers),
		       (SELECT count(*) FROM vouchers WHERE claimed_by IS NOT NULL),
		       (SELECT count(*) FROM live_promotions WHERE claimed_by IS NULL AND expiry_date >= now())`,
	).Scan(&dbName, &vouchers, &claimed, &live)
	if err != nil {
		fmt.Fprintf(os.Stderr, "QueryRow failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Connected to database: %s\n", dbName)
	fmt.Printf("  vouchers:            %d\n", vouchers)
	fmt.Printf("  claimed by winners:  %d\n", claimed)
	fmt.Printf("  claimable promotion: %d\n", live)
}

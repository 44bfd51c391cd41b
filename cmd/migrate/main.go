package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"distribution-backoffice/internal/core"
)

// Applies every migrations/*.sql file in lexical order. Files are written to
// be re-runnable (CREATE TABLE IF NOT EXISTS), so there is no version table.
func main() {
	_ = godotenv.Load()
	dbURL := os.Getenv("DATABASE_URL")
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Printf("Failed to connect to DB: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	dir := "migrations"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil || len(files) == 0 {
		fmt.Printf("No migration files found in %s\n", dir)
		os.Exit(1)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlFile, err := os.ReadFile(f)
		if err != nil {
			fmt.Printf("Failed to read %s: %v\n", f, err)
			os.Exit(1)
		}
		if _, err := pool.Exec(ctx, string(sqlFile)); err != nil {
			fmt.Printf("Migration %s failed: %v\n", f, err)
			os.Exit(1)
		}
		fmt.Printf("Applied %s\n", f)
	}

	// Rows imported before the schema carried inventory_item_id only have the
	// identity tuple; link them so reconciliation can join by foreign key.
	linked, err := core.NewStockLedger(pool).BackfillItemLinks(ctx)
	if err != nil {
		fmt.Printf("Item link backfill failed: %v\n", err)
		os.Exit(1)
	}
	if linked > 0 {
		fmt.Printf("Linked %d legacy order lines to inventory items\n", linked)
	}
	fmt.Println("Migration successful.")
}

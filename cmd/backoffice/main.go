package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"distribution-backoffice/internal/adapters/cli"
	"distribution-backoffice/internal/app"
	"distribution-backoffice/internal/config"
	"distribution-backoffice/internal/core"
	"distribution-backoffice/internal/db"
)

// One-shot ops CLI against the same database the server uses. Feeds and event
// emission stay off here: a CLI invocation is not a source of truth the
// dashboards should react to.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: backoffice <command> [args]\nCommands: orders, order, status, fulfill-all, customers, balance, pay, stock, history, stock-room, finalize-return")
	}

	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	stock := core.NewStockLedger(pool)
	credit := core.NewCreditLedger(pool)
	audit := core.NewAuditRecorder(pool)
	portal := core.NewPortalSync(pool, nil, logger)
	coordinator := core.NewCoordinator(pool, stock, credit, audit, portal, nil, nil, logger)
	returns := core.NewReturnService(pool, stock, credit, audit, nil, logger)

	svc := app.NewAppService(pool, coordinator, stock, credit, audit, returns, portal)
	cli.Run(ctx, svc, os.Args[1:])
}

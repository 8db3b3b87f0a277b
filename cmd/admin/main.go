package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"kesef/internal/domain/reconciliation"
	"kesef/internal/domain/transaction"
	"kesef/internal/infrastructure/postgres"
	"kesef/internal/shared/config"
	"kesef/internal/shared/logger"
)

const usage = `Kesef Admin CLI - Maintenance commands for the Kesef API

Usage:
  admin <command> [options]

Commands:
  migrate     Apply (or roll back) database migrations
  reconcile   Reconcile one credit statement against its bank charge
  sweep       Reconcile every pending credit statement
  match       Print summary-transaction matches for transactions

Examples:
  admin migrate
  admin migrate --down=1
  admin reconcile --user-id=1 --document-id=3f1c...
  admin sweep --all
  admin sweep --user-id=1
  admin match --user-id=1 --ids=tx-1,tx-2
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	log := logger.New()

	var err error
	switch command := os.Args[1]; command {
	case "migrate":
		err = runMigrate(os.Args[2:], log)
	case "reconcile":
		err = runReconcile(os.Args[2:], log)
	case "sweep":
		err = runSweep(os.Args[2:], log)
	case "match":
		err = runMatch(os.Args[2:], log)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage)
		os.Exit(1)
	}

	if err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func connect(cfg *config.Config) (*postgres.DB, error) {
	return postgres.New(cfg.Database.ConnectionString(), postgres.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnLifetime,
	})
}

func runMigrate(args []string, log zerolog.Logger) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	down := fs.Int("down", 0, "Roll back this many migrations instead of applying")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	db, err := connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if *down > 0 {
		return postgres.MigrateDown(db, *down, log)
	}
	return postgres.Migrate(db, log)
}

func newOrchestrator(cfg *config.Config, db *postgres.DB) *reconciliation.Orchestrator {
	return reconciliation.NewOrchestrator(
		postgres.NewTransactionRepository(db),
		postgres.NewDocumentRepository(db),
		nil,
		reconciliation.Options{
			AmountTolerance:   cfg.Reconciliation.AutoAmountTolerance,
			DateToleranceDays: cfg.Reconciliation.AutoDateToleranceDays,
		},
	)
}

func runReconcile(args []string, log zerolog.Logger) error {
	fs := flag.NewFlagSet("reconcile", flag.ExitOnError)
	userID := fs.Int64("user-id", 0, "Owner of the credit statement")
	documentID := fs.String("document-id", "", "Credit statement document id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID <= 0 || *documentID == "" {
		fs.Usage()
		return fmt.Errorf("--user-id and --document-id are required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	db, err := connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := logger.WithContext(context.Background(), log)
	res := newOrchestrator(cfg, db).Reconcile(ctx, *userID, *documentID)
	return printJSON(res)
}

func runSweep(args []string, log zerolog.Logger) error {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	userID := fs.Int64("user-id", 0, "Only sweep this user's statements")
	all := fs.Bool("all", false, "Sweep every user")
	timeoutStr := fs.String("timeout", "30m", "Timeout for the operation (e.g., 5m, 1h)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID <= 0 && !*all {
		fs.Usage()
		return fmt.Errorf("must specify --user-id or --all")
	}

	timeout, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		return fmt.Errorf("invalid timeout format: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	db, err := connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(logger.WithContext(context.Background(), log), timeout)
	defer cancel()

	start := time.Now()
	summary, err := newOrchestrator(cfg, db).Sweep(ctx, *userID)
	if err != nil {
		return err
	}
	log.Info().Dur("elapsed", time.Since(start)).Msg("sweep completed")
	return printJSON(summary)
}

func runMatch(args []string, log zerolog.Logger) error {
	fs := flag.NewFlagSet("match", flag.ExitOnError)
	userID := fs.Int64("user-id", 0, "Owner of the transactions")
	ids := fs.String("ids", "", "Comma-separated transaction ids")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var txIDs []string
	for _, id := range strings.Split(*ids, ",") {
		if id = strings.TrimSpace(id); id != "" {
			txIDs = append(txIDs, id)
		}
	}
	if *userID <= 0 || len(txIDs) == 0 {
		fs.Usage()
		return fmt.Errorf("--user-id and --ids are required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	db, err := connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	finder := transaction.NewMatchFinder(
		cfg.Reconciliation.MatchThreshold,
		cfg.Reconciliation.MatchLimit,
		cfg.Reconciliation.PoolWindowDays,
	)
	svc := transaction.NewMatchService(postgres.NewTransactionRepository(db), finder)

	results, err := svc.MatchBatch(logger.WithContext(context.Background(), log), *userID, txIDs)
	if err != nil {
		return err
	}
	return printJSON(results)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

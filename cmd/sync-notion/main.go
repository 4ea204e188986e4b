package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/budget-tracker/internal/budget"
	"github.com/dvloznov/budget-tracker/internal/config"
	"github.com/dvloznov/budget-tracker/internal/logger"
	"github.com/dvloznov/budget-tracker/internal/notionsync"
	"github.com/dvloznov/budget-tracker/internal/store"
	"github.com/dvloznov/budget-tracker/internal/store/bolt"
)

func main() {
	log := logger.New()

	notionToken := flag.String("notion-token", "", "Notion API token (overrides NOTION_TOKEN env)")
	notionDBID := flag.String("notion-db-id", "", "Notion database ID (overrides NOTION_DATABASE_ID env)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Loading configuration failed")
	}
	if *notionToken == "" {
		*notionToken = cfg.Notion.Token
	}
	if *notionDBID == "" {
		*notionDBID = cfg.Notion.DatabaseID
	}

	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token or NOTION_TOKEN is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id or NOTION_DATABASE_ID is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	st, err := bolt.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("Opening database failed")
	}
	defer st.Close()

	var transactions []*budget.Transaction
	err = st.View(ctx, cfg.UserID, func(tx store.Tx) error {
		var err error
		transactions, err = tx.Transactions()
		return err
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Reading transactions failed")
	}

	log.Info().
		Int("transaction_count", len(transactions)).
		Bool("dry_run", *dryRun).
		Msg("Starting Notion sync")

	svc := notionsync.NewClient(*notionToken)

	res, err := notionsync.SyncTransactions(ctx, svc, *notionDBID, transactions, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Sync completed: %d created, %d skipped, %d archived.\n", res.Created, res.Skipped, res.Deleted)
}

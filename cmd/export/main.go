package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/budget-tracker/internal/budget"
	"github.com/dvloznov/budget-tracker/internal/config"
	"github.com/dvloznov/budget-tracker/internal/export"
	"github.com/dvloznov/budget-tracker/internal/logger"
	"github.com/dvloznov/budget-tracker/internal/store"
	"github.com/dvloznov/budget-tracker/internal/store/bolt"
)

func main() {
	log := logger.New()

	projectID := flag.String("project", "", "BigQuery project ID (overrides BQ_PROJECT_ID env)")
	verifyStart := flag.String("verify-start", "", "Verify exported rows from this date (YYYY-MM-DD) instead of inserting")
	verifyEnd := flag.String("verify-end", "", "Verify exported rows up to this date (YYYY-MM-DD)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Loading configuration failed")
	}
	if *projectID == "" {
		*projectID = cfg.Export.ProjectID
	}
	if *projectID == "" {
		log.Fatal().Msg("Error: --project or BQ_PROJECT_ID is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	exporter, err := export.NewExporter(ctx, *projectID, cfg.Export.Dataset, cfg.Export.Table)
	if err != nil {
		log.Fatal().Err(err).Msg("Creating exporter failed")
	}
	defer exporter.Close()

	if *verifyStart != "" || *verifyEnd != "" {
		runVerify(ctx, log, exporter, cfg.UserID, *verifyStart, *verifyEnd)
		return
	}

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

	inserted, err := exporter.InsertTransactions(ctx, cfg.UserID, transactions)
	if err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}

	fmt.Printf("Exported %d completed transaction(s) to %s.%s.%s\n",
		inserted, *projectID, cfg.Export.Dataset, cfg.Export.Table)
}

func runVerify(ctx context.Context, log zerolog.Logger, exporter *export.Exporter, userID, startStr, endStr string) {
	start, err := civil.ParseDate(startStr)
	if err != nil {
		log.Fatal().Err(err).Msg("Error: invalid verify-start, expected YYYY-MM-DD")
	}
	end, err := civil.ParseDate(endStr)
	if err != nil {
		log.Fatal().Err(err).Msg("Error: invalid verify-end, expected YYYY-MM-DD")
	}
	if end.Before(start) {
		log.Fatal().Msg("Error: verify-end must not be before verify-start")
	}

	rows, err := exporter.QueryByDateRange(ctx, userID, start, end)
	if err != nil {
		log.Fatal().Err(err).Msg("Verification query failed")
	}

	var sum float64
	for _, row := range rows {
		sum += row.SignedAmount
	}
	fmt.Printf("%d row(s) between %s and %s, signed sum %.2f\n", len(rows), start, end, sum)
}

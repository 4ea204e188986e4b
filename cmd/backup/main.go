package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/budget-tracker/internal/backup"
	"github.com/dvloznov/budget-tracker/internal/config"
	"github.com/dvloznov/budget-tracker/internal/logger"
	"github.com/dvloznov/budget-tracker/internal/store/bolt"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "take":
		runTake(log)
	case "restore":
		runRestore(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Budget Tracker backup")
	fmt.Println("\nUsage:")
	fmt.Println("  backup <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  take      Snapshot the user's data to GCS")
	fmt.Println("  restore   Restore the user's data from a GCS snapshot")
	fmt.Println("  help      Show this help message")
}

func runTake(log zerolog.Logger) {
	fs := flag.NewFlagSet("take", flag.ExitOnError)
	bucket := fs.String("bucket", "", "GCS bucket name (overrides GCS_BUCKET env)")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Loading configuration failed")
	}
	if *bucket == "" {
		*bucket = cfg.Backup.Bucket
	}
	if *bucket == "" {
		log.Fatal().Msg("Error: --bucket or GCS_BUCKET is required")
	}

	st, err := bolt.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("Opening database failed")
	}
	defer st.Close()

	snap, err := backup.Take(ctx, st, cfg.UserID)
	if err != nil {
		log.Fatal().Err(err).Msg("Taking snapshot failed")
	}

	objectName := backup.ObjectName(cfg.Backup.Prefix, cfg.UserID, snap.CreatedAt)
	if err := backup.Upload(ctx, *bucket, objectName, snap); err != nil {
		log.Fatal().Err(err).Msg("Uploading snapshot failed")
	}

	fmt.Printf("Snapshot uploaded to gs://%s/%s\n", *bucket, objectName)
}

func runRestore(log zerolog.Logger) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	bucket := fs.String("bucket", "", "GCS bucket name (overrides GCS_BUCKET env)")
	object := fs.String("object", "", "Snapshot object name (required)")
	fs.Parse(os.Args[2:])

	if *object == "" {
		log.Fatal().Msg("Error: --object is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Loading configuration failed")
	}
	if *bucket == "" {
		*bucket = cfg.Backup.Bucket
	}
	if *bucket == "" {
		log.Fatal().Msg("Error: --bucket or GCS_BUCKET is required")
	}

	snap, err := backup.Download(ctx, *bucket, *object)
	if err != nil {
		log.Fatal().Err(err).Msg("Downloading snapshot failed")
	}

	st, err := bolt.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("Opening database failed")
	}
	defer st.Close()

	if err := backup.Restore(ctx, st, snap); err != nil {
		log.Fatal().Err(err).Msg("Restoring snapshot failed")
	}

	fmt.Printf("Restored %d transaction(s), %d future, %d recurring for %s\n",
		len(snap.Transactions), len(snap.Future), len(snap.Expecting), snap.UserID)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/budget-tracker/internal/budget"
	"github.com/dvloznov/budget-tracker/internal/config"
	"github.com/dvloznov/budget-tracker/internal/currency"
	"github.com/dvloznov/budget-tracker/internal/engine"
	"github.com/dvloznov/budget-tracker/internal/logger"
	"github.com/dvloznov/budget-tracker/internal/state"
	"github.com/dvloznov/budget-tracker/internal/store/bolt"
	"github.com/dvloznov/budget-tracker/internal/suggest"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		runAdd(log)
	case "delete":
		runDelete(log)
	case "balance":
		runBalance(log)
	case "list":
		runList(log)
	case "expecting":
		runExpecting(log)
	case "suggest":
		runSuggest(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Budget Tracker CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  budget <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  add        Record an income or expense transaction")
	fmt.Println("  delete     Delete a transaction by ID")
	fmt.Println("  balance    Show the current balance and per-currency ledger")
	fmt.Println("  list       List transactions")
	fmt.Println("  expecting  Manage recurring transactions (add/list/delete)")
	fmt.Println("  suggest    Suggest a category for a description")
	fmt.Println("  help       Show this help message")
	fmt.Println("\nRun 'budget <command> -h' for more information on a command.")
}

// session opens the store and runs the startup sequence, returning a ready
// engine. Every command goes through it so balances are reconciled and
// recurring months materialized before any mutation.
func session(ctx context.Context, log zerolog.Logger) (*engine.Engine, *config.Config, currency.Rates, func()) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Loading configuration failed")
	}

	rates, err := config.LoadRates(cfg.RatesPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Loading exchange rates failed")
	}

	st, err := bolt.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("Opening database failed")
	}

	e := engine.New(st, state.New(), log)
	if err := e.RunSession(ctx, cfg.UserID, rates); err != nil {
		st.Close()
		log.Fatal().Err(err).Msg("Session startup failed")
	}

	return e, cfg, rates, func() { st.Close() }
}

func runAdd(log zerolog.Logger) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	amount := fs.Float64("amount", 0, "Transaction amount (always positive)")
	typ := fs.String("type", "expense", "Transaction type: income or expense")
	category := fs.String("category", "Other", "Category name")
	description := fs.String("description", "", "Free-form description")
	date := fs.String("date", civil.DateOf(time.Now()).String(), "Transaction date (YYYY-MM-DD)")
	code := fs.String("currency", "", "Currency code (defaults to the base currency)")
	force := fs.Bool("force", false, "Save even when an identical transaction exists")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	e, cfg, rates, closeStore := session(ctx, log)
	defer closeStore()

	if *code == "" {
		*code = cfg.BaseCurrency
	}

	day, err := civil.ParseDate(*date)
	if err != nil {
		log.Fatal().Err(err).Msg("Date must be YYYY-MM-DD")
	}

	tr, err := engine.BuildTransaction(engine.Draft{
		Amount:       *amount,
		Type:         budget.Type(*typ),
		Category:     budget.Category(*category),
		Description:  *description,
		Date:         day,
		CurrencyCode: *code,
	}, rates, cfg.BaseCurrency)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid transaction")
	}

	if !*force && e.IsDuplicate(tr.Signature) {
		log.Fatal().Msg("An identical transaction already exists; rerun with -force to save anyway")
	}

	if err := e.SaveTransaction(ctx, cfg.UserID, tr); err != nil {
		log.Fatal().Err(err).Msg("Saving transaction failed")
	}

	if tr.Completed {
		fmt.Printf("Saved %s. Balance: %.2f %s\n", tr.ID, e.State().Balance.Current(), cfg.BaseCurrency)
	} else {
		fmt.Printf("Saved %s (future; balance unchanged until %s)\n", tr.ID, tr.Date)
	}
}

func runDelete(log zerolog.Logger) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.String("id", "", "Transaction ID to delete")
	fs.Parse(os.Args[2:])

	if *id == "" {
		log.Fatal().Msg("Error: --id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	e, cfg, _, closeStore := session(ctx, log)
	defer closeStore()

	if err := e.DeleteTransaction(ctx, cfg.UserID, *id); err != nil {
		log.Fatal().Err(err).Str("transaction_id", *id).Msg("Deleting transaction failed")
	}

	fmt.Printf("Deleted %s. Balance: %.2f %s\n", *id, e.State().Balance.Current(), cfg.BaseCurrency)
}

func runBalance(log zerolog.Logger) {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	e, cfg, _, closeStore := session(ctx, log)
	defer closeStore()

	fmt.Printf("Balance: %.2f %s\n", e.State().Balance.Current(), cfg.BaseCurrency)
	ledger := e.State().Balance.Ledger()
	if len(ledger) > 0 {
		fmt.Println("Ledger:")
		for code, amount := range ledger {
			fmt.Printf("  %s %10.2f\n", code, amount)
		}
	}
}

func runList(log zerolog.Logger) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	futureOnly := fs.Bool("future", false, "List only future transactions")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	e, _, _, closeStore := session(ctx, log)
	defer closeStore()

	var transactions []*budget.Transaction
	if *futureOnly {
		transactions = e.State().Future.List()
	} else {
		transactions = e.State().Transactions.List()
	}

	for _, tr := range transactions {
		marker := " "
		if !tr.Completed {
			marker = "*"
		}
		fmt.Printf("%s %s  %s  %-8s %10.2f %s  %s  %s\n",
			marker, tr.ID, tr.Date, tr.Type, tr.OrigAmount, tr.Currency.Code, tr.Category, tr.Description)
	}
	fmt.Printf("%d transaction(s)\n", len(transactions))
}

func runExpecting(log zerolog.Logger) {
	if len(os.Args) < 3 {
		log.Fatal().Msg("Usage: budget expecting <add|list|delete> [options]")
	}

	switch os.Args[2] {
	case "add":
		runExpectingAdd(log)
	case "list":
		runExpectingList(log)
	case "delete":
		runExpectingDelete(log)
	default:
		log.Fatal().Str("subcommand", os.Args[2]).Msg("Unknown expecting subcommand")
	}
}

func runExpectingAdd(log zerolog.Logger) {
	fs := flag.NewFlagSet("expecting add", flag.ExitOnError)
	amount := fs.Float64("amount", 0, "Recurring amount (always positive)")
	typ := fs.String("type", "income", "Transaction type: income or expense")
	category := fs.String("category", "Salary", "Category name")
	description := fs.String("description", "", "Free-form description")
	payDay := fs.Int("pay-day", 1, "Day of month the transaction lands on (1-28)")
	code := fs.String("currency", "", "Currency code (defaults to the base currency)")
	fs.Parse(os.Args[3:])

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	e, cfg, rates, closeStore := session(ctx, log)
	defer closeStore()

	if *code == "" {
		*code = cfg.BaseCurrency
	}
	cur, ok := currency.Lookup(*code)
	if !ok {
		log.Fatal().Str("currency", *code).Msg("Unknown currency")
	}

	rate := rates[*code]
	if *code == cfg.BaseCurrency || rate == 0 {
		rate = 1
	}

	def := &budget.ExpectingTransaction{
		OrigAmount:   *amount,
		BaseAmount:   *amount / rate,
		Currency:     cur,
		Type:         budget.Type(*typ),
		PayDay:       *payDay,
		StartDate:    civil.DateOf(time.Now()),
		Category:     budget.Category(*category),
		Description:  *description,
		ExchangeRate: rate,
	}

	if err := e.SaveExpecting(ctx, cfg.UserID, def); err != nil {
		log.Fatal().Err(err).Msg("Saving recurring transaction failed")
	}

	fmt.Printf("Saved recurring transaction %s (pay day %d)\n", def.ID, def.PayDay)
}

func runExpectingList(log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	e, _, _, closeStore := session(ctx, log)
	defer closeStore()

	definitions := e.State().Expecting.List()
	for _, def := range definitions {
		fmt.Printf("%s  day %2d  %-8s %10.2f %s  %s  (%d month(s) processed)\n",
			def.ID, def.PayDay, def.Type, def.OrigAmount, def.Currency.Code, def.Category, len(def.ProcessedMonths))
	}
	fmt.Printf("%d recurring transaction(s)\n", len(definitions))
}

func runExpectingDelete(log zerolog.Logger) {
	fs := flag.NewFlagSet("expecting delete", flag.ExitOnError)
	id := fs.String("id", "", "Recurring transaction ID to delete")
	fs.Parse(os.Args[3:])

	if *id == "" {
		log.Fatal().Msg("Error: --id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	e, cfg, _, closeStore := session(ctx, log)
	defer closeStore()

	if err := e.DeleteExpecting(ctx, cfg.UserID, *id); err != nil {
		log.Fatal().Err(err).Str("definition_id", *id).Msg("Deleting recurring transaction failed")
	}

	fmt.Printf("Deleted recurring transaction %s\n", *id)
}

func runSuggest(log zerolog.Logger) {
	fs := flag.NewFlagSet("suggest", flag.ExitOnError)
	description := fs.String("description", "", "Transaction description to classify")
	model := fs.String("model", "", "Model name (defaults to "+suggest.DefaultModelName+")")
	fs.Parse(os.Args[2:])

	if *description == "" {
		log.Fatal().Msg("Error: --description is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	s, err := suggest.Category(ctx, suggest.NewGenerator(*model), *description)
	if err != nil {
		log.Fatal().Err(err).Msg("Suggestion failed")
	}

	fmt.Printf("%s (confidence %.2f)\n", s.Category, s.Confidence)
}

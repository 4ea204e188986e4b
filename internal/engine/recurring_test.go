package engine

import (
	"context"
	"sort"
	"testing"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/budget-tracker/internal/budget"
	"github.com/dvloznov/budget-tracker/internal/currency"
)

func saveSalaryDef(t *testing.T, e *Engine, start civil.Date, payDay int) *budget.ExpectingTransaction {
	t.Helper()
	def := &budget.ExpectingTransaction{
		OrigAmount: 1000,
		BaseAmount: 1000,
		Currency:   mustCurrency(t, "EUR"),
		Type:       budget.Income,
		PayDay:     payDay,
		StartDate:  start,
		Category:   budget.CategorySalary,
	}
	if err := e.SaveExpecting(context.Background(), testUser, def); err != nil {
		t.Fatalf("SaveExpecting: %v", err)
	}
	return def
}

// Definition created 2024-01-05 with pay day 5, processed on 2024-04-10:
// January through March are backfilled on the 5th, April lands today, and
// all four months are marked processed.
func TestProcessExpectingBackfill(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	initUser(t, e)

	saveSalaryDef(t, e, civil.Date{Year: 2024, Month: 1, Day: 5}, 5)

	if err := e.ProcessExpecting(ctx, testUser, nil); err != nil {
		t.Fatalf("ProcessExpecting: %v", err)
	}

	list := e.State().Transactions.List()
	if len(list) != 4 {
		t.Fatalf("materialized %d transactions, want 4", len(list))
	}

	var dates []string
	for _, tr := range list {
		dates = append(dates, tr.Date.String())
		if tr.OrigAmount != 1000 || tr.Type != budget.Income {
			t.Errorf("materialized transaction %+v", tr)
		}
		if !tr.Completed {
			t.Errorf("materialized transaction %s not completed", tr.ID)
		}
	}
	sort.Strings(dates)
	want := []string{"2024-01-05", "2024-02-05", "2024-03-05", "2024-04-10"}
	for i, d := range want {
		if dates[i] != d {
			t.Errorf("dates = %v, want %v", dates, want)
			break
		}
	}

	if got := e.State().Balance.Current(); got != 4000 {
		t.Errorf("balance = %v, want 4000", got)
	}

	defs := e.State().Expecting.List()
	if len(defs) != 1 {
		t.Fatalf("expecting mirror = %v", defs)
	}
	months := append([]string(nil), defs[0].ProcessedMonths...)
	sort.Strings(months)
	wantMonths := []string{"2024-01", "2024-02", "2024-03", "2024-04"}
	if len(months) != len(wantMonths) {
		t.Fatalf("processed months = %v, want %v", months, wantMonths)
	}
	for i := range wantMonths {
		if months[i] != wantMonths[i] {
			t.Fatalf("processed months = %v, want %v", months, wantMonths)
		}
	}
}

// A second run over the same definition must materialize nothing.
func TestProcessExpectingIdempotent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	initUser(t, e)

	saveSalaryDef(t, e, civil.Date{Year: 2024, Month: 2, Day: 1}, 1)

	if err := e.ProcessExpecting(ctx, testUser, nil); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := len(e.State().Transactions.List())
	balance := e.State().Balance.Current()

	if err := e.ProcessExpecting(ctx, testUser, nil); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if got := len(e.State().Transactions.List()); got != first {
		t.Errorf("second run added transactions: %d -> %d", first, got)
	}
	if got := e.State().Balance.Current(); got != balance {
		t.Errorf("second run moved balance: %v -> %v", balance, got)
	}
}

// Pay day not yet reached this month: only earlier months materialize.
func TestProcessExpectingCurrentMonthNotDue(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	initUser(t, e)

	// today is 2024-04-10; pay day 25 has not arrived.
	saveSalaryDef(t, e, civil.Date{Year: 2024, Month: 3, Day: 1}, 25)

	if err := e.ProcessExpecting(ctx, testUser, nil); err != nil {
		t.Fatalf("ProcessExpecting: %v", err)
	}

	list := e.State().Transactions.List()
	if len(list) != 1 {
		t.Fatalf("materialized %d transactions, want 1", len(list))
	}
	if got := list[0].Date.String(); got != "2024-03-25" {
		t.Errorf("date = %s, want 2024-03-25", got)
	}
	months := e.State().Expecting.List()[0].ProcessedMonths
	if len(months) != 1 || months[0] != "2024-03" {
		t.Errorf("processed months = %v, want [2024-03]", months)
	}
}

// Definitions starting in the current month with the pay day already past
// materialize once, dated today.
func TestProcessExpectingStartsThisMonth(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	initUser(t, e)

	saveSalaryDef(t, e, civil.Date{Year: 2024, Month: 4, Day: 2}, 5)

	if err := e.ProcessExpecting(ctx, testUser, nil); err != nil {
		t.Fatalf("ProcessExpecting: %v", err)
	}

	list := e.State().Transactions.List()
	if len(list) != 1 {
		t.Fatalf("materialized %d transactions, want 1", len(list))
	}
	if got := list[0].Date; got != today {
		t.Errorf("date = %s, want %s", got, today)
	}
}

// Non-base definitions convert with the rates snapshot at materialization
// time, falling back to 1:1 when the rate is missing.
func TestProcessExpectingConvertsCurrency(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	initUser(t, e)

	def := &budget.ExpectingTransaction{
		OrigAmount: 110,
		BaseAmount: 100,
		Currency:   mustCurrency(t, "USD"),
		Type:       budget.Expense,
		PayDay:     1,
		StartDate:  civil.Date{Year: 2024, Month: 4, Day: 1},
		Category:   budget.CategoryRent,
	}
	if err := e.SaveExpecting(ctx, testUser, def); err != nil {
		t.Fatalf("SaveExpecting: %v", err)
	}

	if err := e.ProcessExpecting(ctx, testUser, currency.Rates{"USD": 1.1}); err != nil {
		t.Fatalf("ProcessExpecting: %v", err)
	}

	list := e.State().Transactions.List()
	if len(list) != 1 {
		t.Fatalf("materialized %d transactions, want 1", len(list))
	}
	if got := list[0].BaseAmount; got < 99.999 || got > 100.001 {
		t.Errorf("BaseAmount = %v, want 100", got)
	}
	if got := e.State().Balance.Current(); got < -100.001 || got > -99.999 {
		t.Errorf("balance = %v, want -100", got)
	}
	if got := e.State().Balance.Ledger()["USD"]; got != -110 {
		t.Errorf("ledger[USD] = %v, want -110", got)
	}
}

package engine

import (
	"context"
	"errors"
	"math"
	"testing"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/budget-tracker/internal/store"
)

// Transactions queued before the balance document existed are replayed
// through the regular save path during the session sequence.
func TestRunSessionFlushesQueued(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	e.QueueUnlogged(usdExpense(t, "queued", civil.Date{Year: 2024, Month: 4, Day: 1}))

	if err := e.RunSession(ctx, testUser, nil); err != nil {
		t.Fatalf("RunSession: %v", err)
	}

	if got := e.State().Balance.Current(); math.Abs(got-(-10)) > 1e-9 {
		t.Errorf("balance = %v, want -10", got)
	}
	if got := len(e.State().Unlogged.List()); got != 0 {
		t.Errorf("unlogged queue has %d entries after flush, want 0", got)
	}

	viewErr := e.store.View(ctx, testUser, func(tx store.Tx) error {
		if _, err := tx.Transaction("queued"); err != nil {
			t.Errorf("queued transaction not persisted: %v", err)
		}
		return nil
	})
	if viewErr != nil {
		t.Fatalf("View: %v", viewErr)
	}
}

// Flushing must never touch transactions that already went through the save
// path: their balance effect is applied exactly once.
func TestFlushUnloggedLeavesSavedAlone(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	initUser(t, e)

	if err := e.SaveTransaction(ctx, testUser, usdExpense(t, "t1", civil.Date{Year: 2024, Month: 4, Day: 1})); err != nil {
		t.Fatalf("SaveTransaction: %v", err)
	}

	if err := e.FlushUnlogged(ctx, testUser); err != nil {
		t.Fatalf("FlushUnlogged: %v", err)
	}

	if got := e.State().Balance.Current(); math.Abs(got-(-10)) > 1e-9 {
		t.Errorf("balance = %v, want -10", got)
	}
	if got := len(e.State().Transactions.List()); got != 1 {
		t.Errorf("transaction mirror has %d entries, want 1", got)
	}
}

// Entries that fail to save stay queued for the next session.
func TestFlushUnloggedKeepsFailedEntries(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	// No FetchBalance: the balance document does not exist.

	e.QueueUnlogged(usdExpense(t, "stuck", civil.Date{Year: 2024, Month: 4, Day: 1}))

	if err := e.FlushUnlogged(ctx, testUser); !errors.Is(err, store.ErrUserNotInitialized) {
		t.Fatalf("FlushUnlogged = %v, want ErrUserNotInitialized", err)
	}
	if got := len(e.State().Unlogged.List()); got != 1 {
		t.Errorf("unlogged queue has %d entries, want 1", got)
	}
	if got := e.State().Balance.Current(); got != 0 {
		t.Errorf("balance = %v, want 0", got)
	}
}

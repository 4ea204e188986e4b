package backup

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/budget-tracker/internal/budget"
	"github.com/dvloznov/budget-tracker/internal/currency"
	"github.com/dvloznov/budget-tracker/internal/store"
	"github.com/dvloznov/budget-tracker/internal/store/memory"
)

func seedStore(t *testing.T, st store.Store, userID string) {
	t.Helper()
	usd, _ := currency.Lookup("USD")
	bal := -10.0

	err := st.Update(context.Background(), userID, func(tx store.Tx) error {
		if err := tx.PutUser(&store.UserDoc{
			CurrentBalance: &bal,
			BalanceLedger:  map[string]float64{"USD": -11},
		}); err != nil {
			return err
		}
		if err := tx.PutTransaction(&budget.Transaction{
			ID:         "t1",
			OrigAmount: 11,
			BaseAmount: 10,
			Currency:   usd,
			Type:       budget.Expense,
			Date:       civil.Date{Year: 2024, Month: 1, Day: 15},
			Category:   budget.CategoryGroceries,
			Completed:  true,
		}); err != nil {
			return err
		}
		return tx.PutExpecting(&budget.ExpectingTransaction{
			ID:              "e1",
			OrigAmount:      1000,
			BaseAmount:      1000,
			Currency:        usd,
			Type:            budget.Income,
			PayDay:          5,
			StartDate:       civil.Date{Year: 2024, Month: 1, Day: 1},
			Category:        budget.CategorySalary,
			ProcessedMonths: []string{"2024-01"},
		})
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestTakeAndRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := memory.NewStore()
	seedStore(t, src, "user-1")

	snap, err := Take(ctx, src, "user-1")
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if snap.CurrentBalance == nil || *snap.CurrentBalance != -10 {
		t.Errorf("CurrentBalance = %v, want -10", snap.CurrentBalance)
	}
	if len(snap.Transactions) != 1 || len(snap.Expecting) != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}

	// The snapshot must survive its wire format.
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Snapshot
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	dst := memory.NewStore()
	if err := Restore(ctx, dst, &decoded); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	err = dst.View(ctx, "user-1", func(tx store.Tx) error {
		user, err := tx.User()
		if err != nil {
			return err
		}
		if *user.CurrentBalance != -10 || user.BalanceLedger["USD"] != -11 {
			t.Errorf("restored user = %+v", user)
		}
		tr, err := tx.Transaction("t1")
		if err != nil {
			return err
		}
		if tr.BaseAmount != 10 || !tr.Completed {
			t.Errorf("restored transaction = %+v", tr)
		}
		def, err := tx.Expecting("e1")
		if err != nil {
			return err
		}
		if def.PayDay != 5 || len(def.ProcessedMonths) != 1 {
			t.Errorf("restored definition = %+v", def)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestTakeEmptyUser(t *testing.T) {
	snap, err := Take(context.Background(), memory.NewStore(), "nobody")
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if snap.CurrentBalance != nil {
		t.Errorf("CurrentBalance = %v, want nil", snap.CurrentBalance)
	}
	if len(snap.Transactions) != 0 || len(snap.Future) != 0 || len(snap.Expecting) != 0 {
		t.Errorf("snapshot = %+v, want empty", snap)
	}
}

func TestObjectName(t *testing.T) {
	at := time.Date(2024, 4, 10, 12, 30, 45, 0, time.UTC)
	got := ObjectName("backups", "user-1", at)
	want := "backups/user-1/20240410-123045.json"
	if got != want {
		t.Errorf("ObjectName = %q, want %q", got, want)
	}
}
